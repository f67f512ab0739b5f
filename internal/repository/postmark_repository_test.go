package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woco-project/woco-api/internal/models"
)

func newPostmarkRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func postmarkRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "postmark_key", "location_id", "shape_id", "lettering_style_id", "framing_style_id", "date_format_id", "rate_location", "rate_value", "condition", "is_manuscript", "other_characteristics", "created_at", "updated_at", "created_by", "modified_by"}).
		AddRow("pm-1", "SC-CHS-001", "loc-1", "shape-1", "let-1", "frame-1", "fmt-1", "CENTER", "5", nil, false, "", now, now, "admin", "admin")
}

func TestPostmarkRepositoryListChildFactFilters(t *testing.T) {
	db, mock, cleanup := newPostmarkRepoMock(t)
	defer cleanup()
	repo := NewPostmarkRepository(db)

	yearMin := 1850
	valueMin := 50.0
	hasImages := true

	mock.ExpectQuery(regexp.QuoteMeta("EXISTS (SELECT 1 FROM postmark_date_ranges d WHERE d.postmark_id = p.id AND EXTRACT(YEAR FROM d.earliest_seen) >= $1)")).
		WithArgs(yearMin, valueMin).
		WillReturnRows(postmarkRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM postmarks p")).
		WithArgs(yearMin, valueMin).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	postmarks, total, err := repo.List(context.Background(), models.PostmarkFilter{
		EarliestYearMin: &yearMin,
		ValueMin:        &valueMin,
		HasImages:       &hasImages,
	})
	require.NoError(t, err)
	require.Len(t, postmarks, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "SC-CHS-001", postmarks[0].PostmarkKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostmarkRepositoryListStateFilter(t *testing.T) {
	db, mock, cleanup := newPostmarkRepoMock(t)
	defer cleanup()
	repo := NewPostmarkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN administrative_units u ON u.id = a.unit_id")).
		WithArgs("SC", "%SC%").
		WillReturnRows(postmarkRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("SC", "%SC%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	postmarks, _, err := repo.List(context.Background(), models.PostmarkFilter{State: "SC"})
	require.NoError(t, err)
	require.Len(t, postmarks, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostmarkRepositoryExistsByKey(t *testing.T) {
	db, mock, cleanup := newPostmarkRepoMock(t)
	defer cleanup()
	repo := NewPostmarkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM postmarks WHERE LOWER(postmark_key) = LOWER($1) LIMIT 1")).
		WithArgs("SC-CHS-001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByKey(context.Background(), "SC-CHS-001", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM postmarks WHERE LOWER(postmark_key) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("SC-CHS-001", "pm-1").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByKey(context.Background(), "SC-CHS-001", "pm-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func newCreatePostmark() *models.Postmark {
	postmark := &models.Postmark{
		PostmarkKey:      "SC-CHS-001",
		LocationID:       "loc-1",
		ShapeID:          "shape-1",
		LetteringStyleID: "let-1",
		FramingStyleID:   "frame-1",
		DateFormatID:     "fmt-1",
		RateLocation:     models.RateCenter,
		RateValue:        "5",
	}
	postmark.CreatedBy = "admin"
	postmark.ModifiedBy = "admin"
	return postmark
}

func TestPostmarkRepositoryCreateWithFacts(t *testing.T) {
	db, mock, cleanup := newPostmarkRepoMock(t)
	defer cleanup()
	repo := NewPostmarkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO postmarks")).
		WithArgs(sqlmock.AnyArg(), "SC-CHS-001", "loc-1", "shape-1", "let-1", "frame-1", "fmt-1", models.RateCenter, "5", nil, false, "", sqlmock.AnyArg(), sqlmock.AnyArg(), "admin", "admin").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO postmark_colors")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "color-1", sqlmock.AnyArg(), "admin").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO postmark_date_ranges")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "admin").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	postmark := newCreatePostmark()
	colors := []models.PostmarkColor{{ColorID: "color-1", CreatedBy: "admin"}}
	ranges := []models.PostmarkDateRange{{
		EarliestSeen: time.Date(1850, 3, 1, 0, 0, 0, 0, time.UTC),
		LatestSeen:   time.Date(1855, 11, 30, 0, 0, 0, 0, time.UTC),
		CreatedBy:    "admin",
	}}

	require.NoError(t, repo.CreateWithFacts(context.Background(), postmark, colors, ranges, nil, nil))
	assert.NotEmpty(t, postmark.ID)
	assert.Equal(t, postmark.ID, colors[0].PostmarkID)
	assert.Equal(t, postmark.ID, ranges[0].PostmarkID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostmarkRepositoryCreateWithFactsRollsBack(t *testing.T) {
	db, mock, cleanup := newPostmarkRepoMock(t)
	defer cleanup()
	repo := NewPostmarkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO postmarks")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO postmark_date_ranges")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	ranges := []models.PostmarkDateRange{{
		EarliestSeen: time.Date(1850, 3, 1, 0, 0, 0, 0, time.UTC),
		LatestSeen:   time.Date(1855, 11, 30, 0, 0, 0, 0, time.UTC),
		CreatedBy:    "admin",
	}}

	err := repo.CreateWithFacts(context.Background(), newCreatePostmark(), nil, ranges, nil, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostmarkRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newPostmarkRepoMock(t)
	defer cleanup()
	repo := NewPostmarkRepository(db)

	mock.ExpectBegin()
	for _, table := range []string{
		"postmark_colors", "postmark_date_ranges", "postmark_sizes",
		"postmark_valuations", "postmark_images", "publication_references",
		"postcover_placements",
	} {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table + " WHERE postmark_id = $1")).
			WithArgs("pm-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM postmarks WHERE id = $1")).
		WithArgs("pm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "pm-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
