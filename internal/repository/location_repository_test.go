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

func newLocationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
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

func locationRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "location_name", "location_type", "latitude", "longitude", "created_at", "updated_at", "created_by", "modified_by"}).
		AddRow("loc-1", "Charleston", "POST_OFFICE", 32.7765, -79.9311, now, now, "admin", "admin")
}

func TestLocationRepositoryList(t *testing.T) {
	db, mock, cleanup := newLocationRepoMock(t)
	defer cleanup()
	repo := NewLocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, location_name, location_type, latitude, longitude, created_at, updated_at, created_by, modified_by FROM geographic_locations WHERE 1=1 AND location_type = $1 AND LOWER(location_name) LIKE $2 ORDER BY location_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("POST_OFFICE", "%charles%").
		WillReturnRows(locationRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM geographic_locations WHERE 1=1 AND location_type = $1 AND LOWER(location_name) LIKE $2")).
		WithArgs("POST_OFFICE", "%charles%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	locations, total, err := repo.List(context.Background(), models.LocationFilter{
		LocationType: "POST_OFFICE",
		Search:       "Charles",
	})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Charleston", locations[0].LocationName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepositoryListCoordinateWindow(t *testing.T) {
	db, mock, cleanup := newLocationRepoMock(t)
	defer cleanup()
	repo := NewLocationRepository(db)

	latMin, lonMin := 30.0, -85.0
	hasCoords := true

	mock.ExpectQuery(regexp.QuoteMeta("latitude >= $1 AND longitude >= $2 AND latitude IS NOT NULL AND longitude IS NOT NULL")).
		WithArgs(latMin, lonMin).
		WillReturnRows(locationRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(latMin, lonMin).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	locations, _, err := repo.List(context.Background(), models.LocationFilter{
		LatitudeMin:    &latMin,
		LongitudeMin:   &lonMin,
		HasCoordinates: &hasCoords,
	})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newLocationRepoMock(t)
	defer cleanup()
	repo := NewLocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM geographic_locations WHERE id = $1")).
		WithArgs("loc-99").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "loc-99")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLocationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLocationRepoMock(t)
	defer cleanup()
	repo := NewLocationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO geographic_locations")).
		WithArgs(sqlmock.AnyArg(), "Charleston", "POST_OFFICE", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), "admin", "admin").
		WillReturnResult(sqlmock.NewResult(1, 1))

	location := &models.GeographicLocation{LocationName: "Charleston", LocationType: models.LocationPostOffice}
	location.CreatedBy = "admin"
	location.ModifiedBy = "admin"

	require.NoError(t, repo.Create(context.Background(), location))
	assert.NotEmpty(t, location.ID)
	assert.False(t, location.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationRepositoryCountPostmarks(t *testing.T) {
	db, mock, cleanup := newLocationRepoMock(t)
	defer cleanup()
	repo := NewLocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM postmarks WHERE location_id = $1")).
		WithArgs("loc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountPostmarks(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestLocationRepositoryDeleteCascadesAffiliations(t *testing.T) {
	db, mock, cleanup := newLocationRepoMock(t)
	defer cleanup()
	repo := NewLocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM geographic_affiliations WHERE location_id = $1")).
		WithArgs("loc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM geographic_locations WHERE id = $1")).
		WithArgs("loc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "loc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
