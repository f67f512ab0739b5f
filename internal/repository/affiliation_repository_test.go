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

func newAffiliationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
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

func affiliationRows(id string, from time.Time, to *time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "location_id", "unit_id", "effective_from", "effective_to", "source", "created_at", "updated_at", "created_by", "modified_by"})
	if to != nil {
		rows.AddRow(id, "loc-1", "unit-1", from, *to, "statute", now, now, "admin", "admin")
	} else {
		rows.AddRow(id, "loc-1", "unit-1", from, nil, "statute", now, now, "admin", "admin")
	}
	return rows
}

func TestAffiliationRepositoryListOpenOnly(t *testing.T) {
	db, mock, cleanup := newAffiliationRepoMock(t)
	defer cleanup()
	repo := NewAffiliationRepository(db)

	from := time.Date(1788, 5, 23, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM geographic_affiliations WHERE 1=1 AND location_id = $1 AND effective_to IS NULL ORDER BY effective_from DESC LIMIT 20 OFFSET 0")).
		WithArgs("loc-1").
		WillReturnRows(affiliationRows("aff-1", from, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM geographic_affiliations WHERE 1=1 AND location_id = $1 AND effective_to IS NULL")).
		WithArgs("loc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	affiliations, total, err := repo.List(context.Background(), models.AffiliationFilter{LocationID: "loc-1", OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, affiliations, 1)
	assert.Equal(t, 1, total)
	assert.True(t, affiliations[0].Open())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAffiliationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAffiliationRepoMock(t)
	defer cleanup()
	repo := NewAffiliationRepository(db)

	from := time.Date(1861, 4, 12, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO geographic_affiliations")).
		WithArgs(sqlmock.AnyArg(), "loc-1", "unit-1", from, nil, "secession ordinance", sqlmock.AnyArg(), sqlmock.AnyArg(), "admin", "admin").
		WillReturnResult(sqlmock.NewResult(1, 1))

	affiliation := &models.GeographicAffiliation{
		LocationID:    "loc-1",
		UnitID:        "unit-1",
		EffectiveFrom: from,
		Source:        "secession ordinance",
	}
	affiliation.CreatedBy = "admin"
	affiliation.ModifiedBy = "admin"

	require.NoError(t, repo.Create(context.Background(), affiliation))
	assert.NotEmpty(t, affiliation.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAffiliationRepositoryClose(t *testing.T) {
	db, mock, cleanup := newAffiliationRepoMock(t)
	defer cleanup()
	repo := NewAffiliationRepository(db)

	to := time.Date(1865, 4, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE geographic_affiliations SET effective_to = $2, updated_at = $3, modified_by = $4 WHERE id = $1")).
		WithArgs("aff-1", to, sqlmock.AnyArg(), "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Close(context.Background(), "aff-1", to, "admin"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAffiliationRepositoryHasOpen(t *testing.T) {
	db, mock, cleanup := newAffiliationRepoMock(t)
	defer cleanup()
	repo := NewAffiliationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM geographic_affiliations WHERE location_id = $1 AND effective_to IS NULL LIMIT 1")).
		WithArgs("loc-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	open, err := repo.HasOpen(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.True(t, open)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM geographic_affiliations")).
		WithArgs("loc-2").
		WillReturnError(sql.ErrNoRows)

	open, err = repo.HasOpen(context.Background(), "loc-2")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestAffiliationRepositoryCurrentForLocation(t *testing.T) {
	db, mock, cleanup := newAffiliationRepoMock(t)
	defer cleanup()
	repo := NewAffiliationRepository(db)

	asOf := time.Date(1863, 7, 4, 0, 0, 0, 0, time.UTC)
	from := time.Date(1861, 4, 12, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE location_id = $1 AND effective_from <= $2 AND (effective_to IS NULL OR effective_to >= $2)")).
		WithArgs("loc-1", asOf).
		WillReturnRows(affiliationRows("aff-2", from, nil))

	affiliations, err := repo.CurrentForLocation(context.Background(), "loc-1", asOf)
	require.NoError(t, err)
	require.Len(t, affiliations, 1)
	assert.Equal(t, "aff-2", affiliations[0].ID)
}

func TestAffiliationRepositoryTimeline(t *testing.T) {
	db, mock, cleanup := newAffiliationRepoMock(t)
	defer cleanup()
	repo := NewAffiliationRepository(db)

	from := time.Date(1788, 5, 23, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM geographic_affiliations WHERE location_id = $1 ORDER BY effective_from ASC")).
		WithArgs("loc-1").
		WillReturnRows(affiliationRows("aff-1", from, nil))

	timeline, err := repo.Timeline(context.Background(), "loc-1")
	require.NoError(t, err)
	require.Len(t, timeline, 1)
}

func TestAffiliationRepositoryLocationsInUnit(t *testing.T) {
	db, mock, cleanup := newAffiliationRepoMock(t)
	defer cleanup()
	repo := NewAffiliationRepository(db)

	asOf := time.Date(1862, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "location_name", "location_type", "latitude", "longitude", "created_at", "updated_at", "created_by", "modified_by"}).
		AddRow("loc-1", "Charleston", "POST_OFFICE", nil, nil, now, now, "admin", "admin")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE unit_id = $1 AND effective_from <= $2 AND (effective_to IS NULL OR effective_to >= $2)")).
		WithArgs("unit-1", asOf).
		WillReturnRows(rows)

	locations, err := repo.LocationsInUnit(context.Background(), "unit-1", asOf)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Charleston", locations[0].LocationName)
}
