package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type mockAffiliationRepo struct {
	items  map[string]*models.GeographicAffiliation
	nextID int
}

func (m *mockAffiliationRepo) List(ctx context.Context, filter models.AffiliationFilter) ([]models.GeographicAffiliation, int, error) {
	var out []models.GeographicAffiliation
	for _, a := range m.items {
		if filter.LocationID != "" && a.LocationID != filter.LocationID {
			continue
		}
		if filter.OpenOnly && !a.Open() {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockAffiliationRepo) FindByID(ctx context.Context, id string) (*models.GeographicAffiliation, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAffiliationRepo) Create(ctx context.Context, affiliation *models.GeographicAffiliation) error {
	if m.items == nil {
		m.items = make(map[string]*models.GeographicAffiliation)
	}
	m.nextID++
	affiliation.ID = string(rune('a' + m.nextID - 1))
	cp := *affiliation
	m.items[affiliation.ID] = &cp
	return nil
}

func (m *mockAffiliationRepo) Close(ctx context.Context, id string, to time.Time, modifiedBy string) error {
	a := m.items[id]
	a.EffectiveTo = &to
	a.ModifiedBy = modifiedBy
	return nil
}

func (m *mockAffiliationRepo) HasOpen(ctx context.Context, locationID string) (bool, error) {
	for _, a := range m.items {
		if a.LocationID == locationID && a.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAffiliationRepo) CurrentForLocation(ctx context.Context, locationID string, asOf time.Time) ([]models.GeographicAffiliation, error) {
	var out []models.GeographicAffiliation
	for _, a := range m.items {
		if a.LocationID != locationID || a.EffectiveFrom.After(asOf) {
			continue
		}
		if a.EffectiveTo != nil && a.EffectiveTo.Before(asOf) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.After(out[j].EffectiveFrom) })
	return out, nil
}

func (m *mockAffiliationRepo) Timeline(ctx context.Context, locationID string) ([]models.GeographicAffiliation, error) {
	var out []models.GeographicAffiliation
	for _, a := range m.items {
		if a.LocationID == locationID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.Before(out[j].EffectiveFrom) })
	return out, nil
}

func (m *mockAffiliationRepo) LocationsInUnit(ctx context.Context, unitID string, asOf time.Time) ([]models.GeographicLocation, error) {
	return nil, nil
}

type mockLocationLookup struct {
	items map[string]*models.GeographicLocation
}

func (m *mockLocationLookup) FindByID(ctx context.Context, id string) (*models.GeographicLocation, error) {
	if l, ok := m.items[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockUnitLookup struct {
	items map[string]*models.AdministrativeUnit
}

func (m *mockUnitLookup) FindByID(ctx context.Context, id string) (*models.AdministrativeUnit, error) {
	if u, ok := m.items[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newAffiliationService(repo *mockAffiliationRepo) *AffiliationService {
	locations := &mockLocationLookup{items: map[string]*models.GeographicLocation{
		"sumter": {ID: "sumter", LocationName: "Fort Sumter", LocationType: models.LocationPostOffice},
	}}
	units := &mockUnitLookup{items: map[string]*models.AdministrativeUnit{
		"us":  {ID: "us", UnitName: "United States", Abbreviation: "US", UnitType: models.UnitCountry},
		"csa": {ID: "csa", UnitName: "Confederate States", Abbreviation: "CSA", UnitType: models.UnitCountry},
		"sc":  {ID: "sc", UnitName: "South Carolina", Abbreviation: "SC", UnitType: models.UnitState},
	}}
	return NewAffiliationService(repo, locations, units, validator.New(), zap.NewNop())
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestAffiliationCreateOpen(t *testing.T) {
	repo := &mockAffiliationRepo{}
	svc := newAffiliationService(repo)

	affiliation, err := svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "sc",
		EffectiveFrom: date(1803, 1, 1),
	}, "admin")
	require.NoError(t, err)
	assert.True(t, affiliation.Open())
	assert.Equal(t, "admin", affiliation.CreatedBy)
}

func TestAffiliationSecondOpenRejected(t *testing.T) {
	repo := &mockAffiliationRepo{}
	svc := newAffiliationService(repo)

	_, err := svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "us",
		EffectiveFrom: date(1803, 1, 1),
	}, "admin")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "csa",
		EffectiveFrom: date(1861, 4, 12),
	}, "admin")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAffiliationClosedIntervalAllowedAlongsideOpen(t *testing.T) {
	repo := &mockAffiliationRepo{}
	svc := newAffiliationService(repo)

	_, err := svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "us",
		EffectiveFrom: date(1865, 4, 14),
	}, "admin")
	require.NoError(t, err)

	// Backfilling a finished historical interval does not collide with the
	// open one.
	to := date(1865, 4, 14)
	_, err = svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "csa",
		EffectiveFrom: date(1861, 4, 12),
		EffectiveTo:   &to,
	}, "admin")
	require.NoError(t, err)
}

func TestAffiliationCreateRejectsInvertedInterval(t *testing.T) {
	repo := &mockAffiliationRepo{}
	svc := newAffiliationService(repo)

	to := date(1800, 1, 1)
	_, err := svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "us",
		EffectiveFrom: date(1861, 4, 12),
		EffectiveTo:   &to,
	}, "admin")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAffiliationCloseTwiceRejected(t *testing.T) {
	repo := &mockAffiliationRepo{}
	svc := newAffiliationService(repo)

	affiliation, err := svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "csa",
		EffectiveFrom: date(1861, 4, 12),
	}, "admin")
	require.NoError(t, err)

	_, err = svc.CloseAffiliation(context.Background(), affiliation.ID, CloseAffiliationRequest{
		EffectiveTo: date(1865, 4, 14),
	}, "admin")
	require.NoError(t, err)

	_, err = svc.CloseAffiliation(context.Background(), affiliation.ID, CloseAffiliationRequest{
		EffectiveTo: date(1870, 1, 1),
	}, "admin")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAffiliationCloseBeforeOpenRejected(t *testing.T) {
	repo := &mockAffiliationRepo{}
	svc := newAffiliationService(repo)

	affiliation, err := svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "csa",
		EffectiveFrom: date(1861, 4, 12),
	}, "admin")
	require.NoError(t, err)

	_, err = svc.CloseAffiliation(context.Background(), affiliation.ID, CloseAffiliationRequest{
		EffectiveTo: date(1860, 1, 1),
	}, "admin")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAffiliationTimelineAndAsOf(t *testing.T) {
	repo := &mockAffiliationRepo{}
	svc := newAffiliationService(repo)

	// Fort Sumter: US until secession, CSA during the war, US again after.
	first, err := svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "us",
		EffectiveFrom: date(1803, 1, 1),
	}, "admin")
	require.NoError(t, err)
	_, err = svc.CloseAffiliation(context.Background(), first.ID, CloseAffiliationRequest{
		EffectiveTo: date(1861, 4, 12),
	}, "admin")
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "csa",
		EffectiveFrom: date(1861, 4, 12),
	}, "admin")
	require.NoError(t, err)
	_, err = svc.CloseAffiliation(context.Background(), second.ID, CloseAffiliationRequest{
		EffectiveTo: date(1865, 4, 14),
	}, "admin")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateAffiliationRequest{
		LocationID:    "sumter",
		UnitID:        "us",
		EffectiveFrom: date(1865, 4, 14),
	}, "admin")
	require.NoError(t, err)

	timeline, err := svc.Timeline(context.Background(), "sumter")
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.Equal(t, "us", timeline[0].UnitID)
	assert.Equal(t, "csa", timeline[1].UnitID)
	assert.Equal(t, "us", timeline[2].UnitID)

	wartime, err := svc.CurrentForLocation(context.Background(), "sumter", date(1863, 7, 4))
	require.NoError(t, err)
	require.NotEmpty(t, wartime)
	assert.Equal(t, "csa", wartime[0].UnitID)
}

func TestAffiliationTimelineUnknownLocation(t *testing.T) {
	repo := &mockAffiliationRepo{}
	svc := newAffiliationService(repo)

	_, err := svc.Timeline(context.Background(), "atlantis")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
