package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type mockUnitRepo struct {
	items        map[string]*models.AdministrativeUnit
	nameHistory  []models.UnitNameHistory
	history      []models.UnitHistory
	affiliations map[string]int
	deleted      []string
}

func (m *mockUnitRepo) List(ctx context.Context, filter models.UnitFilter) ([]models.AdministrativeUnit, int, error) {
	out := make([]models.AdministrativeUnit, 0, len(m.items))
	for _, u := range m.items {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUnitRepo) FindByID(ctx context.Context, id string) (*models.AdministrativeUnit, error) {
	if u, ok := m.items[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUnitRepo) ListChildren(ctx context.Context, parentID string) ([]models.AdministrativeUnit, error) {
	var out []models.AdministrativeUnit
	for _, u := range m.items {
		if u.ParentID != nil && *u.ParentID == parentID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUnitRepo) Create(ctx context.Context, unit *models.AdministrativeUnit) error {
	if m.items == nil {
		m.items = make(map[string]*models.AdministrativeUnit)
	}
	if unit.ID == "" {
		unit.ID = "generated"
	}
	cp := *unit
	m.items[unit.ID] = &cp
	return nil
}

func (m *mockUnitRepo) Update(ctx context.Context, unit *models.AdministrativeUnit) error {
	cp := *unit
	m.items[unit.ID] = &cp
	return nil
}

func (m *mockUnitRepo) CountChildren(ctx context.Context, id string) (int, error) {
	n := 0
	for _, u := range m.items {
		if u.ParentID != nil && *u.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (m *mockUnitRepo) CountAffiliations(ctx context.Context, id string) (int, error) {
	return m.affiliations[id], nil
}

func (m *mockUnitRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUnitRepo) AppendNameHistory(ctx context.Context, entry *models.UnitNameHistory) error {
	m.nameHistory = append(m.nameHistory, *entry)
	return nil
}

func (m *mockUnitRepo) AppendHistory(ctx context.Context, entry *models.UnitHistory) error {
	m.history = append(m.history, *entry)
	return nil
}

func (m *mockUnitRepo) ListNameHistory(ctx context.Context, unitID string) ([]models.UnitNameHistory, error) {
	var out []models.UnitNameHistory
	for _, e := range m.nameHistory {
		if e.UnitID == unitID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockUnitRepo) ListHistory(ctx context.Context, unitID string) ([]models.UnitHistory, error) {
	var out []models.UnitHistory
	for _, e := range m.history {
		if e.UnitID == unitID {
			out = append(out, e)
		}
	}
	return out, nil
}

func strptr(s string) *string { return &s }

// us / california / sacramento form a three-level chain.
func newUnitChainRepo() *mockUnitRepo {
	return &mockUnitRepo{
		items: map[string]*models.AdministrativeUnit{
			"us": {ID: "us", UnitName: "United States", Abbreviation: "US", UnitType: models.UnitCountry, HierarchyLevel: 1, IsActive: true},
			"ca": {ID: "ca", ParentID: strptr("us"), UnitName: "California", Abbreviation: "CA", UnitType: models.UnitState, HierarchyLevel: 2, IsActive: true},
			"sac": {ID: "sac", ParentID: strptr("ca"), UnitName: "Sacramento County", Abbreviation: "SAC", UnitType: models.UnitCounty, HierarchyLevel: 3, IsActive: true},
		},
	}
}

func TestUnitServiceCreateDerivesLevelFromParent(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	unit, err := svc.Create(context.Background(), CreateUnitRequest{
		ParentID:     strptr("ca"),
		UnitName:     "Yolo County",
		Abbreviation: "YOL",
		UnitType:     "COUNTY",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 3, unit.HierarchyLevel)
	assert.Equal(t, "admin", unit.CreatedBy)
}

func TestUnitServiceCreateCountryIsLevelOne(t *testing.T) {
	repo := &mockUnitRepo{}
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	unit, err := svc.Create(context.Background(), CreateUnitRequest{
		UnitName:     "Canada",
		Abbreviation: "CAN",
		UnitType:     "COUNTRY",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, unit.HierarchyLevel)
	assert.Nil(t, unit.ParentID)
}

func TestUnitServiceUpdateRejectsSelfParent(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "ca", UpdateUnitRequest{
		ParentID:     strptr("ca"),
		UnitName:     "California",
		Abbreviation: "CA",
		UnitType:     "STATE",
	}, "admin")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrHierarchyCycle.Code, appErr.Code)
}

func TestUnitServiceUpdateRejectsDescendantParent(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	// US under California would close the loop.
	_, err := svc.Update(context.Background(), "us", UpdateUnitRequest{
		ParentID:     strptr("ca"),
		UnitName:     "United States",
		Abbreviation: "US",
		UnitType:     "COUNTRY",
	}, "admin")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrHierarchyCycle.Code, appErr.Code)
}

func TestUnitServiceUpdateRenameRecordsHistory(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	effective := time.Date(1850, 9, 9, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Update(context.Background(), "ca", UpdateUnitRequest{
		ParentID:     strptr("us"),
		UnitName:     "State of California",
		Abbreviation: "CA",
		UnitType:     "STATE",
		EffectiveOn:  &effective,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "State of California", updated.UnitName)

	require.Len(t, repo.nameHistory, 1)
	assert.Equal(t, "California", repo.nameHistory[0].HistoricalName)
	require.NotNil(t, repo.nameHistory[0].EffectiveTo)
	assert.Equal(t, effective, *repo.nameHistory[0].EffectiveTo)

	require.Len(t, repo.history, 1)
	assert.Equal(t, models.ChangeRenamed, repo.history[0].ChangeReason)
}

func TestUnitServiceUpdateNoChangeNoHistory(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "ca", UpdateUnitRequest{
		ParentID:     strptr("us"),
		UnitName:     "California",
		Abbreviation: "CA",
		UnitType:     "STATE",
	}, "admin")
	require.NoError(t, err)
	assert.Empty(t, repo.nameHistory)
	assert.Empty(t, repo.history)
}

func TestUnitServiceAncestorsExcludeSelf(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	ancestors, err := svc.Ancestors(context.Background(), "sac")
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, "ca", ancestors[0].ID)
	assert.Equal(t, "us", ancestors[1].ID)
}

func TestUnitServiceDescendants(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	descendants, err := svc.Descendants(context.Background(), "us")
	require.NoError(t, err)
	assert.Len(t, descendants, 2)
}

func TestUnitServiceDeleteProtectedByChildren(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "us")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrReferenceInUse.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestUnitServiceDeleteProtectedByAffiliations(t *testing.T) {
	repo := newUnitChainRepo()
	repo.affiliations = map[string]int{"sac": 3}
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "sac")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrReferenceInUse.Code, appErr.Code)
}

func TestUnitServiceDeleteLeaf(t *testing.T) {
	repo := newUnitChainRepo()
	svc := NewUnitService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "sac"))
	assert.Equal(t, []string{"sac"}, repo.deleted)
}
