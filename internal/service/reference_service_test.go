package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type mockReferenceRepo struct {
	items     map[models.ReferenceKind]map[string]*models.ReferenceItem
	usage     map[string]int
	listCalls int
	nextID    int
}

func newMockReferenceRepo() *mockReferenceRepo {
	return &mockReferenceRepo{
		items: map[models.ReferenceKind]map[string]*models.ReferenceItem{},
		usage: map[string]int{},
	}
}

func (m *mockReferenceRepo) List(ctx context.Context, kind models.ReferenceKind, filter models.ReferenceFilter) ([]models.ReferenceItem, int, error) {
	m.listCalls++
	out := []models.ReferenceItem{}
	for _, item := range m.items[kind] {
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *mockReferenceRepo) FindByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceItem, error) {
	if item, ok := m.items[kind][id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReferenceRepo) ExistsByName(ctx context.Context, kind models.ReferenceKind, name, excludeID string) (bool, error) {
	for _, item := range m.items[kind] {
		if item.Name == name && item.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReferenceRepo) Create(ctx context.Context, kind models.ReferenceKind, item *models.ReferenceItem) error {
	m.nextID++
	item.ID = fmt.Sprintf("ref-%d", m.nextID)
	if m.items[kind] == nil {
		m.items[kind] = map[string]*models.ReferenceItem{}
	}
	cp := *item
	m.items[kind][item.ID] = &cp
	return nil
}

func (m *mockReferenceRepo) Update(ctx context.Context, kind models.ReferenceKind, item *models.ReferenceItem) error {
	if _, ok := m.items[kind][item.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *item
	m.items[kind][item.ID] = &cp
	return nil
}

func (m *mockReferenceRepo) CountUsage(ctx context.Context, kind models.ReferenceKind, id string) (int, error) {
	return m.usage[id], nil
}

func (m *mockReferenceRepo) Delete(ctx context.Context, kind models.ReferenceKind, id string) error {
	delete(m.items[kind], id)
	return nil
}

// fakeCacheStore round-trips values through JSON the way the redis-backed
// repository does, so type fidelity problems surface in tests.
type fakeCacheStore struct {
	entries map[string][]byte
}

func (f *fakeCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if f.entries == nil {
		f.entries = map[string][]byte{}
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCacheStore) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

func newReferenceFixture(store CacheRepository) (*ReferenceService, *mockReferenceRepo) {
	repo := newMockReferenceRepo()
	var cacheSvc *CacheService
	if store != nil {
		cacheSvc = NewCacheService(store, nil, time.Minute, zap.NewNop(), true)
	}
	svc := NewReferenceService(repo, cacheSvc, time.Minute, nil, zap.NewNop())
	return svc, repo
}

func TestReferenceCreateAndGet(t *testing.T) {
	svc, _ := newReferenceFixture(nil)

	item, err := svc.Create(context.Background(), models.KindShape, ReferenceItemRequest{Name: "Double circle", Description: "Two concentric rings"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", item.CreatedBy)

	got, err := svc.Get(context.Background(), models.KindShape, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Double circle", got.Name)

	// Kinds do not share rows.
	_, err = svc.Get(context.Background(), models.KindLettering, item.ID)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestReferenceNameUniquePerKind(t *testing.T) {
	svc, _ := newReferenceFixture(nil)

	_, err := svc.Create(context.Background(), models.KindShape, ReferenceItemRequest{Name: "Oval"}, "admin")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), models.KindShape, ReferenceItemRequest{Name: "Oval"}, "admin")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	// The same name under a different kind is allowed.
	_, err = svc.Create(context.Background(), models.KindFraming, ReferenceItemRequest{Name: "Oval"}, "admin")
	require.NoError(t, err)
}

func TestReferenceUpdateKeepsOwnName(t *testing.T) {
	svc, _ := newReferenceFixture(nil)

	item, err := svc.Create(context.Background(), models.KindDateFormat, ReferenceItemRequest{Name: "Month Day"}, "admin")
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), models.KindDateFormat, item.ID, ReferenceItemRequest{Name: "Month Day", Description: "e.g. JUL 4"}, "maintainer")
	require.NoError(t, err)
	assert.Equal(t, "e.g. JUL 4", updated.Description)
	assert.Equal(t, "maintainer", updated.ModifiedBy)
}

func TestReferenceDeleteProtectedByUsage(t *testing.T) {
	svc, repo := newReferenceFixture(nil)

	item, err := svc.Create(context.Background(), models.KindShape, ReferenceItemRequest{Name: "Circle"}, "admin")
	require.NoError(t, err)
	repo.usage[item.ID] = 12

	err = svc.Delete(context.Background(), models.KindShape, item.ID)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrReferenceInUse.Code, appErr.Code)

	repo.usage[item.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), models.KindShape, item.ID))
}

func TestReferenceListServedFromCache(t *testing.T) {
	store := &fakeCacheStore{}
	svc, repo := newReferenceFixture(store)

	_, err := svc.Create(context.Background(), models.KindShape, ReferenceItemRequest{Name: "Circle"}, "admin")
	require.NoError(t, err)

	repo.listCalls = 0
	items, pagination, cacheHit, err := svc.List(context.Background(), models.KindShape, models.ReferenceFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, repo.listCalls)

	// Second read is a cache hit and never touches the repository.
	items, _, cacheHit, err = svc.List(context.Background(), models.KindShape, models.ReferenceFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Circle", items[0].Name)
	assert.True(t, cacheHit)
	assert.Equal(t, 1, repo.listCalls)
}

func TestReferenceWriteInvalidatesCache(t *testing.T) {
	store := &fakeCacheStore{}
	svc, repo := newReferenceFixture(store)

	_, err := svc.Create(context.Background(), models.KindShape, ReferenceItemRequest{Name: "Circle"}, "admin")
	require.NoError(t, err)

	_, _, _, err = svc.List(context.Background(), models.KindShape, models.ReferenceFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, store.entries)

	_, err = svc.Create(context.Background(), models.KindShape, ReferenceItemRequest{Name: "Oval"}, "admin")
	require.NoError(t, err)
	assert.Empty(t, store.entries)

	repo.listCalls = 0
	items, _, _, err := svc.List(context.Background(), models.KindShape, models.ReferenceFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, repo.listCalls)
}

func TestReferenceCacheMissFallsThrough(t *testing.T) {
	store := &fakeCacheStore{}
	svc, repo := newReferenceFixture(store)

	_, err := svc.Create(context.Background(), models.KindLettering, ReferenceItemRequest{Name: "Italic"}, "admin")
	require.NoError(t, err)

	repo.listCalls = 0
	_, _, cacheHit, err := svc.List(context.Background(), models.KindLettering, models.ReferenceFilter{Search: "ital"})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, repo.listCalls)
}
