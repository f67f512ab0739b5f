package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type mockPostcoverRepo struct {
	covers     map[string]*models.Postcover
	placements []models.PostcoverPlacement
	nextID     int
}

func newMockPostcoverRepo() *mockPostcoverRepo {
	return &mockPostcoverRepo{covers: map[string]*models.Postcover{}}
}

func (m *mockPostcoverRepo) List(ctx context.Context, filter models.PostcoverFilter) ([]models.Postcover, int, error) {
	out := []models.Postcover{}
	for _, c := range m.covers {
		if filter.OwnerUserID != "" && c.OwnerUserID != filter.OwnerUserID {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockPostcoverRepo) FindByID(ctx context.Context, id string) (*models.Postcover, error) {
	if c, ok := m.covers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPostcoverRepo) ExistsByKey(ctx context.Context, ownerID, key, excludeID string) (bool, error) {
	for _, c := range m.covers {
		if c.OwnerUserID == ownerID && c.PostcoverKey == key && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPostcoverRepo) Create(ctx context.Context, cover *models.Postcover) error {
	m.nextID++
	cover.ID = fmt.Sprintf("pc-%d", m.nextID)
	cp := *cover
	m.covers[cover.ID] = &cp
	return nil
}

func (m *mockPostcoverRepo) Update(ctx context.Context, cover *models.Postcover) error {
	if _, ok := m.covers[cover.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *cover
	m.covers[cover.ID] = &cp
	return nil
}

func (m *mockPostcoverRepo) Delete(ctx context.Context, id string) error {
	delete(m.covers, id)
	return nil
}

func (m *mockPostcoverRepo) ListPlacements(ctx context.Context, postcoverID string) ([]models.PostcoverPlacement, error) {
	out := []models.PostcoverPlacement{}
	for _, p := range m.placements {
		if p.PostcoverID == postcoverID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPostcoverRepo) AddPlacement(ctx context.Context, placement *models.PostcoverPlacement) error {
	m.nextID++
	placement.ID = fmt.Sprintf("pl-%d", m.nextID)
	m.placements = append(m.placements, *placement)
	return nil
}

func (m *mockPostcoverRepo) RemovePlacement(ctx context.Context, postcoverID, placementID string) (int64, error) {
	for i, p := range m.placements {
		if p.PostcoverID == postcoverID && p.ID == placementID {
			m.placements = append(m.placements[:i], m.placements[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func newPostcoverFixture() (*PostcoverService, *mockPostcoverRepo) {
	repo := newMockPostcoverRepo()
	images := newMockImageRepo()
	postmarks := &mockPostmarkRepo{items: map[string]*models.Postmark{
		"pm-1": {ID: "pm-1", PostmarkKey: "SC-CHS-001"},
	}}
	svc := NewPostcoverService(repo, images, postmarks, nil, zap.NewNop())
	return svc, repo
}

func TestPostcoverCreateScopedKey(t *testing.T) {
	svc, _ := newPostcoverFixture()

	cover, err := svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "COVER-1"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", cover.OwnerUserID)
	assert.Equal(t, "alice", cover.CreatedBy)

	// Same key in another collection is fine.
	_, err = svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "COVER-1"}, "bob")
	require.NoError(t, err)

	// Same key in the same collection is not.
	_, err = svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "COVER-1"}, "alice")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPostcoverMyCollectionScoping(t *testing.T) {
	svc, _ := newPostcoverFixture()

	_, err := svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "A-1"}, "alice")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "A-2"}, "alice")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "B-1"}, "bob")
	require.NoError(t, err)

	mine, pagination, err := svc.MyCollection(context.Background(), "alice", models.PostcoverFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, 2, pagination.TotalCount)
	for _, c := range mine {
		assert.Equal(t, "alice", c.OwnerUserID)
	}
}

func TestPostcoverUpdateOwnership(t *testing.T) {
	svc, _ := newPostcoverFixture()

	cover, err := svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "COVER-1"}, "alice")
	require.NoError(t, err)

	req := UpdatePostcoverRequest{PostcoverKey: "COVER-1", Description: "Blockade-run cover"}

	_, err = svc.Update(context.Background(), cover.ID, req, "bob", false)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	// The owner may update, and so may an admin.
	updated, err := svc.Update(context.Background(), cover.ID, req, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, "Blockade-run cover", updated.Description)

	_, err = svc.Update(context.Background(), cover.ID, req, "moderator", true)
	require.NoError(t, err)
}

func TestPostcoverDeleteForbiddenForStranger(t *testing.T) {
	svc, repo := newPostcoverFixture()

	cover, err := svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "COVER-1"}, "alice")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), cover.ID, "bob", false)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.Delete(context.Background(), cover.ID, "alice", false))
	assert.Empty(t, repo.covers)
}

func TestPostcoverPlacements(t *testing.T) {
	svc, _ := newPostcoverFixture()

	cover, err := svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "COVER-1"}, "alice")
	require.NoError(t, err)

	placement, err := svc.AddPlacement(context.Background(), cover.ID, AddPlacementRequest{
		PostmarkID:    "pm-1",
		PositionOrder: 1,
		Location:      "FRONT_UPPER_RIGHT",
	}, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, models.PlacementFrontUpperRt, placement.Location)

	detail, err := svc.Get(context.Background(), cover.ID)
	require.NoError(t, err)
	require.Len(t, detail.Placements, 1)

	require.NoError(t, svc.RemovePlacement(context.Background(), cover.ID, placement.ID, "alice", false))

	err = svc.RemovePlacement(context.Background(), cover.ID, placement.ID, "alice", false)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPostcoverPlacementUnknownPostmark(t *testing.T) {
	svc, _ := newPostcoverFixture()

	cover, err := svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "COVER-1"}, "alice")
	require.NoError(t, err)

	_, err = svc.AddPlacement(context.Background(), cover.ID, AddPlacementRequest{
		PostmarkID: "missing",
		Location:   "FRONT",
	}, "alice", false)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPostcoverOwnsAdminBypass(t *testing.T) {
	svc, _ := newPostcoverFixture()

	cover, err := svc.Create(context.Background(), CreatePostcoverRequest{PostcoverKey: "COVER-1"}, "alice")
	require.NoError(t, err)

	require.Error(t, svc.Owns(context.Background(), cover.ID, "bob", false))
	require.NoError(t, svc.Owns(context.Background(), cover.ID, "bob", true))
	require.NoError(t, svc.Owns(context.Background(), cover.ID, "alice", false))
}
