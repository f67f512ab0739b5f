package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type mockPostmarkRepo struct {
	items   map[string]*models.Postmark
	facts   *mockPostmarkFacts
	factErr error
	nextID  int
	deleted []string
}

func (m *mockPostmarkRepo) List(ctx context.Context, filter models.PostmarkFilter) ([]models.Postmark, int, error) {
	out := make([]models.Postmark, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockPostmarkRepo) FindByID(ctx context.Context, id string) (*models.Postmark, error) {
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPostmarkRepo) ExistsByKey(ctx context.Context, key, excludeID string) (bool, error) {
	for _, p := range m.items {
		if p.PostmarkKey == key && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// CreateWithFacts mirrors the transactional insert: on a fact failure
// nothing is stored at all.
func (m *mockPostmarkRepo) CreateWithFacts(ctx context.Context, postmark *models.Postmark, colors []models.PostmarkColor, dateRanges []models.PostmarkDateRange, sizes []models.PostmarkSize, references []models.PublicationReference) error {
	if m.factErr != nil {
		return m.factErr
	}
	m.nextID++
	postmark.ID = fmt.Sprintf("pm-%d", m.nextID)
	postmark.CreatedAt = time.Now().UTC()
	postmark.UpdatedAt = postmark.CreatedAt
	if m.items == nil {
		m.items = map[string]*models.Postmark{}
	}
	cp := *postmark
	m.items[postmark.ID] = &cp
	for _, link := range colors {
		link.ID = m.facts.id("color")
		link.PostmarkID = postmark.ID
		m.facts.colors = append(m.facts.colors, link)
	}
	for _, dr := range dateRanges {
		dr.ID = m.facts.id("range")
		dr.PostmarkID = postmark.ID
		m.facts.dateRanges = append(m.facts.dateRanges, dr)
	}
	for _, size := range sizes {
		size.ID = m.facts.id("size")
		size.PostmarkID = postmark.ID
		m.facts.sizes = append(m.facts.sizes, size)
	}
	for _, ref := range references {
		ref.ID = m.facts.id("ref")
		ref.PostmarkID = postmark.ID
		m.facts.references = append(m.facts.references, ref)
	}
	return nil
}

func (m *mockPostmarkRepo) Update(ctx context.Context, postmark *models.Postmark) error {
	if _, ok := m.items[postmark.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *postmark
	m.items[postmark.ID] = &cp
	return nil
}

func (m *mockPostmarkRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockPostmarkFacts struct {
	colors     []models.PostmarkColor
	dateRanges []models.PostmarkDateRange
	sizes      []models.PostmarkSize
	valuations []models.PostmarkValuation
	references []models.PublicationReference
	nextID     int
}

func (m *mockPostmarkFacts) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockPostmarkFacts) ListColors(ctx context.Context, postmarkID string) ([]models.PostmarkColor, error) {
	out := []models.PostmarkColor{}
	for _, c := range m.colors {
		if c.PostmarkID == postmarkID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockPostmarkFacts) HasColor(ctx context.Context, postmarkID, colorID string) (bool, error) {
	for _, c := range m.colors {
		if c.PostmarkID == postmarkID && c.ColorID == colorID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPostmarkFacts) AddColor(ctx context.Context, link *models.PostmarkColor) error {
	link.ID = m.id("color")
	link.CreatedAt = time.Now().UTC()
	m.colors = append(m.colors, *link)
	return nil
}

func (m *mockPostmarkFacts) RemoveColor(ctx context.Context, postmarkID, linkID string) (int64, error) {
	for i, c := range m.colors {
		if c.PostmarkID == postmarkID && c.ID == linkID {
			m.colors = append(m.colors[:i], m.colors[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockPostmarkFacts) ListDateRanges(ctx context.Context, postmarkID string) ([]models.PostmarkDateRange, error) {
	out := []models.PostmarkDateRange{}
	for _, dr := range m.dateRanges {
		if dr.PostmarkID == postmarkID {
			out = append(out, dr)
		}
	}
	return out, nil
}

func (m *mockPostmarkFacts) AddDateRange(ctx context.Context, dr *models.PostmarkDateRange) error {
	dr.ID = m.id("range")
	dr.CreatedAt = time.Now().UTC()
	m.dateRanges = append(m.dateRanges, *dr)
	return nil
}

func (m *mockPostmarkFacts) RemoveDateRange(ctx context.Context, postmarkID, rangeID string) (int64, error) {
	for i, dr := range m.dateRanges {
		if dr.PostmarkID == postmarkID && dr.ID == rangeID {
			m.dateRanges = append(m.dateRanges[:i], m.dateRanges[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockPostmarkFacts) ListSizes(ctx context.Context, postmarkID string) ([]models.PostmarkSize, error) {
	out := []models.PostmarkSize{}
	for _, s := range m.sizes {
		if s.PostmarkID == postmarkID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockPostmarkFacts) AddSize(ctx context.Context, size *models.PostmarkSize) error {
	size.ID = m.id("size")
	size.CreatedAt = time.Now().UTC()
	m.sizes = append(m.sizes, *size)
	return nil
}

func (m *mockPostmarkFacts) RemoveSize(ctx context.Context, postmarkID, sizeID string) (int64, error) {
	for i, s := range m.sizes {
		if s.PostmarkID == postmarkID && s.ID == sizeID {
			m.sizes = append(m.sizes[:i], m.sizes[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockPostmarkFacts) ListValuations(ctx context.Context, postmarkID string) ([]models.PostmarkValuation, error) {
	out := []models.PostmarkValuation{}
	for _, v := range m.valuations {
		if v.PostmarkID == postmarkID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockPostmarkFacts) AddValuation(ctx context.Context, v *models.PostmarkValuation) error {
	v.ID = m.id("valuation")
	v.CreatedAt = time.Now().UTC()
	m.valuations = append(m.valuations, *v)
	return nil
}

func (m *mockPostmarkFacts) RemoveValuation(ctx context.Context, postmarkID, valuationID string) (int64, error) {
	for i, v := range m.valuations {
		if v.PostmarkID == postmarkID && v.ID == valuationID {
			m.valuations = append(m.valuations[:i], m.valuations[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockPostmarkFacts) ListReferences(ctx context.Context, postmarkID string) ([]models.PublicationReference, error) {
	out := []models.PublicationReference{}
	for _, r := range m.references {
		if r.PostmarkID == postmarkID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockPostmarkFacts) AddReference(ctx context.Context, ref *models.PublicationReference) error {
	ref.ID = m.id("ref")
	ref.CreatedAt = time.Now().UTC()
	m.references = append(m.references, *ref)
	return nil
}

func (m *mockPostmarkFacts) RemoveReference(ctx context.Context, postmarkID, refID string) (int64, error) {
	for i, r := range m.references {
		if r.PostmarkID == postmarkID && r.ID == refID {
			m.references = append(m.references[:i], m.references[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type mockPostmarkImages struct {
	images []models.PostmarkImage
}

func (m *mockPostmarkImages) ListPostmarkImages(ctx context.Context, postmarkID string, approvedOnly bool) ([]models.PostmarkImage, error) {
	out := []models.PostmarkImage{}
	for _, img := range m.images {
		if img.PostmarkID != postmarkID {
			continue
		}
		if approvedOnly && img.Status != models.ImageApproved {
			continue
		}
		out = append(out, img)
	}
	return out, nil
}

type mockReferenceLookup struct {
	items map[models.ReferenceKind]map[string]*models.ReferenceItem
}

func (m *mockReferenceLookup) FindByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceItem, error) {
	if item, ok := m.items[kind][id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockColorLookup struct {
	items map[string]*models.Color
}

func (m *mockColorLookup) FindByID(ctx context.Context, id string) (*models.Color, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockPublicationLookup struct {
	items map[string]*models.Publication
}

func (m *mockPublicationLookup) FindByID(ctx context.Context, id string) (*models.Publication, error) {
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newPostmarkFixture() (*PostmarkService, *mockPostmarkRepo, *mockPostmarkFacts) {
	facts := &mockPostmarkFacts{}
	repo := &mockPostmarkRepo{items: map[string]*models.Postmark{}, facts: facts}
	images := &mockPostmarkImages{}
	locations := &mockLocationLookup{items: map[string]*models.GeographicLocation{
		"charleston": {ID: "charleston", LocationName: "Charleston", LocationType: models.LocationPostOffice},
	}}
	references := &mockReferenceLookup{items: map[models.ReferenceKind]map[string]*models.ReferenceItem{
		models.KindShape:      {"circle": {ID: "circle", Name: "Circle"}},
		models.KindLettering:  {"serif": {ID: "serif", Name: "Serif"}},
		models.KindFraming:    {"single": {ID: "single", Name: "Single ring"}},
		models.KindDateFormat: {"dmy": {ID: "dmy", Name: "Day Month Year"}},
	}}
	colors := &mockColorLookup{items: map[string]*models.Color{
		"black": {ID: "black", ColorName: "Black", HexValue: "#000000"},
		"red":   {ID: "red", ColorName: "Red", HexValue: "#BB0000"},
	}}
	publications := &mockPublicationLookup{items: map[string]*models.Publication{
		"asc": {ID: "asc", Title: "American Stampless Cover Catalog"},
	}}
	svc := NewPostmarkService(repo, facts, images, locations, references, colors, publications, validator.New(), zap.NewNop())
	return svc, repo, facts
}

func validCreateRequest() CreatePostmarkRequest {
	return CreatePostmarkRequest{
		PostmarkKey:      "SC-CHS-001",
		LocationID:       "charleston",
		ShapeID:          "circle",
		LetteringStyleID: "serif",
		FramingStyleID:   "single",
		DateFormatID:     "dmy",
		RateLocation:     "CENTER",
		RateValue:        "5",
	}
}

func TestPostmarkCreateRoundTripsNestedFacts(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	req := validCreateRequest()
	req.ColorIDs = []string{"black", "red"}
	req.DatesSeen = []DateRangeInput{{EarliestSeen: date(1850, 3, 1), LatestSeen: date(1855, 11, 30)}}
	req.Sizes = []SizeInput{{Width: 28.5, Height: 28.5, SizeNotes: "double strike"}}
	req.References = []ReferenceInput{{PublicationID: "asc", PublishedID: "SC-120", ReferenceLocation: "p. 311"}}

	detail, err := svc.Create(context.Background(), req, "maintainer")
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.Equal(t, "SC-CHS-001", detail.PostmarkKey)
	assert.Equal(t, "maintainer", detail.CreatedBy)
	require.NotNil(t, detail.Location)
	assert.Equal(t, "Charleston", detail.Location.LocationName)

	require.Len(t, detail.Colors, 2)
	require.Len(t, detail.DatesSeen, 1)
	assert.Equal(t, date(1850, 3, 1), detail.DatesSeen[0].EarliestSeen)
	require.Len(t, detail.Sizes, 1)
	assert.Equal(t, 28.5, detail.Sizes[0].Width)
	assert.Equal(t, "double strike", detail.Sizes[0].SizeNotes)
	require.Len(t, detail.References, 1)
	assert.Equal(t, "SC-120", detail.References[0].PublishedID)
}

func TestPostmarkCreateDuplicateKey(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	_, err := svc.Create(context.Background(), validCreateRequest(), "maintainer")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validCreateRequest(), "maintainer")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPostmarkCreateUnknownLookups(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	cases := []struct {
		name   string
		mutate func(*CreatePostmarkRequest)
	}{
		{"location", func(r *CreatePostmarkRequest) { r.LocationID = "atlantis" }},
		{"shape", func(r *CreatePostmarkRequest) { r.ShapeID = "hexagon" }},
		{"color", func(r *CreatePostmarkRequest) { r.ColorIDs = []string{"magenta"} }},
		{"publication", func(r *CreatePostmarkRequest) {
			r.References = []ReferenceInput{{PublicationID: "unknown"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req, "maintainer")
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
}

func TestPostmarkCreateInvertedDateRange(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	req := validCreateRequest()
	req.DatesSeen = []DateRangeInput{{EarliestSeen: date(1860, 1, 1), LatestSeen: date(1850, 1, 1)}}

	_, err := svc.Create(context.Background(), req, "maintainer")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPostmarkCreateFailedFactLeavesNothing(t *testing.T) {
	svc, repo, facts := newPostmarkFixture()
	repo.factErr = fmt.Errorf("insert postmark date range: disk full")

	req := validCreateRequest()
	req.ColorIDs = []string{"black"}
	req.DatesSeen = []DateRangeInput{{EarliestSeen: date(1850, 3, 1), LatestSeen: date(1855, 11, 30)}}

	_, err := svc.Create(context.Background(), req, "maintainer")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)

	// The write is one transaction: no half-created postmark, no stray facts.
	assert.Empty(t, repo.items)
	assert.Empty(t, facts.colors)
	assert.Empty(t, facts.dateRanges)
}

func TestPostmarkUpdateKeepsKeyOnSelf(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	detail, err := svc.Create(context.Background(), validCreateRequest(), "maintainer")
	require.NoError(t, err)

	// Re-submitting the record's own key is not a conflict.
	updated, err := svc.Update(context.Background(), detail.ID, UpdatePostmarkRequest{
		PostmarkKey:      "SC-CHS-001",
		LocationID:       "charleston",
		ShapeID:          "circle",
		LetteringStyleID: "serif",
		FramingStyleID:   "single",
		DateFormatID:     "dmy",
		RateLocation:     "TOP",
		IsManuscript:     true,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RateTop, updated.RateLocation)
	assert.True(t, updated.IsManuscript)
	assert.Equal(t, "admin", updated.ModifiedBy)
}

func TestPostmarkAddColorDuplicate(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	detail, err := svc.Create(context.Background(), validCreateRequest(), "maintainer")
	require.NoError(t, err)

	link, err := svc.AddColor(context.Background(), detail.ID, "black", "maintainer")
	require.NoError(t, err)
	assert.Equal(t, "Black", link.ColorName)

	_, err = svc.AddColor(context.Background(), detail.ID, "black", "maintainer")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPostmarkRemoveFactNotFound(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	detail, err := svc.Create(context.Background(), validCreateRequest(), "maintainer")
	require.NoError(t, err)

	cases := []struct {
		name   string
		remove func() error
	}{
		{"color", func() error { return svc.RemoveColor(context.Background(), detail.ID, "missing") }},
		{"date range", func() error { return svc.RemoveDateRange(context.Background(), detail.ID, "missing") }},
		{"size", func() error { return svc.RemoveSize(context.Background(), detail.ID, "missing") }},
		{"valuation", func() error { return svc.RemoveValuation(context.Background(), detail.ID, "missing") }},
		{"reference", func() error { return svc.RemoveReference(context.Background(), detail.ID, "missing") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.remove()
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
		})
	}
}

func TestPostmarkRemoveFactUnknownPostmark(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	err := svc.RemoveSize(context.Background(), "missing", "any")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPostmarkAddValuationDefaults(t *testing.T) {
	svc, _, facts := newPostmarkFixture()

	detail, err := svc.Create(context.Background(), validCreateRequest(), "maintainer")
	require.NoError(t, err)

	before := time.Now().UTC()
	valuation, err := svc.AddValuation(context.Background(), detail.ID, AddValuationRequest{EstimatedValue: 125.0}, "collector")
	require.NoError(t, err)

	assert.Equal(t, "collector", valuation.ValuedByUserID)
	assert.Equal(t, "collector", valuation.CreatedBy)
	assert.False(t, valuation.ValuationDate.Before(before))
	require.Len(t, facts.valuations, 1)

	// An explicit date is kept as given.
	when := date(2020, 6, 15)
	valuation, err = svc.AddValuation(context.Background(), detail.ID, AddValuationRequest{
		EstimatedValue: 90.0,
		ValuationDate:  &when,
	}, "collector")
	require.NoError(t, err)
	assert.Equal(t, when, valuation.ValuationDate)
}

func TestPostmarkAddValuationRejectsNonPositive(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	detail, err := svc.Create(context.Background(), validCreateRequest(), "maintainer")
	require.NoError(t, err)

	_, err = svc.AddValuation(context.Background(), detail.ID, AddValuationRequest{EstimatedValue: -5}, "collector")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPostmarkGetHidesPendingImages(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	detail, err := svc.Create(context.Background(), validCreateRequest(), "maintainer")
	require.NoError(t, err)

	images := svc.images.(*mockPostmarkImages)
	images.images = []models.PostmarkImage{
		{ID: "img-1", PostmarkID: detail.ID, Status: models.ImageApproved},
		{ID: "img-2", PostmarkID: detail.ID, Status: models.ImagePending},
	}

	public, err := svc.Get(context.Background(), detail.ID, false)
	require.NoError(t, err)
	require.Len(t, public.Images, 1)
	assert.Equal(t, "img-1", public.Images[0].ID)

	moderator, err := svc.Get(context.Background(), detail.ID, true)
	require.NoError(t, err)
	assert.Len(t, moderator.Images, 2)
}

func TestPostmarkDeleteNotFound(t *testing.T) {
	svc, _, _ := newPostmarkFixture()

	err := svc.Delete(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
