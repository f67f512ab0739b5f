package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type postmarkRepository interface {
	List(ctx context.Context, filter models.PostmarkFilter) ([]models.Postmark, int, error)
	FindByID(ctx context.Context, id string) (*models.Postmark, error)
	ExistsByKey(ctx context.Context, key, excludeID string) (bool, error)
	CreateWithFacts(ctx context.Context, postmark *models.Postmark, colors []models.PostmarkColor, dateRanges []models.PostmarkDateRange, sizes []models.PostmarkSize, references []models.PublicationReference) error
	Update(ctx context.Context, postmark *models.Postmark) error
	Delete(ctx context.Context, id string) error
}

type postmarkFactRepository interface {
	ListColors(ctx context.Context, postmarkID string) ([]models.PostmarkColor, error)
	HasColor(ctx context.Context, postmarkID, colorID string) (bool, error)
	AddColor(ctx context.Context, link *models.PostmarkColor) error
	RemoveColor(ctx context.Context, postmarkID, linkID string) (int64, error)
	ListDateRanges(ctx context.Context, postmarkID string) ([]models.PostmarkDateRange, error)
	AddDateRange(ctx context.Context, dr *models.PostmarkDateRange) error
	RemoveDateRange(ctx context.Context, postmarkID, rangeID string) (int64, error)
	ListSizes(ctx context.Context, postmarkID string) ([]models.PostmarkSize, error)
	AddSize(ctx context.Context, size *models.PostmarkSize) error
	RemoveSize(ctx context.Context, postmarkID, sizeID string) (int64, error)
	ListValuations(ctx context.Context, postmarkID string) ([]models.PostmarkValuation, error)
	AddValuation(ctx context.Context, v *models.PostmarkValuation) error
	RemoveValuation(ctx context.Context, postmarkID, valuationID string) (int64, error)
	ListReferences(ctx context.Context, postmarkID string) ([]models.PublicationReference, error)
	AddReference(ctx context.Context, ref *models.PublicationReference) error
	RemoveReference(ctx context.Context, postmarkID, refID string) (int64, error)
}

type postmarkImageLister interface {
	ListPostmarkImages(ctx context.Context, postmarkID string, approvedOnly bool) ([]models.PostmarkImage, error)
}

type postmarkLocationLookup interface {
	FindByID(ctx context.Context, id string) (*models.GeographicLocation, error)
}

type postmarkReferenceLookup interface {
	FindByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceItem, error)
}

type postmarkColorLookup interface {
	FindByID(ctx context.Context, id string) (*models.Color, error)
}

type postmarkPublicationLookup interface {
	FindByID(ctx context.Context, id string) (*models.Publication, error)
}

// DateRangeInput is a nested observed date range on postmark creation.
type DateRangeInput struct {
	EarliestSeen time.Time `json:"earliest_seen" validate:"required"`
	LatestSeen   time.Time `json:"latest_seen" validate:"required"`
}

// SizeInput is a nested measured size on postmark creation.
type SizeInput struct {
	Width     float64 `json:"width" validate:"required,gt=0"`
	Height    float64 `json:"height" validate:"required,gt=0"`
	SizeNotes string  `json:"size_notes"`
}

// ReferenceInput is a nested publication reference on postmark creation.
type ReferenceInput struct {
	PublicationID     string `json:"publication_id" validate:"required"`
	PublishedID       string `json:"published_id"`
	ReferenceLocation string `json:"reference_location"`
}

// CreatePostmarkRequest captures a catalog postmark with its nested child
// facts. Child facts round-trip: whatever is submitted comes back on the
// detail read.
type CreatePostmarkRequest struct {
	PostmarkKey          string           `json:"postmark_key" validate:"required,max=50"`
	LocationID           string           `json:"location_id" validate:"required"`
	ShapeID              string           `json:"shape_id" validate:"required"`
	LetteringStyleID     string           `json:"lettering_style_id" validate:"required"`
	FramingStyleID       string           `json:"framing_style_id" validate:"required"`
	DateFormatID         string           `json:"date_format_id" validate:"required"`
	RateLocation         string           `json:"rate_location" validate:"required,oneof=TOP BOTTOM LEFT RIGHT CENTER NONE"`
	RateValue            string           `json:"rate_value"`
	Condition            *string          `json:"condition" validate:"omitempty,oneof=VERY_FINE FINE VERY_GOOD POOR"`
	IsManuscript         bool             `json:"is_manuscript"`
	OtherCharacteristics string           `json:"other_characteristics"`
	ColorIDs             []string         `json:"color_ids"`
	DatesSeen            []DateRangeInput `json:"dates_seen" validate:"dive"`
	Sizes                []SizeInput      `json:"sizes" validate:"dive"`
	References           []ReferenceInput `json:"publication_references" validate:"dive"`
}

// UpdatePostmarkRequest modifies scalar postmark fields. Child facts are
// managed through their own subresource operations.
type UpdatePostmarkRequest struct {
	PostmarkKey          string  `json:"postmark_key" validate:"required,max=50"`
	LocationID           string  `json:"location_id" validate:"required"`
	ShapeID              string  `json:"shape_id" validate:"required"`
	LetteringStyleID     string  `json:"lettering_style_id" validate:"required"`
	FramingStyleID       string  `json:"framing_style_id" validate:"required"`
	DateFormatID         string  `json:"date_format_id" validate:"required"`
	RateLocation         string  `json:"rate_location" validate:"required,oneof=TOP BOTTOM LEFT RIGHT CENTER NONE"`
	RateValue            string  `json:"rate_value"`
	Condition            *string `json:"condition" validate:"omitempty,oneof=VERY_FINE FINE VERY_GOOD POOR"`
	IsManuscript         bool    `json:"is_manuscript"`
	OtherCharacteristics string  `json:"other_characteristics"`
}

// AddValuationRequest records a dated value estimate.
type AddValuationRequest struct {
	EstimatedValue float64    `json:"estimated_value" validate:"required,gt=0"`
	ValuationDate  *time.Time `json:"valuation_date"`
}

// PostmarkService handles the catalog's primary records and their child
// facts.
type PostmarkService struct {
	repo         postmarkRepository
	facts        postmarkFactRepository
	images       postmarkImageLister
	locations    postmarkLocationLookup
	references   postmarkReferenceLookup
	colors       postmarkColorLookup
	publications postmarkPublicationLookup
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewPostmarkService creates a new postmark service.
func NewPostmarkService(
	repo postmarkRepository,
	facts postmarkFactRepository,
	images postmarkImageLister,
	locations postmarkLocationLookup,
	references postmarkReferenceLookup,
	colors postmarkColorLookup,
	publications postmarkPublicationLookup,
	validate *validator.Validate,
	logger *zap.Logger,
) *PostmarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostmarkService{
		repo:         repo,
		facts:        facts,
		images:       images,
		locations:    locations,
		references:   references,
		colors:       colors,
		publications: publications,
		validator:    validate,
		logger:       logger,
	}
}

// List returns paginated postmarks.
func (s *PostmarkService) List(ctx context.Context, filter models.PostmarkFilter) ([]models.Postmark, *models.Pagination, error) {
	postmarks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list postmarks")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return postmarks, pagination, nil
}

// Get returns a postmark with all child facts. Unmoderated images are
// hidden unless includePending is set (moderators only).
func (s *PostmarkService) Get(ctx context.Context, id string, includePending bool) (*models.PostmarkDetail, error) {
	postmark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "postmark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark")
	}

	detail := &models.PostmarkDetail{Postmark: *postmark}

	location, err := s.locations.FindByID(ctx, postmark.LocationID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark location")
	}
	detail.Location = location

	if detail.Colors, err = s.facts.ListColors(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark colors")
	}
	if detail.DatesSeen, err = s.facts.ListDateRanges(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark date ranges")
	}
	if detail.Sizes, err = s.facts.ListSizes(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark sizes")
	}
	if detail.Valuations, err = s.facts.ListValuations(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark valuations")
	}
	if detail.References, err = s.facts.ListReferences(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication references")
	}
	if detail.Images, err = s.images.ListPostmarkImages(ctx, id, !includePending); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark images")
	}

	return detail, nil
}

// Create adds a postmark with its nested child facts. Every foreign key is
// checked up front so a bad reference fails before anything is written.
func (s *PostmarkService) Create(ctx context.Context, req CreatePostmarkRequest, actor string) (*models.PostmarkDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid postmark payload")
	}

	key := strings.TrimSpace(req.PostmarkKey)
	exists, err := s.repo.ExistsByKey(ctx, key, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check postmark key")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "postmark key already exists")
	}

	if err := s.checkAttributeRefs(ctx, req.LocationID, req.ShapeID, req.LetteringStyleID, req.FramingStyleID, req.DateFormatID); err != nil {
		return nil, err
	}
	for _, colorID := range req.ColorIDs {
		if _, err := s.colors.FindByID(ctx, colorID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrValidation, "color not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load color")
		}
	}
	for _, dr := range req.DatesSeen {
		if dr.LatestSeen.Before(dr.EarliestSeen) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "latest_seen precedes earliest_seen")
		}
	}
	for _, ref := range req.References {
		if _, err := s.publications.FindByID(ctx, ref.PublicationID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrValidation, "publication not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication")
		}
	}

	postmark := &models.Postmark{
		PostmarkKey:          key,
		LocationID:           req.LocationID,
		ShapeID:              req.ShapeID,
		LetteringStyleID:     req.LetteringStyleID,
		FramingStyleID:       req.FramingStyleID,
		DateFormatID:         req.DateFormatID,
		RateLocation:         models.RateLocation(req.RateLocation),
		RateValue:            strings.TrimSpace(req.RateValue),
		IsManuscript:         req.IsManuscript,
		OtherCharacteristics: strings.TrimSpace(req.OtherCharacteristics),
	}
	if req.Condition != nil {
		condition := models.Condition(*req.Condition)
		postmark.Condition = &condition
	}
	postmark.CreatedBy = actor
	postmark.ModifiedBy = actor

	colors := make([]models.PostmarkColor, 0, len(req.ColorIDs))
	for _, colorID := range req.ColorIDs {
		colors = append(colors, models.PostmarkColor{ColorID: colorID, CreatedBy: actor})
	}
	dateRanges := make([]models.PostmarkDateRange, 0, len(req.DatesSeen))
	for _, dr := range req.DatesSeen {
		dateRanges = append(dateRanges, models.PostmarkDateRange{
			EarliestSeen: dr.EarliestSeen.UTC(),
			LatestSeen:   dr.LatestSeen.UTC(),
			CreatedBy:    actor,
		})
	}
	sizes := make([]models.PostmarkSize, 0, len(req.Sizes))
	for _, size := range req.Sizes {
		sizes = append(sizes, models.PostmarkSize{
			Width:     size.Width,
			Height:    size.Height,
			SizeNotes: strings.TrimSpace(size.SizeNotes),
			CreatedBy: actor,
		})
	}
	references := make([]models.PublicationReference, 0, len(req.References))
	for _, ref := range req.References {
		references = append(references, models.PublicationReference{
			PublicationID:     ref.PublicationID,
			PublishedID:       strings.TrimSpace(ref.PublishedID),
			ReferenceLocation: strings.TrimSpace(ref.ReferenceLocation),
			CreatedBy:         actor,
		})
	}

	// One transaction: a failed fact insert must not leave the parent row.
	if err := s.repo.CreateWithFacts(ctx, postmark, colors, dateRanges, sizes, references); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create postmark")
	}

	s.logger.Info("postmark created", zap.String("postmark_id", postmark.ID), zap.String("postmark_key", postmark.PostmarkKey))
	return s.Get(ctx, postmark.ID, false)
}

// Update modifies a postmark's scalar fields.
func (s *PostmarkService) Update(ctx context.Context, id string, req UpdatePostmarkRequest, actor string) (*models.Postmark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid postmark payload")
	}

	postmark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "postmark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark")
	}

	key := strings.TrimSpace(req.PostmarkKey)
	exists, err := s.repo.ExistsByKey(ctx, key, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check postmark key")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "postmark key already exists")
	}

	if err := s.checkAttributeRefs(ctx, req.LocationID, req.ShapeID, req.LetteringStyleID, req.FramingStyleID, req.DateFormatID); err != nil {
		return nil, err
	}

	postmark.PostmarkKey = key
	postmark.LocationID = req.LocationID
	postmark.ShapeID = req.ShapeID
	postmark.LetteringStyleID = req.LetteringStyleID
	postmark.FramingStyleID = req.FramingStyleID
	postmark.DateFormatID = req.DateFormatID
	postmark.RateLocation = models.RateLocation(req.RateLocation)
	postmark.RateValue = strings.TrimSpace(req.RateValue)
	postmark.IsManuscript = req.IsManuscript
	postmark.OtherCharacteristics = strings.TrimSpace(req.OtherCharacteristics)
	postmark.Condition = nil
	if req.Condition != nil {
		condition := models.Condition(*req.Condition)
		postmark.Condition = &condition
	}
	postmark.ModifiedBy = actor

	if err := s.repo.Update(ctx, postmark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update postmark")
	}
	return postmark, nil
}

// Delete removes a postmark and all of its owned child facts.
func (s *PostmarkService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "postmark not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete postmark")
	}
	s.logger.Info("postmark deleted", zap.String("postmark_id", id))
	return nil
}

// AddColor attaches a color to a postmark. Attaching the same color twice
// is rejected.
func (s *PostmarkService) AddColor(ctx context.Context, postmarkID, colorID, actor string) (*models.PostmarkColor, error) {
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return nil, err
	}
	color, err := s.colors.FindByID(ctx, colorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "color not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load color")
	}

	has, err := s.facts.HasColor(ctx, postmarkID, colorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check postmark color")
	}
	if has {
		return nil, appErrors.Clone(appErrors.ErrConflict, "color already attached")
	}

	link := &models.PostmarkColor{PostmarkID: postmarkID, ColorID: colorID, ColorName: color.ColorName, CreatedBy: actor}
	if err := s.facts.AddColor(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach color")
	}
	return link, nil
}

// RemoveColor detaches a color link from a postmark.
func (s *PostmarkService) RemoveColor(ctx context.Context, postmarkID, linkID string) error {
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return err
	}
	affected, err := s.facts.RemoveColor(ctx, postmarkID, linkID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach color")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "postmark color not found")
	}
	return nil
}

// AddDateRange records an observed date range.
func (s *PostmarkService) AddDateRange(ctx context.Context, postmarkID string, req DateRangeInput, actor string) (*models.PostmarkDateRange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date range payload")
	}
	if req.LatestSeen.Before(req.EarliestSeen) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "latest_seen precedes earliest_seen")
	}
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return nil, err
	}

	entry := &models.PostmarkDateRange{
		PostmarkID:   postmarkID,
		EarliestSeen: req.EarliestSeen.UTC(),
		LatestSeen:   req.LatestSeen.UTC(),
		CreatedBy:    actor,
	}
	if err := s.facts.AddDateRange(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record date range")
	}
	return entry, nil
}

// RemoveDateRange deletes an observed date range.
func (s *PostmarkService) RemoveDateRange(ctx context.Context, postmarkID, rangeID string) error {
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return err
	}
	affected, err := s.facts.RemoveDateRange(ctx, postmarkID, rangeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove date range")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "date range not found")
	}
	return nil
}

// AddSize records a measured size.
func (s *PostmarkService) AddSize(ctx context.Context, postmarkID string, req SizeInput, actor string) (*models.PostmarkSize, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid size payload")
	}
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return nil, err
	}

	entry := &models.PostmarkSize{
		PostmarkID: postmarkID,
		Width:      req.Width,
		Height:     req.Height,
		SizeNotes:  strings.TrimSpace(req.SizeNotes),
		CreatedBy:  actor,
	}
	if err := s.facts.AddSize(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record size")
	}
	return entry, nil
}

// RemoveSize deletes a measured size.
func (s *PostmarkService) RemoveSize(ctx context.Context, postmarkID, sizeID string) error {
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return err
	}
	affected, err := s.facts.RemoveSize(ctx, postmarkID, sizeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove size")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "size not found")
	}
	return nil
}

// AddValuation records a value estimate attributed to the acting user.
func (s *PostmarkService) AddValuation(ctx context.Context, postmarkID string, req AddValuationRequest, actor string) (*models.PostmarkValuation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid valuation payload")
	}
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return nil, err
	}

	valuationDate := time.Now().UTC()
	if req.ValuationDate != nil {
		valuationDate = req.ValuationDate.UTC()
	}
	entry := &models.PostmarkValuation{
		PostmarkID:     postmarkID,
		ValuedByUserID: actor,
		EstimatedValue: req.EstimatedValue,
		ValuationDate:  valuationDate,
	}
	entry.CreatedBy = actor
	entry.ModifiedBy = actor
	if err := s.facts.AddValuation(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record valuation")
	}
	return entry, nil
}

// RemoveValuation deletes a valuation.
func (s *PostmarkService) RemoveValuation(ctx context.Context, postmarkID, valuationID string) error {
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return err
	}
	affected, err := s.facts.RemoveValuation(ctx, postmarkID, valuationID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove valuation")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "valuation not found")
	}
	return nil
}

// AddReference ties the postmark to its entry in a publication.
func (s *PostmarkService) AddReference(ctx context.Context, postmarkID string, req ReferenceInput, actor string) (*models.PublicationReference, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reference payload")
	}
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return nil, err
	}
	if _, err := s.publications.FindByID(ctx, req.PublicationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "publication not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication")
	}

	entry := &models.PublicationReference{
		PostmarkID:        postmarkID,
		PublicationID:     req.PublicationID,
		PublishedID:       strings.TrimSpace(req.PublishedID),
		ReferenceLocation: strings.TrimSpace(req.ReferenceLocation),
		CreatedBy:         actor,
	}
	if err := s.facts.AddReference(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record publication reference")
	}
	return entry, nil
}

// RemoveReference deletes a publication reference.
func (s *PostmarkService) RemoveReference(ctx context.Context, postmarkID, refID string) error {
	if err := s.ensureExists(ctx, postmarkID); err != nil {
		return err
	}
	affected, err := s.facts.RemoveReference(ctx, postmarkID, refID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove publication reference")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "publication reference not found")
	}
	return nil
}

func (s *PostmarkService) ensureExists(ctx context.Context, postmarkID string) error {
	if _, err := s.repo.FindByID(ctx, postmarkID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "postmark not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark")
	}
	return nil
}

func (s *PostmarkService) checkAttributeRefs(ctx context.Context, locationID, shapeID, letteringID, framingID, dateFormatID string) error {
	if _, err := s.locations.FindByID(ctx, locationID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "location not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	refs := []struct {
		kind models.ReferenceKind
		id   string
		name string
	}{
		{models.KindShape, shapeID, "shape not found"},
		{models.KindLettering, letteringID, "lettering style not found"},
		{models.KindFraming, framingID, "framing style not found"},
		{models.KindDateFormat, dateFormatID, "date format not found"},
	}
	for _, ref := range refs {
		if _, err := s.references.FindByID(ctx, ref.kind, ref.id); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrValidation, ref.name)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reference item")
		}
	}
	return nil
}
