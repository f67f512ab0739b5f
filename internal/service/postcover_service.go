package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type postcoverRepository interface {
	List(ctx context.Context, filter models.PostcoverFilter) ([]models.Postcover, int, error)
	FindByID(ctx context.Context, id string) (*models.Postcover, error)
	ExistsByKey(ctx context.Context, ownerID, key, excludeID string) (bool, error)
	Create(ctx context.Context, cover *models.Postcover) error
	Update(ctx context.Context, cover *models.Postcover) error
	Delete(ctx context.Context, id string) error
	ListPlacements(ctx context.Context, postcoverID string) ([]models.PostcoverPlacement, error)
	AddPlacement(ctx context.Context, placement *models.PostcoverPlacement) error
	RemovePlacement(ctx context.Context, postcoverID, placementID string) (int64, error)
}

type postcoverImageLister interface {
	ListPostcoverImages(ctx context.Context, postcoverID string) ([]models.PostcoverImage, error)
}

type postcoverPostmarkLookup interface {
	FindByID(ctx context.Context, id string) (*models.Postmark, error)
}

// CreatePostcoverRequest captures fields for adding a cover to a
// collection.
type CreatePostcoverRequest struct {
	PostcoverKey string  `json:"postcover_key" validate:"required,max=50"`
	Description  string  `json:"description" validate:"max=1000"`
	Condition    *string `json:"condition" validate:"omitempty,oneof=VERY_FINE FINE VERY_GOOD POOR"`
}

// UpdatePostcoverRequest modifies cover fields.
type UpdatePostcoverRequest struct {
	PostcoverKey string  `json:"postcover_key" validate:"required,max=50"`
	Description  string  `json:"description" validate:"max=1000"`
	Condition    *string `json:"condition" validate:"omitempty,oneof=VERY_FINE FINE VERY_GOOD POOR"`
}

// AddPlacementRequest positions a catalog postmark on the cover.
type AddPlacementRequest struct {
	PostmarkID    string `json:"postmark_id" validate:"required"`
	PositionOrder int    `json:"position_order" validate:"gte=0"`
	Location      string `json:"location" validate:"required,oneof=FRONT BACK FRONT_UPPER_RIGHT FRONT_UPPER_LEFT BACK_UPPER_RIGHT BACK_UPPER_LEFT BACK_LOWER_LEFT BACK_LOWER_RIGHT"`
}

// PostcoverService handles collector-owned covers. Every write checks that
// the acting user owns the cover; admins bypass the check.
type PostcoverService struct {
	repo      postcoverRepository
	images    postcoverImageLister
	postmarks postcoverPostmarkLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPostcoverService creates a new postcover service.
func NewPostcoverService(repo postcoverRepository, images postcoverImageLister, postmarks postcoverPostmarkLookup, validate *validator.Validate, logger *zap.Logger) *PostcoverService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostcoverService{repo: repo, images: images, postmarks: postmarks, validator: validate, logger: logger}
}

// List returns paginated covers.
func (s *PostcoverService) List(ctx context.Context, filter models.PostcoverFilter) ([]models.Postcover, *models.Pagination, error) {
	covers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list postcovers")
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
	return covers, pagination, nil
}

// MyCollection returns the acting user's covers.
func (s *PostcoverService) MyCollection(ctx context.Context, ownerID string, filter models.PostcoverFilter) ([]models.Postcover, *models.Pagination, error) {
	filter.OwnerUserID = ownerID
	return s.List(ctx, filter)
}

// Get returns a cover with placements and images.
func (s *PostcoverService) Get(ctx context.Context, id string) (*models.PostcoverDetail, error) {
	cover, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "postcover not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postcover")
	}

	detail := &models.PostcoverDetail{Postcover: *cover}
	if detail.Placements, err = s.repo.ListPlacements(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placements")
	}
	if detail.Images, err = s.images.ListPostcoverImages(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cover images")
	}
	return detail, nil
}

// Create adds a cover to the acting user's collection. The key only has to
// be unique within the owner's collection.
func (s *PostcoverService) Create(ctx context.Context, req CreatePostcoverRequest, ownerID string) (*models.Postcover, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid postcover payload")
	}

	key := strings.TrimSpace(req.PostcoverKey)
	exists, err := s.repo.ExistsByKey(ctx, ownerID, key, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check postcover key")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "postcover key already exists in your collection")
	}

	cover := &models.Postcover{
		OwnerUserID:  ownerID,
		PostcoverKey: key,
		Description:  strings.TrimSpace(req.Description),
	}
	if req.Condition != nil {
		condition := models.Condition(*req.Condition)
		cover.Condition = &condition
	}
	cover.CreatedBy = ownerID
	cover.ModifiedBy = ownerID

	if err := s.repo.Create(ctx, cover); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create postcover")
	}
	return cover, nil
}

// Update modifies a cover after an ownership check.
func (s *PostcoverService) Update(ctx context.Context, id string, req UpdatePostcoverRequest, actorID string, isAdmin bool) (*models.Postcover, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid postcover payload")
	}

	cover, err := s.loadOwned(ctx, id, actorID, isAdmin)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.PostcoverKey)
	exists, err := s.repo.ExistsByKey(ctx, cover.OwnerUserID, key, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check postcover key")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "postcover key already exists in your collection")
	}

	cover.PostcoverKey = key
	cover.Description = strings.TrimSpace(req.Description)
	cover.Condition = nil
	if req.Condition != nil {
		condition := models.Condition(*req.Condition)
		cover.Condition = &condition
	}
	cover.ModifiedBy = actorID

	if err := s.repo.Update(ctx, cover); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update postcover")
	}
	return cover, nil
}

// Delete removes a cover plus its placements and images.
func (s *PostcoverService) Delete(ctx context.Context, id, actorID string, isAdmin bool) error {
	if _, err := s.loadOwned(ctx, id, actorID, isAdmin); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete postcover")
	}
	s.logger.Info("postcover deleted", zap.String("postcover_id", id))
	return nil
}

// AddPlacement positions a catalog postmark on the cover.
func (s *PostcoverService) AddPlacement(ctx context.Context, postcoverID string, req AddPlacementRequest, actorID string, isAdmin bool) (*models.PostcoverPlacement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}
	if _, err := s.loadOwned(ctx, postcoverID, actorID, isAdmin); err != nil {
		return nil, err
	}
	if _, err := s.postmarks.FindByID(ctx, req.PostmarkID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "postmark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark")
	}

	placement := &models.PostcoverPlacement{
		PostcoverID:   postcoverID,
		PostmarkID:    req.PostmarkID,
		PositionOrder: req.PositionOrder,
		Location:      models.PlacementLocation(req.Location),
		CreatedBy:     actorID,
	}
	if err := s.repo.AddPlacement(ctx, placement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add placement")
	}
	return placement, nil
}

// RemovePlacement takes a postmark off the cover.
func (s *PostcoverService) RemovePlacement(ctx context.Context, postcoverID, placementID, actorID string, isAdmin bool) error {
	if _, err := s.loadOwned(ctx, postcoverID, actorID, isAdmin); err != nil {
		return err
	}
	affected, err := s.repo.RemovePlacement(ctx, postcoverID, placementID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove placement")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "placement not found")
	}
	return nil
}

// Owns reports whether the actor may modify the cover.
func (s *PostcoverService) Owns(ctx context.Context, postcoverID, actorID string, isAdmin bool) error {
	_, err := s.loadOwned(ctx, postcoverID, actorID, isAdmin)
	return err
}

func (s *PostcoverService) loadOwned(ctx context.Context, id, actorID string, isAdmin bool) (*models.Postcover, error) {
	cover, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "postcover not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postcover")
	}
	if !isAdmin && cover.OwnerUserID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "postcover belongs to another collector")
	}
	return cover, nil
}
