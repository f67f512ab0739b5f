package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type referenceRepository interface {
	List(ctx context.Context, kind models.ReferenceKind, filter models.ReferenceFilter) ([]models.ReferenceItem, int, error)
	FindByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceItem, error)
	ExistsByName(ctx context.Context, kind models.ReferenceKind, name, excludeID string) (bool, error)
	Create(ctx context.Context, kind models.ReferenceKind, item *models.ReferenceItem) error
	Update(ctx context.Context, kind models.ReferenceKind, item *models.ReferenceItem) error
	CountUsage(ctx context.Context, kind models.ReferenceKind, id string) (int, error)
	Delete(ctx context.Context, kind models.ReferenceKind, id string) error
}


// ReferenceItemRequest captures create/update fields shared by every
// lookup kind.
type ReferenceItemRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// ReferenceService handles the postmark attribute lookups (shapes,
// lettering styles, framing styles, date formats). All four kinds share
// one workflow; the kind selects the table. Listings are small and hot,
// so they go through the cache when one is wired.
type ReferenceService struct {
	repo      referenceRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService creates a new reference lookup service. A nil cache
// disables caching.
func NewReferenceService(repo referenceRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ReferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	return &ReferenceService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

type cachedReferenceList struct {
	Items []models.ReferenceItem `json:"items"`
	Total int                    `json:"total"`
}

// List returns paginated lookup rows of the given kind. The boolean reports
// whether the page was served from cache.
func (s *ReferenceService) List(ctx context.Context, kind models.ReferenceKind, filter models.ReferenceFilter) ([]models.ReferenceItem, *models.Pagination, bool, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	cacheKey := fmt.Sprintf("reference:%s:list:%s:%s:%d:%d", kind, strings.ToLower(filter.Search), filter.SortOrder, page, size)
	if s.cache != nil {
		var cached cachedReferenceList
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("reference cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}
			return cached.Items, pagination, true, nil
		}
	}

	items, total, err := s.repo.List(ctx, kind, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reference items")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, cachedReferenceList{Items: items, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("reference cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return items, pagination, false, nil
}

// Get returns a lookup row by identifier.
func (s *ReferenceService) Get(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceItem, error) {
	item, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reference item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reference item")
	}
	return item, nil
}

// Create adds a new lookup row, enforcing name uniqueness within the kind.
func (s *ReferenceService) Create(ctx context.Context, kind models.ReferenceKind, req ReferenceItemRequest, actor string) (*models.ReferenceItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reference payload")
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, kind, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reference name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reference name already exists")
	}

	item := &models.ReferenceItem{Name: name, Description: strings.TrimSpace(req.Description)}
	item.CreatedBy = actor
	item.ModifiedBy = actor

	if err := s.repo.Create(ctx, kind, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reference item")
	}
	s.invalidate(ctx, kind)
	return item, nil
}

// Update modifies a lookup row.
func (s *ReferenceService) Update(ctx context.Context, kind models.ReferenceKind, id string, req ReferenceItemRequest, actor string) (*models.ReferenceItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reference payload")
	}

	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, kind, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reference name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reference name already exists")
	}

	item.Name = name
	item.Description = strings.TrimSpace(req.Description)
	item.ModifiedBy = actor

	if err := s.repo.Update(ctx, kind, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reference item")
	}
	s.invalidate(ctx, kind)
	return item, nil
}

// Delete removes a lookup row unless postmarks still reference it.
func (s *ReferenceService) Delete(ctx context.Context, kind models.ReferenceKind, id string) error {
	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	usage, err := s.repo.CountUsage(ctx, kind, item.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reference usage")
	}
	if usage > 0 {
		return appErrors.Clone(appErrors.ErrReferenceInUse, "reference item used by postmarks")
	}

	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reference item")
	}
	s.invalidate(ctx, kind)
	return nil
}

func (s *ReferenceService) invalidate(ctx context.Context, kind models.ReferenceKind) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("reference:%s:list:*", kind)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("reference cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
