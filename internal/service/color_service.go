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

type colorRepository interface {
	List(ctx context.Context, filter models.ReferenceFilter) ([]models.Color, int, error)
	FindByID(ctx context.Context, id string) (*models.Color, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, color *models.Color) error
	Update(ctx context.Context, color *models.Color) error
	CountUsage(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// ColorRequest captures create/update fields for an ink color.
type ColorRequest struct {
	ColorName string `json:"color_name" validate:"required,max=50"`
	HexValue  string `json:"hex_value" validate:"required,hexcolor"`
}

// ColorService handles the ink color lookup.
type ColorService struct {
	repo      colorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewColorService creates a new color service.
func NewColorService(repo colorRepository, validate *validator.Validate, logger *zap.Logger) *ColorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColorService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated colors.
func (s *ColorService) List(ctx context.Context, filter models.ReferenceFilter) ([]models.Color, *models.Pagination, error) {
	colors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colors")
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
	return colors, pagination, nil
}

// Get returns a color by identifier.
func (s *ColorService) Get(ctx context.Context, id string) (*models.Color, error) {
	color, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "color not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load color")
	}
	return color, nil
}

// Create adds a new color, enforcing name uniqueness.
func (s *ColorService) Create(ctx context.Context, req ColorRequest, actor string) (*models.Color, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid color payload")
	}

	name := strings.TrimSpace(req.ColorName)
	exists, err := s.repo.ExistsByName(ctx, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check color name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "color name already exists")
	}

	color := &models.Color{ColorName: name, HexValue: strings.ToUpper(req.HexValue)}
	color.CreatedBy = actor
	color.ModifiedBy = actor

	if err := s.repo.Create(ctx, color); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create color")
	}
	return color, nil
}

// Update modifies a color.
func (s *ColorService) Update(ctx context.Context, id string, req ColorRequest, actor string) (*models.Color, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid color payload")
	}

	color, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.ColorName)
	exists, err := s.repo.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check color name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "color name already exists")
	}

	color.ColorName = name
	color.HexValue = strings.ToUpper(req.HexValue)
	color.ModifiedBy = actor

	if err := s.repo.Update(ctx, color); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update color")
	}
	return color, nil
}

// Delete removes a color unless postmarks still use it.
func (s *ColorService) Delete(ctx context.Context, id string) error {
	color, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	usage, err := s.repo.CountUsage(ctx, color.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check color usage")
	}
	if usage > 0 {
		return appErrors.Clone(appErrors.ErrReferenceInUse, "color used by postmarks")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete color")
	}
	return nil
}
