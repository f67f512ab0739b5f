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

type locationRepository interface {
	List(ctx context.Context, filter models.LocationFilter) ([]models.GeographicLocation, int, error)
	FindByID(ctx context.Context, id string) (*models.GeographicLocation, error)
	Create(ctx context.Context, location *models.GeographicLocation) error
	Update(ctx context.Context, location *models.GeographicLocation) error
	CountPostmarks(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// CreateLocationRequest captures fields for creating a gazetteer location.
type CreateLocationRequest struct {
	LocationName string   `json:"location_name" validate:"required"`
	LocationType string   `json:"location_type" validate:"required,oneof=TOWN CITY VILLAGE POST_OFFICE SETTLEMENT"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// UpdateLocationRequest modifies location fields. The name identifies a
// physical place and stays editable; a renamed town is still the same place.
type UpdateLocationRequest struct {
	LocationName string   `json:"location_name" validate:"required"`
	LocationType string   `json:"location_type" validate:"required,oneof=TOWN CITY VILLAGE POST_OFFICE SETTLEMENT"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// LocationService handles gazetteer location workflows.
type LocationService struct {
	repo      locationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLocationService creates a new location service.
func NewLocationService(repo locationRepository, validate *validator.Validate, logger *zap.Logger) *LocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated locations.
func (s *LocationService) List(ctx context.Context, filter models.LocationFilter) ([]models.GeographicLocation, *models.Pagination, error) {
	locations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list locations")
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
	return locations, pagination, nil
}

// Get returns a location by identifier.
func (s *LocationService) Get(ctx context.Context, id string) (*models.GeographicLocation, error) {
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	return location, nil
}

// Create adds a new location. Coordinates are optional but must come in
// pairs.
func (s *LocationService) Create(ctx context.Context, req CreateLocationRequest, actor string) (*models.GeographicLocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "latitude and longitude must be provided together")
	}

	location := &models.GeographicLocation{
		LocationName: strings.TrimSpace(req.LocationName),
		LocationType: models.LocationType(req.LocationType),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}
	location.CreatedBy = actor
	location.ModifiedBy = actor

	if err := s.repo.Create(ctx, location); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create location")
	}
	return location, nil
}

// Update modifies an existing location.
func (s *LocationService) Update(ctx context.Context, id string, req UpdateLocationRequest, actor string) (*models.GeographicLocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "latitude and longitude must be provided together")
	}

	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}

	location.LocationName = strings.TrimSpace(req.LocationName)
	location.LocationType = models.LocationType(req.LocationType)
	location.Latitude = req.Latitude
	location.Longitude = req.Longitude
	location.ModifiedBy = actor

	if err := s.repo.Update(ctx, location); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update location")
	}
	return location, nil
}

// Delete removes a location. Locations referenced by catalog postmarks are
// protected; affiliations are removed along with the location.
func (s *LocationService) Delete(ctx context.Context, id string) error {
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}

	count, err := s.repo.CountPostmarks(ctx, location.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check location usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrReferenceInUse, "location referenced by postmarks")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete location")
	}
	s.logger.Info("location deleted", zap.String("location_id", id))
	return nil
}
