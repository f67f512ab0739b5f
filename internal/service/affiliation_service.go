package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type affiliationRepository interface {
	List(ctx context.Context, filter models.AffiliationFilter) ([]models.GeographicAffiliation, int, error)
	FindByID(ctx context.Context, id string) (*models.GeographicAffiliation, error)
	Create(ctx context.Context, affiliation *models.GeographicAffiliation) error
	Close(ctx context.Context, id string, to time.Time, modifiedBy string) error
	HasOpen(ctx context.Context, locationID string) (bool, error)
	CurrentForLocation(ctx context.Context, locationID string, asOf time.Time) ([]models.GeographicAffiliation, error)
	Timeline(ctx context.Context, locationID string) ([]models.GeographicAffiliation, error)
	LocationsInUnit(ctx context.Context, unitID string, asOf time.Time) ([]models.GeographicLocation, error)
}

type affiliationLocationLookup interface {
	FindByID(ctx context.Context, id string) (*models.GeographicLocation, error)
}

type affiliationUnitLookup interface {
	FindByID(ctx context.Context, id string) (*models.AdministrativeUnit, error)
}

// CreateAffiliationRequest opens a governance edge between a location and a
// unit. A nil EffectiveTo leaves the edge open.
type CreateAffiliationRequest struct {
	LocationID    string     `json:"location_id" validate:"required"`
	UnitID        string     `json:"unit_id" validate:"required"`
	EffectiveFrom time.Time  `json:"effective_from" validate:"required"`
	EffectiveTo   *time.Time `json:"effective_to"`
	Source        string     `json:"source"`
}

// CloseAffiliationRequest ends an open affiliation on the given date.
type CloseAffiliationRequest struct {
	EffectiveTo time.Time `json:"effective_to" validate:"required"`
}

// AffiliationService implements the temporal governance engine: which unit
// governed which location, and when.
type AffiliationService struct {
	repo      affiliationRepository
	locations affiliationLocationLookup
	units     affiliationUnitLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAffiliationService creates a new affiliation service.
func NewAffiliationService(repo affiliationRepository, locations affiliationLocationLookup, units affiliationUnitLookup, validate *validator.Validate, logger *zap.Logger) *AffiliationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AffiliationService{repo: repo, locations: locations, units: units, validator: validate, logger: logger}
}

// List returns paginated affiliations.
func (s *AffiliationService) List(ctx context.Context, filter models.AffiliationFilter) ([]models.GeographicAffiliation, *models.Pagination, error) {
	affiliations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list affiliations")
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
	return affiliations, pagination, nil
}

// Get returns an affiliation by identifier.
func (s *AffiliationService) Get(ctx context.Context, id string) (*models.GeographicAffiliation, error) {
	affiliation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "affiliation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load affiliation")
	}
	return affiliation, nil
}

// Create opens a new affiliation. A location carries at most one open
// affiliation at a time, so opening a second one is rejected until the
// first is closed.
func (s *AffiliationService) Create(ctx context.Context, req CreateAffiliationRequest, actor string) (*models.GeographicAffiliation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid affiliation payload")
	}
	if req.EffectiveTo != nil && req.EffectiveTo.Before(req.EffectiveFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effective_to precedes effective_from")
	}

	if _, err := s.locations.FindByID(ctx, req.LocationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	if _, err := s.units.FindByID(ctx, req.UnitID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "administrative unit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}

	if req.EffectiveTo == nil {
		open, err := s.repo.HasOpen(ctx, req.LocationID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open affiliations")
		}
		if open {
			return nil, appErrors.Clone(appErrors.ErrConflict, "location already has an open affiliation")
		}
	}

	affiliation := &models.GeographicAffiliation{
		LocationID:    req.LocationID,
		UnitID:        req.UnitID,
		EffectiveFrom: req.EffectiveFrom.UTC(),
		EffectiveTo:   req.EffectiveTo,
		Source:        req.Source,
	}
	if affiliation.EffectiveTo != nil {
		to := affiliation.EffectiveTo.UTC()
		affiliation.EffectiveTo = &to
	}
	affiliation.CreatedBy = actor
	affiliation.ModifiedBy = actor

	if err := s.repo.Create(ctx, affiliation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create affiliation")
	}
	return affiliation, nil
}

// CloseAffiliation ends an open affiliation. Closing twice or closing
// before the opening date is rejected.
func (s *AffiliationService) CloseAffiliation(ctx context.Context, id string, req CloseAffiliationRequest, actor string) (*models.GeographicAffiliation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid close payload")
	}

	affiliation, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !affiliation.Open() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "affiliation already closed")
	}
	to := req.EffectiveTo.UTC()
	if to.Before(affiliation.EffectiveFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effective_to precedes effective_from")
	}

	if err := s.repo.Close(ctx, id, to, actor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close affiliation")
	}
	affiliation.EffectiveTo = &to
	affiliation.ModifiedBy = actor
	s.logger.Info("affiliation closed",
		zap.String("affiliation_id", id),
		zap.Time("effective_to", to))
	return affiliation, nil
}

// CurrentForLocation resolves which unit(s) governed the location on the
// given date. With overlapping historical records the most recently opened
// affiliation wins; the repository orders accordingly.
func (s *AffiliationService) CurrentForLocation(ctx context.Context, locationID string, asOf time.Time) ([]models.GeographicAffiliation, error) {
	if _, err := s.locations.FindByID(ctx, locationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	affiliations, err := s.repo.CurrentForLocation(ctx, locationID, asOf.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve affiliation")
	}
	return affiliations, nil
}

// Timeline returns the location's full affiliation history ordered by
// effective_from.
func (s *AffiliationService) Timeline(ctx context.Context, locationID string) ([]models.GeographicAffiliation, error) {
	if _, err := s.locations.FindByID(ctx, locationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	timeline, err := s.repo.Timeline(ctx, locationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timeline")
	}
	return timeline, nil
}

// LocationsInUnit returns the locations governed by a unit on the given
// date.
func (s *AffiliationService) LocationsInUnit(ctx context.Context, unitID string, asOf time.Time) ([]models.GeographicLocation, error) {
	if _, err := s.units.FindByID(ctx, unitID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "administrative unit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}
	locations, err := s.repo.LocationsInUnit(ctx, unitID, asOf.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list governed locations")
	}
	return locations, nil
}
