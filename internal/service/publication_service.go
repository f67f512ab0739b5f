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

type publicationRepository interface {
	List(ctx context.Context, filter models.PublicationFilter) ([]models.Publication, int, error)
	FindByID(ctx context.Context, id string) (*models.Publication, error)
	Create(ctx context.Context, publication *models.Publication) error
	Update(ctx context.Context, publication *models.Publication) error
	CountReferences(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// PublicationRequest captures create/update fields for a publication.
type PublicationRequest struct {
	Title           string    `json:"title" validate:"required,max=200"`
	Author          string    `json:"author" validate:"required,max=100"`
	Publisher       string    `json:"publisher" validate:"max=100"`
	PublicationDate time.Time `json:"publication_date" validate:"required"`
	ISBN            string    `json:"isbn" validate:"max=20"`
	Edition         string    `json:"edition" validate:"max=50"`
	PublicationType string    `json:"publication_type" validate:"required,oneof=BOOK CATALOG JOURNAL WEBSITE NEWSLETTER"`
}

// PublicationService handles the bibliography of works that list postmarks.
type PublicationService struct {
	repo      publicationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPublicationService creates a new publication service.
func NewPublicationService(repo publicationRepository, validate *validator.Validate, logger *zap.Logger) *PublicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicationService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated publications.
func (s *PublicationService) List(ctx context.Context, filter models.PublicationFilter) ([]models.Publication, *models.Pagination, error) {
	publications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list publications")
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
	return publications, pagination, nil
}

// Get returns a publication by identifier.
func (s *PublicationService) Get(ctx context.Context, id string) (*models.Publication, error) {
	publication, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "publication not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication")
	}
	return publication, nil
}

// Create adds a new publication.
func (s *PublicationService) Create(ctx context.Context, req PublicationRequest, actor string) (*models.Publication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publication payload")
	}

	publication := &models.Publication{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		Publisher:       strings.TrimSpace(req.Publisher),
		PublicationDate: req.PublicationDate.UTC(),
		ISBN:            strings.TrimSpace(req.ISBN),
		Edition:         strings.TrimSpace(req.Edition),
		PublicationType: models.PublicationType(req.PublicationType),
	}
	publication.CreatedBy = actor
	publication.ModifiedBy = actor

	if err := s.repo.Create(ctx, publication); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create publication")
	}
	return publication, nil
}

// Update modifies a publication.
func (s *PublicationService) Update(ctx context.Context, id string, req PublicationRequest, actor string) (*models.Publication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publication payload")
	}

	publication, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	publication.Title = strings.TrimSpace(req.Title)
	publication.Author = strings.TrimSpace(req.Author)
	publication.Publisher = strings.TrimSpace(req.Publisher)
	publication.PublicationDate = req.PublicationDate.UTC()
	publication.ISBN = strings.TrimSpace(req.ISBN)
	publication.Edition = strings.TrimSpace(req.Edition)
	publication.PublicationType = models.PublicationType(req.PublicationType)
	publication.ModifiedBy = actor

	if err := s.repo.Update(ctx, publication); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update publication")
	}
	return publication, nil
}

// Delete removes a publication unless postmarks still reference it.
func (s *PublicationService) Delete(ctx context.Context, id string) error {
	publication, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.repo.CountReferences(ctx, publication.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check publication references")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrReferenceInUse, "publication referenced by postmarks")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete publication")
	}
	return nil
}
