package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/woco-project/woco-api/internal/models"
)

const publicationColumns = "id, title, author, publisher, publication_date, isbn, edition, publication_type, created_at, updated_at, created_by, modified_by"

// PublicationRepository manages persistence for publications.
type PublicationRepository struct {
	db *sqlx.DB
}

// NewPublicationRepository constructs a PublicationRepository.
func NewPublicationRepository(db *sqlx.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

// List returns publications matching the filter plus the total count.
func (r *PublicationRepository) List(ctx context.Context, filter models.PublicationFilter) ([]models.Publication, int, error) {
	base := "FROM publications WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PublicationType != "" {
		args = append(args, filter.PublicationType)
		conditions = append(conditions, fmt.Sprintf("publication_type = $%d", len(args)))
	}
	if filter.Author != "" {
		args = append(args, "%"+strings.ToLower(filter.Author)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(author) LIKE $%d", len(args)))
	}
	if filter.Publisher != "" {
		args = append(args, "%"+strings.ToLower(filter.Publisher)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(publisher) LIKE $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(author) LIKE $%d OR LOWER(isbn) LIKE $%d)", n, n, n))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":            "title",
		"author":           "author",
		"publication_date": "publication_date",
		"created_at":       "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "title"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", publicationColumns, base, column, order, size, offset)
	var publications []models.Publication
	if err := r.db.SelectContext(ctx, &publications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list publications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count publications: %w", err)
	}

	return publications, total, nil
}

// FindByID fetches a publication by id.
func (r *PublicationRepository) FindByID(ctx context.Context, id string) (*models.Publication, error) {
	query := fmt.Sprintf("SELECT %s FROM publications WHERE id = $1", publicationColumns)
	var publication models.Publication
	if err := r.db.GetContext(ctx, &publication, query, id); err != nil {
		return nil, err
	}
	return &publication, nil
}

// Create inserts a new publication.
func (r *PublicationRepository) Create(ctx context.Context, publication *models.Publication) error {
	if publication.ID == "" {
		publication.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	publication.CreatedAt = now
	publication.UpdatedAt = now

	const query = `INSERT INTO publications (id, title, author, publisher, publication_date, isbn, edition, publication_type, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :title, :author, :publisher, :publication_date, :isbn, :edition, :publication_type, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, publication); err != nil {
		return fmt.Errorf("create publication: %w", err)
	}
	return nil
}

// Update modifies an existing publication.
func (r *PublicationRepository) Update(ctx context.Context, publication *models.Publication) error {
	publication.UpdatedAt = time.Now().UTC()
	const query = `UPDATE publications SET title = :title, author = :author, publisher = :publisher,
		publication_date = :publication_date, isbn = :isbn, edition = :edition, publication_type = :publication_type,
		updated_at = :updated_at, modified_by = :modified_by
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, publication); err != nil {
		return fmt.Errorf("update publication: %w", err)
	}
	return nil
}

// CountReferences counts postmark references into the publication. A
// referenced publication cannot be deleted.
func (r *PublicationRepository) CountReferences(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM publication_references WHERE publication_id = $1", id); err != nil {
		return 0, fmt.Errorf("count publication references: %w", err)
	}
	return count, nil
}

// Delete removes a publication.
func (r *PublicationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM publications WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}
	return nil
}
