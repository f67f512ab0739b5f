package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/woco-project/woco-api/internal/models"
)

// PostmarkFactRepository manages the owned child facts of a postmark:
// colors, observed date ranges, measured sizes, valuations, and
// publication references.
type PostmarkFactRepository struct {
	db *sqlx.DB
}

// NewPostmarkFactRepository constructs a PostmarkFactRepository.
func NewPostmarkFactRepository(db *sqlx.DB) *PostmarkFactRepository {
	return &PostmarkFactRepository{db: db}
}

// ListColors returns the postmark's colors with denormalized color names.
func (r *PostmarkFactRepository) ListColors(ctx context.Context, postmarkID string) ([]models.PostmarkColor, error) {
	const query = `SELECT pc.id, pc.postmark_id, pc.color_id, c.color_name, pc.created_at, pc.created_by
		FROM postmark_colors pc
		JOIN colors c ON c.id = pc.color_id
		WHERE pc.postmark_id = $1
		ORDER BY c.color_name ASC`
	var colors []models.PostmarkColor
	if err := r.db.SelectContext(ctx, &colors, query, postmarkID); err != nil {
		return nil, fmt.Errorf("list postmark colors: %w", err)
	}
	return colors, nil
}

// HasColor reports whether the postmark already carries the color.
func (r *PostmarkFactRepository) HasColor(ctx context.Context, postmarkID, colorID string) (bool, error) {
	const query = "SELECT COUNT(*) FROM postmark_colors WHERE postmark_id = $1 AND color_id = $2"
	var count int
	if err := r.db.GetContext(ctx, &count, query, postmarkID, colorID); err != nil {
		return false, fmt.Errorf("check postmark color: %w", err)
	}
	return count > 0, nil
}

// AddColor attaches a color to the postmark.
func (r *PostmarkFactRepository) AddColor(ctx context.Context, link *models.PostmarkColor) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	link.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO postmark_colors (id, postmark_id, color_id, created_at, created_by)
		VALUES (:id, :postmark_id, :color_id, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("add postmark color: %w", err)
	}
	return nil
}

// RemoveColor detaches a color link by its own id.
func (r *PostmarkFactRepository) RemoveColor(ctx context.Context, postmarkID, linkID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM postmark_colors WHERE id = $1 AND postmark_id = $2", linkID, postmarkID)
	if err != nil {
		return 0, fmt.Errorf("remove postmark color: %w", err)
	}
	return result.RowsAffected()
}

// ListDateRanges returns the postmark's observed date ranges, earliest first.
func (r *PostmarkFactRepository) ListDateRanges(ctx context.Context, postmarkID string) ([]models.PostmarkDateRange, error) {
	const query = `SELECT id, postmark_id, earliest_seen, latest_seen, created_at, created_by
		FROM postmark_date_ranges WHERE postmark_id = $1 ORDER BY earliest_seen ASC`
	var ranges []models.PostmarkDateRange
	if err := r.db.SelectContext(ctx, &ranges, query, postmarkID); err != nil {
		return nil, fmt.Errorf("list postmark date ranges: %w", err)
	}
	return ranges, nil
}

// AddDateRange records a new observed date range.
func (r *PostmarkFactRepository) AddDateRange(ctx context.Context, dr *models.PostmarkDateRange) error {
	if dr.ID == "" {
		dr.ID = uuid.NewString()
	}
	dr.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO postmark_date_ranges (id, postmark_id, earliest_seen, latest_seen, created_at, created_by)
		VALUES (:id, :postmark_id, :earliest_seen, :latest_seen, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, dr); err != nil {
		return fmt.Errorf("add postmark date range: %w", err)
	}
	return nil
}

// RemoveDateRange deletes an observed date range.
func (r *PostmarkFactRepository) RemoveDateRange(ctx context.Context, postmarkID, rangeID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM postmark_date_ranges WHERE id = $1 AND postmark_id = $2", rangeID, postmarkID)
	if err != nil {
		return 0, fmt.Errorf("remove postmark date range: %w", err)
	}
	return result.RowsAffected()
}

// ListSizes returns the postmark's measured sizes.
func (r *PostmarkFactRepository) ListSizes(ctx context.Context, postmarkID string) ([]models.PostmarkSize, error) {
	const query = `SELECT id, postmark_id, width, height, size_notes, created_at, created_by
		FROM postmark_sizes WHERE postmark_id = $1 ORDER BY created_at ASC`
	var sizes []models.PostmarkSize
	if err := r.db.SelectContext(ctx, &sizes, query, postmarkID); err != nil {
		return nil, fmt.Errorf("list postmark sizes: %w", err)
	}
	return sizes, nil
}

// AddSize records a new measured size.
func (r *PostmarkFactRepository) AddSize(ctx context.Context, size *models.PostmarkSize) error {
	if size.ID == "" {
		size.ID = uuid.NewString()
	}
	size.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO postmark_sizes (id, postmark_id, width, height, size_notes, created_at, created_by)
		VALUES (:id, :postmark_id, :width, :height, :size_notes, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, size); err != nil {
		return fmt.Errorf("add postmark size: %w", err)
	}
	return nil
}

// RemoveSize deletes a measured size.
func (r *PostmarkFactRepository) RemoveSize(ctx context.Context, postmarkID, sizeID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM postmark_sizes WHERE id = $1 AND postmark_id = $2", sizeID, postmarkID)
	if err != nil {
		return 0, fmt.Errorf("remove postmark size: %w", err)
	}
	return result.RowsAffected()
}

// ListValuations returns the postmark's valuations, most recent first.
func (r *PostmarkFactRepository) ListValuations(ctx context.Context, postmarkID string) ([]models.PostmarkValuation, error) {
	const query = `SELECT id, postmark_id, valued_by_user_id, estimated_value, valuation_date, created_at, updated_at, created_by, modified_by
		FROM postmark_valuations WHERE postmark_id = $1 ORDER BY valuation_date DESC`
	var valuations []models.PostmarkValuation
	if err := r.db.SelectContext(ctx, &valuations, query, postmarkID); err != nil {
		return nil, fmt.Errorf("list postmark valuations: %w", err)
	}
	return valuations, nil
}

// AddValuation records a new valuation.
func (r *PostmarkFactRepository) AddValuation(ctx context.Context, v *models.PostmarkValuation) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	const query = `INSERT INTO postmark_valuations (id, postmark_id, valued_by_user_id, estimated_value, valuation_date, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :postmark_id, :valued_by_user_id, :estimated_value, :valuation_date, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, v); err != nil {
		return fmt.Errorf("add postmark valuation: %w", err)
	}
	return nil
}

// RemoveValuation deletes a valuation.
func (r *PostmarkFactRepository) RemoveValuation(ctx context.Context, postmarkID, valuationID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM postmark_valuations WHERE id = $1 AND postmark_id = $2", valuationID, postmarkID)
	if err != nil {
		return 0, fmt.Errorf("remove postmark valuation: %w", err)
	}
	return result.RowsAffected()
}

// ListReferences returns the postmark's publication references.
func (r *PostmarkFactRepository) ListReferences(ctx context.Context, postmarkID string) ([]models.PublicationReference, error) {
	const query = `SELECT id, postmark_id, publication_id, published_id, reference_location, created_at, created_by
		FROM publication_references WHERE postmark_id = $1 ORDER BY created_at ASC`
	var refs []models.PublicationReference
	if err := r.db.SelectContext(ctx, &refs, query, postmarkID); err != nil {
		return nil, fmt.Errorf("list publication references: %w", err)
	}
	return refs, nil
}

// AddReference ties the postmark to its entry in a publication.
func (r *PostmarkFactRepository) AddReference(ctx context.Context, ref *models.PublicationReference) error {
	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	ref.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO publication_references (id, postmark_id, publication_id, published_id, reference_location, created_at, created_by)
		VALUES (:id, :postmark_id, :publication_id, :published_id, :reference_location, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, ref); err != nil {
		return fmt.Errorf("add publication reference: %w", err)
	}
	return nil
}

// RemoveReference deletes a publication reference.
func (r *PostmarkFactRepository) RemoveReference(ctx context.Context, postmarkID, refID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM publication_references WHERE id = $1 AND postmark_id = $2", refID, postmarkID)
	if err != nil {
		return 0, fmt.Errorf("remove publication reference: %w", err)
	}
	return result.RowsAffected()
}
