package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/woco-project/woco-api/internal/models"
)

// referenceTables maps a lookup kind to its backing table. The four tables
// share one shape (unique name plus description), so a single repository
// serves them all.
var referenceTables = map[models.ReferenceKind]string{
	models.KindShape:      "postmark_shapes",
	models.KindLettering:  "lettering_styles",
	models.KindFraming:    "framing_styles",
	models.KindDateFormat: "date_formats",
}

// referenceUsageColumns maps a lookup kind to the postmark column that
// references it, for delete protection checks.
var referenceUsageColumns = map[models.ReferenceKind]string{
	models.KindShape:      "shape_id",
	models.KindLettering:  "lettering_style_id",
	models.KindFraming:    "framing_style_id",
	models.KindDateFormat: "date_format_id",
}

// ReferenceRepository manages the flat lookup tables describing postmark
// physical attributes.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository constructs a ReferenceRepository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) table(kind models.ReferenceKind) (string, error) {
	table, ok := referenceTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown reference kind %q", kind)
	}
	return table, nil
}

// List returns lookup rows for a kind, filtered by an optional search term.
func (r *ReferenceRepository) List(ctx context.Context, kind models.ReferenceKind, filter models.ReferenceFilter) ([]models.ReferenceItem, int, error) {
	table, err := r.table(kind)
	if err != nil {
		return nil, 0, err
	}

	base := fmt.Sprintf("FROM %s WHERE 1=1", table)
	var args []interface{}
	if filter.Search != "" {
		base += " AND (LOWER(name) LIKE $1 OR LOWER(description) LIKE $1)"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	order := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, description, created_at, updated_at, created_by, modified_by %s ORDER BY name %s LIMIT %d OFFSET %d", base, order, size, offset)
	var items []models.ReferenceItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", table, err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", table, err)
	}
	return items, total, nil
}

// FindByID fetches a lookup row by id.
func (r *ReferenceRepository) FindByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceItem, error) {
	table, err := r.table(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id, name, description, created_at, updated_at, created_by, modified_by FROM %s WHERE id = $1", table)
	var item models.ReferenceItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ExistsByName checks name uniqueness within a kind.
func (r *ReferenceRepository) ExistsByName(ctx context.Context, kind models.ReferenceKind, name, excludeID string) (bool, error) {
	table, err := r.table(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE LOWER(name) = LOWER($1)", table)
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s name: %w", table, err)
	}
	return true, nil
}

// Create inserts a new lookup row.
func (r *ReferenceRepository) Create(ctx context.Context, kind models.ReferenceKind, item *models.ReferenceItem) error {
	table, err := r.table(kind)
	if err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO %s (id, name, description, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :name, :description, :created_at, :updated_at, :created_by, :modified_by)`, table)
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create %s row: %w", table, err)
	}
	return nil
}

// Update modifies a lookup row.
func (r *ReferenceRepository) Update(ctx context.Context, kind models.ReferenceKind, item *models.ReferenceItem) error {
	table, err := r.table(kind)
	if err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET name = :name, description = :description, updated_at = :updated_at, modified_by = :modified_by WHERE id = :id`, table)
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update %s row: %w", table, err)
	}
	return nil
}

// CountUsage returns how many postmarks reference the lookup row.
func (r *ReferenceRepository) CountUsage(ctx context.Context, kind models.ReferenceKind, id string) (int, error) {
	column, ok := referenceUsageColumns[kind]
	if !ok {
		return 0, fmt.Errorf("unknown reference kind %q", kind)
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM postmarks WHERE %s = $1", column)
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count reference usage: %w", err)
	}
	return count, nil
}

// Delete removes a lookup row. Callers must check usage first.
func (r *ReferenceRepository) Delete(ctx context.Context, kind models.ReferenceKind, id string) error {
	table, err := r.table(kind)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
		return fmt.Errorf("delete %s row: %w", table, err)
	}
	return nil
}
