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

const colorColumns = "id, color_name, hex_value, created_at, updated_at, created_by, modified_by"

// ColorRepository manages the color lookup table.
type ColorRepository struct {
	db *sqlx.DB
}

// NewColorRepository constructs a ColorRepository.
func NewColorRepository(db *sqlx.DB) *ColorRepository {
	return &ColorRepository{db: db}
}

// List returns colors, optionally filtered by a search term.
func (r *ColorRepository) List(ctx context.Context, filter models.ReferenceFilter) ([]models.Color, int, error) {
	base := "FROM colors WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		base += " AND LOWER(color_name) LIKE $1"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY color_name %s LIMIT %d OFFSET %d", colorColumns, base, order, size, offset)
	var colors []models.Color
	if err := r.db.SelectContext(ctx, &colors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list colors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count colors: %w", err)
	}
	return colors, total, nil
}

// FindByID fetches a color by id.
func (r *ColorRepository) FindByID(ctx context.Context, id string) (*models.Color, error) {
	query := fmt.Sprintf("SELECT %s FROM colors WHERE id = $1", colorColumns)
	var color models.Color
	if err := r.db.GetContext(ctx, &color, query, id); err != nil {
		return nil, err
	}
	return &color, nil
}

// ExistsByName checks color name uniqueness.
func (r *ColorRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM colors WHERE LOWER(color_name) = LOWER($1)"
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
		return false, fmt.Errorf("check color name: %w", err)
	}
	return true, nil
}

// Create inserts a new color.
func (r *ColorRepository) Create(ctx context.Context, color *models.Color) error {
	if color.ID == "" {
		color.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	color.CreatedAt = now
	color.UpdatedAt = now

	const query = `INSERT INTO colors (id, color_name, hex_value, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :color_name, :hex_value, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, color); err != nil {
		return fmt.Errorf("create color: %w", err)
	}
	return nil
}

// Update modifies an existing color.
func (r *ColorRepository) Update(ctx context.Context, color *models.Color) error {
	color.UpdatedAt = time.Now().UTC()
	const query = `UPDATE colors SET color_name = :color_name, hex_value = :hex_value, updated_at = :updated_at, modified_by = :modified_by WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, color); err != nil {
		return fmt.Errorf("update color: %w", err)
	}
	return nil
}

// CountUsage returns how many postmark color links reference the color.
func (r *ColorRepository) CountUsage(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM postmark_colors WHERE color_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count color usage: %w", err)
	}
	return count, nil
}

// Delete removes a color. Callers must check usage first.
func (r *ColorRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM colors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete color: %w", err)
	}
	return nil
}
