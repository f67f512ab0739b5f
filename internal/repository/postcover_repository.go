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

const postcoverColumns = "id, owner_user_id, postcover_key, description, condition, created_at, updated_at, created_by, modified_by"

// PostcoverRepository manages persistence for collector-owned covers and
// their postmark placements.
type PostcoverRepository struct {
	db *sqlx.DB
}

// NewPostcoverRepository constructs a PostcoverRepository.
func NewPostcoverRepository(db *sqlx.DB) *PostcoverRepository {
	return &PostcoverRepository{db: db}
}

// List returns covers matching the filter plus the total count.
func (r *PostcoverRepository) List(ctx context.Context, filter models.PostcoverFilter) ([]models.Postcover, int, error) {
	base := "FROM postcovers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.OwnerUserID != "" {
		args = append(args, filter.OwnerUserID)
		conditions = append(conditions, fmt.Sprintf("owner_user_id = $%d", len(args)))
	}
	if filter.Condition != "" {
		args = append(args, filter.Condition)
		conditions = append(conditions, fmt.Sprintf("condition = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(postcover_key) LIKE $%d OR LOWER(description) LIKE $%d)", n, n))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"postcover_key": "postcover_key",
		"created_at":    "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "postcover_key"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", postcoverColumns, base, column, order, size, offset)
	var covers []models.Postcover
	if err := r.db.SelectContext(ctx, &covers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list postcovers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count postcovers: %w", err)
	}

	return covers, total, nil
}

// FindByID fetches a cover by id.
func (r *PostcoverRepository) FindByID(ctx context.Context, id string) (*models.Postcover, error) {
	query := fmt.Sprintf("SELECT %s FROM postcovers WHERE id = $1", postcoverColumns)
	var cover models.Postcover
	if err := r.db.GetContext(ctx, &cover, query, id); err != nil {
		return nil, err
	}
	return &cover, nil
}

// ExistsByKey checks whether the owner already uses the cover key.
func (r *PostcoverRepository) ExistsByKey(ctx context.Context, ownerID, key, excludeID string) (bool, error) {
	query := "SELECT COUNT(*) FROM postcovers WHERE owner_user_id = $1 AND LOWER(postcover_key) = LOWER($2)"
	args := []interface{}{ownerID, key}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check postcover key: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new cover.
func (r *PostcoverRepository) Create(ctx context.Context, cover *models.Postcover) error {
	if cover.ID == "" {
		cover.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cover.CreatedAt = now
	cover.UpdatedAt = now

	const query = `INSERT INTO postcovers (id, owner_user_id, postcover_key, description, condition, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :owner_user_id, :postcover_key, :description, :condition, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, cover); err != nil {
		return fmt.Errorf("create postcover: %w", err)
	}
	return nil
}

// Update modifies an existing cover. Ownership never changes here.
func (r *PostcoverRepository) Update(ctx context.Context, cover *models.Postcover) error {
	cover.UpdatedAt = time.Now().UTC()
	const query = `UPDATE postcovers SET postcover_key = :postcover_key, description = :description,
		condition = :condition, updated_at = :updated_at, modified_by = :modified_by
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cover); err != nil {
		return fmt.Errorf("update postcover: %w", err)
	}
	return nil
}

// Delete removes a cover together with its placements and images.
func (r *PostcoverRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete postcover: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`DELETE FROM postcover_placements WHERE postcover_id = $1`,
		`DELETE FROM postcover_images WHERE postcover_id = $1`,
		`DELETE FROM postcovers WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete postcover: %w", err)
		}
	}
	return tx.Commit()
}

// ListPlacements returns a cover's postmark placements in position order.
func (r *PostcoverRepository) ListPlacements(ctx context.Context, postcoverID string) ([]models.PostcoverPlacement, error) {
	const query = `SELECT id, postcover_id, postmark_id, position_order, location, created_at, created_by
		FROM postcover_placements WHERE postcover_id = $1 ORDER BY position_order ASC, id ASC`
	var placements []models.PostcoverPlacement
	if err := r.db.SelectContext(ctx, &placements, query, postcoverID); err != nil {
		return nil, fmt.Errorf("list postcover placements: %w", err)
	}
	return placements, nil
}

// AddPlacement positions a catalog postmark on the cover.
func (r *PostcoverRepository) AddPlacement(ctx context.Context, placement *models.PostcoverPlacement) error {
	if placement.ID == "" {
		placement.ID = uuid.NewString()
	}
	placement.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO postcover_placements (id, postcover_id, postmark_id, position_order, location, created_at, created_by)
		VALUES (:id, :postcover_id, :postmark_id, :position_order, :location, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, placement); err != nil {
		return fmt.Errorf("add postcover placement: %w", err)
	}
	return nil
}

// RemovePlacement deletes a placement from the cover.
func (r *PostcoverRepository) RemovePlacement(ctx context.Context, postcoverID, placementID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM postcover_placements WHERE id = $1 AND postcover_id = $2", placementID, postcoverID)
	if err != nil {
		return 0, fmt.Errorf("remove postcover placement: %w", err)
	}
	return result.RowsAffected()
}
