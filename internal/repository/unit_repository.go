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

const unitColumns = "id, parent_id, unit_name, abbreviation, unit_type, hierarchy_level, is_active, created_at, updated_at, created_by, modified_by"

// UnitRepository manages persistence for administrative units and their
// append-only history tables.
type UnitRepository struct {
	db *sqlx.DB
}

// NewUnitRepository constructs a UnitRepository.
func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// List returns units matching the filter along with the total count.
func (r *UnitRepository) List(ctx context.Context, filter models.UnitFilter) ([]models.AdministrativeUnit, int, error) {
	base := "FROM administrative_units WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.UnitType != "" {
		conditions = append(conditions, fmt.Sprintf("unit_type = $%d", len(args)+1))
		args = append(args, filter.UnitType)
	}
	if filter.Abbreviation != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(abbreviation) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Abbreviation)
	}
	if filter.Level != nil {
		conditions = append(conditions, fmt.Sprintf("hierarchy_level = $%d", len(args)+1))
		args = append(args, *filter.Level)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(unit_name) LIKE $%d OR LOWER(abbreviation) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"unit_name":       "unit_name",
		"hierarchy_level": "hierarchy_level",
		"created_at":      "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "hierarchy_level"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, unit_name ASC LIMIT %d OFFSET %d", unitColumns, base, column, order, size, offset)
	var units []models.AdministrativeUnit
	if err := r.db.SelectContext(ctx, &units, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list units: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count units: %w", err)
	}

	return units, total, nil
}

// FindByID fetches a unit by id.
func (r *UnitRepository) FindByID(ctx context.Context, id string) (*models.AdministrativeUnit, error) {
	query := fmt.Sprintf("SELECT %s FROM administrative_units WHERE id = $1", unitColumns)
	var unit models.AdministrativeUnit
	if err := r.db.GetContext(ctx, &unit, query, id); err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListChildren returns the direct children of a unit.
func (r *UnitRepository) ListChildren(ctx context.Context, parentID string) ([]models.AdministrativeUnit, error) {
	query := fmt.Sprintf("SELECT %s FROM administrative_units WHERE parent_id = $1 ORDER BY unit_name", unitColumns)
	var units []models.AdministrativeUnit
	if err := r.db.SelectContext(ctx, &units, query, parentID); err != nil {
		return nil, fmt.Errorf("list unit children: %w", err)
	}
	return units, nil
}

// Create inserts a new unit record.
func (r *UnitRepository) Create(ctx context.Context, unit *models.AdministrativeUnit) error {
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	unit.CreatedAt = now
	unit.UpdatedAt = now

	const query = `INSERT INTO administrative_units (id, parent_id, unit_name, abbreviation, unit_type, hierarchy_level, is_active, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :parent_id, :unit_name, :abbreviation, :unit_type, :hierarchy_level, :is_active, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, unit); err != nil {
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

// Update modifies an existing unit record.
func (r *UnitRepository) Update(ctx context.Context, unit *models.AdministrativeUnit) error {
	unit.UpdatedAt = time.Now().UTC()
	const query = `UPDATE administrative_units SET parent_id = :parent_id, unit_name = :unit_name, abbreviation = :abbreviation,
		unit_type = :unit_type, hierarchy_level = :hierarchy_level, is_active = :is_active, updated_at = :updated_at, modified_by = :modified_by
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, unit); err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	return nil
}

// CountChildren returns the number of direct children.
func (r *UnitRepository) CountChildren(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM administrative_units WHERE parent_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count unit children: %w", err)
	}
	return count, nil
}

// CountAffiliations returns the number of affiliation edges touching the unit.
func (r *UnitRepository) CountAffiliations(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM geographic_affiliations WHERE unit_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count unit affiliations: %w", err)
	}
	return count, nil
}

// Delete removes a unit. Callers must verify it has no children and governs
// no locations first.
func (r *UnitRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM administrative_units WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return nil
}

// AppendNameHistory records a rename snapshot.
func (r *UnitRepository) AppendNameHistory(ctx context.Context, entry *models.UnitNameHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO unit_name_history (id, unit_id, historical_name, historical_abbr, effective_from, effective_to, created_at, created_by)
		VALUES (:id, :unit_id, :historical_name, :historical_abbr, :effective_from, :effective_to, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append unit name history: %w", err)
	}
	return nil
}

// AppendHistory records a structural snapshot.
func (r *UnitRepository) AppendHistory(ctx context.Context, entry *models.UnitHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO unit_history (id, unit_id, parent_id, unit_name, abbreviation, unit_type, hierarchy_level, is_active, effective_from, effective_to, change_reason, created_at, created_by)
		VALUES (:id, :unit_id, :parent_id, :unit_name, :abbreviation, :unit_type, :hierarchy_level, :is_active, :effective_from, :effective_to, :change_reason, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append unit history: %w", err)
	}
	return nil
}

// ListNameHistory returns rename snapshots, most recent first.
func (r *UnitRepository) ListNameHistory(ctx context.Context, unitID string) ([]models.UnitNameHistory, error) {
	const query = `SELECT id, unit_id, historical_name, historical_abbr, effective_from, effective_to, created_at, created_by
		FROM unit_name_history WHERE unit_id = $1 ORDER BY effective_from DESC`
	var entries []models.UnitNameHistory
	if err := r.db.SelectContext(ctx, &entries, query, unitID); err != nil {
		return nil, fmt.Errorf("list unit name history: %w", err)
	}
	return entries, nil
}

// ListHistory returns structural snapshots, most recent first.
func (r *UnitRepository) ListHistory(ctx context.Context, unitID string) ([]models.UnitHistory, error) {
	const query = `SELECT id, unit_id, parent_id, unit_name, abbreviation, unit_type, hierarchy_level, is_active, effective_from, effective_to, change_reason, created_at, created_by
		FROM unit_history WHERE unit_id = $1 ORDER BY effective_from DESC`
	var entries []models.UnitHistory
	if err := r.db.SelectContext(ctx, &entries, query, unitID); err != nil {
		return nil, fmt.Errorf("list unit history: %w", err)
	}
	return entries, nil
}

// FindByAbbreviationOrName resolves units whose abbreviation matches exactly
// or whose name contains the given term.
func (r *UnitRepository) FindByAbbreviationOrName(ctx context.Context, term string) ([]models.AdministrativeUnit, error) {
	query := fmt.Sprintf(`SELECT %s FROM administrative_units
		WHERE LOWER(abbreviation) = LOWER($1) OR LOWER(unit_name) LIKE LOWER($2) ORDER BY unit_name`, unitColumns)
	var units []models.AdministrativeUnit
	if err := r.db.SelectContext(ctx, &units, query, term, "%"+term+"%"); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find units by term: %w", err)
	}
	return units, nil
}
