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

const affiliationColumns = "id, location_id, unit_id, effective_from, effective_to, source, created_at, updated_at, created_by, modified_by"

// AffiliationRepository manages the temporal edges between locations and
// administrative units.
type AffiliationRepository struct {
	db *sqlx.DB
}

// NewAffiliationRepository constructs an AffiliationRepository.
func NewAffiliationRepository(db *sqlx.DB) *AffiliationRepository {
	return &AffiliationRepository{db: db}
}

// List returns affiliations matching the filter along with the total count.
func (r *AffiliationRepository) List(ctx context.Context, filter models.AffiliationFilter) ([]models.GeographicAffiliation, int, error) {
	base := "FROM geographic_affiliations WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}
	if filter.UnitID != "" {
		conditions = append(conditions, fmt.Sprintf("unit_id = $%d", len(args)+1))
		args = append(args, filter.UnitID)
	}
	if filter.OpenOnly {
		conditions = append(conditions, "effective_to IS NULL")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY effective_from DESC LIMIT %d OFFSET %d", affiliationColumns, base, size, offset)
	var affiliations []models.GeographicAffiliation
	if err := r.db.SelectContext(ctx, &affiliations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list affiliations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count affiliations: %w", err)
	}

	return affiliations, total, nil
}

// FindByID fetches an affiliation by id.
func (r *AffiliationRepository) FindByID(ctx context.Context, id string) (*models.GeographicAffiliation, error) {
	query := fmt.Sprintf("SELECT %s FROM geographic_affiliations WHERE id = $1", affiliationColumns)
	var affiliation models.GeographicAffiliation
	if err := r.db.GetContext(ctx, &affiliation, query, id); err != nil {
		return nil, err
	}
	return &affiliation, nil
}

// Create inserts a new affiliation edge.
func (r *AffiliationRepository) Create(ctx context.Context, affiliation *models.GeographicAffiliation) error {
	if affiliation.ID == "" {
		affiliation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	affiliation.CreatedAt = now
	affiliation.UpdatedAt = now

	const query = `INSERT INTO geographic_affiliations (id, location_id, unit_id, effective_from, effective_to, source, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :location_id, :unit_id, :effective_from, :effective_to, :source, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, affiliation); err != nil {
		return fmt.Errorf("create affiliation: %w", err)
	}
	return nil
}

// Close stamps the end date on an affiliation edge.
func (r *AffiliationRepository) Close(ctx context.Context, id string, to time.Time, modifiedBy string) error {
	const query = `UPDATE geographic_affiliations SET effective_to = $2, updated_at = $3, modified_by = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, to, time.Now().UTC(), modifiedBy); err != nil {
		return fmt.Errorf("close affiliation: %w", err)
	}
	return nil
}

// HasOpen reports whether the location already has an open affiliation.
func (r *AffiliationRepository) HasOpen(ctx context.Context, locationID string) (bool, error) {
	const query = `SELECT 1 FROM geographic_affiliations WHERE location_id = $1 AND effective_to IS NULL LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, locationID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open affiliation: %w", err)
	}
	return true, nil
}

// CurrentForLocation returns the affiliations in force for a location at the
// given instant: effective_from <= asOf and (open or effective_to >= asOf).
func (r *AffiliationRepository) CurrentForLocation(ctx context.Context, locationID string, asOf time.Time) ([]models.GeographicAffiliation, error) {
	query := fmt.Sprintf(`SELECT %s FROM geographic_affiliations
		WHERE location_id = $1 AND effective_from <= $2 AND (effective_to IS NULL OR effective_to >= $2)
		ORDER BY effective_from DESC`, affiliationColumns)
	var affiliations []models.GeographicAffiliation
	if err := r.db.SelectContext(ctx, &affiliations, query, locationID, asOf); err != nil {
		return nil, fmt.Errorf("current affiliations: %w", err)
	}
	return affiliations, nil
}

// Timeline returns every affiliation for a location ordered by start date.
func (r *AffiliationRepository) Timeline(ctx context.Context, locationID string) ([]models.GeographicAffiliation, error) {
	query := fmt.Sprintf("SELECT %s FROM geographic_affiliations WHERE location_id = $1 ORDER BY effective_from ASC", affiliationColumns)
	var affiliations []models.GeographicAffiliation
	if err := r.db.SelectContext(ctx, &affiliations, query, locationID); err != nil {
		return nil, fmt.Errorf("affiliation timeline: %w", err)
	}
	return affiliations, nil
}

// LocationsInUnit returns locations affiliated with the unit at the given instant.
func (r *AffiliationRepository) LocationsInUnit(ctx context.Context, unitID string, asOf time.Time) ([]models.GeographicLocation, error) {
	query := fmt.Sprintf(`SELECT %s FROM geographic_locations WHERE id IN (
		SELECT location_id FROM geographic_affiliations
		WHERE unit_id = $1 AND effective_from <= $2 AND (effective_to IS NULL OR effective_to >= $2))
		ORDER BY location_name`, locationColumns)
	var locations []models.GeographicLocation
	if err := r.db.SelectContext(ctx, &locations, query, unitID, asOf); err != nil {
		return nil, fmt.Errorf("locations in unit: %w", err)
	}
	return locations, nil
}
