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

const locationColumns = "id, location_name, location_type, latitude, longitude, created_at, updated_at, created_by, modified_by"

// LocationRepository manages persistence for geographic locations.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository constructs a LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// List returns locations matching the filter along with the total count.
func (r *LocationRepository) List(ctx context.Context, filter models.LocationFilter) ([]models.GeographicLocation, int, error) {
	base := "FROM geographic_locations WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.LocationType != "" {
		conditions = append(conditions, fmt.Sprintf("location_type = $%d", len(args)+1))
		args = append(args, filter.LocationType)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("LOWER(location_name) LIKE $%d", len(args)+1))
		args = append(args, search)
	}
	if filter.CurrentState != "" {
		conditions = append(conditions, fmt.Sprintf(`id IN (
			SELECT a.location_id FROM geographic_affiliations a
			JOIN administrative_units u ON u.id = a.unit_id
			WHERE a.effective_to IS NULL AND (LOWER(u.abbreviation) = LOWER($%d) OR LOWER(u.unit_name) LIKE LOWER($%d)))`,
			len(args)+1, len(args)+2))
		args = append(args, filter.CurrentState, "%"+filter.CurrentState+"%")
	}
	if filter.LatitudeMin != nil {
		conditions = append(conditions, fmt.Sprintf("latitude >= $%d", len(args)+1))
		args = append(args, *filter.LatitudeMin)
	}
	if filter.LatitudeMax != nil {
		conditions = append(conditions, fmt.Sprintf("latitude <= $%d", len(args)+1))
		args = append(args, *filter.LatitudeMax)
	}
	if filter.LongitudeMin != nil {
		conditions = append(conditions, fmt.Sprintf("longitude >= $%d", len(args)+1))
		args = append(args, *filter.LongitudeMin)
	}
	if filter.LongitudeMax != nil {
		conditions = append(conditions, fmt.Sprintf("longitude <= $%d", len(args)+1))
		args = append(args, *filter.LongitudeMax)
	}
	if filter.HasCoordinates != nil {
		if *filter.HasCoordinates {
			conditions = append(conditions, "latitude IS NOT NULL AND longitude IS NOT NULL")
		} else {
			conditions = append(conditions, "(latitude IS NULL OR longitude IS NULL)")
		}
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"location_name": "location_name",
		"location_type": "location_type",
		"created_at":    "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "location_name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", locationColumns, base, column, order, size, offset)
	var locations []models.GeographicLocation
	if err := r.db.SelectContext(ctx, &locations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list locations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count locations: %w", err)
	}

	return locations, total, nil
}

// FindByID fetches a location by id.
func (r *LocationRepository) FindByID(ctx context.Context, id string) (*models.GeographicLocation, error) {
	query := fmt.Sprintf("SELECT %s FROM geographic_locations WHERE id = $1", locationColumns)
	var location models.GeographicLocation
	if err := r.db.GetContext(ctx, &location, query, id); err != nil {
		return nil, err
	}
	return &location, nil
}

// Create inserts a new location record.
func (r *LocationRepository) Create(ctx context.Context, location *models.GeographicLocation) error {
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	location.CreatedAt = now
	location.UpdatedAt = now

	const query = `INSERT INTO geographic_locations (id, location_name, location_type, latitude, longitude, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :location_name, :location_type, :latitude, :longitude, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, location); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// Update modifies an existing location record.
func (r *LocationRepository) Update(ctx context.Context, location *models.GeographicLocation) error {
	location.UpdatedAt = time.Now().UTC()
	const query = `UPDATE geographic_locations SET location_name = :location_name, location_type = :location_type,
		latitude = :latitude, longitude = :longitude, updated_at = :updated_at, modified_by = :modified_by WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, location); err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}

// CountPostmarks returns how many postmarks reference the location.
func (r *LocationRepository) CountPostmarks(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM postmarks WHERE location_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("count location postmarks: %w", err)
	}
	return count, nil
}

// Delete removes a location and its affiliation edges in one transaction.
// Callers must check for referencing postmarks first.
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete location: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM geographic_affiliations WHERE location_id = $1`, id); err != nil {
		return fmt.Errorf("delete location affiliations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM geographic_locations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	return tx.Commit()
}
