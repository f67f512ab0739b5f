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

const postmarkColumns = "p.id, p.postmark_key, p.location_id, p.shape_id, p.lettering_style_id, p.framing_style_id, p.date_format_id, p.rate_location, p.rate_value, p.condition, p.is_manuscript, p.other_characteristics, p.created_at, p.updated_at, p.created_by, p.modified_by"

// PostmarkRepository manages persistence for catalog postmarks.
type PostmarkRepository struct {
	db *sqlx.DB
}

// NewPostmarkRepository constructs a PostmarkRepository.
func NewPostmarkRepository(db *sqlx.DB) *PostmarkRepository {
	return &PostmarkRepository{db: db}
}

// List returns postmarks matching the filter along with the total count.
// Predicates over child facts (dates seen, colors, valuations, images,
// publication references) are expressed as EXISTS subqueries so the result
// set never duplicates rows.
func (r *PostmarkRepository) List(ctx context.Context, filter models.PostmarkFilter) ([]models.Postmark, int, error) {
	base := "FROM postmarks p WHERE 1=1"
	var conditions []string
	var args []interface{}

	add := func(condition string, vals ...interface{}) {
		placeholderIdx := len(args)
		for range vals {
			placeholderIdx++
			condition = strings.Replace(condition, "?", fmt.Sprintf("$%d", placeholderIdx), 1)
		}
		conditions = append(conditions, condition)
		args = append(args, vals...)
	}

	if filter.Key != "" {
		add("LOWER(p.postmark_key) LIKE ?", "%"+strings.ToLower(filter.Key)+"%")
	}
	if filter.LocationID != "" {
		add("p.location_id = ?", filter.LocationID)
	}
	if filter.ShapeID != "" {
		add("p.shape_id = ?", filter.ShapeID)
	}
	if filter.LetteringID != "" {
		add("p.lettering_style_id = ?", filter.LetteringID)
	}
	if filter.FramingID != "" {
		add("p.framing_style_id = ?", filter.FramingID)
	}
	if filter.DateFormatID != "" {
		add("p.date_format_id = ?", filter.DateFormatID)
	}
	if filter.RateLocation != "" {
		add("p.rate_location = ?", filter.RateLocation)
	}
	if filter.RateValue != "" {
		add("LOWER(p.rate_value) LIKE ?", "%"+strings.ToLower(filter.RateValue)+"%")
	}
	if filter.Condition != "" {
		add("p.condition = ?", filter.Condition)
	}
	if filter.IsManuscript != nil {
		add("p.is_manuscript = ?", *filter.IsManuscript)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		add(`(LOWER(p.postmark_key) LIKE ? OR LOWER(p.rate_value) LIKE ? OR LOWER(p.other_characteristics) LIKE ?
			OR p.location_id IN (SELECT id FROM geographic_locations WHERE LOWER(location_name) LIKE ?))`,
			search, search, search, search)
	}
	if filter.LocationName != "" {
		add("p.location_id IN (SELECT id FROM geographic_locations WHERE LOWER(location_name) LIKE ?)",
			"%"+strings.ToLower(filter.LocationName)+"%")
	}
	if filter.LocationType != "" {
		add("p.location_id IN (SELECT id FROM geographic_locations WHERE location_type = ?)", filter.LocationType)
	}
	if filter.State != "" {
		// Current-affiliation resolution by unit abbreviation or name.
		add(`p.location_id IN (
			SELECT a.location_id FROM geographic_affiliations a
			JOIN administrative_units u ON u.id = a.unit_id
			WHERE a.effective_to IS NULL AND (LOWER(u.abbreviation) = LOWER(?) OR LOWER(u.unit_name) LIKE LOWER(?)))`,
			filter.State, "%"+filter.State+"%")
	}
	if filter.EarliestYearMin != nil {
		add("EXISTS (SELECT 1 FROM postmark_date_ranges d WHERE d.postmark_id = p.id AND EXTRACT(YEAR FROM d.earliest_seen) >= ?)", *filter.EarliestYearMin)
	}
	if filter.EarliestYearMax != nil {
		add("EXISTS (SELECT 1 FROM postmark_date_ranges d WHERE d.postmark_id = p.id AND EXTRACT(YEAR FROM d.earliest_seen) <= ?)", *filter.EarliestYearMax)
	}
	if filter.LatestYearMin != nil {
		add("EXISTS (SELECT 1 FROM postmark_date_ranges d WHERE d.postmark_id = p.id AND EXTRACT(YEAR FROM d.latest_seen) >= ?)", *filter.LatestYearMin)
	}
	if filter.LatestYearMax != nil {
		add("EXISTS (SELECT 1 FROM postmark_date_ranges d WHERE d.postmark_id = p.id AND EXTRACT(YEAR FROM d.latest_seen) <= ?)", *filter.LatestYearMax)
	}
	if filter.Color != "" {
		add(`EXISTS (SELECT 1 FROM postmark_colors pc JOIN colors c ON c.id = pc.color_id
			WHERE pc.postmark_id = p.id AND LOWER(c.color_name) = LOWER(?))`, filter.Color)
	}
	if filter.ValueMin != nil {
		add("EXISTS (SELECT 1 FROM postmark_valuations v WHERE v.postmark_id = p.id AND v.estimated_value >= ?)", *filter.ValueMin)
	}
	if filter.ValueMax != nil {
		add("EXISTS (SELECT 1 FROM postmark_valuations v WHERE v.postmark_id = p.id AND v.estimated_value <= ?)", *filter.ValueMax)
	}
	if filter.HasImages != nil {
		if *filter.HasImages {
			add("EXISTS (SELECT 1 FROM postmark_images i WHERE i.postmark_id = p.id)")
		} else {
			add("NOT EXISTS (SELECT 1 FROM postmark_images i WHERE i.postmark_id = p.id)")
		}
	}
	if filter.PublicationID != "" {
		add("EXISTS (SELECT 1 FROM publication_references pr WHERE pr.postmark_id = p.id AND pr.publication_id = ?)", filter.PublicationID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"postmark_key": "p.postmark_key",
		"rate_value":   "p.rate_value",
		"created_at":   "p.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "p.postmark_key"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", postmarkColumns, base, column, order, size, offset)
	var postmarks []models.Postmark
	if err := r.db.SelectContext(ctx, &postmarks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list postmarks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count postmarks: %w", err)
	}

	return postmarks, total, nil
}

// FindByID fetches a postmark by id.
func (r *PostmarkRepository) FindByID(ctx context.Context, id string) (*models.Postmark, error) {
	query := fmt.Sprintf("SELECT %s FROM postmarks p WHERE p.id = $1", postmarkColumns)
	var postmark models.Postmark
	if err := r.db.GetContext(ctx, &postmark, query, id); err != nil {
		return nil, err
	}
	return &postmark, nil
}

// ExistsByKey checks whether another postmark already uses the key.
func (r *PostmarkRepository) ExistsByKey(ctx context.Context, key, excludeID string) (bool, error) {
	query := "SELECT 1 FROM postmarks WHERE LOWER(postmark_key) = LOWER($1)"
	args := []interface{}{key}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check postmark key: %w", err)
	}
	return true, nil
}

// CreateWithFacts inserts a postmark together with its nested child facts
// in one transaction, so a failed fact insert rolls back the parent row.
func (r *PostmarkRepository) CreateWithFacts(ctx context.Context, postmark *models.Postmark, colors []models.PostmarkColor, dateRanges []models.PostmarkDateRange, sizes []models.PostmarkSize, references []models.PublicationReference) error {
	if postmark.ID == "" {
		postmark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	postmark.CreatedAt = now
	postmark.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create postmark: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertPostmark = `INSERT INTO postmarks (id, postmark_key, location_id, shape_id, lettering_style_id, framing_style_id, date_format_id, rate_location, rate_value, condition, is_manuscript, other_characteristics, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :postmark_key, :location_id, :shape_id, :lettering_style_id, :framing_style_id, :date_format_id, :rate_location, :rate_value, :condition, :is_manuscript, :other_characteristics, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := tx.NamedExecContext(ctx, insertPostmark, postmark); err != nil {
		return fmt.Errorf("create postmark: %w", err)
	}

	const insertColor = `INSERT INTO postmark_colors (id, postmark_id, color_id, created_at, created_by)
		VALUES (:id, :postmark_id, :color_id, :created_at, :created_by)`
	for i := range colors {
		link := &colors[i]
		link.ID = uuid.NewString()
		link.PostmarkID = postmark.ID
		link.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertColor, link); err != nil {
			return fmt.Errorf("create postmark color: %w", err)
		}
	}

	const insertDateRange = `INSERT INTO postmark_date_ranges (id, postmark_id, earliest_seen, latest_seen, created_at, created_by)
		VALUES (:id, :postmark_id, :earliest_seen, :latest_seen, :created_at, :created_by)`
	for i := range dateRanges {
		dr := &dateRanges[i]
		dr.ID = uuid.NewString()
		dr.PostmarkID = postmark.ID
		dr.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertDateRange, dr); err != nil {
			return fmt.Errorf("create postmark date range: %w", err)
		}
	}

	const insertSize = `INSERT INTO postmark_sizes (id, postmark_id, width, height, size_notes, created_at, created_by)
		VALUES (:id, :postmark_id, :width, :height, :size_notes, :created_at, :created_by)`
	for i := range sizes {
		size := &sizes[i]
		size.ID = uuid.NewString()
		size.PostmarkID = postmark.ID
		size.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertSize, size); err != nil {
			return fmt.Errorf("create postmark size: %w", err)
		}
	}

	const insertReference = `INSERT INTO publication_references (id, postmark_id, publication_id, published_id, reference_location, created_at, created_by)
		VALUES (:id, :postmark_id, :publication_id, :published_id, :reference_location, :created_at, :created_by)`
	for i := range references {
		ref := &references[i]
		ref.ID = uuid.NewString()
		ref.PostmarkID = postmark.ID
		ref.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertReference, ref); err != nil {
			return fmt.Errorf("create publication reference: %w", err)
		}
	}

	return tx.Commit()
}

// Update modifies an existing postmark record.
func (r *PostmarkRepository) Update(ctx context.Context, postmark *models.Postmark) error {
	postmark.UpdatedAt = time.Now().UTC()
	const query = `UPDATE postmarks SET postmark_key = :postmark_key, location_id = :location_id, shape_id = :shape_id,
		lettering_style_id = :lettering_style_id, framing_style_id = :framing_style_id, date_format_id = :date_format_id,
		rate_location = :rate_location, rate_value = :rate_value, condition = :condition, is_manuscript = :is_manuscript,
		other_characteristics = :other_characteristics, updated_at = :updated_at, modified_by = :modified_by
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, postmark); err != nil {
		return fmt.Errorf("update postmark: %w", err)
	}
	return nil
}

// Delete removes a postmark and cascades to all owned child facts in one
// transaction. Placements on covers referencing the postmark go too.
func (r *PostmarkRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete postmark: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	children := []string{
		`DELETE FROM postmark_colors WHERE postmark_id = $1`,
		`DELETE FROM postmark_date_ranges WHERE postmark_id = $1`,
		`DELETE FROM postmark_sizes WHERE postmark_id = $1`,
		`DELETE FROM postmark_valuations WHERE postmark_id = $1`,
		`DELETE FROM postmark_images WHERE postmark_id = $1`,
		`DELETE FROM publication_references WHERE postmark_id = $1`,
		`DELETE FROM postcover_placements WHERE postmark_id = $1`,
		`DELETE FROM postmarks WHERE id = $1`,
	}
	for _, stmt := range children {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete postmark: %w", err)
		}
	}
	return tx.Commit()
}
