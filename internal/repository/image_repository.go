package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/woco-project/woco-api/internal/models"
)

const postmarkImageColumns = "id, postmark_id, original_filename, storage_filename, file_checksum, mime_type, image_width, image_height, file_size_bytes, image_view, description, display_order, status, submitter_name, submitter_email, created_at, updated_at, created_by, modified_by"

const postcoverImageColumns = "id, postcover_id, original_filename, storage_filename, file_checksum, mime_type, image_width, image_height, file_size_bytes, image_view, description, display_order, uploaded_by_user_id, created_at, updated_at, created_by, modified_by"

// ImageRepository manages persistence for postmark and postcover images.
// The image bytes themselves live in file storage; rows here carry only
// the metadata.
type ImageRepository struct {
	db *sqlx.DB
}

// NewImageRepository constructs an ImageRepository.
func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// ListPostmarkImages returns the images attached to a postmark ordered for
// display. When approvedOnly is set, pending and rejected submissions are
// hidden.
func (r *ImageRepository) ListPostmarkImages(ctx context.Context, postmarkID string, approvedOnly bool) ([]models.PostmarkImage, error) {
	query := fmt.Sprintf("SELECT %s FROM postmark_images WHERE postmark_id = $1", postmarkImageColumns)
	args := []interface{}{postmarkID}
	if approvedOnly {
		query += " AND status = $2"
		args = append(args, models.ImageApproved)
	}
	query += " ORDER BY display_order ASC, id ASC"

	var images []models.PostmarkImage
	if err := r.db.SelectContext(ctx, &images, query, args...); err != nil {
		return nil, fmt.Errorf("list postmark images: %w", err)
	}
	return images, nil
}

// ListPendingPostmarkImages returns the moderation queue, oldest first.
func (r *ImageRepository) ListPendingPostmarkImages(ctx context.Context, page, size int) ([]models.PostmarkImage, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM postmark_images WHERE status = $1 ORDER BY created_at ASC LIMIT %d OFFSET %d",
		postmarkImageColumns, size, offset)
	var images []models.PostmarkImage
	if err := r.db.SelectContext(ctx, &images, query, models.ImagePending); err != nil {
		return nil, 0, fmt.Errorf("list pending postmark images: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM postmark_images WHERE status = $1", models.ImagePending); err != nil {
		return nil, 0, fmt.Errorf("count pending postmark images: %w", err)
	}
	return images, total, nil
}

// FindPostmarkImage fetches a postmark image by id.
func (r *ImageRepository) FindPostmarkImage(ctx context.Context, id string) (*models.PostmarkImage, error) {
	query := fmt.Sprintf("SELECT %s FROM postmark_images WHERE id = $1", postmarkImageColumns)
	var image models.PostmarkImage
	if err := r.db.GetContext(ctx, &image, query, id); err != nil {
		return nil, err
	}
	return &image, nil
}

// CreatePostmarkImage persists metadata for a stored postmark image.
func (r *ImageRepository) CreatePostmarkImage(ctx context.Context, image *models.PostmarkImage) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	image.CreatedAt = now
	image.UpdatedAt = now

	const query = `INSERT INTO postmark_images (id, postmark_id, original_filename, storage_filename, file_checksum, mime_type, image_width, image_height, file_size_bytes, image_view, description, display_order, status, submitter_name, submitter_email, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :postmark_id, :original_filename, :storage_filename, :file_checksum, :mime_type, :image_width, :image_height, :file_size_bytes, :image_view, :description, :display_order, :status, :submitter_name, :submitter_email, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("create postmark image: %w", err)
	}
	return nil
}

// SetPostmarkImageStatus moves an image through the moderation workflow.
func (r *ImageRepository) SetPostmarkImageStatus(ctx context.Context, id string, status models.ImageStatus, modifiedBy string) error {
	const query = `UPDATE postmark_images SET status = $1, updated_at = $2, modified_by = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), modifiedBy, id); err != nil {
		return fmt.Errorf("set postmark image status: %w", err)
	}
	return nil
}

// DeletePostmarkImage removes a postmark image row.
func (r *ImageRepository) DeletePostmarkImage(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM postmark_images WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete postmark image: %w", err)
	}
	return nil
}

// ListPostcoverImages returns a cover's images in display order.
func (r *ImageRepository) ListPostcoverImages(ctx context.Context, postcoverID string) ([]models.PostcoverImage, error) {
	query := fmt.Sprintf("SELECT %s FROM postcover_images WHERE postcover_id = $1 ORDER BY display_order ASC, id ASC", postcoverImageColumns)
	var images []models.PostcoverImage
	if err := r.db.SelectContext(ctx, &images, query, postcoverID); err != nil {
		return nil, fmt.Errorf("list postcover images: %w", err)
	}
	return images, nil
}

// FindPostcoverImage fetches a postcover image by id.
func (r *ImageRepository) FindPostcoverImage(ctx context.Context, id string) (*models.PostcoverImage, error) {
	query := fmt.Sprintf("SELECT %s FROM postcover_images WHERE id = $1", postcoverImageColumns)
	var image models.PostcoverImage
	if err := r.db.GetContext(ctx, &image, query, id); err != nil {
		return nil, err
	}
	return &image, nil
}

// CreatePostcoverImage persists metadata for a stored cover image.
func (r *ImageRepository) CreatePostcoverImage(ctx context.Context, image *models.PostcoverImage) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	image.CreatedAt = now
	image.UpdatedAt = now

	const query = `INSERT INTO postcover_images (id, postcover_id, original_filename, storage_filename, file_checksum, mime_type, image_width, image_height, file_size_bytes, image_view, description, display_order, uploaded_by_user_id, created_at, updated_at, created_by, modified_by)
		VALUES (:id, :postcover_id, :original_filename, :storage_filename, :file_checksum, :mime_type, :image_width, :image_height, :file_size_bytes, :image_view, :description, :display_order, :uploaded_by_user_id, :created_at, :updated_at, :created_by, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("create postcover image: %w", err)
	}
	return nil
}

// DeletePostcoverImage removes a cover image row.
func (r *ImageRepository) DeletePostcoverImage(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM postcover_images WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete postcover image: %w", err)
	}
	return nil
}
