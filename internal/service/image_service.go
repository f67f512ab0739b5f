package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type imageRepository interface {
	ListPostmarkImages(ctx context.Context, postmarkID string, approvedOnly bool) ([]models.PostmarkImage, error)
	ListPendingPostmarkImages(ctx context.Context, page, size int) ([]models.PostmarkImage, int, error)
	FindPostmarkImage(ctx context.Context, id string) (*models.PostmarkImage, error)
	CreatePostmarkImage(ctx context.Context, image *models.PostmarkImage) error
	SetPostmarkImageStatus(ctx context.Context, id string, status models.ImageStatus, modifiedBy string) error
	DeletePostmarkImage(ctx context.Context, id string) error
	ListPostcoverImages(ctx context.Context, postcoverID string) ([]models.PostcoverImage, error)
	FindPostcoverImage(ctx context.Context, id string) (*models.PostcoverImage, error)
	CreatePostcoverImage(ctx context.Context, image *models.PostcoverImage) error
	DeletePostcoverImage(ctx context.Context, id string) error
}

type imageFileStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

type imagePostmarkLookup interface {
	FindByID(ctx context.Context, id string) (*models.Postmark, error)
}

// UploadImageRequest carries the file bytes and metadata for an image
// upload. Width and height come from the client since the server does not
// decode image formats.
type UploadImageRequest struct {
	Filename       string `validate:"required"`
	MimeType       string `validate:"required"`
	Data           []byte `validate:"required"`
	ImageView      string `validate:"required,oneof=FULL DETAIL COMPARISON FRONT BACK INTERIOR"`
	Description    string
	DisplayOrder   int
	ImageWidth     int
	ImageHeight    int
	SubmitterName  string
	SubmitterEmail string `validate:"omitempty,email"`
}

// ImageService handles image upload, storage, and the moderation workflow
// for postmark images. Cover images skip moderation since owners manage
// their own collections.
type ImageService struct {
	repo         imageRepository
	store        imageFileStore
	postmarks    imagePostmarkLookup
	maxFileSize  int64
	allowedMIMEs map[string]bool
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewImageService creates a new image service.
func NewImageService(repo imageRepository, store imageFileStore, postmarks imagePostmarkLookup, maxFileSize int64, allowedMIMEs []string, validate *validator.Validate, logger *zap.Logger) *ImageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	mimes := make(map[string]bool, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		mimes[strings.ToLower(strings.TrimSpace(m))] = true
	}
	if len(mimes) == 0 {
		mimes["image/jpeg"] = true
		mimes["image/png"] = true
	}
	return &ImageService{
		repo:         repo,
		store:        store,
		postmarks:    postmarks,
		maxFileSize:  maxFileSize,
		allowedMIMEs: mimes,
		validator:    validate,
		logger:       logger,
	}
}

// ListForPostmark returns a postmark's images, approved only unless the
// caller moderates.
func (s *ImageService) ListForPostmark(ctx context.Context, postmarkID string, includePending bool) ([]models.PostmarkImage, error) {
	if _, err := s.postmarks.FindByID(ctx, postmarkID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "postmark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark")
	}
	images, err := s.repo.ListPostmarkImages(ctx, postmarkID, !includePending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list images")
	}
	return images, nil
}

// PendingQueue returns the moderation queue.
func (s *ImageService) PendingQueue(ctx context.Context, page, size int) ([]models.PostmarkImage, *models.Pagination, error) {
	images, total, err := s.repo.ListPendingPostmarkImages(ctx, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending images")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return images, pagination, nil
}

// Primary returns the image shown first for a postmark: lowest display
// order among approved images, lowest id breaking ties. A postmark with no
// approved images has no primary.
func (s *ImageService) Primary(ctx context.Context, postmarkID string) (*models.PostmarkImage, error) {
	images, err := s.ListForPostmark(ctx, postmarkID, false)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "postmark has no approved images")
	}
	return &images[0], nil
}

// UploadForPostmark stores a postmark image. Uploads from moderators are
// approved immediately; everything else enters the moderation queue and
// stays hidden until approved.
func (s *ImageService) UploadForPostmark(ctx context.Context, postmarkID string, req UploadImageRequest, actor string, autoApprove bool) (*models.PostmarkImage, error) {
	if _, err := s.postmarks.FindByID(ctx, postmarkID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "postmark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load postmark")
	}

	meta, err := s.storeFile(req, "postmarks")
	if err != nil {
		return nil, err
	}

	status := models.ImagePending
	if autoApprove {
		status = models.ImageApproved
	}
	image := &models.PostmarkImage{
		PostmarkID:     postmarkID,
		ImageMeta:      *meta,
		Status:         status,
		SubmitterName:  strings.TrimSpace(req.SubmitterName),
		SubmitterEmail: strings.TrimSpace(req.SubmitterEmail),
	}
	image.CreatedBy = actor
	image.ModifiedBy = actor

	if err := s.repo.CreatePostmarkImage(ctx, image); err != nil {
		if delErr := s.store.Delete(meta.StorageFilename); delErr != nil {
			s.logger.Warn("orphaned image file", zap.String("filename", meta.StorageFilename), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save image")
	}
	s.logger.Info("postmark image stored",
		zap.String("postmark_id", postmarkID),
		zap.String("image_id", image.ID),
		zap.String("status", string(status)))
	return image, nil
}

// Approve moves a pending image into the visible set.
func (s *ImageService) Approve(ctx context.Context, imageID, actor string) (*models.PostmarkImage, error) {
	return s.moderate(ctx, imageID, models.ImageApproved, actor)
}

// Reject marks a pending image rejected. The file stays on disk for audit.
func (s *ImageService) Reject(ctx context.Context, imageID, actor string) (*models.PostmarkImage, error) {
	return s.moderate(ctx, imageID, models.ImageRejected, actor)
}

func (s *ImageService) moderate(ctx context.Context, imageID string, status models.ImageStatus, actor string) (*models.PostmarkImage, error) {
	image, err := s.repo.FindPostmarkImage(ctx, imageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load image")
	}
	if image.Status != models.ImagePending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "image already moderated")
	}

	if err := s.repo.SetPostmarkImageStatus(ctx, imageID, status, actor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update image status")
	}
	image.Status = status
	image.ModifiedBy = actor
	s.logger.Info("postmark image moderated", zap.String("image_id", imageID), zap.String("status", string(status)))
	return image, nil
}

// DeletePostmarkImage removes the row and the stored file.
func (s *ImageService) DeletePostmarkImage(ctx context.Context, imageID string) error {
	image, err := s.repo.FindPostmarkImage(ctx, imageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load image")
	}
	if err := s.repo.DeletePostmarkImage(ctx, imageID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete image")
	}
	if err := s.store.Delete(image.StorageFilename); err != nil {
		s.logger.Warn("orphaned image file", zap.String("filename", image.StorageFilename), zap.Error(err))
	}
	return nil
}

// UploadForPostcover stores a cover image without moderation.
func (s *ImageService) UploadForPostcover(ctx context.Context, postcoverID string, req UploadImageRequest, actor string) (*models.PostcoverImage, error) {
	meta, err := s.storeFile(req, "postcovers")
	if err != nil {
		return nil, err
	}

	image := &models.PostcoverImage{
		PostcoverID:      postcoverID,
		ImageMeta:        *meta,
		UploadedByUserID: actor,
	}
	image.CreatedBy = actor
	image.ModifiedBy = actor

	if err := s.repo.CreatePostcoverImage(ctx, image); err != nil {
		if delErr := s.store.Delete(meta.StorageFilename); delErr != nil {
			s.logger.Warn("orphaned image file", zap.String("filename", meta.StorageFilename), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save image")
	}
	return image, nil
}

// DeletePostcoverImage removes the row and the stored file.
func (s *ImageService) DeletePostcoverImage(ctx context.Context, imageID string) error {
	image, err := s.repo.FindPostcoverImage(ctx, imageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load image")
	}
	if err := s.repo.DeletePostcoverImage(ctx, imageID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete image")
	}
	if err := s.store.Delete(image.StorageFilename); err != nil {
		s.logger.Warn("orphaned image file", zap.String("filename", image.StorageFilename), zap.Error(err))
	}
	return nil
}

// FindPostcoverImage returns a cover image row, used for ownership checks.
func (s *ImageService) FindPostcoverImage(ctx context.Context, imageID string) (*models.PostcoverImage, error) {
	image, err := s.repo.FindPostcoverImage(ctx, imageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load image")
	}
	return image, nil
}

// storeFile validates the upload and writes it to disk under a generated
// name. The sha256 checksum lets duplicate submissions be spotted later.
func (s *ImageService) storeFile(req UploadImageRequest, prefix string) (*models.ImageMeta, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid image payload")
	}
	if int64(len(req.Data)) > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image exceeds the size limit")
	}
	mime := strings.ToLower(strings.TrimSpace(req.MimeType))
	if !s.allowedMIMEs[mime] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported image type")
	}

	sum := sha256.Sum256(req.Data)
	ext := filepath.Ext(req.Filename)
	storageName := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)
	if _, err := s.store.Save(storageName, req.Data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image file")
	}

	return &models.ImageMeta{
		OriginalFilename: filepath.Base(req.Filename),
		StorageFilename:  storageName,
		FileChecksum:     hex.EncodeToString(sum[:]),
		MimeType:         mime,
		ImageWidth:       req.ImageWidth,
		ImageHeight:      req.ImageHeight,
		FileSizeBytes:    int64(len(req.Data)),
		ImageView:        models.ImageView(req.ImageView),
		Description:      strings.TrimSpace(req.Description),
		DisplayOrder:     req.DisplayOrder,
	}, nil
}
