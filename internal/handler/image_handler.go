package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/woco-project/woco-api/internal/models"
	"github.com/woco-project/woco-api/internal/service"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
	"github.com/woco-project/woco-api/pkg/response"
)

// ImageHandler handles image uploads, listing, and the moderation queue.
type ImageHandler struct {
	images     *service.ImageService
	postcovers *service.PostcoverService
}

func NewImageHandler(images *service.ImageService, postcovers *service.PostcoverService) *ImageHandler {
	return &ImageHandler{images: images, postcovers: postcovers}
}

// ListForPostmark godoc
// @Summary List images attached to a postmark
// @Tags Images
// @Produce json
// @Param id path string true "Postmark ID"
// @Success 200 {object} response.Envelope
// @Router /postmarks/{id}/images [get]
func (h *ImageHandler) ListForPostmark(c *gin.Context) {
	images, err := h.images.ListForPostmark(c.Request.Context(), c.Param("id"), isModerator(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, images, nil)
}

// Primary godoc
// @Summary Get the primary approved image of a postmark
// @Tags Images
// @Produce json
// @Param id path string true "Postmark ID"
// @Success 200 {object} response.Envelope
// @Router /postmarks/{id}/images/primary [get]
func (h *ImageHandler) Primary(c *gin.Context) {
	image, err := h.images.Primary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, image, nil)
}

// UploadForPostmark godoc
// @Summary Upload a postmark image
// @Description Multipart upload. Images from moderators are approved
// @Description immediately, everything else enters the moderation queue.
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Postmark ID"
// @Param file formData file true "Image file"
// @Param image_view formData string true "Image view"
// @Success 201 {object} response.Envelope
// @Router /postmarks/{id}/images [post]
func (h *ImageHandler) UploadForPostmark(c *gin.Context) {
	req, err := uploadRequestFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	image, err := h.images.UploadForPostmark(c.Request.Context(), c.Param("id"), *req, actorID(c), isModerator(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, image)
}

// PendingQueue godoc
// @Summary List images awaiting moderation
// @Tags Images
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /postmark-images/pending [get]
func (h *ImageHandler) PendingQueue(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	images, pagination, err := h.images.PendingQueue(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, images, pagination)
}

// Approve godoc
// @Summary Approve a pending image
// @Tags Images
// @Produce json
// @Param id path string true "Image ID"
// @Success 200 {object} response.Envelope
// @Router /postmark-images/{id}/approve [post]
func (h *ImageHandler) Approve(c *gin.Context) {
	image, err := h.images.Approve(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, image, nil)
}

// Reject godoc
// @Summary Reject a pending image
// @Tags Images
// @Produce json
// @Param id path string true "Image ID"
// @Success 200 {object} response.Envelope
// @Router /postmark-images/{id}/reject [post]
func (h *ImageHandler) Reject(c *gin.Context) {
	image, err := h.images.Reject(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, image, nil)
}

// DeletePostmarkImage godoc
// @Summary Delete a postmark image and its stored file
// @Tags Images
// @Produce json
// @Param id path string true "Image ID"
// @Success 204
// @Router /postmark-images/{id} [delete]
func (h *ImageHandler) DeletePostmarkImage(c *gin.Context) {
	if err := h.images.DeletePostmarkImage(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadForPostcover godoc
// @Summary Upload a postcover image
// @Description Cover images skip moderation; only the owning collector or an
// @Description admin may upload.
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Postcover ID"
// @Param file formData file true "Image file"
// @Param image_view formData string true "Image view"
// @Success 201 {object} response.Envelope
// @Router /postcovers/{id}/images [post]
func (h *ImageHandler) UploadForPostcover(c *gin.Context) {
	actor := actorID(c)
	if err := h.postcovers.Owns(c.Request.Context(), c.Param("id"), actor, isAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}
	req, err := uploadRequestFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	image, err := h.images.UploadForPostcover(c.Request.Context(), c.Param("id"), *req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, image)
}

// DeletePostcoverImage godoc
// @Summary Delete a postcover image
// @Tags Images
// @Produce json
// @Param id path string true "Image ID"
// @Success 204
// @Router /postcover-images/{id} [delete]
func (h *ImageHandler) DeletePostcoverImage(c *gin.Context) {
	image, err := h.images.FindPostcoverImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.postcovers.Owns(c.Request.Context(), image.PostcoverID, actorID(c), isAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.images.DeletePostcoverImage(c.Request.Context(), image.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func uploadRequestFromForm(c *gin.Context) (*service.UploadImageRequest, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing file field")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}

	req := service.UploadImageRequest{
		Filename:       fileHeader.Filename,
		MimeType:       fileHeader.Header.Get("Content-Type"),
		Data:           data,
		ImageView:      c.DefaultPostForm("image_view", "FULL"),
		Description:    c.PostForm("description"),
		SubmitterName:  c.PostForm("submitter_name"),
		SubmitterEmail: c.PostForm("submitter_email"),
	}
	if raw := c.PostForm("display_order"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			req.DisplayOrder = v
		}
	}
	if raw := c.PostForm("image_width"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			req.ImageWidth = v
		}
	}
	if raw := c.PostForm("image_height"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			req.ImageHeight = v
		}
	}
	return &req, nil
}

func isAdmin(c *gin.Context) bool {
	claims := claimsFromContext(c)
	return claims != nil && claims.Role == models.RoleAdmin
}
