package handler

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/woco-project/woco-api/internal/models"
	"github.com/woco-project/woco-api/internal/service"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
	"github.com/woco-project/woco-api/pkg/response"
)

// ExportHandler handles catalog and collection export endpoints.
type ExportHandler struct {
	service *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// PostmarksCSV godoc
// @Summary Export filtered postmark listing as CSV
// @Description Accepts the same filter parameters as the postmark listing.
// @Tags Exports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exports/postmarks.csv [post]
func (h *ExportHandler) PostmarksCSV(c *gin.Context) {
	var filter models.PostmarkFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.LocationID = c.Query("location_id")
	filter.State = strings.TrimSpace(c.Query("state"))
	filter.Condition = c.Query("condition")
	filter.ShapeID = c.Query("shape_id")
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	result, err := h.service.PostmarksCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// PostcoversPDF godoc
// @Summary Export the caller's collection inventory as PDF
// @Tags Exports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exports/postcovers.pdf [post]
func (h *ExportHandler) PostcoversPDF(c *gin.Context) {
	result, err := h.service.PostcoversPDF(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a rendered export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, relPath, err := h.service.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	mimeType := "application/octet-stream"
	switch path.Ext(relPath) {
	case ".csv":
		mimeType = "text/csv"
	case ".pdf":
		mimeType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", path.Base(relPath)))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mimeType, file, nil)
}
