package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/woco-project/woco-api/internal/middleware"
	"github.com/woco-project/woco-api/internal/models"
	"github.com/woco-project/woco-api/internal/service"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
	"github.com/woco-project/woco-api/pkg/response"
)

// ReferenceHandler serves one lookup kind (shapes, lettering styles,
// framing styles, date formats). One handler instance is registered per
// route group.
type ReferenceHandler struct {
	service *service.ReferenceService
	kind    models.ReferenceKind
}

// NewReferenceHandler constructs a reference handler bound to a kind.
func NewReferenceHandler(svc *service.ReferenceService, kind models.ReferenceKind) *ReferenceHandler {
	return &ReferenceHandler{service: svc, kind: kind}
}

// List godoc
// @Summary List lookup rows
// @Tags References
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /shapes [get]
func (h *ReferenceHandler) List(c *gin.Context) {
	var filter models.ReferenceFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortOrder = c.Query("order")

	start := time.Now()
	items, pagination, cacheHit, err := h.service.List(c.Request.Context(), h.kind, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, items, pagination, meta)
}

// Get godoc
// @Summary Get lookup row by id
// @Tags References
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /shapes/{id} [get]
func (h *ReferenceHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), h.kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create lookup row
// @Tags References
// @Accept json
// @Produce json
// @Param payload body service.ReferenceItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Router /shapes [post]
func (h *ReferenceHandler) Create(c *gin.Context) {
	var req service.ReferenceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), h.kind, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update lookup row
// @Tags References
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body service.ReferenceItemRequest true "Item payload"
// @Success 200 {object} response.Envelope
// @Router /shapes/{id} [put]
func (h *ReferenceHandler) Update(c *gin.Context) {
	var req service.ReferenceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), h.kind, c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete lookup row
// @Tags References
// @Produce json
// @Param id path string true "Item ID"
// @Success 204
// @Router /shapes/{id} [delete]
func (h *ReferenceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), h.kind, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
