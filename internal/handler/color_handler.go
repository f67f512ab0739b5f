package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/woco-project/woco-api/internal/models"
	"github.com/woco-project/woco-api/internal/service"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
	"github.com/woco-project/woco-api/pkg/response"
)

// ColorHandler handles ink color lookup endpoints.
type ColorHandler struct {
	service *service.ColorService
}

// NewColorHandler constructs a color handler.
func NewColorHandler(svc *service.ColorService) *ColorHandler {
	return &ColorHandler{service: svc}
}

// List godoc
// @Summary List colors
// @Tags Colors
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /colors [get]
func (h *ColorHandler) List(c *gin.Context) {
	var filter models.ReferenceFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortOrder = c.Query("order")

	colors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, colors, pagination)
}

// Get godoc
// @Summary Get color by id
// @Tags Colors
// @Produce json
// @Param id path string true "Color ID"
// @Success 200 {object} response.Envelope
// @Router /colors/{id} [get]
func (h *ColorHandler) Get(c *gin.Context) {
	color, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, color, nil)
}

// Create godoc
// @Summary Create color
// @Tags Colors
// @Accept json
// @Produce json
// @Param payload body service.ColorRequest true "Color payload"
// @Success 201 {object} response.Envelope
// @Router /colors [post]
func (h *ColorHandler) Create(c *gin.Context) {
	var req service.ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	color, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, color)
}

// Update godoc
// @Summary Update color
// @Tags Colors
// @Accept json
// @Produce json
// @Param id path string true "Color ID"
// @Param payload body service.ColorRequest true "Color payload"
// @Success 200 {object} response.Envelope
// @Router /colors/{id} [put]
func (h *ColorHandler) Update(c *gin.Context) {
	var req service.ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	color, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, color, nil)
}

// Delete godoc
// @Summary Delete color
// @Tags Colors
// @Produce json
// @Param id path string true "Color ID"
// @Success 204
// @Router /colors/{id} [delete]
func (h *ColorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
