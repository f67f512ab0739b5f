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

// PublicationHandler handles catalog literature endpoints.
type PublicationHandler struct {
	service *service.PublicationService
}

func NewPublicationHandler(svc *service.PublicationService) *PublicationHandler {
	return &PublicationHandler{service: svc}
}

// List godoc
// @Summary List publications
// @Tags Publications
// @Produce json
// @Param search query string false "Free text search across title, author and ISBN"
// @Param publication_type query string false "Publication type"
// @Param author query string false "Author"
// @Param publisher query string false "Publisher"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /publications [get]
func (h *PublicationHandler) List(c *gin.Context) {
	var filter models.PublicationFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.PublicationType = c.Query("publication_type")
	filter.Author = strings.TrimSpace(c.Query("author"))
	filter.Publisher = strings.TrimSpace(c.Query("publisher"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	publications, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publications, pagination)
}

// Get godoc
// @Summary Get publication by ID
// @Tags Publications
// @Produce json
// @Param id path string true "Publication ID"
// @Success 200 {object} response.Envelope
// @Router /publications/{id} [get]
func (h *PublicationHandler) Get(c *gin.Context) {
	publication, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publication, nil)
}

// Create godoc
// @Summary Create publication
// @Tags Publications
// @Accept json
// @Produce json
// @Param payload body service.PublicationRequest true "Publication payload"
// @Success 201 {object} response.Envelope
// @Router /publications [post]
func (h *PublicationHandler) Create(c *gin.Context) {
	var req service.PublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	publication, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, publication)
}

// Update godoc
// @Summary Update publication
// @Tags Publications
// @Accept json
// @Produce json
// @Param id path string true "Publication ID"
// @Param payload body service.PublicationRequest true "Publication payload"
// @Success 200 {object} response.Envelope
// @Router /publications/{id} [put]
func (h *PublicationHandler) Update(c *gin.Context) {
	var req service.PublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	publication, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publication, nil)
}

// Delete godoc
// @Summary Delete publication
// @Tags Publications
// @Produce json
// @Param id path string true "Publication ID"
// @Success 204
// @Router /publications/{id} [delete]
func (h *PublicationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
