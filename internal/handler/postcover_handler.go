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

// PostcoverHandler handles collector-owned postal cover endpoints.
type PostcoverHandler struct {
	service *service.PostcoverService
}

func NewPostcoverHandler(svc *service.PostcoverService) *PostcoverHandler {
	return &PostcoverHandler{service: svc}
}

func postcoverFilterFromQuery(c *gin.Context) models.PostcoverFilter {
	var filter models.PostcoverFilter
	filter.Condition = c.Query("condition")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// List godoc
// @Summary List postcovers across all collectors
// @Tags Postcovers
// @Produce json
// @Param search query string false "Free text search"
// @Param condition query string false "Condition"
// @Param owner_user_id query string false "Owner user id"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /postcovers [get]
func (h *PostcoverHandler) List(c *gin.Context) {
	filter := postcoverFilterFromQuery(c)
	filter.OwnerUserID = c.Query("owner_user_id")
	postcovers, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, postcovers, pagination)
}

// MyCollection godoc
// @Summary List the calling collector's postcovers
// @Tags Postcovers
// @Produce json
// @Param search query string false "Free text search"
// @Param condition query string false "Condition"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /postcovers/my-collection [get]
func (h *PostcoverHandler) MyCollection(c *gin.Context) {
	postcovers, pagination, err := h.service.MyCollection(c.Request.Context(), actorID(c), postcoverFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, postcovers, pagination)
}

// Get godoc
// @Summary Get postcover with placements and images
// @Tags Postcovers
// @Produce json
// @Param id path string true "Postcover ID"
// @Success 200 {object} response.Envelope
// @Router /postcovers/{id} [get]
func (h *PostcoverHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create postcover owned by the caller
// @Tags Postcovers
// @Accept json
// @Produce json
// @Param payload body service.CreatePostcoverRequest true "Postcover payload"
// @Success 201 {object} response.Envelope
// @Router /postcovers [post]
func (h *PostcoverHandler) Create(c *gin.Context) {
	var req service.CreatePostcoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	postcover, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, postcover)
}

// Update godoc
// @Summary Update postcover
// @Tags Postcovers
// @Accept json
// @Produce json
// @Param id path string true "Postcover ID"
// @Param payload body service.UpdatePostcoverRequest true "Postcover payload"
// @Success 200 {object} response.Envelope
// @Router /postcovers/{id} [put]
func (h *PostcoverHandler) Update(c *gin.Context) {
	var req service.UpdatePostcoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	postcover, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c), isAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, postcover, nil)
}

// Delete godoc
// @Summary Delete postcover and its placements and images
// @Tags Postcovers
// @Produce json
// @Param id path string true "Postcover ID"
// @Success 204
// @Router /postcovers/{id} [delete]
func (h *PostcoverHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID(c), isAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddPlacement godoc
// @Summary Record a postmark placement on a cover
// @Tags Postcovers
// @Accept json
// @Produce json
// @Param id path string true "Postcover ID"
// @Param payload body service.AddPlacementRequest true "Placement payload"
// @Success 201 {object} response.Envelope
// @Router /postcovers/{id}/placements [post]
func (h *PostcoverHandler) AddPlacement(c *gin.Context) {
	var req service.AddPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	placement, err := h.service.AddPlacement(c.Request.Context(), c.Param("id"), req, actorID(c), isAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, placement)
}

// RemovePlacement godoc
// @Summary Remove a postmark placement from a cover
// @Tags Postcovers
// @Produce json
// @Param id path string true "Postcover ID"
// @Param placementId path string true "Placement ID"
// @Success 204
// @Router /postcovers/{id}/placements/{placementId} [delete]
func (h *PostcoverHandler) RemovePlacement(c *gin.Context) {
	if err := h.service.RemovePlacement(c.Request.Context(), c.Param("id"), c.Param("placementId"), actorID(c), isAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
