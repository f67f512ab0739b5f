package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/woco-project/woco-api/internal/models"
	"github.com/woco-project/woco-api/internal/service"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
	"github.com/woco-project/woco-api/pkg/response"
)

// AffiliationHandler handles geographic affiliation endpoints.
type AffiliationHandler struct {
	service *service.AffiliationService
}

// NewAffiliationHandler constructs an affiliation handler.
func NewAffiliationHandler(svc *service.AffiliationService) *AffiliationHandler {
	return &AffiliationHandler{service: svc}
}

// List godoc
// @Summary List affiliations
// @Tags Affiliations
// @Produce json
// @Param location_id query string false "Filter by location"
// @Param unit_id query string false "Filter by unit"
// @Param open query bool false "Only open affiliations"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /affiliations [get]
func (h *AffiliationHandler) List(c *gin.Context) {
	var filter models.AffiliationFilter
	filter.LocationID = c.Query("location_id")
	filter.UnitID = c.Query("unit_id")
	if raw := c.Query("open"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.OpenOnly = v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	affiliations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, affiliations, pagination)
}

// Get godoc
// @Summary Get affiliation by id
// @Tags Affiliations
// @Produce json
// @Param id path string true "Affiliation ID"
// @Success 200 {object} response.Envelope
// @Router /affiliations/{id} [get]
func (h *AffiliationHandler) Get(c *gin.Context) {
	affiliation, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, affiliation, nil)
}

// Create godoc
// @Summary Open an affiliation
// @Tags Affiliations
// @Accept json
// @Produce json
// @Param payload body service.CreateAffiliationRequest true "Affiliation payload"
// @Success 201 {object} response.Envelope
// @Router /affiliations [post]
func (h *AffiliationHandler) Create(c *gin.Context) {
	var req service.CreateAffiliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	affiliation, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, affiliation)
}

// Close godoc
// @Summary Close an open affiliation
// @Tags Affiliations
// @Accept json
// @Produce json
// @Param id path string true "Affiliation ID"
// @Param payload body service.CloseAffiliationRequest true "Close payload"
// @Success 200 {object} response.Envelope
// @Router /affiliations/{id}/close [post]
func (h *AffiliationHandler) Close(c *gin.Context) {
	var req service.CloseAffiliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	affiliation, err := h.service.CloseAffiliation(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, affiliation, nil)
}
