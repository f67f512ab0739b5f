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

// UnitHandler handles administrative unit endpoints.
type UnitHandler struct {
	units        *service.UnitService
	affiliations *service.AffiliationService
}

// NewUnitHandler constructs a unit handler.
func NewUnitHandler(units *service.UnitService, affiliations *service.AffiliationService) *UnitHandler {
	return &UnitHandler{units: units, affiliations: affiliations}
}

// List godoc
// @Summary List administrative units
// @Tags AdministrativeUnits
// @Produce json
// @Param search query string false "Search by name"
// @Param type query string false "Unit type"
// @Param abbreviation query string false "Exact abbreviation"
// @Param level query int false "Hierarchy level"
// @Param active query bool false "Active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin-units [get]
func (h *UnitHandler) List(c *gin.Context) {
	var filter models.UnitFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.UnitType = c.Query("type")
	filter.Abbreviation = strings.TrimSpace(c.Query("abbreviation"))
	if raw := c.Query("level"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filter.Level = &v
		}
	}
	if raw := c.Query("active"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	units, pagination, err := h.units.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, pagination)
}

// Get godoc
// @Summary Get unit by id
// @Tags AdministrativeUnits
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /admin-units/{id} [get]
func (h *UnitHandler) Get(c *gin.Context) {
	unit, err := h.units.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, unit, nil)
}

// Children godoc
// @Summary Direct children of a unit
// @Tags AdministrativeUnits
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /admin-units/{id}/children [get]
func (h *UnitHandler) Children(c *gin.Context) {
	children, err := h.units.Children(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, children, nil)
}

// Ancestors godoc
// @Summary Ancestor chain of a unit, nearest first
// @Tags AdministrativeUnits
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /admin-units/{id}/ancestors [get]
func (h *UnitHandler) Ancestors(c *gin.Context) {
	ancestors, err := h.units.Ancestors(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ancestors, nil)
}

// Descendants godoc
// @Summary Full subtree below a unit
// @Tags AdministrativeUnits
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /admin-units/{id}/descendants [get]
func (h *UnitHandler) Descendants(c *gin.Context) {
	descendants, err := h.units.Descendants(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, descendants, nil)
}

// NameHistory godoc
// @Summary Rename history of a unit
// @Tags AdministrativeUnits
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /admin-units/{id}/name-history [get]
func (h *UnitHandler) NameHistory(c *gin.Context) {
	history, err := h.units.NameHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// History godoc
// @Summary Structural history of a unit
// @Tags AdministrativeUnits
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Router /admin-units/{id}/history [get]
func (h *UnitHandler) History(c *gin.Context) {
	history, err := h.units.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Locations godoc
// @Summary Locations governed by a unit on a date
// @Tags AdministrativeUnits
// @Produce json
// @Param id path string true "Unit ID"
// @Param as_of query string false "Date (RFC 3339 or YYYY-MM-DD), defaults to now"
// @Success 200 {object} response.Envelope
// @Router /admin-units/{id}/locations [get]
func (h *UnitHandler) Locations(c *gin.Context) {
	asOf, err := asOfQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	locations, err := h.affiliations.LocationsInUnit(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locations, nil)
}

// Create godoc
// @Summary Create administrative unit
// @Tags AdministrativeUnits
// @Accept json
// @Produce json
// @Param payload body service.CreateUnitRequest true "Unit payload"
// @Success 201 {object} response.Envelope
// @Router /admin-units [post]
func (h *UnitHandler) Create(c *gin.Context) {
	var req service.CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	unit, err := h.units.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, unit)
}

// Update godoc
// @Summary Update administrative unit
// @Tags AdministrativeUnits
// @Accept json
// @Produce json
// @Param id path string true "Unit ID"
// @Param payload body service.UpdateUnitRequest true "Unit payload"
// @Success 200 {object} response.Envelope
// @Router /admin-units/{id} [put]
func (h *UnitHandler) Update(c *gin.Context) {
	var req service.UpdateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	unit, err := h.units.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, unit, nil)
}

// Delete godoc
// @Summary Delete administrative unit
// @Tags AdministrativeUnits
// @Produce json
// @Param id path string true "Unit ID"
// @Success 204
// @Router /admin-units/{id} [delete]
func (h *UnitHandler) Delete(c *gin.Context) {
	if err := h.units.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
