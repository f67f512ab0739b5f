package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/woco-project/woco-api/internal/models"
	"github.com/woco-project/woco-api/internal/service"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
	"github.com/woco-project/woco-api/pkg/response"
)

// LocationHandler handles gazetteer location endpoints.
type LocationHandler struct {
	locations    *service.LocationService
	affiliations *service.AffiliationService
}

// NewLocationHandler constructs a location handler.
func NewLocationHandler(locations *service.LocationService, affiliations *service.AffiliationService) *LocationHandler {
	return &LocationHandler{locations: locations, affiliations: affiliations}
}

// List godoc
// @Summary List geographic locations
// @Tags Locations
// @Produce json
// @Param search query string false "Search by name"
// @Param type query string false "Location type"
// @Param state query string false "Current state abbreviation or name"
// @Param has_coordinates query bool false "Only locations with coordinates"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /locations [get]
func (h *LocationHandler) List(c *gin.Context) {
	var filter models.LocationFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.LocationType = c.Query("type")
	filter.CurrentState = strings.TrimSpace(c.Query("state"))
	if raw := c.Query("has_coordinates"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.HasCoordinates = &v
		}
	}
	filter.LatitudeMin = floatQuery(c, "lat_min")
	filter.LatitudeMax = floatQuery(c, "lat_max")
	filter.LongitudeMin = floatQuery(c, "lon_min")
	filter.LongitudeMax = floatQuery(c, "lon_max")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	locations, pagination, err := h.locations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locations, pagination)
}

// Get godoc
// @Summary Get location by id
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} response.Envelope
// @Router /locations/{id} [get]
func (h *LocationHandler) Get(c *gin.Context) {
	location, err := h.locations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, location, nil)
}

// Create godoc
// @Summary Create location
// @Tags Locations
// @Accept json
// @Produce json
// @Param payload body service.CreateLocationRequest true "Location payload"
// @Success 201 {object} response.Envelope
// @Router /locations [post]
func (h *LocationHandler) Create(c *gin.Context) {
	var req service.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	location, err := h.locations.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, location)
}

// Update godoc
// @Summary Update location
// @Tags Locations
// @Accept json
// @Produce json
// @Param id path string true "Location ID"
// @Param payload body service.UpdateLocationRequest true "Location payload"
// @Success 200 {object} response.Envelope
// @Router /locations/{id} [put]
func (h *LocationHandler) Update(c *gin.Context) {
	var req service.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	location, err := h.locations.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, location, nil)
}

// Delete godoc
// @Summary Delete location
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 204
// @Router /locations/{id} [delete]
func (h *LocationHandler) Delete(c *gin.Context) {
	if err := h.locations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CurrentAffiliation godoc
// @Summary Resolve the unit governing a location on a date
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Param as_of query string false "Date (RFC 3339 or YYYY-MM-DD), defaults to now"
// @Success 200 {object} response.Envelope
// @Router /locations/{id}/current-affiliation [get]
func (h *LocationHandler) CurrentAffiliation(c *gin.Context) {
	asOf, err := asOfQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	affiliations, err := h.affiliations.CurrentForLocation(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, affiliations, nil)
}

// Timeline godoc
// @Summary Full affiliation history of a location
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} response.Envelope
// @Router /locations/{id}/timeline [get]
func (h *LocationHandler) Timeline(c *gin.Context) {
	timeline, err := h.affiliations.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timeline, nil)
}

func actorID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}

func floatQuery(c *gin.Context, key string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func asOfQuery(c *gin.Context) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("as_of"))
	if raw == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid as_of date")
}
