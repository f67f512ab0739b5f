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

// PostmarkHandler handles catalog postmark endpoints and their child fact
// subresources.
type PostmarkHandler struct {
	service *service.PostmarkService
}

// NewPostmarkHandler constructs a postmark handler.
func NewPostmarkHandler(svc *service.PostmarkService) *PostmarkHandler {
	return &PostmarkHandler{service: svc}
}

// List godoc
// @Summary List postmarks
// @Tags Postmarks
// @Produce json
// @Param search query string false "Free text search"
// @Param key query string false "Postmark key"
// @Param location_id query string false "Location id"
// @Param location query string false "Location name"
// @Param location_type query string false "Location type"
// @Param state query string false "Current state abbreviation or name"
// @Param shape_id query string false "Shape id"
// @Param lettering_id query string false "Lettering style id"
// @Param framing_id query string false "Framing style id"
// @Param date_format_id query string false "Date format id"
// @Param rate_location query string false "Rate location"
// @Param rate_value query string false "Rate value"
// @Param condition query string false "Condition"
// @Param is_manuscript query bool false "Manuscript flag"
// @Param color query string false "Color name"
// @Param earliest_year_min query int false "Earliest seen year lower bound"
// @Param earliest_year_max query int false "Earliest seen year upper bound"
// @Param latest_year_min query int false "Latest seen year lower bound"
// @Param latest_year_max query int false "Latest seen year upper bound"
// @Param value_min query number false "Valuation lower bound"
// @Param value_max query number false "Valuation upper bound"
// @Param has_images query bool false "Image presence"
// @Param publication_id query string false "Referenced publication"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /postmarks [get]
func (h *PostmarkHandler) List(c *gin.Context) {
	var filter models.PostmarkFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Key = strings.TrimSpace(c.Query("key"))
	filter.LocationID = c.Query("location_id")
	filter.LocationName = strings.TrimSpace(c.Query("location"))
	filter.LocationType = c.Query("location_type")
	filter.State = strings.TrimSpace(c.Query("state"))
	filter.ShapeID = c.Query("shape_id")
	filter.LetteringID = c.Query("lettering_id")
	filter.FramingID = c.Query("framing_id")
	filter.DateFormatID = c.Query("date_format_id")
	filter.RateLocation = c.Query("rate_location")
	filter.RateValue = strings.TrimSpace(c.Query("rate_value"))
	filter.Condition = c.Query("condition")
	filter.Color = strings.TrimSpace(c.Query("color"))
	filter.PublicationID = c.Query("publication_id")
	if raw := c.Query("is_manuscript"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.IsManuscript = &v
		}
	}
	if raw := c.Query("has_images"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.HasImages = &v
		}
	}
	filter.EarliestYearMin = intQuery(c, "earliest_year_min")
	filter.EarliestYearMax = intQuery(c, "earliest_year_max")
	filter.LatestYearMin = intQuery(c, "latest_year_min")
	filter.LatestYearMax = intQuery(c, "latest_year_max")
	filter.ValueMin = floatQuery(c, "value_min")
	filter.ValueMax = floatQuery(c, "value_max")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	postmarks, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, postmarks, pagination)
}

// Get godoc
// @Summary Get postmark with child facts
// @Tags Postmarks
// @Produce json
// @Param id path string true "Postmark ID"
// @Success 200 {object} response.Envelope
// @Router /postmarks/{id} [get]
func (h *PostmarkHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), isModerator(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create postmark with nested child facts
// @Tags Postmarks
// @Accept json
// @Produce json
// @Param payload body service.CreatePostmarkRequest true "Postmark payload"
// @Success 201 {object} response.Envelope
// @Router /postmarks [post]
func (h *PostmarkHandler) Create(c *gin.Context) {
	var req service.CreatePostmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Update postmark scalar fields
// @Tags Postmarks
// @Accept json
// @Produce json
// @Param id path string true "Postmark ID"
// @Param payload body service.UpdatePostmarkRequest true "Postmark payload"
// @Success 200 {object} response.Envelope
// @Router /postmarks/{id} [put]
func (h *PostmarkHandler) Update(c *gin.Context) {
	var req service.UpdatePostmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	postmark, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, postmark, nil)
}

// Delete godoc
// @Summary Delete postmark and owned child facts
// @Tags Postmarks
// @Produce json
// @Param id path string true "Postmark ID"
// @Success 204
// @Router /postmarks/{id} [delete]
func (h *PostmarkHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type addColorRequest struct {
	ColorID string `json:"color_id" binding:"required"`
}

// AddColor godoc
// @Summary Attach a color
// @Tags Postmarks
// @Accept json
// @Produce json
// @Param id path string true "Postmark ID"
// @Success 201 {object} response.Envelope
// @Router /postmarks/{id}/colors [post]
func (h *PostmarkHandler) AddColor(c *gin.Context) {
	var req addColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.service.AddColor(c.Request.Context(), c.Param("id"), req.ColorID, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// RemoveColor godoc
// @Summary Detach a color
// @Tags Postmarks
// @Produce json
// @Param id path string true "Postmark ID"
// @Param linkId path string true "Color link ID"
// @Success 204
// @Router /postmarks/{id}/colors/{linkId} [delete]
func (h *PostmarkHandler) RemoveColor(c *gin.Context) {
	if err := h.service.RemoveColor(c.Request.Context(), c.Param("id"), c.Param("linkId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddDateRange godoc
// @Summary Record an observed date range
// @Tags Postmarks
// @Accept json
// @Produce json
// @Param id path string true "Postmark ID"
// @Param payload body service.DateRangeInput true "Date range payload"
// @Success 201 {object} response.Envelope
// @Router /postmarks/{id}/date-ranges [post]
func (h *PostmarkHandler) AddDateRange(c *gin.Context) {
	var req service.DateRangeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.AddDateRange(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// RemoveDateRange godoc
// @Summary Delete an observed date range
// @Tags Postmarks
// @Produce json
// @Param id path string true "Postmark ID"
// @Param rangeId path string true "Date range ID"
// @Success 204
// @Router /postmarks/{id}/date-ranges/{rangeId} [delete]
func (h *PostmarkHandler) RemoveDateRange(c *gin.Context) {
	if err := h.service.RemoveDateRange(c.Request.Context(), c.Param("id"), c.Param("rangeId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSize godoc
// @Summary Record a measured size
// @Tags Postmarks
// @Accept json
// @Produce json
// @Param id path string true "Postmark ID"
// @Param payload body service.SizeInput true "Size payload"
// @Success 201 {object} response.Envelope
// @Router /postmarks/{id}/sizes [post]
func (h *PostmarkHandler) AddSize(c *gin.Context) {
	var req service.SizeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.AddSize(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// RemoveSize godoc
// @Summary Delete a measured size
// @Tags Postmarks
// @Produce json
// @Param id path string true "Postmark ID"
// @Param sizeId path string true "Size ID"
// @Success 204
// @Router /postmarks/{id}/sizes/{sizeId} [delete]
func (h *PostmarkHandler) RemoveSize(c *gin.Context) {
	if err := h.service.RemoveSize(c.Request.Context(), c.Param("id"), c.Param("sizeId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddValuation godoc
// @Summary Record a valuation
// @Tags Postmarks
// @Accept json
// @Produce json
// @Param id path string true "Postmark ID"
// @Param payload body service.AddValuationRequest true "Valuation payload"
// @Success 201 {object} response.Envelope
// @Router /postmarks/{id}/valuations [post]
func (h *PostmarkHandler) AddValuation(c *gin.Context) {
	var req service.AddValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.AddValuation(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// RemoveValuation godoc
// @Summary Delete a valuation
// @Tags Postmarks
// @Produce json
// @Param id path string true "Postmark ID"
// @Param valuationId path string true "Valuation ID"
// @Success 204
// @Router /postmarks/{id}/valuations/{valuationId} [delete]
func (h *PostmarkHandler) RemoveValuation(c *gin.Context) {
	if err := h.service.RemoveValuation(c.Request.Context(), c.Param("id"), c.Param("valuationId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddReference godoc
// @Summary Record a publication reference
// @Tags Postmarks
// @Accept json
// @Produce json
// @Param id path string true "Postmark ID"
// @Param payload body service.ReferenceInput true "Reference payload"
// @Success 201 {object} response.Envelope
// @Router /postmarks/{id}/references [post]
func (h *PostmarkHandler) AddReference(c *gin.Context) {
	var req service.ReferenceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.AddReference(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// RemoveReference godoc
// @Summary Delete a publication reference
// @Tags Postmarks
// @Produce json
// @Param id path string true "Postmark ID"
// @Param refId path string true "Reference ID"
// @Success 204
// @Router /postmarks/{id}/references/{refId} [delete]
func (h *PostmarkHandler) RemoveReference(c *gin.Context) {
	if err := h.service.RemoveReference(c.Request.Context(), c.Param("id"), c.Param("refId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func intQuery(c *gin.Context, key string) *int {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func isModerator(c *gin.Context) bool {
	claims := claimsFromContext(c)
	if claims == nil {
		return false
	}
	return claims.Role == models.RoleAdmin || claims.Role == models.RoleMaintainer
}
