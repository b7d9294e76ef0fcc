package rating

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/httperr"
	"github.com/uvgride/grouprides/pkg/middleware"
	"github.com/uvgride/grouprides/pkg/request"
	"github.com/uvgride/grouprides/pkg/response"
)

// Handler handles HTTP requests for ratings
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new rating handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterGroupRoutes adds the group-scoped rating endpoints to the group router
func (h *Handler) RegisterGroupRoutes(r chi.Router) {
	r.Post("/{id}/ratings", h.Rate)
	r.Get("/{id}/ratings", h.ListForGroup)
	r.Get("/{id}/rating-summary", h.GroupSummary)
}

// Routes returns the router for driver-scoped rating endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{id}/ratings", h.ListForDriver)
	r.Get("/{id}/rating-summary", h.DriverSummary)

	return r
}

func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}

// pagination reads limit and offset, falling back to defaults for missing or
// malformed values.
func pagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err = strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Rate handles POST /groups/{id}/ratings
// @Summary      Rate a group's driver
// @Description  Submit or replace the passenger's rating of the driver
// @Tags         ratings
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body RateRequest true "Rating"
// @Success      201 {object} response.APIResponse{data=RateResponse}
// @Failure      400 {object} response.APIResponse "INVALID_SCORE, NOT_ELIGIBLE or SELF_RATING"
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/ratings [post]
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "group")
	if !ok {
		return
	}

	var req RateRequest
	if err := request.ReadAndValidate(w, r, &req); request.HandleError(w, err) {
		return
	}
	if !middleware.ActingAs(r.Context(), req.PassengerID) {
		response.Forbidden(w, "Cannot act on behalf of another user")
		return
	}

	rating, created, err := h.service.Rate(r.Context(), groupID, req.PassengerID, req.Score, req.Comment)
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, &RateResponse{Rating: ToRatingResponse(rating), Created: created})
}

// ListForGroup handles GET /groups/{id}/ratings
// @Summary      List ratings of a group's driver
// @Tags         ratings
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        limit query int false "Page size" default(20)
// @Param        offset query int false "Rows to skip" default(0)
// @Success      200 {object} response.APIResponse{data=[]RatingResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/ratings [get]
func (h *Handler) ListForGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "group")
	if !ok {
		return
	}

	limit, offset := pagination(r)
	ratings, total, err := h.service.GroupRatings(r.Context(), groupID, limit, offset)
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}
	writeList(w, ratings, total, limit, offset)
}

// ListForDriver handles GET /drivers/{id}/ratings
// @Summary      List a driver's ratings
// @Tags         ratings
// @Produce      json
// @Param        id path int true "Driver ID"
// @Param        limit query int false "Page size" default(20)
// @Param        offset query int false "Rows to skip" default(0)
// @Success      200 {object} response.APIResponse{data=[]RatingResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /drivers/{id}/ratings [get]
func (h *Handler) ListForDriver(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(w, r, "driver")
	if !ok {
		return
	}

	limit, offset := pagination(r)
	ratings, total, err := h.service.List(r.Context(), driverID, limit, offset)
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}
	writeList(w, ratings, total, limit, offset)
}

// GroupSummary handles GET /groups/{id}/rating-summary
// @Summary      Rating summary of a group's driver
// @Tags         ratings
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=SummaryResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/rating-summary [get]
func (h *Handler) GroupSummary(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "group")
	if !ok {
		return
	}

	summary, err := h.service.GroupSummary(r.Context(), groupID)
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, ToSummaryResponse(summary))
}

// DriverSummary handles GET /drivers/{id}/rating-summary
// @Summary      Rating summary of a driver
// @Tags         ratings
// @Produce      json
// @Param        id path int true "Driver ID"
// @Success      200 {object} response.APIResponse{data=SummaryResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /drivers/{id}/rating-summary [get]
func (h *Handler) DriverSummary(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathID(w, r, "driver")
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), driverID)
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, ToSummaryResponse(summary))
}

func writeList(w http.ResponseWriter, ratings []*domain.Rating, total, limit, offset int) {
	items := make([]*RatingResponse, len(ratings))
	for i, r := range ratings {
		items[i] = ToRatingResponse(r)
	}
	response.JSONWithMeta(w, http.StatusOK, items, &response.Meta{
		Limit:  limit,
		Offset: &offset,
		Total:  total,
	})
}
