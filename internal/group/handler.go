package group

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/httperr"
	"github.com/uvgride/grouprides/pkg/middleware"
	"github.com/uvgride/grouprides/pkg/request"
	"github.com/uvgride/grouprides/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new group handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)

	// Membership
	r.Post("/{id}/join", h.Join)
	r.Post("/{id}/leave", h.Leave)

	// Lifecycle
	r.Post("/{id}/close", h.Close)

	return r
}

func groupID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid group ID")
		return 0, false
	}
	return id, true
}

// forbidActor rejects requests whose authenticated identity differs from the
// acting user named in the body.
func forbidActor(w http.ResponseWriter, r *http.Request, actorID int64) bool {
	if middleware.ActingAs(r.Context(), actorID) {
		return false
	}
	response.Forbidden(w, "Cannot act on behalf of another user")
	return true
}

// Create handles POST /groups
// @Summary      Create a ride group
// @Description  Open a new group; the driver becomes its first member
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse "VALIDATION_FAILED, NO_VEHICLE or ALREADY_IN_ACTIVE_GROUP"
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse "TRIP_ALREADY_GROUPED"
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := request.ReadAndValidate(w, r, &req); request.HandleError(w, err) {
		return
	}
	if forbidActor(w, r, req.DriverID) {
		return
	}

	g, err := h.service.Create(r.Context(), req.Params())
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, ToGroupResponse(domain.NewGroupView(*g, 0)))
}

// GetByID handles GET /groups/{id}
// @Summary      Get group by ID
// @Description  Get a group with its seat usage and members
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}

	view, members, err := h.service.GetByIDWithMembers(r.Context(), id)
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}

	resp := ToGroupResponse(*view)
	resp.Members = make([]*MemberResponse, len(members))
	for i, m := range members {
		resp.Members[i] = ToMemberResponse(m)
	}

	response.JSON(w, http.StatusOK, resp)
}

// List handles GET /groups
// @Summary      List groups
// @Description  Paginated groups with available seats, newest first
// @Tags         groups
// @Produce      json
// @Param        status query string false "open, closed, cancelled, finalized or all" default(open)
// @Param        q query string false "Search destination or driver name"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.ListFilter{Status: domain.StatusOpen, Query: strings.TrimSpace(q.Get("q"))}
	switch status := strings.ToLower(q.Get("status")); status {
	case "":
	case "all":
		filter.Status = ""
	default:
		filter.Status = domain.GroupStatus(status)
		if !filter.Status.Valid() {
			response.BadRequest(w, "Invalid status filter")
			return
		}
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	groups, total, err := h.service.List(r.Context(), filter, page, perPage)
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}

	groupResponses := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		groupResponses[i] = ToGroupResponse(g)
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, groupResponses, meta)
}

// Join handles POST /groups/{id}/join
// @Summary      Join a group
// @Description  Take a seat as a passenger
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body JoinRequest true "Join request"
// @Success      200 {object} response.APIResponse{data=MemberResponse}
// @Failure      400 {object} response.APIResponse "CAPACITY_EXCEEDED, GROUP_NOT_OPEN, SELF_JOIN or ALREADY_IN_ACTIVE_GROUP"
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse "ALREADY_MEMBER"
// @Failure      503 {object} response.APIResponse
// @Router       /groups/{id}/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}

	var req JoinRequest
	if err := request.ReadAndValidate(w, r, &req); request.HandleError(w, err) {
		return
	}
	if forbidActor(w, r, req.UserID) {
		return
	}

	m, err := h.service.Join(r.Context(), id, req.UserID, JoinOptions{AgreedAmount: req.AgreedAmount})
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, ToMemberResponse(m))
}

// Leave handles POST /groups/{id}/leave
// @Summary      Leave a group
// @Description  Give up a passenger seat in any group status, including closed
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body LeaveRequest true "Leave request"
// @Success      200 {object} response.APIResponse{data=MemberResponse}
// @Failure      400 {object} response.APIResponse "DRIVER_CANNOT_LEAVE"
// @Failure      404 {object} response.APIResponse "NOT_A_MEMBER or GROUP_NOT_FOUND"
// @Router       /groups/{id}/leave [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}

	var req LeaveRequest
	if err := request.ReadAndValidate(w, r, &req); request.HandleError(w, err) {
		return
	}
	if forbidActor(w, r, req.UserID) {
		return
	}

	m, err := h.service.Leave(r.Context(), id, req.UserID)
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, ToMemberResponse(m))
}

// Close handles POST /groups/{id}/close
// @Summary      Change group status
// @Description  Driver-only transition to closed (default), cancelled or finalized
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body CloseRequest true "Status change request"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse "INVALID_TRANSITION for a known status the group cannot move to, VALIDATION_FAILED for a status outside open, closed, cancelled, finalized"
// @Failure      403 {object} response.APIResponse "NOT_AUTHORIZED"
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/close [post]
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}

	var req CloseRequest
	if err := request.ReadAndValidate(w, r, &req); request.HandleError(w, err) {
		return
	}
	if forbidActor(w, r, req.ActorID) {
		return
	}

	view, err := h.service.ChangeStatus(r.Context(), id, req.ActorID, req.Target())
	if err != nil {
		httperr.Write(w, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, ToGroupResponse(*view))
}
