/*
handlers.go - HTTP API handlers for the seating engine

PURPOSE:
  Exposes the seating engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine.

ENDPOINTS (all under /api/projects/{projectID}):
  Directory:
    GET    /guests                       List guests (with their table)
    POST   /guests                       Create guest
    DELETE /guests/{guestID}             Delete guest, releasing the seat
    GET    /tables                       List tables with occupancy
    POST   /tables                       Create table
    DELETE /tables/{tableID}             Delete an empty table
    GET    /assignments                  List assignments
    DELETE /                             Delete project (owner only)

  Seating:
    POST   /seating/assign               {guest_id, table_id}
    POST   /seating/unassign             {guest_id}
    POST   /seating/move                 {guest_id, new_table_id}
    GET    /seating/suggestions/{guestID}
    POST   /seating/auto-assign

  Constraints:
    GET    /constraints
    POST   /constraints                  {guest1_id, guest2_id, type}
    DELETE /constraints/{constraintID}

  Other:
    GET    /audit                        ?guest_id=&action=&limit=
    GET    /ws                           Realtime seating events

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: Seating operations; its Store serves plain listings
  - Hub: Websocket connections for realtime events
  - Validator: Request body validation

REQUEST FLOW:
  1. Resolve actor (middleware) and project (URL)
  2. Decode and validate the body
  3. Call the engine
  4. Serialize response or map the error

ERROR HANDLING:
  Errors are returned as {"error", "details"} with:
  - 400: Validation errors, invalid constraint type, self-constraint
  - 403: Role may not mutate
  - 404: Unknown guest/table/constraint, or one from another project
  - 409: Capacity, MUST_APART, already/not assigned, duplicate constraint,
         table still occupied
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Actor resolution and request logging
  - server.go: Router setup
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/warp/seating-engine/notify"
	"github.com/warp/seating-engine/seating"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *seating.Engine
	Hub       *notify.Hub
	Logger    zerolog.Logger
	Validator *validator.Validate
}

// NewHandler creates a handler. hub may be nil, in which case the websocket
// endpoint answers 503.
func NewHandler(engine *seating.Engine, hub *notify.Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		Engine:    engine,
		Hub:       hub,
		Logger:    logger,
		Validator: validator.New(),
	}
}

func projectID(r *http.Request) seating.ProjectID {
	return seating.ProjectID(chi.URLParam(r, "projectID"))
}

// =============================================================================
// GUEST HANDLERS
// =============================================================================

// ListGuests returns the project's guests with the table each one sits at.
func (h *Handler) ListGuests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid := projectID(r)

	guests, err := h.Engine.Store.ListGuests(ctx, pid)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	assignments, err := h.Engine.Store.ListAssignments(ctx, pid)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	seatedAt := make(map[seating.GuestID]seating.TableID, len(assignments))
	for _, a := range assignments {
		seatedAt[a.GuestID] = a.TableID
	}

	dtos := make([]GuestDTO, len(guests))
	for i, g := range guests {
		dtos[i] = toGuestDTO(g, seatedAt[g.ID])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGuest adds a guest to the roster.
func (h *Handler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req CreateGuestRequest
	if !h.decode(w, r, &req) {
		return
	}
	g, err := h.Engine.CreateGuest(r.Context(), actorFrom(r.Context()), seating.Guest{
		ID:        seating.GuestID(req.ID),
		ProjectID: projectID(r),
		Name:      req.Name,
		HeadCount: req.HeadCount,
		Tags:      req.Tags,
		AreaID:    seating.AreaID(req.AreaID),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGuestDTO(g, ""))
}

// DeleteGuest removes a guest; the seat is released.
func (h *Handler) DeleteGuest(w http.ResponseWriter, r *http.Request) {
	guestID := seating.GuestID(chi.URLParam(r, "guestID"))
	if err := h.Engine.DeleteGuest(r.Context(), actorFrom(r.Context()), projectID(r), guestID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TABLE HANDLERS
// =============================================================================

// ListTables returns every table with occupancy computed from current seats.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Engine.TableOverview(r.Context(), projectID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]TableDTO, len(overview))
	for i, o := range overview {
		dtos[i] = toTableDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.Engine.CreateTable(r.Context(), actorFrom(r.Context()), seating.Table{
		ID:        seating.TableID(req.ID),
		ProjectID: projectID(r),
		Name:      req.Name,
		Capacity:  req.Capacity,
		AreaID:    seating.AreaID(req.AreaID),
		X:         req.X,
		Y:         req.Y,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTableDTO(seating.TableOccupancy{
		Table:     t,
		Occupancy: seating.CalculateOccupancy(t, nil),
	}))
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	tableID := seating.TableID(chi.URLParam(r, "tableID"))
	if err := h.Engine.DeleteTable(r.Context(), actorFrom(r.Context()), projectID(r), tableID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAssignments returns the project's seats.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Engine.Store.ListAssignments(r.Context(), projectID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		dtos[i] = toAssignmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteProject removes the project and everything in it.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteProject(r.Context(), actorFrom(r.Context()), projectID(r)); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SEATING HANDLERS
// =============================================================================

// Assign seats a guest at a table.
// POST /api/projects/{projectID}/seating/assign
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !h.decode(w, r, &req) {
		return
	}
	guestID := seating.GuestID(req.GuestID)
	if !h.requireGuestInProject(w, r, guestID) {
		return
	}
	a, err := h.Engine.Assign(r.Context(), actorFrom(r.Context()), guestID, seating.TableID(req.TableID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(*a))
}

// Unassign releases a guest's seat.
// POST /api/projects/{projectID}/seating/unassign
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	var req UnassignRequest
	if !h.decode(w, r, &req) {
		return
	}
	guestID := seating.GuestID(req.GuestID)
	if !h.requireGuestInProject(w, r, guestID) {
		return
	}
	if err := h.Engine.Unassign(r.Context(), actorFrom(r.Context()), guestID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Move seats or re-seats a guest at another table.
// POST /api/projects/{projectID}/seating/move
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	guestID := seating.GuestID(req.GuestID)
	if !h.requireGuestInProject(w, r, guestID) {
		return
	}
	a, err := h.Engine.Move(r.Context(), actorFrom(r.Context()), guestID, seating.TableID(req.NewTableID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTO(*a))
}

// Suggestions ranks up to five tables for a guest.
// GET /api/projects/{projectID}/seating/suggestions/{guestID}
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	guestID := seating.GuestID(chi.URLParam(r, "guestID"))
	suggestions, err := h.Engine.Suggest(r.Context(), projectID(r), guestID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]SuggestionDTO, len(suggestions))
	for i, s := range suggestions {
		dtos[i] = SuggestionDTO{
			TableID:   string(s.Table.ID),
			TableName: s.Table.Name,
			Score:     s.Score,
			Available: s.Available,
			Reasons:   s.Reasons,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AutoAssign seats every unseated guest it can.
// POST /api/projects/{projectID}/seating/auto-assign
func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.AutoAssign(r.Context(), actorFrom(r.Context()), projectID(r))
	if err != nil {
		if result == nil {
			h.writeDomainError(w, err)
			return
		}
		// The pass stopped part way; earlier placements are committed.
		h.Logger.Error().Err(err).Str("project_id", string(projectID(r))).Msg("auto-assign interrupted")
		resp := toAutoAssignResponse(result)
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, toAutoAssignResponse(result))
}

// =============================================================================
// CONSTRAINT HANDLERS
// =============================================================================

func (h *Handler) ListConstraints(w http.ResponseWriter, r *http.Request) {
	constraints, err := h.Engine.Store.ListConstraints(r.Context(), projectID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]ConstraintDTO, len(constraints))
	for i, c := range constraints {
		dtos[i] = toConstraintDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateConstraint(w http.ResponseWriter, r *http.Request) {
	var req CreateConstraintRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Engine.AddConstraint(r.Context(), actorFrom(r.Context()), projectID(r),
		seating.GuestID(req.Guest1ID), seating.GuestID(req.Guest2ID), req.Type)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConstraintDTO(*c))
}

func (h *Handler) DeleteConstraint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := seating.ConstraintID(chi.URLParam(r, "constraintID"))

	c, err := h.Engine.Store.GetConstraint(ctx, id)
	if err == nil && c.ProjectID != projectID(r) {
		err = &seating.NotFoundError{Kind: "constraint", ID: string(id)}
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.Engine.RemoveConstraint(ctx, actorFrom(ctx), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// AUDIT AND REALTIME
// =============================================================================

// ListAudit returns audit entries, newest first.
// GET /api/projects/{projectID}/audit?guest_id=&action=&limit=
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := seating.AuditFilter{ProjectID: projectID(r), Limit: 100}
	if g := q.Get("guest_id"); g != "" {
		gid := seating.GuestID(g)
		filter.GuestID = &gid
	}
	for _, a := range q["action"] {
		filter.Actions = append(filter.Actions, seating.AuditAction(a))
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", fmt.Errorf("limit must be a non-negative integer, got %q", l))
			return
		}
		filter.Limit = n
	}

	entries, err := h.Engine.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ServeWS upgrades to a websocket that receives the project's seating events.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "Realtime events are not enabled", nil)
		return
	}
	h.Hub.ServeWS(w, r, projectID(r))
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// requireGuestInProject hides guests of other projects behind a 404.
func (h *Handler) requireGuestInProject(w http.ResponseWriter, r *http.Request, guestID seating.GuestID) bool {
	g, err := h.Engine.Store.GetGuest(r.Context(), guestID)
	if err == nil && g.ProjectID != projectID(r) {
		err = &seating.NotFoundError{Kind: "guest", ID: string(guestID)}
	}
	if err != nil {
		h.writeDomainError(w, err)
		return false
	}
	return true
}

// decode reads and validates a JSON body. On failure the 400 response has
// already been written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.Validator.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, seating.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, seating.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, seating.ErrAlreadyExists):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, seating.ErrCapacityExceeded):
		return http.StatusConflict, "Table is full"
	case errors.Is(err, seating.ErrConstraintViolation):
		return http.StatusConflict, "Seating constraint violated"
	case errors.Is(err, seating.ErrAlreadyAssigned):
		return http.StatusConflict, "Guest is already seated"
	case errors.Is(err, seating.ErrNotAssigned):
		return http.StatusConflict, "Guest is not seated"
	case errors.Is(err, seating.ErrDuplicateConstraint):
		return http.StatusConflict, "Constraint already exists"
	case errors.Is(err, seating.ErrTableOccupied):
		return http.StatusConflict, "Table is occupied"
	case errors.Is(err, seating.ErrSelfConstraint):
		return http.StatusBadRequest, "A guest cannot be constrained with themselves"
	case errors.Is(err, seating.ErrInvalidConstraintType):
		return http.StatusBadRequest, "Invalid constraint type"
	case errors.Is(err, seating.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid input"
	}
	return http.StatusInternalServerError, "Internal error"
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
