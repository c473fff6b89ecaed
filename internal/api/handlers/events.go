package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api/middleware"
	"github.com/arsenmarkotskyi/tt-event-management/internal/api/pagination"
	"github.com/arsenmarkotskyi/tt-event-management/internal/api/problem"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
)

type EventsHandler struct {
	service *events.Service
	env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{service: service, env: env}
}

type organizerResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type eventResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Date            time.Time         `json:"date"`
	Location        string            `json:"location"`
	Organizer       organizerResponse `json:"organizer"`
	MaxParticipants *int              `json:"max_participants"`
	RegisteredCount int64             `json:"registered_count"`
	IsRegistered    bool              `json:"is_registered"`
	IsFull          bool              `json:"is_full"`
	IsPast          bool              `json:"is_past"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func newEventResponse(detail events.Detail) eventResponse {
	return eventResponse{
		ID:          detail.ID,
		Title:       detail.Title,
		Description: detail.Description,
		Date:        detail.Date,
		Location:    detail.Location,
		Organizer: organizerResponse{
			ID:        detail.Organizer.ID,
			Username:  detail.Organizer.Username,
			Email:     detail.Organizer.Email,
			FirstName: detail.Organizer.FirstName,
			LastName:  detail.Organizer.LastName,
		},
		MaxParticipants: detail.MaxParticipants,
		RegisteredCount: detail.RegisteredCount,
		IsRegistered:    detail.IsRegistered,
		IsFull:          detail.IsFull(),
		IsPast:          detail.IsPast(time.Now()),
		CreatedAt:       detail.CreatedAt,
		UpdatedAt:       detail.UpdatedAt,
	}
}

func newEventResponses(details []events.Detail) []eventResponse {
	out := make([]eventResponse, 0, len(details))
	for _, detail := range details {
		out = append(out, newEventResponse(detail))
	}
	return out
}

// optionalInt distinguishes an absent field from an explicit null.
type optionalInt struct {
	Set   bool
	Value *int
}

func (o *optionalInt) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

type createEventRequest struct {
	Title           string    `json:"title" validate:"required,max=200"`
	Description     string    `json:"description" validate:"max=10000"`
	Date            time.Time `json:"date" validate:"required"`
	Location        string    `json:"location" validate:"required,max=200"`
	MaxParticipants *int      `json:"max_participants"`
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", nil, h.env)
		return
	}

	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid event data", err, h.env,
			problem.WithErrors(fieldErrors(err)))
		return
	}

	detail, err := h.service.Create(r.Context(), user.ID, events.CreateParams{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Location:        req.Location,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		h.writeEventError(w, r, err, "Failed to create event")
		return
	}

	writeJSON(w, r, http.StatusCreated, newEventResponse(detail))
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := events.ParseFilters(r.URL.Query())
	if err != nil {
		var ferr events.FilterError
		if errors.As(err, &ferr) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid filter parameters", err, h.env,
				problem.WithErrors(map[string]interface{}{ferr.Field: ferr.Message}))
			return
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid filter parameters", err, h.env)
		return
	}

	page, err := pagination.Parse(r.URL.Query())
	if err != nil {
		var perr pagination.Error
		if errors.As(err, &perr) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid pagination parameters", err, h.env,
				problem.WithErrors(map[string]interface{}{perr.Field: perr.Message}))
			return
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid pagination parameters", err, h.env)
		return
	}

	viewerID := ""
	if user, ok := middleware.CurrentUser(r.Context()); ok {
		viewerID = user.ID
	}

	results, total, err := h.service.List(r.Context(), filters, viewerID, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to list events", err, h.env)
		return
	}

	writeJSON(w, r, http.StatusOK, pagination.NewEnvelope(total, page, newEventResponses(results)))
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewerID := ""
	if user, ok := middleware.CurrentUser(r.Context()); ok {
		viewerID = user.ID
	}

	detail, err := h.service.Get(r.Context(), r.PathValue("id"), viewerID)
	if err != nil {
		h.writeEventError(w, r, err, "Failed to load event")
		return
	}

	writeJSON(w, r, http.StatusOK, newEventResponse(detail))
}

type updateEventRequest struct {
	Title           *string     `json:"title" validate:"omitempty,max=200"`
	Description     *string     `json:"description" validate:"omitempty,max=10000"`
	Date            *time.Time  `json:"date"`
	Location        *string     `json:"location" validate:"omitempty,max=200"`
	MaxParticipants optionalInt `json:"max_participants"`
}

func (req updateEventRequest) params() events.UpdateParams {
	params := events.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
	}
	if req.MaxParticipants.Set {
		if req.MaxParticipants.Value == nil {
			params.ClearMaxParticipants = true
		} else {
			params.MaxParticipants = req.MaxParticipants.Value
		}
	}
	return params
}

// Update handles full replacement. Every mutable field must be present.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}

	missing := map[string]interface{}{}
	if req.Title == nil {
		missing["title"] = "this field is required"
	}
	if req.Date == nil {
		missing["date"] = "this field is required"
	}
	if req.Location == nil {
		missing["location"] = "this field is required"
	}
	if len(missing) > 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid event data", nil, h.env,
			problem.WithErrors(missing))
		return
	}
	if req.Description == nil {
		empty := ""
		req.Description = &empty
	}
	if !req.MaxParticipants.Set {
		req.MaxParticipants = optionalInt{Set: true}
	}

	h.applyUpdate(w, r, req)
}

// PartialUpdate handles PATCH. Absent fields keep their values.
func (h *EventsHandler) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}

	h.applyUpdate(w, r, req)
}

func (h *EventsHandler) applyUpdate(w http.ResponseWriter, r *http.Request, req updateEventRequest) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", nil, h.env)
		return
	}

	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid event data", err, h.env,
			problem.WithErrors(fieldErrors(err)))
		return
	}

	detail, err := h.service.Update(r.Context(), r.PathValue("id"), user.ID, req.params())
	if err != nil {
		h.writeEventError(w, r, err, "Failed to update event")
		return
	}

	writeJSON(w, r, http.StatusOK, newEventResponse(detail))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", nil, h.env)
		return
	}

	if err := h.service.Delete(r.Context(), r.PathValue("id"), user.ID); err != nil {
		h.writeEventError(w, r, err, "Failed to delete event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error, title string) {
	var verr events.ValidationError
	switch {
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
	case errors.Is(err, events.ErrNotOrganizer):
		problem.Write(w, r, http.StatusForbidden, problem.TypePermission,
			"Only the organizer may modify this event", err, h.env)
	case errors.As(err, &verr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid event data", err, h.env,
			problem.WithErrors(map[string]interface{}{verr.Field: verr.Message}))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, title, err, h.env)
	}
}
