package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api/middleware"
	"github.com/arsenmarkotskyi/tt-event-management/internal/api/pagination"
	"github.com/arsenmarkotskyi/tt-event-management/internal/api/problem"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/registrations"
	"github.com/arsenmarkotskyi/tt-event-management/internal/metrics"
)

type RegistrationsHandler struct {
	service *registrations.Service
	env     string
}

func NewRegistrationsHandler(service *registrations.Service, env string) *RegistrationsHandler {
	return &RegistrationsHandler{service: service, env: env}
}

type registrationResponse struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

type attendeeResponse struct {
	RegistrationID string    `json:"registration_id"`
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	RegisteredAt   time.Time `json:"registered_at"`
}

type userRegistrationResponse struct {
	ID           string        `json:"id"`
	RegisteredAt time.Time     `json:"registered_at"`
	Event        eventResponse `json:"event"`
}

func (h *RegistrationsHandler) Register(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", nil, h.env)
		return
	}

	reg, err := h.service.Register(r.Context(), r.PathValue("id"), user)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
		case errors.Is(err, registrations.ErrAlreadyRegistered):
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict,
				"Already registered for this event", err, h.env)
		case errors.Is(err, registrations.ErrEventFull):
			metrics.RegistrationsTotal.WithLabelValues("full").Inc()
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Event is full", err, h.env)
		case errors.Is(err, registrations.ErrEventPast):
			metrics.RegistrationsTotal.WithLabelValues("past").Inc()
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict,
				"Event has already happened", err, h.env)
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to register", err, h.env)
		}
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	writeJSON(w, r, http.StatusCreated, registrationResponse{
		ID:           reg.ID,
		EventID:      reg.EventID,
		UserID:       reg.UserID,
		RegisteredAt: reg.CreatedAt,
	})
}

func (h *RegistrationsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", nil, h.env)
		return
	}

	if err := h.service.Unregister(r.Context(), r.PathValue("id"), user.ID); err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
		case errors.Is(err, registrations.ErrNotRegistered):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound,
				"Not registered for this event", err, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to unregister", err, h.env)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListForEvent returns the attendee list for the organizer.
func (h *RegistrationsHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", nil, h.env)
		return
	}

	page, err := pagination.Parse(r.URL.Query())
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid pagination parameters", err, h.env)
		return
	}

	attendees, total, err := h.service.ListForEvent(r.Context(), r.PathValue("id"), user.ID, page)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.env)
		case errors.Is(err, events.ErrNotOrganizer):
			problem.Write(w, r, http.StatusForbidden, problem.TypePermission,
				"Only the organizer may view registrations", err, h.env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError,
				"Failed to list registrations", err, h.env)
		}
		return
	}

	results := make([]attendeeResponse, 0, len(attendees))
	for _, a := range attendees {
		results = append(results, attendeeResponse{
			RegistrationID: a.RegistrationID,
			UserID:         a.UserID,
			Username:       a.Username,
			Email:          a.Email,
			FirstName:      a.FirstName,
			LastName:       a.LastName,
			RegisteredAt:   a.RegisteredAt,
		})
	}

	writeJSON(w, r, http.StatusOK, pagination.NewEnvelope(total, page, results))
}

// ListForUser returns the caller's own registrations.
func (h *RegistrationsHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", nil, h.env)
		return
	}

	page, err := pagination.Parse(r.URL.Query())
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid pagination parameters", err, h.env)
		return
	}

	regs, total, err := h.service.ListForUser(r.Context(), user.ID, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError,
			"Failed to list registrations", err, h.env)
		return
	}

	results := make([]userRegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		results = append(results, userRegistrationResponse{
			ID:           reg.ID,
			RegisteredAt: reg.RegisteredAt,
			Event:        newEventResponse(reg.Event),
		})
	}

	writeJSON(w, r, http.StatusOK, pagination.NewEnvelope(total, page, results))
}
