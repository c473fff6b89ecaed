package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api/problem"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/registrations"
)

type stubRegistrationsRepo struct {
	getEventFn     func(eventID string) (events.Event, error)
	countFn        func(eventID string) (int64, error)
	insertFn       func(reg registrations.Registration) (registrations.Registration, error)
	deleteFn       func(eventID, userID string) (bool, error)
	listForEventFn func(eventID string, limit, offset int) ([]registrations.Attendee, int64, error)
	listForUserFn  func(userID, viewerID string, limit, offset int) ([]registrations.UserRegistration, int64, error)
}

func (s stubRegistrationsRepo) WithTx(_ context.Context, fn func(registrations.Repository) error) error {
	return fn(s)
}

func (s stubRegistrationsRepo) GetEvent(_ context.Context, eventID string) (events.Event, error) {
	return s.getEventFn(eventID)
}

func (s stubRegistrationsRepo) GetEventForUpdate(_ context.Context, eventID string) (events.Event, error) {
	return s.getEventFn(eventID)
}

func (s stubRegistrationsRepo) CountRegistrations(_ context.Context, eventID string) (int64, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(eventID)
}

func (s stubRegistrationsRepo) InsertRegistration(_ context.Context, reg registrations.Registration) (registrations.Registration, error) {
	return s.insertFn(reg)
}

func (s stubRegistrationsRepo) DeleteRegistration(_ context.Context, eventID, userID string) (bool, error) {
	return s.deleteFn(eventID, userID)
}

func (s stubRegistrationsRepo) ListForEvent(_ context.Context, eventID string, limit, offset int) ([]registrations.Attendee, int64, error) {
	return s.listForEventFn(eventID, limit, offset)
}

func (s stubRegistrationsRepo) ListForUser(_ context.Context, userID, viewerID string, limit, offset int) ([]registrations.UserRegistration, int64, error) {
	return s.listForUserFn(userID, viewerID, limit, offset)
}

func newRegistrationsHandler(repo registrations.Repository) *RegistrationsHandler {
	service := registrations.NewService(repo, nil, false, zerolog.Nop())
	return NewRegistrationsHandler(service, "test")
}

func upcomingEvent() events.Event {
	return events.Event{
		ID:          testEventID,
		Title:       "Community Picnic",
		Date:        time.Now().Add(48 * time.Hour),
		Location:    "Riverside Park",
		OrganizerID: testUserID,
	}
}

func TestRegistrationsRegisterSuccess(t *testing.T) {
	repo := stubRegistrationsRepo{
		getEventFn: func(eventID string) (events.Event, error) {
			require.Equal(t, testEventID, eventID)
			return upcomingEvent(), nil
		},
		insertFn: func(reg registrations.Registration) (registrations.Registration, error) {
			reg.CreatedAt = time.Now()
			return reg, nil
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodPost, "/events/"+testEventID+"/register/", "", testOtherID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.Register(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp registrationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, testEventID, resp.EventID)
	require.Equal(t, testOtherID, resp.UserID)
	require.Len(t, resp.ID, 26)
}

func TestRegistrationsRegisterRequiresAuth(t *testing.T) {
	handler := newRegistrationsHandler(stubRegistrationsRepo{})

	req := httptest.NewRequest(http.MethodPost, "/events/"+testEventID+"/register/", nil)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.Register(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegistrationsRegisterUnknownEvent(t *testing.T) {
	repo := stubRegistrationsRepo{
		getEventFn: func(_ string) (events.Event, error) {
			return events.Event{}, events.ErrNotFound
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodPost, "/events/"+testEventID+"/register/", "", testOtherID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.Register(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegistrationsRegisterDuplicate(t *testing.T) {
	repo := stubRegistrationsRepo{
		getEventFn: func(_ string) (events.Event, error) {
			return upcomingEvent(), nil
		},
		insertFn: func(_ registrations.Registration) (registrations.Registration, error) {
			return registrations.Registration{}, registrations.ErrAlreadyRegistered
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodPost, "/events/"+testEventID+"/register/", "", testOtherID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.Register(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	p := decodeProblem(t, w)
	require.Equal(t, problem.TypeConflict, p.Type)
}

func TestRegistrationsRegisterFullEvent(t *testing.T) {
	seats := 2
	repo := stubRegistrationsRepo{
		getEventFn: func(_ string) (events.Event, error) {
			event := upcomingEvent()
			event.MaxParticipants = &seats
			return event, nil
		},
		countFn: func(_ string) (int64, error) {
			return 2, nil
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodPost, "/events/"+testEventID+"/register/", "", testOtherID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.Register(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	p := decodeProblem(t, w)
	require.Equal(t, "Event is full", p.Title)
}

func TestRegistrationsRegisterPastEvent(t *testing.T) {
	repo := stubRegistrationsRepo{
		getEventFn: func(_ string) (events.Event, error) {
			event := upcomingEvent()
			event.Date = time.Now().Add(-24 * time.Hour)
			return event, nil
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodPost, "/events/"+testEventID+"/register/", "", testOtherID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.Register(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	p := decodeProblem(t, w)
	require.Equal(t, problem.TypeConflict, p.Type)
	require.Equal(t, "Event has already happened", p.Title)
}

func TestRegistrationsUnregisterSuccess(t *testing.T) {
	repo := stubRegistrationsRepo{
		getEventFn: func(_ string) (events.Event, error) {
			return upcomingEvent(), nil
		},
		deleteFn: func(eventID, userID string) (bool, error) {
			require.Equal(t, testEventID, eventID)
			require.Equal(t, testOtherID, userID)
			return true, nil
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodDelete, "/events/"+testEventID+"/register/", "", testOtherID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.Unregister(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRegistrationsUnregisterNotRegistered(t *testing.T) {
	repo := stubRegistrationsRepo{
		getEventFn: func(_ string) (events.Event, error) {
			return upcomingEvent(), nil
		},
		deleteFn: func(_, _ string) (bool, error) {
			return false, nil
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodDelete, "/events/"+testEventID+"/register/", "", testOtherID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.Unregister(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	p := decodeProblem(t, w)
	require.Equal(t, "Not registered for this event", p.Title)
}

func TestRegistrationsListForEventAsOrganizer(t *testing.T) {
	repo := stubRegistrationsRepo{
		getEventFn: func(_ string) (events.Event, error) {
			return upcomingEvent(), nil
		},
		listForEventFn: func(eventID string, limit, offset int) ([]registrations.Attendee, int64, error) {
			require.Equal(t, 20, limit)
			require.Equal(t, 0, offset)
			return []registrations.Attendee{
				{
					RegistrationID: "01J9ZQ4X5YV0NQRB2YC2K3TC7X",
					UserID:         testOtherID,
					Username:       "diego",
					Email:          "diego@example.com",
					RegisteredAt:   time.Now(),
				},
			}, 1, nil
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodGet, "/events/"+testEventID+"/registrations/", "", testUserID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.ListForEvent(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Count   int64              `json:"count"`
		Results []attendeeResponse `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.Equal(t, int64(1), envelope.Count)
	require.Equal(t, "diego", envelope.Results[0].Username)
}

func TestRegistrationsListForEventNonOrganizer(t *testing.T) {
	repo := stubRegistrationsRepo{
		getEventFn: func(_ string) (events.Event, error) {
			return upcomingEvent(), nil
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodGet, "/events/"+testEventID+"/registrations/", "", testOtherID)
	req.SetPathValue("id", testEventID)
	w := httptest.NewRecorder()

	handler.ListForEvent(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	p := decodeProblem(t, w)
	require.Equal(t, problem.TypePermission, p.Type)
}

func TestRegistrationsListForUser(t *testing.T) {
	repo := stubRegistrationsRepo{
		listForUserFn: func(userID, viewerID string, limit, offset int) ([]registrations.UserRegistration, int64, error) {
			require.Equal(t, testOtherID, userID)
			require.Equal(t, testOtherID, viewerID)
			detail := testDetail(testUserID)
			detail.IsRegistered = true
			return []registrations.UserRegistration{
				{ID: "01J9ZQ4X5YV0NQRB2YC2K3TC7X", RegisteredAt: time.Now(), Event: detail},
			}, 1, nil
		},
	}
	handler := newRegistrationsHandler(repo)

	req := authedRequest(http.MethodGet, "/registrations/", "", testOtherID)
	w := httptest.NewRecorder()

	handler.ListForUser(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Count   int64                      `json:"count"`
		Results []userRegistrationResponse `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.Equal(t, int64(1), envelope.Count)
	require.Equal(t, "Community Picnic", envelope.Results[0].Event.Title)
	require.True(t, envelope.Results[0].Event.IsRegistered)
}
