package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api/pagination"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/accounts"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/ids"
)

var (
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrEventFull         = errors.New("event is full")
	ErrEventPast         = errors.New("event has already happened")
	ErrNotRegistered     = errors.New("not registered for this event")
)

type Service struct {
	repo      Repository
	notifier  Notifier
	logger    zerolog.Logger
	allowPast bool
	now       func() time.Time
}

// NewService wires the registration workflow. notifier may be nil when
// confirmations are disabled.
func NewService(repo Repository, notifier Notifier, allowPast bool, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		notifier:  notifier,
		logger:    logger.With().Str("component", "registrations").Logger(),
		allowPast: allowPast,
		now:       time.Now,
	}
}

// Register signs user up for an event. The capacity check and the insert run
// in one transaction with the event row locked, so an event with N seats
// never admits N+1 attendees. The confirmation email is dispatched after
// commit and never fails the registration.
func (s *Service) Register(ctx context.Context, eventID string, user accounts.User) (Registration, error) {
	if err := ids.ValidateULID(eventID); err != nil {
		return Registration{}, events.ErrNotFound
	}

	var (
		reg   Registration
		event events.Event
	)
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		var err error
		event, err = tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		if !s.allowPast && event.Date.Before(s.now()) {
			return ErrEventPast
		}

		if event.MaxParticipants != nil {
			count, err := tx.CountRegistrations(ctx, eventID)
			if err != nil {
				return fmt.Errorf("count registrations: %w", err)
			}
			if count >= int64(*event.MaxParticipants) {
				return ErrEventFull
			}
		}

		id, err := ids.NewULID()
		if err != nil {
			return fmt.Errorf("mint registration id: %w", err)
		}
		reg, err = tx.InsertRegistration(ctx, Registration{
			ID:      id,
			EventID: eventID,
			UserID:  user.ID,
		})
		return err
	})
	if err != nil {
		return Registration{}, err
	}

	s.logger.Info().
		Str("registration_id", reg.ID).
		Str("event_id", eventID).
		Str("user_id", user.ID).
		Msg("registration created")

	s.notify(ctx, reg, event, user)
	return reg, nil
}

// Unregister removes the user's registration. Failing to find one on an
// existing event is ErrNotRegistered.
func (s *Service) Unregister(ctx context.Context, eventID, userID string) error {
	if err := ids.ValidateULID(eventID); err != nil {
		return events.ErrNotFound
	}

	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteRegistration(ctx, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if !deleted {
		return ErrNotRegistered
	}

	s.logger.Info().Str("event_id", eventID).Str("user_id", userID).Msg("registration removed")
	return nil
}

// ListForEvent returns the attendee list. Only the organizer may see it.
func (s *Service) ListForEvent(ctx context.Context, eventID, actorID string, page pagination.Page) ([]Attendee, int64, error) {
	if err := ids.ValidateULID(eventID); err != nil {
		return nil, 0, events.ErrNotFound
	}

	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	if event.OrganizerID != actorID {
		return nil, 0, events.ErrNotOrganizer
	}

	attendees, total, err := s.repo.ListForEvent(ctx, eventID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list attendees: %w", err)
	}
	if attendees == nil {
		attendees = []Attendee{}
	}
	return attendees, total, nil
}

// ListForUser returns the caller's registrations with their events embedded.
func (s *Service) ListForUser(ctx context.Context, userID string, page pagination.Page) ([]UserRegistration, int64, error) {
	regs, total, err := s.repo.ListForUser(ctx, userID, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	if regs == nil {
		regs = []UserRegistration{}
	}
	return regs, total, nil
}

func (s *Service) notify(ctx context.Context, reg Registration, event events.Event, user accounts.User) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.RegistrationCreated(ctx, Notification{
		RegistrationID:   reg.ID,
		UserEmail:        user.Email,
		Username:         user.Username,
		EventID:          event.ID,
		EventTitle:       event.Title,
		EventDescription: event.Description,
		EventLocation:    event.Location,
		EventDate:        event.Date,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("registration_id", reg.ID).
			Msg("failed to enqueue confirmation email")
	}
}
