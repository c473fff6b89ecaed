package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api/pagination"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/ids"
	"github.com/arsenmarkotskyi/tt-event-management/internal/sanitize"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "events").Logger(),
		now:    time.Now,
	}
}

type CreateParams struct {
	Title           string
	Description     string
	Date            time.Time
	Location        string
	MaxParticipants *int
}

// UpdateParams carries a partial update. Nil fields keep their current
// values; ClearMaxParticipants removes the attendance cap.
type UpdateParams struct {
	Title                *string
	Description          *string
	Date                 *time.Time
	Location             *string
	MaxParticipants      *int
	ClearMaxParticipants bool
}

// Create stores a new event organized by organizerID.
func (s *Service) Create(ctx context.Context, organizerID string, params CreateParams) (Detail, error) {
	id, err := ids.NewULID()
	if err != nil {
		return Detail{}, fmt.Errorf("mint event id: %w", err)
	}

	event := Event{
		ID:              id,
		Title:           sanitize.Text(params.Title),
		Description:     sanitize.HTML(params.Description),
		Date:            params.Date,
		Location:        sanitize.Text(params.Location),
		OrganizerID:     organizerID,
		MaxParticipants: params.MaxParticipants,
	}

	if err := s.validate(event); err != nil {
		return Detail{}, err
	}

	created, err := s.repo.CreateEvent(ctx, event)
	if err != nil {
		return Detail{}, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info().Str("event_id", created.ID).Str("organizer_id", organizerID).Msg("event created")
	return s.repo.GetEvent(ctx, created.ID, organizerID)
}

// Get loads an event. Derived viewer-relative fields are computed against
// viewerID, which may be empty for anonymous requests.
func (s *Service) Get(ctx context.Context, id, viewerID string) (Detail, error) {
	if err := ids.ValidateULID(id); err != nil {
		return Detail{}, ErrNotFound
	}
	return s.repo.GetEvent(ctx, id, viewerID)
}

// List returns a page of events matching the filters plus the total match
// count.
func (s *Service) List(ctx context.Context, filters Filters, viewerID string, page pagination.Page) ([]Detail, int64, error) {
	results, total, err := s.repo.ListEvents(ctx, filters, viewerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	if results == nil {
		results = []Detail{}
	}
	return results, total, nil
}

// Update applies a partial update. Only the organizer may modify an event.
func (s *Service) Update(ctx context.Context, id, actorID string, params UpdateParams) (Detail, error) {
	current, err := s.Get(ctx, id, actorID)
	if err != nil {
		return Detail{}, err
	}
	if current.OrganizerID != actorID {
		return Detail{}, ErrNotOrganizer
	}

	event := current.Event
	if params.Title != nil {
		event.Title = sanitize.Text(*params.Title)
	}
	if params.Description != nil {
		event.Description = sanitize.HTML(*params.Description)
	}
	if params.Date != nil {
		event.Date = *params.Date
	}
	if params.Location != nil {
		event.Location = sanitize.Text(*params.Location)
	}
	if params.ClearMaxParticipants {
		event.MaxParticipants = nil
	} else if params.MaxParticipants != nil {
		event.MaxParticipants = params.MaxParticipants
	}

	if err := s.validate(event); err != nil {
		return Detail{}, err
	}

	if _, err := s.repo.UpdateEvent(ctx, event); err != nil {
		return Detail{}, fmt.Errorf("update event: %w", err)
	}

	s.logger.Info().Str("event_id", id).Msg("event updated")
	return s.repo.GetEvent(ctx, id, actorID)
}

// Delete removes an event and, by cascade, its registrations. Only the
// organizer may delete.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	current, err := s.Get(ctx, id, actorID)
	if err != nil {
		return err
	}
	if current.OrganizerID != actorID {
		return ErrNotOrganizer
	}

	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.logger.Info().Str("event_id", id).Msg("event deleted")
	return nil
}

func (s *Service) validate(event Event) error {
	if event.Title == "" {
		return ValidationError{Field: "title", Message: "must not be empty"}
	}
	if event.Location == "" {
		return ValidationError{Field: "location", Message: "must not be empty"}
	}
	if event.Date.IsZero() {
		return ValidationError{Field: "date", Message: "must be set"}
	}
	if !event.Date.After(s.now()) {
		return ValidationError{Field: "date", Message: "must be in the future"}
	}
	if event.MaxParticipants != nil && *event.MaxParticipants < 1 {
		return ValidationError{Field: "max_participants", Message: "must be at least 1"}
	}
	return nil
}
