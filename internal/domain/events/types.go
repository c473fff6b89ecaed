package events

import (
	"context"
	"time"
)

// Event is the stored form of an event. MaxParticipants is nil when
// attendance is unlimited.
type Event struct {
	ID              string
	Title           string
	Description     string
	Date            time.Time
	Location        string
	OrganizerID     string
	MaxParticipants *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Organizer is the public slice of the organizing user embedded in event
// responses.
type Organizer struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// Detail is an event enriched with viewer-relative and derived state.
type Detail struct {
	Event
	Organizer       Organizer
	RegisteredCount int64
	IsRegistered    bool
}

// IsFull reports whether the event has no seats left. Unlimited events are
// never full.
func (d Detail) IsFull() bool {
	if d.MaxParticipants == nil {
		return false
	}
	return d.RegisteredCount >= int64(*d.MaxParticipants)
}

// IsPast reports whether the event date is behind the given instant.
func (d Detail) IsPast(now time.Time) bool {
	return d.Date.Before(now)
}

type Repository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	// GetEvent loads an event with derived fields. viewerID may be empty for
	// anonymous reads.
	GetEvent(ctx context.Context, id, viewerID string) (Detail, error)
	ListEvents(ctx context.Context, filters Filters, viewerID string, limit, offset int) ([]Detail, int64, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}
