package registrations

import (
	"context"
	"time"

	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
)

type Registration struct {
	ID        string
	EventID   string
	UserID    string
	CreatedAt time.Time
}

// Attendee is a registration as the organizer sees it.
type Attendee struct {
	RegistrationID string
	UserID         string
	Username       string
	Email          string
	FirstName      string
	LastName       string
	RegisteredAt   time.Time
}

// UserRegistration is a registration as the attendee sees it, with the
// event embedded.
type UserRegistration struct {
	ID           string
	RegisteredAt time.Time
	Event        events.Detail
}

type Repository interface {
	// WithTx runs fn against a transaction-bound repository. Nested calls
	// reuse the transaction already in flight.
	WithTx(ctx context.Context, fn func(Repository) error) error

	GetEvent(ctx context.Context, eventID string) (events.Event, error)
	// GetEventForUpdate locks the event row so concurrent registrations
	// serialize on the capacity check.
	GetEventForUpdate(ctx context.Context, eventID string) (events.Event, error)
	CountRegistrations(ctx context.Context, eventID string) (int64, error)
	InsertRegistration(ctx context.Context, reg Registration) (Registration, error)
	DeleteRegistration(ctx context.Context, eventID, userID string) (bool, error)
	ListForEvent(ctx context.Context, eventID string, limit, offset int) ([]Attendee, int64, error)
	ListForUser(ctx context.Context, userID string, viewerID string, limit, offset int) ([]UserRegistration, int64, error)
}

// Notification carries everything the confirmation email needs, so dispatch
// does not read the database again.
type Notification struct {
	RegistrationID   string
	UserEmail        string
	Username         string
	EventID          string
	EventTitle       string
	EventDescription string
	EventLocation    string
	EventDate        time.Time
}

// Notifier delivers registration confirmations out of band.
type Notifier interface {
	RegistrationCreated(ctx context.Context, n Notification) error
}
