package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/registrations"
)

// Dispatcher enqueues notification jobs on River. It satisfies the
// registration service's Notifier.
type Dispatcher struct {
	client *river.Client[pgx.Tx]
}

func NewDispatcher(client *river.Client[pgx.Tx]) *Dispatcher {
	return &Dispatcher{client: client}
}

var _ registrations.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) RegistrationCreated(ctx context.Context, n registrations.Notification) error {
	opts := InsertOptsForKind(JobKindRegistrationEmail)
	_, err := d.client.Insert(ctx, RegistrationEmailArgs{
		RegistrationID:   n.RegistrationID,
		To:               n.UserEmail,
		Username:         n.Username,
		EventID:          n.EventID,
		EventTitle:       n.EventTitle,
		EventDescription: n.EventDescription,
		EventLocation:    n.EventLocation,
		EventDate:        n.EventDate,
	}, &opts)
	if err != nil {
		return fmt.Errorf("enqueue registration email: %w", err)
	}
	return nil
}
