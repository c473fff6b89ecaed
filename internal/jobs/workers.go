package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/arsenmarkotskyi/tt-event-management/internal/email"
)

// RegistrationEmailArgs carries everything needed to render and send a
// registration confirmation, so the worker never touches the database.
type RegistrationEmailArgs struct {
	RegistrationID   string    `json:"registration_id"`
	To               string    `json:"to"`
	Username         string    `json:"username"`
	EventID          string    `json:"event_id"`
	EventTitle       string    `json:"event_title"`
	EventDescription string    `json:"event_description"`
	EventLocation    string    `json:"event_location"`
	EventDate        time.Time `json:"event_date"`
}

func (RegistrationEmailArgs) Kind() string { return JobKindRegistrationEmail }

// EmailSender is the slice of the email service the worker needs.
type EmailSender interface {
	SendRegistrationConfirmation(ctx context.Context, to, username string, event email.EventSummary) error
}

type RegistrationEmailWorker struct {
	river.WorkerDefaults[RegistrationEmailArgs]
	Sender EmailSender
}

func (RegistrationEmailWorker) Kind() string { return JobKindRegistrationEmail }

func (w RegistrationEmailWorker) Work(ctx context.Context, job *river.Job[RegistrationEmailArgs]) error {
	if w.Sender == nil {
		return fmt.Errorf("email sender not configured")
	}
	return w.Sender.SendRegistrationConfirmation(ctx, job.Args.To, job.Args.Username, email.EventSummary{
		Title:       job.Args.EventTitle,
		Description: job.Args.EventDescription,
		Date:        job.Args.EventDate,
		Location:    job.Args.EventLocation,
	})
}

// NewWorkers registers every worker the server runs.
func NewWorkers(sender EmailSender) (*river.Workers, error) {
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, RegistrationEmailWorker{Sender: sender}); err != nil {
		return nil, fmt.Errorf("register registration email worker: %w", err)
	}
	return workers, nil
}
