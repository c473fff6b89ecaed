package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"

	"github.com/arsenmarkotskyi/tt-event-management/internal/email"
)

type fakeSender struct {
	sent []email.EventSummary
	to   []string
	err  error
}

func (f *fakeSender) SendRegistrationConfirmation(_ context.Context, to, _ string, event email.EventSummary) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.sent = append(f.sent, event)
	return nil
}

func TestRegistrationEmailWorker(t *testing.T) {
	sender := &fakeSender{}
	worker := RegistrationEmailWorker{Sender: sender}

	job := &river.Job[RegistrationEmailArgs]{
		JobRow: &rivertype.JobRow{},
		Args: RegistrationEmailArgs{
			To:               "user@example.com",
			Username:         "alice",
			EventTitle:       "Go Meetup",
			EventDescription: "<p>Talks and pizza.</p>",
			EventLocation:    "Vilnius",
			EventDate:        time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, worker.Work(context.Background(), job))
	require.Equal(t, []string{"user@example.com"}, sender.to)
	require.Equal(t, "Go Meetup", sender.sent[0].Title)
	require.Equal(t, "<p>Talks and pizza.</p>", sender.sent[0].Description)
}

func TestRegistrationEmailWorkerPropagatesError(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	worker := RegistrationEmailWorker{Sender: sender}

	job := &river.Job[RegistrationEmailArgs]{
		JobRow: &rivertype.JobRow{},
		Args:   RegistrationEmailArgs{To: "user@example.com"},
	}

	require.Error(t, worker.Work(context.Background(), job))
}

func TestRetryPolicyBacksOff(t *testing.T) {
	policy := NewRetryPolicy()

	first := policy.NextRetry(&rivertype.JobRow{Kind: JobKindRegistrationEmail, Attempt: 1})
	third := policy.NextRetry(&rivertype.JobRow{Kind: JobKindRegistrationEmail, Attempt: 3})

	require.True(t, third.After(first))
}

func TestInsertOptsForKind(t *testing.T) {
	opts := InsertOptsForKind(JobKindRegistrationEmail)
	require.Equal(t, RegistrationEmailMaxAttempts, opts.MaxAttempts)
}
