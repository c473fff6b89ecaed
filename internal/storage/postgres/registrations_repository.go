package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/registrations"
)

var _ registrations.Repository = (*RegistrationRepository)(nil)

func (r *RegistrationRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *RegistrationRepository) WithTx(ctx context.Context, fn func(registrations.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &RegistrationRepository{pool: r.pool, tx: tx}
	if err := fn(wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const eventColumns = `id, title, description, date, location, organizer_id, max_participants, created_at, updated_at`

func (r *RegistrationRepository) GetEvent(ctx context.Context, eventID string) (events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE id = $1`, eventID)
	return scanEvent(row)
}

func (r *RegistrationRepository) GetEventForUpdate(ctx context.Context, eventID string) (events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE id = $1
   FOR UPDATE`, eventID)
	return scanEvent(row)
}

func (r *RegistrationRepository) CountRegistrations(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.queryer().QueryRow(ctx,
		`SELECT count(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func (r *RegistrationRepository) InsertRegistration(ctx context.Context, reg registrations.Registration) (registrations.Registration, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO registrations (id, event_id, user_id)
VALUES ($1, $2, $3)
RETURNING created_at`,
		reg.ID,
		reg.EventID,
		reg.UserID,
	)
	if err := row.Scan(&reg.CreatedAt); err != nil {
		if isUniqueViolation(err, "registrations_event_id_user_id_key") {
			return registrations.Registration{}, registrations.ErrAlreadyRegistered
		}
		return registrations.Registration{}, fmt.Errorf("insert registration: %w", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) DeleteRegistration(ctx context.Context, eventID, userID string) (bool, error) {
	tag, err := r.queryer().Exec(ctx,
		`DELETE FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RegistrationRepository) ListForEvent(ctx context.Context, eventID string, limit, offset int) ([]registrations.Attendee, int64, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT r.id, r.user_id, u.username, u.email, u.first_name, u.last_name, r.created_at
  FROM registrations r
  JOIN users u ON u.id = r.user_id
 WHERE r.event_id = $1
 ORDER BY r.created_at ASC, r.id ASC
 LIMIT $2 OFFSET $3`, eventID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	items := make([]registrations.Attendee, 0, limit)
	for rows.Next() {
		var a registrations.Attendee
		if err := rows.Scan(
			&a.RegistrationID,
			&a.UserID,
			&a.Username,
			&a.Email,
			&a.FirstName,
			&a.LastName,
			&a.RegisteredAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan attendee: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate attendees: %w", err)
	}

	var total int64
	err = r.queryer().QueryRow(ctx,
		`SELECT count(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count attendees: %w", err)
	}

	return items, total, nil
}

func (r *RegistrationRepository) ListForUser(ctx context.Context, userID, viewerID string, limit, offset int) ([]registrations.UserRegistration, int64, error) {
	query := `
SELECT r.id, r.created_at, ` + fmt.Sprintf(eventDetailColumns, "$2") + `
  FROM registrations r
  JOIN events e ON e.id = r.event_id
  JOIN users u ON u.id = e.organizer_id
 WHERE r.user_id = $1
 ORDER BY e.date ASC, r.id ASC
 LIMIT $3 OFFSET $4`

	rows, err := r.queryer().Query(ctx, query, userID, nullable(viewerID), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	items := make([]registrations.UserRegistration, 0, limit)
	for rows.Next() {
		var reg registrations.UserRegistration
		if err := rows.Scan(
			&reg.ID,
			&reg.RegisteredAt,
			&reg.Event.ID,
			&reg.Event.Title,
			&reg.Event.Description,
			&reg.Event.Date,
			&reg.Event.Location,
			&reg.Event.OrganizerID,
			&reg.Event.MaxParticipants,
			&reg.Event.CreatedAt,
			&reg.Event.UpdatedAt,
			&reg.Event.Organizer.Username,
			&reg.Event.Organizer.Email,
			&reg.Event.Organizer.FirstName,
			&reg.Event.Organizer.LastName,
			&reg.Event.RegisteredCount,
			&reg.Event.IsRegistered,
		); err != nil {
			return nil, 0, fmt.Errorf("scan registration: %w", err)
		}
		reg.Event.Organizer.ID = reg.Event.OrganizerID
		items = append(items, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate registrations: %w", err)
	}

	var total int64
	err = r.queryer().QueryRow(ctx,
		`SELECT count(*) FROM registrations WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	return items, total, nil
}

func scanEvent(row pgx.Row) (events.Event, error) {
	var event events.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Location,
		&event.OrganizerID,
		&event.MaxParticipants,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
