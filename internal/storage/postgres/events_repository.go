package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
)

var _ events.Repository = (*EventRepository)(nil)

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// eventDetailColumns selects an event with its organizer and derived state.
// %[1]s is the placeholder carrying the viewer id.
const eventDetailColumns = `
e.id, e.title, e.description, e.date, e.location, e.organizer_id,
e.max_participants, e.created_at, e.updated_at,
u.username, u.email, u.first_name, u.last_name,
(SELECT count(*) FROM registrations reg WHERE reg.event_id = e.id) AS registered_count,
(%[1]s::uuid IS NOT NULL AND EXISTS (
   SELECT 1 FROM registrations reg
    WHERE reg.event_id = e.id AND reg.user_id = %[1]s::uuid
)) AS is_registered`

func (r *EventRepository) CreateEvent(ctx context.Context, event events.Event) (events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO events (id, title, description, date, location, organizer_id, max_participants)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`,
		event.ID,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.OrganizerID,
		event.MaxParticipants,
	)
	if err := row.Scan(&event.CreatedAt, &event.UpdatedAt); err != nil {
		return events.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetEvent(ctx context.Context, id, viewerID string) (events.Detail, error) {
	query := `
SELECT ` + fmt.Sprintf(eventDetailColumns, "$2") + `
  FROM events e
  JOIN users u ON u.id = e.organizer_id
 WHERE e.id = $1`

	row := r.queryer().QueryRow(ctx, query, id, nullable(viewerID))

	detail, err := scanEventDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.Detail{}, events.ErrNotFound
		}
		return events.Detail{}, fmt.Errorf("get event: %w", err)
	}
	return detail, nil
}

// orderColumns maps validated ordering fields to SQL columns. The event id
// breaks ties so pages stay stable.
var orderColumns = map[string]string{
	"date":       "e.date",
	"created_at": "e.created_at",
	"title":      "e.title",
}

func (r *EventRepository) ListEvents(ctx context.Context, filters events.Filters, viewerID string, limit, offset int) ([]events.Detail, int64, error) {
	column, ok := orderColumns[filters.OrderBy]
	if !ok {
		column = "e.date"
	}
	direction := "ASC"
	if filters.Descending {
		direction = "DESC"
	}

	query := `
SELECT ` + fmt.Sprintf(eventDetailColumns, "$1") + `
  FROM events e
  JOIN users u ON u.id = e.organizer_id
 WHERE ($2 = '' OR e.title ILIKE '%' || $2 || '%'
                OR e.description ILIKE '%' || $2 || '%'
                OR e.location ILIKE '%' || $2 || '%')
   AND ($3 = '' OR e.location ILIKE '%' || $3 || '%')
   AND ($4::uuid IS NULL OR e.organizer_id = $4::uuid)
   AND ($5::timestamptz IS NULL OR e.date >= $5::timestamptz)
   AND ($6::timestamptz IS NULL OR e.date <= $6::timestamptz)
   AND ($7::boolean IS NULL OR (e.date >= now()) = $7::boolean)
 ORDER BY ` + column + ` ` + direction + `, e.id ASC
 LIMIT $8 OFFSET $9`

	rows, err := r.queryer().Query(ctx, query,
		nullable(viewerID),
		escapeLike(filters.Search),
		escapeLike(filters.Location),
		nullable(filters.OrganizerID),
		filters.DateFrom,
		filters.DateTo,
		filters.Upcoming,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Detail, 0, limit)
	for rows.Next() {
		detail, err := scanEventDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate events: %w", err)
	}

	countQuery := `
SELECT count(*)
  FROM events e
 WHERE ($1 = '' OR e.title ILIKE '%' || $1 || '%'
                OR e.description ILIKE '%' || $1 || '%'
                OR e.location ILIKE '%' || $1 || '%')
   AND ($2 = '' OR e.location ILIKE '%' || $2 || '%')
   AND ($3::uuid IS NULL OR e.organizer_id = $3::uuid)
   AND ($4::timestamptz IS NULL OR e.date >= $4::timestamptz)
   AND ($5::timestamptz IS NULL OR e.date <= $5::timestamptz)
   AND ($6::boolean IS NULL OR (e.date >= now()) = $6::boolean)`

	var total int64
	err = r.queryer().QueryRow(ctx, countQuery,
		escapeLike(filters.Search),
		escapeLike(filters.Location),
		nullable(filters.OrganizerID),
		filters.DateFrom,
		filters.DateTo,
		filters.Upcoming,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	return items, total, nil
}

func (r *EventRepository) UpdateEvent(ctx context.Context, event events.Event) (events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
UPDATE events
   SET title = $2,
       description = $3,
       date = $4,
       location = $5,
       max_participants = $6,
       updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at`,
		event.ID,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.MaxParticipants,
	)
	if err := row.Scan(&event.CreatedAt, &event.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func scanEventDetail(row pgx.Row) (events.Detail, error) {
	var detail events.Detail
	err := row.Scan(
		&detail.ID,
		&detail.Title,
		&detail.Description,
		&detail.Date,
		&detail.Location,
		&detail.OrganizerID,
		&detail.MaxParticipants,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.Organizer.Username,
		&detail.Organizer.Email,
		&detail.Organizer.FirstName,
		&detail.Organizer.LastName,
		&detail.RegisteredCount,
		&detail.IsRegistered,
	)
	detail.Organizer.ID = detail.OrganizerID
	return detail, err
}
