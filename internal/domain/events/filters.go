package events

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/ids"
)

// Filters narrow and order an event listing. Zero values mean "not set".
type Filters struct {
	Search      string
	Location    string
	OrganizerID string
	DateFrom    *time.Time
	DateTo      *time.Time
	Upcoming    *bool
	OrderBy     string
	Descending  bool
}

// Ordering fields accepted from clients, optionally prefixed with "-" for
// descending order.
var orderableFields = map[string]bool{
	"date":       true,
	"created_at": true,
	"title":      true,
}

const defaultOrderBy = "date"

// ParseFilters reads listing parameters from a query string. Date bounds
// accept RFC 3339 timestamps or bare dates.
func ParseFilters(values url.Values) (Filters, error) {
	filters := Filters{OrderBy: defaultOrderBy}

	filters.Search = strings.TrimSpace(values.Get("search"))
	filters.Location = strings.TrimSpace(values.Get("location"))

	if raw := strings.TrimSpace(values.Get("organizer")); raw != "" {
		if err := ids.ValidateUUID(raw); err != nil {
			return Filters{}, FilterError{Field: "organizer", Message: "must be a valid user id"}
		}
		filters.OrganizerID = raw
	}

	if raw := strings.TrimSpace(values.Get("date_from")); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return Filters{}, FilterError{Field: "date_from", Message: "must be an RFC 3339 timestamp or YYYY-MM-DD date"}
		}
		filters.DateFrom = &parsed
	}

	if raw := strings.TrimSpace(values.Get("date_to")); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return Filters{}, FilterError{Field: "date_to", Message: "must be an RFC 3339 timestamp or YYYY-MM-DD date"}
		}
		filters.DateTo = &parsed
	}

	if raw := strings.TrimSpace(values.Get("is_upcoming")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return Filters{}, FilterError{Field: "is_upcoming", Message: "must be true or false"}
		}
		filters.Upcoming = &parsed
	}

	if raw := strings.TrimSpace(values.Get("ordering")); raw != "" {
		field := raw
		if strings.HasPrefix(field, "-") {
			filters.Descending = true
			field = field[1:]
		}
		if !orderableFields[field] {
			return Filters{}, FilterError{Field: "ordering", Message: "must be one of date, created_at, title"}
		}
		filters.OrderBy = field
	}

	return filters, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
