package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Error reports an invalid pagination parameter.
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Parse reads the page and page_size query parameters. Page defaults to 1,
// page size to DefaultPageSize capped at MaxPageSize.
func Parse(values url.Values) (Page, error) {
	page := Page{Number: 1, Size: DefaultPageSize}

	rawPage := strings.TrimSpace(values.Get("page"))
	if rawPage != "" {
		parsed, err := strconv.Atoi(rawPage)
		if err != nil || parsed < 1 {
			return Page{}, Error{Field: "page", Message: "must be a positive number"}
		}
		page.Number = parsed
	}

	rawSize := strings.TrimSpace(values.Get("page_size"))
	if rawSize != "" {
		parsed, err := strconv.Atoi(rawSize)
		if err != nil || parsed < 1 {
			return Page{}, Error{Field: "page_size", Message: "must be a positive number"}
		}
		if parsed > MaxPageSize {
			parsed = MaxPageSize
		}
		page.Size = parsed
	}

	return page, nil
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	return p.Size
}

// Envelope is the wire shape for paginated list responses.
type Envelope struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  any   `json:"results"`
}

// NewEnvelope wraps results with pagination metadata. A nil results slice is
// rendered as an empty array, never null.
func NewEnvelope(count int64, page Page, results any) Envelope {
	return Envelope{
		Count:    count,
		Page:     page.Number,
		PageSize: page.Size,
		Results:  results,
	}
}
