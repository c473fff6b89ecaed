package events

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("event not found")
	ErrNotOrganizer = errors.New("only the organizer may modify this event")
)

// ValidationError reports a rejected event field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// FilterError reports an invalid list filter parameter.
type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	return fmt.Sprintf("invalid filter %s: %s", e.Field, e.Message)
}
