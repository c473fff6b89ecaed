package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	// Use for fields that should only contain plain text (titles, locations).
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy allows safe user-generated content with basic formatting.
	// Use for event descriptions where basic markup is acceptable.
	UGCPolicy = bluemonday.UGCPolicy()
)

// Text strips all HTML tags and returns trimmed plain text.
func Text(input string) string {
	return strings.TrimSpace(StrictPolicy.Sanitize(input))
}

// HTML sanitizes HTML content, allowing safe formatting tags.
// Removes <script>, <iframe>, event handlers, and style attributes.
func HTML(input string) string {
	return strings.TrimSpace(UGCPolicy.Sanitize(input))
}
