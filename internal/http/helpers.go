package http

import (
	"strings"
)

// Column limits of the schema.
const (
	maxNameLength        = 120
	maxAccountTypeLength = 40
	maxDescriptionLength = 255
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
