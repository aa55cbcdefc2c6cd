package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error is a field-level validation failure. Err carries the sentinel the
// handlers use to pick a response.
type Error struct {
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

func (e *Error) Unwrap() error { return e.Err }
