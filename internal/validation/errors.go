package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NonFieldErrors is the key used for errors that do not belong to one field
const NonFieldErrors = "non_field_errors"

// Errors maps field names to their validation messages. It renders as a plain
// JSON object, e.g. {"title": ["This field is required."]}.
type Errors struct {
	Fields map[string][]string
}

// New creates an empty Errors
func New() *Errors {
	return &Errors{Fields: make(map[string][]string)}
}

// Add adds a validation error for a specific field
func (e *Errors) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// AddNonField adds an error that applies to the object as a whole
func (e *Errors) AddNonField(message string) {
	e.Add(NonFieldErrors, message)
}

// Merge copies all messages from other into e
func (e *Errors) Merge(other *Errors) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		for _, m := range msgs {
			e.Add(field, m)
		}
	}
}

// Has reports whether field has at least one error
func (e *Errors) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// HasErrors returns true if there are any validation errors
func (e *Errors) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// Count returns the total number of validation errors across all fields
func (e *Errors) Count() int {
	count := 0
	for _, messages := range e.Fields {
		count += len(messages)
	}
	return count
}

// Err returns e as an error, or nil when there is nothing to report.
func (e *Errors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *Errors) Error() string {
	if !e.HasErrors() {
		return "validation failed"
	}

	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var messages []string
	for _, f := range fields {
		for _, msg := range e.Fields[f] {
			messages = append(messages, fmt.Sprintf("%s: %s", f, msg))
		}
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// MarshalJSON renders the field map directly
func (e *Errors) MarshalJSON() ([]byte, error) {
	if e.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.Fields)
}

// AsErrors extracts *Errors from err, if present.
func AsErrors(err error) (*Errors, bool) {
	var ve *Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Single builds an error with one message on one field.
func Single(field, message string) error {
	e := New()
	e.Add(field, message)
	return e
}
