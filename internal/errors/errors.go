package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Custom error types for the URL shortener application

// ErrShortCodeNotFound is returned when a short code is not held by the registry
var ErrShortCodeNotFound = errors.New("short code not found")

// ErrLinkCapReached is returned when the registry already holds the maximum
// number of concurrent links. It is a general failure: no field-level
// validation is performed once the cap is hit.
var ErrLinkCapReached = errors.New("maximum concurrent links reached")

// ErrShortCodeGenerationFailed is returned when we can't generate a unique short code
var ErrShortCodeGenerationFailed = errors.New("failed to generate unique short code")

// ValidationError collects per-field failures for a create request. Several
// fields may fail at once; all of them are reported together so the caller
// can render every problem in one round trip. It is always recoverable by
// correcting the input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready to collect
// field failures.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a failure message for a field, replacing any previous one.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	// Sorted for a deterministic message, the map order is random.
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidation unwraps err into a *ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// ErrURLCheckFailed is returned when a URL health check fails
type ErrURLCheckFailed struct {
	URL    string
	Reason string
}

func (e ErrURLCheckFailed) Error() string {
	return fmt.Sprintf("failed to check URL %s: %s", e.URL, e.Reason)
}
