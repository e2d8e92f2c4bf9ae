package tms

import (
	"errors"
	"fmt"
)

// ErrRetryExhausted is returned when a request stayed rate limited
// through the whole retry budget.
var ErrRetryExhausted = errors.New("retry budget exhausted")

// ErrConflict marks a 409 response. Callers performing create-if-absent
// treat it as "already exists" and count the item as skipped.
var ErrConflict = errors.New("entity already exists")

// StatusError is a non-success response the client chose to surface as an
// error. The raw body is kept for diagnostics.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Err classifies the response status semantically: nil for 2xx,
// ErrConflict for 409, a StatusError otherwise. Callers that give some
// status a special meaning (400 as "no results" on key-links listings)
// must check Status before calling Err.
func (r *Result) Err() error {
	switch {
	case r.Status >= 200 && r.Status < 300:
		return nil
	case r.Status == 409:
		return fmt.Errorf("%w (status 409)", ErrConflict)
	default:
		return &StatusError{Status: r.Status, Body: truncate(string(r.Body), 200)}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
