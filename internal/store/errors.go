package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned by every operation when no store driver
	// was initialized (missing credentials / connection never established).
	ErrNotConfigured = errors.New("document store is not configured")

	// ErrNotFound is returned when an update targets a missing document.
	ErrNotFound = errors.New("document not found")
)

// PreconditionError reports a query the store cannot serve until an operator
// creates server-side infrastructure (an index). It is distinguished from
// generic failures because it is recoverable outside the application.
type PreconditionError struct {
	Collection string
	Index      string
	Cause      error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("query on %q requires index %q: %v", e.Collection, e.Index, e.Cause)
}

func (e *PreconditionError) Unwrap() error { return e.Cause }

// Guidance returns the operator action that resolves the error.
func (e *PreconditionError) Guidance() string {
	return fmt.Sprintf("create index %q on collection %q and retry", e.Index, e.Collection)
}

// WriteError wraps any remote failure on create/update.
type WriteError struct {
	Collection string
	Op         string
	Cause      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s on %q failed: %v", e.Op, e.Collection, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

// QueryError wraps a generic read failure.
type QueryError struct {
	Collection string
	Cause      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query on %q failed: %v", e.Collection, e.Cause)
}

func (e *QueryError) Unwrap() error { return e.Cause }

func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

func IsNotConfigured(err error) bool { return errors.Is(err, ErrNotConfigured) }

// Kind classifies an error for API responses and log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotConfigured(err):
		return "not_configured"
	case IsPrecondition(err):
		return "precondition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		var we *WriteError
		if errors.As(err, &we) {
			return "write"
		}
		return "query"
	}
}
