package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a test, attempt or question does not exist.
	ErrNotFound = errors.New("not found")
	// ErrIneligible marks a failed eligibility check.
	ErrIneligible = errors.New("ineligible")
	// ErrInvalid marks a malformed or out-of-state request.
	ErrInvalid = errors.New("invalid request")
	// ErrConflict is returned by stores when a concurrent write won.
	ErrConflict = errors.New("conflict")
)

// ValidationError carries a human-readable reason and wraps either
// ErrIneligible or ErrInvalid.
type ValidationError struct {
	Kind   error
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func Ineligible(reason string) error {
	return &ValidationError{Kind: ErrIneligible, Reason: reason}
}

func Invalid(format string, args ...interface{}) error {
	return &ValidationError{Kind: ErrInvalid, Reason: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id uint) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
