package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrNoCenterAvailable    = errors.New("no center available in range")
	ErrNoCollectorAvailable = errors.New("no collector available at center")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrRouteUnavailable     = errors.New("route unavailable")
	ErrGeocodeUnavailable   = errors.New("geocoding unavailable")
	ErrAddressNotFound      = errors.New("address not found")
	ErrNotFound             = errors.New("not found")
	ErrPermissionDenied     = errors.New("permission denied")
)

// ValidationError describes a client-fixable input problem.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransitionError is returned when a lifecycle transition is rejected.
// From is the status the request held when the attempt was made.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition %s -> %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
