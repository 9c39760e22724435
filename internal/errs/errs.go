package errs

import (
	"errors"
	"fmt"

	"github.com/psds-microservice/helpdesk-service/internal/model"
)

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrInvalidTransition = errors.New("invalid ticket status transition")
	ErrValidation        = errors.New("validation failed")
	ErrNotification      = errors.New("notification failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrAlreadyBlocked    = errors.New("user already blocked")
	ErrNotBlocked        = errors.New("user is not blocked")
	ErrForbidden         = errors.New("forbidden")
)

// TransitionError is returned when a ticket's status guard rejects a change.
// Current is the status observed at the time of the attempt.
type TransitionError struct {
	TicketID uint64
	Current  model.TicketStatus
	Target   model.TicketStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("ticket %d: cannot move from %s to %s", e.TicketID, e.Current, e.Target)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError describes a rejected form field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Persistence wraps a storage failure so callers can match ErrPersistence.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
