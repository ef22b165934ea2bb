package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/facility-booking/internal/persistence"
)

var (
	// ErrForbidden is returned when the acting principal may not perform an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested booking, court or user does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInfrastructure is matched by every *InfrastructureError.
	ErrInfrastructure = errors.New("application: infrastructure failure")
)

// Validation reasons.
const (
	ReasonMissingField      = "missing_field"
	ReasonInvalidSlot       = "invalid_slot"
	ReasonInvalidValue      = "invalid_value"
	ReasonInvalidTransition = "invalid_transition"
)

// Conflict reasons.
const (
	ConflictSlotTaken     = "slot_taken"
	ConflictAlreadyExists = "already_exists"
)

// ValidationError captures field level validation issues that callers can surface to users.
// Reason holds the first category recorded.
type ValidationError struct {
	Reason      string
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		if v.Reason == "" {
			return "validation failed"
		}
		return "validation failed: " + v.Reason
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any issue was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && (len(v.FieldErrors) > 0 || v.Reason != "")
}

// add records a field level validation error under reason.
func (v *ValidationError) add(reason, field, message string) {
	if v.Reason == "" {
		v.Reason = reason
	}
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil {
		return
	}
	if v.Reason == "" {
		v.Reason = other.Reason
	}
	for field, msg := range other.FieldErrors {
		v.add(other.Reason, field, msg)
	}
}

func newValidationError(reason, field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(reason, field, message)
	return vErr
}

// ConflictError reports that the requested state collides with an existing record.
type ConflictError struct {
	Reason string
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	switch c.Reason {
	case ConflictSlotTaken:
		return "conflict: court is already booked for the selected time"
	case ConflictAlreadyExists:
		return "conflict: record already exists"
	}
	return "conflict: " + c.Reason
}

// IsConflict reports whether err is a *ConflictError with the given reason.
// An empty reason matches any conflict.
func IsConflict(err error, reason string) bool {
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		return false
	}
	return reason == "" || cErr.Reason == reason
}

// InfrastructureError wraps an unexpected storage or transport failure. Its
// text is for logs only.
type InfrastructureError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// Is matches ErrInfrastructure.
func (e *InfrastructureError) Is(target error) bool {
	return target == ErrInfrastructure
}

// toServiceError converts repository failures into the service taxonomy.
// Errors already in the taxonomy pass through unchanged.
func toServiceError(op string, err error) error {
	if err == nil {
		return nil
	}

	var vErr *ValidationError
	var cErr *ConflictError
	switch {
	case errors.As(err, &vErr), errors.As(err, &cErr),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrInfrastructure),
		errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrSessionExpired), errors.Is(err, ErrSessionRevoked):
		return err
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrSlotTaken):
		return &ConflictError{Reason: ConflictSlotTaken}
	case errors.Is(err, persistence.ErrDuplicate):
		return &ConflictError{Reason: ConflictAlreadyExists}
	case errors.Is(err, persistence.ErrStatusChanged):
		return newValidationError(ReasonInvalidTransition, "status", "booking status changed while it was being updated")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{Reason: ReasonInvalidValue}
	}
	return &InfrastructureError{Op: op, Err: err}
}
