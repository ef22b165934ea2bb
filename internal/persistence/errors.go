package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key (other than slot occupancy) already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrSlotTaken is returned when the occupancy index rejects a second booking for a court, date and slot.
	ErrSlotTaken = errors.New("persistence: slot already booked")
	// ErrStatusChanged is returned when a conditional update finds the booking in a different status than expected.
	ErrStatusChanged = errors.New("persistence: booking status changed")
	// ErrConstraintViolation is returned when a record violates a check or foreign key constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
