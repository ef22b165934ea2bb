package application

import (
	"context"
	"log/slog"
	"time"
)

// Booking lifecycle event types.
const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingCancelled = "booking.cancelled"
	EventBookingApproved  = "booking.approved"
	EventBookingRejected  = "booking.rejected"
	EventBookingCompleted = "booking.completed"
	EventBookingDeleted   = "booking.deleted"
)

// BookingEvent describes a committed booking change.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"bookingId"`
	UserID     string    `json:"userId"`
	CourtID    string    `json:"courtId"`
	Date       string    `json:"date"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher delivers booking events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, BookingEvent) error { return nil }

func newBookingEvent(eventType string, booking Booking, actorID string, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		CourtID:    booking.CourtID,
		Date:       booking.Date,
		StartTime:  booking.Slot.Start.String(),
		EndTime:    booking.Slot.End.String(),
		Status:     string(booking.Status),
		ActorID:    actorID,
		OccurredAt: at,
	}
}

// publishEvent never fails the calling operation; delivery problems are logged.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *slog.Logger, event BookingEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish booking event",
			"event_type", event.Type,
			"booking_id", event.BookingID,
			"error", err,
		)
	}
}
