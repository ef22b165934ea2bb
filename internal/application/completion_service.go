package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CompletionService marks active bookings completed once their slot has ended.
type CompletionService struct {
	bookings  BookingRepository
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewCompletionService constructs a completion service.
func NewCompletionService(bookings BookingRepository, now func() time.Time) *CompletionService {
	return NewCompletionServiceWithLogger(bookings, now, nil)
}

// NewCompletionServiceWithLogger constructs a completion service with a specified logger.
func NewCompletionServiceWithLogger(bookings BookingRepository, now func() time.Time, logger *slog.Logger) *CompletionService {
	if now == nil {
		now = time.Now
	}
	return &CompletionService{bookings: bookings, publisher: nopPublisher{}, now: now, logger: defaultLogger(logger)}
}

// WithPublisher sets the destination of booking.completed events.
func (s *CompletionService) WithPublisher(publisher EventPublisher) *CompletionService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	s.publisher = publisher
	return s
}

// CompleteElapsed completes every active booking whose end is at or before
// now and returns how many were changed. A booking changed concurrently, or
// one whose update is rejected, is logged and skipped; only infrastructure
// failures stop the sweep.
func (s *CompletionService) CompleteElapsed(ctx context.Context) (completed int, err error) {
	if s == nil {
		err = fmt.Errorf("CompletionService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "CompletionService", "CompleteElapsed")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "completion sweep failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("completed", completed).InfoContext(ctx, "completion sweep finished")
	}()

	now := s.now()
	var due []Booking
	due, err = s.bookings.ListBookings(ctx, BookingQuery{
		Statuses:   []BookingStatus{StatusActive},
		EndsBefore: &now,
	})
	if err != nil {
		err = toServiceError("list bookings", err)
		return
	}

	for _, booking := range due {
		if err = ctx.Err(); err != nil {
			return
		}
		from := booking.Status
		booking.Status = StatusCompleted
		booking.UpdatedAt = now
		if uerr := s.bookings.UpdateBooking(ctx, booking, from); uerr != nil {
			uerr = toServiceError("update booking", uerr)
			if errors.Is(uerr, ErrInfrastructure) {
				err = uerr
				return
			}
			logger.WarnContext(ctx, "skipped booking during completion sweep",
				"booking_id", booking.ID, "error", uerr, "error_kind", ErrorKind(uerr))
			continue
		}
		completed++
		publishEvent(ctx, s.publisher, logger, newBookingEvent(EventBookingCompleted, booking, "", now))
	}
	return
}
