package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/availability"
	"github.com/example/facility-booking/internal/slots"
)

// CatalogReader exposes the read side of the catalog.
type CatalogReader interface {
	ListCourts(ctx context.Context) ([]Court, error)
	ListSlots(ctx context.Context) ([]slots.Slot, error)
}

// BookingReader lists bookings.
type BookingReader interface {
	ListBookings(ctx context.Context, query BookingQuery) ([]Booking, error)
}

// AvailabilityService resolves the per court, per slot grid for a day. Every
// call reads the store so a write is visible to the next resolve.
type AvailabilityService struct {
	catalog  CatalogReader
	bookings BookingReader
	location *time.Location
	logger   *slog.Logger
}

// NewAvailabilityService constructs an availability service. A nil location means UTC.
func NewAvailabilityService(catalog CatalogReader, bookings BookingReader, location *time.Location) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(catalog, bookings, location, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service with a specified logger.
func NewAvailabilityServiceWithLogger(catalog CatalogReader, bookings BookingReader, location *time.Location, logger *slog.Logger) *AvailabilityService {
	if location == nil {
		location = time.UTC
	}
	return &AvailabilityService{catalog: catalog, bookings: bookings, location: location, logger: defaultLogger(logger)}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Resolve returns one cell per (slot, court) pair for date ("YYYY-MM-DD" in the
// facility time zone). Cells without an occupying booking are available.
func (s *AvailabilityService) Resolve(ctx context.Context, principal Principal, date string) (result Availability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.catalog == nil || s.bookings == nil {
		err = fmt.Errorf("availability dependencies not configured")
		return
	}

	date = strings.TrimSpace(date)
	logger := s.loggerWith(ctx, "Resolve",
		"principal_id", principal.UserID,
		"date", date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"available", result.Summary.Available,
			"booked", result.Summary.Booked,
		).InfoContext(ctx, "availability resolved")
	}()

	if date == "" {
		err = newValidationError(ReasonMissingField, "date", "date is required")
		return
	}
	var day time.Time
	day, err = slots.ParseDate(date, s.location)
	if err != nil {
		err = newValidationError(ReasonInvalidValue, "date", "date must be YYYY-MM-DD")
		return
	}
	dateKey := day.Format(slots.DateLayout)

	var courts []Court
	courts, err = s.catalog.ListCourts(ctx)
	if err != nil {
		err = toServiceError("list courts", err)
		return
	}
	var catalog []slots.Slot
	catalog, err = s.catalog.ListSlots(ctx)
	if err != nil {
		err = toServiceError("list slots", err)
		return
	}
	slots.Sort(catalog)

	var bookings []Booking
	bookings, err = s.bookings.ListBookings(ctx, BookingQuery{Date: dateKey, Statuses: OccupyingStatuses})
	if err != nil {
		err = toServiceError("list bookings", err)
		return
	}

	cells := availability.Resolve(toResolverCourts(courts), catalog, occupanciesFor(bookings, s.location))
	result = Availability{
		Date:    dateKey,
		Cells:   cells,
		Summary: availability.Summarize(cells),
	}
	return
}

func toResolverCourts(courts []Court) []availability.Court {
	out := make([]availability.Court, 0, len(courts))
	for _, court := range courts {
		out = append(out, availability.Court{ID: court.ID, Name: court.Name})
	}
	return out
}

// occupanciesFor expresses booking instants in the facility location so the
// resolver compares local wall-clock minutes.
func occupanciesFor(bookings []Booking, loc *time.Location) []availability.Occupancy {
	out := make([]availability.Occupancy, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, availability.Occupancy{
			BookingID:    booking.ID,
			CourtID:      booking.CourtID,
			OccupantName: booking.UserName,
			Start:        booking.StartsAt.In(loc),
			End:          booking.EndsAt.In(loc),
			Released:     !booking.Status.Occupies(),
		})
	}
	return out
}
