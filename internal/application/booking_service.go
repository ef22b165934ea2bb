package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/availability"
	"github.com/example/facility-booking/internal/persistence"
	"github.com/example/facility-booking/internal/slots"
)

// BookingRepository captures the persistence operations needed by the booking
// services. CreateBooking and UpdateBooking must enforce the occupancy
// constraint atomically and report a violation as persistence.ErrSlotTaken.
// UpdateBooking writes only while the stored status is still expected and
// reports a lost race as persistence.ErrStatusChanged.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking, expected BookingStatus) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, query BookingQuery) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// CourtCatalog exposes the catalog lookups needed to validate a booking.
type CourtCatalog interface {
	GetCourt(ctx context.Context, id string) (Court, error)
	ListSlots(ctx context.Context) ([]slots.Slot, error)
}

// BookingService creates, edits and transitions bookings while keeping at
// most one occupying booking per court, date and slot.
type BookingService struct {
	bookings    BookingRepository
	catalog     CourtCatalog
	publisher   EventPublisher
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(bookings BookingRepository, catalog CourtCatalog, idGenerator func() string, now func() time.Time, location *time.Location) *BookingService {
	return NewBookingServiceWithLogger(bookings, catalog, idGenerator, now, location, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, catalog CourtCatalog, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &BookingService{
		bookings:    bookings,
		catalog:     catalog,
		publisher:   nopPublisher{},
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

// WithPublisher sets the destination of booking lifecycle events.
func (s *BookingService) WithPublisher(publisher EventPublisher) *BookingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	s.publisher = publisher
	return s
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

func (s *BookingService) ready() error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}
	if s.catalog == nil {
		return fmt.Errorf("court catalog not configured")
	}
	return nil
}

// CreateBooking reserves a catalog slot on a court for the principal, or for
// Input.UserID when the principal is an administrator.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	input := normalizeBookingInput(params.Input)
	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", params.Principal.UserID,
		"court_id", input.CourtID,
		"date", input.Date,
		"start_time", input.StartTime,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	if params.Principal.UserID == "" {
		err = ErrForbidden
		return
	}
	ownerID := params.Principal.UserID
	if input.UserID != "" && input.UserID != params.Principal.UserID {
		if !params.Principal.IsAdmin {
			err = ErrForbidden
			return
		}
		ownerID = input.UserID
	}

	vErr := &ValidationError{}
	requireField(vErr, "courtId", input.CourtID)
	requireField(vErr, "date", input.Date)
	requireField(vErr, "startTime", input.StartTime)
	requireField(vErr, "endTime", input.EndTime)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var target bookingTarget
	target, err = s.resolveTarget(ctx, input.CourtID, input.Date, input.StartTime, input.EndTime, false)
	if err != nil {
		return
	}

	if err = s.ensureFree(ctx, target, ""); err != nil {
		return
	}

	now := s.now()
	start, end := target.slot.Interval(target.day)
	booking = Booking{
		ID:        s.idGenerator(),
		UserID:    ownerID,
		CourtID:   target.court.ID,
		Date:      target.dateKey,
		Slot:      target.slot,
		StartsAt:  start.UTC(),
		EndsAt:    end.UTC(),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		CourtName: target.court.Name,
	}
	if ownerID == params.Principal.UserID {
		booking.UserName = params.Principal.DisplayName
	}

	if err = s.bookings.CreateBooking(ctx, booking); err != nil {
		err = toServiceError("create booking", err)
		return
	}
	booking = s.reload(ctx, booking)

	publishEvent(ctx, s.publisher, logger, newBookingEvent(EventBookingCreated, booking, params.Principal.UserID, now))
	return
}

// CancelBooking releases a booking's slot. Owners may cancel their own
// bookings and administrators any booking. Cancelling a cancelled booking
// succeeds without change.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CancelBooking",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	booking, err = s.load(ctx, bookingID)
	if err != nil {
		return
	}
	if booking.UserID != principal.UserID && !principal.IsAdmin {
		booking = Booking{}
		err = ErrForbidden
		return
	}
	if booking.Status == StatusCancelled {
		return
	}

	booking, err = s.transition(ctx, logger, principal, booking, StatusCancelled, EventBookingCancelled, false)
	return
}

// ApproveBooking records an administrator's review of an active booking. The
// booking stays active and keeps its slot.
func (s *BookingService) ApproveBooking(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	return s.adminTransition(ctx, principal, bookingID, "ApproveBooking", StatusActive, EventBookingApproved)
}

// RejectBooking moves an active booking to rejected, releasing its slot.
func (s *BookingService) RejectBooking(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	return s.adminTransition(ctx, principal, bookingID, "RejectBooking", StatusRejected, EventBookingRejected)
}

// CompleteBooking moves an active booking to completed.
func (s *BookingService) CompleteBooking(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	return s.adminTransition(ctx, principal, bookingID, "CompleteBooking", StatusCompleted, EventBookingCompleted)
}

func (s *BookingService) adminTransition(ctx context.Context, principal Principal, bookingID, operation string, to BookingStatus, eventType string) (booking Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, operation,
		"principal_id", principal.UserID,
		"booking_id", bookingID,
		"target_status", string(to),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to transition booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking transitioned")
	}()

	if !principal.IsAdmin {
		err = ErrForbidden
		return
	}

	booking, err = s.load(ctx, bookingID)
	if err != nil {
		return
	}
	booking, err = s.transition(ctx, logger, principal, booking, to, eventType, true)
	return
}

// transition applies a status change from active. reviewed marks an
// administrator decision. The write is conditional on the booking still being
// active; losing that race to a cancellation of the same kind is a no-op.
func (s *BookingService) transition(ctx context.Context, logger *slog.Logger, principal Principal, booking Booking, to BookingStatus, eventType string, reviewed bool) (Booking, error) {
	if booking.Status != StatusActive {
		return Booking{}, invalidTransition(booking.Status, to)
	}

	now := s.now()
	from := booking.Status
	booking.Status = to
	booking.UpdatedAt = now
	if reviewed {
		reviewedAt := now
		booking.ReviewedAt = &reviewedAt
	}

	if err := s.bookings.UpdateBooking(ctx, booking, from); err != nil {
		if !errors.Is(err, persistence.ErrStatusChanged) {
			return Booking{}, toServiceError("update booking", err)
		}
		current, lerr := s.load(ctx, booking.ID)
		if lerr != nil {
			return Booking{}, lerr
		}
		if to == StatusCancelled && current.Status == StatusCancelled {
			return current, nil
		}
		return Booking{}, invalidTransition(current.Status, to)
	}

	publishEvent(ctx, s.publisher, logger, newBookingEvent(eventType, booking, principal.UserID, now))
	return booking, nil
}

func invalidTransition(from, to BookingStatus) *ValidationError {
	return newValidationError(ReasonInvalidTransition, "status",
		fmt.Sprintf("cannot move a %s booking to %s", from, to))
}

// UpdateBooking lets an administrator move a booking to another court, date
// or slot and change its status. Moving re-runs the conflict check against
// the new position, ignoring the booking itself.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (booking Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"court_id", booking.CourtID,
			"date", booking.Date,
			"status", string(booking.Status),
		).InfoContext(ctx, "booking updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrForbidden
		return
	}

	var existing Booking
	existing, err = s.load(ctx, params.BookingID)
	if err != nil {
		return
	}

	patch := params.Patch
	courtID := patchedString(patch.CourtID, existing.CourtID)
	date := patchedString(patch.Date, existing.Date)
	startTime := patchedString(patch.StartTime, existing.Slot.Start.String())
	endTime := patchedString(patch.EndTime, existing.Slot.End.String())
	// A new start without an end picks the catalog slot beginning there.
	byStart := patch.StartTime != nil && patch.EndTime == nil

	vErr := &ValidationError{}
	requireField(vErr, "courtId", courtID)
	requireField(vErr, "date", date)
	requireField(vErr, "startTime", startTime)
	if !byStart {
		requireField(vErr, "endTime", endTime)
	}

	status := existing.Status
	if patch.Status != nil {
		parsed, ok := ParseBookingStatus(*patch.Status)
		if !ok {
			vErr.add(ReasonInvalidValue, "status", "status must be active, completed, cancelled or rejected")
		} else {
			status = parsed
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if status != existing.Status && existing.Status.Terminal() {
		err = invalidTransition(existing.Status, status)
		return
	}

	var target bookingTarget
	target, err = s.resolveTarget(ctx, courtID, date, startTime, endTime, byStart)
	if err != nil {
		return
	}

	moved := target.court.ID != existing.CourtID ||
		target.dateKey != existing.Date ||
		!target.slot.Start.Equal(existing.Slot.Start) ||
		!target.slot.End.Equal(existing.Slot.End)
	if moved && status.Occupies() {
		if err = s.ensureFree(ctx, target, existing.ID); err != nil {
			return
		}
	}

	now := s.now()
	start, end := target.slot.Interval(target.day)
	updated := existing
	updated.CourtID = target.court.ID
	updated.CourtName = target.court.Name
	updated.Date = target.dateKey
	updated.Slot = target.slot
	updated.StartsAt = start.UTC()
	updated.EndsAt = end.UTC()
	updated.Status = status
	updated.UpdatedAt = now
	if status != existing.Status {
		reviewedAt := now
		updated.ReviewedAt = &reviewedAt
	}

	if err = s.bookings.UpdateBooking(ctx, updated, existing.Status); err != nil {
		err = toServiceError("update booking", err)
		return
	}
	booking = s.reload(ctx, updated)

	publishEvent(ctx, s.publisher, logger, newBookingEvent(EventBookingUpdated, booking, params.Principal.UserID, now))
	return
}

// DeleteBooking removes a booking record for an administrator, freeing its slot.
func (s *BookingService) DeleteBooking(ctx context.Context, principal Principal, bookingID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteBooking",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deleted")
	}()

	if !principal.IsAdmin {
		err = ErrForbidden
		return
	}

	var booking Booking
	booking, err = s.load(ctx, bookingID)
	if err != nil {
		return
	}
	if err = s.bookings.DeleteBooking(ctx, booking.ID); err != nil {
		err = toServiceError("delete booking", err)
		return
	}

	publishEvent(ctx, s.publisher, logger, newBookingEvent(EventBookingDeleted, booking, principal.UserID, s.now()))
	return
}

// GetBooking returns a booking to its owner or an administrator.
func (s *BookingService) GetBooking(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "GetBooking",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get booking", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	booking, err = s.load(ctx, bookingID)
	if err != nil {
		return
	}
	if booking.UserID != principal.UserID && !principal.IsAdmin {
		booking = Booking{}
		err = ErrForbidden
	}
	return
}

// ListBookings returns the principal's own bookings in date order, or every
// booking newest date first for administrators.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) (bookings []Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListBookings",
		"principal_id", params.Principal.UserID,
		"is_admin", params.Principal.IsAdmin,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).InfoContext(ctx, "bookings listed")
	}()

	if params.Principal.UserID == "" {
		err = ErrForbidden
		return
	}

	query := BookingQuery{}
	if params.Principal.IsAdmin {
		query.Descending = true
	} else {
		query.UserID = params.Principal.UserID
	}

	if date := strings.TrimSpace(params.Date); date != "" {
		var day time.Time
		day, err = slots.ParseDate(date, s.location)
		if err != nil {
			err = newValidationError(ReasonInvalidValue, "date", "date must be YYYY-MM-DD")
			return
		}
		query.Date = day.Format(slots.DateLayout)
	}
	if status := strings.TrimSpace(params.Status); status != "" {
		parsed, ok := ParseBookingStatus(status)
		if !ok {
			err = newValidationError(ReasonInvalidValue, "status", "status must be active, completed, cancelled or rejected")
			return
		}
		query.Statuses = []BookingStatus{parsed}
	}

	bookings, err = s.bookings.ListBookings(ctx, query)
	if err != nil {
		err = toServiceError("list bookings", err)
	}
	return
}

type bookingTarget struct {
	court   Court
	day     time.Time
	dateKey string
	slot    slots.Slot
}

// resolveTarget validates a (court, date, start, end) request against the catalog.
func (s *BookingService) resolveTarget(ctx context.Context, courtID, date, startTime, endTime string, byStart bool) (bookingTarget, error) {
	vErr := &ValidationError{}

	day, err := slots.ParseDate(date, s.location)
	if err != nil {
		vErr.add(ReasonInvalidValue, "date", "date must be YYYY-MM-DD")
	}
	start, err := slots.ParseTimeOfDay(startTime)
	if err != nil {
		vErr.add(ReasonInvalidValue, "startTime", "start time must be HH:MM")
	}
	var end slots.TimeOfDay
	if !byStart {
		end, err = slots.ParseTimeOfDay(endTime)
		if err != nil {
			vErr.add(ReasonInvalidValue, "endTime", "end time must be HH:MM")
		}
	}
	if vErr.HasErrors() {
		return bookingTarget{}, vErr
	}

	court, err := s.catalog.GetCourt(ctx, courtID)
	if err != nil {
		return bookingTarget{}, toServiceError("get court", err)
	}

	catalog, err := s.catalog.ListSlots(ctx)
	if err != nil {
		return bookingTarget{}, toServiceError("list slots", err)
	}

	var slot slots.Slot
	var ok bool
	if byStart {
		slot, ok = slots.FindByStart(catalog, start)
	} else {
		slot, ok = slots.Find(catalog, start, end)
	}
	if !ok {
		return bookingTarget{}, newValidationError(ReasonInvalidSlot, "startTime", "requested time is not a bookable slot")
	}

	return bookingTarget{court: court, day: day, dateKey: day.Format(slots.DateLayout), slot: slot}, nil
}

// ensureFree is the friendly pre-check; the storage constraint remains the
// authority when two writers race past it.
func (s *BookingService) ensureFree(ctx context.Context, target bookingTarget, excludeID string) error {
	held, err := s.bookings.ListBookings(ctx, BookingQuery{
		CourtID:  target.court.ID,
		Date:     target.dateKey,
		Statuses: OccupyingStatuses,
	})
	if err != nil {
		return toServiceError("list bookings", err)
	}
	if _, taken := availability.FindConflict(occupanciesFor(held, s.location), target.court.ID, target.slot, excludeID); taken {
		return &ConflictError{Reason: ConflictSlotTaken}
	}
	return nil
}

func (s *BookingService) load(ctx context.Context, bookingID string) (Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return Booking{}, ErrNotFound
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, toServiceError("get booking", err)
	}
	return booking, nil
}

// reload refreshes joined names after a write, keeping the written value when
// the read fails.
func (s *BookingService) reload(ctx context.Context, booking Booking) Booking {
	stored, err := s.bookings.GetBooking(ctx, booking.ID)
	if err != nil {
		return booking
	}
	return stored
}

func normalizeBookingInput(input BookingInput) BookingInput {
	return BookingInput{
		CourtID:   strings.TrimSpace(input.CourtID),
		Date:      strings.TrimSpace(input.Date),
		StartTime: strings.TrimSpace(input.StartTime),
		EndTime:   strings.TrimSpace(input.EndTime),
		UserID:    strings.TrimSpace(input.UserID),
	}
}

func requireField(vErr *ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		vErr.add(ReasonMissingField, field, field+" is required")
	}
}

func patchedString(patch *string, current string) string {
	if patch == nil {
		return current
	}
	return strings.TrimSpace(*patch)
}
