package persistence

import (
	"context"
	"time"
)

// CatalogRepository stores the courts and the daily slot grid.
type CatalogRepository interface {
	ListCourts(ctx context.Context) ([]Court, error)
	GetCourt(ctx context.Context, id string) (Court, error)
	InsertCourts(ctx context.Context, courts []Court) (int, error)
	ListTimeSlots(ctx context.Context) ([]TimeSlot, error)
	InsertTimeSlots(ctx context.Context, slots []TimeSlot) (int, error)
}

// UserRepository exposes account operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByPassportID(ctx context.Context, passportID string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SaveFaceData(ctx context.Context, data FaceData) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// BookingFilter narrows booking queries. Zero values do not filter.
type BookingFilter struct {
	UserID       string
	CourtID      string
	Date         string
	Statuses     []string
	EndsBefore   *time.Time
	CreatedAfter *time.Time
	// Descending orders results newest date first instead of oldest first.
	Descending bool
}

// BookingRepository stores reservations. CreateBooking and UpdateBooking return
// ErrSlotTaken when another occupying booking already holds the court, date and slot.
// UpdateBooking writes only while the stored status equals expectedStatus and
// returns ErrStatusChanged otherwise.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking, expectedStatus string) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// ReportRepository answers aggregate queries for the admin dashboard.
type ReportRepository interface {
	CountUsers(ctx context.Context, createdAfter *time.Time) (int, error)
	CountActiveUsers(ctx context.Context, since time.Time) (int, error)
	CountBookings(ctx context.Context, filter BookingFilter) (int, error)
	CountBookingsBetween(ctx context.Context, fromDate, toDate string) (int, error)
	BookingCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error)
	CourtUsage(ctx context.Context, since time.Time) ([]CourtUsage, error)
}
