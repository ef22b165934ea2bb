package application

import (
	"strings"
	"time"

	"github.com/example/facility-booking/internal/availability"
	"github.com/example/facility-booking/internal/slots"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID      string
	DisplayName string
	IsAdmin     bool
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	// StatusActive holds the slot and has not been completed.
	StatusActive BookingStatus = "active"
	// StatusCompleted holds the slot and is terminal.
	StatusCompleted BookingStatus = "completed"
	// StatusCancelled releases the slot and is terminal.
	StatusCancelled BookingStatus = "cancelled"
	// StatusRejected releases the slot and is terminal.
	StatusRejected BookingStatus = "rejected"
)

// OccupyingStatuses lists the statuses that hold a court slot.
var OccupyingStatuses = []BookingStatus{StatusActive, StatusCompleted}

// ParseBookingStatus accepts the canonical names plus the legacy aliases
// approved, upcoming and pending, all of which mean active.
func ParseBookingStatus(value string) (BookingStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "active", "approved", "upcoming", "pending":
		return StatusActive, true
	case "completed":
		return StatusCompleted, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	case "rejected":
		return StatusRejected, true
	}
	return "", false
}

// Occupies reports whether a booking in this status holds its slot.
func (s BookingStatus) Occupies() bool {
	return s == StatusActive || s == StatusCompleted
}

// Terminal reports whether no transition leaves this status.
func (s BookingStatus) Terminal() bool {
	return s != StatusActive
}

// Court is a bookable court.
type Court struct {
	ID        string
	Name      string
	Position  int
	CreatedAt time.Time
}

// Booking is a court reservation. Date is the facility-local calendar day;
// StartsAt and EndsAt are the concrete instants of the slot on that day.
type Booking struct {
	ID         string
	UserID     string
	CourtID    string
	Date       string
	Slot       slots.Slot
	StartsAt   time.Time
	EndsAt     time.Time
	Status     BookingStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ReviewedAt *time.Time

	UserName   string
	PassportID string
	CourtName  string
}

// BookingInput captures caller provided booking fields. Times are "HH:MM" and
// Date is "YYYY-MM-DD" in the facility time zone.
type BookingInput struct {
	CourtID   string
	Date      string
	StartTime string
	EndTime   string
	// UserID lets an administrator book on behalf of another user.
	UserID string
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// BookingPatch lists the fields an administrator may change. Nil leaves a field unchanged.
type BookingPatch struct {
	CourtID   *string
	Date      *string
	StartTime *string
	EndTime   *string
	Status    *string
}

// UpdateBookingParams wraps the data required to update a booking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Patch     BookingPatch
}

// BookingQuery narrows booking listings. Zero values do not filter.
type BookingQuery struct {
	UserID     string
	CourtID    string
	Date       string
	Statuses   []BookingStatus
	EndsBefore *time.Time
	Descending bool

	// CreatedAfter keeps bookings created at or after the instant.
	CreatedAfter *time.Time
}

// ListBookingsParams wraps the data required to list bookings.
type ListBookingsParams struct {
	Principal Principal
	Date      string
	Status    string
}

// Availability is the resolved occupancy grid for one day.
type Availability struct {
	Date    string
	Cells   []availability.Cell
	Summary availability.Summary
}

// User is a student or staff account.
type User struct {
	ID             string
	PassportID     string
	DisplayName    string
	IsAdmin        bool
	FaceRegistered bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// RegisterParams captures self registration input.
type RegisterParams struct {
	PassportID  string
	DisplayName string
	Password    string
}

// CreateUserParams captures operator driven account creation.
type CreateUserParams struct {
	Principal Principal
	Input     RegisterParams
	IsAdmin   bool
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	PassportID  string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers        int
	TotalBookings     int
	BookingsToday     int
	BookingsThisMonth int
}

// Report aggregates booking and user activity over a trailing period.
type Report struct {
	Days          int
	GeneratedAt   time.Time
	BookingStats  BookingStats
	DailyBookings []DailyCount
	CourtStats    []CourtUsage
	UserStats     UserStats
}

// BookingStats counts bookings made in the report period by status.
type BookingStats struct {
	Total     int
	Active    int
	Completed int
	Cancelled int
	Rejected  int
}

// DailyCount is the number of bookings created on one facility-local day.
type DailyCount struct {
	Date  string
	Count int
}

// CourtUsage is the number of bookings made for a court in the report period.
type CourtUsage struct {
	CourtID   string
	CourtName string
	Bookings  int
}

// UserStats summarises accounts.
type UserStats struct {
	TotalUsers        int
	NewUsersThisMonth int
	ActiveUsers       int
}
