package persistence

import "time"

// Court represents a bookable court.
type Court struct {
	ID        string
	Name      string
	Position  int
	CreatedAt time.Time
}

// TimeSlot represents a catalog row of the daily grid. Start and End are "HH:MM".
type TimeSlot struct {
	ID       string
	Start    string
	End      string
	Position int
}

// User represents a student or staff account.
type User struct {
	ID             string
	PassportID     string
	DisplayName    string
	PasswordHash   string
	IsAdmin        bool
	FaceRegistered bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FaceData stores the captured registration image for a user.
type FaceData struct {
	UserID    string
	Image     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents an authentication session persisted for a user.
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

// Booking represents a court reservation. Date, SlotStart and SlotEnd are the
// facility-local calendar day and wall-clock slot used by the occupancy index;
// StartsAt and EndsAt are the concrete instants.
type Booking struct {
	ID         string
	UserID     string
	CourtID    string
	Date       string
	SlotStart  string
	SlotEnd    string
	StartsAt   time.Time
	EndsAt     time.Time
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ReviewedAt *time.Time

	// Populated by reads only.
	UserName   string
	PassportID string
	CourtName  string
}

// CourtUsage is the number of bookings made for a court.
type CourtUsage struct {
	CourtID   string
	CourtName string
	Bookings  int
}
