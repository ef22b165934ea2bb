package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/slots"
)

var (
	userCounter    uint64
	bookingCounter uint64
)

// facilityZone mirrors Asia/Bangkok without depending on the host tz database.
var facilityZone = time.FixedZone("ICT", 7*60*60)

// referenceTime is 08:00 facility time on a Monday.
var referenceTime = time.Date(2025, time.March, 3, 1, 0, 0, 0, time.UTC)

// ReferenceTime returns the baseline instant used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// FacilityLocation returns the time zone fixtures book in.
func FacilityLocation() *time.Location {
	return facilityZone
}

// ReferenceDate returns the facility-local date of ReferenceTime shifted by days.
func ReferenceDate(days int) string {
	return referenceTime.In(facilityZone).AddDate(0, 0, days).Format(slots.DateLayout)
}

// fastArgon2 keeps fixture hashing cheap. Verification reads the parameters
// back from the hash, so VerifyPassword accepts these hashes unchanged.
var fastArgon2 = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// FastPasswordHash is an application.PasswordHasher tuned for tests.
func FastPasswordHash(password string) (string, error) {
	return application.CreatePasswordHash(password, fastArgon2)
}

// UserFixture describes an account to register.
type UserFixture struct {
	PassportID  string
	DisplayName string
	Password    string
	IsAdmin     bool
}

// UserOption configures a UserFixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a unique member account.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		PassportID:  fmt.Sprintf("P%06d", idx),
		DisplayName: fmt.Sprintf("Student %03d", idx),
		Password:    "correct horse battery",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithPassportID(id string) UserOption {
	return func(f *UserFixture) { f.PassportID = id }
}

func WithPassword(password string) UserOption {
	return func(f *UserFixture) { f.Password = password }
}

// AsAdmin marks the fixture as an administrator account.
func AsAdmin() UserOption {
	return func(f *UserFixture) { f.IsAdmin = true }
}

// RegisterParams converts the fixture into self registration input.
func (f UserFixture) RegisterParams() application.RegisterParams {
	return application.RegisterParams{
		PassportID:  f.PassportID,
		DisplayName: f.DisplayName,
		Password:    f.Password,
	}
}

// BookingFixture describes a booking request against the seeded catalog.
type BookingFixture struct {
	CourtID   string
	Date      string
	StartTime string
	EndTime   string
}

// BookingOption configures a BookingFixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a request for the 09:00 slot one day after
// ReferenceTime. Each call moves to the next half hour so fixtures do not
// collide unless asked to.
func NewBookingFixture(courtID string, opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1) - 1
	start := slots.MustTimeOfDay(9, 0) + slots.TimeOfDay((idx%20)*30)
	fixture := BookingFixture{
		CourtID:   courtID,
		Date:      ReferenceDate(1),
		StartTime: start.String(),
		EndTime:   (start + 30).String(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// AtSlot pins the fixture to a start and end time.
func AtSlot(start, end string) BookingOption {
	return func(f *BookingFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// OnDate pins the fixture to a facility-local date.
func OnDate(date string) BookingOption {
	return func(f *BookingFixture) { f.Date = date }
}

// Input converts the fixture into booking input.
func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		CourtID:   f.CourtID,
		Date:      f.Date,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
	}
}
