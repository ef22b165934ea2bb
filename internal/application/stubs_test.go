package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/facility-booking/internal/persistence"
	"github.com/example/facility-booking/internal/slots"
)

var ict = time.FixedZone("ICT", 7*60*60)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func testSlot(start, end string) slots.Slot {
	s, err := slots.ParseTimeOfDay(start)
	if err != nil {
		panic(err)
	}
	e, err := slots.ParseTimeOfDay(end)
	if err != nil {
		panic(err)
	}
	return slots.Slot{ID: start + "-" + end, Start: s, End: e}
}

// catalogStub serves a fixed set of courts and slots.
type catalogStub struct {
	courts []Court
	grid   []slots.Slot
	err    error

	insertedCourts []Court
	insertedSlots  []slots.Slot
}

func newCatalogStub() *catalogStub {
	return &catalogStub{
		courts: []Court{
			{ID: "court-1", Name: "Court 1", Position: 0},
			{ID: "court-2", Name: "Court 2", Position: 1},
		},
		grid: []slots.Slot{testSlot("08:00", "08:30"), testSlot("08:30", "09:00")},
	}
}

func (c *catalogStub) ListCourts(ctx context.Context) ([]Court, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]Court(nil), c.courts...), nil
}

func (c *catalogStub) GetCourt(ctx context.Context, id string) (Court, error) {
	if c.err != nil {
		return Court{}, c.err
	}
	for _, court := range c.courts {
		if court.ID == id {
			return court, nil
		}
	}
	return Court{}, persistence.ErrNotFound
}

func (c *catalogStub) InsertCourts(ctx context.Context, courts []Court) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.courts = append(c.courts, courts...)
	c.insertedCourts = append(c.insertedCourts, courts...)
	return len(courts), nil
}

func (c *catalogStub) ListSlots(ctx context.Context) ([]slots.Slot, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]slots.Slot(nil), c.grid...), nil
}

func (c *catalogStub) InsertSlots(ctx context.Context, catalog []slots.Slot) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.grid = append(c.grid, catalog...)
	c.insertedSlots = append(c.insertedSlots, catalog...)
	return len(catalog), nil
}

// bookingStoreStub keeps bookings in memory and enforces the occupancy
// constraint the way the SQLite index does.
type bookingStoreStub struct {
	mu       sync.Mutex
	bookings map[string]Booking
	names    map[string]string

	listErr   error
	createErr error
	updateErr error
	// updateErrs fails updates for individual booking IDs.
	updateErrs map[string]error
	// beforeUpdate runs without the lock ahead of each update.
	beforeUpdate func(booking Booking)
}

func newBookingStoreStub() *bookingStoreStub {
	return &bookingStoreStub{bookings: make(map[string]Booking), names: make(map[string]string)}
}

func (s *bookingStoreStub) seed(bookings ...Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bookings {
		s.bookings[b.ID] = b
	}
}

func (s *bookingStoreStub) occupied(candidate Booking) bool {
	if !candidate.Status.Occupies() {
		return false
	}
	for _, b := range s.bookings {
		if b.ID == candidate.ID || !b.Status.Occupies() {
			continue
		}
		if b.CourtID == candidate.CourtID && b.Date == candidate.Date && b.Slot.Start.Equal(candidate.Slot.Start) {
			return true
		}
	}
	return false
}

func (s *bookingStoreStub) CreateBooking(ctx context.Context, booking Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if s.occupied(booking) {
		return persistence.ErrSlotTaken
	}
	s.bookings[booking.ID] = booking
	return nil
}

func (s *bookingStoreStub) UpdateBooking(ctx context.Context, booking Booking, expected BookingStatus) error {
	if hook := s.beforeUpdate; hook != nil {
		s.beforeUpdate = nil
		hook(booking)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if err, ok := s.updateErrs[booking.ID]; ok {
		return err
	}
	stored, ok := s.bookings[booking.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if stored.Status != expected {
		return persistence.ErrStatusChanged
	}
	if s.occupied(booking) {
		return persistence.ErrSlotTaken
	}
	s.bookings[booking.ID] = booking
	return nil
}

func (s *bookingStoreStub) GetBooking(ctx context.Context, id string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	if name, ok := s.names[b.UserID]; ok {
		b.UserName = name
	}
	return b, nil
}

func (s *bookingStoreStub) ListBookings(ctx context.Context, query BookingQuery) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []Booking
	for _, b := range s.bookings {
		if query.UserID != "" && b.UserID != query.UserID {
			continue
		}
		if query.CourtID != "" && b.CourtID != query.CourtID {
			continue
		}
		if query.Date != "" && b.Date != query.Date {
			continue
		}
		if len(query.Statuses) > 0 && !containsStatus(query.Statuses, b.Status) {
			continue
		}
		if query.EndsBefore != nil && b.EndsAt.After(*query.EndsBefore) {
			continue
		}
		if query.CreatedAfter != nil && b.CreatedAt.Before(*query.CreatedAfter) {
			continue
		}
		if name, ok := s.names[b.UserID]; ok {
			b.UserName = name
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return (out[i].Date < out[j].Date) != query.Descending
		}
		if out[i].Slot.Start != out[j].Slot.Start {
			return (out[i].Slot.Start < out[j].Slot.Start) != query.Descending
		}
		return out[i].CourtID < out[j].CourtID
	})
	return out, nil
}

func (s *bookingStoreStub) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

func containsStatus(statuses []BookingStatus, status BookingStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// publisherStub records published events.
type publisherStub struct {
	mu     sync.Mutex
	events []BookingEvent
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, event BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *publisherStub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func str(s string) *string {
	return &s
}
