package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAvailabilityService_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("every pair is free on an empty day", func(t *testing.T) {
		t.Parallel()

		catalog := newCatalogStub()
		catalog.grid = catalog.grid[:1]
		svc := NewAvailabilityServiceWithLogger(catalog, newBookingStoreStub(), ict, discardLogger())

		result, err := svc.Resolve(context.Background(), owner, "2024-06-01")
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if len(result.Cells) != 2 {
			t.Fatalf("expected 2 cells, got %d", len(result.Cells))
		}
		for _, cell := range result.Cells {
			if !cell.Available || cell.OccupantName != nil || cell.BookingID != nil {
				t.Fatalf("expected free cell, got %+v", cell)
			}
		}
		if result.Summary.Available != 2 || result.Summary.Booked != 0 {
			t.Fatalf("unexpected summary %+v", result.Summary)
		}
	})

	t.Run("compares wall clock minutes in the facility zone", func(t *testing.T) {
		t.Parallel()

		store := newBookingStoreStub()
		slot := testSlot("08:00", "08:30")
		start := time.Date(2024, 6, 1, 8, 0, 0, 0, ict)
		store.seed(
			Booking{ID: "b-1", UserID: "u", CourtID: "court-2", Date: "2024-06-01", Slot: slot,
				StartsAt: start.UTC(), EndsAt: start.Add(30 * time.Minute).UTC(), Status: StatusActive, UserName: "Uma"},
			Booking{ID: "b-2", UserID: "v", CourtID: "court-1", Date: "2024-06-01", Slot: slot,
				StartsAt: start.UTC(), EndsAt: start.Add(30 * time.Minute).UTC(), Status: StatusCancelled},
		)
		svc := NewAvailabilityServiceWithLogger(newCatalogStub(), store, ict, discardLogger())

		result, err := svc.Resolve(context.Background(), owner, "2024-06-01")
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}

		for _, cell := range result.Cells {
			held := cell.CourtID == "court-2" && cell.Slot.Start.String() == "08:00"
			if cell.Available == held {
				t.Fatalf("unexpected availability for %s %s: %+v", cell.CourtID, cell.Slot.Key(), cell)
			}
			if held && (cell.OccupantName == nil || *cell.OccupantName != "Uma" || *cell.BookingID != "b-1") {
				t.Fatalf("expected occupant Uma/b-1, got %+v", cell)
			}
		}
	})

	t.Run("validates the date", func(t *testing.T) {
		t.Parallel()
		svc := NewAvailabilityServiceWithLogger(newCatalogStub(), newBookingStoreStub(), ict, discardLogger())

		tests := map[string]string{
			"":           ReasonMissingField,
			"2024-13-01": ReasonInvalidValue,
		}
		for date, reason := range tests {
			_, err := svc.Resolve(context.Background(), owner, date)
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Reason != reason {
				t.Fatalf("date %q: expected %s, got %v", date, reason, err)
			}
		}
	})

	t.Run("wraps catalog failures", func(t *testing.T) {
		t.Parallel()
		catalog := newCatalogStub()
		catalog.err = errors.New("locked")
		svc := NewAvailabilityServiceWithLogger(catalog, newBookingStoreStub(), ict, discardLogger())

		if _, err := svc.Resolve(context.Background(), owner, "2024-06-01"); !errors.Is(err, ErrInfrastructure) {
			t.Fatalf("expected infrastructure error, got %v", err)
		}
	})
}
