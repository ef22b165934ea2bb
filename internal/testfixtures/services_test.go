package testfixtures

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/persistence"
)

type recordingPublisher struct {
	events chan application.BookingEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event application.BookingEvent) error {
	p.events <- event
	return nil
}

func TestConcurrentBookingsForOneSlotAdmitOneWinner(t *testing.T) {
	t.Parallel()

	const contenders = 8

	services := NewServices(t)
	court := services.Seed(t)[0]

	principals := make([]application.Principal, contenders)
	for i := range principals {
		principals[i] = services.Register(t, NewUserFixture())
	}
	request := NewBookingFixture(court.ID, AtSlot("10:00", "10:30"))

	errs := make([]error, contenders)
	var g errgroup.Group
	for i := 0; i < contenders; i++ {
		i := i
		g.Go(func() error {
			_, errs[i] = services.Bookings.CreateBooking(context.Background(), application.CreateBookingParams{
				Principal: principals[i],
				Input:     request.Input(),
			})
			return nil
		})
	}
	_ = g.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case application.IsConflict(err, application.ConflictSlotTaken):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != contenders-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", contenders-1, succeeded, conflicted)
	}

	held, err := services.Harness.Bookings.ListBookings(context.Background(), application.BookingQuery{
		CourtID:  court.ID,
		Date:     request.Date,
		Statuses: application.OccupyingStatuses,
	})
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	if len(held) != 1 {
		t.Fatalf("expected exactly one occupying booking, got %d", len(held))
	}
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	services := NewServices(t)
	court := services.Seed(t)[0]
	first := services.Register(t, NewUserFixture())
	second := services.Register(t, NewUserFixture())
	request := NewBookingFixture(court.ID, AtSlot("11:00", "11:30"))

	booking, err := services.Bookings.CreateBooking(ctx, application.CreateBookingParams{Principal: first, Input: request.Input()})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	_, err = services.Bookings.CreateBooking(ctx, application.CreateBookingParams{Principal: second, Input: request.Input()})
	if !application.IsConflict(err, application.ConflictSlotTaken) {
		t.Fatalf("expected slot_taken conflict, got %v", err)
	}

	if _, err := services.Bookings.CancelBooking(ctx, second, booking.ID); !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("expected a stranger's cancel to be forbidden, got %v", err)
	}
	if _, err := services.Bookings.CancelBooking(ctx, first, booking.ID); err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}

	if _, err := services.Bookings.CreateBooking(ctx, application.CreateBookingParams{Principal: second, Input: request.Input()}); err != nil {
		t.Fatalf("expected the released slot to be bookable, got %v", err)
	}
}

// interleavingBookings runs interleave once, after the first GetBooking that
// follows arming, so another writer can act between a service's read and write.
type interleavingBookings struct {
	application.BookingRepository

	mu         sync.Mutex
	interleave func()
}

func (r *interleavingBookings) arm(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interleave = fn
}

func (r *interleavingBookings) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	booking, err := r.BookingRepository.GetBooking(ctx, id)
	r.mu.Lock()
	fn := r.interleave
	r.interleave = nil
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
	return booking, err
}

func TestTransitionsDoNotOverwriteAConcurrentCancel(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name  string
		apply func(*application.BookingService, context.Context, application.Principal, string) (application.Booking, error)
	}{
		{"approve", (*application.BookingService).ApproveBooking},
		{"reject", (*application.BookingService).RejectBooking},
		{"complete", (*application.BookingService).CompleteBooking},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			var repo *interleavingBookings
			services := NewServices(t, WithBookingRepository(func(inner application.BookingRepository) application.BookingRepository {
				repo = &interleavingBookings{BookingRepository: inner}
				return repo
			}))
			court := services.Seed(t)[0]
			owner := services.Register(t, NewUserFixture())
			admin := services.Register(t, NewUserFixture(AsAdmin()))

			booking, err := services.Bookings.CreateBooking(ctx, application.CreateBookingParams{
				Principal: owner,
				Input:     NewBookingFixture(court.ID, AtSlot("12:00", "12:30")).Input(),
			})
			if err != nil {
				t.Fatalf("CreateBooking failed: %v", err)
			}

			repo.arm(func() {
				if _, err := services.Bookings.CancelBooking(ctx, owner, booking.ID); err != nil {
					t.Errorf("owner cancel failed: %v", err)
				}
			})
			_, err = tt.apply(services.Bookings, ctx, admin, booking.ID)
			var vErr *application.ValidationError
			if !errors.As(err, &vErr) || vErr.Reason != application.ReasonInvalidTransition {
				t.Fatalf("expected invalid_transition, got %v", err)
			}

			stored, err := services.Bookings.GetBooking(ctx, admin, booking.ID)
			if err != nil {
				t.Fatalf("GetBooking failed: %v", err)
			}
			if stored.Status != application.StatusCancelled {
				t.Fatalf("expected the owner's cancellation to stand, got %s", stored.Status)
			}
		})
	}
}

func TestCompletionSweepSkipsBookingsCancelledMidSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	services := NewServices(t)
	court := services.Seed(t)[0]
	owner := services.Register(t, NewUserFixture())

	booking, err := services.Bookings.CreateBooking(ctx, application.CreateBookingParams{
		Principal: owner,
		Input:     NewBookingFixture(court.ID, AtSlot("12:00", "12:30")).Input(),
	})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	// The sweep has listed the booking as active; the owner cancels before its write.
	listed := booking
	if _, err := services.Bookings.CancelBooking(ctx, owner, booking.ID); err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}
	listed.Status = application.StatusCompleted
	err = services.Harness.Bookings.UpdateBooking(ctx, listed, application.StatusActive)
	if !errors.Is(err, persistence.ErrStatusChanged) {
		t.Fatalf("expected the stale completion to be refused, got %v", err)
	}

	services.Clock.Advance(72 * time.Hour)
	completed, err := services.Completion.CompleteElapsed(ctx)
	if err != nil {
		t.Fatalf("CompleteElapsed failed: %v", err)
	}
	if completed != 0 {
		t.Fatalf("expected nothing to complete, got %d", completed)
	}
	stored, err := services.Harness.Bookings.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBooking failed: %v", err)
	}
	if stored.Status != application.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", stored.Status)
	}
}

func TestBookingLifecycleOverSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	publisher := &recordingPublisher{events: make(chan application.BookingEvent, 8)}
	services := NewServices(t, WithPublisher(publisher))
	courts := services.Seed(t)

	member := NewUserFixture()
	services.Register(t, member)
	admin := services.Register(t, NewUserFixture(AsAdmin()))

	auth, err := services.Auth.Authenticate(ctx, application.AuthenticateParams{
		PassportID: member.PassportID,
		Password:   member.Password,
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	principal, err := services.Auth.ValidateSession(ctx, auth.Session.Token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if principal.UserID != auth.User.ID || principal.IsAdmin {
		t.Fatalf("unexpected principal %+v", principal)
	}

	request := NewBookingFixture(courts[0].ID, AtSlot("09:00", "09:30"))
	booking, err := services.Bookings.CreateBooking(ctx, application.CreateBookingParams{Principal: principal, Input: request.Input()})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if booking.CourtName != courts[0].Name || booking.Status != application.StatusActive {
		t.Fatalf("unexpected booking %+v", booking)
	}
	if event := <-publisher.events; event.Type != application.EventBookingCreated || event.BookingID != booking.ID {
		t.Fatalf("unexpected event %+v", event)
	}

	grid, err := services.Availability.Resolve(ctx, principal, request.Date)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if grid.Summary.Booked != 1 || grid.Summary.Total != grid.Summary.Available+grid.Summary.Booked {
		t.Fatalf("unexpected summary %+v", grid.Summary)
	}

	if err := services.Auth.RevokeSession(ctx, auth.Session.Token); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := services.Auth.ValidateSession(ctx, auth.Session.Token); !errors.Is(err, application.ErrSessionRevoked) {
		t.Fatalf("expected revoked session, got %v", err)
	}

	services.Clock.Advance(72 * time.Hour)
	completed, err := services.Completion.CompleteElapsed(ctx)
	if err != nil {
		t.Fatalf("CompleteElapsed failed: %v", err)
	}
	if completed != 1 {
		t.Fatalf("expected one elapsed booking, got %d", completed)
	}
	stored, err := services.Bookings.GetBooking(ctx, admin, booking.ID)
	if err != nil {
		t.Fatalf("GetBooking failed: %v", err)
	}
	if stored.Status != application.StatusCompleted {
		t.Fatalf("expected completed status, got %s", stored.Status)
	}

	stats, err := services.Reports.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalUsers != 2 || stats.TotalBookings != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := services.Reports.Stats(ctx, principal); !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("expected members to be denied stats, got %v", err)
	}
}
