package testfixtures

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/example/facility-booking/internal/application"
)

// Services is the full application stack over a SQLiteHarness.
type Services struct {
	Harness      *SQLiteHarness
	Clock        *Clock
	Location     *time.Location
	Users        *application.UserService
	Auth         *application.AuthService
	Catalog      *application.CatalogService
	Bookings     *application.BookingService
	Availability *application.AvailabilityService
	Completion   *application.CompletionService
	Reports      *application.ReportService
}

// ServicesOption configures NewServices.
type ServicesOption func(*servicesConfig)

type servicesConfig struct {
	clock      *Clock
	location   *time.Location
	sessionTTL time.Duration
	logger     *slog.Logger
	publisher  application.EventPublisher
	bookings   func(application.BookingRepository) application.BookingRepository
}

// WithClock shares a clock across the services.
func WithClock(clock *Clock) ServicesOption {
	return func(cfg *servicesConfig) { cfg.clock = clock }
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServicesOption {
	return func(cfg *servicesConfig) { cfg.logger = logger }
}

// WithPublisher attaches an event publisher to the booking and completion services.
func WithPublisher(publisher application.EventPublisher) ServicesOption {
	return func(cfg *servicesConfig) { cfg.publisher = publisher }
}

// WithBookingRepository wraps the SQLite booking adapter seen by the booking
// and completion services.
func WithBookingRepository(wrap func(application.BookingRepository) application.BookingRepository) ServicesOption {
	return func(cfg *servicesConfig) { cfg.bookings = wrap }
}

// WithSessionTTL overrides the session lifetime.
func WithSessionTTL(ttl time.Duration) ServicesOption {
	return func(cfg *servicesConfig) { cfg.sessionTTL = ttl }
}

// NewServices wires every service over a fresh database using deterministic
// identifiers and the shared clock.
func NewServices(tb testing.TB, opts ...ServicesOption) *Services {
	tb.Helper()

	cfg := servicesConfig{sessionTTL: 24 * time.Hour}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = NewClock(time.Time{})
	}
	if cfg.location == nil {
		cfg.location = FacilityLocation()
	}

	h := NewSQLiteHarness(tb)
	now := cfg.clock.NowFunc()

	var bookingRepo application.BookingRepository = h.Bookings
	if cfg.bookings != nil {
		bookingRepo = cfg.bookings(bookingRepo)
	}

	bookings := application.NewBookingServiceWithLogger(bookingRepo, h.Catalog, NewIDGenerator("booking").NextFunc(), now, cfg.location, cfg.logger)
	completion := application.NewCompletionServiceWithLogger(bookingRepo, now, cfg.logger)
	if cfg.publisher != nil {
		bookings = bookings.WithPublisher(cfg.publisher)
		completion = completion.WithPublisher(cfg.publisher)
	}

	return &Services{
		Harness:      h,
		Clock:        cfg.clock,
		Location:     cfg.location,
		Users:        application.NewUserServiceWithLogger(h.Users, FastPasswordHash, NewIDGenerator("user").NextFunc(), now, cfg.logger),
		Auth:         application.NewAuthServiceWithLogger(h.Users, h.Sessions, application.VerifyPassword, NewIDGenerator("token").NextFunc(), now, cfg.sessionTTL, cfg.logger),
		Catalog:      application.NewCatalogServiceWithLogger(h.Catalog, NewIDGenerator("catalog").NextFunc(), now, cfg.logger),
		Bookings:     bookings,
		Availability: application.NewAvailabilityServiceWithLogger(h.Catalog, h.Bookings, cfg.location, cfg.logger),
		Completion:   completion,
		Reports:      application.NewReportServiceWithLogger(h.Reports, now, cfg.location, cfg.logger),
	}
}

// Seed writes the default catalog and returns the seeded courts.
func (s *Services) Seed(tb testing.TB) []application.Court {
	tb.Helper()

	ctx := context.Background()
	if _, err := s.Catalog.Seed(ctx, application.SeedParams{}); err != nil {
		tb.Fatalf("failed to seed catalog: %v", err)
	}
	courts, err := s.Catalog.ListCourts(ctx)
	if err != nil {
		tb.Fatalf("failed to list courts: %v", err)
	}
	if len(courts) == 0 {
		tb.Fatalf("seed produced no courts")
	}
	return courts
}

// Register creates the fixture's account and returns its principal.
func (s *Services) Register(tb testing.TB, fixture UserFixture) application.Principal {
	tb.Helper()

	ctx := context.Background()
	user, err := s.Users.Register(ctx, fixture.RegisterParams())
	if err != nil {
		tb.Fatalf("failed to register %s: %v", fixture.PassportID, err)
	}
	if fixture.IsAdmin {
		creds, err := s.Harness.Users.GetUserCredentials(ctx, user.PassportID)
		if err != nil {
			tb.Fatalf("failed to load %s: %v", fixture.PassportID, err)
		}
		creds.User.IsAdmin = true
		if err := s.Harness.Users.UpdateUser(ctx, creds); err != nil {
			tb.Fatalf("failed to promote %s: %v", fixture.PassportID, err)
		}
		user.IsAdmin = true
	}
	return application.Principal{UserID: user.ID, DisplayName: user.DisplayName, IsAdmin: user.IsAdmin}
}
