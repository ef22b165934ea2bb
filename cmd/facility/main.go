package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/example/facility-booking/internal/adapters"
	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/config"
	"github.com/example/facility-booking/internal/events"
	httptransport "github.com/example/facility-booking/internal/http"
	"github.com/example/facility-booking/internal/jobs"
	"github.com/example/facility-booking/internal/logging"
	"github.com/example/facility-booking/internal/persistence/sqlite"
)

const (
	shutdownTimeout = 10 * time.Second
	// sessionPurgeCron runs at minute 17 of every hour.
	sessionPurgeCron = "17 * * * *"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := config.LoadEnvFile(os.Getenv("FACILITY_ENV_FILE")); err != nil {
		bootLogger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		bootLogger.Error("failed to build logger", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("facility API stopped with error", "error", err)
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("failed to release resources", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	app.scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("facility API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down facility API")
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

type eventPublisher interface {
	application.EventPublisher
	Close() error
}

// app holds the wired service graph and the resources it owns.
type app struct {
	handler   http.Handler
	storage   *sqlite.Storage
	scheduler *jobs.Scheduler
	publisher eventPublisher
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a := &app{storage: storage, publisher: events.NopPublisher{}}

	if err := storage.Migrate(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("connect event broker: %w", err)
		}
		a.publisher = publisher
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now
	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }

	catalogRepo := adapters.NewCatalogAdapter(storage)
	bookingRepo := adapters.NewBookingAdapter(storage)
	userRepo := adapters.NewUserAdapter(storage)
	sessionRepo := adapters.NewSessionAdapter(storage)
	reportRepo := adapters.NewReportAdapter(storage)

	catalogService := application.NewCatalogServiceWithLogger(catalogRepo, idGenerator, now, logger)
	seedParams, err := cfg.Facility.SeedParams()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("facility definition: %w", err)
	}
	if _, err := catalogService.Seed(ctx, seedParams); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	bookingService := application.NewBookingServiceWithLogger(bookingRepo, catalogRepo, idGenerator, now, loc, logger).WithPublisher(a.publisher)
	completionService := application.NewCompletionServiceWithLogger(bookingRepo, now, logger).WithPublisher(a.publisher)
	availabilityService := application.NewAvailabilityServiceWithLogger(catalogRepo, bookingRepo, loc, logger)
	userService := application.NewUserServiceWithLogger(userRepo, application.HashPassword, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(userRepo, sessionRepo, application.VerifyPassword, tokenGenerator, now, cfg.SessionTTL, logger)
	reportService := application.NewReportServiceWithLogger(reportRepo, now, loc, logger)

	a.scheduler, err = jobs.New(logger, jobs.WithLocation(loc))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build scheduler: %w", err)
	}
	if cfg.CompletionCron != "" {
		if _, err := a.scheduler.AddJob("complete-elapsed-bookings", cfg.CompletionCron, jobs.CompletionTask(completionService)); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("schedule completion sweep: %w", err)
		}
	}
	if _, err := a.scheduler.AddJob("purge-expired-sessions", sessionPurgeCron, jobs.SessionPurgeTask(authService)); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("schedule session purge: %w", err)
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(authService, logger),
		Users:      httptransport.NewUserHandler(userService, logger),
		Bookings:   httptransport.NewBookingHandler(bookingService, logger),
		Catalog:    httptransport.NewCatalogHandler(catalogService, availabilityService, logger),
		Reports:    httptransport.NewReportHandler(reportService, logger),
		Sessions:   authService,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return a, nil
}

// Close stops the scheduler, the publisher and the storage, in that order.
func (a *app) Close() error {
	var errs []error
	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
