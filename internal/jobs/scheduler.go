// Package jobs runs the periodic maintenance tasks of the booking service on
// cron schedules.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

var (
	// ErrEmptyJobName is returned when a job is registered without a name.
	ErrEmptyJobName = errors.New("job name is required")
	// ErrEmptyCronExpr is returned when a job is registered without a cron expression.
	ErrEmptyCronExpr = errors.New("cron expression is required")
	// ErrNilTask is returned when a job is registered without a task.
	ErrNilTask = errors.New("job task is required")
)

// Task is one run of a job. The context is cancelled when the scheduler stops.
type Task func(ctx context.Context) error

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
	stopOnce  sync.Once
	stopErr   error
}

// Option customises a Scheduler.
type Option func(*options)

type options struct {
	location *time.Location
	timeout  time.Duration
	gocron   []gocron.SchedulerOption
}

// WithLocation evaluates cron expressions in loc.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithTaskTimeout bounds every run of every job.
func WithTaskTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithSchedulerOptions passes options through to gocron.
func WithSchedulerOptions(opts ...gocron.SchedulerOption) Option {
	return func(o *options) { o.gocron = append(o.gocron, opts...) }
}

// New builds a stopped scheduler.
func New(logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := options{timeout: time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger = logger.With("component", "jobs")

	schedulerOpts := []gocron.SchedulerOption{
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("scheduler job panicked",
						"job_id", jobID.String(),
						"job_name", jobName,
						"panic", recoverData,
					)
				}),
			),
		),
	}
	if cfg.location != nil {
		schedulerOpts = append(schedulerOpts, gocron.WithLocation(cfg.location))
	}
	schedulerOpts = append(schedulerOpts, cfg.gocron...)

	sched, err := gocron.NewScheduler(schedulerOpts...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: sched,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		timeout:   cfg.timeout,
	}, nil
}

// AddJob registers task on a five field cron expression.
func (s *Scheduler) AddJob(name, cronExpr string, task Task) (gocron.Job, error) {
	if s == nil {
		return nil, errors.New("Scheduler is nil")
	}
	name = strings.TrimSpace(name)
	cronExpr = strings.TrimSpace(cronExpr)
	switch {
	case name == "":
		return nil, ErrEmptyJobName
	case cronExpr == "":
		return nil, ErrEmptyCronExpr
	case task == nil:
		return nil, ErrNilTask
	}

	jobLogger := s.logger.With("job_name", name, "cron", cronExpr)
	run := func() {
		ctx := s.ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		started := time.Now()
		if err := task(ctx); err != nil {
			jobLogger.ErrorContext(ctx, "scheduler job failed", "error", err, "duration", time.Since(started))
			return
		}
		jobLogger.DebugContext(ctx, "scheduler job completed", "duration", time.Since(started))
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(run),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error("failed to register scheduler job", "error", err)
		return nil, err
	}
	jobLogger.Info("scheduler job registered")
	return job, nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.Start()
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("scheduler stopping")
		s.cancel()
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// Sweeper completes bookings whose slot has ended.
type Sweeper interface {
	CompleteElapsed(ctx context.Context) (int, error)
}

// SessionPurger deletes expired sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) error
}

// CompletionTask adapts a Sweeper to a Task.
func CompletionTask(sweeper Sweeper) Task {
	return func(ctx context.Context) error {
		_, err := sweeper.CompleteElapsed(ctx)
		return err
	}
}

// SessionPurgeTask adapts a SessionPurger to a Task.
func SessionPurgeTask(purger SessionPurger) Task {
	return purger.PurgeExpiredSessions
}
