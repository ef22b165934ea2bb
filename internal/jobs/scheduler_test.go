package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sweeperStub struct {
	runs chan struct{}
	err  error
}

func (s *sweeperStub) CompleteElapsed(ctx context.Context) (int, error) {
	s.runs <- struct{}{}
	return 1, s.err
}

type purgerStub struct{ calls int }

func (p *purgerStub) PurgeExpiredSessions(ctx context.Context) error {
	p.calls++
	return nil
}

func TestScheduler_AddJobValidation(t *testing.T) {
	t.Parallel()

	s, err := New(quietLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })

	noop := func(context.Context) error { return nil }
	tests := []struct {
		name     string
		jobName  string
		cronExpr string
		task     Task
		want     error
	}{
		{name: "missing name", jobName: " ", cronExpr: "* * * * *", task: noop, want: ErrEmptyJobName},
		{name: "missing cron", jobName: "sweep", cronExpr: "", task: noop, want: ErrEmptyCronExpr},
		{name: "missing task", jobName: "sweep", cronExpr: "* * * * *", want: ErrNilTask},
	}
	for _, tt := range tests {
		if _, err := s.AddJob(tt.jobName, tt.cronExpr, tt.task); !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}

	if _, err := s.AddJob("sweep", "not a cron", noop); err == nil {
		t.Fatalf("expected error for malformed cron expression")
	}
}

func TestScheduler_RunsCompletionTask(t *testing.T) {
	t.Parallel()

	s, err := New(quietLogger(), WithLocation(time.FixedZone("ICT", 7*60*60)), WithTaskTimeout(time.Second))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	sweeper := &sweeperStub{runs: make(chan struct{}, 1)}
	job, err := s.AddJob("complete-elapsed", "0 0 1 1 *", CompletionTask(sweeper))
	if err != nil {
		t.Fatalf("AddJob returned error: %v", err)
	}
	s.Start()
	if err := job.RunNow(); err != nil {
		t.Fatalf("RunNow returned error: %v", err)
	}

	select {
	case <-sweeper.runs:
	case <-time.After(5 * time.Second):
		t.Fatalf("completion task did not run")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
	if s.ctx.Err() == nil {
		t.Fatalf("expected task context to be cancelled after Stop")
	}
}

func TestSessionPurgeTask(t *testing.T) {
	t.Parallel()

	purger := &purgerStub{}
	if err := SessionPurgeTask(purger)(context.Background()); err != nil {
		t.Fatalf("task returned error: %v", err)
	}
	if purger.calls != 1 {
		t.Fatalf("expected one purge, got %d", purger.calls)
	}
}
