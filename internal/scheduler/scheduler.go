package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultTolerance = time.Second
	retryAfter       = 30 * time.Second
)

var ErrStopped = errors.New("scheduler: stopped")

// Scheduler runs one-shot delayed jobs and cron jobs in process.
type Scheduler struct {
	timeout   time.Duration
	tolerance time.Duration

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	nextID  uint64
	pending map[uint64]*time.Timer
}

type Config struct {
	// Timeout bounds the context handed to each job.
	Timeout time.Duration
	// Tolerance is how late a job may fire before it is reported.
	Tolerance time.Duration
}

func New(c Config) *Scheduler {
	s := &Scheduler{
		timeout:   c.Timeout,
		tolerance: c.Tolerance,
		pending:   make(map[uint64]*time.Timer),
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.tolerance <= 0 {
		s.tolerance = defaultTolerance
	}
	return s
}

// ScheduleOnce runs fn exactly once, no earlier than delay from now.
func (s *Scheduler) ScheduleOnce(delay time.Duration, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	due := time.Now().Add(delay)
	s.nextID++
	id := s.nextID

	s.wg.Add(1)
	s.pending[id] = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()

		s.run(due, fn)
	})

	return nil
}

func (s *Scheduler) run(due time.Time, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "scheduler: job panic",
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
		}
		cancel()
	}()

	if late := time.Since(due); late > s.tolerance {
		slog.WarnContext(ctx, "scheduler: job fired late", "late", late.String())
	}

	fn(ctx)
}

// Cron runs fn at every tick of the cron expression, evaluated in loc, until ctx is done.
func (s *Scheduler) Cron(ctx context.Context, expr string, loc *time.Location, fn func(ctx context.Context)) error {
	if !gronx.IsValid(expr) {
		return fmt.Errorf("scheduler: invalid cron expression %q", expr)
	}
	if loc == nil {
		loc = time.UTC
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.cronLoop(ctx, expr, loc, fn)
	}()

	return nil
}

func (s *Scheduler) cronLoop(ctx context.Context, expr string, loc *time.Location, fn func(ctx context.Context)) {
	for {
		next, err := NextRun(expr, time.Now().In(loc))
		if err != nil {
			slog.ErrorContext(ctx, "scheduler: next tick failed", "cron", expr, "error", err)
			next = time.Now().Add(retryAfter)
		}

		slog.InfoContext(ctx, "scheduler: cron job scheduled", "cron", expr, "next", next)

		t := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		if err == nil {
			s.run(next, fn)
		}
	}
}

// NextRun returns the first tick of expr strictly after from, in from's location.
func NextRun(expr string, from time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, from, false)
}

// Stop refuses new jobs and waits for scheduled and running jobs until ctx is done.
// Jobs that have not fired by then are dropped. Cron loops exit when the context they
// were started with is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if n := s.dropPending(); n > 0 {
			slog.WarnContext(ctx, "scheduler: dropped pending jobs", "count", n)
		}
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

func (s *Scheduler) dropPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, t := range s.pending {
		// A timer that cannot be stopped has already fired and releases itself.
		if t.Stop() {
			s.wg.Done()
			dropped++
		}
		delete(s.pending, id)
	}
	return dropped
}
