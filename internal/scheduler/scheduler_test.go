package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/scheduler"
)

func TestScheduler_ScheduleOnce(t *testing.T) {
	s := scheduler.New(scheduler.Config{})

	var (
		calls   atomic.Int32
		firedAt atomic.Value
	)
	start := time.Now()
	delay := 50 * time.Millisecond

	err := s.ScheduleOnce(delay, func(ctx context.Context) {
		calls.Add(1)
		firedAt.Store(time.Now())
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	assert.EqualValues(t, 1, calls.Load(), "job should fire exactly once")
	assert.GreaterOrEqual(t, firedAt.Load().(time.Time).Sub(start), delay, "job should not fire early")
}

func TestScheduler_JobContextHasDeadline(t *testing.T) {
	s := scheduler.New(scheduler.Config{Timeout: time.Second})

	var hasDeadline atomic.Bool
	require.NoError(t, s.ScheduleOnce(time.Millisecond, func(ctx context.Context) {
		_, ok := ctx.Deadline()
		hasDeadline.Store(ok)
	}))

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, hasDeadline.Load())
}

func TestScheduler_PanicDoesNotEscape(t *testing.T) {
	s := scheduler.New(scheduler.Config{})

	require.NoError(t, s.ScheduleOnce(time.Millisecond, func(ctx context.Context) {
		panic("boom")
	}))

	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_StopRefusesNewJobs(t *testing.T) {
	s := scheduler.New(scheduler.Config{})
	require.NoError(t, s.Stop(context.Background()))

	err := s.ScheduleOnce(time.Millisecond, func(ctx context.Context) {})
	require.ErrorIs(t, err, scheduler.ErrStopped)

	err = s.Cron(context.Background(), "0 12 * * *", time.UTC, func(ctx context.Context) {})
	require.ErrorIs(t, err, scheduler.ErrStopped)
}

func TestScheduler_StopHonoursContext(t *testing.T) {
	s := scheduler.New(scheduler.Config{})
	require.NoError(t, s.ScheduleOnce(time.Hour, func(ctx context.Context) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}

func TestScheduler_StopDropsJobsThatHaveNotFired(t *testing.T) {
	s := scheduler.New(scheduler.Config{})

	var ran atomic.Bool
	require.NoError(t, s.ScheduleOnce(200*time.Millisecond, func(ctx context.Context) {
		ran.Store(true)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	time.Sleep(400 * time.Millisecond)
	assert.False(t, ran.Load(), "a dropped job must not fire after stop")

	// Dropped jobs no longer count as pending.
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_CronRejectsInvalidExpression(t *testing.T) {
	s := scheduler.New(scheduler.Config{})
	err := s.Cron(context.Background(), "every day at noon", time.UTC, func(ctx context.Context) {})
	require.Error(t, err)
}

func TestScheduler_CronStopsWithContext(t *testing.T) {
	s := scheduler.New(scheduler.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Cron(ctx, "0 12 * * *", time.UTC, func(ctx context.Context) {}))
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
}

func TestNextRun(t *testing.T) {
	brisbane := time.FixedZone("AEST", 10*60*60)

	tests := map[string]struct {
		from time.Time
		want time.Time
	}{
		"before noon fires the same day": {
			from: time.Date(2024, 3, 4, 9, 30, 0, 0, brisbane),
			want: time.Date(2024, 3, 4, 12, 0, 0, 0, brisbane),
		},
		"after noon fires the next day": {
			from: time.Date(2024, 3, 4, 12, 0, 30, 0, brisbane),
			want: time.Date(2024, 3, 5, 12, 0, 0, 0, brisbane),
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := scheduler.NextRun("0 12 * * *", tt.from)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
