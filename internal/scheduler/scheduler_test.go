package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	sched := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int64
	done := make(chan error, 1)

	go func() {
		done <- sched.Run(ctx, func(ctx context.Context, tick time.Time) error {
			if ticks.Add(1) >= 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run should return context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	if ticks.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", ticks.Load())
	}
}

func TestSchedulerContinuesAfterTickError(t *testing.T) {
	sched := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int64
	done := make(chan error, 1)

	go func() {
		done <- sched.Run(ctx, func(ctx context.Context, tick time.Time) error {
			if ticks.Add(1) >= 2 {
				cancel()
				return nil
			}
			return errors.New("fetch failed")
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not survive a failing tick")
	}
	if ticks.Load() < 2 {
		t.Fatalf("failing tick should not stop the loop, got %d ticks", ticks.Load())
	}
}

func TestSchedulerStartupDelay(t *testing.T) {
	sched := New(Options{Interval: time.Hour, StartupDelay: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ticks atomic.Int64
	err := sched.Run(ctx, func(ctx context.Context, tick time.Time) error {
		ticks.Add(1)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run should return context.Canceled, got %v", err)
	}
	if ticks.Load() != 0 {
		t.Fatal("cancellation during startup delay should prevent any tick")
	}
}

func TestNewPanicsOnNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("non-positive interval should panic")
		}
	}()
	New(Options{Interval: 0}, zerolog.Nop())
}
