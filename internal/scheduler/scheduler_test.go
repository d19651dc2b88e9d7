// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

func TestSchedulerRunsJobImmediately(t *testing.T) {
	s := New(logger.Nop())

	var runs int32
	s.Register(NewJobFunc("counter", time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&runs) == 0 {
		select {
		case <-deadline:
			t.Fatal("job never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	s := New(logger.Nop())

	var runs int32
	s.Register(NewJobFunc("ticker", 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))

	s.Start(context.Background())
	time.Sleep(110 * time.Millisecond)
	s.Stop()

	if got := atomic.LoadInt32(&runs); got < 3 {
		t.Fatalf("job ran %d times, want at least 3", got)
	}
}

func TestSchedulerContainsPanics(t *testing.T) {
	s := New(logger.Nop())

	var after int32
	s.Register(NewJobFunc("panicky", 20*time.Millisecond, func(ctx context.Context) error {
		if atomic.AddInt32(&after, 1) == 1 {
			panic("boom")
		}
		return nil
	}))

	s.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	s.Stop()

	if got := atomic.LoadInt32(&after); got < 2 {
		t.Fatalf("job did not survive its own panic, ran %d times", got)
	}
}

func TestSchedulerStopWaitsForJobs(t *testing.T) {
	s := New(logger.Nop())

	var finished int32
	s.Register(NewJobFunc("slow", time.Hour, func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return nil
	}))

	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	if atomic.LoadInt32(&finished) != 1 {
		t.Fatal("Stop returned before the in-flight run finished")
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	s := New(logger.Nop())
	s.Register(NewJobFunc("noop", time.Hour, func(ctx context.Context) error { return nil }))

	s.Start(context.Background())
	s.Stop()
	s.Stop() // must not panic
}
