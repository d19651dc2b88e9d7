// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package scheduler runs the engine's periodic maintenance jobs:
// retention sweeps on the durable store, expiry sweeps on the volatile
// store and the cache layers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// Job is one periodic maintenance task.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Interval is the time between runs.
	Interval() time.Duration

	// Run executes one pass. Errors are logged, never fatal; the job
	// keeps its schedule.
	Run(ctx context.Context) error
}

// JobFunc adapts a plain function into a Job.
type JobFunc struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// NewJobFunc creates a job from a function.
func NewJobFunc(name string, interval time.Duration, run func(ctx context.Context) error) *JobFunc {
	return &JobFunc{name: name, interval: interval, run: run}
}

func (j *JobFunc) Name() string            { return j.name }
func (j *JobFunc) Interval() time.Duration { return j.interval }

func (j *JobFunc) Run(ctx context.Context) error { return j.run(ctx) }

// Scheduler owns a set of jobs, each on its own ticker.
type Scheduler struct {
	jobs   []Job
	logger *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// New creates an empty scheduler.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		logger: log.Named("scheduler"),
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Start launches every registered job. Each job runs once immediately,
// then on its interval until Stop or context cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop halts all jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	s.execute(ctx, job)

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.execute(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

// execute runs one pass with panic containment so a misbehaving job
// cannot take down the process.
func (s *Scheduler) execute(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job", job.Name(), "panic", r)
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("job failed", "job", job.Name(), "error", err)
		return
	}
	s.logger.Debug("job completed", "job", job.Name(), "duration", time.Since(start))
}
