// Package scheduler runs the digest job periodically with the cadence of the saved settings.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newsdigest/pkg/domain"
)

//go:generate moq -out mocks/job.go -pkg mocks -skip-ensure -fmt goimports . Job

// Job is a single digest cycle for the given settings
type Job interface {
	Run(ctx context.Context, s domain.Settings) error
}

// Scheduler runs the job every cadence, starting one cadence after the launch.
// Runs are sequential, ticks missed while a run is in progress are dropped.
type Scheduler struct {
	job      Job
	settings domain.Settings
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	stats Stats
}

// Params for the scheduler
type Params struct {
	Job      Job
	Settings domain.Settings
	Interval time.Duration // overrides the settings cadence if set
}

// Stats reports what the scheduler did so far
type Stats struct {
	Keywords  string        `json:"keywords"`
	Interval  time.Duration `json:"interval"`
	Runs      int           `json:"runs"`
	Failures  int           `json:"failures"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// NewScheduler creates a scheduler owning a copy of the settings
func NewScheduler(params Params) *Scheduler {
	interval := params.Interval
	if interval <= 0 {
		interval = params.Settings.Cadence()
	}
	return &Scheduler{
		job:      params.Job,
		settings: params.Settings,
		interval: interval,
		done:     make(chan struct{}),
		stats:    Stats{Keywords: params.Settings.Keywords, Interval: interval},
	}
}

// Run blocks and executes the job on every tick until the context is canceled.
// A failed run is logged and the loop keeps going.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		lgr.Printf("[ERROR] scheduler for %q not started, invalid interval %v", s.settings.Keywords, s.interval)
		return
	}
	lgr.Printf("[INFO] scheduler started for %q, every %v", s.settings.Keywords, s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lgr.Printf("[INFO] scheduler for %q stopped", s.settings.Keywords)
			return
		case <-ticker.C:
			s.runJob(ctx)
		}
	}
}

// Start runs the scheduler in background
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.done)
		s.Run(ctx)
	}()
}

// Stop cancels the background scheduler and waits for the current run to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// Done returns a channel closed when the background scheduler exits
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Stats returns a snapshot of the scheduler counters
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) runJob(ctx context.Context) {
	st := time.Now()
	err := s.job.Run(ctx, s.settings)

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastRun = st
	s.stats.LastError = ""
	if err != nil {
		s.stats.Failures++
		s.stats.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		lgr.Printf("[ERROR] digest for %q failed: %v", s.settings.Keywords, err)
		return
	}
	lgr.Printf("[DEBUG] digest for %q completed in %v", s.settings.Keywords, time.Since(st))
}
