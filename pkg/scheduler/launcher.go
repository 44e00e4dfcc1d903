package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newsdigest/pkg/domain"
)

// Launcher starts the scheduler after a completed setup. Only one scheduler is active,
// launching again replaces the previous one.
type Launcher struct {
	ctx      context.Context
	job      Job
	interval time.Duration

	mu      sync.Mutex
	current *Scheduler
}

// NewLauncher makes a launcher, schedulers run until ctx is canceled.
// Non-zero interval overrides the cadence of launched settings.
func NewLauncher(ctx context.Context, job Job, interval time.Duration) *Launcher {
	return &Launcher{ctx: ctx, job: job, interval: interval}
}

// Launch cancels the running scheduler, if any, and starts a new one with the settings.
// It doesn't block: a run of the previous scheduler still in progress finishes on its own,
// and the new scheduler owns its copy of the settings.
func (l *Launcher) Launch(s domain.Settings) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev := l.current; prev != nil {
		lgr.Printf("[INFO] replacing scheduler for %q", prev.settings.Keywords)
		prev.cancel()
	}

	l.current = NewScheduler(Params{Job: l.job, Settings: s, Interval: l.interval})
	l.current.Start(l.ctx)
}

// Wait blocks until the active scheduler exits, it returns right away if nothing was launched
func (l *Launcher) Wait() {
	for {
		l.mu.Lock()
		cur := l.current
		l.mu.Unlock()
		if cur == nil {
			return
		}
		<-cur.Done()

		l.mu.Lock()
		replaced := l.current != cur
		l.mu.Unlock()
		if !replaced {
			return
		}
	}
}

// Stats returns counters of the active scheduler, false if nothing was launched
func (l *Launcher) Stats() (Stats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return Stats{}, false
	}
	return l.current.Stats(), true
}
