package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/scheduler/mocks"
)

func TestLauncher_Launch(t *testing.T) {
	job := &mocks.JobMock{RunFunc: func(context.Context, domain.Settings) error { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLauncher(ctx, job, 10*time.Millisecond)
	_, ok := l.Stats()
	assert.False(t, ok)

	l.Launch(testSettings("go"))
	require.Eventually(t, func() bool { return len(job.RunCalls()) >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "go", job.RunCalls()[0].S.Keywords)

	stats, ok := l.Stats()
	require.True(t, ok)
	assert.Equal(t, "go", stats.Keywords)
}

func TestLauncher_ReplacesScheduler(t *testing.T) {
	job := &mocks.JobMock{RunFunc: func(context.Context, domain.Settings) error { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLauncher(ctx, job, 10*time.Millisecond)
	l.Launch(testSettings("first"))
	first := l.current
	l.Launch(testSettings("second"))

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("previous scheduler still running")
	}

	calls := len(job.RunCalls())
	require.Eventually(t, func() bool { return len(job.RunCalls()) > calls+2 }, time.Second, 5*time.Millisecond)
	for _, c := range job.RunCalls()[calls:] {
		assert.Equal(t, "second", c.S.Keywords, "only the latest settings are used")
	}
}

func TestLauncher_LaunchDoesNotWaitForRunningJob(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	defer close(release)
	job := &mocks.JobMock{RunFunc: func(_ context.Context, s domain.Settings) error {
		if s.Keywords == "stuck" {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release // ignores ctx, like a hanging network call
		}
		return nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLauncher(ctx, job, 10*time.Millisecond)
	l.Launch(testSettings("stuck"))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("job didn't start")
	}

	launched := make(chan struct{})
	go func() {
		l.Launch(testSettings("next"))
		close(launched)
	}()
	select {
	case <-launched:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("launch blocked by the running job")
	}

	stats, ok := l.Stats()
	require.True(t, ok)
	assert.Equal(t, "next", stats.Keywords)
	require.Eventually(t, func() bool {
		for _, c := range job.RunCalls() {
			if c.S.Keywords == "next" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestLauncher_Wait(t *testing.T) {
	job := &mocks.JobMock{RunFunc: func(context.Context, domain.Settings) error { return nil }}

	t.Run("nothing launched", func(t *testing.T) {
		l := NewLauncher(context.Background(), job, time.Hour)
		l.Wait()
	})

	t.Run("returns after cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		l := NewLauncher(ctx, job, time.Hour)
		l.Launch(testSettings("go"))

		done := make(chan struct{})
		go func() {
			l.Wait()
			close(done)
		}()

		select {
		case <-done:
			t.Fatal("wait returned while scheduler is running")
		case <-time.After(50 * time.Millisecond):
		}

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("wait didn't return after cancel")
		}
	})
}
