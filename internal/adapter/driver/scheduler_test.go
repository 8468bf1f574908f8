package driver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorle/iptv-livecheck/internal/application"
)

type blockingRunner struct {
	calls   atomic.Int32
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, tags ...string) (application.RunReport, error) {
	r.calls.Add(1)
	select {
	case <-r.release:
	case <-ctx.Done():
		return application.RunReport{}, ctx.Err()
	}
	return application.RunReport{RunID: "x"}, nil
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(context.Background(), "every now and then", &blockingRunner{}, newTestLogger())
	assert.Error(t, err)
}

func TestScheduler_TriggerIsSingleFlight(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	s, err := NewScheduler(context.Background(), "0 */6 * * *", runner, newTestLogger())
	require.NoError(t, err)

	require.NoError(t, s.Trigger())
	assert.True(t, s.Busy())
	assert.True(t, errors.Is(s.Trigger(), application.ErrRunInProgress))

	close(runner.release)
	require.Eventually(t, func() bool { return !s.Busy() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runner.calls.Load())

	runner.release = make(chan struct{})
	close(runner.release)
	require.NoError(t, s.Trigger())
	s.Stop()
	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	close(runner.release)

	s, err := NewScheduler(context.Background(), "@every 1h", runner, newTestLogger())
	require.NoError(t, err)

	s.Start(true)
	s.Stop()
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestScheduler_StopInterruptsWithContext(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	s, err := NewScheduler(ctx, "@every 1h", runner, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, s.Trigger())

	cancel()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after cancellation")
	}
}
