package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pershin-daniil/icscal/pkg/logger"
)

type stubSweeper struct {
	maxIdle time.Duration
	n       int64
	err     error
	calls   chan struct{}
}

func (s *stubSweeper) SweepIdleTokens(_ context.Context, maxIdle time.Duration) (int64, error) {
	s.maxIdle = maxIdle
	if s.calls != nil {
		select {
		case s.calls <- struct{}{}:
		default:
		}
	}
	return s.n, s.err
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(logger.New(), &stubSweeper{}, "every tuesday", time.Hour)
	require.Error(t, err)
}

func TestSweepOnce(t *testing.T) {
	sweeper := &stubSweeper{n: 2}
	w, err := New(logger.New(), sweeper, "@daily", 48*time.Hour)
	require.NoError(t, err)

	require.NoError(t, w.SweepOnce(context.Background()))
	assert.Equal(t, 48*time.Hour, sweeper.maxIdle)

	sweeper.err = errors.New("db down")
	require.Error(t, w.SweepOnce(context.Background()))
}

func TestRunSweepsOnSchedule(t *testing.T) {
	sweeper := &stubSweeper{calls: make(chan struct{}, 1)}
	w, err := New(logger.New(), sweeper, "@every 1s", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-sweeper.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("sweeper was not called")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
}
