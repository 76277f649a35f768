package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/chat/chattest"
)

// flipDetector reports NOT_AUTHENTICATED until its authAt-th call.
// authAt <= 0 never authenticates.
type flipDetector struct {
	authAt int
	calls  int
}

func (d *flipDetector) Detect(context.Context, Page, agents.Profile) AuthState {
	d.calls++
	if d.authAt > 0 && d.calls >= d.authAt {
		return AuthAuthenticated
	}
	return AuthNotAuthenticated
}

func TestLoginWaitReturnsAfterExactlyNPolls(t *testing.T) {
	for _, n := range []int{1, 2, 5, 40} {
		det := &flipDetector{authAt: n}
		clock := chattest.NewClock()
		w := &LoginWaiter{Detector: det, Clock: clock}

		require.NoError(t, w.Wait(context.Background(), &chattest.Page{}, testProfile()))
		assert.Equal(t, n, det.calls)
		assert.Equal(t, n-1, clock.Ticks())
		assert.Equal(t, time.Duration(n-1)*DefaultLoginPollInterval, clock.Elapsed())
	}
}

func TestLoginWaitTimesOutNoEarlierThanMaxWait(t *testing.T) {
	tests := []struct {
		name    string
		maxWait time.Duration
		poll    time.Duration
	}{
		{"defaults", 0, 0},
		{"poll divides max", time.Minute, 2 * time.Second},
		{"poll does not divide max", time.Minute, 7 * time.Second},
		{"poll longer than max", 3 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &flipDetector{}
			clock := chattest.NewClock()
			w := &LoginWaiter{Detector: det, Clock: clock, MaxWait: tt.maxWait, PollInterval: tt.poll}

			err := w.Wait(context.Background(), &chattest.Page{}, testProfile())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrLoginTimeout))

			var lt *LoginTimeoutError
			require.True(t, errors.As(err, &lt))
			maxWait := tt.maxWait
			if maxWait == 0 {
				maxWait = DefaultLoginMaxWait
			}
			assert.GreaterOrEqual(t, clock.Elapsed(), maxWait)
			assert.Equal(t, maxWait, clock.Elapsed())
			assert.Equal(t, det.calls, lt.Polls)
			assert.Equal(t, "test", lt.Agent)
		})
	}
}

func TestLoginWaitReportsProgress(t *testing.T) {
	var reports []LoginProgress
	w := &LoginWaiter{
		Detector:   &flipDetector{},
		Clock:      chattest.NewClock(),
		OnProgress: func(p LoginProgress) { reports = append(reports, p) },
	}
	err := w.Wait(context.Background(), &chattest.Page{}, testProfile())
	require.ErrorIs(t, err, ErrLoginTimeout)

	// Every 30s up to, not including, the 5 minute deadline.
	require.Len(t, reports, 9)
	for i, r := range reports {
		assert.Equal(t, time.Duration(i+1)*30*time.Second, r.Elapsed)
		assert.Equal(t, DefaultLoginMaxWait-r.Elapsed, r.Remaining)
	}
}

func TestLoginWaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &LoginWaiter{Detector: &flipDetector{}, Clock: chattest.NewClock()}
	err := w.Wait(ctx, &chattest.Page{}, testProfile())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrLoginTimeout))
}

func TestLoginWaitAnnouncesLoginOnce(t *testing.T) {
	calls := 0
	w := &LoginWaiter{
		Detector:        &flipDetector{authAt: 6},
		Clock:           chattest.NewClock(),
		OnLoginRequired: func() { calls++ },
	}
	require.NoError(t, w.Wait(context.Background(), &chattest.Page{}, testProfile()))
	assert.Equal(t, 1, calls)

	calls = 0
	w.Detector = &flipDetector{authAt: 1}
	require.NoError(t, w.Wait(context.Background(), &chattest.Page{}, testProfile()))
	assert.Zero(t, calls)
}
