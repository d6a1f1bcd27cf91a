// internal/humanoid/behavior_test.go
package humanoid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCognitivePauseShortSleepsOnce(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	h := NewTestHumanoid(exec, 12345)

	// A fresh session has multiplier 1.0, so a zero-stddev draw is exact.
	err := h.CognitivePause(context.Background(), 20, 0)
	require.NoError(t, err)

	sleeps := exec.recordedSleeps()
	require.Len(t, sleeps, 1)
	assert.Equal(t, 20*time.Millisecond, sleeps[0])
	assert.Empty(t, exec.recordedEvents(), "short pauses hold perfectly still")
	assert.Equal(t, 1, h.GetStatistics().ActionCount)
}

func TestCognitivePauseTotalTimeAndDriftBounds(t *testing.T) {
	t.Parallel()

	sawDrift := false
	for seed := int64(1); seed <= 30; seed++ {
		exec := newMockExecutor()
		h := NewTestHumanoid(exec, seed)

		err := h.CognitivePause(context.Background(), 2000, 0)
		require.NoError(t, err)

		var total time.Duration
		for _, d := range exec.recordedSleeps() {
			total += d
		}
		assert.Equal(t, 2*time.Second, total, "seed %d", seed)

		events := exec.recordedEvents()
		if len(events) > 0 {
			sawDrift = true
		}
		for _, e := range events {
			assert.Equal(t, MouseMove, e.Type)
			assert.Equal(t, ButtonNone, e.Button)
			assert.True(t, e.X >= 0 && e.X <= 1365, "wobble X %v out of bounds (seed %d)", e.X, seed)
			assert.True(t, e.Y >= 0 && e.Y <= 767, "wobble Y %v out of bounds (seed %d)", e.Y, seed)
		}
	}
	assert.True(t, sawDrift, "long pauses should sometimes wobble the pointer")
}

func TestCognitivePauseDriftStaysNearAnchor(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	h := NewTestHumanoid(exec, 12345)
	require.NoError(t, h.MoveTo(context.Background(), 700, 400, MovementRequest{}))
	anchor := h.GetStatistics().Position
	before := len(exec.recordedEvents())

	for i := 0; i < 10; i++ {
		require.NoError(t, h.CognitivePause(context.Background(), 1500, 0))
	}

	for _, e := range exec.recordedEvents()[before:] {
		assert.InDelta(t, anchor.X, e.X, 8.0, "idle wobble wandered off the resting point")
		assert.InDelta(t, anchor.Y, e.Y, 8.0)
	}
}

func TestCognitivePauseCancelled(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	h := NewTestHumanoid(exec, 12345)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.CognitivePause(ctx, 200, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.GetStatistics().ActionCount, "an interrupted pause is not an action")
}

func TestPauseDurationClamps(t *testing.T) {
	t.Parallel()

	h := NewTestHumanoid(nil, 9)

	for i := 0; i < 200; i++ {
		assert.GreaterOrEqual(t, h.pauseDuration(1, 0.1), 15*time.Millisecond)
		assert.LessOrEqual(t, h.pauseDuration(100000, 10), 6*time.Second)
	}
}
