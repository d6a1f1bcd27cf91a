// internal/humanoid/humanoid_test.go
package humanoid

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	h := New(DefaultConfig(), nil, exec)
	require.NotNil(t, h)
	require.NotNil(t, h.rng, "a nil Rng must be replaced with a seeded source")

	// The persona is finalized at construction, not left at zero values.
	assert.GreaterOrEqual(t, h.cfg.PointDensity, 6.0)
	assert.GreaterOrEqual(t, h.cfg.PressHoldMean, h.cfg.PressHoldFloorMs)

	stats := h.GetStatistics()
	assert.NotEmpty(t, stats.SessionID)
	assert.Equal(t, 1.0, stats.FatigueMultiplier)
	assert.Zero(t, stats.ActionCount)
	assert.Zero(t, stats.TotalMoves)
	assert.Zero(t, stats.HistoryDepth)

	other := New(DefaultConfig(), nil, exec)
	assert.NotEqual(t, stats.SessionID, other.GetStatistics().SessionID,
		"every session gets its own identity")
}

func TestGetStatisticsReflectsActivity(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	h := NewTestHumanoid(exec, 12345)

	require.NoError(t, h.MoveTo(context.Background(), 820, 410, MovementRequest{}))

	stats := h.GetStatistics()
	assert.Equal(t, 1, stats.TotalMoves)
	assert.GreaterOrEqual(t, stats.TotalSamples, h.cfg.MinPoints)
	assert.GreaterOrEqual(t, stats.ActionCount, 1)
	assert.Equal(t, 2, stats.HistoryDepth, "one move leaves the origin and the landing in history")
	assert.Equal(t, Vector2D{X: 820, Y: 410}, stats.Position)
	assert.Greater(t, stats.Uptime, time.Duration(0))
}

func TestResetClearsStateKeepsTotals(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	h := NewTestHumanoid(exec, 12345)
	require.NoError(t, h.MoveTo(context.Background(), 820, 410, MovementRequest{}))

	before := h.GetStatistics()
	require.Equal(t, 1, before.TotalMoves)

	h.Reset()
	after := h.GetStatistics()

	assert.Equal(t, before.SessionID, after.SessionID, "a reset is a break, not a new operator")
	assert.Equal(t, 1, after.TotalMoves, "lifetime counters survive the reset")
	assert.Equal(t, before.TotalSamples, after.TotalSamples)
	assert.Zero(t, after.ActionCount)
	assert.Equal(t, 1.0, after.FatigueMultiplier)
	assert.Zero(t, after.HistoryDepth)
}

func TestInvalidateViewportForcesRefetch(t *testing.T) {
	t.Parallel()

	exec := newMockExecutor()
	h := NewTestHumanoid(exec, 12345)
	ctx := context.Background()

	require.NoError(t, h.MoveTo(ctx, 300, 300, MovementRequest{}))
	require.NoError(t, h.MoveTo(ctx, 500, 200, MovementRequest{}))
	assert.Equal(t, 1, exec.viewportCalls, "back-to-back moves share one cached viewport read")

	h.InvalidateViewport()
	require.NoError(t, h.MoveTo(ctx, 700, 400, MovementRequest{}))
	assert.Equal(t, 2, exec.viewportCalls)
}

func TestConcurrentOperationsAreSerialized(t *testing.T) {
	// goleak check ensures no goroutine outlives its operation.
	defer goleak.VerifyNone(t)

	exec := newMockExecutor()
	exec.addRegion("#btn", TargetRegion{X: 600, Y: 300, Width: 160, Height: 48})
	h := NewTestHumanoid(exec, 12345)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			assert.NoError(t, h.MoveTo(ctx, 200+float64(i)*100, 300, MovementRequest{}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			assert.NoError(t, h.MoveRandomly(ctx, MovementRequest{}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 2; i++ {
			assert.NoError(t, h.CognitivePause(ctx, 30, 5))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_ = h.GetStatistics()
			h.InvalidateViewport()
		}
	}()

	wg.Wait()

	stats := h.GetStatistics()
	assert.Equal(t, 6, stats.TotalMoves, "interleaved operations must not lose updates")
	assert.Equal(t, 8, stats.ActionCount, "six moves and two pauses")
}
