// internal/humanoid/drag.go
package humanoid

import (
	"context"
	"fmt"
	"time"
)

// leftButtonBit is the Buttons bitfield value while the left button is held.
const leftButtonBit int64 = 1

// DragTo presses the left button at the current position, drags along a
// humanized path to the destination, and releases. Drags pace slower and bow
// less than free moves, and the grab/release edges are fatal on driver
// failure because a half-finished drag leaves the page in a held state.
func (h *Humanoid) DragTo(ctx context.Context, x, y float64, req MovementRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	vp := h.geo.Viewport(ctx)
	start := h.motion.ensureInit(vp, h.rng)
	dest := Vector2D{X: x, Y: y}.ClampTo(vp)

	press := MouseEventData{
		Type:       MousePress,
		X:          start.X,
		Y:          start.Y,
		Button:     ButtonLeft,
		ClickCount: 1,
		Buttons:    leftButtonBit,
	}
	if err := h.executor.DispatchMouseEvent(ctx, press); err != nil {
		return fmt.Errorf("%w: drag press: %w", ErrDriverCallFailed, err)
	}

	// Grip pause before the pull starts.
	if err := h.executor.Sleep(ctx, h.pressHoldDuration()); err != nil {
		h.releaseAfterFailure(ctx, start)
		return ctxErr(err)
	}

	req.IsApproach = true
	if req.JitterScale <= 0 {
		req.JitterScale = 1.0
	}
	req.JitterScale *= 0.8

	plan := h.planTrajectory(start, dest, vp, req)
	stretchDelays(plan.samples, 1.3)

	if err := h.playPath(ctx, plan.samples, leftButtonBit); err != nil {
		h.releaseAfterFailure(ctx, h.motion.pos)
		return err
	}

	release := MouseEventData{
		Type:       MouseRelease,
		X:          h.motion.pos.X,
		Y:          h.motion.pos.Y,
		Button:     ButtonLeft,
		ClickCount: 1,
	}
	if err := h.executor.DispatchMouseEvent(ctx, release); err != nil {
		return fmt.Errorf("%w: drag release: %w", ErrDriverCallFailed, err)
	}

	h.motion.settle(start)
	h.stats.moves++
	h.recordActions(2)
	return nil
}

// releaseAfterFailure pairs an already-dispatched press when the drag cannot
// continue, using a short independent context in case the caller's is dead.
func (h *Humanoid) releaseAfterFailure(ctx context.Context, at Vector2D) {
	releaseCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		releaseCtx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	_ = h.executor.DispatchMouseEvent(releaseCtx, MouseEventData{
		Type:       MouseRelease,
		X:          at.X,
		Y:          at.Y,
		Button:     ButtonLeft,
		ClickCount: 1,
	})
}

// stretchDelays scales every sample delay in place. Drag motion reads as
// deliberate, so its pacing runs slower than a free cursor flick.
func stretchDelays(samples []PathSample, factor float64) {
	for i := range samples {
		samples[i].Delay = time.Duration(float64(samples[i].Delay) * factor)
	}
}
