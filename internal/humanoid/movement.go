// internal/humanoid/movement.go
package humanoid

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// playPath walks a planned trajectory through the executor: sleep the
// sample's delay, dispatch the move, track the pointer. A failed move
// dispatch is logged and skipped so one dropped event cannot corrupt the
// whole gesture; only context cancellation stops playback.
func (h *Humanoid) playPath(ctx context.Context, samples []PathSample, buttons int64) error {
	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return ctxErr(err)
		}
		if s.Delay > 0 {
			if err := h.executor.Sleep(ctx, s.Delay); err != nil {
				return ctxErr(err)
			}
		}

		event := MouseEventData{
			Type:   MouseMove,
			X:      s.Pos.X,
			Y:      s.Pos.Y,
			Button: ButtonNone,
		}
		if buttons > 0 {
			event.Buttons = buttons
		}

		if err := h.executor.DispatchMouseEvent(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctxErr(ctx.Err())
			}
			h.logger.Warn("Humanoid: failed to dispatch pointer move; skipping sample.", zap.Error(err))
			continue
		}

		h.motion.pos = s.Pos
		h.stats.samples++
	}
	return nil
}

// moveToPoint plans and plays one humanized move. Callers must hold h.mu.
func (h *Humanoid) moveToPoint(ctx context.Context, dest Vector2D, req MovementRequest) error {
	vp := h.geo.Viewport(ctx)
	start := h.motion.ensureInit(vp, h.rng)

	plan := h.planTrajectory(start, dest, vp, req)
	if err := h.playPath(ctx, plan.samples, 0); err != nil {
		return err
	}

	h.motion.settle(start)
	h.stats.moves++
	h.recordActions(1)
	return nil
}

// MoveTo moves the pointer to absolute viewport coordinates along a
// humanized trajectory. Destinations outside the viewport are clamped.
func (h *Humanoid) MoveTo(ctx context.Context, x, y float64, req MovementRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moveToPoint(ctx, Vector2D{X: x, Y: y}, req)
}

// MoveToTarget resolves the selector and moves onto a plausible point inside
// its region. The effective Fitts width is the region's smaller dimension.
func (h *Humanoid) MoveToTarget(ctx context.Context, selector string, req MovementRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	region, err := h.geo.TargetRegion(ctx, selector)
	if err != nil {
		return fmt.Errorf("humanoid: failed to locate target '%s': %w", selector, err)
	}

	vp := h.geo.Viewport(ctx)
	if req.TargetWidth <= 0 {
		req.TargetWidth = math.Min(region.Width, region.Height)
	}
	return h.moveToPoint(ctx, h.clickPoint(region, vp), req)
}

// MoveRandomly wanders to a random point in the middle of the viewport,
// simulating an operator idly repositioning the pointer.
func (h *Humanoid) MoveRandomly(ctx context.Context, req MovementRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	vp := h.geo.Viewport(ctx)
	dest := Vector2D{
		X: vp.Width * (0.08 + h.rng.Float64()*0.84),
		Y: vp.Height * (0.08 + h.rng.Float64()*0.84),
	}
	return h.moveToPoint(ctx, dest, req)
}

// recordActions registers n completed actions against the fatigue model and
// handles the long-session auto-reset. Callers must hold h.mu.
func (h *Humanoid) recordActions(n int) {
	for i := 0; i < n; i++ {
		h.fatigue.recordAction()
	}
	if h.fatigue.autoResetIfExhausted() {
		h.logger.Info("Humanoid: fatigue auto-reset after extended session.",
			zap.String("session", h.sessionID))
	}
}
