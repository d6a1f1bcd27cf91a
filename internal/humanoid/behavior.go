// internal/humanoid/behavior.go
package humanoid

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CognitivePause simulates the time an operator takes to read, decide, or
// re-orient before the next action. Fatigue stretches the pause; longer
// pauses may include faint idle drift instead of a perfectly frozen pointer.
func (h *Humanoid) CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.motion.ensureInit(h.geo.Viewport(ctx), h.rng)
	if err := h.idlePause(ctx, h.pauseDuration(meanMs, stdDevMs)); err != nil {
		return err
	}
	h.recordActions(1)
	return nil
}

// pauseDuration draws a fatigue-scaled pause length.
func (h *Humanoid) pauseDuration(meanMs, stdDevMs float64) time.Duration {
	ms := h.fatigue.applyFatigue(meanMs + h.rng.NormFloat64()*stdDevMs)
	ms = clampFloat(ms, 15, 6000)
	return time.Duration(ms * float64(time.Millisecond))
}

// idlePause sleeps for d. Pauses past ~120ms sometimes idle the pointer with
// sub-pixel Perlin wobble, the way a resting hand never holds perfectly
// still. Callers must hold h.mu.
func (h *Humanoid) idlePause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if d < 120*time.Millisecond || h.rng.Float64() < 0.4 {
		if err := h.executor.Sleep(ctx, d); err != nil {
			return ctxErr(err)
		}
		return nil
	}

	steps := int(d / (45 * time.Millisecond))
	if steps < 2 {
		steps = 2
	}
	if steps > 8 {
		steps = 8
	}
	slice := d / time.Duration(steps)
	vp := h.geo.Viewport(ctx)
	anchor := h.motion.pos

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return ctxErr(err)
		}
		if err := h.executor.Sleep(ctx, slice); err != nil {
			return ctxErr(err)
		}

		h.noiseTime += 0.031
		wobble := Vector2D{
			X: anchor.X + h.noiseX.Noise1D(h.noiseTime)*0.8 + h.rng.NormFloat64()*0.3,
			Y: anchor.Y + h.noiseY.Noise1D(h.noiseTime)*0.8 + h.rng.NormFloat64()*0.3,
		}.ClampTo(vp)

		event := MouseEventData{Type: MouseMove, X: wobble.X, Y: wobble.Y, Button: ButtonNone}
		if err := h.executor.DispatchMouseEvent(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctxErr(ctx.Err())
			}
			h.logger.Debug("Humanoid: idle drift dispatch failed; holding still.", zap.Error(err))
			continue
		}
		h.motion.pos = wobble
		h.stats.samples++
	}
	return nil
}
