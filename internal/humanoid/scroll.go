// internal/humanoid/scroll.go
package humanoid

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// planScroll produces a one-dimensional scroll plan covering delta scroll
// units. Step count scales logarithmically with distance and stretches under
// fatigue; each step takes an eased, jittered bite of the remaining distance
// so the sequence decelerates into the target. Long scrolls occasionally
// overshoot and reverse.
func (h *Humanoid) planScroll(delta float64) []ScrollStep {
	total := math.Abs(delta)
	if total < 1.0 {
		return nil
	}
	sign := math.Copysign(1.0, delta)
	fm := h.fatigue.fatigueMultiplier

	// A seeded draw decides up front whether this scroll flies past the
	// target; the reverse correction is appended after the main run.
	overshootBy := 0.0
	if total >= h.cfg.ScrollOvershootMinDistance &&
		h.rng.Float64() < clampFloat(h.cfg.ScrollOvershootProbability*fm, 0, 0.9) {
		overshootBy = total * (0.08 + h.rng.Float64()*0.10)
	}

	mainTotal := total + overshootBy
	base := int(math.Round(math.Log2(mainTotal/100.0+1.0) * h.cfg.ScrollStepFactor))
	if base < 1 {
		base = 1
	}
	steps := h.fatigue.applyFatigueCount(base)
	if steps < 1 {
		steps = 1
	}

	out := make([]ScrollStep, 0, steps+4)
	remaining := mainTotal
	for i := 0; i < steps && remaining > 0.5; i++ {
		progress := 0.0
		if steps > 1 {
			progress = float64(i) / float64(steps-1)
		}

		// Early steps take big bites, late steps small ones; fatigue shrinks
		// every bite so the same distance needs more wheel ticks.
		chunk := h.cfg.ScrollChunkBase * (0.55 + 0.45*computeEaseInOutCubic(1.0-progress)) / fm
		jitter := 1.0 + (h.rng.Float64()*2-1)*h.cfg.ScrollJitter
		amount := remaining * clampFloat(chunk*jitter, 0.05, 0.95)
		if i == steps-1 {
			amount = remaining
		}

		out = append(out, ScrollStep{
			Delta: sign * amount,
			Delay: h.scrollDelay(),
		})
		remaining -= amount
	}

	if overshootBy > 0.5 {
		// Reverse correction: a few tighter steps back to the target.
		corrSteps := 2 + h.rng.Intn(3)
		corrRemaining := overshootBy
		for i := 0; i < corrSteps && corrRemaining > 0.5; i++ {
			amount := corrRemaining * (0.4 + h.rng.Float64()*0.3)
			if i == corrSteps-1 {
				amount = corrRemaining
			}
			out = append(out, ScrollStep{
				Delta: -sign * amount,
				Delay: h.scrollDelay(),
			})
			corrRemaining -= amount
		}
	}

	return out
}

// scrollDelay draws one inter-step wait, lengthened by fatigue.
func (h *Humanoid) scrollDelay() time.Duration {
	ms := h.cfg.ScrollDelayMinMs + h.rng.Float64()*(h.cfg.ScrollDelayMaxMs-h.cfg.ScrollDelayMinMs)
	ms = h.fatigue.applyFatigue(ms)
	return time.Duration(ms * float64(time.Millisecond))
}

// playScroll dispatches a scroll plan as wheel events at the current pointer
// position. Failed steps are absorbed like failed moves; the viewport cache
// is dropped afterwards because the scroll offsets it recorded are stale.
func (h *Humanoid) playScroll(ctx context.Context, steps []ScrollStep, horizontal bool) error {
	if len(steps) == 0 {
		return nil
	}
	defer h.geo.Invalidate()

	pos := h.motion.pos
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return ctxErr(err)
		}
		if s.Delay > 0 {
			if err := h.executor.Sleep(ctx, s.Delay); err != nil {
				return ctxErr(err)
			}
		}

		event := MouseEventData{
			Type:   MouseWheel,
			X:      pos.X,
			Y:      pos.Y,
			Button: ButtonNone,
		}
		if horizontal {
			event.DeltaX = s.Delta
		} else {
			event.DeltaY = s.Delta
		}

		if err := h.executor.DispatchMouseEvent(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctxErr(ctx.Err())
			}
			h.logger.Warn("Humanoid: failed to dispatch wheel event; skipping step.", zap.Error(err))
			continue
		}
		h.stats.samples++
	}
	return nil
}

// ScrollIntoView scrolls until the target sits inside the visible area with
// a comfortable buffer. Already-visible targets usually cause no scrolling
// at all, with a small chance of an incidental adjustment tick.
func (h *Humanoid) ScrollIntoView(ctx context.Context, selector string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.scrollIntoViewLocked(ctx, selector)
	return err
}

// scrollIntoViewLocked runs the scroll sequence and reports whether any
// scrolling happened. Callers must hold h.mu.
func (h *Humanoid) scrollIntoViewLocked(ctx context.Context, selector string) (bool, error) {
	region, err := h.geo.TargetRegion(ctx, selector)
	if err != nil {
		return false, fmt.Errorf("humanoid: cannot scroll to '%s': %w", selector, err)
	}

	vp := h.geo.Viewport(ctx)
	h.motion.ensureInit(vp, h.rng)

	if isInsideVisibleArea(region, vp, h.cfg.VisibilityBuffer) {
		if h.rng.Float64() < h.cfg.IncidentalScrollProbability {
			// A human parked near a readable target still nudges the wheel
			// sometimes. Keep it under 20 units so the layout barely moves.
			tick := 8.0 + h.rng.Float64()*10.0
			if h.rng.Float64() < 0.5 {
				tick = -tick
			}
			if err := h.playScroll(ctx, []ScrollStep{{Delta: tick, Delay: h.scrollDelay()}}, false); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	// Vertical first: land the target at a random comfortable height.
	landing := vp.Height * (h.cfg.ScrollLandingMin +
		h.rng.Float64()*(h.cfg.ScrollLandingMax-h.cfg.ScrollLandingMin))
	targetDocY := vp.ScrollY + region.Y + region.Height/2
	desiredY := clampFloat(targetDocY-landing, 0, vp.MaxScrollY())
	if err := h.playScroll(ctx, h.planScroll(desiredY-vp.ScrollY), false); err != nil {
		return false, err
	}

	// Horizontal only when the region pokes out sideways.
	if region.X < h.cfg.VisibilityBuffer || region.X+region.Width > vp.Width-h.cfg.VisibilityBuffer {
		fresh, rerr := h.geo.TargetRegion(ctx, selector)
		if rerr == nil {
			targetDocX := vp.ScrollX + fresh.X + fresh.Width/2
			desiredX := clampFloat(targetDocX-vp.Width/2, 0, vp.MaxScrollX())
			if err := h.playScroll(ctx, h.planScroll(desiredX-vp.ScrollX), true); err != nil {
				return false, err
			}
		}
	}

	if err := h.microAdjustScroll(ctx, selector); err != nil {
		return true, err
	}

	h.stats.scrolls++
	h.recordActions(1)
	return true, nil
}

// microAdjustScroll closes any residual gap after the main sequence with at
// most a few small corrective ticks, each capped in magnitude.
func (h *Humanoid) microAdjustScroll(ctx context.Context, selector string) error {
	for i := 0; i < h.cfg.ScrollMicroAdjustMax; i++ {
		region, err := h.geo.TargetRegion(ctx, selector)
		if err != nil {
			return fmt.Errorf("humanoid: lost '%s' during scroll adjustment: %w", selector, err)
		}
		vp := h.geo.Viewport(ctx)
		if isInsideVisibleArea(region, vp, h.cfg.VisibilityBuffer) {
			return nil
		}

		residual := (region.Y + region.Height/2) - vp.Height/2
		step := clampFloat(residual, -h.cfg.ScrollMicroAdjustCap, h.cfg.ScrollMicroAdjustCap)
		if math.Abs(step) < 1.0 {
			return nil
		}
		if err := h.playScroll(ctx, []ScrollStep{{Delta: step, Delay: h.scrollDelay()}}, false); err != nil {
			return err
		}
	}
	return nil
}
