// internal/humanoid/activation.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Phase identifies a stage of the activation state machine. The phases a run
// actually entered are reported on the result for diagnostics.
type Phase string

const (
	PhaseAwaitActivatable Phase = "await_activatable"
	PhaseAwaitStable      Phase = "await_stable"
	PhaseScrollIntoView   Phase = "scroll_into_view"
	PhaseApproach         Phase = "approach"
	PhaseHover            Phase = "hover"
	PhaseFinalAdjust      Phase = "final_adjust"
	PhaseActivate         Phase = "activate"
	PhaseVerify           Phase = "verify"
	PhaseDrift            Phase = "post_activation_drift"
	PhaseDone             Phase = "done"
)

// ActivationResult reports what an Activate call actually did. It is
// returned even on failure so callers can see how far the run got.
type ActivationResult struct {
	Selector     string        `json:"selector"`
	ClickPoint   Vector2D      `json:"click_point"`
	HoldDuration time.Duration `json:"hold_duration"`
	Scrolled     bool          `json:"scrolled"`
	PageChanged  bool          `json:"page_changed"`
	PhaseTrail   []Phase       `json:"phase_trail"`
	Duration     time.Duration `json:"duration"`
}

// snapshotJSTemplate captures a cheap fingerprint of the target: attribute
// list, rendered length, and page URL. Two differing fingerprints around a
// press suggest the activation had a visible effect.
const snapshotJSTemplate = `((sel) => {
	const node = document.querySelector(sel);
	if (!node) return { present: false, href: location.href };
	const attrs = [];
	for (const a of node.attributes) attrs.push(a.name + '=' + a.value);
	attrs.sort();
	return {
		present: true,
		href: location.href,
		htmlLength: node.outerHTML.length,
		attrs: attrs.join(';')
	};
})(%s)`

// Activate runs the full humanized activation sequence against the target:
// wait until it is activatable and its layout settles, scroll it into view,
// approach, hover, settle onto the click point, press/hold/release, then
// drift. A failure before the release completes aborts with a phase-tagged
// AbortError; once the press/release pair lands the activation counts even
// if the cosmetic tail is cut short.
func (h *Humanoid) Activate(ctx context.Context, selector string) (*ActivationResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	started := time.Now()
	res := &ActivationResult{Selector: selector}
	enter := func(p Phase) { res.PhaseTrail = append(res.PhaseTrail, p) }
	fail := func(p Phase, reason, cause error) (*ActivationResult, error) {
		h.stats.aborts++
		res.Duration = time.Since(started)
		h.logger.Warn("Humanoid: activation aborted.",
			zap.String("selector", selector),
			zap.String("phase", string(p)),
			zap.Error(cause))
		return res, abort(p, reason, cause)
	}

	enter(PhaseAwaitActivatable)
	if err := h.awaitActivatable(ctx, selector); err != nil {
		return fail(PhaseAwaitActivatable, abortReason(err, ErrNotActivatable), err)
	}

	enter(PhaseAwaitStable)
	if err := h.awaitStable(ctx, selector); err != nil {
		return fail(PhaseAwaitStable, abortReason(err, ErrUnstableTarget), err)
	}

	enter(PhaseScrollIntoView)
	scrolled, err := h.scrollIntoViewLocked(ctx, selector)
	if err != nil {
		return fail(PhaseScrollIntoView, abortReason(err, ErrGeometryUnavailable), err)
	}
	res.Scrolled = scrolled

	// Boxes are never trusted across a suspension point; fetch a fresh one
	// now that scrolling has settled.
	region, err := h.geo.TargetRegion(ctx, selector)
	if err != nil {
		return fail(PhaseScrollIntoView, abortReason(err, ErrGeometryUnavailable), err)
	}

	vp := h.geo.Viewport(ctx)
	h.motion.ensureInit(vp, h.rng)
	click := h.clickPoint(region, vp)
	res.ClickPoint = click

	enter(PhaseApproach)
	if err := h.approachTarget(ctx, click, vp); err != nil {
		return fail(PhaseApproach, abortReason(err, ErrDriverCallFailed), err)
	}

	enter(PhaseHover)
	if err := h.idlePause(ctx, h.uniformDuration(h.cfg.HoverMinMs, h.cfg.HoverMaxMs)); err != nil {
		return fail(PhaseHover, abortReason(err, ErrDriverCallFailed), err)
	}

	enter(PhaseFinalAdjust)
	if fresh, ferr := h.geo.fetchRegion(ctx, selector); ferr == nil && !fresh.IsZero() {
		region = fresh
		click = h.clickPoint(region, h.geo.Viewport(ctx))
		res.ClickPoint = click
	}
	adjReq := MovementRequest{
		TargetWidth: math.Min(region.Width, region.Height),
		IsApproach:  true,
		JitterScale: 0.6,
		NumPoints:   h.finalAdjustPoints(),
	}
	if err := h.moveToPoint(ctx, click, adjReq); err != nil {
		return fail(PhaseFinalAdjust, abortReason(err, ErrDriverCallFailed), err)
	}

	enter(PhaseActivate)
	ok, aerr := h.geo.IsActivatable(ctx, selector)
	if aerr != nil || !ok {
		return fail(PhaseActivate, ErrBecameUnactivatable, aerr)
	}

	before := h.snapshotTarget(ctx, selector)

	at := h.motion.pos
	press := MouseEventData{
		Type:       MousePress,
		X:          at.X,
		Y:          at.Y,
		Button:     ButtonLeft,
		ClickCount: 1,
		Buttons:    leftButtonBit,
	}
	if err := h.executor.DispatchMouseEvent(ctx, press); err != nil {
		return fail(PhaseActivate, ErrDriverCallFailed, err)
	}

	res.HoldDuration = h.pressHoldDuration()
	holdErr := h.executor.Sleep(ctx, res.HoldDuration)

	// Once the press landed the release always goes out, even when the hold
	// was cut short; a stuck button is worse than a late event.
	releaseCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		releaseCtx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	release := MouseEventData{
		Type:       MouseRelease,
		X:          at.X,
		Y:          at.Y,
		Button:     ButtonLeft,
		ClickCount: 1,
	}
	if err := h.executor.DispatchMouseEvent(releaseCtx, release); err != nil {
		return fail(PhaseActivate, ErrDriverCallFailed, err)
	}
	if holdErr != nil {
		return fail(PhaseActivate, ErrTimeout, holdErr)
	}

	h.stats.activations++

	enter(PhaseVerify)
	after := h.snapshotTarget(ctx, selector)
	res.PageChanged = before != "" && after != before

	enter(PhaseDrift)
	if err := h.postActivationDrift(ctx, vp); err != nil {
		res.Duration = time.Since(started)
		return res, err
	}

	enter(PhaseDone)
	h.recordActions(2)
	res.Duration = time.Since(started)
	return res, nil
}

// awaitActivatable polls until the target reports activatable, up to the
// configured timeout. The interval is randomized so the polling itself has
// no fixed cadence.
func (h *Humanoid) awaitActivatable(ctx context.Context, selector string) error {
	deadline := time.Now().Add(h.cfg.ActivatableTimeout)
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return ctxErr(err)
		}

		ok, err := h.geo.IsActivatable(ctx, selector)
		if err != nil {
			lastErr = err
		} else if ok {
			return nil
		}

		if time.Now().After(deadline) {
			if lastErr != nil {
				return fmt.Errorf("'%s' not activatable within %s: %w", selector, h.cfg.ActivatableTimeout, lastErr)
			}
			return fmt.Errorf("'%s' not activatable within %s", selector, h.cfg.ActivatableTimeout)
		}
		if err := h.executor.Sleep(ctx, h.uniformDuration(h.cfg.ActivatablePollMinMs, h.cfg.ActivatablePollMaxMs)); err != nil {
			return ctxErr(err)
		}
	}
}

// awaitStable waits for the target's box to stop moving: a run of consecutive
// reads whose position and size deltas all sit below the tolerance. When the
// window expires with at least one good read, the last box is accepted; with
// none, the target is treated as unstable.
func (h *Humanoid) awaitStable(ctx context.Context, selector string) error {
	deadline := time.Now().Add(h.cfg.StabilityTimeout)
	var last TargetRegion
	reads, streak := 0, 0

	for {
		if err := ctx.Err(); err != nil {
			return ctxErr(err)
		}

		region, err := h.geo.fetchRegion(ctx, selector)
		if err == nil && !region.IsZero() {
			if reads > 0 && regionSettled(region, last, h.cfg.StabilityTolerance) {
				streak++
			} else {
				streak = 1
			}
			reads++
			last = region
			if streak >= h.cfg.StabilityReads {
				return nil
			}
		}

		if time.Now().After(deadline) {
			if reads > 0 {
				// Accept the last box; a slow animation should not block the
				// click forever.
				return nil
			}
			return fmt.Errorf("no readable geometry for '%s' within %s", selector, h.cfg.StabilityTimeout)
		}
		if err := h.executor.Sleep(ctx, h.uniformDuration(h.cfg.StabilityPollMinMs, h.cfg.StabilityPollMaxMs)); err != nil {
			return ctxErr(err)
		}
	}
}

// regionSettled reports whether two consecutive reads agree on position and
// size within tol.
func regionSettled(a, b TargetRegion, tol float64) bool {
	return math.Abs(a.X-b.X) < tol &&
		math.Abs(a.Y-b.Y) < tol &&
		math.Abs(a.Width-b.Width) < tol &&
		math.Abs(a.Height-b.Height) < tol
}

// approachTarget stages the pointer short of the click point, backing off
// along the reverse travel direction with a little sideways scatter. When
// the pointer already sits inside staging range the move is skipped.
func (h *Humanoid) approachTarget(ctx context.Context, click Vector2D, vp Viewport) error {
	span := h.cfg.ApproachDistanceMax - h.cfg.ApproachDistanceMin
	back := h.cfg.ApproachDistanceMin + h.rng.Float64()*span

	dir := click.Sub(h.motion.pos)
	if dir.Mag() < back {
		return nil
	}
	dir = dir.Normalize()

	staging := click.Sub(dir.Mul(back)).
		Add(dir.Perp().Mul(h.rng.NormFloat64() * back * 0.2)).
		ClampTo(vp)

	return h.moveToPoint(ctx, staging, MovementRequest{TargetWidth: back * 2, IsApproach: true})
}

// postActivationDrift plays one of three behaviors after a successful press:
// stay put briefly, re-settle with a tiny jitter move, or wander a moderate
// distance away.
func (h *Humanoid) postActivationDrift(ctx context.Context, vp Viewport) error {
	draw := h.rng.Float64()
	switch {
	case draw < h.cfg.DriftStayWeight:
		return h.idlePause(ctx, h.uniformDuration(80, 260))
	case draw < h.cfg.DriftStayWeight+h.cfg.DriftJitterWeight:
		dest := h.motion.pos.Add(Vector2D{
			X: h.rng.NormFloat64() * 4.0,
			Y: h.rng.NormFloat64() * 4.0,
		}).ClampTo(vp)
		return h.moveToPoint(ctx, dest, MovementRequest{IsApproach: true, NumPoints: 3})
	default:
		away := 80.0 + h.rng.Float64()*180.0
		angle := h.rng.Float64() * 2 * math.Pi
		dest := h.motion.pos.Add(Vector2D{
			X: math.Cos(angle) * away,
			Y: math.Sin(angle) * away,
		}).ClampTo(vp)
		return h.moveToPoint(ctx, dest, MovementRequest{IsApproach: true})
	}
}

// clickPoint picks a plausible activation point inside the region: centered,
// Gaussian-spread, pushed off-center by a session-fixed bias that grows with
// fatigue, and clamped to the region's interior.
func (h *Humanoid) clickPoint(region TargetRegion, vp Viewport) Vector2D {
	fm := h.fatigue.fatigueMultiplier
	center := region.Center()

	p := Vector2D{
		X: center.X + h.rng.NormFloat64()*(region.Width/h.cfg.ClickSpreadDivisor)*fm,
		Y: center.Y + h.rng.NormFloat64()*(region.Height/h.cfg.ClickSpreadDivisor)*fm,
	}

	// Tired operators land consistently off-center in a per-session direction.
	minDim := math.Min(region.Width, region.Height)
	p = p.Add(h.clickBiasDir.Mul((fm - 1.0) * h.cfg.ClickBiasFactor * minDim))

	marginX := math.Min(h.cfg.ClickInteriorMargin, region.Width/4)
	marginY := math.Min(h.cfg.ClickInteriorMargin, region.Height/4)
	p.X = clampFloat(p.X, region.X+marginX, region.X+region.Width-marginX)
	p.Y = clampFloat(p.Y, region.Y+marginY, region.Y+region.Height-marginY)
	return p.ClampTo(vp)
}

// pressHoldDuration draws the press-to-release hold time.
func (h *Humanoid) pressHoldDuration() time.Duration {
	ms := h.cfg.PressHoldMean + h.rng.NormFloat64()*h.cfg.PressHoldStdDevMs
	ms = math.Max(h.cfg.PressHoldFloorMs, ms)
	return time.Duration(ms * float64(time.Millisecond))
}

// finalAdjustPoints draws the sample count for the short settle move.
func (h *Humanoid) finalAdjustPoints() int {
	span := h.cfg.FinalAdjustMaxPoints - h.cfg.FinalAdjustMinPoints
	if span <= 0 {
		return h.cfg.FinalAdjustMinPoints
	}
	return h.cfg.FinalAdjustMinPoints + h.rng.Intn(span+1)
}

// uniformDuration draws a uniform duration between two millisecond bounds.
func (h *Humanoid) uniformDuration(minMs, maxMs float64) time.Duration {
	ms := minMs
	if maxMs > minMs {
		ms += h.rng.Float64() * (maxMs - minMs)
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// snapshotTarget returns the raw fingerprint payload, or "" when the page
// cannot be read. Diagnostic only; failures are absorbed.
func (h *Humanoid) snapshotTarget(ctx context.Context, selector string) string {
	script := fmt.Sprintf(snapshotJSTemplate, jsonEncode(selector))
	raw, err := h.executor.EvaluateInPage(ctx, script)
	if err != nil {
		h.logger.Debug("Humanoid: target snapshot failed.", zap.Error(err))
		return ""
	}
	return string(raw)
}

// abortReason picks the sentinel a phase failure surfaces: interruptions
// always win, otherwise the phase's own failure mode.
func abortReason(err, fallback error) error {
	if errors.Is(err, ErrTimeout) {
		return ErrTimeout
	}
	return fallback
}
