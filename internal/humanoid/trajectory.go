// internal/humanoid/trajectory.go
package humanoid

import (
	"math"
	"time"
)

// computeEaseInOutCubic provides a smooth acceleration and deceleration profile for movement.
func computeEaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// bezier is a cubic Bezier segment.
type bezier struct {
	p0, p1, p2, p3 Vector2D
}

// at evaluates the curve at t in [0, 1].
func (b bezier) at(t float64) Vector2D {
	omt := 1.0 - t
	omt2 := omt * omt
	omt3 := omt2 * omt
	t2 := t * t
	t3 := t2 * t
	return b.p0.Mul(omt3).
		Add(b.p1.Mul(3 * omt2 * t)).
		Add(b.p2.Mul(3 * omt * t2)).
		Add(b.p3.Mul(t3))
}

// trajectoryPlan is the output of the generator: an ordered sample sequence
// plus overshoot diagnostics. Planning is pure computation; playback happens
// separately through the executor.
type trajectoryPlan struct {
	samples     []PathSample
	overshot    bool
	overshootAt int
}

// fittsPointCount derives the sample count from the move's index of
// difficulty, then lets fatigue lengthen it.
func (h *Humanoid) fittsPointCount(distance, width float64) int {
	if width <= 0 {
		width = h.cfg.DefaultTargetWidth
	}
	id := math.Log2(1.0 + distance/width)
	base := int(math.Round(h.cfg.PointDensity * id * h.cfg.ComplexityFactor))
	if base < h.cfg.MinPoints {
		base = h.cfg.MinPoints
	}
	return h.fatigue.applyFatigueCount(base)
}

// buildCurve constructs the segment's Bezier. Control points sit at random
// fractions along the direct path, displaced perpendicularly by a fraction
// of the distance with a single bow sign per segment.
func (h *Humanoid) buildCurve(start, end Vector2D, curvatureScale float64) bezier {
	mainVec := end.Sub(start)
	dist := mainVec.Mag()
	dir := mainVec.Normalize()
	perp := dir.Perp()

	deviation := dist * (h.cfg.CurveDeviationMin +
		h.rng.Float64()*(h.cfg.CurveDeviationMax-h.cfg.CurveDeviationMin)) * curvatureScale
	if h.rng.Float64() < 0.5 {
		deviation = -deviation
	}

	c1 := h.cfg.ControlPoint1Min + h.rng.Float64()*(h.cfg.ControlPoint1Max-h.cfg.ControlPoint1Min)
	c2 := h.cfg.ControlPoint2Min + h.rng.Float64()*(h.cfg.ControlPoint2Max-h.cfg.ControlPoint2Min)

	// Uneven displacement of the two control points keeps arcs asymmetric.
	p1 := start.Add(dir.Mul(dist * c1)).Add(perp.Mul(deviation * (0.6 + h.rng.Float64()*0.4)))
	p2 := start.Add(dir.Mul(dist * c2)).Add(perp.Mul(deviation * (0.6 + h.rng.Float64()*0.4)))

	return bezier{p0: start, p1: p1, p2: p2, p3: end}
}

// sampleDelay draws one inter-sample delay: a mixture of typical, fast and
// slow polling intervals, shaped by movement phase (acceleration third runs
// hot, precision third runs slow), correlated pink-noise variation, and the
// session's fatigue multiplier.
func (h *Humanoid) sampleDelay(progress float64) time.Duration {
	var baseMs float64
	r := h.rng.Float64()
	switch {
	case r < h.cfg.SampleDelayFastProb:
		baseMs = h.cfg.SampleDelayFastMs
	case r < h.cfg.SampleDelayFastProb+h.cfg.SampleDelaySlowProb:
		baseMs = h.cfg.SampleDelaySlowMs
	default:
		baseMs = h.cfg.SampleDelayTypicalMs
	}

	phase := 1.0
	if progress < 1.0/3.0 {
		phase = h.cfg.AccelPhaseFactor
	} else if progress > 2.0/3.0 {
		phase = h.cfg.PrecisionPhaseFactor
	}

	ms := baseMs * phase
	ms += h.rng.NormFloat64() * h.cfg.SampleDelayNoiseMs
	ms *= 1.0 + h.pink.next()*h.cfg.PinkNoiseDelayFactor
	ms = h.fatigue.applyFatigue(ms)
	ms = clampFloat(ms, h.cfg.SampleDelayMinMs, h.cfg.SampleDelayMaxMs)

	return time.Duration(ms * float64(time.Millisecond))
}

// segmentParams shape one planned segment.
type segmentParams struct {
	numPoints      int
	jitterScale    float64
	curvatureScale float64
	allowHesitate  bool
}

// planSegment emits the samples for one continuous motion from start to end.
// Every sample is clamped to the viewport; the last sample is exactly end.
func (h *Humanoid) planSegment(start, end Vector2D, vp Viewport, p segmentParams) []PathSample {
	n := p.numPoints
	if n < 2 {
		n = 2
	}

	curve := h.buildCurve(start, end, p.curvatureScale)
	tremorPhase := h.rng.Float64() * 2 * math.Pi

	// Attention deficit in [0, 1]: 0 fully attentive, 1 at the floor.
	span := h.cfg.AttentionCap - h.cfg.AttentionFloor
	deficit := 0.0
	if span > 1e-9 {
		deficit = clampFloat((h.cfg.AttentionCap-h.fatigue.attentionSpan)/span, 0, 1)
	}
	lapseProb := h.cfg.LapseProbabilityScale * deficit * 0.1

	// Long moves occasionally stall mid-path while the operator re-aims.
	hesitate := false
	hesitateAt := 0.0
	if p.allowHesitate && start.Dist(end) >= h.cfg.HesitationMinDistance &&
		h.rng.Float64() < h.cfg.HesitationProbability {
		hesitate = true
		hesitateAt = 0.30 + h.rng.Float64()*0.40
	}

	// Destination drift wanders off mid-path and cancels by the final sample.
	var drift Vector2D
	driftActive := h.cfg.DestinationDrift && n >= 8
	if driftActive {
		drift = Vector2D{
			X: h.rng.NormFloat64() * h.cfg.DriftMagnitude,
			Y: h.rng.NormFloat64() * h.cfg.DriftMagnitude,
		}
	}

	fm := h.fatigue.fatigueMultiplier
	samples := make([]PathSample, 0, n)
	prevPos := start
	prevEased := 0.0

	for i := 0; i < n; i++ {
		tRaw := float64(i) / float64(n-1)

		// Progress perturbations: uniform jitter, sinusoidal tremor, rare
		// attention lapses, and the hesitation window on long moves.
		t := tRaw + (h.rng.Float64()*2-1)*h.cfg.ProgressJitter/float64(n)
		t = clampFloat(t, 0, 1)
		eased := computeEaseInOutCubic(t)
		eased += h.cfg.TremorAmplitude * p.jitterScale * math.Sin(2*math.Pi*h.cfg.TremorFrequency*tRaw+tremorPhase)
		if lapseProb > 0 && h.rng.Float64() < lapseProb {
			eased += h.rng.NormFloat64() * 0.025
		}
		if hesitate && math.Abs(tRaw-hesitateAt) < 0.08 {
			eased = prevEased + (eased-prevEased)*h.cfg.HesitationHoldFactor
		}
		eased = clampFloat(eased, 0, 1)

		pos := curve.at(eased)

		// Low-frequency coordinated drift via Perlin noise.
		h.noiseTime += 0.013
		pos = pos.Add(Vector2D{
			X: h.noiseX.Noise1D(h.noiseTime) * h.cfg.PerlinAmplitude * p.jitterScale,
			Y: h.noiseY.Noise1D(h.noiseTime) * h.cfg.PerlinAmplitude * p.jitterScale,
		})

		// Gaussian spatial noise that tightens as the target gets close.
		distRemaining := pos.Dist(end)
		sigma := math.Min(h.cfg.SpatialNoiseCap, distRemaining/h.cfg.SpatialNoiseDenominator) * fm * p.jitterScale
		pos.X += h.rng.NormFloat64() * sigma
		pos.Y += h.rng.NormFloat64() * sigma

		// Rare attention slips push a sample visibly off the curve.
		if deficit > 0 && h.rng.Float64() < h.cfg.AttentionErrorProbability*deficit {
			pos.X += h.rng.NormFloat64() * h.cfg.AttentionErrorStdDev
			pos.Y += h.rng.NormFloat64() * h.cfg.AttentionErrorStdDev
		}

		// Occasionally rotate the inter-sample delta a little.
		if i > 0 && h.rng.Float64() < h.cfg.DirectionPerturbProbability {
			delta := pos.Sub(prevPos)
			pos = prevPos.Add(delta.Rotate(h.rng.NormFloat64() * h.cfg.DirectionPerturbStdDev))
		}

		if driftActive && tRaw > 0.5 {
			w := 1.0 - math.Abs(tRaw-0.75)/0.25
			if w > 0 {
				pos = pos.Add(drift.Mul(w))
			}
		}

		if i == n-1 {
			pos = end
		}
		pos = pos.ClampTo(vp)

		samples = append(samples, PathSample{Pos: pos, Delay: h.sampleDelay(tRaw)})
		prevPos = pos
		prevEased = eased
	}

	return samples
}

// planTrajectory produces the full movement plan from start to end,
// including the optional two-phase overshoot. The destination is clamped to
// the viewport before planning, and the final sample always lands on it
// exactly.
func (h *Humanoid) planTrajectory(start, end Vector2D, vp Viewport, req MovementRequest) trajectoryPlan {
	req = req.withDefaults(h.cfg)
	end = end.ClampTo(vp)
	dist := start.Dist(end)

	if dist < 0.5 {
		return trajectoryPlan{samples: []PathSample{{Pos: end, Delay: h.sampleDelay(1.0)}}}
	}

	n := req.NumPoints
	if n <= 0 {
		n = h.fittsPointCount(dist, req.TargetWidth)
	}

	curvature := 1.0
	if req.IsApproach {
		curvature = h.cfg.ApproachCurvatureScale
	}

	params := segmentParams{
		numPoints:      n,
		jitterScale:    req.JitterScale,
		curvatureScale: curvature,
		allowHesitate:  !req.IsApproach,
	}

	if !h.shouldOvershoot(dist, req) {
		return trajectoryPlan{samples: h.planSegment(start, end, vp, params)}
	}

	// Two-phase overshoot: fly past the target, then a short, tighter
	// corrective hop back. The correction never overshoots again.
	dir := end.Sub(start).Normalize()
	magnitude := req.TargetWidth * (h.cfg.OvershootMagnitudeMin +
		h.rng.Float64()*(h.cfg.OvershootMagnitudeMax-h.cfg.OvershootMagnitudeMin))
	apex := end.Add(dir.Mul(magnitude))
	if nearViewportEdge(apex, vp, h.cfg.ViewportEdgeMargin) {
		magnitude /= 2
		apex = end.Add(dir.Mul(magnitude))
	}
	apex = apex.ClampTo(vp)

	primary := h.planSegment(start, apex, vp, params)

	corrN := n / 4
	if corrN < 4 {
		corrN = 4
	}
	correction := h.planSegment(apex, end, vp, segmentParams{
		numPoints:      corrN,
		jitterScale:    req.JitterScale * h.cfg.CorrectionJitterScale,
		curvatureScale: curvature * 0.5,
	})

	return trajectoryPlan{
		samples:     append(primary, correction...),
		overshot:    true,
		overshootAt: len(primary) - 1,
	}
}

// shouldOvershoot gates the overshoot draw: approach moves never overshoot,
// short moves never overshoot, fatigue raises the odds and high attention
// lowers them.
func (h *Humanoid) shouldOvershoot(dist float64, req MovementRequest) bool {
	if req.IsApproach || dist < h.cfg.OvershootMinDistance {
		return false
	}
	p := h.cfg.OvershootProbability
	if req.OvershootProbability != nil {
		p = *req.OvershootProbability
	}
	p *= h.fatigue.fatigueMultiplier
	p *= 1.0 + (h.cfg.AttentionCap - h.fatigue.attentionSpan)
	return h.rng.Float64() < clampFloat(p, 0, 0.95)
}

func nearViewportEdge(p Vector2D, vp Viewport, margin float64) bool {
	return p.X < margin || p.Y < margin ||
		p.X > vp.Width-1-margin || p.Y > vp.Height-1-margin
}
