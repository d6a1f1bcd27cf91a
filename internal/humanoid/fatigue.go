// internal/humanoid/fatigue.go
package humanoid

import (
	"math"
	"math/rand"
)

// fatigueState models how a session's motor precision and pacing degrade as
// actions accumulate. A single scalar, fatigueMultiplier, drives every
// degradation in the engine (point counts, delays, noise amplitude, click
// spread) so the effects stay coherent with each other.
type fatigueState struct {
	actionCount       int
	attentionSpan     float64
	fatigueMultiplier float64

	actionThreshold  int
	slope            float64
	cap              float64
	attentionFloor   float64
	attentionCap     float64
	initMin          float64
	initMax          float64
	decayPerAction   float64
	recoveryInterval int
	recoveryBump     float64
	autoResetAt      int

	rng *rand.Rand
}

func newFatigueState(cfg Config, rng *rand.Rand) *fatigueState {
	f := &fatigueState{
		actionThreshold:  cfg.FatigueActionThreshold,
		slope:            cfg.FatigueSlope,
		cap:              cfg.FatigueCap,
		attentionFloor:   cfg.AttentionFloor,
		attentionCap:     cfg.AttentionCap,
		initMin:          cfg.AttentionInitMin,
		initMax:          cfg.AttentionInitMax,
		decayPerAction:   cfg.AttentionDecayPerAction,
		recoveryInterval: cfg.AttentionRecoveryInterval,
		recoveryBump:     cfg.AttentionRecoveryBump,
		autoResetAt:      cfg.AutoResetThreshold,
		rng:              rng,
	}
	f.reset()
	return f
}

// reset re-randomizes the state to a fresh session persona.
func (f *fatigueState) reset() {
	f.actionCount = 0
	f.fatigueMultiplier = 1.0
	span := f.initMin + f.rng.Float64()*(f.initMax-f.initMin)
	f.attentionSpan = clampFloat(span, f.attentionFloor, f.attentionCap)
}

// recordAction registers one completed spatial or temporal action: attention
// decays a step toward the floor, periodic partial recovery bumps it back up,
// and the fatigue multiplier is recomputed.
func (f *fatigueState) recordAction() {
	f.actionCount++

	f.attentionSpan = math.Max(f.attentionFloor, f.attentionSpan-f.decayPerAction)
	if f.recoveryInterval > 0 && f.actionCount%f.recoveryInterval == 0 {
		f.attentionSpan = math.Min(f.attentionCap, f.attentionSpan+f.recoveryBump)
	}

	f.recompute()
}

// recompute derives the multiplier from the action count past the threshold
// plus the current attention deficit. Monotone in actionCount between
// recovery bumps, never below 1, capped.
func (f *fatigueState) recompute() {
	m := 1.0
	if f.actionCount > f.actionThreshold {
		m += float64(f.actionCount-f.actionThreshold) * f.slope
	}
	m += (f.attentionCap - f.attentionSpan) * 0.5
	f.fatigueMultiplier = clampFloat(m, 1.0, f.cap)
}

// applyFatigue scales a base quantity by the current multiplier.
func (f *fatigueState) applyFatigue(base float64) float64 {
	return base * f.fatigueMultiplier
}

// applyFatigueCount scales an integer quantity (point or step counts).
func (f *fatigueState) applyFatigueCount(n int) int {
	return int(math.Round(f.applyFatigue(float64(n))))
}

// autoResetIfExhausted simulates the operator taking a break once the session
// has run very long. Returns true when a reset happened.
func (f *fatigueState) autoResetIfExhausted() bool {
	if f.autoResetAt <= 0 || f.actionCount < f.autoResetAt {
		return false
	}
	f.reset()
	return true
}
