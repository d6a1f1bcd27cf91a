// internal/humanoid/humanoid.go
package humanoid

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sessionStats accumulates per-session counters behind the engine mutex.
type sessionStats struct {
	moves       int
	scrolls     int
	activations int
	aborts      int
	samples     int
}

// Humanoid is the humanized pointer control engine. One instance models one
// operator for the lifetime of a browser session: a persona sampled at
// construction, a fatigue/attention state that degrades with use, and a
// motion state that ties every gesture to the one before it.
//
// All public operations serialize on one mutex. The engine is a single
// logical actor; callers from multiple goroutines simply queue.
type Humanoid struct {
	cfg      Config
	logger   *zap.Logger
	executor Executor
	geo      *geometryProvider

	mu      sync.Mutex
	motion  *motionState
	fatigue *fatigueState
	stats   sessionStats

	rng       *rand.Rand
	noiseX    *perlin.Perlin
	noiseY    *perlin.Perlin
	noiseTime float64
	pink      *pinkNoise

	// clickBiasDir is the session-fixed direction fatigue pushes clicks
	// toward, trending downward the way real misclicks do.
	clickBiasDir Vector2D

	sessionID string
	startedAt time.Time
}

var _ Controller = (*Humanoid)(nil)

// New builds an engine from the given configuration. A nil logger is
// replaced with a no-op one. When cfg.Rng is nil the session is seeded from
// the clock; injecting a seeded Rng makes the whole session reproducible,
// including the Perlin fields, whose seeds derive from it.
func New(cfg Config, logger *zap.Logger, exec Executor) *Humanoid {
	if logger == nil {
		logger = zap.NewNop()
	}

	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	cfg.FinalizeSessionPersona(rng)
	cfg.NormalizeDriftWeights()

	// Standard Perlin parameters; Y gets an offset seed so the axes drift
	// independently.
	alpha, beta, n := 2.0, 2.0, int32(3)
	seed := rng.Int63()

	// Unit direction pointing into the lower half-plane.
	angle := math.Pi/6 + rng.Float64()*(2*math.Pi/3)
	bias := Vector2D{X: math.Cos(angle), Y: math.Sin(angle)}

	h := &Humanoid{
		cfg:          cfg,
		logger:       logger,
		executor:     exec,
		geo:          newGeometryProvider(cfg, exec, logger),
		motion:       newMotionState(),
		fatigue:      newFatigueState(cfg, rng),
		rng:          rng,
		noiseX:       perlin.NewPerlin(alpha, beta, n, seed),
		noiseY:       perlin.NewPerlin(alpha, beta, n, seed+1),
		pink:         newPinkNoise(rng, 12),
		clickBiasDir: bias,
		sessionID:    uuid.NewString(),
		startedAt:    time.Now(),
	}

	h.logger.Debug("Humanoid: session initialized.",
		zap.String("session", h.sessionID),
		zap.Float64("point_density", cfg.PointDensity),
		zap.Float64("overshoot_probability", cfg.OvershootProbability),
		zap.Float64("press_hold_mean_ms", cfg.PressHoldMean))
	return h
}

// NewTestHumanoid builds a deterministic engine for tests: default config,
// fixed seed, no-op logger.
func NewTestHumanoid(exec Executor, seed int64) *Humanoid {
	cfg := DefaultConfig()
	cfg.Rng = rand.New(rand.NewSource(seed))
	return New(cfg, zap.NewNop(), exec)
}

// GetStatistics snapshots the session's behavioral state.
func (h *Humanoid) GetStatistics() Statistics {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Statistics{
		SessionID:         h.sessionID,
		Uptime:            time.Since(h.startedAt),
		ActionCount:       h.fatigue.actionCount,
		AttentionSpan:     h.fatigue.attentionSpan,
		FatigueMultiplier: h.fatigue.fatigueMultiplier,
		TotalMoves:        h.stats.moves,
		TotalScrolls:      h.stats.scrolls,
		TotalActivations:  h.stats.activations,
		TotalAborts:       h.stats.aborts,
		TotalSamples:      h.stats.samples,
		Position:          h.motion.pos,
		HistoryDepth:      h.motion.depth(),
	}
}

// Reset re-randomizes fatigue and attention and clears motion history, as if
// the operator took a long break. Cumulative totals are kept.
func (h *Humanoid) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fatigue.reset()
	h.motion = newMotionState()
	h.logger.Debug("Humanoid: session state reset.", zap.String("session", h.sessionID))
}

// InvalidateViewport drops the cached viewport. Call after navigation or
// window resize; safe from any goroutine, including driver event listeners,
// while an operation is in flight.
func (h *Humanoid) InvalidateViewport() {
	h.geo.Invalidate()
}
