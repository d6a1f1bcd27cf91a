// internal/humanoid/interface.go
package humanoid

import "context"

// Controller defines the high-level interface for human-like pointer control.
type Controller interface {
	// MoveTo moves the pointer to absolute viewport coordinates.
	MoveTo(ctx context.Context, x, y float64, req MovementRequest) error
	// MoveToTarget moves the pointer onto the element matched by selector.
	MoveToTarget(ctx context.Context, selector string, req MovementRequest) error
	// MoveRandomly wanders to a random interior viewport point.
	MoveRandomly(ctx context.Context, req MovementRequest) error
	// DragTo presses at the current position, drags along a humanized path,
	// and releases at the destination.
	DragTo(ctx context.Context, x, y float64, req MovementRequest) error
	// Activate runs the full activation sequence against the target.
	Activate(ctx context.Context, selector string) (*ActivationResult, error)
	// ScrollIntoView scrolls until the target sits inside the visible area.
	ScrollIntoView(ctx context.Context, selector string) error
	// CognitivePause idles like an operator reading or deciding.
	CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error
	// GetStatistics snapshots the session's behavioral state.
	GetStatistics() Statistics
	// Reset re-randomizes fatigue/attention and clears motion history.
	Reset()
	// InvalidateViewport drops the cached viewport after navigation/resize.
	InvalidateViewport()
}

// MovementRequest carries per-move options. The zero value asks for a plain
// humanized move with session defaults.
type MovementRequest struct {
	// TargetWidth is the effective target size for Fitts scaling. Zero means
	// the configured default.
	TargetWidth float64
	// IsApproach marks a deliberate staging move: curvature is halved and
	// overshoot never fires.
	IsApproach bool
	// OvershootProbability overrides the session's base probability.
	OvershootProbability *float64
	// JitterScale scales spatial noise and tremor. Zero means 1.0.
	JitterScale float64
	// NumPoints forces the sample count instead of deriving it from
	// distance. Zero means automatic.
	NumPoints int
}

// withDefaults resolves zero-value fields against the session config.
func (r MovementRequest) withDefaults(cfg Config) MovementRequest {
	if r.TargetWidth <= 0 {
		r.TargetWidth = cfg.DefaultTargetWidth
	}
	if r.JitterScale <= 0 {
		r.JitterScale = 1.0
	}
	return r
}
