// internal/humanoid/types.go
package humanoid

import "time"

// MouseEventType defines the type of mouse event.
// These strings align with standard DOM event types (and common automation protocols).
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
	MouseWheel   MouseEventType = "mouseWheel"
)

// MouseButton defines the mouse button.
type MouseButton string

const (
	ButtonNone   MouseButton = "none"
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// MouseEventData holds the data required to dispatch a mouse event.
// This is an agnostic structure used by the Executor interface.
type MouseEventData struct {
	Type MouseEventType
	X    float64
	Y    float64
	// Button that was pressed or released (relevant for Press/Release events).
	Button MouseButton
	// Number of consecutive clicks.
	ClickCount int
	// Buttons is a bitfield representing the buttons currently pressed (1: Left, 2: Right, 4: Middle).
	// Required for realistic dragging simulation.
	Buttons int64
	// DeltaX and DeltaY are used for MouseWheel events.
	DeltaX float64
	DeltaY float64
}

// Viewport describes the visible page area and the document behind it.
// Coordinates follow CSS pixel conventions.
type Viewport struct {
	Width          float64
	Height         float64
	ScrollX        float64
	ScrollY        float64
	DocumentWidth  float64
	DocumentHeight float64
}

// MaxScrollY returns the largest valid vertical scroll offset.
func (v Viewport) MaxScrollY() float64 {
	m := v.DocumentHeight - v.Height
	if m < 0 {
		return 0
	}
	return m
}

// MaxScrollX returns the largest valid horizontal scroll offset.
func (v Viewport) MaxScrollX() float64 {
	m := v.DocumentWidth - v.Width
	if m < 0 {
		return 0
	}
	return m
}

// TargetRegion is the axis-aligned bounding box of an interaction target,
// in viewport coordinates.
type TargetRegion struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the geometric center of the region.
func (r TargetRegion) Center() Vector2D {
	return Vector2D{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside the region (edges inclusive).
func (r TargetRegion) Contains(p Vector2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// IsZero reports whether the region has no usable area.
func (r TargetRegion) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// PathSample is one step of a planned pointer trajectory: where to move the
// pointer and how long to wait before doing so.
type PathSample struct {
	Pos   Vector2D
	Delay time.Duration
}

// ScrollStep is one step of a planned scroll sequence. Delta is the signed
// scroll amount along a single axis; Delay is the wait before issuing it.
type ScrollStep struct {
	Delta float64
	Delay time.Duration
}

// Statistics is a read-only snapshot of a session's behavioral state,
// suitable for logging or serialization.
type Statistics struct {
	SessionID         string        `json:"session_id"`
	Uptime            time.Duration `json:"uptime"`
	ActionCount       int           `json:"action_count"`
	AttentionSpan     float64       `json:"attention_span"`
	FatigueMultiplier float64       `json:"fatigue_multiplier"`
	TotalMoves        int           `json:"total_moves"`
	TotalScrolls      int           `json:"total_scrolls"`
	TotalActivations  int           `json:"total_activations"`
	TotalAborts       int           `json:"total_aborts"`
	TotalSamples      int           `json:"total_samples"`
	Position          Vector2D      `json:"position"`
	HistoryDepth      int           `json:"history_depth"`
}
