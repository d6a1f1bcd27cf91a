// internal/humanoid/motion.go
package humanoid

import (
	"math/rand"
	"time"
)

// historyDepth bounds the recent-position FIFO so long sessions don't grow
// without limit.
const historyDepth = 128

type positionRecord struct {
	Pos Vector2D
	At  time.Time
}

// motionState tracks where the pointer currently is and where it has been.
// The position is lazily initialized on first use: a random interior point,
// deliberately not the viewport center.
type motionState struct {
	pos          Vector2D
	initialized  bool
	history      []positionRecord
	lastDistance float64
}

func newMotionState() *motionState {
	return &motionState{history: make([]positionRecord, 0, historyDepth)}
}

// ensureInit returns the current position, initializing it on first call to
// a random point in the middle 80% of the viewport.
func (m *motionState) ensureInit(vp Viewport, rng *rand.Rand) Vector2D {
	if m.initialized {
		return m.pos
	}
	p := Vector2D{
		X: vp.Width * (0.1 + rng.Float64()*0.8),
		Y: vp.Height * (0.1 + rng.Float64()*0.8),
	}
	center := Vector2D{X: vp.Width / 2, Y: vp.Height / 2}
	if p.Dist(center) < 1.0 {
		p.X += 15
		p.Y += 9
	}
	m.pos = p.ClampTo(vp)
	m.initialized = true
	m.push(m.pos)
	return m.pos
}

// settle finalizes a completed move that started at from and ended at the
// current position.
func (m *motionState) settle(from Vector2D) {
	m.lastDistance = from.Dist(m.pos)
	m.initialized = true
	m.push(m.pos)
}

func (m *motionState) push(p Vector2D) {
	if len(m.history) >= historyDepth {
		copy(m.history, m.history[1:])
		m.history = m.history[:historyDepth-1]
	}
	m.history = append(m.history, positionRecord{Pos: p, At: time.Now()})
}

func (m *motionState) depth() int {
	return len(m.history)
}
