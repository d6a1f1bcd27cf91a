// internal/humanoid/mock_test.go
package humanoid

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// fakePage is the document the mock executor serves: viewport metrics,
// scroll offsets, and selectable regions held in document coordinates.
type fakePage struct {
	width, height       float64
	docWidth, docHeight float64
	scrollX, scrollY    float64
	regions             map[string]TargetRegion
}

// mockExecutor implements Executor against an in-memory page. It records
// every dispatched event and sleep instead of talking to a browser, and by
// default wheel events actually move the fake page so scroll sequences
// converge the way they would against a real document.
type mockExecutor struct {
	mu sync.Mutex

	page        fakePage
	applyScroll bool

	events []MouseEventData
	sleeps []time.Duration

	// Failure injection.
	dispatchErr     error
	failDispatchAt  int   // fail dispatches numbered >= this (1-based); 0 disables
	failPress       error // returned for mousePressed dispatches
	failRelease     error // returned for mouseReleased dispatches
	regionEvalErr   error // returned for every region fetch
	regionFailures  int   // fail this many region fetches, then recover
	viewportEvalErr error

	// Sequenced answers.
	activatable      bool
	deactivateAfter  int // report unactivatable after this many checks; 0 disables
	activatableCalls int
	snapshots        []string
	snapshotCalls    int

	// Cancellation hooks: cancel is invoked when the Nth event is recorded,
	// or as soon as a press is recorded.
	cancelOnDispatch int
	cancelOnPress    bool
	cancel           context.CancelFunc

	dispatchCalls int
	evalCalls     int
	viewportCalls int

	onEvaluate func(script string) (json.RawMessage, error)
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{
		page: fakePage{
			width: 1366, height: 768,
			docWidth: 1366, docHeight: 768,
			regions: map[string]TargetRegion{},
		},
		activatable: true,
		applyScroll: true,
	}
}

func (m *mockExecutor) addRegion(selector string, r TargetRegion) {
	m.mu.Lock()
	m.page.regions[selector] = r
	m.mu.Unlock()
}

func (m *mockExecutor) setDocHeight(h float64) {
	m.mu.Lock()
	m.page.docHeight = h
	m.mu.Unlock()
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.sleeps = append(m.sleeps, d)
	m.mu.Unlock()
	return nil
}

func (m *mockExecutor) DispatchMouseEvent(ctx context.Context, data MouseEventData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dispatchCalls++
	if m.failPress != nil && data.Type == MousePress {
		return m.failPress
	}
	if m.failRelease != nil && data.Type == MouseRelease {
		return m.failRelease
	}
	if m.failDispatchAt > 0 && m.dispatchCalls >= m.failDispatchAt && m.dispatchErr != nil {
		return m.dispatchErr
	}

	m.events = append(m.events, data)

	if m.applyScroll && data.Type == MouseWheel {
		m.page.scrollY = clampFloat(m.page.scrollY+data.DeltaY, 0, m.page.docHeight-m.page.height)
		m.page.scrollX = clampFloat(m.page.scrollX+data.DeltaX, 0, m.page.docWidth-m.page.width)
	}

	if m.cancelOnDispatch > 0 && len(m.events) == m.cancelOnDispatch && m.cancel != nil {
		m.cancel()
	}
	if m.cancelOnPress && data.Type == MousePress && m.cancel != nil {
		m.cancel()
	}
	return nil
}

func (m *mockExecutor) EvaluateInPage(ctx context.Context, script string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evalCalls++
	if m.onEvaluate != nil {
		return m.onEvaluate(script)
	}

	// Route by distinctive markers in the engine's script templates.
	switch {
	case strings.Contains(script, "elementFromPoint"):
		return m.answerActivatable(script)
	case strings.Contains(script, "outerHTML"):
		return m.answerSnapshot()
	case strings.Contains(script, "getBoundingClientRect"):
		return m.answerRegion(script)
	default:
		return m.answerViewport()
	}
}

func (m *mockExecutor) answerViewport() (json.RawMessage, error) {
	m.viewportCalls++
	if m.viewportEvalErr != nil {
		return nil, m.viewportEvalErr
	}
	return marshalJSON(viewportResult{
		Width:     m.page.width,
		Height:    m.page.height,
		ScrollX:   m.page.scrollX,
		ScrollY:   m.page.scrollY,
		DocWidth:  m.page.docWidth,
		DocHeight: m.page.docHeight,
	})
}

func (m *mockExecutor) answerRegion(script string) (json.RawMessage, error) {
	if m.regionEvalErr != nil {
		return nil, m.regionEvalErr
	}
	if m.regionFailures > 0 {
		m.regionFailures--
		return nil, fmt.Errorf("transient evaluation failure")
	}
	sel, ok := m.selectorIn(script)
	if !ok {
		return json.RawMessage("null"), nil
	}
	doc := m.page.regions[sel]
	return marshalJSON(regionResult{
		X:      doc.X - m.page.scrollX,
		Y:      doc.Y - m.page.scrollY,
		Width:  doc.Width,
		Height: doc.Height,
	})
}

func (m *mockExecutor) answerActivatable(script string) (json.RawMessage, error) {
	m.activatableCalls++
	if _, ok := m.selectorIn(script); !ok {
		return marshalJSON(activatableResult{Found: false})
	}
	ok := m.activatable
	if m.deactivateAfter > 0 && m.activatableCalls > m.deactivateAfter {
		ok = false
	}
	if !ok {
		return marshalJSON(activatableResult{Found: true, Rendered: true, Hits: 0, Samples: 9})
	}
	return marshalJSON(activatableResult{Found: true, Rendered: true, Hits: 9, Samples: 9})
}

func (m *mockExecutor) answerSnapshot() (json.RawMessage, error) {
	m.snapshotCalls++
	if len(m.snapshots) == 0 {
		return json.RawMessage(`{"present":true,"htmlLength":120,"attrs":"id=target"}`), nil
	}
	idx := m.snapshotCalls - 1
	if idx >= len(m.snapshots) {
		idx = len(m.snapshots) - 1
	}
	return json.RawMessage(m.snapshots[idx]), nil
}

// selectorIn matches the JSON-encoded selector the engine embeds in its
// scripts against the fake page's regions. Callers must hold m.mu.
func (m *mockExecutor) selectorIn(script string) (string, bool) {
	for sel := range m.page.regions {
		if strings.Contains(script, jsonEncode(sel)) {
			return sel, true
		}
	}
	return "", false
}

func (m *mockExecutor) recordedEvents() []MouseEventData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MouseEventData(nil), m.events...)
}

func (m *mockExecutor) recordedSleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.sleeps...)
}

func (m *mockExecutor) eventsOfType(t MouseEventType) []MouseEventData {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MouseEventData
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func marshalJSON(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func floatPtr(v float64) *float64 { return &v }

func seededRng(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }
