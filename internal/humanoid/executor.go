// internal/humanoid/executor.go
package humanoid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// Executor is the external driver boundary. Everything the engine does to a
// page goes through these three calls, which keeps the planning logic
// driver-agnostic and makes the engine testable without a browser.
type Executor interface {
	// Sleep pauses execution for a given duration (context-aware).
	Sleep(ctx context.Context, d time.Duration) error

	// DispatchMouseEvent sends one low-level pointer event: moves, wheel
	// ticks, presses, and releases all travel through here.
	DispatchMouseEvent(ctx context.Context, data MouseEventData) error

	// EvaluateInPage runs a script in page context and returns its JSON
	// result. Used for viewport metrics, target geometry, and the
	// activatable check.
	EvaluateInPage(ctx context.Context, script string) (json.RawMessage, error)
}

// CDPExecutor is the production Executor over a chromedp context. The ctx
// passed to each call must descend from chromedp.NewContext.
//
// A token-bucket limiter caps dispatch frequency so a hot planning loop can
// never flood the CDP connection.
type CDPExecutor struct {
	limiter *rate.Limiter

	dispatchTimeout time.Duration
	evaluateTimeout time.Duration
}

// NewCDPExecutor creates a production executor capped at eventsPerSecond
// pointer events (0 disables the cap).
func NewCDPExecutor(eventsPerSecond float64) *CDPExecutor {
	e := &CDPExecutor{
		dispatchTimeout: 10 * time.Second,
		evaluateTimeout: 20 * time.Second,
	}
	if eventsPerSecond > 0 {
		burst := int(eventsPerSecond / 4)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
	}
	return e
}

func (e *CDPExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return chromedp.Run(ctx, chromedp.Sleep(d))
}

func (e *CDPExecutor) DispatchMouseEvent(ctx context.Context, data MouseEventData) error {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("humanoid: rate limiter interrupted: %w", err)
		}
	}

	p := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons).
		WithClickCount(int64(data.ClickCount))
	if data.Type == MouseWheel {
		p = p.WithDeltaX(data.DeltaX).WithDeltaY(data.DeltaY)
	}

	opCtx, cancel := context.WithTimeout(ctx, e.dispatchTimeout)
	defer cancel()

	if err := chromedp.Run(opCtx, p); err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("humanoid: mouse dispatch timed out after %v: %w", e.dispatchTimeout, opCtx.Err())
		}
		return fmt.Errorf("humanoid: mouse dispatch failed: %w", err)
	}
	return nil
}

func (e *CDPExecutor) EvaluateInPage(ctx context.Context, script string) (json.RawMessage, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.evaluateTimeout)
	defer cancel()

	var res json.RawMessage
	err := chromedp.Run(opCtx,
		chromedp.Evaluate(script, &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			// Resolve promises, return plain values, swallow page-side
			// exceptions into a null result.
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
	if err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("humanoid: page evaluation timed out after %v: %w", e.evaluateTimeout, opCtx.Err())
		}
		return nil, fmt.Errorf("humanoid: page evaluation failed: %w", err)
	}
	return res, nil
}

// jsonEncode safely encodes a value (especially strings) for JS injection.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
