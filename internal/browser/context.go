// internal/browser/context.go
package browser

import (
	"context"
	"time"
)

// CombineContext creates a new context derived from primary that is canceled
// when either primary or secondary is canceled. It inherits values from
// primary, which matters for chromedp operations: primary carries the CDP
// target, secondary carries the operational deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
			// Already canceled through primary or a direct call.
		}
	}()

	return combined, cancel
}

// valueOnlyContext inherits values from its parent but ignores the parent's
// deadline and cancellation signal.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that keeps ctx's values (including the CDP
// target) but is not canceled when ctx is. Used for cleanup work that must
// outlive the operation that triggered it.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
