// internal/humanoid/errors.go
package humanoid

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes callers are expected to branch on.
// All engine errors wrap one of these, so errors.Is works across layers.
var (
	// ErrGeometryUnavailable indicates the target could not be resolved to a
	// usable bounding box (missing element, zero-size region, retries spent).
	ErrGeometryUnavailable = errors.New("humanoid: target geometry unavailable")

	// ErrUnstableTarget indicates the target's bounding box never settled
	// within the stability window.
	ErrUnstableTarget = errors.New("humanoid: target unstable")

	// ErrNotActivatable indicates the target never became activatable within
	// the activation timeout.
	ErrNotActivatable = errors.New("humanoid: target not activatable")

	// ErrBecameUnactivatable indicates the target stopped being activatable
	// between the approach and the press.
	ErrBecameUnactivatable = errors.New("humanoid: target became unactivatable")

	// ErrDriverCallFailed indicates a non-absorbable driver call failed
	// (press or release).
	ErrDriverCallFailed = errors.New("humanoid: driver call failed")

	// ErrTimeout indicates a context deadline or cancellation interrupted
	// the operation.
	ErrTimeout = errors.New("humanoid: operation timed out")
)

// AbortError reports that the activation state machine gave up, and in which
// phase. It wraps one of the sentinel errors above plus the underlying cause
// (if any), so both remain reachable through errors.Is / errors.As.
type AbortError struct {
	Phase  Phase
	Reason error
	Cause  error
}

func (e *AbortError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("humanoid: activation aborted in phase %s: %v: %v", e.Phase, e.Reason, e.Cause)
	}
	return fmt.Sprintf("humanoid: activation aborted in phase %s: %v", e.Phase, e.Reason)
}

// Unwrap exposes the sentinel reason and the cause to the errors package.
func (e *AbortError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Reason, e.Cause}
	}
	return []error{e.Reason}
}

// abort builds an AbortError for the given phase.
func abort(phase Phase, reason, cause error) *AbortError {
	return &AbortError{Phase: phase, Reason: reason, Cause: cause}
}

// ctxErr normalizes a context error into the engine's timeout sentinel while
// keeping the original error reachable.
func ctxErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTimeout, err)
}
