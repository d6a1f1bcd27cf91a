// internal/browser/context_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func TestCombineContextSecondaryCancellation(t *testing.T) {
	t.Parallel()

	primary := context.WithValue(context.Background(), ctxKey{}, "target-info")
	secondary, secondaryCancel := context.WithCancel(context.Background())

	combined, cancel := CombineContext(primary, secondary)
	defer cancel()

	// Values flow from the primary side only.
	require.Equal(t, "target-info", combined.Value(ctxKey{}))

	secondaryCancel()

	select {
	case <-combined.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("combined context did not observe secondary cancellation")
	}
	assert.ErrorIs(t, combined.Err(), context.Canceled)
}

func TestCombineContextPrimaryCancellation(t *testing.T) {
	t.Parallel()

	primary, primaryCancel := context.WithCancel(context.Background())
	secondary := context.Background()

	combined, cancel := CombineContext(primary, secondary)
	defer cancel()

	primaryCancel()

	select {
	case <-combined.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("combined context did not observe primary cancellation")
	}
}

func TestCombineContextDirectCancel(t *testing.T) {
	t.Parallel()

	combined, cancel := CombineContext(context.Background(), context.Background())
	cancel()

	select {
	case <-combined.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("combined context did not observe its own cancel func")
	}
}

func TestDetachOutlivesParent(t *testing.T) {
	t.Parallel()

	parent, parentCancel := context.WithCancel(context.Background())
	parent = context.WithValue(parent, ctxKey{}, "kept")

	detached := Detach(parent)
	parentCancel()

	assert.NoError(t, detached.Err(), "detached context must ignore parent cancellation")
	assert.Nil(t, detached.Done())
	assert.Equal(t, "kept", detached.Value(ctxKey{}), "detached context must keep parent values")

	deadline, ok := detached.Deadline()
	assert.False(t, ok)
	assert.True(t, deadline.IsZero())
}
