// internal/browser/context_utils_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type ctxKey string

func TestCombineContext(t *testing.T) {
	t.Run("should cancel when the operational context is done", func(t *testing.T) {
		parent := context.WithValue(context.Background(), ctxKey("k"), "v")
		op, cancelOp := context.WithCancel(context.Background())

		combined, cancel := CombineContext(parent, op)
		defer cancel()

		cancelOp()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not cancelled")
		}
		assert.Equal(t, "v", combined.Value(ctxKey("k")))
	})

	t.Run("should carry the operational deadline", func(t *testing.T) {
		op, cancelOp := context.WithTimeout(context.Background(), time.Minute)
		defer cancelOp()

		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		expected, _ := op.Deadline()
		got, ok := combined.Deadline()
		assert.True(t, ok)
		assert.Equal(t, expected, got)
	})

	t.Run("should cancel when the parent is done", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		combined, cancel := CombineContext(parent, context.Background())
		defer cancel()

		cancelParent()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}

func TestDetach(t *testing.T) {
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey("k"), "v"))
	cancel()

	detached := Detach(parent)
	assert.NoError(t, detached.Err())
	assert.Nil(t, detached.Done())
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
	assert.Equal(t, "v", detached.Value(ctxKey("k")))
}
