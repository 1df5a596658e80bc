// internal/browser/context_utils.go
package browser

import (
	"context"
	"time"
)

// CombineContext creates a context derived from ctx1 (which carries values such
// as the chromedp target) that is also canceled when ctx2 (which carries the
// operational deadline) is done.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	// Propagate ctx2's deadline so drivers that inspect Deadline() see it.
	if deadline, ok := ctx2.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combinedCtx, cancelDeadline = context.WithDeadline(combinedCtx, deadline)
		inner := cancel
		cancel = func() {
			cancelDeadline()
			inner()
		}
	}

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

// valueOnlyContext inherits values from its parent but not its deadline or cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that keeps ctx's values but survives its cancellation.
// Teardown uses it so a cancelled run still releases the browser.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
