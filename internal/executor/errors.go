// internal/executor/errors.go
package executor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means no candidate became visible within the grace period.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout means an element was found but the operation did not complete in time.
	ErrTimeout = errors.New("operation timed out")
	// ErrBudgetExhausted means the wall-clock budget ran out before the action succeeded.
	ErrBudgetExhausted = errors.New("action budget exhausted")
	// ErrNoCandidates is returned for an action without locators.
	ErrNoCandidates = errors.New("action has no candidate locators")
)

// AssertionError is the failure of a final visibility check. It keeps the
// literal text that was expected so reports can name it.
type AssertionError struct {
	Expected string
	Elapsed  time.Duration
	Timeout  time.Duration
	// Description is the scenario author's explanation of what a failure means.
	Description string
	// Cause is the last driver error observed while polling, if any.
	Cause error
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("expected text %q was not visible after %s", e.Expected, e.Elapsed.Round(time.Millisecond))
	if e.Cause != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.Cause)
	}
	return msg
}

func (e *AssertionError) Unwrap() error { return e.Cause }
