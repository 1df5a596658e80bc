// internal/executor/outcome.go
package executor

import (
	"time"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/browser"
)

// Outcome is the explicit result of one executor operation.
type Outcome string

const (
	// Action outcomes.
	OutcomeSuccess  Outcome = "success"
	OutcomeNotFound Outcome = "not_found"
	OutcomeTimeout  Outcome = "timeout"

	// Navigation outcomes.
	OutcomeCommitted Outcome = "committed"
	OutcomeTimedOut  Outcome = "timed_out"

	// Assertion outcomes.
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"

	// OutcomeError covers driver failures and recovered panics for any operation.
	OutcomeError Outcome = "error"
)

// OK reports whether the outcome is the success value of its operation.
func (o Outcome) OK() bool {
	switch o {
	case OutcomeSuccess, OutcomeCommitted, OutcomePassed:
		return true
	default:
		return false
	}
}

// ActionResult describes one PerformAction call.
type ActionResult struct {
	Outcome Outcome
	// Index of the candidate that was clicked, -1 when none was.
	Index    int
	Locator  browser.Locator
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// NavigationResult describes one Navigate call.
type NavigationResult struct {
	Outcome   Outcome
	URL       string
	WaitUntil browser.WaitUntil
	Elapsed   time.Duration
	Err       error
}

// AssertionResult describes one visibility assertion. Err is an *AssertionError
// when the outcome is OutcomeFailed.
type AssertionResult struct {
	Outcome  Outcome
	Expected string
	Elapsed  time.Duration
	Err      error
}
