// internal/executor/executor.go
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/browser"
)

// Action is a click described by an ordered list of alternative locators.
type Action struct {
	// Name labels the action in logs and reports.
	Name       string
	Candidates []browser.Locator
	// Recover, when set, is navigated to before every retry pass.
	Recover *Recovery
}

// Recovery is a navigation that returns the UI to a known state.
type Recovery struct {
	URL       string
	WaitUntil browser.WaitUntil
}

// Expectation is a final or intermediate visibility check.
type Expectation struct {
	Text    string
	Timeout time.Duration
	// Description explains what a failure means for the product.
	Description string
}

// Executor performs resilient UI operations on one page. Every operation
// returns an explicit outcome instead of failing the caller.
type Executor struct {
	page   browser.Page
	policy Policy
	logger *zap.Logger
}

// New creates an executor for page using policy.
func New(page browser.Page, policy Policy, logger *zap.Logger) *Executor {
	return &Executor{
		page:   page,
		policy: policy.normalized(),
		logger: logger.Named("executor"),
	}
}

// Policy returns the effective retry policy.
func (e *Executor) Policy() Policy { return e.policy }

// WithPolicy returns an executor on the same page with a different policy.
func (e *Executor) WithPolicy(p Policy) *Executor {
	return &Executor{page: e.page, policy: p.normalized(), logger: e.logger}
}

// PerformAction clicks the first of candidates that becomes visible.
func (e *Executor) PerformAction(ctx context.Context, candidates ...browser.Locator) ActionResult {
	return e.Perform(ctx, Action{Candidates: candidates})
}

// Perform clicks through a.Candidates under the executor's retry policy.
func (e *Executor) Perform(ctx context.Context, a Action) ActionResult {
	start := time.Now()
	res := ActionResult{Index: -1}
	logger := e.logger.With(zap.String("action", a.Name))

	if len(a.Candidates) == 0 {
		res.Outcome = OutcomeError
		res.Err = ErrNoCandidates
		return res
	}

	actCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.policy.Budget > 0 {
		actCtx, cancel = context.WithTimeout(ctx, e.policy.Budget)
	}
	defer cancel()

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if a.Recover != nil {
				nav := e.Navigate(actCtx, a.Recover.URL, a.Recover.WaitUntil, 0)
				logger.Debug("Recovery navigation before retry.",
					zap.Int("attempt", attempt),
					zap.String("url", a.Recover.URL),
					zap.String("outcome", string(nav.Outcome)))
			}
			if err := sleep(actCtx, e.policy.InterAttemptDelay); err != nil {
				break
			}
		}
		res.Attempts = attempt

		outcome, idx, err := e.attempt(actCtx, a.Candidates)
		res.Outcome, res.Err = outcome, err
		if outcome == OutcomeSuccess {
			res.Index = idx
			res.Locator = a.Candidates[idx]
			break
		}
		if actCtx.Err() != nil {
			break
		}
	}

	if res.Outcome != OutcomeSuccess && actCtx.Err() != nil {
		switch {
		case ctx.Err() == nil:
			// Only the action's own budget expired.
			res.Outcome = OutcomeTimeout
			res.Err = fmt.Errorf("%w after %s: %v", ErrBudgetExhausted, e.policy.Budget, res.Err)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			res.Outcome = OutcomeTimeout
			res.Err = fmt.Errorf("%w: %v", ErrBudgetExhausted, ctx.Err())
		default:
			res.Outcome = OutcomeError
			res.Err = fmt.Errorf("action cancelled: %w", ctx.Err())
		}
	}

	res.Elapsed = time.Since(start)
	logger.Debug("Action finished.",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("index", res.Index),
		zap.Int("attempts", res.Attempts),
		zap.Duration("elapsed", res.Elapsed),
		zap.Error(res.Err))
	return res
}

// attempt makes one pass over the candidates in order.
func (e *Executor) attempt(ctx context.Context, candidates []browser.Locator) (Outcome, int, error) {
	var notFoundErr, timeoutErr, driverErr error

	for i, loc := range candidates {
		i, loc := i, loc
		if ctx.Err() != nil {
			break
		}

		if e.policy.GracePeriod > 0 {
			err := e.call(ctx, e.policy.GracePeriod, func(c context.Context) error {
				return e.page.WaitVisible(c, loc)
			})
			if err != nil {
				e.logger.Debug("Candidate not visible.", zap.Int("index", i), zap.Stringer("locator", loc), zap.Error(err))
				if isPanic(err) {
					driverErr = err
				} else {
					notFoundErr = fmt.Errorf("%w: %s: %v", ErrNotFound, loc, err)
				}
				continue
			}
		}

		err := e.call(ctx, e.policy.ClickTimeout, func(c context.Context) error {
			return e.page.Click(c, loc)
		})
		if err == nil {
			return OutcomeSuccess, i, nil
		}
		e.logger.Debug("Candidate click failed.", zap.Int("index", i), zap.Stringer("locator", loc), zap.Error(err))
		switch {
		case isPanic(err):
			driverErr = err
		case isTimeout(err):
			timeoutErr = fmt.Errorf("%w: click on %s: %v", ErrTimeout, loc, err)
		default:
			notFoundErr = fmt.Errorf("%w: click on %s: %v", ErrNotFound, loc, err)
		}
	}

	switch {
	case timeoutErr != nil:
		return OutcomeTimeout, -1, timeoutErr
	case driverErr != nil:
		return OutcomeError, -1, driverErr
	case notFoundErr != nil:
		return OutcomeNotFound, -1, notFoundErr
	default:
		return OutcomeNotFound, -1, ErrNotFound
	}
}

// Navigate loads url and returns no later than timeout, even when the driver
// ignores cancellation. A zero timeout uses the policy's navigation timeout.
func (e *Executor) Navigate(ctx context.Context, url string, waitUntil browser.WaitUntil, timeout time.Duration) NavigationResult {
	if timeout <= 0 {
		timeout = e.policy.NavigationTimeout
	}
	if waitUntil == "" {
		waitUntil = browser.WaitCommit
	}
	start := time.Now()

	err := e.call(ctx, timeout, func(c context.Context) error {
		return e.page.Navigate(c, url, waitUntil)
	})

	res := NavigationResult{URL: url, WaitUntil: waitUntil, Elapsed: time.Since(start), Err: err}
	switch {
	case err == nil:
		res.Outcome = OutcomeCommitted
	case isTimeout(err):
		res.Outcome = OutcomeTimedOut
	default:
		res.Outcome = OutcomeError
	}

	e.logger.Debug("Navigation finished.",
		zap.String("url", url),
		zap.String("wait_until", string(waitUntil)),
		zap.String("outcome", string(res.Outcome)),
		zap.Duration("elapsed", res.Elapsed))
	return res
}

// Settle gives the current document and its child frames a bounded chance to
// finish parsing.
// Failures are expected on pages that are mid-transition and are ignored.
func (e *Executor) Settle(ctx context.Context) {
	if e.policy.SettleTimeout <= 0 {
		return
	}
	err := e.call(ctx, e.policy.SettleTimeout, e.page.WaitReady)
	if err != nil {
		e.logger.Debug("Page did not settle, continuing.", zap.Error(err))
	}
}

// AssertVisible polls until text is rendered or timeout elapses.
func (e *Executor) AssertVisible(ctx context.Context, text string, timeout time.Duration) AssertionResult {
	return e.Assert(ctx, Expectation{Text: text, Timeout: timeout})
}

// Assert evaluates exp at the policy's poll interval.
func (e *Executor) Assert(ctx context.Context, exp Expectation) AssertionResult {
	timeout := exp.Timeout
	if timeout <= 0 {
		timeout = e.policy.AssertTimeout
	}
	start := time.Now()
	res := AssertionResult{Expected: exp.Text}

	assertCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(e.policy.PollInterval), 1)
	var lastErr error
	check := func() bool {
		var visible bool
		err := e.call(assertCtx, timeout, func(c context.Context) error {
			var err error
			visible, err = e.page.TextVisible(c, exp.Text)
			return err
		})
		if err != nil {
			lastErr = err
			return false
		}
		return visible
	}

	passed := false
	for !passed {
		if err := limiter.Wait(assertCtx); err != nil {
			// The limiter refuses waits that would overrun the deadline; take one
			// last look, then let the full timeout elapse before failing.
			if assertCtx.Err() == nil {
				passed = check()
			}
			if !passed {
				<-assertCtx.Done()
			}
			break
		}
		passed = check()
	}

	res.Elapsed = time.Since(start)
	if passed {
		res.Outcome = OutcomePassed
		e.logger.Debug("Assertion passed.", zap.String("expected", exp.Text), zap.Duration("elapsed", res.Elapsed))
		return res
	}

	if lastErr == nil && ctx.Err() != nil {
		lastErr = ctx.Err()
	}
	res.Outcome = OutcomeFailed
	res.Err = &AssertionError{
		Expected:    exp.Text,
		Elapsed:     res.Elapsed,
		Timeout:     timeout,
		Description: exp.Description,
		Cause:       lastErr,
	}
	e.logger.Debug("Assertion failed.", zap.String("expected", exp.Text), zap.Duration("elapsed", res.Elapsed), zap.Error(lastErr))
	return res
}

// errPanic marks driver panics converted into errors.
var errPanic = errors.New("driver panic")

// call runs fn with a timeout derived from ctx. It returns as soon as the
// timeout passes even if fn does not, and converts panics into errors.
func (e *Executor) call(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeCall(callCtx, fn)
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return callCtx.Err()
	}
}

func safeCall(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return fn(ctx)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, browser.ErrTimeout)
}

func isPanic(err error) bool {
	return errors.Is(err, errPanic)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
