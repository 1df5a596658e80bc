// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/browser"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/executor"
)

// Status is the terminal state of a scenario run.
type Status string

const (
	// StatusCompleted means every step ran and the oracle, if any, was evaluated.
	StatusCompleted Status = "completed"
	// StatusAborted means the run stopped early: a required step failed, the
	// budget ran out, the session could not be opened or something panicked.
	StatusAborted Status = "aborted"
)

// Verdict is the oracle's judgement of a run.
type Verdict string

const (
	VerdictPassed   Verdict = "passed"
	VerdictFailed   Verdict = "failed"
	VerdictNoOracle Verdict = "no_oracle"
)

// StepRecord is what happened in one step.
type StepRecord struct {
	Index    int
	Kind     string
	Label    string
	Required bool
	Outcome  executor.Outcome
	// Candidate is the index of the clicked candidate, -1 when none was.
	Candidate int
	Attempts  int
	Elapsed   time.Duration
	Err       error
}

// Result is the outcome of one scenario run.
type Result struct {
	ScenarioID string
	Name       string
	Source     string
	SessionID  string
	Status     Status
	Verdict    Verdict
	Steps      []StepRecord
	Assertion  *executor.AssertionResult
	// Failure is the human-readable explanation of a failed verdict.
	Failure     string
	Err         error
	TeardownErr error
	StartedAt   time.Time
	Duration    time.Duration
}

// Passed reports whether the run completed without a failed oracle.
func (r *Result) Passed() bool {
	return r.Status == StatusCompleted && r.Verdict != VerdictFailed
}

// SessionFactory opens browser sessions. *browser.Manager implements it.
type SessionFactory interface {
	NewSession(ctx context.Context) (*browser.Session, error)
	DriverName() string
}

// Options configure a Runner.
type Options struct {
	BaseURL string
	Policy  executor.Policy
	// ScenarioBudget caps a scenario that does not declare its own budget. Zero is unbounded.
	ScenarioBudget time.Duration
	// MaxLinger caps the pause a scenario requests after its oracle.
	MaxLinger       time.Duration
	TeardownTimeout time.Duration
	// OnStep, when set, is called after every step.
	OnStep func(scenarioID string, rec StepRecord)
}

const defaultTeardownTimeout = 15 * time.Second

// Runner executes scenarios, each in its own browser session.
type Runner struct {
	sessions SessionFactory
	opts     Options
	logger   *zap.Logger
}

// NewRunner creates a runner that opens sessions from sessions.
func NewRunner(sessions SessionFactory, opts Options, logger *zap.Logger) *Runner {
	if opts.TeardownTimeout <= 0 {
		opts.TeardownTimeout = defaultTeardownTimeout
	}
	return &Runner{
		sessions: sessions,
		opts:     opts,
		logger:   logger.Named("runner"),
	}
}

// Run executes sc and always returns a result. The browser session is closed
// exactly once on every path, including panics and cancellation of ctx.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (res *Result) {
	res = &Result{
		ScenarioID: sc.ID,
		Name:       sc.Name,
		Source:     sc.Source,
		StartedAt:  time.Now(),
	}
	logger := r.logger.With(zap.String("scenario", sc.ID))
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	if err := ctx.Err(); err != nil {
		r.abort(res, logger, fmt.Errorf("scenario not started: %w", err))
		return res
	}

	budget := sc.Budget
	if budget == 0 {
		budget = r.opts.ScenarioBudget
	}
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if budget > 0 {
		runCtx, cancel = context.WithTimeout(ctx, budget)
	}
	defer cancel()

	// 1. Acquire the browser session.
	session, err := r.sessions.NewSession(runCtx)
	if err != nil {
		r.abort(res, logger, fmt.Errorf("failed to open browser session: %w", err))
		return res
	}
	res.SessionID = session.ID()
	logger = logger.With(zap.String("session_id", session.ID()))

	// 2. Teardown. Registered first so it runs after the recover below.
	defer func() {
		tctx, tcancel := context.WithTimeout(browser.Detach(ctx), r.opts.TeardownTimeout)
		defer tcancel()
		if err := session.Close(tctx); err != nil {
			res.TeardownErr = err
			logger.Warn("Browser teardown reported errors.", zap.Error(err))
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			r.abort(res, logger, fmt.Errorf("scenario panicked: %v", rec))
		}
	}()

	logger.Info("Scenario started.", zap.String("name", sc.Name), zap.Int("steps", len(sc.Steps)))
	exec := executor.New(session.Page(), sc.Policy.Apply(r.opts.Policy), logger)
	base := r.baseURL(sc)

	// 3. Steps.
	for i := range sc.Steps {
		if runCtx.Err() != nil {
			r.abort(res, logger, r.budgetErr(ctx, budget, fmt.Sprintf("step %d", i+1)))
			return res
		}
		rec, fatal := r.runStep(runCtx, exec, base, i, &sc.Steps[i])
		res.Steps = append(res.Steps, rec)
		r.logStep(logger, rec)
		if r.opts.OnStep != nil {
			r.opts.OnStep(sc.ID, rec)
		}
		if fatal != nil {
			r.abort(res, logger, fatal)
			return res
		}
	}

	// 4. Oracle.
	if sc.Expect == nil {
		res.Verdict = VerdictNoOracle
	} else {
		a := exec.Assert(runCtx, executor.Expectation{
			Text:        sc.Expect.Text,
			Timeout:     sc.Expect.Timeout,
			Description: sc.Expect.Description,
		})
		res.Assertion = &a
		if a.Outcome == executor.OutcomePassed {
			res.Verdict = VerdictPassed
		} else {
			if runCtx.Err() != nil {
				r.abort(res, logger, r.budgetErr(ctx, budget, "the final assertion"))
				return res
			}
			res.Verdict = VerdictFailed
			res.Failure = failureText(sc.Expect, a.Err)
		}
	}

	// 5. Linger on the final screen.
	if linger := min(sc.Linger, r.opts.MaxLinger); linger > 0 {
		t := time.NewTimer(linger)
		select {
		case <-t.C:
		case <-runCtx.Done():
			t.Stop()
		}
	}

	res.Status = StatusCompleted
	switch res.Verdict {
	case VerdictFailed:
		logger.Warn("Scenario failed.", zap.String("expected", sc.Expect.Text), zap.String("failure", res.Failure))
	default:
		logger.Info("Scenario completed.", zap.String("verdict", string(res.Verdict)))
	}
	return res
}

// runStep executes one step. A non-nil error means the run must abort.
func (r *Runner) runStep(ctx context.Context, exec *executor.Executor, base string, i int, step *Step) (StepRecord, error) {
	rec := StepRecord{Index: i, Kind: step.Kind(), Candidate: -1, Label: step.Note}

	switch rec.Kind {
	case KindNavigate:
		n := step.Navigate
		rec.Required = n.Required
		if rec.Label == "" {
			rec.Label = n.URL
		}
		nav := r.navigate(ctx, exec, base, n)
		rec.Outcome, rec.Elapsed, rec.Err = nav.Outcome, nav.Elapsed, nav.Err

	case KindClick:
		c := step.Click
		rec.Required = c.Required
		if rec.Label == "" {
			rec.Label = c.Name
		}
		locs, err := c.Locators()
		if err != nil {
			rec.Outcome, rec.Err = executor.OutcomeError, err
			break
		}
		action := executor.Action{Name: c.Name, Candidates: locs}
		if c.Recover != nil {
			target, err := ResolveURL(base, c.Recover.URL)
			if err != nil {
				rec.Outcome, rec.Err = executor.OutcomeError, err
				break
			}
			wu, _ := browser.ParseWaitUntil(c.Recover.WaitUntil)
			action.Recover = &executor.Recovery{URL: target, WaitUntil: wu}
		}
		act := exec.Perform(ctx, action)
		rec.Outcome, rec.Candidate, rec.Attempts, rec.Elapsed, rec.Err = act.Outcome, act.Index, act.Attempts, act.Elapsed, act.Err

	case KindWait:
		if rec.Label == "" {
			rec.Label = step.Wait.Duration.String()
		}
		start := time.Now()
		t := time.NewTimer(step.Wait.Duration)
		select {
		case <-t.C:
			rec.Outcome = executor.OutcomeSuccess
		case <-ctx.Done():
			t.Stop()
			rec.Outcome, rec.Err = executor.OutcomeError, ctx.Err()
		}
		rec.Elapsed = time.Since(start)

	case KindAssert:
		a := step.Assert
		rec.Required = a.Required
		if rec.Label == "" {
			rec.Label = a.Text
		}
		res := exec.Assert(ctx, executor.Expectation{Text: a.Text, Timeout: a.Timeout, Description: a.Description})
		rec.Outcome, rec.Elapsed, rec.Err = res.Outcome, res.Elapsed, res.Err

	default:
		rec.Outcome, rec.Err = executor.OutcomeError, fmt.Errorf("invalid step")
	}

	if rec.Required && !rec.Outcome.OK() {
		return rec, fmt.Errorf("required %s step %d (%s) ended with %s: %w", rec.Kind, i+1, rec.Label, rec.Outcome, rec.Err)
	}
	return rec, nil
}

func (r *Runner) navigate(ctx context.Context, exec *executor.Executor, base string, n *NavigateStep) executor.NavigationResult {
	target, err := ResolveURL(base, n.URL)
	if err != nil {
		return executor.NavigationResult{Outcome: executor.OutcomeError, URL: n.URL, Err: err}
	}
	wu, err := browser.ParseWaitUntil(n.WaitUntil)
	if err != nil {
		return executor.NavigationResult{Outcome: executor.OutcomeError, URL: target, Err: err}
	}
	nav := exec.Navigate(ctx, target, wu, n.Timeout)
	if nav.Outcome == executor.OutcomeCommitted {
		exec.Settle(ctx)
	}
	return nav
}

func (r *Runner) baseURL(sc *Scenario) string {
	if sc.BaseURL != "" {
		return sc.BaseURL
	}
	return r.opts.BaseURL
}

func (r *Runner) logStep(logger *zap.Logger, rec StepRecord) {
	fields := []zap.Field{
		zap.Int("step", rec.Index+1),
		zap.String("kind", rec.Kind),
		zap.String("label", rec.Label),
		zap.String("outcome", string(rec.Outcome)),
		zap.Duration("elapsed", rec.Elapsed),
	}
	if rec.Kind == KindClick {
		fields = append(fields, zap.Int("candidate", rec.Candidate), zap.Int("attempts", rec.Attempts))
	}
	if rec.Outcome.OK() {
		logger.Debug("Step finished.", fields...)
		return
	}
	logger.Warn("Step did not succeed.", append(fields, zap.Bool("required", rec.Required), zap.Error(rec.Err))...)
}

func (r *Runner) abort(res *Result, logger *zap.Logger, err error) {
	res.Status = StatusAborted
	res.Verdict = VerdictFailed
	res.Err = err
	res.Failure = err.Error()
	logger.Error("Scenario aborted.", zap.Error(err))
}

func (r *Runner) budgetErr(parent context.Context, budget time.Duration, where string) error {
	if err := parent.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("scenario cancelled during %s: %w", where, err)
	}
	return fmt.Errorf("%w: scenario budget of %s ran out during %s", executor.ErrBudgetExhausted, budget, where)
}

// failureText prefers the author's description and appends the driver's view.
func failureText(exp *Expectation, err error) string {
	if err == nil {
		return exp.Description
	}
	if exp.Description == "" {
		return err.Error()
	}
	return exp.Description + ": " + err.Error()
}
