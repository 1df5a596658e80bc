// internal/scenario/suite.go
package scenario

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SuiteReport collects the results of one RunSuite call in input order.
type SuiteReport struct {
	RunID     uuid.UUID
	BaseURL   string
	Driver    string
	StartedAt time.Time
	Duration  time.Duration
	Results   []*Result
}

// Counts summarizes a suite.
type Counts struct {
	Total    int
	Passed   int
	Failed   int
	Aborted  int
	NoOracle int
}

func (s *SuiteReport) Counts() Counts {
	c := Counts{Total: len(s.Results)}
	for _, r := range s.Results {
		switch {
		case r.Status == StatusAborted:
			c.Aborted++
		case r.Verdict == VerdictFailed:
			c.Failed++
		case r.Verdict == VerdictNoOracle:
			c.NoOracle++
			c.Passed++
		default:
			c.Passed++
		}
	}
	return c
}

// OK reports whether every scenario passed.
func (s *SuiteReport) OK() bool {
	c := s.Counts()
	return c.Failed == 0 && c.Aborted == 0
}

// RunSuite runs independent scenarios with at most concurrency in flight. Every
// scenario gets its own session; one failing scenario does not stop the others.
func (r *Runner) RunSuite(ctx context.Context, scenarios []*Scenario, concurrency int) *SuiteReport {
	if concurrency < 1 {
		concurrency = 1
	}
	report := &SuiteReport{
		RunID:     uuid.New(),
		BaseURL:   r.opts.BaseURL,
		Driver:    r.sessions.DriverName(),
		StartedAt: time.Now(),
		Results:   make([]*Result, len(scenarios)),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID.String()))
	logger.Info("Suite started.", zap.Int("scenarios", len(scenarios)), zap.Int("concurrency", concurrency))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			report.Results[i] = r.Run(ctx, sc)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.StartedAt)
	c := report.Counts()
	logger.Info("Suite finished.",
		zap.Int("passed", c.Passed),
		zap.Int("failed", c.Failed),
		zap.Int("aborted", c.Aborted),
		zap.Duration("duration", report.Duration))
	return report
}
