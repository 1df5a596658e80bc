// internal/reporting/text.go
package reporting

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
)

// TextReporter writes a human-readable summary intended for a terminal.
type TextReporter struct {
	w io.WriteCloser
}

func (r *TextReporter) Write(report *scenario.SuiteReport) error {
	bw := bufio.NewWriter(r.w)

	fmt.Fprintf(bw, "Run %s (driver %s", report.RunID, report.Driver)
	if report.BaseURL != "" {
		fmt.Fprintf(bw, ", base %s", report.BaseURL)
	}
	fmt.Fprintln(bw, ")")

	for _, res := range report.Results {
		if res == nil {
			continue
		}
		fmt.Fprintf(bw, "\n%-6s %s  %s (%s)\n", mark(res), res.ScenarioID, res.Name, round(res.Duration))
		for _, s := range res.Steps {
			if s.Outcome.OK() {
				continue
			}
			req := ""
			if s.Required {
				req = " required"
			}
			fmt.Fprintf(bw, "         step %d%s %s %q: %s", s.Index+1, req, s.Kind, s.Label, s.Outcome)
			if s.Err != nil {
				fmt.Fprintf(bw, " (%v)", s.Err)
			}
			fmt.Fprintln(bw)
		}
		if res.Failure != "" {
			fmt.Fprintf(bw, "         %s\n", res.Failure)
		}
		if res.TeardownErr != nil {
			fmt.Fprintf(bw, "         teardown: %v\n", res.TeardownErr)
		}
	}

	c := report.Counts()
	fmt.Fprintf(bw, "\n%s\n", strings.Repeat("-", 60))
	fmt.Fprintf(bw, "%d scenarios: %d passed (%d without oracle), %d failed, %d aborted in %s\n",
		c.Total, c.Passed, c.NoOracle, c.Failed, c.Aborted, round(report.Duration))

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	return r.w.Close()
}

func mark(res *scenario.Result) string {
	switch {
	case res.Status == scenario.StatusAborted:
		return "ABORT"
	case res.Verdict == scenario.VerdictFailed:
		return "FAIL"
	case res.Verdict == scenario.VerdictNoOracle:
		return "DONE"
	default:
		return "PASS"
	}
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
