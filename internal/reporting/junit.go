// internal/reporting/junit.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
)

// JUnitReporter writes the suite as JUnit XML for CI test dashboards. Aborted
// scenarios are reported as errors, failed oracles as failures and scenarios
// without an oracle as passing test cases with a system-out note.
type JUnitReporter struct {
	w io.WriteCloser
}

func (r *JUnitReporter) Write(report *scenario.SuiteReport) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	c := report.Counts()
	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "kioskprobe")
	suites.CreateAttr("tests", strconv.Itoa(c.Total))
	suites.CreateAttr("failures", strconv.Itoa(c.Failed))
	suites.CreateAttr("errors", strconv.Itoa(c.Aborted))
	suites.CreateAttr("time", seconds(report.Duration))

	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "kiosk")
	suite.CreateAttr("id", report.RunID.String())
	suite.CreateAttr("tests", strconv.Itoa(c.Total))
	suite.CreateAttr("failures", strconv.Itoa(c.Failed))
	suite.CreateAttr("errors", strconv.Itoa(c.Aborted))
	suite.CreateAttr("time", seconds(report.Duration))
	suite.CreateAttr("timestamp", report.StartedAt.UTC().Format(time.RFC3339))

	props := suite.CreateElement("properties")
	addProperty(props, "driver", report.Driver)
	if report.BaseURL != "" {
		addProperty(props, "base_url", report.BaseURL)
	}

	for _, res := range report.Results {
		if res == nil {
			continue
		}
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("classname", "kiosk."+res.ScenarioID)
		tc.CreateAttr("name", res.Name)
		tc.CreateAttr("time", seconds(res.Duration))
		if res.Source != "" {
			tc.CreateAttr("file", res.Source)
		}

		switch {
		case res.Status == scenario.StatusAborted:
			el := tc.CreateElement("error")
			el.CreateAttr("message", res.Failure)
			el.CreateAttr("type", "aborted")
			el.SetText(stepTrace(res))
		case res.Verdict == scenario.VerdictFailed:
			el := tc.CreateElement("failure")
			el.CreateAttr("message", res.Failure)
			el.CreateAttr("type", "assertion")
			el.SetText(stepTrace(res))
		case res.Verdict == scenario.VerdictNoOracle:
			tc.CreateElement("system-out").SetText("scenario has no final assertion\n" + stepTrace(res))
		}
		if res.TeardownErr != nil {
			tc.CreateElement("system-err").SetText("teardown: " + res.TeardownErr.Error())
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(r.w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *JUnitReporter) Close() error {
	return r.w.Close()
}

func addProperty(props *etree.Element, name, value string) {
	p := props.CreateElement("property")
	p.CreateAttr("name", name)
	p.CreateAttr("value", value)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// stepTrace lists every step with its outcome, one per line.
func stepTrace(res *scenario.Result) string {
	var b strings.Builder
	for _, s := range res.Steps {
		fmt.Fprintf(&b, "%d. %s %s: %s", s.Index+1, s.Kind, s.Label, s.Outcome)
		if s.Err != nil {
			fmt.Fprintf(&b, " (%v)", s.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
