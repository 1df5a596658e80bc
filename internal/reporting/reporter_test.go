// internal/reporting/reporter_test.go
package reporting_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/executor"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/reporting"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
)

type bufCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufCloser) Close() error {
	b.closed = true
	return nil
}

func sampleReport() *scenario.SuiteReport {
	paymentErr := &executor.AssertionError{
		Expected:    "Payment Successful",
		Elapsed:     3 * time.Second,
		Timeout:     3 * time.Second,
		Description: "the payment confirmation never appeared",
	}
	return &scenario.SuiteReport{
		RunID:     uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		BaseURL:   "http://localhost:3000",
		Driver:    "chromedp",
		StartedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Duration:  42 * time.Second,
		Results: []*scenario.Result{
			{
				ScenarioID: "tc004",
				Name:       "Room selection",
				Status:     scenario.StatusCompleted,
				Verdict:    scenario.VerdictPassed,
				Duration:   8 * time.Second,
				Steps: []scenario.StepRecord{
					{Index: 0, Kind: scenario.KindNavigate, Label: "/", Outcome: executor.OutcomeCommitted, Candidate: -1},
					{Index: 1, Kind: scenario.KindClick, Label: "start", Outcome: executor.OutcomeSuccess, Candidate: 1, Attempts: 1},
				},
				Assertion: &executor.AssertionResult{Outcome: executor.OutcomePassed, Expected: "Available Rooms", Elapsed: 200 * time.Millisecond},
			},
			{
				ScenarioID: "tc007",
				Name:       "Payment",
				Status:     scenario.StatusCompleted,
				Verdict:    scenario.VerdictFailed,
				Failure:    paymentErr.Error(),
				Duration:   12 * time.Second,
				Steps: []scenario.StepRecord{
					{Index: 0, Kind: scenario.KindClick, Label: "pay", Outcome: executor.OutcomeNotFound, Candidate: -1, Err: executor.ErrNotFound},
				},
				Assertion: &executor.AssertionResult{Outcome: executor.OutcomeFailed, Expected: "Payment Successful", Err: paymentErr},
			},
			{
				ScenarioID:  "tc009",
				Name:        "Idle",
				Status:      scenario.StatusAborted,
				Verdict:     scenario.VerdictFailed,
				Err:         errors.New("failed to open browser session: boom"),
				Failure:     "failed to open browser session: boom",
				TeardownErr: errors.New("page: target closed"),
			},
			{
				ScenarioID: "tc012",
				Name:       "Smoke",
				Status:     scenario.StatusCompleted,
				Verdict:    scenario.VerdictNoOracle,
			},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("should write to stdout for an empty or stdout path", func(t *testing.T) {
		for _, path := range []string{"", "stdout"} {
			r, err := reporting.New("text", path)
			require.NoError(t, err)
			assert.IsType(t, &reporting.TextReporter{}, r)
			assert.NoError(t, r.Close())
		}
	})

	t.Run("should create the output file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.xml")
		r, err := reporting.New("junit", path)
		require.NoError(t, err)
		assert.IsType(t, &reporting.JUnitReporter{}, r)
		require.NoError(t, r.Write(sampleReport()))
		require.NoError(t, r.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<testsuites")
	})

	t.Run("should reject unknown formats and still create nothing usable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.sarif")
		r, err := reporting.New("sarif", path)
		assert.Nil(t, r)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format: sarif")
	})

	t.Run("should fail when the output directory does not exist", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "report.json")
		r, err := reporting.New("json", path)
		assert.Nil(t, r)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create output file")
	})

	t.Run("should accept format names in any case", func(t *testing.T) {
		r, err := reporting.NewWithWriter("JSON", &bufCloser{})
		require.NoError(t, err)
		assert.IsType(t, &reporting.JSONReporter{}, r)
	})
}

func TestTextReporter(t *testing.T) {
	buf := &bufCloser{}
	r, err := reporting.NewWithWriter("text", buf)
	require.NoError(t, err)

	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	out := buf.String()
	assert.Contains(t, out, "driver chromedp")
	assert.Contains(t, out, "PASS   tc004")
	assert.Contains(t, out, "FAIL   tc007")
	assert.Contains(t, out, "ABORT  tc009")
	assert.Contains(t, out, "DONE   tc012")
	assert.Contains(t, out, `expected text "Payment Successful" was not visible after 3s`)
	assert.Contains(t, out, `step 1 click "pay": not_found`)
	assert.Contains(t, out, "teardown: page: target closed")
	assert.Contains(t, out, "4 scenarios: 2 passed (1 without oracle), 1 failed, 1 aborted")
	assert.NotContains(t, out, `"start"`, "successful steps are not listed")
}

func TestJSONReporter(t *testing.T) {
	buf := &bufCloser{}
	r, err := reporting.NewWithWriter("json", buf)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))

	var doc reporting.Document
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", doc.RunID)
	assert.False(t, doc.OK)
	assert.Equal(t, reporting.Summary{Total: 4, Passed: 2, Failed: 1, Aborted: 1, NoOracle: 1}, doc.Summary)
	require.Len(t, doc.Scenarios, 4)

	passed := doc.Scenarios[0]
	require.Len(t, passed.Steps, 2)
	assert.Nil(t, passed.Steps[0].Candidate, "navigation steps carry no candidate")
	require.NotNil(t, passed.Steps[1].Candidate)
	assert.Equal(t, 1, *passed.Steps[1].Candidate)
	assert.Equal(t, 2, passed.Steps[1].Index)
	assert.Equal(t, "Available Rooms", passed.Assertion.Expected)

	failed := doc.Scenarios[1]
	assert.Equal(t, "failed", failed.Verdict)
	assert.Contains(t, failed.Assertion.Error, "Payment Successful")
	assert.Equal(t, executor.ErrNotFound.Error(), failed.Steps[0].Error)

	aborted := doc.Scenarios[2]
	assert.Equal(t, "aborted", aborted.Status)
	assert.Equal(t, "page: target closed", aborted.Teardown)
	assert.Nil(t, aborted.Assertion)
}

func TestJUnitReporter(t *testing.T) {
	buf := &bufCloser{}
	r, err := reporting.NewWithWriter("junit", buf)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	suite := doc.FindElement("/testsuites/testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "4", suite.SelectAttrValue("tests", ""))
	assert.Equal(t, "1", suite.SelectAttrValue("failures", ""))
	assert.Equal(t, "1", suite.SelectAttrValue("errors", ""))
	assert.Equal(t, "42.000", suite.SelectAttrValue("time", ""))

	cases := suite.SelectElements("testcase")
	require.Len(t, cases, 4)
	assert.Empty(t, cases[0].ChildElements())

	failure := cases[1].SelectElement("failure")
	require.NotNil(t, failure)
	assert.Contains(t, failure.SelectAttrValue("message", ""), "Payment Successful")
	assert.Contains(t, failure.Text(), "1. click pay: not_found")

	require.NotNil(t, cases[2].SelectElement("error"))
	require.NotNil(t, cases[2].SelectElement("system-err"))
	require.NotNil(t, cases[3].SelectElement("system-out"))

	driver := suite.FindElement("properties/property[@name='driver']")
	require.NotNil(t, driver)
	assert.Equal(t, "chromedp", driver.SelectAttrValue("value", ""))
}
