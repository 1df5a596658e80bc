// internal/reporting/json.go
package reporting

import (
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is the serialized form of a suite. Errors are flattened to strings
// and durations to milliseconds so the output is stable across drivers.
type Document struct {
	RunID      string           `json:"run_id"`
	BaseURL    string           `json:"base_url,omitempty"`
	Driver     string           `json:"driver"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMs int64            `json:"duration_ms"`
	OK         bool             `json:"ok"`
	Summary    Summary          `json:"summary"`
	Scenarios  []ScenarioRecord `json:"scenarios"`
}

type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Aborted  int `json:"aborted"`
	NoOracle int `json:"no_oracle"`
}

type ScenarioRecord struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Source     string        `json:"source,omitempty"`
	SessionID  string        `json:"session_id,omitempty"`
	Status     string        `json:"status"`
	Verdict    string        `json:"verdict"`
	Failure    string        `json:"failure,omitempty"`
	Error      string        `json:"error,omitempty"`
	Teardown   string        `json:"teardown_error,omitempty"`
	DurationMs int64         `json:"duration_ms"`
	Assertion  *AssertRecord `json:"assertion,omitempty"`
	Steps      []StepRecord  `json:"steps"`
}

type AssertRecord struct {
	Expected  string `json:"expected"`
	Outcome   string `json:"outcome"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

type StepRecord struct {
	Index     int    `json:"index"`
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	Required  bool   `json:"required,omitempty"`
	Outcome   string `json:"outcome"`
	Candidate *int   `json:"candidate,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// NewDocument converts a suite report into its serialized form.
func NewDocument(report *scenario.SuiteReport) Document {
	c := report.Counts()
	doc := Document{
		RunID:      report.RunID.String(),
		BaseURL:    report.BaseURL,
		Driver:     report.Driver,
		StartedAt:  report.StartedAt.UTC(),
		DurationMs: report.Duration.Milliseconds(),
		OK:         report.OK(),
		Summary: Summary{
			Total:    c.Total,
			Passed:   c.Passed,
			Failed:   c.Failed,
			Aborted:  c.Aborted,
			NoOracle: c.NoOracle,
		},
		Scenarios: make([]ScenarioRecord, 0, len(report.Results)),
	}

	for _, r := range report.Results {
		if r == nil {
			continue
		}
		rec := ScenarioRecord{
			ID:         r.ScenarioID,
			Name:       r.Name,
			Source:     r.Source,
			SessionID:  r.SessionID,
			Status:     string(r.Status),
			Verdict:    string(r.Verdict),
			Failure:    r.Failure,
			Error:      errString(r.Err),
			Teardown:   errString(r.TeardownErr),
			DurationMs: r.Duration.Milliseconds(),
			Steps:      make([]StepRecord, 0, len(r.Steps)),
		}
		if a := r.Assertion; a != nil {
			rec.Assertion = &AssertRecord{
				Expected:  a.Expected,
				Outcome:   string(a.Outcome),
				ElapsedMs: a.Elapsed.Milliseconds(),
				Error:     errString(a.Err),
			}
		}
		for _, s := range r.Steps {
			sr := StepRecord{
				Index:     s.Index + 1,
				Kind:      s.Kind,
				Label:     s.Label,
				Required:  s.Required,
				Outcome:   string(s.Outcome),
				Attempts:  s.Attempts,
				ElapsedMs: s.Elapsed.Milliseconds(),
				Error:     errString(s.Err),
			}
			if s.Kind == scenario.KindClick && s.Candidate >= 0 {
				idx := s.Candidate
				sr.Candidate = &idx
			}
			rec.Steps = append(rec.Steps, sr)
		}
		doc.Scenarios = append(doc.Scenarios, rec)
	}
	return doc
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// JSONReporter writes one indented JSON document per suite.
type JSONReporter struct {
	w io.WriteCloser
}

func (r *JSONReporter) Write(report *scenario.SuiteReport) error {
	data, err := json.MarshalIndent(NewDocument(report), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := r.w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.w.Close()
}
