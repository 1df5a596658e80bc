// internal/scenario/scenario.go
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/browser"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/executor"
)

// Scenario is one declarative UI check: a sequence of steps followed by an
// optional final visibility oracle.
type Scenario struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Tags        []string        `yaml:"tags,omitempty"`
	BaseURL     string          `yaml:"base_url,omitempty"`
	Budget      time.Duration   `yaml:"budget,omitempty"`
	Linger      time.Duration   `yaml:"linger,omitempty"`
	Policy      *PolicyOverride `yaml:"policy,omitempty"`
	Steps       []Step          `yaml:"steps"`
	Expect      *Expectation    `yaml:"expect,omitempty"`

	// Source is the file the scenario was loaded from, if any.
	Source string `yaml:"-"`
}

// Step holds exactly one of its kinds.
type Step struct {
	Navigate *NavigateStep `yaml:"navigate,omitempty"`
	Click    *ClickStep    `yaml:"click,omitempty"`
	Wait     *WaitStep     `yaml:"wait,omitempty"`
	Assert   *AssertStep   `yaml:"assert,omitempty"`
	// Note is free text shown in logs.
	Note string `yaml:"note,omitempty"`
}

// Step kinds.
const (
	KindNavigate = "navigate"
	KindClick    = "click"
	KindWait     = "wait"
	KindAssert   = "assert"
)

// Kind names the populated step kind, or "" when none or several are set.
func (s Step) Kind() string {
	var kinds []string
	if s.Navigate != nil {
		kinds = append(kinds, KindNavigate)
	}
	if s.Click != nil {
		kinds = append(kinds, KindClick)
	}
	if s.Wait != nil {
		kinds = append(kinds, KindWait)
	}
	if s.Assert != nil {
		kinds = append(kinds, KindAssert)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

type NavigateStep struct {
	URL       string        `yaml:"url"`
	WaitUntil string        `yaml:"wait_until,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Required  bool          `yaml:"required,omitempty"`
}

// ClickStep clicks the first visible candidate. Candidates use the locator
// syntax accepted by browser.ParseLocator.
type ClickStep struct {
	Name       string        `yaml:"name,omitempty"`
	Candidates []string      `yaml:"candidates"`
	Recover    *NavigateStep `yaml:"recover,omitempty"`
	Required   bool          `yaml:"required,omitempty"`

	locators []browser.Locator
}

// Locators returns the parsed candidates.
func (c *ClickStep) Locators() ([]browser.Locator, error) {
	if c.locators != nil {
		return c.locators, nil
	}
	locs := make([]browser.Locator, 0, len(c.Candidates))
	for i, raw := range c.Candidates {
		loc, err := browser.ParseLocator(raw)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i+1, err)
		}
		locs = append(locs, loc)
	}
	c.locators = locs
	return locs, nil
}

// WaitStep pauses the flow. It accepts both "wait: 2s" and "wait: {duration: 2s}".
type WaitStep struct {
	Duration time.Duration `yaml:"duration"`
}

func (w *WaitStep) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d, err := time.ParseDuration(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: invalid wait duration %q: %w", node.Line, node.Value, err)
		}
		w.Duration = d
		return nil
	}
	type plain WaitStep
	return node.Decode((*plain)(w))
}

// AssertStep is an intermediate visibility check.
type AssertStep struct {
	Text        string        `yaml:"text"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Required    bool          `yaml:"required,omitempty"`
}

// Expectation is the scenario's final oracle.
type Expectation struct {
	Text        string        `yaml:"text"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Description string        `yaml:"description,omitempty"`
}

// PolicyOverride replaces individual retry policy fields for one scenario.
type PolicyOverride struct {
	MaxAttempts       *int           `yaml:"max_attempts,omitempty"`
	GracePeriod       *time.Duration `yaml:"grace_period,omitempty"`
	ClickTimeout      *time.Duration `yaml:"click_timeout,omitempty"`
	InterAttemptDelay *time.Duration `yaml:"inter_attempt_delay,omitempty"`
	Budget            *time.Duration `yaml:"budget,omitempty"`
	NavigationTimeout *time.Duration `yaml:"navigation_timeout,omitempty"`
	AssertTimeout     *time.Duration `yaml:"assert_timeout,omitempty"`
}

// Apply returns base with the overridden fields replaced. A nil override is a no-op.
func (o *PolicyOverride) Apply(base executor.Policy) executor.Policy {
	if o == nil {
		return base
	}
	if o.MaxAttempts != nil {
		base.MaxAttempts = *o.MaxAttempts
	}
	if o.GracePeriod != nil {
		base.GracePeriod = *o.GracePeriod
	}
	if o.ClickTimeout != nil {
		base.ClickTimeout = *o.ClickTimeout
	}
	if o.InterAttemptDelay != nil {
		base.InterAttemptDelay = *o.InterAttemptDelay
	}
	if o.Budget != nil {
		base.Budget = *o.Budget
	}
	if o.NavigationTimeout != nil {
		base.NavigationTimeout = *o.NavigationTimeout
	}
	if o.AssertTimeout != nil {
		base.AssertTimeout = *o.AssertTimeout
	}
	return base
}

// Parse decodes and validates a single scenario document. Unknown keys are errors.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty scenario document")
		}
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Source = path
	return sc, nil
}

// LoadFS reads every .yaml and .yml file under dir in fsys, sorted by path.
func LoadFS(fsys fs.FS, dir string) ([]*Scenario, error) {
	var paths []string
	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isScenarioFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios in %s: %w", dir, err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario file: %w", err)
		}
		sc, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		sc.Source = p
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// isScenarioFile reports whether a directory walk should parse path. The
// kioskprobe config file often sits next to the scenarios and is skipped.
func isScenarioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) != config.FileName
}

// LoadPaths loads files and directories from disk. Duplicate IDs are rejected.
func LoadPaths(paths ...string) ([]*Scenario, error) {
	var all []*Scenario
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			found, err := LoadFS(os.DirFS(p), ".")
			if err != nil {
				return nil, err
			}
			for _, sc := range found {
				sc.Source = filepath.Join(p, sc.Source)
			}
			all = append(all, found...)
			continue
		}
		sc, err := Load(p)
		if err != nil {
			return nil, err
		}
		all = append(all, sc)
	}
	if err := checkUniqueIDs(all); err != nil {
		return nil, err
	}
	return all, nil
}

func checkUniqueIDs(scenarios []*Scenario) error {
	seen := make(map[string]string, len(scenarios))
	for _, sc := range scenarios {
		if prev, ok := seen[sc.ID]; ok {
			return fmt.Errorf("duplicate scenario id %q in %s and %s", sc.ID, prev, sc.Source)
		}
		seen[sc.ID] = sc.Source
	}
	return nil
}

// Validate checks the scenario and pre-parses its locators.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("scenario id is required")
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s has no steps", s.ID)
	}
	if s.Budget < 0 || s.Linger < 0 {
		return fmt.Errorf("scenario %s: budget and linger must not be negative", s.ID)
	}
	if s.BaseURL != "" {
		if _, err := absoluteURL(s.BaseURL); err != nil {
			return fmt.Errorf("scenario %s: base_url: %w", s.ID, err)
		}
	}

	for i := range s.Steps {
		if err := s.Steps[i].validate(); err != nil {
			return fmt.Errorf("scenario %s step %d: %w", s.ID, i+1, err)
		}
	}

	if s.Expect != nil {
		if s.Expect.Text == "" {
			return fmt.Errorf("scenario %s: expect.text is required", s.ID)
		}
		if s.Expect.Timeout < 0 {
			return fmt.Errorf("scenario %s: expect.timeout must not be negative", s.ID)
		}
	}
	return nil
}

func (s *Step) validate() error {
	switch s.Kind() {
	case KindNavigate:
		return s.Navigate.validate()
	case KindClick:
		if len(s.Click.Candidates) == 0 {
			return fmt.Errorf("click needs at least one candidate")
		}
		if _, err := s.Click.Locators(); err != nil {
			return err
		}
		if s.Click.Recover != nil {
			if err := s.Click.Recover.validate(); err != nil {
				return fmt.Errorf("recover: %w", err)
			}
		}
	case KindWait:
		if s.Wait.Duration <= 0 {
			return fmt.Errorf("wait duration must be positive")
		}
	case KindAssert:
		if s.Assert.Text == "" {
			return fmt.Errorf("assert needs text")
		}
	default:
		return fmt.Errorf("step must set exactly one of navigate, click, wait, assert")
	}
	return nil
}

func (n *NavigateStep) validate() error {
	if strings.TrimSpace(n.URL) == "" {
		return fmt.Errorf("navigate needs a url")
	}
	if _, err := url.Parse(n.URL); err != nil {
		return fmt.Errorf("invalid url %q: %w", n.URL, err)
	}
	if _, err := browser.ParseWaitUntil(n.WaitUntil); err != nil {
		return err
	}
	if n.Timeout < 0 {
		return fmt.Errorf("navigate timeout must not be negative")
	}
	return nil
}

// ResolveURL resolves ref against base. Absolute refs are returned unchanged.
func ResolveURL(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}
	b, err := absoluteURL(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func absoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("url %q must be absolute", raw)
	}
	return u, nil
}

// Filter keeps scenarios whose ID or name contains any of the comma-separated
// terms, case-insensitively. An empty filter keeps everything.
func Filter(scenarios []*Scenario, filter string) []*Scenario {
	var terms []string
	for _, t := range strings.Split(filter, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return scenarios
	}

	var kept []*Scenario
	for _, sc := range scenarios {
		id, name := strings.ToLower(sc.ID), strings.ToLower(sc.Name)
		for _, t := range terms {
			if strings.Contains(id, t) || strings.Contains(name, t) {
				kept = append(kept, sc)
				break
			}
		}
	}
	return kept
}
