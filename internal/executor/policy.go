// internal/executor/policy.go
package executor

import (
	"time"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

// Policy is the single retry policy shared by every action, navigation and
// assertion an executor performs.
type Policy struct {
	// MaxAttempts is how many passes over the candidate list an action gets.
	MaxAttempts int
	// GracePeriod is how long each candidate may take to become visible. Zero
	// clicks immediately without waiting.
	GracePeriod  time.Duration
	ClickTimeout time.Duration
	// InterAttemptDelay is slept between passes, after any recovery navigation.
	InterAttemptDelay time.Duration
	// Budget caps one action across all attempts. Zero is unbounded.
	Budget time.Duration

	NavigationTimeout time.Duration
	SettleTimeout     time.Duration
	AssertTimeout     time.Duration
	PollInterval      time.Duration
}

// DefaultPolicy matches the timings the kiosk checks were written against.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       1,
		GracePeriod:       3 * time.Second,
		ClickTimeout:      5 * time.Second,
		NavigationTimeout: 10 * time.Second,
		SettleTimeout:     3 * time.Second,
		AssertTimeout:     3 * time.Second,
		PollInterval:      100 * time.Millisecond,
	}
}

// PolicyFromConfig builds a policy from the executor configuration section.
func PolicyFromConfig(cfg config.ExecutorConfig) Policy {
	return Policy{
		MaxAttempts:       cfg.MaxAttempts,
		GracePeriod:       cfg.GracePeriod,
		ClickTimeout:      cfg.ClickTimeout,
		InterAttemptDelay: cfg.InterAttemptDelay,
		Budget:            cfg.ActionBudget,
		NavigationTimeout: cfg.NavigationTimeout,
		SettleTimeout:     cfg.SettleTimeout,
		AssertTimeout:     cfg.AssertTimeout,
		PollInterval:      cfg.PollInterval,
	}.normalized()
}

// normalized fills values that would otherwise make operations spin or never run.
func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.GracePeriod < 0 {
		p.GracePeriod = 0
	}
	if p.ClickTimeout <= 0 {
		p.ClickTimeout = d.ClickTimeout
	}
	if p.NavigationTimeout <= 0 {
		p.NavigationTimeout = d.NavigationTimeout
	}
	if p.AssertTimeout <= 0 {
		p.AssertTimeout = d.AssertTimeout
	}
	if p.PollInterval <= 0 {
		p.PollInterval = d.PollInterval
	}
	if p.InterAttemptDelay < 0 {
		p.InterAttemptDelay = 0
	}
	if p.Budget < 0 {
		p.Budget = 0
	}
	if p.SettleTimeout < 0 {
		p.SettleTimeout = 0
	}
	return p
}
