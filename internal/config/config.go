// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file's base name without extension.
const FileName = "kioskprobe"

// Supported browser drivers.
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
)

// Supported report formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJUnit = "junit"
)

// Interface is the read-only view of a loaded configuration.
type Interface interface {
	Logger() LoggerConfig
	Target() TargetConfig
	Browser() BrowserConfig
	Executor() ExecutorConfig
	Runner() RunnerConfig
	Report() ReportConfig
	Store() StoreConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	TargetCfg   TargetConfig   `mapstructure:"target" yaml:"target"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	ExecutorCfg ExecutorConfig `mapstructure:"executor" yaml:"executor"`
	RunnerCfg   RunnerConfig   `mapstructure:"runner" yaml:"runner"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
	StoreCfg    StoreConfig    `mapstructure:"store" yaml:"store"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Target() TargetConfig     { return c.TargetCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Executor() ExecutorConfig { return c.ExecutorCfg }
func (c *Config) Runner() RunnerConfig     { return c.RunnerCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }
func (c *Config) Store() StoreConfig       { return c.StoreCfg }

type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// TargetConfig describes the application under test.
type TargetConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// BrowserConfig controls how the automation runtime is launched.
type BrowserConfig struct {
	Driver         string        `mapstructure:"driver" yaml:"driver"`
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	WindowWidth    int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight   int           `mapstructure:"window_height" yaml:"window_height"`
	DisableDevShm  bool          `mapstructure:"disable_dev_shm" yaml:"disable_dev_shm"`
	NoSandbox      bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	SingleProcess  bool          `mapstructure:"single_process" yaml:"single_process"`
	// IPC is passed as --ipc=<value>. Empty omits the switch.
	IPC            string        `mapstructure:"ipc" yaml:"ipc"`
	Args           []string      `mapstructure:"args" yaml:"args"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	// ExecPath overrides the browser binary. Empty means driver default.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
}

// ExecutorConfig holds the shared retry policy used by every action.
type ExecutorConfig struct {
	GracePeriod       time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
	ClickTimeout      time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	AssertTimeout     time.Duration `mapstructure:"assert_timeout" yaml:"assert_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SettleTimeout     time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InterAttemptDelay time.Duration `mapstructure:"inter_attempt_delay" yaml:"inter_attempt_delay"`
	// ActionBudget caps the wall-clock time of one action across all attempts. Zero is unbounded.
	ActionBudget time.Duration `mapstructure:"action_budget" yaml:"action_budget"`
}

// RunnerConfig controls scenario and suite execution.
type RunnerConfig struct {
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	ScenarioBudget time.Duration `mapstructure:"scenario_budget" yaml:"scenario_budget"`
	Linger         time.Duration `mapstructure:"linger" yaml:"linger"`
	Filter         string        `mapstructure:"filter" yaml:"filter"`
}

type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// StoreConfig enables persisting run history to PostgreSQL.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "kioskprobe")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:3000")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 720)
	v.SetDefault("browser.disable_dev_shm", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.single_process", false)
	v.SetDefault("browser.ipc", "host")
	v.SetDefault("browser.default_timeout", "5s")

	// -- Executor --
	v.SetDefault("executor.grace_period", "3s")
	v.SetDefault("executor.click_timeout", "5s")
	v.SetDefault("executor.navigation_timeout", "10s")
	v.SetDefault("executor.assert_timeout", "3s")
	v.SetDefault("executor.poll_interval", "100ms")
	v.SetDefault("executor.settle_timeout", "3s")
	v.SetDefault("executor.max_attempts", 1)
	v.SetDefault("executor.inter_attempt_delay", "0s")
	v.SetDefault("executor.action_budget", "0s")

	// -- Runner --
	v.SetDefault("runner.concurrency", 1)
	v.SetDefault("runner.scenario_budget", "5m")
	v.SetDefault("runner.linger", "0s")

	// -- Report --
	v.SetDefault("report.format", FormatText)
	v.SetDefault("report.output", "stdout")

	// -- Store --
	v.SetDefault("store.enabled", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials for the history store should come from the environment.
	_ = v.BindEnv("store.dsn", "KIOSKPROBE_STORE_DSN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.TargetCfg.Validate(); err != nil {
		return fmt.Errorf("target configuration invalid: %w", err)
	}
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.ExecutorCfg.Validate(); err != nil {
		return fmt.Errorf("executor configuration invalid: %w", err)
	}
	if c.RunnerCfg.Concurrency <= 0 {
		return fmt.Errorf("runner.concurrency must be a positive integer")
	}
	if c.RunnerCfg.ScenarioBudget < 0 {
		return fmt.Errorf("runner.scenario_budget must not be negative")
	}
	switch strings.ToLower(c.ReportCfg.Format) {
	case FormatText, FormatJSON, FormatJUnit:
	default:
		return fmt.Errorf("report.format %q is not supported (text, json, junit)", c.ReportCfg.Format)
	}
	if c.StoreCfg.Enabled && c.StoreCfg.DSN == "" {
		return fmt.Errorf("store.dsn is required when the store is enabled. Ensure KIOSKPROBE_STORE_DSN is set")
	}
	return nil
}

// Validate checks the target settings.
func (t *TargetConfig) Validate() error {
	if t.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https, got %q", u.Scheme)
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch b.Driver {
	case DriverChromedp, DriverPlaywright, DriverRod:
	default:
		return fmt.Errorf("driver %q is not supported (chromedp, playwright, rod)", b.Driver)
	}
	if b.WindowWidth <= 0 || b.WindowHeight <= 0 {
		return fmt.Errorf("window_width and window_height must be positive")
	}
	if b.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the executor retry policy.
func (e *ExecutorConfig) Validate() error {
	if e.GracePeriod < 0 {
		return fmt.Errorf("grace_period must not be negative")
	}
	if e.ClickTimeout <= 0 || e.NavigationTimeout <= 0 || e.AssertTimeout <= 0 {
		return fmt.Errorf("click_timeout, navigation_timeout and assert_timeout must be positive durations")
	}
	if e.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if e.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if e.InterAttemptDelay < 0 || e.ActionBudget < 0 || e.SettleTimeout < 0 {
		return fmt.Errorf("inter_attempt_delay, action_budget and settle_timeout must not be negative")
	}
	return nil
}
