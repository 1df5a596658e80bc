// cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/browser"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/executor"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/observability"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/reporting"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/scenarios"
)

// errSuiteFailed is returned when the suite ran but not every scenario passed.
var errSuiteFailed = errors.New("one or more scenarios failed")

const (
	browserShutdownTimeout = 30 * time.Second
	storeTimeout           = 15 * time.Second
)

func newRunCmd(deps dependencies) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [scenario files or directories...]",
		Short: "Run kiosk scenarios and report the outcome of each",
		Long: `Runs scenarios against the kiosk frontend, each in its own browser session.
Without arguments the built-in kiosk suite is used. The command exits non-zero
when any scenario fails or aborts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runSuite(cmd.Context(), cfg, args, deps, cmd.OutOrStdout())
		},
	}

	flags := runCmd.Flags()
	flags.String("filter", "", "comma-separated terms matched against scenario IDs and names")
	flags.StringP("format", "f", config.FormatText, "report format (text, json, junit)")
	flags.StringP("output", "o", "stdout", "report destination file")
	flags.String("base-url", "", "kiosk frontend base URL")
	flags.String("driver", config.DriverChromedp, "browser driver (chromedp, playwright, rod)")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("exec-path", "", "browser binary to launch")
	flags.IntP("concurrency", "j", 1, "scenarios to run in parallel")
	flags.Int("max-attempts", 1, "passes over an action's candidates before giving up")
	flags.Duration("linger", 0, "longest pause on a scenario's final screen")
	flags.Bool("store", false, "record the run in the history database")
	return runCmd
}

// runSuite loads scenarios, runs them and writes the report.
func runSuite(ctx context.Context, cfg *config.Config, args []string, deps dependencies, stdout io.Writer) error {
	logger := observability.GetLogger()

	// 1. Scenarios.
	scs, err := loadScenarios(args, cfg.Runner().Filter)
	if err != nil {
		return err
	}

	// 2. Reporter. Opened before the browser so a bad output path fails fast.
	rep, err := openReporter(cfg.Report(), stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := rep.Close(); err != nil {
			logger.Warn("Failed to close report output.", zap.Error(err))
		}
	}()

	// 3. Browser.
	b, err := deps.browsers.Create(cfg.Browser(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(browser.Detach(ctx), browserShutdownTimeout)
		defer cancel()
		if err := b.Shutdown(sctx); err != nil {
			logger.Warn("Browser shutdown did not complete cleanly.", zap.Error(err))
		}
	}()

	// 4. Run.
	runner := scenario.NewRunner(b, scenario.Options{
		BaseURL:        cfg.Target().BaseURL,
		Policy:         executor.PolicyFromConfig(cfg.Executor()),
		ScenarioBudget: cfg.Runner().ScenarioBudget,
		MaxLinger:      cfg.Runner().Linger,
	}, logger)
	report := runner.RunSuite(ctx, scs, cfg.Runner().Concurrency)

	// 5. Report.
	if err := rep.Write(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	// 6. History. A database problem never changes the verdict.
	if cfg.Store().Enabled {
		persistRun(ctx, deps.stores, cfg.Store(), report, logger)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if !report.OK() {
		return errSuiteFailed
	}
	return nil
}

// loadScenarios reads scenario paths, or the built-in suite when there are none,
// and applies filter.
func loadScenarios(paths []string, filter string) ([]*scenario.Scenario, error) {
	var (
		scs []*scenario.Scenario
		err error
	)
	if len(paths) > 0 {
		scs, err = scenario.LoadPaths(paths...)
	} else {
		scs, err = scenarios.Builtin()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	scs = scenario.Filter(scs, filter)
	if len(scs) == 0 {
		return nil, fmt.Errorf("no scenarios match filter %q", filter)
	}
	return scs, nil
}

func openReporter(cfg config.ReportConfig, stdout io.Writer) (reporting.Reporter, error) {
	if cfg.Output == "" || cfg.Output == "stdout" {
		return reporting.ToWriter(cfg.Format, stdout)
	}
	return reporting.New(cfg.Format, cfg.Output)
}

func persistRun(ctx context.Context, provider storeProvider, cfg config.StoreConfig, report *scenario.SuiteReport, logger *zap.Logger) {
	sctx, cancel := context.WithTimeout(browser.Detach(ctx), storeTimeout)
	defer cancel()

	s, cleanup, err := provider.Create(sctx, cfg, logger)
	if err != nil {
		logger.Error("Run history is unavailable; results were not recorded.", zap.Error(err))
		return
	}
	defer cleanup()

	if err := s.EnsureSchema(sctx); err != nil {
		logger.Error("Failed to prepare run history schema.", zap.Error(err))
		return
	}
	if err := s.SaveRun(sctx, report); err != nil {
		logger.Error("Failed to record run.", zap.String("run_id", report.RunID.String()), zap.Error(err))
		return
	}
	logger.Info("Run recorded.", zap.String("run_id", report.RunID.String()))
}
