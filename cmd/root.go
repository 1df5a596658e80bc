// cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/observability"
)

type ctxKey string

const configKey ctxKey = "config"

// flagBindings maps command flags onto the configuration keys they override.
// A flag is bound only when the running command defines it.
var flagBindings = map[string]string{
	"log-level":    "logger.level",
	"base-url":     "target.base_url",
	"driver":       "browser.driver",
	"headless":     "browser.headless",
	"exec-path":    "browser.exec_path",
	"max-attempts": "executor.max_attempts",
	"concurrency":  "runner.concurrency",
	"linger":       "runner.linger",
	"filter":       "runner.filter",
	"format":       "report.format",
	"output":       "report.output",
	"store":        "store.enabled",
}

// NewRootCommand builds a fresh command tree using the production browser and
// store wiring.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(deps dependencies) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "kioskprobe",
		Short:         "kioskprobe drives the hotel kiosk UI through scripted check-in scenarios.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			// 1. Locate the config file and environment.
			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// 2. Build and validate the configuration.
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "kioskprobe"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			// 3. Logger.
			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting kioskprobe", zap.String("version", Version), zap.String("command", cmd.Name()))

			// 4. Hand the config to subcommands.
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./kioskprobe.yaml or ~/.kioskprobe/kioskprobe.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(deps),
		newListCmd(),
		newValidateCmd(),
		newHistoryCmd(deps),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with ctx, which should be cancelled on SIGINT.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		switch {
		case errors.Is(err, errSuiteFailed):
			// The report already describes the failures.
		case errors.Is(err, context.Canceled):
			observability.GetLogger().Warn("Run interrupted.")
		default:
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		}
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file, if any, and environment variables,
// then binds the flags the running command defines.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".kioskprobe"))
		}
		v.SetConfigName(config.FileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("KIOSKPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	for name, key := range flagBindings {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// getConfigFromContext returns the configuration loaded by the root command.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	return cfg, nil
}
