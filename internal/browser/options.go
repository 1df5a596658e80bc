// internal/browser/options.go
package browser

import (
	"fmt"
	"strings"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

// LaunchFlag is one Chromium command-line switch. An empty Value is a boolean switch.
type LaunchFlag struct {
	Name  string
	Value string
}

// Arg renders the flag as a command-line argument.
func (f LaunchFlag) Arg() string {
	if f.Value == "" {
		return "--" + f.Name
	}
	return "--" + f.Name + "=" + f.Value
}

// LaunchFlags derives the Chromium switches shared by every driver from the
// browser configuration. Headless mode is left to each driver's native option.
func LaunchFlags(cfg config.BrowserConfig) []LaunchFlag {
	var flags []LaunchFlag

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		flags = append(flags, LaunchFlag{Name: "window-size", Value: fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)})
	}
	if cfg.DisableDevShm {
		// /dev/shm is tiny in most containers.
		flags = append(flags, LaunchFlag{Name: "disable-dev-shm-usage"})
	}
	if cfg.NoSandbox {
		flags = append(flags, LaunchFlag{Name: "no-sandbox"})
	}
	if cfg.SingleProcess {
		flags = append(flags, LaunchFlag{Name: "single-process"})
	}
	if ipc := strings.TrimSpace(cfg.IPC); ipc != "" {
		flags = append(flags, LaunchFlag{Name: "ipc", Value: ipc})
	}

	// User-provided args may be "--flag" or "--flag=value".
	for _, arg := range cfg.Args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		name, value, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		flags = append(flags, LaunchFlag{Name: name, Value: value})
	}
	return flags
}

// LaunchArgs renders LaunchFlags as command-line arguments.
func LaunchArgs(cfg config.BrowserConfig) []string {
	flags := LaunchFlags(cfg)
	args := make([]string, 0, len(flags))
	for _, f := range flags {
		args = append(args, f.Arg())
	}
	return args
}
