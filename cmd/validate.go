// cmd/validate.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/scenarios"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scenario files or directories...]",
		Short: "Check scenario files without starting a browser",
		Long: `Parses every scenario, checks its steps and locators, and reports every
problem found instead of stopping at the first. Without arguments the built-in
suite is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				scs, err := scenarios.Builtin()
				if err != nil {
					return fmt.Errorf("built-in suite is invalid: %w", err)
				}
				fmt.Fprintf(out, "%d built-in scenarios are valid\n", len(scs))
				return nil
			}

			var errs []error
			total := 0
			for _, p := range args {
				scs, err := scenario.LoadPaths(p)
				if err != nil {
					fmt.Fprintf(out, "FAIL  %s: %v\n", p, err)
					errs = append(errs, err)
					continue
				}
				for _, sc := range scs {
					fmt.Fprintf(out, "ok    %s (%s)\n", sc.ID, sc.Source)
				}
				total += len(scs)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d paths are invalid: %w", len(errs), len(args), errors.Join(errs...))
			}
			fmt.Fprintf(out, "%d scenarios are valid\n", total)
			return nil
		},
	}
}
