// cmd/list.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list [scenario files or directories...]",
		Short: "List scenarios and their final assertions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			scs, err := loadScenarios(args, cfg.Runner().Filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTEPS\tEXPECTS")
			for _, sc := range scs {
				expects := "-"
				if sc.Expect != nil {
					expects = fmt.Sprintf("%q", sc.Expect.Text)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sc.ID, sc.Name, len(sc.Steps), expects)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().String("filter", "", "comma-separated terms matched against scenario IDs and names")
	return listCmd
}
