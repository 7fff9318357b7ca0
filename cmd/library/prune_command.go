package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop local availability for files that no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.library.PruneMissing(cmd.Context(), dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Missing) > 0 {
				rows := make([][]string, len(result.Missing))
				for i, path := range result.Missing {
					rows[i] = []string{path}
				}
				fmt.Fprintln(out, renderTable([]string{"Missing file"}, rows, nil))
			}
			if result.DryRun {
				fmt.Fprintf(out, "Checked %d episodes, %d missing (dry run, nothing changed)\n", result.Checked, len(result.Missing))
				return nil
			}
			fmt.Fprintf(out, "Checked %d episodes, pruned %d\n", result.Checked, result.Pruned)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report missing files without changing the catalog")
	return cmd
}
