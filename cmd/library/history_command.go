package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent reconciliation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.library.ScanHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(records))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func renderHistory(records []*domain.ScanRecord) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		status := "ok"
		if r.ErrorMessage != "" {
			status = r.ErrorMessage
		}
		rows[i] = []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Root,
			strconv.Itoa(r.FilesFound),
			strconv.Itoa(r.EntriesCreated),
			strconv.Itoa(r.EpisodesUpdated),
			strconv.Itoa(r.Unmatched),
			r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			status,
		}
	}
	return renderTable(
		[]string{"Started", "Root", "Files", "Created", "Updated", "Unmatched", "Duration", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}
