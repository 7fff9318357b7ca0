package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dolverin/Anime-Library/internal/library/domain"
	"github.com/Dolverin/Anime-Library/pkg/errors"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var createMissing bool

	cmd := &cobra.Command{
		Use:   "scan [root...]",
		Short: "Scan library roots and update the catalog",
		Long: "Scan each root directory, match the files against the catalog and record local availability.\n" +
			"Without arguments the roots from library.roots are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			roots := args
			if len(roots) == 0 {
				roots = a.cfg.Library.Roots
			}
			if len(roots) == 0 {
				return errors.BadRequest("no library roots given")
			}

			create := a.cfg.Library.CreateMissing
			if cmd.Flags().Changed("create-missing") {
				create = createMissing
			}

			results, err := a.library.ScanLibraries(cmd.Context(), roots, create)
			printScanResults(cmd.OutOrStdout(), results)
			return err
		},
	}

	cmd.Flags().BoolVar(&createMissing, "create-missing", false, "Create catalog entries for unmatched series (default from library.create_missing)")
	return cmd
}

func printScanResults(out io.Writer, results []*domain.ScanResult) {
	if len(results) == 0 {
		return
	}

	rows := make([][]string, 0, len(results))
	var unmatched [][]string
	for _, r := range results {
		rows = append(rows, []string{
			r.Root,
			strconv.Itoa(r.FilesFound),
			strconv.Itoa(r.EntriesTouched),
			strconv.Itoa(r.EntriesCreated),
			strconv.Itoa(r.EpisodesUpdated),
			strconv.Itoa(len(r.Unmatched)),
			r.Duration.Round(time.Millisecond).String(),
		})
		for _, u := range r.Unmatched {
			unmatched = append(unmatched, []string{u.Path, string(u.Reason), u.Title, u.Suggestion})
		}
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Root", "Files", "Touched", "Created", "Updated", "Unmatched", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	if len(unmatched) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Unmatched file", "Reason", "Parsed title", "Closest entry"}, unmatched, nil))
	}
}
