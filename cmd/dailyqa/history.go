package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/banshee-data/dailyqa/internal/db"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored scan runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDatabase(func(database *db.DB) error {
				runs, err := database.ListRuns(limit)
				if err != nil {
					return err
				}
				renderRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func renderRuns(out io.Writer, runs []db.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run", "Started", "Finished", "Version", "Reported", "Skipped", "Failed", "BGS %", "Bright %", "Faint %"})
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format(time.RFC3339)
		}
		tw.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			finished,
			r.Version,
			r.Reported,
			r.Skipped,
			r.Failed,
			formatMean(r.MeanBGS),
			formatMean(r.MeanBright),
			formatMean(r.MeanFaint),
		})
	}
	fmt.Fprintln(out, tw.Render())
}

func formatMean(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}
