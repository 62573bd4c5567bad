package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/dailyqa/internal/db"
	"github.com/banshee-data/dailyqa/internal/plot"
)

func newPlotCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var outDir string

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render recovery plots for a stored run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDatabase(func(database *db.DB) error {
				var run *db.Run
				var err error
				if runID == "" {
					run, err = database.LatestRun()
				} else {
					run, err = database.GetRun(runID)
				}
				if err != nil {
					return err
				}

				records, err := database.ExposureRecords(run.ID)
				if err != nil {
					return err
				}

				written, err := plot.Render(ctx.fs, outDir, run, records)
				if err != nil {
					return err
				}
				for _, path := range written {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: latest run)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}
