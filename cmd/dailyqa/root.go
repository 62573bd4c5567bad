package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/dailyqa/internal/fsutil"
	"github.com/banshee-data/dailyqa/internal/monitoring"
	"github.com/banshee-data/dailyqa/internal/timeutil"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext(fsutil.OSFileSystem{}, timeutil.RealClock{})
	return newRootCommandWith(ctx)
}

func newRootCommandWith(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dailyqa",
		Short:         "Daily redshift recovery QA for the bright galaxy survey",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			monitoring.SetVerbose(ctx.verbose)
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path (JSON)")
	rootCmd.PersistentFlags().StringVar(&ctx.dbPath, "db", "", "Results database path (overrides database_path)")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Print extra diagnostics")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newPlotCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
