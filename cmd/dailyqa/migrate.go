package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/dailyqa/internal/db"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the results database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUnmigratedDatabase(ctx, func(database *db.DB) error {
				if err := database.MigrateUp(db.MigrationsFS()); err != nil {
					return err
				}
				version, dirty, err := database.MigrateVersion(db.MigrationsFS())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d (dirty: %v)\n", version, dirty)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUnmigratedDatabase(ctx, func(database *db.DB) error {
				if err := database.MigrateDown(db.MigrationsFS()); err != nil {
					return err
				}
				version, dirty, err := database.MigrateVersion(db.MigrationsFS())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d (dirty: %v)\n", version, dirty)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUnmigratedDatabase(ctx, func(database *db.DB) error {
				version, dirty, err := database.MigrateVersion(db.MigrationsFS())
				if err != nil {
					return err
				}
				latest, err := db.LatestMigrationVersion(db.MigrationsFS())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Current version: %d\n", version)
				fmt.Fprintf(out, "Latest version: %d\n", latest)
				fmt.Fprintf(out, "Dirty: %v\n", dirty)
				if err := database.CheckMigrations(db.MigrationsFS()); err != nil {
					fmt.Fprintf(out, "Status: %v\n", err)
				} else {
					fmt.Fprintln(out, "Status: up to date")
				}
				return nil
			})
		},
	})

	return cmd
}

// withUnmigratedDatabase opens the database without applying migrations.
func withUnmigratedDatabase(ctx *commandContext, fn func(*db.DB) error) error {
	path, err := ctx.databasePath()
	if err != nil {
		return err
	}
	if path == "" {
		return errNoDatabase
	}
	database, err := db.OpenDB(path)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}
