package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarang-screening-server/internal/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	var dir string
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "path to the migrations directory (default: database.migrations_path)")

	run := func(action func(*database.MigrationRunner) error) error {
		configManager, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := configManager.GetConfig()
		logger, err := newLogger(cfg.Logging)
		if err != nil {
			return err
		}

		path := dir
		if path == "" {
			path = cfg.Database.MigrationsPath
		}
		runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), path, logger)
		if err != nil {
			return err
		}
		defer runner.Close()
		return action(runner)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(r *database.MigrationRunner) error { return r.Up() })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(r *database.MigrationRunner) error { return r.Down() })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(r *database.MigrationRunner) error {
				v, dirty, err := r.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	})

	return cmd
}
