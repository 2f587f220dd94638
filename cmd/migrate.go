package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"helpfinder/internal/config"
	"helpfinder/internal/repositories/pgdb"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back Postgres schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := postgresDSN()
		if err != nil {
			return err
		}
		applied, err := pgdb.MigrateUp(dsn)
		if err != nil {
			return err
		}
		if applied {
			cmd.Println("migrations applied")
		} else {
			cmd.Println("schema is up to date")
		}
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateSteps <= 0 {
			return errors.New("--steps must be positive")
		}
		dsn, err := postgresDSN()
		if err != nil {
			return err
		}
		if err := pgdb.MigrateDown(dsn, migrateSteps); err != nil {
			return err
		}
		cmd.Printf("rolled back %d migration(s)\n", migrateSteps)
		return nil
	},
}

// SQLite migrates itself on open, so only Postgres is handled here.
func postgresDSN() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return "", fmt.Errorf("migrate: driver %q does not use migration files", cfg.Database.Driver)
	}
	return cfg.Database.DSN, nil
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}
