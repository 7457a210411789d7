package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/sitetrack/internal/database"
	"github.com/stwalsh4118/sitetrack/internal/database/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrationDB(cmd.Context(), func(sqlDB *sql.DB) error {
			if err := migrations.MigrateUp(sqlDB); err != nil {
				return err
			}
			status, err := migrations.GetStatus(sqlDB)
			if err != nil {
				return err
			}
			fmt.Printf("Schema is at version %d\n", status.Current)
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied and latest schema versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrationDB(cmd.Context(), func(sqlDB *sql.DB) error {
			status, err := migrations.GetStatus(sqlDB)
			if err != nil {
				return err
			}
			fmt.Printf("Current: %d\nLatest:  %d\nPending: %d\nDirty:   %t\n",
				status.Current, status.Latest, status.Pending(), status.Dirty)
			return nil
		})
	},
}

// withMigrationDB runs fn against a database/sql handle over a fresh pool.
// Both are closed when fn returns.
func withMigrationDB(ctx context.Context, fn func(sqlDB *sql.DB) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"name": cfg.Database.Name,
		})
		return err
	}
	defer db.Close()

	sqlDB := migrations.OpenDB(db.Pool)
	defer sqlDB.Close()

	return fn(sqlDB)
}
