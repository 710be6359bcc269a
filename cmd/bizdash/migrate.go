package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bizdash-go/internal/domain/session/store"
	platformstorage "bizdash-go/internal/platform/storage"
)

func newMigrateCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect and manage the sqlite session schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrations(cmd, root, func(ctx context.Context, m *platformstorage.MigrationManager) error {
					if err := m.RunMigrations(ctx); err != nil {
						return err
					}
					return printStatus(ctx, cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrations(cmd, root, func(ctx context.Context, m *platformstorage.MigrationManager) error {
					return printStatus(ctx, cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "rollback <version>",
			Short: "Revert one applied migration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrations(cmd, root, func(ctx context.Context, m *platformstorage.MigrationManager) error {
					if err := m.RollbackMigration(ctx, args[0]); err != nil {
						return err
					}
					return printStatus(ctx, cmd, m)
				})
			},
		},
	)
	return cmd
}

// withMigrations opens the configured sqlite database without applying
// anything, so status reports the schema as it is on disk.
func withMigrations(cmd *cobra.Command, root *rootFlags, fn func(ctx context.Context, m *platformstorage.MigrationManager) error) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Session.Driver != store.DriverSQLite {
		return fmt.Errorf("migrations apply to the %s session driver only, configured driver is %q", store.DriverSQLite, cfg.Session.Driver)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := platformstorage.ConnectSQLite(cfg.Session.SQLite.DSN)
	if err != nil {
		return err
	}
	defer platformstorage.CloseSQLite(db)
	return fn(ctx, platformstorage.SessionMigrations(db))
}

type migrationStatus struct {
	Version   string     `json:"version"`
	Name      string     `json:"name"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

func printStatus(ctx context.Context, cmd *cobra.Command, m *platformstorage.MigrationManager) error {
	history, err := m.History(ctx)
	if err != nil {
		return err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}

	applied := make([]migrationStatus, 0, len(history))
	for _, r := range history {
		at := r.AppliedAt
		applied = append(applied, migrationStatus{Version: r.Version, Name: r.Name, AppliedAt: &at})
	}
	waiting := make([]migrationStatus, 0, len(pending))
	for _, p := range pending {
		waiting = append(waiting, migrationStatus{Version: p.Version(), Name: p.Description()})
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"applied": applied,
		"pending": waiting,
	})
}
