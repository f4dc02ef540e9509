package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dojo-hub/dojo-community-hub/internal/bootstrap"
	"github.com/dojo-hub/dojo-community-hub/internal/infrastructure/persistence/postgres"
)

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply, roll back or inspect schema migrations.

Available subcommands:
  up       - apply every pending migration
  rollback - undo the last applied migration
  status   - list migrations and whether they are applied`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: c.withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
			applied, err := m.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last applied migration",
		Args:  cobra.NoArgs,
		RunE: c.withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
			if err := m.Rollback(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back the last migration")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Args:  cobra.NoArgs,
		RunE: c.withMigrator(func(cmd *cobra.Command, m *postgres.Migrator) error {
			migrations, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), migrationTable(migrations))
			return nil
		}),
	})

	return cmd
}

func (c *cli) withMigrator(fn func(*cobra.Command, *postgres.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := c.loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		conn, err := bootstrap.OpenPostgres(cmd.Context(), cfg, c.logger(cmd))
		if err != nil {
			return err
		}
		defer conn.Close()
		return fn(cmd, postgres.NewMigrator(conn))
	}
}

func migrationTable(migrations []postgres.Migration) string {
	t := table.New().Headers("VERSION", "NAME", "APPLIED")
	for _, m := range migrations {
		applied := "pending"
		if m.IsApplied {
			applied = m.AppliedAt.UTC().Format(time.DateTime)
		}
		t.Row(fmt.Sprintf("%03d", m.Version), m.Name, applied)
	}
	return t.String()
}
