package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/neuroerp/backend/internal/infrastructure/migration"
	"github.com/neuroerp/backend/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the SQL schema",
	}
	cmd.AddCommand(
		newMigrateUpCmd(a),
		newMigrateDownCmd(a),
		newMigrateVersionCmd(a),
		newMigrateForceCmd(a),
		newMigrateCreateCmd(a),
		newMigrateListCmd(a),
	)
	return cmd
}

// withMigrator opens the configured postgres database and runs fn against the
// embedded migrations
func (a *app) withMigrator(fn func(m *migration.Migrator) error) error {
	db, err := sql.Open("postgres", a.cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.NewFromFS(db, migrations.FS, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			a.log.Warn("Failed to close migrator", zap.Error(cerr))
		}
	}()
	return fn(m)
}

func newMigrateUpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(func(m *migration.Migrator) error {
				return m.Up()
			})
		},
	}
}

func newMigrateDownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				steps = n
			}
			return a.withMigrator(func(m *migration.Migrator) error {
				return m.Down(steps)
			})
		},
	}
}

func newMigrateVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(func(m *migration.Migrator) error {
				status, err := m.Version()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), status)
			})
		},
	}
}

func newMigrateForceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations, clearing the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return a.withMigrator(func(m *migration.Migrator) error {
				return m.Force(v)
			})
		},
	}
}

func newMigrateCreateCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "create NAME [DESCRIPTION]",
		Short: "Write an empty up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var desc string
			if len(args) == 2 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], desc)
			if err != nil {
				return err
			}
			a.log.Info("Migration created",
				zap.Uint("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "Migrations directory")
	return cmd
}

func newMigrateListCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the migrations of a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := migration.ListMigrations(dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(os.Stderr, "no migrations found")
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), files)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "Migrations directory")
	return cmd
}
