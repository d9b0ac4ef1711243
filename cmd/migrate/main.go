package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"lendingapi/internal/platform/postgres"
)

func main() {
	loadEnvFiles()
	if err := newRootCmd(os.Getenv).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply and inspect the lending database schema",
		SilenceUsage: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), getenv, func(ctx context.Context, db *sql.DB, dir string) error {
					if err := goose.UpContext(ctx, db, dir); err != nil {
						return fmt.Errorf("run migrations: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), getenv, func(ctx context.Context, db *sql.DB, dir string) error {
					if err := goose.DownContext(ctx, db, dir); err != nil {
						return fmt.Errorf("rollback migrations: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Migrations rolled back successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), getenv, func(ctx context.Context, db *sql.DB, dir string) error {
					return goose.StatusContext(ctx, db, dir)
				})
			},
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a new SQL migration file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := goose.Create(nil, migrationsDir(getenv), args[0], "sql"); err != nil {
					return fmt.Errorf("create migration: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Migration created: %s\n", args[0])
				return nil
			},
		},
	)
	return root
}

func withDB(ctx context.Context, getenv func(string) string, fn func(context.Context, *sql.DB, string) error) error {
	pool, err := postgres.Open(ctx, databaseDSN(getenv), 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn(ctx, db, migrationsDir(getenv))
}
