package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/logger"
	"github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	source string
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the product catalog database schema",
	Long: `Applies and reverts the SQL migrations of the product catalog.
Database settings are read from the same environment variables as the product service.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&source, "source", "", "Migrations source URL, overrides "+config.DBMigrationsSourceEnv)

	rootCmd.AddCommand(newUpCmd(), newDownCmd(), newVersionCmd())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newUpCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *migrate.Migrate) error {
				if steps > 0 {
					return ignoreNoChange(m.Steps(steps))
				}
				return ignoreNoChange(m.Up())
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 0, "Number of migrations to apply, all when zero")
	return cmd
}

func newDownCmd() *cobra.Command {
	var (
		steps int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations",
		Long: `Reverts the last applied migration, or the given number of them.
Reverting every migration drops all catalog data and requires --all.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps <= 0 && !all {
				return errors.New("--steps must be positive, use --all to revert everything")
			}
			return withMigrator(cmd.Context(), func(m *migrate.Migrate) error {
				if all {
					return ignoreNoChange(m.Down())
				}
				return ignoreNoChange(m.Steps(-steps))
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to revert")
	cmd.Flags().BoolVar(&all, "all", false, "Revert every migration")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}
}

// withMigrator opens the configured database, runs fn and closes everything afterwards.
func withMigrator(ctx context.Context, fn func(m *migrate.Migrate) error) error {
	conf, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.InitJSONLogger("migrate", conf.DebugMode)

	if ctx == nil {
		ctx = context.Background()
	}
	db, err := sql.OpenDB(ctx, conf.Database)
	if err != nil {
		return err
	}

	migrationsSource := conf.Database.MigrationsSource
	if source != "" {
		migrationsSource = source
	}
	m, err := sql.NewMigrator(db, migrationsSource)
	if err != nil {
		db.Close()
		return err
	}
	// Closing the migrator also closes db through the postgres driver.
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrator", slog.Any("source_err", srcErr), slog.Any("db_err", dbErr))
		}
	}()

	return fn(m)
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("no migration to apply")
		return nil
	}
	return err
}
