package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"github.com/technopolitica/fleet-live/internal/config"
	"github.com/technopolitica/fleet-live/internal/db"
)

func newRootCommand(ctx context.Context) *cobra.Command {
	dbOpts := db.NewOptions()
	root := &cobra.Command{
		Use:          "fleet-live-migrate",
		Short:        "Manage the fleet-live database schema",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(cmd.Flags(), ""); err != nil {
				return err
			}
			if dbOpts.URL == "" {
				return errors.New("missing required --db.url param")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dbOpts.URL, "db.url", dbOpts.URL, "URL-formatted connection string to the DB to operate upon")

	var version string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database to a schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.MigrateTo(ctx, dbOpts.URL, version); err != nil {
				return fmt.Errorf("failed to run migration: %w", err)
			}
			return nil
		},
	}
	migrateCmd.Flags().StringVar(&version, "to", "", `version to which the database should be migrated. May specify "latest" to migrate to the latest version.`)
	migrateCmd.MarkFlagRequired("to")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := db.SchemaVersion(dbOpts.URL)
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}

	root.AddCommand(migrateCmd, versionCmd)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
