// Command travelboard runs the travelboard API and its maintenance tasks.
//
//	travelboard serve              start the HTTP server
//	travelboard migrate up|status  manage the database schema
//	travelboard user add           create a password account
//	travelboard sessions prune     delete expired sessions
//	travelboard dashboard          show a user's dashboard through the API
//
// Every subcommand reads its configuration from the environment, seeded
// from .env (or --env-file) without overriding variables already set.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/travelboard/internal/config"
	"github.com/sakif/travelboard/internal/repository/sqlstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags every subcommand shares.
type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "travelboard",
		Short:        "travelboard API server",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load settings from this file instead of ./.env")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newUserCmd(opts),
		newSessionsCmd(opts),
		newDashboardCmd(),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.envFile)
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openDB opens the configured database and brings its schema up to date.
// For SQLite the parent directory is created first.
func openDB(ctx context.Context, cfg config.Config, migrate bool) (*sqlstore.DB, error) {
	if cfg.DBDriver == sqlstore.DriverSQLite && cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	if migrate {
		return sqlstore.OpenMigrated(ctx, cfg.DBDriver, cfg.DSN())
	}
	return sqlstore.Open(ctx, cfg.DBDriver, cfg.DSN())
}
