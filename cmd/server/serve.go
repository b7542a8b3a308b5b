package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/travelboard/internal/events"
	"github.com/sakif/travelboard/internal/server"
)

// newServeCmd builds `travelboard serve`.
//
// STARTUP ORDER:
//  1. Load config (.env, then the environment, then --port).
//  2. Open the database and apply pending migrations.
//  3. Pick the activity publisher: RabbitMQ when RABBITMQ_URL is set,
//     the structured log otherwise.
//  4. Build the server and run it until SIGINT or SIGTERM.
//
// Deferred closes run in reverse: the publisher, then the database, after
// the server has drained.
func newServeCmd(root *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. Pending migrations are applied first.

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			logger := newLogger(cfg, os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := openDB(ctx, cfg, true)
			if err != nil {
				logger.Error("failed to open database",
					slog.String("driver", cfg.DBDriver),
					slog.String("error", err.Error()),
				)
				return err
			}
			defer db.Close()

			publisher, err := newPublisher(cfg.RabbitMQURL, cfg.ActivityQueue, logger)
			if err != nil {
				return err
			}
			defer publisher.Close()

			if cfg.SessionSecretGenerated {
				logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
			}

			srv, err := server.New(cfg, db, publisher, logger)
			if err != nil {
				logger.Error("failed to create server", slog.String("error", err.Error()))
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

// newPublisher connects to RabbitMQ when url is set and falls back to the
// structured log otherwise.
func newPublisher(url, queue string, logger *slog.Logger) (events.Publisher, error) {
	if url == "" {
		return events.NewLogPublisher(logger), nil
	}
	p, err := events.NewRabbitPublisher(url, queue)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", slog.String("error", err.Error()))
		return nil, err
	}
	logger.Info("publishing activity to RabbitMQ", slog.String("queue", queue))
	return p, nil
}
