package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpolishuk/codeflow/internal/api"
	"github.com/dpolishuk/codeflow/internal/config"
	"github.com/dpolishuk/codeflow/internal/logging"
)

func newServeCmd(g *globals) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			return Serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (default: BACKEND_PORT)")
	return cmd
}

// Serve runs the HTTP API until ctx is cancelled or SIGINT/SIGTERM arrives.
// Logs go to stderr in LOG_FORMAT.
func Serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogFormat, logging.LevelFromString(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := api.NewServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen() }()

	select {
	case err := <-errc:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
