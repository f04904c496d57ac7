package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vestingdapp/internal/idempotency"
	"vestingdapp/internal/ledger"
	"vestingdapp/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and owner poller",
		Long:  `Runs the HTTP API and polls the contract owner until SIGINT or SIGTERM.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics := server.NewMetrics()
			a, err := o.newApp(ctx, metrics)
			if err != nil {
				return err
			}
			defer a.Close()

			store, closeStore, err := idempotency.Open(ctx, a.cfg.Service.PostgresDSN, a.cfg.Service.IdempotencyStorePath, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			opts := server.Options{Metrics: metrics, Logger: a.logger.Named("http")}
			if hc, ok := a.client.(ledger.HealthChecker); ok {
				opts.RPC = hc
			}
			srv := server.NewServer(a.cfg, a.session, store, opts)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
