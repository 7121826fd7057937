package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/shipload/internal/core"
	"github.com/JonMunkholm/shipload/internal/web"
)

func newServeCmd(a *App) *cobra.Command {
	var createSchema bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP run trigger, health check and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := a.openStore(ctx, createSchema)
			if err != nil {
				return err
			}
			defer db.Close()

			coord := core.NewCoordinator(db, a.Log, a.joinOptions())
			server := web.NewServer(coord, db, a.Config, a.Log)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.Log.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
			defer cancel()

			// Let an in-flight run reach commit or rollback
			if err := server.WaitForRun(shutdownCtx); err != nil {
				a.Log.Warn("run did not finish in time", "error", err)
			}

			if err := server.Shutdown(shutdownCtx); err != nil {
				a.Log.Error("shutdown error", "error", err)
				return err
			}
			a.Log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&createSchema, "create-schema", a.Config.Run.CreateSchema, "create the product and shipment tables if absent")
	return cmd
}
