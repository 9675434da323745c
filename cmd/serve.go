package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/Chative-Loan-Origination/agent/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat, download and mock reference endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := Build(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				log.Warn().Err(err).Msg("close app resources")
			}
		}()

		handler, err := api.NewHandler(app.Orchestrator, app.Catalog, app.Config.ArtifactDir,
			api.WithSlipRecorder(app.Orchestrator))
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", app.Config.Port),
			Handler:           handler.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("http server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
