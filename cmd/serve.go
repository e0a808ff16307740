package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jsphweid/keystream/api"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address for the debug API (default from KEYSTREAM_HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listens and serves a debug API",
	Long: `Runs the same pipeline as listen and serves its state over HTTP:
GET /notes, GET /sources, GET /sources/{id}, POST /source, GET /stats and
GET /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.HTTPAddr = serveAddr
		}
		a, err := newLiveApp(cfg)
		if err != nil {
			return err
		}
		attachPrinters(a, cmd.OutOrStdout())
		logger := a.Logger()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(a.Service(), logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving debug api", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("debug api stopped", "error", err)
				stop()
			}
		}()

		runErr := a.Run(ctx, nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down debug api", "error", err)
		}
		return runErr
	},
}
