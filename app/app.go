package app

import (
	"context"
	"log/slog"

	"github.com/jsphweid/keystream/config"
	"github.com/jsphweid/keystream/pipeline"
)

// App owns one pipeline session.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	svc    *pipeline.Service
}

func New(cfg config.Config, logger *slog.Logger, svc *pipeline.Service) *App {
	return &App{cfg: cfg, logger: logger, svc: svc}
}

func (a *App) Service() *pipeline.Service { return a.svc }

func (a *App) Logger() *slog.Logger { return a.logger }

// Run opens the pipeline and keeps it running until ctx is cancelled or
// done is closed. done may be nil.
func (a *App) Run(ctx context.Context, done <-chan struct{}) error {
	a.logger.Info("starting keystream",
		"strategy", string(a.cfg.Strategy),
		"access_timeout", a.cfg.AccessTimeout,
		"source", a.cfg.Source,
	)
	if err := a.svc.Initialize(ctx); err != nil {
		a.svc.Shutdown()
		return err
	}
	defer a.svc.Shutdown()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown initiated")
	case <-done:
		a.logger.Info("input finished")
		a.svc.Flush()
	}
	return nil
}
