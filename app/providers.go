package app

import (
	"log/slog"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jsphweid/keystream/config"
	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/pipeline"
)

var ProviderSet = wire.NewSet(
	provideLogger,
	provideRegistry,
	provideService,
	New,
)

func provideLogger(cfg config.Config) *slog.Logger {
	return logging.New(cfg.LogLevel, logging.WithFormat(cfg.LogFormat))
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideService(cfg config.Config, transport pipeline.Transport, logger *slog.Logger, reg *prometheus.Registry) *pipeline.Service {
	return pipeline.New(cfg, transport,
		pipeline.WithLogger(logger),
		pipeline.WithRegistry(reg),
	)
}
