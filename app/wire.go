//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/jsphweid/keystream/config"
	"github.com/jsphweid/keystream/pipeline"
)

func InitializeApp(cfg config.Config, transport pipeline.Transport) *App {
	panic(wire.Build(ProviderSet))
}
