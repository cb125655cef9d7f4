//go:build wireinject

package main

import (
	"github.com/jarvishq/jarvis-server/internal/domain"
	"github.com/jarvishq/jarvis-server/internal/infrastructure"
	"github.com/jarvishq/jarvis-server/internal/interfaces"

	"github.com/google/wire"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		interfaces.InterfacesProvider,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
