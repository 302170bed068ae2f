//go:build wireinject
// +build wireinject

package di

import (
	"GammaDesk/pkg/config"
	"GammaDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Outbound ports
		ProvideOpenInterest,
		ProvideGreeksClient,
		ProvideSources,
		ProvideKafkaProducer,
		ProvideAlertPublisher,

		// Use cases
		ProvideExpirations,
		ProvideAnalysis,
		ProvideMacro,
		ProvideHistorical,
		ProvideBands,

		// Inbound
		ProvideLimiter,
		ProvideHTTPHandler,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
