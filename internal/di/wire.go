//go:build wireinject
// +build wireinject

package di

import (
	"CoinCast/pkg/config"
	"CoinCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideEventPublisher,

		// Repositories
		ProvideHistoryStore,
		ProvidePredictionLog,
		ProvidePriceSource,
		ProvideArtifactStore,

		// Services and use cases
		ProvideLifecycle,
		ProvideIngestionPipeline,
		ProvideForecastService,

		// Delivery
		ProvideHTTPHandler,
		ProvideScheduler,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
