//go:build wireinject
// +build wireinject

package di

import (
	"StockCast/pkg/config"
	"StockCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvidePriceStore,
		ProvidePriceProvider,
		ProvideResultCache,
		ProvideTickPublisher,
		ProvidePredictionPublisher,
		ProvideMarketStream,

		// Model registry
		ProvideRegistryLoader,
		ProvideRegistry,

		// Use cases
		ProvidePredictor,
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideKafkaTicksHandler,

		// HTTP
		ProvidePredictionsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
