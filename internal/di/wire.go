//go:build wireinject
// +build wireinject

package di

import (
	"FraudGuard/pkg/config"
	"FraudGuard/pkg/server"

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
		ProvideRedisClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideHistoryStore,
		ProvideArchive,
		ProvideAssessmentPublisher,

		// Scoring service client
		ProvideScorer,

		// Use cases
		ProvideGlobalStats,
		ProvidePersistRetrier,
		ProvidePredictor,
		ProvideBatchBuilder,
		ProvideIngestHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
