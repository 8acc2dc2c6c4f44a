//go:build wireinject
// +build wireinject

package di

import (
	"CreditGate/pkg/config"
	"CreditGate/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideSessionCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSessionStore,
		ProvideDecisionArchive,
		ProvideDecisionPublisher,

		// Pipeline
		ProvideScorer,
		ProvideGate,
		ProvideDecisionProcessor,
		ProvideBroadcaster,
		ProvideAuditPipeline,
		ProvideOrchestrator,
		ProvideAuthService,
		ProvideKafkaDecisionsHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
