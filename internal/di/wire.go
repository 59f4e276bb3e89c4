//go:build wireinject
// +build wireinject

package di

import (
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/pkg/config"
	"SignalGate/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application and a
// cleanup that releases infrastructure clients.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideRedisQueue,

		// Repositories and providers
		ProvideLedger,
		ProvideProviderCache,
		ProvideOptionsProvider,
		ProvideVolatilityProvider,
		ProvideLiquidityProvider,

		// Use cases
		ProvideContextBuilder,
		ProvideOrchestrator,
		ProvideScorer,
		ProvideDecisionService,
		ProvideLedgerQuery,
		ProvideKafkaConsumer,
		ProvideGuard,

		// Transport and application
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeLedger builds only the configured ledger, for offline inspection.
func InitializeLedger(cfg *config.Config) (domrepo.Ledger, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideLedger,
	)
	return nil, nil, nil
}
