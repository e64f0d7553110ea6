//go:build wireinject
// +build wireinject

package di

import (
	"FxDesk/internal/usecase"
	"FxDesk/pkg/config"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config, log *logger.Logger) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideMetrics,
		ProvideTracing,
		ProvideTracer,
		ProvideInstrumenter,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Pipeline
		ProvideCollaborators,
		ProvideStages,
		ProvideFanOutBudget,
		usecase.NewOrchestrator,

		// Repositories
		ProvideResultCache,
		ProvideRecordBuffer,
		ProvideRecorder,

		// Use cases
		ProvideAnalysisService,
		ProvideJobQueue,
		ProvideJobService,
		ProvideKafkaConsumer,

		// HTTP
		ProvideRateLimiter,
		ProvideAnalysisHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
