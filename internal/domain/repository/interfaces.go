package repository

import (
	"context"

	"FxDesk/internal/domain/models"
)

// DecisionPublisher emits decision records to a message bus.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, rec models.DecisionRecord) error
	Close() error
}

// DecisionStore persists decision records for audit queries.
type DecisionStore interface {
	Init(ctx context.Context) error
	StoreDecision(ctx context.Context, rec models.DecisionRecord) error
	StoreDecisions(ctx context.Context, recs []models.DecisionRecord) error
	Health(ctx context.Context) error
	Close() error
}

// DecisionRecorder accepts completed runs for asynchronous recording.
type DecisionRecorder interface {
	Record(rec models.DecisionRecord)
}

// ResultCache caches final results keyed by request parameters.
type ResultCache interface {
	GetResult(ctx context.Context, key string) (models.FinalResult, bool)
	PutResult(ctx context.Context, key string, res models.FinalResult)
}

type Metrics interface {
	ObserveStage(stage models.StageName, ok bool, seconds float64)
	ObserveRun(action models.Action, seconds float64)
	RecordRiskRejection(reason string)
	RecordFanOutFallback()
	RecordRecorded(backend string, ok bool)
	RecordError(kind string)
}
