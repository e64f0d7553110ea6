package service

import (
	"context"

	"FxDesk/internal/domain/models"
)

// NewsAnalyzer produces news and sentiment findings for a pair.
type NewsAnalyzer interface {
	AnalyzeNews(ctx context.Context, pair string) (models.NewsPayload, error)
}

// TechnicalAnalyzer produces price levels, indicators and signals for a pair.
type TechnicalAnalyzer interface {
	AnalyzeTechnical(ctx context.Context, pair string) (models.TechnicalPayload, error)
}

// FundamentalAnalyzer compares the macro fundamentals of a pair's two currencies.
type FundamentalAnalyzer interface {
	AnalyzeFundamental(ctx context.Context, pair string) (models.FundamentalPayload, error)
}

// DecisionService turns the collected findings into a decision.
type DecisionService interface {
	Decide(ctx context.Context, in models.SynthesisInput) (models.Decision, error)
}
