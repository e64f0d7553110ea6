package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/pkg/config"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/metrics"

	"golang.org/x/sync/semaphore"
)

type fakeNews struct {
	err    error
	panics bool
}

func (f fakeNews) AnalyzeNews(_ context.Context, pair string) (models.NewsPayload, error) {
	if f.panics {
		var headlines map[string]*models.NewsPayload
		return *headlines[pair], nil
	}
	if f.err != nil {
		return models.NewsPayload{}, f.err
	}
	return models.NewsPayload{Pair: pair, SentimentScore: 0.4, Sentiment: "bullish"}, nil
}

type fakeTechnical struct {
	entry, stop, tp float64
	overall         string
	err             error
}

func (f fakeTechnical) AnalyzeTechnical(_ context.Context, pair string) (models.TechnicalPayload, error) {
	if f.err != nil {
		return models.TechnicalPayload{}, f.err
	}
	return models.TechnicalPayload{
		Pair:         pair,
		CurrentPrice: f.entry,
		StopLoss:     f.stop,
		TakeProfit:   f.tp,
		Signals:      models.TechnicalSignals{Overall: f.overall},
	}, nil
}

type fakeFundamental struct{ err error }

func (f fakeFundamental) AnalyzeFundamental(_ context.Context, pair string) (models.FundamentalPayload, error) {
	if f.err != nil {
		return models.FundamentalPayload{}, f.err
	}
	return models.FundamentalPayload{Pair: pair, FundamentalScore: 0.35, Outlook: "bullish"}, nil
}

type fakeDecider struct {
	calls    int32
	decision models.Decision
	err      error
	mu       sync.Mutex
	inputs   []models.SynthesisInput
}

func (f *fakeDecider) Decide(_ context.Context, in models.SynthesisInput) (models.Decision, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if f.err != nil {
		return models.Decision{}, f.err
	}
	return f.decision, nil
}

func (f *fakeDecider) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

// referenceTechnical is the 1.0850 / 1.0800 / 1.0950 setup: 50 pips risk, 1:2.
var referenceTechnical = fakeTechnical{entry: 1.0850, stop: 1.0800, tp: 1.0950, overall: models.OverallBuy}

type fixture struct {
	news        fakeNews
	technical   fakeTechnical
	fundamental fakeFundamental
	decider     *fakeDecider
	workers     int64
	cfg         *config.Config
}

func newFixture() *fixture {
	return &fixture{
		technical: referenceTechnical,
		decider: &fakeDecider{decision: models.Decision{
			Action:     models.ActionBuy,
			Confidence: 0.8,
			Reasoning:  models.Reasoning{Summary: "aligned"},
		}},
		workers: 3,
		cfg:     config.Default(),
	}
}

func (f *fixture) stages() *Stages {
	return NewStages(f.news, f.technical, f.fundamental, f.decider,
		time.Second, f.cfg.Pipeline.SynthesisMinConfidence, metrics.Nop{}, logger.Nop())
}

func (f *fixture) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(f.cfg, f.stages(), semaphore.NewWeighted(f.workers), nil, metrics.Nop{}, logger.Nop())
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

var errUnavailable = errors.New("collaborator unavailable")
