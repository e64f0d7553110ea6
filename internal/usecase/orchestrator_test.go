package usecase

import (
	"context"
	"testing"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/pipeline"
	"FxDesk/internal/services/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunApprovedTradeReachesSynthesis(t *testing.T) {
	f := newFixture()
	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.decider.Calls())
	assert.Equal(t, models.ActionBuy, res.Decision.Action)
	assert.Equal(t, 3, res.StepCount)
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.RunID)

	r := res.Results.Risk
	require.True(t, r.OK())
	assert.Equal(t, 50.0, r.Data.RiskInPips)
	assert.Equal(t, 0.4, r.Data.PositionSize)
	assert.Equal(t, 200.0, r.Data.DollarRisk)
	assert.Equal(t, 2.0, *r.Data.RiskRewardRatio)
	assert.True(t, r.Data.TradeApproved)
	assert.Equal(t, models.DirectionBuy, r.Data.Direction)

	require.NotNil(t, res.Decision.TradeParameters)
	assert.Equal(t, 1.0850, res.Decision.TradeParameters.EntryPrice)
	assert.Equal(t, 1.0800, res.Decision.TradeParameters.StopLoss)
	assert.Equal(t, 1.0950, res.Decision.TradeParameters.TakeProfit)
	assert.Equal(t, 0.4, res.Decision.TradeParameters.PositionSize)

	in := f.decider.inputs[0]
	assert.True(t, in.News.OK())
	assert.True(t, in.Fundamental.OK())
	assert.True(t, in.Risk.OK())
}

func TestRunRejectedTradeSkipsSynthesis(t *testing.T) {
	f := newFixture()
	f.technical = fakeTechnical{entry: 1.0850, stop: 1.0845, tp: 1.0950, overall: models.OverallBuy}

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, f.decider.Calls())
	assert.Equal(t, models.ActionWait, res.Decision.Action)
	assert.Equal(t, 0.0, res.Decision.Confidence)
	assert.Equal(t, "Trade rejected by risk evaluation: "+risk.ReasonRiskTooSmall, res.Decision.Reasoning.Summary)
	assert.True(t, res.Decision.Reasoning.RiskRejection)
	assert.Nil(t, res.Decision.TradeParameters)
	assert.Equal(t, 2, res.StepCount)
}

func TestRunBoundaryTenPipsApproved(t *testing.T) {
	f := newFixture()
	f.technical = fakeTechnical{entry: 1.0850, stop: 1.0840, tp: 1.0950, overall: models.OverallBuy}

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Results.Risk.Data.RiskInPips)
	assert.True(t, res.Results.Risk.Data.TradeApproved)
	assert.Equal(t, 1, f.decider.Calls())
}

func TestRunTechnicalFailureEndsAtRisk(t *testing.T) {
	f := newFixture()
	f.technical = fakeTechnical{err: errUnavailable}

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, f.decider.Calls())
	assert.Equal(t, models.ActionWait, res.Decision.Action)
	assert.Equal(t, "Risk evaluation failed: missing technical analysis", res.Decision.Reasoning.Summary)
	assert.Equal(t, errUnavailable.Error(), res.Errors[models.StageTechnical])
	assert.Equal(t, "missing technical analysis", res.Errors[models.StageRisk])
	assert.False(t, res.Results.Risk.Success)
	assert.True(t, res.Results.News.OK())
}

func TestRunIsolatesAnalysisFailure(t *testing.T) {
	f := newFixture()
	f.news = fakeNews{err: errUnavailable}

	var afterAnalysis models.State
	obs := func(node models.StageName, s models.State) {
		if node == models.StageAnalysis {
			afterAnalysis = s
		}
	}
	_, err := f.orchestrator(t).RunObserved(context.Background(), "EUR/USD", models.RunOptions{}, pipeline.Observer(obs))
	require.NoError(t, err)

	assert.Equal(t, 1, afterAnalysis.StepCount)
	assert.False(t, afterAnalysis.News.Success)
	assert.True(t, afterAnalysis.Technical.OK())
	assert.True(t, afterAnalysis.Fundamental.OK())
	assert.Len(t, afterAnalysis.Errors, 1)
	assert.Equal(t, errUnavailable.Error(), afterAnalysis.Errors[models.StageNews])
}

func TestRunRecordsAnalysisPanicAsStageFailure(t *testing.T) {
	f := newFixture()
	f.news = fakeNews{panics: true}

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)

	require.NotNil(t, res.Results.News)
	assert.False(t, res.Results.News.Success)
	assert.Contains(t, res.Results.News.Error, "stage panicked")
	assert.True(t, res.Results.Technical.OK())
	assert.True(t, res.Results.Fundamental.OK())
	assert.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[models.StageNews], "stage panicked")
	assert.NotContains(t, res.Errors, models.ParallelExecution)

	// Risk does not depend on news, so the run still reaches synthesis.
	assert.Equal(t, 1, f.decider.Calls())
	assert.Equal(t, 3, res.StepCount)
}

func TestRunFallsBackWhenBudgetExhausted(t *testing.T) {
	f := newFixture()
	f.workers = 2

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)

	assert.Contains(t, res.Errors, models.ParallelExecution)
	assert.True(t, res.Results.News.OK())
	assert.True(t, res.Results.Technical.OK())
	assert.True(t, res.Results.Fundamental.OK())
	// Sequential analysis takes three steps, then risk and synthesis.
	assert.Equal(t, 5, res.StepCount)
}

func TestRunSynthesisFailureDegradesToWait(t *testing.T) {
	f := newFixture()
	f.decider.err = errUnavailable

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.ActionWait, res.Decision.Action)
	assert.True(t, res.Decision.Reasoning.Error)
	assert.Equal(t, "Synthesis failed: "+errUnavailable.Error(), res.Decision.Reasoning.Summary)
	assert.Equal(t, errUnavailable.Error(), res.Errors[models.StageSynthesis])
	assert.Equal(t, 3, res.StepCount)
}

func TestRunLowConfidenceDowngraded(t *testing.T) {
	f := newFixture()
	f.decider.decision.Confidence = 0.55

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ActionWait, res.Decision.Action)
	assert.Nil(t, res.Decision.TradeParameters)
}

func TestRunAccountOverrides(t *testing.T) {
	f := newFixture()
	balance, fraction := 50000.0, 0.01

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD",
		models.RunOptions{AccountBalance: &balance, MaxRiskFraction: &fraction})
	require.NoError(t, err)
	assert.Equal(t, balance, res.Account.AccountBalance)
	assert.Equal(t, 500.0, res.Results.Risk.Data.DollarRisk)
	assert.Equal(t, 1.0, res.Results.Risk.Data.PositionSize)

	bad := 1.5
	_, err = f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{MaxRiskFraction: &bad})
	require.ErrorIs(t, err, ErrInvalidRunOptions)
}

func TestRunUsesPipScaleOverride(t *testing.T) {
	f := newFixture()
	f.cfg.Risk.PipScaleOverrides = map[string]float64{"USD/JPY": 100}
	f.technical = fakeTechnical{entry: 150.00, stop: 149.50, tp: 151.00, overall: models.OverallBuy}

	res, err := f.orchestrator(t).Run(context.Background(), "USD/JPY", models.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Account.PipScale)
	assert.Equal(t, 50.0, res.Results.Risk.Data.RiskInPips)
	assert.True(t, res.Results.Risk.Data.TradeApproved)
}

func TestRunCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orchestrator(t).Run(ctx, "EUR/USD", models.RunOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.decider.Calls())
}

func TestHoldSignalIsSizedAsSell(t *testing.T) {
	f := newFixture()
	f.technical.overall = models.OverallHold

	res, err := f.orchestrator(t).Run(context.Background(), "EUR/USD", models.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.DirectionSell, res.Results.Risk.Data.Direction)
}

func TestInfo(t *testing.T) {
	f := newFixture()
	info := f.orchestrator(t).Info()

	assert.Equal(t, []models.StageName{models.StageAnalysis, models.StageRisk, models.StageSynthesis}, info.Workflow.Nodes)
	assert.Equal(t, 3, info.Workflow.NumNodes)
	assert.Equal(t, 4, info.Workflow.NumEdges)
	assert.Contains(t, info.Workflow.Edges, models.Edge{From: models.StageRisk, To: models.StageSynthesis, Condition: "continue"})
	assert.Contains(t, info.Workflow.Edges, models.Edge{From: models.StageRisk, To: models.StageEnd, Condition: "end"})
	assert.Equal(t, 10000.0, info.System.AccountBalance)
	assert.Equal(t, 0.02, info.System.MaxRiskPerTrade)
	assert.False(t, info.System.APIConfigured)
}

func TestNormalize(t *testing.T) {
	approved := models.NewState("EUR/USD", models.AccountSettings{})
	approved.Technical = models.Succeeded(models.TechnicalPayload{CurrentPrice: 1.085, StopLoss: 1.08, TakeProfit: 1.095})
	approved.Risk = models.Succeeded(models.RiskPayload{TradeApproved: true, PositionSize: 0.4})

	rejected := approved.Clone()
	rejected.Risk = models.Succeeded(models.RiskPayload{TradeApproved: false})

	tests := []struct {
		name   string
		in     models.Decision
		st     models.State
		action models.Action
		params bool
	}{
		{"trade keeps parameters", models.Decision{Action: models.ActionSell, Confidence: 0.9}, approved, models.ActionSell, true},
		{"unknown action waits", models.Decision{Action: "HOLD", Confidence: 0.9}, approved, models.ActionWait, false},
		{"confidence clamped then kept", models.Decision{Action: models.ActionBuy, Confidence: 1.7}, approved, models.ActionBuy, true},
		{"below minimum waits", models.Decision{Action: models.ActionBuy, Confidence: 0.69}, approved, models.ActionWait, false},
		{"rejected risk waits", models.Decision{Action: models.ActionBuy, Confidence: 0.9}, rejected, models.ActionWait, false},
		{"wait drops parameters", models.Decision{Action: models.ActionWait, TradeParameters: &models.TradeParameters{EntryPrice: 1}}, approved, models.ActionWait, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Normalize(tt.in, tt.st, 0.7)
			assert.Equal(t, tt.action, d.Action)
			assert.GreaterOrEqual(t, d.Confidence, 0.0)
			assert.LessOrEqual(t, d.Confidence, 1.0)
			assert.NotNil(t, d.Reasoning.KeyFactors)
			assert.NotNil(t, d.Reasoning.Risks)
			if !tt.params {
				assert.Nil(t, d.TradeParameters)
				return
			}
			require.NotNil(t, d.TradeParameters)
			assert.Equal(t, 1.085, d.TradeParameters.EntryPrice)
			assert.Equal(t, 0.4, d.TradeParameters.PositionSize)
		})
	}
}
