package pipeline

import (
	"context"
	"errors"
	"testing"

	"FxDesk/internal/domain/models"
	"FxDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func riskRoute(s models.State) Branch {
	if s.Risk.OK() && s.Risk.Data.TradeApproved {
		return BranchContinue
	}
	return BranchEnd
}

type testGraph struct {
	approved       bool
	synthesisCalls int
	riskCalls      int
}

func (tg *testGraph) build(t *testing.T) *Engine {
	t.Helper()
	analysis := func(_ context.Context, s models.State) (models.Update, error) {
		return models.Update{
			Technical: models.Succeeded(models.TechnicalPayload{CurrentPrice: 1.085}),
			StepCount: s.StepCount + 1,
		}, nil
	}
	risk := func(_ context.Context, s models.State) models.Update {
		tg.riskCalls++
		p := models.RiskPayload{TradeApproved: tg.approved}
		if !tg.approved {
			p.RejectionReason = "risk too high: exceeds maximum pip threshold"
		}
		return models.Update{Risk: models.Succeeded(p), StepCount: s.StepCount + 1}
	}
	synthesis := func(_ context.Context, s models.State) models.Update {
		tg.synthesisCalls++
		d := models.Decision{Action: models.ActionBuy, Confidence: 0.8}
		return models.Update{Decision: &d, StepCount: s.StepCount + 1}
	}

	e, err := NewGraph().
		AddNode(models.StageAnalysis, analysis).
		AddNode(models.StageRisk, StageNode(models.StageRisk, risk, logger.Nop())).
		AddNode(models.StageSynthesis, StageNode(models.StageSynthesis, synthesis, logger.Nop())).
		SetEntry(models.StageAnalysis).
		AddEdge(models.StageAnalysis, models.StageRisk).
		AddConditionalEdge(models.StageRisk, riskRoute, map[Branch]models.StageName{
			BranchContinue: models.StageSynthesis,
			BranchEnd:      models.StageEnd,
		}).
		AddEdge(models.StageSynthesis, models.StageEnd).
		Compile()
	require.NoError(t, err)
	return e
}

func TestEngineTerminatesEarlyOnRejection(t *testing.T) {
	tg := &testGraph{approved: false}
	e := tg.build(t)

	var visited []models.StageName
	final, err := e.Run(context.Background(), initial(), func(n models.StageName, _ models.State) {
		visited = append(visited, n)
	})
	require.NoError(t, err)

	assert.Equal(t, []models.StageName{models.StageAnalysis, models.StageRisk}, visited)
	assert.Equal(t, 0, tg.synthesisCalls)
	assert.Nil(t, final.Decision)
	assert.Equal(t, 2, final.StepCount)
}

func TestEngineContinuesToSynthesis(t *testing.T) {
	tg := &testGraph{approved: true}
	e := tg.build(t)

	final, err := e.Run(context.Background(), initial(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, tg.synthesisCalls)
	require.NotNil(t, final.Decision)
	assert.Equal(t, models.ActionBuy, final.Decision.Action)
	assert.Equal(t, 3, final.StepCount)
}

func TestEngineObserverGetsDeepCopies(t *testing.T) {
	tg := &testGraph{approved: true}
	e := tg.build(t)

	final, err := e.Run(context.Background(), initial(), func(_ models.StageName, snap models.State) {
		snap.Errors["tampered"] = "yes"
		if snap.Technical != nil {
			snap.Technical.Data.CurrentPrice = 0
		}
	})
	require.NoError(t, err)

	assert.NotContains(t, final.Errors, models.StageName("tampered"))
	assert.Equal(t, 1.085, final.Technical.Data.CurrentPrice)
}

func TestEngineChecksCancellationBetweenNodes(t *testing.T) {
	tg := &testGraph{approved: true}
	e := tg.build(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := e.Run(ctx, initial(), func(n models.StageName, _ models.State) {
		if n == models.StageAnalysis {
			cancel()
		}
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, tg.riskCalls)
}

func TestEngineNodeErrorAborts(t *testing.T) {
	boom := errors.New("fan-out failed")
	e, err := NewGraph().
		AddNode(models.StageAnalysis, func(context.Context, models.State) (models.Update, error) {
			return models.Update{}, boom
		}).
		SetEntry(models.StageAnalysis).
		AddEdge(models.StageAnalysis, models.StageEnd).
		Compile()
	require.NoError(t, err)

	_, err = e.Run(context.Background(), initial(), nil)
	assert.True(t, errors.Is(err, boom))
}

func TestEngineSafeNodeRecoversPanic(t *testing.T) {
	e, err := NewGraph().
		AddNode(models.StageRisk, StageNode(models.StageRisk, func(context.Context, models.State) models.Update {
			panic("nil technical")
		}, logger.Nop())).
		SetEntry(models.StageRisk).
		AddConditionalEdge(models.StageRisk, riskRoute, map[Branch]models.StageName{
			BranchContinue: models.StageEnd,
			BranchEnd:      models.StageEnd,
		}).
		Compile()
	require.NoError(t, err)

	final, err := e.Run(context.Background(), initial(), nil)
	require.NoError(t, err)
	require.NotNil(t, final.Risk)
	assert.False(t, final.Risk.Success)
	assert.Contains(t, final.Errors[models.StageRisk], "nil technical")
	assert.Equal(t, 1, final.StepCount)
}

func TestCompileValidation(t *testing.T) {
	noop := func(context.Context, models.State) (models.Update, error) { return models.Update{}, nil }

	cases := []struct {
		name  string
		graph *Graph
		want  string
	}{
		{"missing entry", NewGraph().AddNode("a", noop).AddEdge("a", models.StageEnd), "entry not set"},
		{"unknown entry", NewGraph().AddNode("a", noop).AddEdge("a", models.StageEnd).SetEntry("b"), "entry b is not a node"},
		{"dangling node", NewGraph().AddNode("a", noop).SetEntry("a"), "no outgoing transition"},
		{"unknown target", NewGraph().AddNode("a", noop).AddEdge("a", "b").SetEntry("a"), "targets unknown node"},
		{"two transitions", NewGraph().AddNode("a", noop).AddEdge("a", models.StageEnd).AddEdge("a", models.StageEnd).SetEntry("a"), "already has an outgoing transition"},
		{"reserved name", NewGraph().AddNode(models.StageEnd, noop), "reserved node name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.graph.Compile()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGraph))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEngineDescribesTopology(t *testing.T) {
	e := (&testGraph{}).build(t)

	assert.Equal(t, []models.StageName{models.StageAnalysis, models.StageRisk, models.StageSynthesis}, e.Nodes())
	assert.Equal(t, []models.Edge{
		{From: models.StageAnalysis, To: models.StageRisk},
		{From: models.StageRisk, To: models.StageSynthesis, Condition: "continue"},
		{From: models.StageRisk, To: models.StageEnd, Condition: "end"},
		{From: models.StageSynthesis, To: models.StageEnd},
	}, e.Edges())
}
