package pipeline

import (
	"context"
	"errors"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/domain/repository"
	"FxDesk/pkg/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var errBudgetExhausted = errors.New("fan-out worker budget exhausted")

// FanOut runs independent stages concurrently against one input snapshot and
// folds their deltas into a single update.
//
// Every stage is wrapped in Safe, so a panic is that stage's failure only.
// Each run reserves one slot per stage from a semaphore shared by all runs.
// When no slots are free the stages run one after another on progressively
// merged state and the fallback is recorded under errors["parallel_execution"].
type FanOut struct {
	stages  []NamedStage
	budget  *semaphore.Weighted
	log     *logger.Logger
	metrics repository.Metrics
}

func NewFanOut(budget *semaphore.Weighted, log *logger.Logger, metrics repository.Metrics, stages ...NamedStage) *FanOut {
	guarded := make([]NamedStage, len(stages))
	for i, st := range stages {
		guarded[i] = NamedStage{Name: st.Name, Run: Safe(st.Name, st.Run, log)}
	}
	return &FanOut{
		stages:  guarded,
		budget:  budget,
		log:     log,
		metrics: metrics,
	}
}

// Node exposes the fan-out as an engine node.
func (f *FanOut) Node() Node {
	return f.Run
}

func (f *FanOut) Run(ctx context.Context, s models.State) (models.Update, error) {
	if err := ctx.Err(); err != nil {
		return models.Update{}, err
	}

	deltas, perr := f.parallel(ctx, s)
	if err := ctx.Err(); err != nil {
		// Partial results of a cancelled run are discarded.
		return models.Update{}, err
	}
	if perr == nil {
		return combine(deltas), nil
	}

	f.log.Warn("parallel analysis unavailable, running stages sequentially",
		logger.String("subject", s.Subject),
		logger.Error(perr))
	f.metrics.RecordFanOutFallback()

	u, err := f.sequential(ctx, s)
	if err != nil {
		return models.Update{}, err
	}
	u.Errors[models.ParallelExecution] = perr.Error()
	return u, nil
}

func (f *FanOut) parallel(ctx context.Context, s models.State) ([]models.Update, error) {
	n := int64(len(f.stages))
	if !f.budget.TryAcquire(n) {
		return nil, errBudgetExhausted
	}
	defer f.budget.Release(n)

	deltas := make([]models.Update, len(f.stages))
	var g errgroup.Group
	for i, st := range f.stages {
		snapshot := s.Clone()
		g.Go(func() error {
			deltas[i] = st.Run(ctx, snapshot)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return deltas, nil
}

func (f *FanOut) sequential(ctx context.Context, s models.State) (models.Update, error) {
	cur := s.Clone()
	for _, st := range f.stages {
		if err := ctx.Err(); err != nil {
			return models.Update{}, err
		}
		cur = Merge(cur, st.Run(ctx, cur))
	}

	u := models.Update{
		News:        cur.News,
		Technical:   cur.Technical,
		Fundamental: cur.Fundamental,
		StepCount:   cur.StepCount,
		Errors:      make(map[models.StageName]string, len(cur.Errors)+1),
	}
	for k, v := range cur.Errors {
		u.Errors[k] = v
	}
	return u, nil
}
