package usecase

import (
	"context"
	"fmt"
	"time"

	"FxDesk/internal/domain/models"
	domrepo "FxDesk/internal/domain/repository"
	"FxDesk/internal/pipeline"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/util"
)

// AnalysisService is the entry point shared by the HTTP API, the job worker
// and the Kafka consumer: it parses the query, consults the result cache,
// runs the pipeline and hands the outcome to the recorder.
type AnalysisService struct {
	orch            *Orchestrator
	cache           domrepo.ResultCache
	recorder        domrepo.DecisionRecorder
	observerTimeout time.Duration
	log             *logger.Logger
	now             func() time.Time
}

// NewAnalysisService accepts a nil cache or recorder.
func NewAnalysisService(orch *Orchestrator, cache domrepo.ResultCache, recorder domrepo.DecisionRecorder, observerTimeout time.Duration, log *logger.Logger) *AnalysisService {
	return &AnalysisService{
		orch:            orch,
		cache:           cache,
		recorder:        recorder,
		observerTimeout: observerTimeout,
		log:             log,
		now:             time.Now,
	}
}

func (a *AnalysisService) Info() models.Info { return a.orch.Info() }

func (a *AnalysisService) APIConfigured() bool { return a.orch.APIConfigured() }

// Analyze runs (or serves from cache) the analysis requested by req.
func (a *AnalysisService) Analyze(ctx context.Context, req models.AnalyzeRequest, origin string) (models.FinalResult, error) {
	pair, err := util.ParsePair(req.Query)
	if err != nil {
		return models.FinalResult{}, err
	}
	opts := req.Options()

	key, err := a.cacheKey(pair, opts)
	if err != nil {
		return models.FinalResult{}, err
	}
	if a.cache != nil {
		if res, ok := a.cache.GetResult(ctx, key); ok {
			res.Cached = true
			return res, nil
		}
	}

	res, err := a.orch.Run(ctx, pair, opts)
	if err != nil {
		return models.FinalResult{}, err
	}
	a.finish(ctx, key, res, origin)
	return res, nil
}

// Stream runs the analysis and emits progress events to events, which it
// closes on return. A send that is not accepted within the observer timeout
// is dropped so a slow consumer never stalls the run.
func (a *AnalysisService) Stream(ctx context.Context, req models.AnalyzeRequest, origin string, events chan<- models.StreamEvent) (models.FinalResult, error) {
	defer close(events)
	emit := a.emitter(ctx, events)

	emit(models.EventStart, models.StartEvent{Query: req.Query, Timestamp: a.now().UTC()})

	pair, err := util.ParsePair(req.Query)
	if err != nil {
		emit(models.EventError, models.ErrorEvent{Error: err.Error(), ErrorType: "invalid_query"})
		return models.FinalResult{}, err
	}
	emit(models.EventQueryParsed, models.QueryParsedEvent{Query: req.Query, Pair: pair})

	obs := func(node models.StageName, s models.State) {
		switch node {
		case models.StageAnalysis:
			emit(models.EventAgentUpdate, agentUpdate(models.StageNews, s.News, s))
			emit(models.EventAgentUpdate, agentUpdate(models.StageTechnical, s.Technical, s))
			emit(models.EventAgentUpdate, agentUpdate(models.StageFundamental, s.Fundamental, s))
		case models.StageRisk:
			emit(models.EventRiskUpdate, agentUpdate(models.StageRisk, s.Risk, s))
		}
	}

	res, err := a.orch.RunObserved(ctx, pair, req.Options(), pipeline.Observer(obs))
	if err != nil {
		emit(models.EventError, models.ErrorEvent{Error: err.Error(), ErrorType: fmt.Sprintf("%T", err)})
		return models.FinalResult{}, err
	}
	if key, kerr := a.cacheKey(pair, req.Options()); kerr == nil {
		a.finish(ctx, key, res, origin)
	}

	emit(models.EventDecision, res.Decision)
	emit(models.EventComplete, res)
	return res, nil
}

func (a *AnalysisService) emitter(ctx context.Context, events chan<- models.StreamEvent) func(string, interface{}) {
	return func(typ string, data interface{}) {
		ev := models.StreamEvent{Type: typ, Data: data}
		if a.observerTimeout <= 0 {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
			return
		}
		t := time.NewTimer(a.observerTimeout)
		defer t.Stop()
		select {
		case events <- ev:
		case <-ctx.Done():
		case <-t.C:
			a.log.Warn("dropping progress event for slow consumer", logger.String("event", typ))
		}
	}
}

func agentUpdate[T any](stage models.StageName, r *models.StageResult[T], s models.State) models.AgentUpdateEvent {
	ev := models.AgentUpdateEvent{Agent: stage, Step: s.StepCount}
	if r == nil {
		ev.Error = s.Errors[stage]
		return ev
	}
	ev.Success = r.Success
	ev.Error = r.Error
	if r.Data != nil {
		ev.Data = r.Data
	}
	return ev
}

func (a *AnalysisService) cacheKey(pair string, opts models.RunOptions) (string, error) {
	acc, err := a.orch.Account(pair, opts)
	if err != nil {
		return "", err
	}
	return resultKey(pair, acc), nil
}

func resultKey(pair string, acc models.AccountSettings) string {
	return fmt.Sprintf("result:%s:%g:%g", pair, acc.AccountBalance, acc.MaxRiskFraction)
}

func (a *AnalysisService) finish(ctx context.Context, key string, res models.FinalResult, origin string) {
	if a.recorder != nil {
		a.recorder.Record(models.NewDecisionRecord(res, origin))
	}
	// Degraded runs are not cached so a transient failure is not served again.
	if a.cache != nil && len(res.Errors) == 0 {
		a.cache.PutResult(ctx, key, res)
	}
}
