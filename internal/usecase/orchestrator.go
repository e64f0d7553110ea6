package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FxDesk/internal/domain/models"
	domrepo "FxDesk/internal/domain/repository"
	"FxDesk/internal/pipeline"
	"FxDesk/pkg/config"
	"FxDesk/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/semaphore"
)

var ErrInvalidRunOptions = errors.New("invalid run options")

// RiskApproved continues to synthesis only when the risk stage succeeded and
// approved the trade.
func RiskApproved(s models.State) pipeline.Branch {
	if s.Risk.OK() && s.Risk.Data.TradeApproved {
		return pipeline.BranchContinue
	}
	return pipeline.BranchEnd
}

// Orchestrator owns the compiled stage graph and turns runs into results. It
// keeps no per-run state and is safe for concurrent use.
type Orchestrator struct {
	engine     *pipeline.Engine
	risk       config.RiskConfig
	runTimeout time.Duration
	apiReady   bool
	backend    string
	tracer     trace.Tracer
	metrics    domrepo.Metrics
	log        *logger.Logger
	now        func() time.Time
	newID      func() string
}

func NewOrchestrator(
	cfg *config.Config,
	stages *Stages,
	budget *semaphore.Weighted,
	tracer trace.Tracer,
	metrics domrepo.Metrics,
	log *logger.Logger,
) (*Orchestrator, error) {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("usecase")
	}

	fan := pipeline.NewFanOut(budget, log, metrics,
		pipeline.NamedStage{Name: models.StageNews, Run: stages.News},
		pipeline.NamedStage{Name: models.StageTechnical, Run: stages.Technical},
		pipeline.NamedStage{Name: models.StageFundamental, Run: stages.Fundamental},
	)

	engine, err := pipeline.NewGraph().
		AddNode(models.StageAnalysis, fan.Node()).
		AddNode(models.StageRisk, pipeline.StageNode(models.StageRisk, stages.Risk, log)).
		AddNode(models.StageSynthesis, pipeline.StageNode(models.StageSynthesis, stages.Synthesis, log)).
		AddEdge(models.StageAnalysis, models.StageRisk).
		AddConditionalEdge(models.StageRisk, RiskApproved, map[pipeline.Branch]models.StageName{
			pipeline.BranchContinue: models.StageSynthesis,
			pipeline.BranchEnd:      models.StageEnd,
		}).
		AddEdge(models.StageSynthesis, models.StageEnd).
		SetEntry(models.StageAnalysis).
		Compile(pipeline.WithTracer(tracer))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	return &Orchestrator{
		engine:     engine,
		risk:       cfg.Risk,
		runTimeout: cfg.Pipeline.RunTimeout,
		apiReady:   cfg.Gemini.Configured(),
		backend:    cfg.Backend.Type,
		tracer:     tracer,
		metrics:    metrics,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Account resolves the settings a run on subject sizes against.
func (o *Orchestrator) Account(subject string, opts models.RunOptions) (models.AccountSettings, error) {
	acc := models.AccountSettings{
		AccountBalance:  o.risk.AccountBalance,
		MaxRiskFraction: o.risk.MaxRiskFraction,
		PipScale:        o.risk.PipScaleFor(subject),
	}
	if opts.AccountBalance != nil {
		acc.AccountBalance = *opts.AccountBalance
	}
	if opts.MaxRiskFraction != nil {
		acc.MaxRiskFraction = *opts.MaxRiskFraction
	}
	if acc.AccountBalance <= 0 {
		return acc, fmt.Errorf("%w: account balance must be positive", ErrInvalidRunOptions)
	}
	if acc.MaxRiskFraction <= 0 || acc.MaxRiskFraction > 1 {
		return acc, fmt.Errorf("%w: max risk per trade must be in (0, 1]", ErrInvalidRunOptions)
	}
	return acc, nil
}

func (o *Orchestrator) Run(ctx context.Context, subject string, opts models.RunOptions) (models.FinalResult, error) {
	return o.RunObserved(ctx, subject, opts, nil)
}

// RunObserved is Run with a progress observer called after every node.
func (o *Orchestrator) RunObserved(ctx context.Context, subject string, opts models.RunOptions, obs pipeline.Observer) (models.FinalResult, error) {
	acc, err := o.Account(subject, opts)
	if err != nil {
		return models.FinalResult{}, err
	}

	runID := o.newID()
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("subject", subject),
	))
	defer span.End()

	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}

	started := o.now()
	final, err := o.engine.Run(ctx, models.NewState(subject, acc), obs)
	if err != nil {
		o.metrics.RecordError("run")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.Error("pipeline run failed",
			logger.String("run_id", runID),
			logger.String("subject", subject),
			logger.Error(err))
		return models.FinalResult{}, err
	}

	res := o.shape(final, runID, started)
	o.metrics.ObserveRun(res.Decision.Action, time.Since(started).Seconds())
	span.SetAttributes(attribute.String("action", string(res.Decision.Action)))
	o.log.Info("pipeline run complete",
		logger.String("run_id", runID),
		logger.String("subject", subject),
		logger.String("action", string(res.Decision.Action)),
		logger.Float64("confidence", res.Decision.Confidence),
		logger.Int("steps", res.StepCount),
		logger.Int("errors", len(res.Errors)))
	return res, nil
}

func (o *Orchestrator) shape(s models.State, runID string, started time.Time) models.FinalResult {
	var d models.Decision
	if s.Decision != nil {
		d = s.Decision.Clone()
	} else {
		d = terminationDecision(s)
	}
	return models.FinalResult{
		RunID:    runID,
		Subject:  s.Subject,
		Account:  s.Account,
		Decision: d,
		Results: models.StageResults{
			News:        s.News,
			Technical:   s.Technical,
			Fundamental: s.Fundamental,
			Risk:        s.Risk,
		},
		StepCount:  s.StepCount,
		Errors:     s.Errors,
		StartedAt:  started.UTC(),
		DurationMs: o.now().Sub(started).Milliseconds(),
	}
}

// terminationDecision is the WAIT returned when the graph ended at the risk branch.
func terminationDecision(s models.State) models.Decision {
	if !s.Risk.OK() {
		d := models.WaitDecision("Risk evaluation failed: " + s.ResultError(models.StageRisk))
		d.Reasoning.RiskRejection = true
		d.Reasoning.Error = true
		return d
	}
	d := models.WaitDecision("Trade rejected by risk evaluation: " + s.Risk.Data.RejectionReason)
	d.Reasoning.RiskRejection = true
	return d
}

// Info describes the graph and the configured defaults without running anything.
func (o *Orchestrator) Info() models.Info {
	nodes := o.engine.Nodes()
	edges := o.engine.Edges()
	return models.Info{
		System: models.SystemInfo{
			AccountBalance:  o.risk.AccountBalance,
			MaxRiskPerTrade: o.risk.MaxRiskFraction,
			PipScale:        o.risk.PipScale,
			APIConfigured:   o.apiReady,
			Backend:         o.backend,
		},
		Workflow: models.WorkflowInfo{
			Nodes:    nodes,
			Edges:    edges,
			NumNodes: len(nodes),
			NumEdges: len(edges),
		},
	}
}

func (o *Orchestrator) APIConfigured() bool { return o.apiReady }
