package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FxDesk/internal/domain/models"
	domrepo "FxDesk/internal/domain/repository"
	domsvc "FxDesk/internal/domain/service"
	"FxDesk/internal/services/risk"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/util"
)

const errMissingTechnical = "missing technical analysis"

// Stages holds the collaborators behind the five stage functions.
type Stages struct {
	news          domsvc.NewsAnalyzer
	technical     domsvc.TechnicalAnalyzer
	fundamental   domsvc.FundamentalAnalyzer
	decider       domsvc.DecisionService
	stageTimeout  time.Duration
	minConfidence float64
	metrics       domrepo.Metrics
	log           *logger.Logger
	now           func() time.Time
}

func NewStages(
	news domsvc.NewsAnalyzer,
	technical domsvc.TechnicalAnalyzer,
	fundamental domsvc.FundamentalAnalyzer,
	decider domsvc.DecisionService,
	stageTimeout time.Duration,
	minConfidence float64,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *Stages {
	return &Stages{
		news:          news,
		technical:     technical,
		fundamental:   fundamental,
		decider:       decider,
		stageTimeout:  stageTimeout,
		minConfidence: minConfidence,
		metrics:       metrics,
		log:           log,
		now:           time.Now,
	}
}

func (s *Stages) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.stageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.stageTimeout)
}

func (s *Stages) fail(stage models.StageName, st models.State, err error, started time.Time) models.Update {
	s.metrics.ObserveStage(stage, false, time.Since(started).Seconds())
	s.log.Warn("stage failed",
		logger.String("stage", stage.String()),
		logger.String("subject", st.Subject),
		logger.Error(err))
	return models.FailureUpdate(stage, err.Error(), st.StepCount+1)
}

func (s *Stages) News(ctx context.Context, st models.State) models.Update {
	started := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.news.AnalyzeNews(ctx, st.Subject)
	if err != nil {
		return s.fail(models.StageNews, st, err, started)
	}
	s.metrics.ObserveStage(models.StageNews, true, time.Since(started).Seconds())
	return models.Update{News: models.Succeeded(p), StepCount: st.StepCount + 1}
}

func (s *Stages) Technical(ctx context.Context, st models.State) models.Update {
	started := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.technical.AnalyzeTechnical(ctx, st.Subject)
	if err != nil {
		return s.fail(models.StageTechnical, st, err, started)
	}
	s.metrics.ObserveStage(models.StageTechnical, true, time.Since(started).Seconds())
	return models.Update{Technical: models.Succeeded(p), StepCount: st.StepCount + 1}
}

func (s *Stages) Fundamental(ctx context.Context, st models.State) models.Update {
	started := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.fundamental.AnalyzeFundamental(ctx, st.Subject)
	if err != nil {
		return s.fail(models.StageFundamental, st, err, started)
	}
	s.metrics.ObserveStage(models.StageFundamental, true, time.Since(started).Seconds())
	return models.Update{Fundamental: models.Succeeded(p), StepCount: st.StepCount + 1}
}

// Risk sizes the technical setup against the run's account. The direction is
// BUY only for an overall BUY signal; SELL and HOLD are sized as SELL.
func (s *Stages) Risk(_ context.Context, st models.State) models.Update {
	started := time.Now()
	if !st.Technical.OK() {
		return s.fail(models.StageRisk, st, errors.New(errMissingTechnical), started)
	}
	t := st.Technical.Data

	dir := models.DirectionSell
	if t.Signals.Overall == models.OverallBuy {
		dir = models.DirectionBuy
	}
	in := risk.Input{
		EntryPrice:      t.CurrentPrice,
		StopPrice:       t.StopLoss,
		Direction:       dir,
		AccountBalance:  st.Account.AccountBalance,
		MaxRiskFraction: st.Account.MaxRiskFraction,
		PipScale:        st.Account.PipScale,
	}
	if t.TakeProfit > 0 {
		tp := t.TakeProfit
		in.TakeProfit = &tp
	}

	a, err := risk.Evaluate(in)
	if err != nil {
		return s.fail(models.StageRisk, st, err, started)
	}
	if !a.Approved {
		s.metrics.RecordRiskRejection(a.Reason)
	}
	s.metrics.ObserveStage(models.StageRisk, true, time.Since(started).Seconds())
	return models.Update{
		Risk:      models.Succeeded(risk.Payload(st.Subject, in, a, s.now().UTC())),
		StepCount: st.StepCount + 1,
	}
}

// Synthesis asks the decision service for the final call. Failures degrade to
// a WAIT decision recorded under errors["synthesis"].
func (s *Stages) Synthesis(ctx context.Context, st models.State) models.Update {
	started := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	d, err := s.decider.Decide(ctx, models.SynthesisInputFrom(st))
	if err != nil {
		u := s.fail(models.StageSynthesis, st, err, started)
		fallback := models.WaitDecision("Synthesis failed: " + err.Error())
		fallback.Reasoning.Error = true
		u.Decision = &fallback
		return u
	}
	s.metrics.ObserveStage(models.StageSynthesis, true, time.Since(started).Seconds())

	d = Normalize(d, st, s.minConfidence)
	return models.Update{Decision: &d, StepCount: st.StepCount + 1}
}

// Normalize makes a decision service reply safe to return: the action is
// valid, confidence lies in [0, 1], trades carry parameters consistent with
// the technical and risk results, and WAIT carries none.
func Normalize(d models.Decision, st models.State, minConfidence float64) models.Decision {
	d = d.Clone()
	if d.Reasoning.KeyFactors == nil {
		d.Reasoning.KeyFactors = []string{}
	}
	if d.Reasoning.Risks == nil {
		d.Reasoning.Risks = []string{}
	}
	d.Confidence = util.Clamp(d.Confidence, 0, 1)

	if !d.Action.Valid() {
		d.Reasoning.Risks = append(d.Reasoning.Risks, fmt.Sprintf("Unrecognised action %q treated as WAIT", d.Action))
		d.Action = models.ActionWait
	}
	if d.Action.Trades() && (!st.Risk.OK() || !st.Risk.Data.TradeApproved) {
		d.Reasoning.Risks = append(d.Reasoning.Risks, "Trade not approved by risk evaluation")
		d.Action = models.ActionWait
	}
	if d.Action.Trades() && d.Confidence < minConfidence {
		d.Reasoning.Risks = append(d.Reasoning.Risks,
			fmt.Sprintf("Confidence %.2f below minimum %.2f", d.Confidence, minConfidence))
		d.Action = models.ActionWait
	}

	if !d.Action.Trades() {
		d.TradeParameters = nil
		return d
	}

	tp := models.TradeParameters{}
	if d.TradeParameters != nil {
		tp = *d.TradeParameters
	}
	if st.Technical.OK() {
		t := st.Technical.Data
		if tp.EntryPrice <= 0 {
			tp.EntryPrice = t.CurrentPrice
		}
		if tp.StopLoss <= 0 {
			tp.StopLoss = t.StopLoss
		}
		if tp.TakeProfit <= 0 {
			tp.TakeProfit = t.TakeProfit
		}
	}
	// Size always comes from the risk gate.
	tp.PositionSize = st.Risk.Data.PositionSize
	d.TradeParameters = &tp
	return d
}
