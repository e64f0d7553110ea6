package analysis

import (
	"context"
	"fmt"
	"math"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/domain/service"
	"FxDesk/pkg/util"
)

// Weights of the heuristic decision score.
const (
	technicalWeight   = 0.4
	fundamentalWeight = 0.3
	newsWeight        = 0.3

	// actionThreshold is the minimum absolute score that produces a trade.
	actionThreshold = 0.2
)

// HeuristicDecision scores the stage findings locally. It is used when no
// language model is configured.
type HeuristicDecision struct{}

func NewHeuristicDecision() *HeuristicDecision { return &HeuristicDecision{} }

func (HeuristicDecision) Decide(ctx context.Context, in models.SynthesisInput) (models.Decision, error) {
	if err := ctx.Err(); err != nil {
		return models.Decision{}, err
	}
	if !in.Risk.OK() {
		return models.Decision{}, fmt.Errorf("risk assessment unavailable")
	}
	if !in.Risk.Data.TradeApproved {
		d := models.WaitDecision("Risk evaluation rejected the trade: " + in.Risk.Data.RejectionReason)
		d.Reasoning.RiskRejection = true
		return d, nil
	}

	var (
		score   float64
		factors []string
		risks   []string
	)
	if in.Technical.OK() {
		t := in.Technical.Data
		switch t.Signals.Overall {
		case models.OverallBuy:
			score += technicalWeight
		case models.OverallSell:
			score -= technicalWeight
		}
		factors = append(factors, fmt.Sprintf("Technical: %s, overall %s (RSI %.1f)", t.Trend, t.Signals.Overall, t.Indicators.RSI))
	} else {
		risks = append(risks, "Technical analysis unavailable")
	}
	if in.Fundamental.OK() {
		f := in.Fundamental.Data
		score += fundamentalWeight * f.FundamentalScore
		factors = append(factors, fmt.Sprintf("Fundamentals: %s outlook (score %.2f)", f.Outlook, f.FundamentalScore))
	} else {
		risks = append(risks, "Fundamental analysis unavailable")
	}
	if in.News.OK() {
		n := in.News.Data
		score += newsWeight * n.SentimentScore
		factors = append(factors, fmt.Sprintf("News sentiment: %s (%.2f)", n.Sentiment, n.SentimentScore))
		if n.Impact == "high" {
			risks = append(risks, "High-impact news flow")
		}
	} else {
		risks = append(risks, "News analysis unavailable")
	}
	r := in.Risk.Data
	if r.RiskRewardRatio != nil {
		factors = append(factors, fmt.Sprintf("Risk/reward 1:%.2f over %.1f pips", *r.RiskRewardRatio, r.RiskInPips))
	}

	action := models.ActionWait
	switch {
	case score >= actionThreshold:
		action = models.ActionBuy
	case score <= -actionThreshold:
		action = models.ActionSell
	}
	confidence := util.Round(util.Clamp(0.5+math.Abs(score)/2, 0, 1), 2)
	if action == models.ActionWait {
		confidence = util.Round(1-math.Abs(score), 2)
	}

	return models.Decision{
		Action:     action,
		Confidence: confidence,
		Reasoning: models.Reasoning{
			Summary:    fmt.Sprintf("Combined signal score %.2f for %s gives %s.", score, in.Subject, action),
			KeyFactors: append([]string{}, factors...),
			Risks:      append([]string{}, risks...),
		},
	}, nil
}

var _ service.DecisionService = HeuristicDecision{}
