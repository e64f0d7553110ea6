// Package risk sizes a proposed trade against an account and gates it on
// pip distance and reward/risk.
package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/pkg/util"
)

const (
	MaxRiskPips   = 100.0
	MinRiskPips   = 10.0
	MinRiskReward = 1.5

	// PipValuePerLot is the USD value of one pip on one standard lot.
	PipValuePerLot = 10.0
)

// Rejection reasons, in gate order.
const (
	ReasonInvalidStop    = "invalid stop: non-positive risk distance"
	ReasonRiskTooHigh    = "risk too high: exceeds maximum pip threshold"
	ReasonPoorRiskReward = "risk/reward below minimum threshold"
	ReasonRiskTooSmall   = "risk too small: below minimum pip threshold"
)

var (
	ErrInvalidBalance   = errors.New("risk: account balance must be positive")
	ErrInvalidFraction  = errors.New("risk: max risk fraction must be in (0, 1]")
	ErrInvalidPipScale  = errors.New("risk: pip scale must be positive")
	ErrInvalidDirection = errors.New("risk: direction must be BUY or SELL")
	ErrInvalidPrice     = errors.New("risk: prices must be finite")
)

type Input struct {
	EntryPrice      float64
	StopPrice       float64
	Direction       models.Direction
	TakeProfit      *float64
	AccountBalance  float64
	MaxRiskFraction float64
	PipScale        float64
}

// Assessment is the evaluator's output. Pips are rounded to one decimal,
// money and ratios to two.
type Assessment struct {
	RiskPips        float64
	DollarRisk      float64
	PositionSize    float64
	RiskPercentage  float64
	RewardPips      *float64
	RiskRewardRatio *float64
	PotentialProfit *float64
	Approved        bool
	Reason          string
}

// Evaluate is pure: the same input always yields the same assessment.
func Evaluate(in Input) (Assessment, error) {
	if err := in.validate(); err != nil {
		return Assessment{}, err
	}

	// Pip distances are rounded before the pip gates so the 10.0 and 100.0
	// boundaries are exact. The ratio uses raw distances and is gated unrounded.
	rawRisk := math.Abs(in.EntryPrice-in.StopPrice) * in.PipScale
	riskPips := util.Round(rawRisk, 1)
	dollarRisk := in.AccountBalance * in.MaxRiskFraction

	a := Assessment{
		RiskPips:       riskPips,
		DollarRisk:     util.Round(dollarRisk, 2),
		RiskPercentage: util.Round(in.MaxRiskFraction*100, 2),
	}
	if riskPips > 0 {
		a.PositionSize = util.Round(dollarRisk/(riskPips*PipValuePerLot), 2)
	}

	var ratio *float64
	if in.TakeProfit != nil {
		rawReward := math.Abs(in.EntryPrice-*in.TakeProfit) * in.PipScale
		var r float64
		if rawRisk > 0 {
			r = rawReward / rawRisk
		}
		ratio = &r

		rewardPips := util.Round(rawReward, 1)
		rr := util.Round(r, 2)
		profit := util.Round(r*dollarRisk, 2)
		a.RewardPips = &rewardPips
		a.RiskRewardRatio = &rr
		a.PotentialProfit = &profit
	}

	a.Approved, a.Reason = gate(riskPips, ratio)
	return a, nil
}

// gate applies the validation rules in fixed order; the first failure wins.
func gate(riskPips float64, ratio *float64) (bool, string) {
	switch {
	case riskPips <= 0:
		return false, ReasonInvalidStop
	case riskPips > MaxRiskPips:
		return false, ReasonRiskTooHigh
	case ratio != nil && *ratio < MinRiskReward:
		return false, ReasonPoorRiskReward
	case riskPips < MinRiskPips:
		return false, ReasonRiskTooSmall
	}
	return true, ""
}

func (in Input) validate() error {
	if math.IsNaN(in.AccountBalance) || in.AccountBalance <= 0 || math.IsInf(in.AccountBalance, 0) {
		return ErrInvalidBalance
	}
	if math.IsNaN(in.MaxRiskFraction) || in.MaxRiskFraction <= 0 || in.MaxRiskFraction > 1 {
		return ErrInvalidFraction
	}
	if math.IsNaN(in.PipScale) || in.PipScale <= 0 || math.IsInf(in.PipScale, 0) {
		return ErrInvalidPipScale
	}
	if !in.Direction.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, in.Direction)
	}
	if !finite(in.EntryPrice) || !finite(in.StopPrice) || (in.TakeProfit != nil && !finite(*in.TakeProfit)) {
		return ErrInvalidPrice
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Payload renders an assessment as the risk stage's result data.
func Payload(pair string, in Input, a Assessment, now time.Time) models.RiskPayload {
	p := models.RiskPayload{
		Pair:            pair,
		Direction:       in.Direction,
		EntryPrice:      in.EntryPrice,
		StopLoss:        in.StopPrice,
		TakeProfit:      in.TakeProfit,
		PipScale:        in.PipScale,
		RiskInPips:      a.RiskPips,
		PositionSize:    a.PositionSize,
		DollarRisk:      a.DollarRisk,
		RiskPercentage:  a.RiskPercentage,
		AccountBalance:  in.AccountBalance,
		RewardInPips:    a.RewardPips,
		RiskRewardRatio: a.RiskRewardRatio,
		PotentialProfit: a.PotentialProfit,
		TradeApproved:   a.Approved,
		RejectionReason: a.Reason,
		Timestamp:       now.UTC(),
	}
	if a.Approved {
		p.Summary = fmt.Sprintf("Trade APPROVED: position size %.2f lots, risking $%.2f (%.1f%% of account).",
			a.PositionSize, a.DollarRisk, a.RiskPercentage)
	} else {
		p.Summary = "Trade REJECTED: " + a.Reason
	}
	return p
}
