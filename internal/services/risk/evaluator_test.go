package risk

import (
	"errors"
	"testing"
	"time"

	"FxDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func eurusd(entry, stop float64, tp *float64) Input {
	return Input{
		EntryPrice:      entry,
		StopPrice:       stop,
		Direction:       models.DirectionBuy,
		TakeProfit:      tp,
		AccountBalance:  10000,
		MaxRiskFraction: 0.02,
		PipScale:        10000,
	}
}

func TestEvaluateReferenceTrade(t *testing.T) {
	a, err := Evaluate(eurusd(1.0850, 1.0800, ptr(1.0950)))
	require.NoError(t, err)

	assert.Equal(t, 50.0, a.RiskPips)
	assert.Equal(t, 200.0, a.DollarRisk)
	assert.Equal(t, 0.4, a.PositionSize)
	assert.Equal(t, 2.0, a.RiskPercentage)
	require.NotNil(t, a.RewardPips)
	assert.Equal(t, 100.0, *a.RewardPips)
	assert.Equal(t, 2.0, *a.RiskRewardRatio)
	assert.Equal(t, 400.0, *a.PotentialProfit)
	assert.True(t, a.Approved)
	assert.Empty(t, a.Reason)
}

func TestEvaluateBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		in       Input
		pips     float64
		approved bool
		reason   string
	}{
		{"exactly ten pips", eurusd(1.0850, 1.0840, ptr(1.0950)), 10.0, true, ""},
		{"exactly one hundred pips", eurusd(1.0850, 1.0750, ptr(1.1000)), 100.0, true, ""},
		{"just over one hundred", eurusd(1.0850, 1.07499, nil), 100.1, false, ReasonRiskTooHigh},
		{"just under ten", eurusd(1.0850, 1.08401, nil), 9.9, false, ReasonRiskTooSmall},
		{"zero distance", eurusd(1.0850, 1.0850, ptr(1.0950)), 0, false, ReasonInvalidStop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Evaluate(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.pips, a.RiskPips)
			assert.Equal(t, tc.approved, a.Approved)
			assert.Equal(t, tc.reason, a.Reason)
		})
	}
}

func TestEvaluateGateOrder(t *testing.T) {
	cases := []struct {
		name   string
		in     Input
		reason string
	}{
		{"too high beats poor ratio", eurusd(1.0850, 1.0700, ptr(1.0860)), ReasonRiskTooHigh},
		{"poor ratio beats too small", eurusd(1.0850, 1.0845, ptr(1.0852)), ReasonPoorRiskReward},
		{"poor ratio in range", eurusd(1.0850, 1.0800, ptr(1.0900)), ReasonPoorRiskReward},
		{"too small with good ratio", eurusd(1.0850, 1.0845, ptr(1.0950)), ReasonRiskTooSmall},
		{"zero distance without take profit", eurusd(1.0850, 1.0850, nil), ReasonInvalidStop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Evaluate(tc.in)
			require.NoError(t, err)
			assert.False(t, a.Approved)
			assert.Equal(t, tc.reason, a.Reason)
		})
	}
}

func TestEvaluateRatioGateUsesFullPrecision(t *testing.T) {
	// 44.9 / 30 is 1.4967, which rounds to 1.50 for display only.
	a, err := Evaluate(eurusd(1.0850, 1.0820, ptr(1.08949)))
	require.NoError(t, err)
	assert.Equal(t, 30.0, a.RiskPips)
	assert.Equal(t, 44.9, *a.RewardPips)
	assert.Equal(t, 1.5, *a.RiskRewardRatio)
	assert.False(t, a.Approved)
	assert.Equal(t, ReasonPoorRiskReward, a.Reason)

	in := eurusd(150.00, 149.50, ptr(150.75))
	in.PipScale = 100
	a, err = Evaluate(in)
	require.NoError(t, err)
	assert.Equal(t, 50.0, a.RiskPips)
	assert.Equal(t, 75.0, *a.RewardPips)
	assert.Equal(t, 1.5, *a.RiskRewardRatio)
	assert.True(t, a.Approved)
	assert.Empty(t, a.Reason)
}

func TestEvaluateRatioFromRawDistances(t *testing.T) {
	// Raw distances are 12.04 and 10.04 pips; profit from the rounded pips would be 240.
	in := eurusd(100.0, 99.8996, ptr(100.1204))
	in.PipScale = 100
	a, err := Evaluate(in)
	require.NoError(t, err)
	assert.Equal(t, 10.0, a.RiskPips)
	assert.Equal(t, 12.0, *a.RewardPips)
	assert.Equal(t, 1.2, *a.RiskRewardRatio)
	assert.Equal(t, 239.84, *a.PotentialProfit)
}

func TestEvaluateZeroRiskRatio(t *testing.T) {
	a, err := Evaluate(eurusd(1.0850, 1.0850, ptr(1.0950)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.PositionSize)
	require.NotNil(t, a.RiskRewardRatio)
	assert.Equal(t, 0.0, *a.RiskRewardRatio)
	assert.Equal(t, 0.0, *a.PotentialProfit)
}

func TestEvaluateIsDirectionIndependent(t *testing.T) {
	buy, err := Evaluate(eurusd(1.0850, 1.0800, ptr(1.0950)))
	require.NoError(t, err)

	in := eurusd(1.0850, 1.0900, ptr(1.0750))
	in.Direction = models.DirectionSell
	sell, err := Evaluate(in)
	require.NoError(t, err)

	assert.Equal(t, buy, sell)
}

func TestEvaluateMonotonic(t *testing.T) {
	const entry = 1.0850
	prevPips, prevSize := 0.0, 1e18
	for k := 1; k <= 150; k++ {
		a, err := Evaluate(eurusd(entry, entry-float64(k)*0.0001, nil))
		require.NoError(t, err)

		assert.GreaterOrEqual(t, a.RiskPips, prevPips, "k=%d", k)
		assert.LessOrEqual(t, a.PositionSize, prevSize, "k=%d", k)
		want := a.RiskPips >= MinRiskPips && a.RiskPips <= MaxRiskPips
		assert.Equal(t, want, a.Approved, "k=%d pips=%v", k, a.RiskPips)

		prevPips, prevSize = a.RiskPips, a.PositionSize
	}
}

func TestEvaluateIsPure(t *testing.T) {
	in := eurusd(1.0850, 1.0800, ptr(1.0950))
	a1, _ := Evaluate(in)
	a2, _ := Evaluate(in)
	assert.Equal(t, a1, a2)
	assert.Equal(t, 1.0950, *in.TakeProfit)
}

func TestEvaluatePipScale(t *testing.T) {
	in := eurusd(150.00, 149.50, ptr(151.00))
	in.PipScale = 100
	a, err := Evaluate(in)
	require.NoError(t, err)
	assert.Equal(t, 50.0, a.RiskPips)
	assert.True(t, a.Approved)
}

func TestEvaluateInvalidInputs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		want   error
	}{
		{"zero balance", func(in *Input) { in.AccountBalance = 0 }, ErrInvalidBalance},
		{"negative balance", func(in *Input) { in.AccountBalance = -5 }, ErrInvalidBalance},
		{"zero fraction", func(in *Input) { in.MaxRiskFraction = 0 }, ErrInvalidFraction},
		{"fraction above one", func(in *Input) { in.MaxRiskFraction = 1.2 }, ErrInvalidFraction},
		{"zero pip scale", func(in *Input) { in.PipScale = 0 }, ErrInvalidPipScale},
		{"hold direction", func(in *Input) { in.Direction = "HOLD" }, ErrInvalidDirection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := eurusd(1.0850, 1.0800, ptr(1.0950))
			tc.mutate(&in)
			_, err := Evaluate(in)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestPayload(t *testing.T) {
	in := eurusd(1.0850, 1.0800, ptr(1.0950))
	a, err := Evaluate(in)
	require.NoError(t, err)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := Payload("EUR/USD", in, a, now)
	assert.Equal(t, "EUR/USD", p.Pair)
	assert.True(t, p.TradeApproved)
	assert.Equal(t, 0.4, p.PositionSize)
	assert.Equal(t, now, p.Timestamp)
	assert.Contains(t, p.Summary, "APPROVED")

	in.StopPrice = 1.0850
	a, _ = Evaluate(in)
	p = Payload("EUR/USD", in, a, now)
	assert.Equal(t, "Trade REJECTED: "+ReasonInvalidStop, p.Summary)
}
