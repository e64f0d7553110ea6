package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/domain/service"
	"FxDesk/internal/services/features"
	"FxDesk/pkg/util"
)

type priceRange struct{ lo, hi float64 }

var priceRanges = map[string]priceRange{
	"EUR/USD": {1.05, 1.12},
	"GBP/USD": {1.20, 1.30},
	"USD/JPY": {140.0, 152.0},
	"AUD/USD": {0.62, 0.68},
	"XAU/USD": {1900, 2400},
}

var defaultPriceRange = priceRange{1.0, 1.5}

const (
	// history is the number of synthetic hourly bars behind the current price.
	history = 240
	// hourlyVol is the per-bar standard deviation of the synthetic log returns.
	hourlyVol = 0.0012
	volWindow = 24
)

// TechnicalMock derives indicators from a synthetic hourly series ending at a
// price sampled from the pair's typical range.
type TechnicalMock struct {
	rng *RNG
	now func() time.Time
}

func NewTechnicalMock(rng *RNG) *TechnicalMock {
	return &TechnicalMock{rng: rng, now: time.Now}
}

func (m *TechnicalMock) AnalyzeTechnical(ctx context.Context, pair string) (models.TechnicalPayload, error) {
	if err := ctx.Err(); err != nil {
		return models.TechnicalPayload{}, err
	}
	if _, _, ok := util.SplitPair(pair); !ok {
		return models.TechnicalPayload{}, fmt.Errorf("invalid pair %q", pair)
	}

	rg, ok := priceRanges[pair]
	if !ok {
		rg = defaultPriceRange
	}
	price := util.Round(m.rng.Uniform(rg.lo, rg.hi), 5)
	closes := m.walk(price, history)

	ind := indicatorsFor(closes)
	trend := trendOf(ind)
	signals := signalsFor(ind.RSI, trend)
	support := util.Round(price*0.98, 5)
	resistance := util.Round(price*1.02, 5)

	return models.TechnicalPayload{
		Pair:         pair,
		CurrentPrice: price,
		Indicators:   ind,
		Trend:        trend,
		Support:      support,
		Resistance:   resistance,
		Signals:      signals,
		StopLoss:     util.Round(support*0.995, 5),
		TakeProfit:   util.Round(resistance*1.005, 5),
		Summary: fmt.Sprintf("Technical analysis shows %s with %s signal. Buy signal: %s, Sell signal: %s.",
			trend, signals.Overall, signals.Buy, signals.Sell),
		Timestamp: m.now().UTC(),
	}, nil
}

// walk builds n closes backwards from last so the series ends exactly at last.
func (m *TechnicalMock) walk(last float64, n int) []float64 {
	closes := make([]float64, n)
	closes[n-1] = last
	for i := n - 1; i > 0; i-- {
		closes[i-1] = closes[i] * math.Exp(-hourlyVol*m.rng.Norm())
	}
	return closes
}

func indicatorsFor(closes []float64) models.Indicators {
	macd, signal := features.MACD(closes, 12, 26, 9)
	upper, lower := features.Bollinger(closes, 20, 2)
	returns := features.ComputeLogReturns(closes)
	return models.Indicators{
		RSI:                util.Round(features.RSI(closes, 14), 2),
		MACD:               util.Round(macd, 5),
		MACDSignal:         util.Round(signal, 5),
		MovingAvg50:        util.Round(features.SMA(closes, 50), 5),
		MovingAvg200:       util.Round(features.SMA(closes, 200), 5),
		BollingerUpper:     util.Round(upper, 5),
		BollingerLower:     util.Round(lower, 5),
		RealizedVolatility: util.Round(features.RealizedVolatility(returns, volWindow, features.BarsPerYear("1h")), 4),
	}
}

// trendOf counts RSI and MACD votes.
func trendOf(ind models.Indicators) string {
	bull, bear := 0, 0
	switch {
	case ind.RSI > 50:
		bull++
	case ind.RSI < 50:
		bear++
	}
	switch {
	case ind.MACD > 0:
		bull++
	case ind.MACD < 0:
		bear++
	}
	switch {
	case bull > bear:
		return "uptrend"
	case bear > bull:
		return "downtrend"
	default:
		return "sideways"
	}
}

func signalsFor(rsi float64, trend string) models.TechnicalSignals {
	buy, sell := models.SignalNeutral, models.SignalNeutral
	switch {
	case rsi < 30:
		buy = models.SignalStrong
	case rsi < 40:
		buy = models.SignalModerate
	}
	switch {
	case rsi > 70:
		sell = models.SignalStrong
	case rsi > 60:
		sell = models.SignalModerate
	}
	if trend == "uptrend" && buy != models.SignalNeutral {
		buy = models.SignalStrong
	}
	if trend == "downtrend" && sell != models.SignalNeutral {
		sell = models.SignalStrong
	}
	return models.TechnicalSignals{Buy: buy, Sell: sell, Overall: overallSignal(buy, sell)}
}

var strength = map[string]int{
	models.SignalNeutral:  0,
	models.SignalWeak:     1,
	models.SignalModerate: 2,
	models.SignalStrong:   3,
}

func overallSignal(buy, sell string) string {
	b, s := strength[buy], strength[sell]
	switch {
	case b > s:
		return models.OverallBuy
	case s > b:
		return models.OverallSell
	default:
		return models.OverallHold
	}
}

var _ service.TechnicalAnalyzer = (*TechnicalMock)(nil)
