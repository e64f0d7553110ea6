package analysis

import (
	"context"
	"fmt"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/domain/service"
	"FxDesk/pkg/util"
)

type macroRanges struct {
	gdp, inflation, rate priceRange
}

var currencyRanges = map[string]macroRanges{
	"EUR": {gdp: priceRange{1.0, 2.5}, inflation: priceRange{2.0, 4.0}, rate: priceRange{3.5, 4.5}},
	"USD": {gdp: priceRange{2.0, 3.5}, inflation: priceRange{2.5, 4.5}, rate: priceRange{4.5, 5.5}},
	"GBP": {gdp: priceRange{0.5, 2.0}, inflation: priceRange{3.0, 5.0}, rate: priceRange{4.5, 5.5}},
	"JPY": {gdp: priceRange{0.5, 1.5}, inflation: priceRange{1.0, 3.0}, rate: priceRange{0.0, 0.5}},
	"AUD": {gdp: priceRange{1.5, 3.0}, inflation: priceRange{2.5, 4.5}, rate: priceRange{3.5, 4.5}},
}

var defaultMacroRanges = macroRanges{
	gdp:       priceRange{1.0, 3.0},
	inflation: priceRange{2.0, 4.0},
	rate:      priceRange{2.0, 5.0},
}

// Metric weights of the fundamental score. They sum to 1.
var metricWeights = []struct {
	metric string
	weight float64
}{
	{"gdp_growth", 0.25},
	{"interest_rate", 0.35},
	{"inflation", 0.25},
	{"unemployment", 0.15},
}

const outlookThreshold = 0.3

// FundamentalMock compares sampled macro indicators of a pair's two currencies.
type FundamentalMock struct {
	rng *RNG
	now func() time.Time
}

func NewFundamentalMock(rng *RNG) *FundamentalMock {
	return &FundamentalMock{rng: rng, now: time.Now}
}

func (m *FundamentalMock) AnalyzeFundamental(ctx context.Context, pair string) (models.FundamentalPayload, error) {
	if err := ctx.Err(); err != nil {
		return models.FundamentalPayload{}, err
	}
	base, quote, ok := util.SplitPair(pair)
	if !ok {
		return models.FundamentalPayload{}, fmt.Errorf("pair %q must be BASE/QUOTE", pair)
	}

	b := m.indicators(base)
	q := m.indicators(quote)
	cmp := Compare(b, q)
	score := Score(cmp)

	return models.FundamentalPayload{
		Pair:             pair,
		BaseCurrency:     models.CurrencyFundamentals{Currency: base, Indicators: b},
		QuoteCurrency:    models.CurrencyFundamentals{Currency: quote, Indicators: q},
		Comparison:       cmp,
		FundamentalScore: score,
		Outlook:          Outlook(score),
		Summary:          fundamentalSummary(base, quote, Outlook(score)),
		Timestamp:        m.now().UTC(),
	}, nil
}

func (m *FundamentalMock) indicators(currency string) models.EconomicIndicators {
	r, ok := currencyRanges[currency]
	if !ok {
		r = defaultMacroRanges
	}
	return models.EconomicIndicators{
		GDPGrowth:    util.Round(m.rng.Uniform(r.gdp.lo, r.gdp.hi), 2),
		Inflation:    util.Round(m.rng.Uniform(r.inflation.lo, r.inflation.hi), 2),
		InterestRate: util.Round(m.rng.Uniform(r.rate.lo, r.rate.hi), 2),
		Unemployment: util.Round(m.rng.Uniform(3.5, 7.0), 1),
		TradeBalance: util.Round(m.rng.Uniform(-50, 50), 1),
		DebtToGDP:    util.Round(m.rng.Uniform(60, 120), 1),
	}
}

// Compare rates each metric for the base against the quote currency. Growth
// and rates favour the higher side, inflation and unemployment the lower.
func Compare(b, q models.EconomicIndicators) map[string]string {
	return map[string]string{
		"gdp_growth":    side(b.GDPGrowth > q.GDPGrowth*1.1, q.GDPGrowth > b.GDPGrowth*1.1),
		"interest_rate": side(b.InterestRate > q.InterestRate+0.5, q.InterestRate > b.InterestRate+0.5),
		"inflation":     side(b.Inflation < q.Inflation*0.9, q.Inflation < b.Inflation*0.9),
		"unemployment":  side(b.Unemployment < q.Unemployment*0.9, q.Unemployment < b.Unemployment*0.9),
	}
}

func side(baseWins, quoteWins bool) string {
	switch {
	case baseWins:
		return models.BaseStronger
	case quoteWins:
		return models.QuoteStronger
	default:
		return models.Neutral
	}
}

// Score is the weighted vote in [-1, 1], positive when the base currency is stronger.
func Score(cmp map[string]string) float64 {
	score := 0.0
	for _, w := range metricWeights {
		switch cmp[w.metric] {
		case models.BaseStronger:
			score += w.weight
		case models.QuoteStronger:
			score -= w.weight
		}
	}
	return util.Round(score, 2)
}

func Outlook(score float64) string {
	switch {
	case score > outlookThreshold:
		return "bullish"
	case score < -outlookThreshold:
		return "bearish"
	default:
		return "neutral"
	}
}

func fundamentalSummary(base, quote, outlook string) string {
	switch outlook {
	case "bullish":
		return fmt.Sprintf("Fundamental analysis favors %s over %s. Economic indicators suggest %s strength with higher growth and better monetary policy.", base, quote, base)
	case "bearish":
		return fmt.Sprintf("Fundamental analysis favors %s over %s. Economic indicators suggest %s strength with better economic fundamentals.", quote, base, quote)
	default:
		return fmt.Sprintf("Fundamental analysis shows balanced conditions between %s and %s. Economic indicators are relatively neutral.", base, quote)
	}
}

var _ service.FundamentalAnalyzer = (*FundamentalMock)(nil)
