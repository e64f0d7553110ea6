package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/domain/service"
	"FxDesk/pkg/util"
)

// headlineTemplate is formatted with a currency code. Tone is the effect on
// that currency: +1 supportive, -1 weighing, 0 neutral.
type headlineTemplate struct {
	format string
	tone   float64
	source string
}

var headlineTemplates = []headlineTemplate{
	{"%s central bank signals further tightening", 1, "Reuters"},
	{"%s rallies after stronger than expected jobs data", 1, "Bloomberg"},
	{"Inflation in %s economy cools faster than forecast", -1, "Financial Times"},
	{"%s slips as manufacturing PMI contracts", -1, "MarketWatch"},
	{"Traders await %s policy minutes for rate guidance", 0, "FXStreet"},
	{"%s steady ahead of GDP release", 0, "Reuters"},
	{"Growth outlook for %s economy upgraded", 1, "Bloomberg"},
	{"%s under pressure on widening trade deficit", -1, "CNBC"},
}

const newsPerPair = 4

// NewsMock assembles template headlines alternating between the base and
// quote currency and scores them from the base currency's point of view.
type NewsMock struct {
	rng *RNG
	now func() time.Time
}

func NewNewsMock(rng *RNG) *NewsMock {
	return &NewsMock{rng: rng, now: time.Now}
}

func (m *NewsMock) AnalyzeNews(ctx context.Context, pair string) (models.NewsPayload, error) {
	if err := ctx.Err(); err != nil {
		return models.NewsPayload{}, err
	}
	base, quote, ok := util.SplitPair(pair)
	if !ok {
		return models.NewsPayload{}, fmt.Errorf("invalid pair %q", pair)
	}

	order := m.rng.Perm(len(headlineTemplates))
	today := m.now().UTC()
	headlines := make([]models.Headline, 0, newsPerPair)
	total := 0.0
	for i := 0; i < newsPerPair; i++ {
		t := headlineTemplates[order[i]]
		currency, sign := base, 1.0
		if i%2 == 1 {
			currency, sign = quote, -1.0
		}
		// Tone against the quote currency moves the pair the other way.
		tone := t.tone * sign * m.rng.Uniform(0.4, 1.0)
		total += tone
		headlines = append(headlines, models.Headline{
			Title:     fmt.Sprintf(t.format, currency),
			Date:      today.AddDate(0, 0, -m.rng.Intn(2)).Format("2006-01-02"),
			Sentiment: sentimentLabel(tone, 0),
			Source:    t.source,
		})
	}

	score := util.Round(util.Clamp(total/float64(newsPerPair), -1, 1), 2)
	sentiment := sentimentLabel(score, 0.2)
	keyEvents := []string{headlines[0].Title, headlines[1].Title}

	return models.NewsPayload{
		Pair:           pair,
		Headlines:      headlines,
		SentimentScore: score,
		Sentiment:      sentiment,
		Impact:         impactOf(score),
		NewsCount:      len(headlines),
		KeyEvents:      keyEvents,
		Summary: fmt.Sprintf("News flow for %s is %s (score %.2f): %s.",
			pair, sentiment, score, strings.ToLower(headlines[0].Title)),
		DataSource: models.DataSourceMock,
		Timestamp:  today,
	}, nil
}

func sentimentLabel(score, band float64) string {
	switch {
	case score > band:
		return "bullish"
	case score < -band:
		return "bearish"
	default:
		return "neutral"
	}
}

func impactOf(score float64) string {
	switch a := score; {
	case a > 0.5 || a < -0.5:
		return "high"
	case a > 0.2 || a < -0.2:
		return "medium"
	default:
		return "low"
	}
}

var _ service.NewsAnalyzer = (*NewsMock)(nil)
