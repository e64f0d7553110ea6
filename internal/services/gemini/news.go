package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/domain/service"
	"FxDesk/pkg/util"
)

type newsReply struct {
	Headlines      []models.Headline `json:"headlines"`
	SentimentScore float64           `json:"sentiment_score"`
	Sentiment      string            `json:"sentiment"`
	Impact         string            `json:"impact"`
	KeyEvents      []string          `json:"key_events"`
	Summary        string            `json:"summary"`
}

// NewsAnalyzer asks Gemini to search and summarise recent news for a pair.
type NewsAnalyzer struct {
	gen         Generator
	temperature float32
	now         func() time.Time
}

func NewNewsAnalyzer(gen Generator, temperature float32) *NewsAnalyzer {
	return &NewsAnalyzer{gen: gen, temperature: temperature, now: time.Now}
}

func (a *NewsAnalyzer) AnalyzeNews(ctx context.Context, pair string) (models.NewsPayload, error) {
	base, quote, ok := util.SplitPair(pair)
	if !ok {
		return models.NewsPayload{}, fmt.Errorf("invalid pair %q", pair)
	}
	resp, err := a.gen.Generate(ctx, newsPrompt(pair, base, quote), a.temperature)
	if err != nil {
		return models.NewsPayload{}, err
	}

	reply := newsReply{Sentiment: "neutral", Impact: "medium", Summary: "No summary available"}
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &reply); err != nil {
		return models.NewsPayload{}, fmt.Errorf("decode news reply: %w", err)
	}

	return models.NewsPayload{
		Pair:           pair,
		Headlines:      reply.Headlines,
		SentimentScore: util.Clamp(reply.SentimentScore, -1, 1),
		Sentiment:      reply.Sentiment,
		Impact:         reply.Impact,
		NewsCount:      len(reply.Headlines),
		KeyEvents:      reply.KeyEvents,
		Summary:        reply.Summary,
		SearchQueries:  resp.SearchQueries,
		Sources:        resp.Sources,
		DataSource:     models.DataSourceGoogleSearch,
		Timestamp:      a.now().UTC(),
	}, nil
}

var _ service.NewsAnalyzer = (*NewsAnalyzer)(nil)
