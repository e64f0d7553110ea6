package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/pkg/config"

	"google.golang.org/genai"
)

var ErrEmptyResponse = errors.New("gemini: empty response")

// Response is the text of a generation plus its search grounding.
type Response struct {
	Text          string
	SearchQueries []string
	Sources       []models.Source
}

// Generator produces a JSON completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (Response, error)
}

// Client calls the Gemini API with optional Google Search grounding.
type Client struct {
	client   *genai.Client
	model    string
	grounded bool
	timeout  time.Duration
}

func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	if !cfg.Configured() {
		return nil, errors.New("gemini api key is required")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: c, model: cfg.Model, grounded: cfg.GroundedSearch, timeout: cfg.Timeout}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, temperature float32) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	gc := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		ResponseMIMEType: "application/json",
		ThinkingConfig:   &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
	if c.grounded {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), gc)
	if err != nil {
		return Response{}, fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Response{}, ErrEmptyResponse
	}

	out := Response{Text: text}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		gm := resp.Candidates[0].GroundingMetadata
		out.SearchQueries = append(out.SearchQueries, gm.WebSearchQueries...)
		for _, chunk := range gm.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			out.Sources = append(out.Sources, models.Source{Title: chunk.Web.Title, URL: chunk.Web.URI})
		}
	}
	return out, nil
}

// stripFences removes a markdown code fence around a JSON body.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ Generator = (*Client)(nil)
