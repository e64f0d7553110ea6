package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/domain/service"
)

// DecisionService asks Gemini for the final decision. The reply is returned as
// parsed; callers normalise it.
type DecisionService struct {
	gen           Generator
	temperature   float32
	minConfidence float64
}

func NewDecisionService(gen Generator, temperature float32, minConfidence float64) *DecisionService {
	return &DecisionService{gen: gen, temperature: temperature, minConfidence: minConfidence}
}

func (d *DecisionService) Decide(ctx context.Context, in models.SynthesisInput) (models.Decision, error) {
	resp, err := d.gen.Generate(ctx, synthesisPrompt(in, d.minConfidence), d.temperature)
	if err != nil {
		return models.Decision{}, err
	}

	var dec models.Decision
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &dec); err != nil {
		return models.Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	if len(resp.SearchQueries) > 0 || len(resp.Sources) > 0 {
		dec.Grounding = &models.Grounding{
			SearchQueries: resp.SearchQueries,
			Sources:       resp.Sources,
		}
	}
	return dec, nil
}

var _ service.DecisionService = (*DecisionService)(nil)
