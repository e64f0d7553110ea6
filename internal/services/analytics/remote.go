package analytics

import (
	"context"
	"fmt"
	"time"

	"FxDesk/internal/domain/models"
	domsvc "FxDesk/internal/domain/service"
	"FxDesk/pkg/config"
	xhttp "FxDesk/pkg/http"
)

type pairReq struct {
	Pair string `json:"pair"`
}

// RemoteAnalyzer fetches technical and fundamental payloads from an external
// analysis service.
type RemoteAnalyzer struct {
	base     *HTTPServiceBase
	attempts int
	now      func() time.Time
}

func NewRemoteAnalyzer(cfg config.AnalysisConfig, opts ...xhttp.ClientOption) *RemoteAnalyzer {
	return &RemoteAnalyzer{
		base:     NewHTTPServiceBase(cfg.ServiceURL, cfg.Timeout, cfg.RetryBackoff, opts...),
		attempts: cfg.Retries + 1,
		now:      time.Now,
	}
}

func (r *RemoteAnalyzer) AnalyzeTechnical(ctx context.Context, pair string) (models.TechnicalPayload, error) {
	var p models.TechnicalPayload
	if err := r.base.PostJSONWithRetry(ctx, "/technical", pairReq{Pair: pair}, &p, r.attempts); err != nil {
		return models.TechnicalPayload{}, fmt.Errorf("remote technical: %w", err)
	}
	if p.CurrentPrice <= 0 {
		return models.TechnicalPayload{}, fmt.Errorf("remote technical: missing current price")
	}
	p.Pair = pair
	if p.Timestamp.IsZero() {
		p.Timestamp = r.now().UTC()
	}
	return p, nil
}

func (r *RemoteAnalyzer) AnalyzeFundamental(ctx context.Context, pair string) (models.FundamentalPayload, error) {
	var p models.FundamentalPayload
	if err := r.base.PostJSONWithRetry(ctx, "/fundamental", pairReq{Pair: pair}, &p, r.attempts); err != nil {
		return models.FundamentalPayload{}, fmt.Errorf("remote fundamental: %w", err)
	}
	p.Pair = pair
	if p.Timestamp.IsZero() {
		p.Timestamp = r.now().UTC()
	}
	return p, nil
}

var (
	_ domsvc.TechnicalAnalyzer   = (*RemoteAnalyzer)(nil)
	_ domsvc.FundamentalAnalyzer = (*RemoteAnalyzer)(nil)
)
