package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/pkg/cache"
	"FxDesk/pkg/kafka"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/util"
)

// RequestConsumer runs analyses requested on a Kafka topic. Messages that
// carry a request_id are processed at most once per dedupTTL.
type RequestConsumer struct {
	topic    string
	analysis *AnalysisService
	dedup    cache.Service
	dedupTTL time.Duration
	log      *logger.Logger
}

// NewRequestConsumer accepts a nil dedup cache.
func NewRequestConsumer(topic string, analysis *AnalysisService, dedup cache.Service, dedupTTL time.Duration, log *logger.Logger) *RequestConsumer {
	if dedupTTL <= 0 {
		dedupTTL = time.Hour
	}
	return &RequestConsumer{
		topic:    topic,
		analysis: analysis,
		dedup:    dedup,
		dedupTTL: dedupTTL,
		log:      log,
	}
}

func (h *RequestConsumer) Topic() string { return h.topic }

func (h *RequestConsumer) Handle(ctx context.Context, data []byte) error {
	var msg models.AnalysisRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return kafka.Permanent(fmt.Errorf("decode request: %w", err))
	}
	if strings.TrimSpace(msg.Query) == "" {
		return kafka.Permanent(errors.New("request has no query"))
	}

	lockKey := cache.Key("kafka", "request", msg.RequestID)
	if msg.RequestID != "" && h.dedup != nil {
		ok, err := h.dedup.TryLock(ctx, lockKey, h.dedupTTL)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", msg.RequestID, err)
		}
		if !ok {
			h.log.Info("duplicate analysis request skipped", logger.String("request_id", msg.RequestID))
			return nil
		}
	}

	req := models.AnalyzeRequest{
		Query:           msg.Query,
		AccountBalance:  msg.AccountBalance,
		MaxRiskPerTrade: msg.MaxRiskPerTrade,
	}
	res, err := h.analysis.Analyze(ctx, req, models.OriginKafka)
	if err != nil {
		if errors.Is(err, util.ErrUnknownInstrument) || errors.Is(err, ErrInvalidRunOptions) {
			return kafka.Permanent(err)
		}
		if msg.RequestID != "" && h.dedup != nil {
			// Release so a redelivery can run it again.
			_ = h.dedup.Unlock(context.WithoutCancel(ctx), lockKey)
		}
		return err
	}

	h.log.Info("analysis request handled",
		logger.String("request_id", msg.RequestID),
		logger.String("run_id", res.RunID),
		logger.String("subject", res.Subject),
		logger.String("action", string(res.Decision.Action)))
	return nil
}

var _ kafka.MessageHandler = (*RequestConsumer)(nil)
