package usecase

import (
	"context"
	"testing"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/pkg/cache"
	"FxDesk/pkg/kafka"
	"FxDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestConsumer(t *testing.T, f *fixture, rec *memRecorder) *RequestConsumer {
	t.Helper()
	dedup := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = dedup.Close() })
	svc := NewAnalysisService(f.orchestrator(t), nil, rec, time.Second, logger.Nop())
	return NewRequestConsumer("fxdesk.analysis-requests", svc, dedup, time.Minute, logger.Nop())
}

func TestRequestConsumerRunsAndDeduplicates(t *testing.T) {
	f := newFixture()
	rec := &memRecorder{}
	h := newRequestConsumer(t, f, rec)
	assert.Equal(t, "fxdesk.analysis-requests", h.Topic())

	msg := []byte(`{"request_id":"req-1","query":"gbpusd","account_balance":5000}`)
	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))

	assert.Equal(t, 1, f.decider.Calls())
	require.Len(t, rec.recs, 1)
	assert.Equal(t, models.OriginKafka, rec.recs[0].Origin)
	assert.Equal(t, "GBP/USD", rec.recs[0].Subject)
	assert.Equal(t, 5000.0, rec.recs[0].AccountBalance)
}

func TestRequestConsumerWithoutRequestIDAlwaysRuns(t *testing.T) {
	f := newFixture()
	h := newRequestConsumer(t, f, &memRecorder{})

	msg := []byte(`{"query":"EUR/USD"}`)
	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Equal(t, 2, f.decider.Calls())
}

func TestRequestConsumerPermanentFailures(t *testing.T) {
	h := newRequestConsumer(t, newFixture(), &memRecorder{})

	for name, payload := range map[string]string{
		"malformed json":     `{"query":`,
		"missing query":      `{"request_id":"a"}`,
		"unknown instrument": `{"query":"something nice"}`,
		"invalid balance":    `{"query":"EUR/USD","account_balance":-1}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := h.Handle(context.Background(), []byte(payload))
			require.Error(t, err)
			assert.True(t, kafka.IsPermanent(err))
		})
	}
}

func TestRequestConsumerReleasesLockOnTransientFailure(t *testing.T) {
	f := newFixture()
	h := newRequestConsumer(t, f, &memRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msg := []byte(`{"request_id":"req-2","query":"EUR/USD"}`)
	err := h.Handle(ctx, msg)
	require.Error(t, err)
	assert.False(t, kafka.IsPermanent(err))

	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Equal(t, 1, f.decider.Calls())
}
