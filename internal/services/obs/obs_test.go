package obs

import (
	"context"
	"errors"
	"testing"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/service/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type newsFunc func(ctx context.Context, pair string) (models.NewsPayload, error)

func (f newsFunc) AnalyzeNews(ctx context.Context, pair string) (models.NewsPayload, error) {
	return f(ctx, pair)
}

func TestDecoratorRecordsSpanAndErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(rec))
	in := NewInstrumenter(tp.Tracer("test"), nil)

	boom := errors.New("boom")
	calls := 0
	n := in.News(newsFunc(func(_ context.Context, pair string) (models.NewsPayload, error) {
		calls++
		if calls == 2 {
			return models.NewsPayload{}, boom
		}
		return models.NewsPayload{Pair: pair}, nil
	}), "obs-test")

	before := testutil.ToFloat64(metrics.CollaboratorErrors.WithLabelValues("news", "obs-test"))

	p, err := n.AnalyzeNews(context.Background(), "EUR/USD")
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", p.Pair)

	_, err = n.AnalyzeNews(context.Background(), "EUR/USD")
	require.ErrorIs(t, err, boom)

	after := testutil.ToFloat64(metrics.CollaboratorErrors.WithLabelValues("news", "obs-test"))
	assert.Equal(t, before+1, after)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "collaborator.news", spans[0].Name())
	assert.Len(t, spans[1].Events(), 1)
}
