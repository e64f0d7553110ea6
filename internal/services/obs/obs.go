// Package obs wraps analysis collaborators with a span, latency metrics and
// log lines.
package obs

import (
	"context"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/domain/service"
	"FxDesk/internal/service/metrics"
	"FxDesk/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Instrumenter holds what every decorator needs.
type Instrumenter struct {
	tracer trace.Tracer
	log    *logger.Logger
}

func NewInstrumenter(tracer trace.Tracer, log *logger.Logger) *Instrumenter {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("obs")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Instrumenter{tracer: tracer, log: log}
}

func observe[T any](ctx context.Context, in *Instrumenter, collaborator, impl, subject string, call func(context.Context) (T, error)) (T, error) {
	ctx, span := in.tracer.Start(ctx, "collaborator."+collaborator,
		trace.WithAttributes(
			attribute.String("impl", impl),
			attribute.String("subject", subject),
		))
	defer span.End()

	start := time.Now()
	out, err := call(ctx)
	elapsed := time.Since(start)
	metrics.CollaboratorLatency.WithLabelValues(collaborator, impl).Observe(elapsed.Seconds())

	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues(collaborator, impl).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.log.Warn("collaborator failed",
			logger.String("collaborator", collaborator),
			logger.String("impl", impl),
			logger.String("subject", subject),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return out, err
	}
	in.log.Debug("collaborator done",
		logger.String("collaborator", collaborator),
		logger.String("impl", impl),
		logger.String("subject", subject),
		logger.Duration("elapsed", elapsed))
	return out, nil
}

type news struct {
	inner service.NewsAnalyzer
	impl  string
	in    *Instrumenter
}

func (in *Instrumenter) News(inner service.NewsAnalyzer, impl string) service.NewsAnalyzer {
	return &news{inner: inner, impl: impl, in: in}
}

func (n *news) AnalyzeNews(ctx context.Context, pair string) (models.NewsPayload, error) {
	return observe(ctx, n.in, "news", n.impl, pair, func(ctx context.Context) (models.NewsPayload, error) {
		return n.inner.AnalyzeNews(ctx, pair)
	})
}

type technical struct {
	inner service.TechnicalAnalyzer
	impl  string
	in    *Instrumenter
}

func (in *Instrumenter) Technical(inner service.TechnicalAnalyzer, impl string) service.TechnicalAnalyzer {
	return &technical{inner: inner, impl: impl, in: in}
}

func (t *technical) AnalyzeTechnical(ctx context.Context, pair string) (models.TechnicalPayload, error) {
	return observe(ctx, t.in, "technical", t.impl, pair, func(ctx context.Context) (models.TechnicalPayload, error) {
		return t.inner.AnalyzeTechnical(ctx, pair)
	})
}

type fundamental struct {
	inner service.FundamentalAnalyzer
	impl  string
	in    *Instrumenter
}

func (in *Instrumenter) Fundamental(inner service.FundamentalAnalyzer, impl string) service.FundamentalAnalyzer {
	return &fundamental{inner: inner, impl: impl, in: in}
}

func (f *fundamental) AnalyzeFundamental(ctx context.Context, pair string) (models.FundamentalPayload, error) {
	return observe(ctx, f.in, "fundamental", f.impl, pair, func(ctx context.Context) (models.FundamentalPayload, error) {
		return f.inner.AnalyzeFundamental(ctx, pair)
	})
}

type decision struct {
	inner service.DecisionService
	impl  string
	in    *Instrumenter
}

func (in *Instrumenter) Decision(inner service.DecisionService, impl string) service.DecisionService {
	return &decision{inner: inner, impl: impl, in: in}
}

func (d *decision) Decide(ctx context.Context, si models.SynthesisInput) (models.Decision, error) {
	return observe(ctx, d.in, "decision", d.impl, si.Subject, func(ctx context.Context) (models.Decision, error) {
		return d.inner.Decide(ctx, si)
	})
}
