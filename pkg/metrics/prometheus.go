package metrics

import (
	"FxDesk/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics on Prometheus.
type Recorder struct {
	stageDuration  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	decisions      *prometheus.CounterVec
	riskRejections *prometheus.CounterVec
	fanOutFallback prometheus.Counter
	recorded       *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
}

// New registers the pipeline metrics on the default registry. Call once per process.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxdesk_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		stageFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxdesk_stage_failures_total",
				Help: "Stages that produced a failure result",
			},
			[]string{"stage"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxdesk_run_duration_seconds",
				Help:    "End to end duration of pipeline runs",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"action"},
		),
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxdesk_decisions_total",
				Help: "Final decisions by action",
			},
			[]string{"action"},
		),
		riskRejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxdesk_risk_rejections_total",
				Help: "Trades rejected by the risk gate, by reason",
			},
			[]string{"reason"},
		),
		fanOutFallback: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fxdesk_fanout_fallbacks_total",
				Help: "Analysis fan-outs that fell back to sequential execution",
			},
		),
		recorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxdesk_decision_records_total",
				Help: "Decision records written to a backend",
			},
			[]string{"backend", "status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxdesk_errors_total",
				Help: "Errors encountered, by kind",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) ObserveStage(stage models.StageName, ok bool, seconds float64) {
	r.stageDuration.WithLabelValues(string(stage)).Observe(seconds)
	if !ok {
		r.stageFailures.WithLabelValues(string(stage)).Inc()
	}
}

func (r *Recorder) ObserveRun(action models.Action, seconds float64) {
	r.runDuration.WithLabelValues(string(action)).Observe(seconds)
	r.decisions.WithLabelValues(string(action)).Inc()
}

func (r *Recorder) RecordRiskRejection(reason string) {
	r.riskRejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordFanOutFallback() {
	r.fanOutFallback.Inc()
}

func (r *Recorder) RecordRecorded(backend string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.recorded.WithLabelValues(backend, status).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveStage(models.StageName, bool, float64) {}
func (Nop) ObserveRun(models.Action, float64)            {}
func (Nop) RecordRiskRejection(string)                   {}
func (Nop) RecordFanOutFallback()                        {}
func (Nop) RecordRecorded(string, bool)                  {}
func (Nop) RecordError(string)                           {}
