package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// CollaboratorLatency times calls to analysis collaborators and the decision service.
	CollaboratorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fxdesk",
			Subsystem: "collaborator",
			Name:      "latency_seconds",
			Help:      "Latency of analysis collaborators",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"collaborator", "impl"},
	)

	CollaboratorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxdesk",
			Subsystem: "collaborator",
			Name:      "errors_total",
			Help:      "Errors returned by analysis collaborators",
		},
		[]string{"collaborator", "impl"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(CollaboratorLatency, CollaboratorErrors)
	})
}
