package embedworker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	childOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "embed_worker_child_outcomes_total",
		Help: "Outcomes of per-child-chunk embedding attempts, by result",
	}, []string{"result"})

	childDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "embed_worker_child_duration_seconds",
		Help: "Wall-clock time spent handling a single child-chunk message",
	}, []string{"result"})
)
