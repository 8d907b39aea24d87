package schedulertick

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var claimOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "scheduler_tick_claim_outcomes_total",
	Help: "Outcomes of per-task due-instance claim attempts, by result",
}, []string{"result"})
