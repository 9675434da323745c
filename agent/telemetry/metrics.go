// Package telemetry registers the Prometheus collectors for the loan
// conversation.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanagent_turns_total",
		Help: "Inbound user messages by role after processing and result",
	}, []string{"role", "result"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loanagent_turn_duration_seconds",
		Help:    "Wall time of one inbound message including a chained hop",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	handoffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanagent_handoffs_total",
		Help: "Role transitions by source and destination",
	}, []string{"from", "to"})

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanagent_underwriting_decisions_total",
		Help: "Underwriting outcomes by decision and rule",
	}, []string{"decision", "rule"})

	generationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanagent_llm_failures_total",
		Help: "Text generation calls that degraded to the fallback reply",
	}, []string{"role", "reason"})

	sanctionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loanagent_sanction_letters_total",
		Help: "Sanction letters issued",
	})
)

func ObserveTurn(role, result string, started time.Time) {
	turnsTotal.WithLabelValues(role, result).Inc()
	turnDuration.Observe(time.Since(started).Seconds())
}

func ObserveHandoff(from, to string) {
	handoffsTotal.WithLabelValues(from, to).Inc()
}

func ObserveDecision(decision, rule string) {
	decisionsTotal.WithLabelValues(decision, rule).Inc()
}

func ObserveGenerationFailure(role, reason string) {
	generationFailures.WithLabelValues(role, reason).Inc()
}

func ObserveSanction() {
	sanctionsTotal.Inc()
}
