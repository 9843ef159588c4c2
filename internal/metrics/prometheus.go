package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cycle metrics
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_cycles_total",
			Help: "Total number of coordination cycles processed",
		},
		[]string{"event_type"},
	)

	CycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_cycle_duration_seconds",
			Help:    "Coordination cycle duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"event_type"},
	)

	// Decision metrics
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_decisions_total",
			Help: "Total decisions by resolution kind",
		},
		[]string{"kind"}, // unanimous|vetoed|priority|escalated|unresolved|no_action|aborted
	)

	Escalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hermes_escalations_total",
			Help: "Total escalation rounds sent to the executive desk",
		},
	)

	// Routing metrics
	MessagesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_messages_delivered_total",
			Help: "Total internal messages delivered",
		},
		[]string{"kind"}, // event|internal|escalation
	)

	HopLimitDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hermes_hop_limit_drops_total",
			Help: "Total messages dropped at the hop ceiling",
		},
	)

	// Decision-function metrics
	DecisionCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_decision_calls_total",
			Help: "Total decision-function invocations",
		},
		[]string{"role", "status"}, // status: success|error|timeout
	)

	DecisionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_decision_latency_seconds",
			Help:    "Decision-function latency in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
		[]string{"role"},
	)

	// Gateway metrics
	GatewayPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_gateway_pushes_total",
			Help: "Total decisions pushed through the external gateway",
		},
		[]string{"gateway", "status"}, // status: success|error
	)

	GatewayPulls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_gateway_pulls_total",
			Help: "Total events pulled through the external gateway",
		},
		[]string{"gateway"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(Decisions)
	prometheus.MustRegister(Escalations)
	prometheus.MustRegister(MessagesDelivered)
	prometheus.MustRegister(HopLimitDrops)
	prometheus.MustRegister(DecisionCalls)
	prometheus.MustRegister(DecisionLatency)
	prometheus.MustRegister(GatewayPushes)
	prometheus.MustRegister(GatewayPulls)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDecisionCall records one decision-function invocation.
func RecordDecisionCall(role string, latency time.Duration, status string) {
	DecisionCalls.WithLabelValues(role, status).Inc()
	DecisionLatency.WithLabelValues(role).Observe(latency.Seconds())
}

// RecordCycle records one completed coordination cycle.
func RecordCycle(eventType string, duration time.Duration, kind string) {
	CyclesTotal.WithLabelValues(eventType).Inc()
	CycleDuration.WithLabelValues(eventType).Observe(duration.Seconds())
	Decisions.WithLabelValues(kind).Inc()
}
