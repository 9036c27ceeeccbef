package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_signals_emitted_total",
		Help: "Cart signals emitted by type and severity",
	}, []string{"type", "severity"})

	SignalRuleFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_signal_rule_failures_total",
		Help: "Signal rules that failed and contributed nothing",
	}, []string{"rule"})

	StrategiesServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strategy_results_served_total",
		Help: "Strategy results returned to callers by strategy",
	}, []string{"strategy"})

	StrategyGeneratorFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strategy_generator_failures_total",
		Help: "Strategy generators that failed and contributed nothing",
	}, []string{"strategy"})

	RecommendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "smart_recommend_latency_seconds",
		Help:    "Latency of smart recommendation computation",
		Buckets: prometheus.DefBuckets,
	})

	CandidatePoolFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "candidate_pool_failures_total",
		Help: "Candidate pools that failed and contributed nothing",
	}, []string{"pool"})

	RerankOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "candidate_rerank_total",
		Help: "External re-ranking outcomes",
	}, []string{"outcome"})

	GuardrailDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auto_action_guardrail_denials_total",
		Help: "Auto actions denied by guardrail check",
	}, []string{"check"})

	AutoActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auto_actions_total",
		Help: "Auto actions by type and outcome",
	}, []string{"action_type", "outcome"})

	AutoActionReversals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auto_action_reversals_total",
		Help: "Reversal requests by outcome",
	}, []string{"outcome"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_cache_lookups_total",
		Help: "Engine cache lookups by cache and result",
	}, []string{"cache", "result"})

	DecisionCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decision_cycles_total",
		Help: "Orchestrator decision cycles by outcome",
	}, []string{"outcome"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Latency of outbound requests to collaborators",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Outbound requests to collaborators",
	}, []string{"component", "operation", "status"})
)

func Init() {
	prometheus.MustRegister(
		SignalsEmitted,
		SignalRuleFailures,
		StrategiesServed,
		StrategyGeneratorFailures,
		RecommendDuration,
		CandidatePoolFailures,
		RerankOutcomes,
		GuardrailDenials,
		AutoActions,
		AutoActionReversals,
		CacheLookups,
		DecisionCycles,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

func CacheHit(cache string) {
	CacheLookups.WithLabelValues(cache, "hit").Inc()
}

func CacheMiss(cache string) {
	CacheLookups.WithLabelValues(cache, "miss").Inc()
}

// ObserveNetworkRequest records one outbound call; err decides the status label.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}
