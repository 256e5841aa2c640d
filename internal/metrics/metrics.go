package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "curator"

var (
	SubmissionCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_created_total",
			Help:      "Total number of submissions accepted at intake.",
		},
	)

	SubmissionScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_quality_score",
			Help:      "Quality scores assigned at intake.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	ReviewDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_decisions_total",
			Help:      "Total review decisions, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	RewardMintsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_mints_total",
			Help:      "Total reward mint attempts, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	RelayAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_attempts_total",
			Help:      "Total relay job attempts against the secondary ledger, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	RelayFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_failures_total",
			Help:      "Relay jobs that exhausted their attempts and were handed back to the sweep.",
		},
	)

	RelayLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_latency_seconds",
			Help:      "Latency from approval to successful relay (seconds).",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	SweepEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_enqueued_total",
			Help:      "Relay jobs enqueued by the discovery sweep.",
		},
	)

	RateLimitHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter, labeled by scope and operation.",
		},
		[]string{"scope", "operation"},
	)
)

func init() {
	prometheus.MustRegister(
		SubmissionCreatedTotal,
		SubmissionScoreHistogram,
		ReviewDecisionsTotal,
		RewardMintsTotal,
		RelayAttemptsTotal,
		RelayFailuresTotal,
		RelayLatencySeconds,
		SweepEnqueuedTotal,
		RateLimitHitsTotal,
	)
}
