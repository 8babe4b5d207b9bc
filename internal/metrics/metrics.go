package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lifecycle and gateway instrumentation, exposed at /metrics by the web server.
var (
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aic",
		Name:      "lifecycle_transitions_total",
		Help:      "Lifecycle state transitions by destination state.",
	}, []string{"state"})

	GatewaySubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aic",
		Name:      "gateway_submissions_total",
		Help:      "Gateway submission outcomes.",
	}, []string{"outcome"})

	InFlightAttempts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "aic",
		Name:      "inflight_attempts",
		Help:      "Investment attempts currently in Processing.",
	})

	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aic",
		Name:      "processing_duration_seconds",
		Help:      "Wall time from confirm to terminal transition.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	BalanceRecomputations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aic",
		Name:      "balance_recomputations_total",
		Help:      "Derived balance recomputations.",
	})
)
