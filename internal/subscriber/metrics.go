package subscriber

import "github.com/prometheus/client_golang/prometheus"

var (
	subscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steptracker",
		Subsystem: "subscribers",
		Name:      "registered",
		Help:      "Number of currently registered step-update subscribers.",
	})

	deliveriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "subscribers",
		Name:      "deliveries_total",
		Help:      "Step-update deliveries, labeled by outcome (delivered, failed).",
	}, []string{"outcome"})

	prunedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "subscribers",
		Name:      "pruned_total",
		Help:      "Number of subscribers removed after reporting they are gone.",
	})

	broadcastDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "steptracker",
		Subsystem: "subscribers",
		Name:      "broadcast_duration_seconds",
		Help:      "Time spent delivering one update to every subscriber.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(subscribersGauge, deliveriesCounter, prunedCounter, broadcastDuration)
}
