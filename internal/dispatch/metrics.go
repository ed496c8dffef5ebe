package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steptracker",
		Subsystem: "dispatch",
		Name:      "queue_depth",
		Help:      "Notifications waiting for delivery.",
	})

	droppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "dispatch",
		Name:      "dropped_total",
		Help:      "Notifications dropped because the delivery queue was full.",
	})

	taskDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "steptracker",
		Subsystem: "dispatch",
		Name:      "task_duration_seconds",
		Help:      "Time spent delivering one notification.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(queueDepth, droppedCounter, taskDuration)
}
