// Package observability holds the tracker-wide Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	stepCountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steptracker",
		Subsystem: "tracker",
		Name:      "steps_today",
		Help:      "Current resolved step total for the local calendar day (-1 until the first sensor event).",
	})
	snapshotPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steptracker",
		Subsystem: "persistence",
		Name:      "last_snapshot_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent step snapshot written to the store.",
	})
	snapshotsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "persistence",
		Name:      "snapshots_persisted_total",
		Help:      "Number of step snapshots written to the store.",
	})
	snapshotFailuresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "persistence",
		Name:      "snapshot_failures_total",
		Help:      "Number of step snapshot writes rejected by the store.",
	})
	rolloversCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "tracker",
		Name:      "day_rollovers_total",
		Help:      "Number of times the day total restarted at local midnight.",
	})
	counterResetsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "tracker",
		Name:      "counter_resets_total",
		Help:      "Number of device reboots observed while tracking.",
	})
	staleReadingsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "tracker",
		Name:      "stale_readings_total",
		Help:      "Number of raw readings ignored because they were older than the last one applied.",
	})
)

func init() {
	prometheus.MustRegister(stepCountGauge, snapshotPersistGauge, snapshotsCounter, snapshotFailuresCounter, rolloversCounter, counterResetsCounter, staleReadingsCounter)
}

// RecordStepCount publishes the latest day total.
func RecordStepCount(count int64) {
	stepCountGauge.Set(float64(count))
}

// RecordSnapshotPersisted updates the persistence watermark.
func RecordSnapshotPersisted(ts time.Time) {
	snapshotsCounter.Inc()
	if ts.IsZero() {
		return
	}
	snapshotPersistGauge.Set(float64(ts.Unix()))
}

// RecordSnapshotFailed counts a rejected snapshot write.
func RecordSnapshotFailed() {
	snapshotFailuresCounter.Inc()
}

// RecordRollover counts a local-midnight restart of the day total.
func RecordRollover() {
	rolloversCounter.Inc()
}

// RecordCounterReset counts a reboot observed while tracking.
func RecordCounterReset() {
	counterResetsCounter.Inc()
}

// RecordStaleReading counts a raw reading that was ignored as out of date.
func RecordStaleReading() {
	staleReadingsCounter.Inc()
}
