package sensor

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "sensor",
		Name:      "events_processed_total",
		Help:      "Number of sensor events handed to the tracker, labeled by kind.",
	}, []string{"kind"})

	decodeErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "sensor",
		Name:      "decode_errors_total",
		Help:      "Number of sensor messages that could not be decoded.",
	})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steptracker",
		Subsystem: "sensor",
		Name:      "handler_errors_total",
		Help:      "Number of sensor events the tracker failed to handle, labeled by kind.",
	}, []string{"kind"})

	lastEventGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steptracker",
		Subsystem: "sensor",
		Name:      "last_event_timestamp_seconds",
		Help:      "Unix timestamp of the most recently processed sensor event.",
	})
)

func init() {
	prometheus.MustRegister(eventsCounter, decodeErrorCounter, handlerErrorCounter, lastEventGauge)
}

func recordProcessed(ev Event) {
	eventsCounter.WithLabelValues(string(ev.Kind())).Inc()
	if ts := ev.ReceivedAt(); !ts.IsZero() {
		lastEventGauge.Set(float64(ts.Unix()))
	}
}

func recordHandlerError(ev Event) {
	handlerErrorCounter.WithLabelValues(string(ev.Kind())).Inc()
}

func recordDecodeError() {
	decodeErrorCounter.Inc()
}
