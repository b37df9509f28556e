// Package metrics registers the Prometheus collectors for the dashboard's
// update scheduler. Collectors live in the default registry; Serve exposes
// them when --metrics-addr is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Results for TextUpdates.
const (
	ResultRendered  = "rendered"
	ResultThrottled = "throttled"
)

var (
	// MessagesReceived counts decoded telemetry pushes.
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpuhot_messages_received_total",
		Help: "Telemetry messages decoded from the server.",
	})

	// MalformedMessages counts messages dropped because they could not be decoded.
	MalformedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpuhot_malformed_messages_total",
		Help: "Telemetry messages dropped as malformed.",
	})

	// MalformedEntities counts single GPU snapshots skipped inside an otherwise valid message.
	MalformedEntities = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpuhot_malformed_snapshots_total",
		Help: "GPU snapshots skipped as malformed.",
	})

	// SnapshotsSuppressed counts snapshots applied to chart history only because the user was scrolling.
	SnapshotsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpuhot_snapshots_suppressed_total",
		Help: "Snapshots that updated chart history only, during scroll suppression.",
	})

	// TextUpdates counts per-GPU throttle decisions.
	TextUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpuhot_text_updates_total",
			Help: "Per-GPU throttle decisions, by result.",
		},
		[]string{"result"},
	)

	// Flushes counts frame flushes.
	Flushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpuhot_frame_flushes_total",
		Help: "Frames that flushed the update queue.",
	})

	// FlushSize records how many pending updates each flush drained.
	FlushSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gpuhot_frame_flush_size",
		Help:    "Pending updates drained per frame flush.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	// RenderErrors counts failed or panicking renderer callbacks.
	RenderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpuhot_render_errors_total",
		Help: "Renderer callbacks that failed during a flush.",
	})

	// ReconnectAttempts counts automatic and forced dials after the first.
	ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gpuhot_reconnect_attempts_total",
		Help: "Socket dials made after the initial connection attempt.",
	})

	// ConnectionState is 1 for the current state and 0 for the others.
	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpuhot_connection_state",
			Help: "Current connection state (1 = active).",
		},
		[]string{"state"},
	)

	// EntitiesTracked is the number of GPUs with chart history.
	EntitiesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gpuhot_entities_tracked",
		Help: "GPUs currently tracked by the series store.",
	})
)

// SetConnectionState marks state as the active one among states.
func SetConnectionState(state string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		ConnectionState.WithLabelValues(s).Set(v)
	}
}
