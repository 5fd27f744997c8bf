// Package metrics exposes Prometheus counters for the coordination
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters incremented by the coordination service.
type Metrics struct {
	CoordinationCycles  prometheus.Counter
	SnapshotsPublished  prometheus.Counter
	DirectoryFallbacks  prometheus.Counter
	RouteFallbacks      prometheus.Counter
	StaleDevicesSwept   prometheus.Counter
	StaleBatchesDropped prometheus.Counter
}

// New registers the coordination metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CoordinationCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldcoord_coordination_cycles_total",
			Help: "Coordination cycles executed.",
		}),
		SnapshotsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldcoord_snapshots_published_total",
			Help: "Network snapshots pushed to subscribers.",
		}),
		DirectoryFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldcoord_directory_fallbacks_total",
			Help: "Facility directory failures absorbed by the synthetic fallback set.",
		}),
		RouteFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldcoord_route_fallbacks_total",
			Help: "Routes degraded to straight-line fallback.",
		}),
		StaleDevicesSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldcoord_stale_devices_swept_total",
			Help: "Devices flipped offline by the staleness sweep.",
		}),
		StaleBatchesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldcoord_stale_route_batches_dropped_total",
			Help: "Routing batches discarded because a newer location update superseded them.",
		}),
	}
}
