package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wagnerlima/contact-graph/internal/models"
)

// Collectors are registered on the default registry through promauto and
// served on /metrics in HTTP mode.
var (
	// QueriesTotal counts engine operations, labeled by operation and outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactgraph_queries_total",
			Help: "Total number of contact graph queries executed",
		},
		[]string{"op", "status"},
	)

	// QueryDuration measures engine operations. Queries are in-memory scans,
	// so buckets start in the microseconds.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contactgraph_query_duration_seconds",
			Help:    "Duration of contact graph queries in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"op"},
	)

	// SnapshotNodes tracks the size of the last snapshot loaded, by kind.
	SnapshotNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contactgraph_snapshot_nodes",
			Help: "Number of nodes in the most recently loaded snapshot",
		},
		[]string{"kind"},
	)

	// SnapshotVisits tracks the number of visit edges of the last snapshot loaded.
	SnapshotVisits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contactgraph_snapshot_visits",
			Help: "Number of visit edges in the most recently loaded snapshot",
		},
	)

	// StatusTransitions counts persons moved to another health status.
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contactgraph_status_transitions_total",
			Help: "Total number of persons whose health status was changed",
		},
		[]string{"status"},
	)
)

// ObserveSnapshot records the size of a freshly loaded snapshot.
func ObserveSnapshot(st models.GraphStats) {
	SnapshotNodes.WithLabelValues("person").Set(float64(st.Persons))
	SnapshotNodes.WithLabelValues("sick").Set(float64(st.Sick))
	SnapshotNodes.WithLabelValues("place").Set(float64(st.Places))
	SnapshotVisits.Set(float64(st.Visits))
}
