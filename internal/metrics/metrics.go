// Package metrics defines the prometheus/client_golang collectors
// exported by a syncdb replica: RPC latency, reconnect counts,
// conflicts observed and remote operations applied.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every collector a replica updates. Construct one
// per process with NewRegistry and thread it through the replication
// loop and transport engine.
type Registry struct {
	RPCLatency       *prometheus.HistogramVec
	Reconnects       prometheus.Counter
	ConflictsTotal   prometheus.Counter
	MergesTotal      *prometheus.CounterVec
	PullBatchSize    prometheus.Histogram
	OperationsPushed prometheus.Counter
}

// NewRegistry registers every collector against reg and returns the
// bundle. Pass prometheus.NewRegistry() in tests to avoid colliding
// with the global default registry across parallel test binaries.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		RPCLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "syncdb",
			Subsystem: "transport",
			Name:      "rpc_duration_seconds",
			Help:      "Latency of push/pull/reconcile RPCs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"rpc"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "syncdb",
			Subsystem: "transport",
			Name:      "reconnects_total",
			Help:      "Number of times the transport re-established its connection.",
		}),
		ConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "syncdb",
			Subsystem: "replicate",
			Name:      "conflicts_total",
			Help:      "Number of DataConflict events observed during reconciliation.",
		}),
		MergesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syncdb",
			Subsystem: "crdt",
			Name:      "merges_total",
			Help:      "Remote operations applied, partitioned by operation kind.",
		}, []string{"kind"}),
		PullBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "syncdb",
			Subsystem: "replicate",
			Name:      "pull_batch_size",
			Help:      "Number of operations returned per pull() call.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
		OperationsPushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "syncdb",
			Subsystem: "replicate",
			Name:      "operations_pushed_total",
			Help:      "Operations successfully pushed to the transport.",
		}),
	}
}
