// Package telemetry holds the engine's Prometheus collectors: counters and
// histograms hosts can register once at startup and that operators in
// package crdt increment as deltas are produced and merged.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeltaOps counts deltas produced by each operator, labeled by the CRDT
// kind (mvreg, ormap, orarray) and the operation name (write, clear,
// applyToKey, remove, insertValue, move, applyToValue, delete).
var DeltaOps = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crdt",
	Subsystem: "engine",
	Name:      "delta_ops_total",
}, []string{"kind", "op"})

// MergeCount counts calls to State.MergeIn / Join, labeled by kind.
var MergeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crdt",
	Subsystem: "engine",
	Name:      "merges_total",
}, []string{"kind"})

// MergeDuration tracks how long a single Join takes, labeled by kind.
// Buckets are in seconds, wide enough to cover a single register merge
// up through joining a deep ORArray subtree.
var MergeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "crdt",
	Subsystem: "engine",
	Name:      "merge_duration_seconds",
	Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
}, []string{"kind"})

// CausalContextDots reports the live dot count of a state's
// CausalContext after a merge, labeled by kind. Hosts watch this to spot
// CausalContexts growing without bound (a sign a peer has stopped
// compacting or a delta stream is being replayed unboundedly).
var CausalContextDots = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "crdt",
	Subsystem: "engine",
	Name:      "causal_context_dots",
}, []string{"kind"})

// DotsAllocated counts fresh dots minted by CausalContext.Next, labeled
// by replica. Grounded in the same "counter of dots allocated per
// replica" the ambient-stack notes call for.
var DotsAllocated = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crdt",
	Subsystem: "engine",
	Name:      "dots_allocated_total",
}, []string{"replica"})

// EngineErrors counts errors returned by operators, labeled by the
// crdterrors sentinel they wrap (type_mismatch, missing_element,
// invalid_position).
var EngineErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crdt",
	Subsystem: "engine",
	Name:      "errors_total",
}, []string{"kind"})

// ObserveDotAlloc increments DotsAllocated for replicaID.
func ObserveDotAlloc(replicaID string) {
	DotsAllocated.WithLabelValues(replicaID).Inc()
}

// ObserveError increments EngineErrors for the given sentinel kind.
func ObserveError(kind string) {
	EngineErrors.WithLabelValues(kind).Inc()
}

// ObserveMerge records one merge's duration and the resulting
// CausalContext size. Callers time their own Join/MergeIn call and pass
// the elapsed duration and post-merge dot count here.
func ObserveMerge(kind string, elapsed time.Duration, dotCount int) {
	MergeCount.WithLabelValues(kind).Inc()
	MergeDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	CausalContextDots.WithLabelValues(kind).Set(float64(dotCount))
}

// ObserveOp increments DeltaOps for one operator call.
func ObserveOp(kind, op string) {
	DeltaOps.WithLabelValues(kind, op).Inc()
}

// MustRegister registers every collector in this package with reg. Hosts
// call this once against their own prometheus.Registry (or
// prometheus.DefaultRegisterer) at startup; package crdt never registers
// itself, so importing it has no global side effect.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(DeltaOps, MergeCount, MergeDuration, CausalContextDots, DotsAllocated, EngineErrors)
}
