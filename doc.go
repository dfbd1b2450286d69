// Package crdt implements the replicated-state engine of a delta-based
// CRDT library for JSON-shaped data.
//
// Many replicas concurrently mutate a nested value built from maps,
// ordered arrays and multi-value registers. Replicas exchange deltas;
// joining a delta into a state is commutative, associative and
// idempotent, so any two replicas that have seen the same set of deltas
// converge to the same value without coordination (strong eventual
// consistency).
//
// The algebra is layered:
//
//   - Dot — a (replicaID, seq) pair identifying one write event.
//   - CausalContext — the compact set of dots a state has observed.
//   - DotStore — one of DotFun, DotFunMap or DotMap, embedding dots into
//     data.
//   - CRDT operators — MVReg, ORMap, ORArray — pure functions over a
//     (DotStore, CausalContext) pair that produce deltas of the same
//     shape.
//   - Position — the dense total order ORArray uses to place elements.
//
// A front-end proxy presenting a mutable handle to application code, a
// JSON wire encoding, a CLI figure generator and a network transport are
// deliberately not part of this package: they are external collaborators
// that obtain and apply deltas through State, Join and the per-CRDT
// operators below.
package crdt
