// Package crdterrors provides the core engine's error definitions.
//
// All kinds are fatal within the operation that returns them: the engine
// never retries internally and an error never mutates state. Call sites
// wrap these sentinels with github.com/pkg/errors to attach the offending
// dot, uid or key without losing errors.Is matchability.
package crdterrors

import "errors"

var (
	// ErrTypeMismatch is returned when two DotStores (or a state and an
	// incoming delta) carry incompatible CRDT typenames, or when a join
	// is attempted between structurally incompatible DotStore variants
	// (e.g. a DotFun where a DotMap was expected).
	ErrTypeMismatch = errors.New("crdt: type mismatch")

	// ErrMissingElement is returned by ORArray operations (move,
	// applyToValue, delete) that target a uid never observed in the
	// local view — no dot under that uid exists in either the DotStore
	// or the CausalContext.
	ErrMissingElement = errors.New("crdt: missing element")

	// ErrInvalidPosition is returned by Between when an input position
	// is empty, when p is not strictly less than q, or when no position
	// lies strictly between them. Position.Compare does not validate its
	// inputs and reports no error.
	ErrInvalidPosition = errors.New("crdt: invalid position")
)
