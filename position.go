package crdt

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/casperlundberg/json-delta-crdt/crdterrors"
	"github.com/casperlundberg/json-delta-crdt/internal/telemetry"
)

// Position is a dense, totally-ordered identifier used as ORArray's sort
// key: a non-empty sequence of non-negative integers, compared
// lexicographically. Between any two distinct positions a new one
// strictly between them can always be produced, without ever requiring
// renumbering of existing positions (spec §4.6).
type Position []uint64

// DigitCap is the digit value new extension levels are centered around.
// It has no bearing on CRDT correctness — it just keeps freshly
// allocated digits away from 0 and from each other, so later Between
// calls on the positions we create ourselves have room on both sides.
const DigitCap = uint64(1) << 40

// NewTopLevelPosition returns a single-digit Position centered in the
// digit space, suitable as a first element's position (spec §8's
// scenarios use spaced-out literals like [100], [200] for the same
// reason).
func NewTopLevelPosition() Position {
	return Position{DigitCap / 2}
}

// Compare returns -1, 0 or 1 as p is less than, equal to, or greater
// than q, comparing lexicographically: the first index where they
// differ decides, and if one is a strict prefix of the other, the
// shorter one is less.
func (p Position) Compare(q Position) int {
	return compareSlices(p, q)
}

// Less reports whether p sorts strictly before q.
func (p Position) Less(q Position) bool {
	return p.Compare(q) < 0
}

// Equal reports positional equality.
func (p Position) Equal(q Position) bool {
	return p.Compare(q) == 0
}

func (p Position) String() string {
	parts := make([]string, len(p))
	for i, d := range p {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (p Position) valid() bool {
	return len(p) > 0
}

// Between produces a Position r with p < r < q. p must be strictly less
// than q (ErrInvalidPosition otherwise). The algorithm follows spec
// §4.6: find the first index the two sequences differ at; if the gap
// there is at least 2, pick the midpoint; otherwise extend the shorter
// side with one more digit chosen to fall strictly between.
//
// One configuration has no solution in plain digit-sequence order: q
// exactly equal to p with a single extra trailing zero (e.g. p=[5],
// q=[5,0]) is q's immediate successor and nothing sits between them.
// Between reports ErrInvalidPosition for that pair rather than silently
// producing a position outside (p, q). In practice this never arises
// from positions this engine allocates itself, because fresh digits are
// centered in DigitCap's range rather than placed at 0.
func Between(p, q Position) (Position, error) {
	if !p.valid() || !q.valid() {
		telemetry.ObserveError("invalid_position")
		return nil, errors.Wrap(crdterrors.ErrInvalidPosition, "empty position")
	}
	if p.Compare(q) >= 0 {
		telemetry.ObserveError("invalid_position")
		return nil, errors.Wrapf(crdterrors.ErrInvalidPosition, "between requires p < q, got %s >= %s", p, q)
	}
	r, err := between(asInt64(p), asInt64(q))
	if err != nil {
		telemetry.ObserveError("invalid_position")
		return nil, errors.Wrapf(err, "no position strictly between %s and %s", p, q)
	}
	return r, nil
}

func asInt64(p Position) []int64 {
	out := make([]int64, len(p))
	for i, d := range p {
		out[i] = int64(d)
	}
	return out
}

func between(p, q []int64) ([]uint64, error) {
	i := 0
	for i < len(p) && i < len(q) && p[i] == q[i] {
		i++
	}
	prefix := make([]uint64, i)
	for k := 0; k < i; k++ {
		prefix[k] = uint64(p[k])
	}

	var pd, qd int64 = -1, -1
	if i < len(p) {
		pd = p[i]
	}
	if i < len(q) {
		qd = q[i]
	}

	switch {
	case pd == -1 && qd == -1:
		return nil, crdterrors.ErrInvalidPosition

	case qd == -1:
		// q ran out while p continues: q would have to be a strict
		// prefix of p, i.e. q < p — contradicts the caller's p < q.
		return nil, crdterrors.ErrInvalidPosition

	case pd == -1:
		if qd >= 1 {
			return append(prefix, uint64(qd/2)), nil
		}
		rest, err := between(nil, q[i+1:])
		if err != nil {
			if len(q) == i+1 {
				return nil, crdterrors.ErrInvalidPosition
			}
			// q's remaining digits are all zeros: prefix+[0] is a strict
			// prefix of q, so it still sorts before q.
			return append(prefix, 0), nil
		}
		return append(append(prefix, 0), rest...), nil

	default:
		diff := qd - pd
		if diff >= 2 {
			return append(prefix, uint64(pd+diff/2)), nil
		}
		tail := extendGreater(p[i+1:])
		return append(append(prefix, uint64(pd)), tail...), nil
	}
}

// extendGreater produces a digit sequence guaranteed to compare greater
// than pTail, with no upper bound to respect (the caller has already
// established the result stays below q at an earlier digit).
func extendGreater(pTail []int64) []uint64 {
	if len(pTail) == 0 {
		return []uint64{DigitCap / 2}
	}
	return []uint64{uint64(pTail[0]) + 1}
}

// compareSlices is a small generic helper shared by Position and
// anything else in the engine that needs lexicographic order over a
// slice of ordered values.
func compareSlices[T constraints.Ordered](a, b []T) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
