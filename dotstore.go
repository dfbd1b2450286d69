package crdt

import "github.com/pkg/errors"

import (
	"github.com/casperlundberg/json-delta-crdt/crdterrors"
	"github.com/casperlundberg/json-delta-crdt/internal/telemetry"
)

// Kind tags the three DotStore variants. The engine dispatches on Kind
// instead of relying on dynamic-class polymorphism, per the "tagged sum
// type" design in the engine's notes: one struct, a small dispatch
// table, no interface zoo.
type Kind int

const (
	// KindDotFun holds dot -> opaque payload (register cells). This is
	// the state shape of MVReg.
	KindDotFun Kind = iota
	// KindDotFunMap holds key -> (dot -> nested value-state), with the
	// inner dot-set joined by the DotFun rule and the value-states
	// merged recursively when a dot survives on both sides.
	KindDotFunMap
	// KindDotMap holds key -> child DotStore, carrying a CRDT typename
	// tag that says which operator governs the children (TypeNameORMap
	// or TypeNameORArray).
	KindDotMap
)

// CRDT typenames carried by DotStore.TypeName.
const (
	TypeNameMVReg   = "mvreg"
	TypeNameORMap   = "ormap"
	TypeNameORArray = "orarray"
)

// DotStore is the tagged union described in spec §2.3/§3: exactly one of
// Fun, FunMap, Map is meaningful, selected by Kind. A nil *DotStore is a
// valid "not yet observed" value, equivalent to an empty store of
// whatever kind the other side of a join turns out to need.
type DotStore struct {
	Kind     Kind
	TypeName string

	Fun    map[Dot]any
	FunMap map[string]map[Dot]*DotStore
	Map    map[string]*DotStore
}

// NewDotFun returns an empty DotFun (MVReg's state shape).
func NewDotFun() *DotStore {
	return &DotStore{Kind: KindDotFun, TypeName: TypeNameMVReg, Fun: map[Dot]any{}}
}

// NewDotFunMap returns an empty DotFunMap.
func NewDotFunMap() *DotStore {
	return &DotStore{Kind: KindDotFunMap, FunMap: map[string]map[Dot]*DotStore{}}
}

// NewDotMap returns an empty DotMap carrying typeName (TypeNameORMap or
// TypeNameORArray).
func NewDotMap(typeName string) *DotStore {
	return &DotStore{Kind: KindDotMap, TypeName: typeName, Map: map[string]*DotStore{}}
}

// IsEmpty reports whether ds holds zero live dots anywhere in its
// subtree. An empty child is equivalent to absence (spec §3, DotMap
// invariant).
func (ds *DotStore) IsEmpty() bool {
	if ds == nil {
		return true
	}
	switch ds.Kind {
	case KindDotFun:
		return len(ds.Fun) == 0
	case KindDotFunMap:
		for _, inner := range ds.FunMap {
			if len(inner) > 0 {
				return false
			}
		}
		return true
	case KindDotMap:
		return len(ds.Map) == 0
	default:
		return true
	}
}

// clone performs a deep copy so join never mutates its inputs.
func (ds *DotStore) clone() *DotStore {
	if ds == nil {
		return nil
	}
	out := &DotStore{Kind: ds.Kind, TypeName: ds.TypeName}
	switch ds.Kind {
	case KindDotFun:
		out.Fun = make(map[Dot]any, len(ds.Fun))
		for d, v := range ds.Fun {
			out.Fun[d] = v
		}
	case KindDotFunMap:
		out.FunMap = make(map[string]map[Dot]*DotStore, len(ds.FunMap))
		for k, inner := range ds.FunMap {
			c := make(map[Dot]*DotStore, len(inner))
			for d, v := range inner {
				c[d] = v.clone()
			}
			out.FunMap[k] = c
		}
	case KindDotMap:
		out.Map = make(map[string]*DotStore, len(ds.Map))
		for k, v := range ds.Map {
			out.Map[k] = v.clone()
		}
	}
	return out
}

// joinKindAndType determines the Kind/TypeName the merge of a and b must
// carry, failing with ErrTypeMismatch if the two sides disagree on
// either. Either side may be nil (an as-yet-untyped empty store), which
// always yields the other side's kind/type.
func joinKindAndType(a, b *DotStore) (Kind, string, error) {
	if a == nil && b == nil {
		return KindDotFun, "", nil // arbitrary; caller treats as empty
	}
	if a == nil {
		return b.Kind, b.TypeName, nil
	}
	if b == nil {
		return a.Kind, a.TypeName, nil
	}
	if a.Kind != b.Kind {
		return 0, "", errors.Wrapf(crdterrors.ErrTypeMismatch, "dotstore kind %d vs %d", a.Kind, b.Kind)
	}
	if a.Kind == KindDotMap && a.TypeName != b.TypeName {
		return 0, "", errors.Wrapf(crdterrors.ErrTypeMismatch, "dotmap typename %q vs %q", a.TypeName, b.TypeName)
	}
	return a.Kind, a.TypeName, nil
}

// joinDotStore is the core "dot-store join" (spec §4.2): commutative,
// associative, idempotent given the surrounding causal contexts ccA,
// ccB. Either a or b may be nil, standing for an empty store of
// whatever kind the merge turns out to need.
func joinDotStore(a, b *DotStore, ccA, ccB *CausalContext) (*DotStore, error) {
	kind, typeName, err := joinKindAndType(a, b)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindDotFun:
		var funA, funB map[Dot]any
		if a != nil {
			funA = a.Fun
		}
		if b != nil {
			funB = b.Fun
		}
		merged := joinDotFun(funA, funB, ccA, ccB)
		if typeName == "" {
			typeName = TypeNameMVReg
		}
		return &DotStore{Kind: KindDotFun, TypeName: typeName, Fun: merged}, nil

	case KindDotFunMap:
		var mapA, mapB map[string]map[Dot]*DotStore
		if a != nil {
			mapA = a.FunMap
		}
		if b != nil {
			mapB = b.FunMap
		}
		merged, err := joinDotFunMap(mapA, mapB, ccA, ccB)
		if err != nil {
			return nil, err
		}
		return &DotStore{Kind: KindDotFunMap, FunMap: merged}, nil

	case KindDotMap:
		var childrenA, childrenB map[string]*DotStore
		if a != nil {
			childrenA = a.Map
		}
		if b != nil {
			childrenB = b.Map
		}
		merged, err := joinDotMap(childrenA, childrenB, ccA, ccB)
		if err != nil {
			return nil, err
		}
		return &DotStore{Kind: KindDotMap, TypeName: typeName, Map: merged}, nil
	}
	return nil, errors.Wrapf(crdterrors.ErrTypeMismatch, "unknown dotstore kind %d", kind)
}

// joinDotFun implements the core merge rule: a dot survives iff present
// on both sides, or present on one side and unknown to the other side's
// causal context. A dot known to a peer's CC but absent from that
// peer's store has been observed-and-removed there.
func joinDotFun(a, b map[Dot]any, ccA, ccB *CausalContext) map[Dot]any {
	out := make(map[Dot]any, len(a)+len(b))
	for d, v := range a {
		if bv, ok := b[d]; ok {
			out[d] = bv
			continue
		}
		if ccB == nil || !ccB.Contains(d) {
			out[d] = v
		}
	}
	for d, v := range b {
		if _, ok := a[d]; ok {
			continue
		}
		if ccA == nil || !ccA.Contains(d) {
			out[d] = v
		}
	}
	return out
}

// joinDotFunMap applies the dot-store join per outer key to the set of
// inner dots, recursively merging the value-states of dots present on
// both sides.
func joinDotFunMap(a, b map[string]map[Dot]*DotStore, ccA, ccB *CausalContext) (map[string]map[Dot]*DotStore, error) {
	out := make(map[string]map[Dot]*DotStore)
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	for key := range keys {
		innerA, innerB := a[key], b[key]
		merged := make(map[Dot]*DotStore, len(innerA)+len(innerB))
		for d, va := range innerA {
			if vb, ok := innerB[d]; ok {
				mv, err := joinDotStore(va, vb, ccA, ccB)
				if err != nil {
					return nil, errors.Wrapf(err, "dotfunmap key %q dot %s", key, d)
				}
				merged[d] = mv
				continue
			}
			if ccB == nil || !ccB.Contains(d) {
				merged[d] = va
			}
		}
		for d, vb := range innerB {
			if _, ok := innerA[d]; ok {
				continue
			}
			if ccA == nil || !ccA.Contains(d) {
				merged[d] = vb
			}
		}
		if len(merged) > 0 {
			out[key] = merged
		}
	}
	return out, nil
}

// requireKind validates that state's store is of the given Kind and, for
// DotMap stores, the given TypeName, returning ErrTypeMismatch
// otherwise. Every CRDT operator calls this before touching its state's
// Store, so a caller that hands MVReg's operators an ORMap state (or
// vice versa) gets a clear error instead of a nil-map panic.
func requireKind(state *State, kind Kind, typeName string) error {
	if state == nil || state.Store == nil {
		telemetry.ObserveError("type_mismatch")
		return errors.Wrapf(crdterrors.ErrTypeMismatch, "expected %s state, got nil", typeName)
	}
	if state.Store.Kind != kind {
		telemetry.ObserveError("type_mismatch")
		return errors.Wrapf(crdterrors.ErrTypeMismatch, "expected kind %d (%s), got kind %d", kind, typeName, state.Store.Kind)
	}
	if kind == KindDotMap && state.Store.TypeName != typeName {
		telemetry.ObserveError("type_mismatch")
		return errors.Wrapf(crdterrors.ErrTypeMismatch, "expected typename %q, got %q", typeName, state.Store.TypeName)
	}
	return nil
}

// collectDots walks ds and returns every dot appearing anywhere in its
// subtree, regardless of nesting. ORMapRemove uses this to build a
// delta whose CausalContext observes
// exactly the dots being tombstoned, and nothing else — observing more
// than that would erase unrelated keys on the far side of a join.
func collectDots(ds *DotStore) []Dot {
	if ds == nil {
		return nil
	}
	var out []Dot
	switch ds.Kind {
	case KindDotFun:
		for d := range ds.Fun {
			out = append(out, d)
		}
	case KindDotFunMap:
		for _, inner := range ds.FunMap {
			for d, v := range inner {
				out = append(out, d)
				out = append(out, collectDots(v)...)
			}
		}
	case KindDotMap:
		for _, child := range ds.Map {
			out = append(out, collectDots(child)...)
		}
	}
	return out
}

// joinDotMap unions keys; for each shared key, children are joined
// recursively. A child that becomes empty after merging is dropped —
// an empty child is equivalent to absence (spec §3).
func joinDotMap(a, b map[string]*DotStore, ccA, ccB *CausalContext) (map[string]*DotStore, error) {
	out := make(map[string]*DotStore)
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	for key := range keys {
		merged, err := joinDotStore(a[key], b[key], ccA, ccB)
		if err != nil {
			return nil, errors.Wrapf(err, "dotmap key %q", key)
		}
		if !merged.IsEmpty() {
			out[key] = merged
		}
	}
	return out, nil
}
