package crdt

import "sort"

// Value renders state as a plain JSON-shaped tree (spec §6.3): an MVReg
// becomes a single value, or a slice of values when a concurrent write
// has not yet been resolved by the application; an ORMap becomes a
// map[string]any; an ORArray becomes an []any in element order.
func Value(state *State) any {
	if state == nil || state.Store == nil {
		return nil
	}
	switch state.Store.Kind {
	case KindDotFun:
		return mvregValue(state.Store)
	case KindDotMap:
		switch state.Store.TypeName {
		case TypeNameORMap:
			return ormapValue(state)
		case TypeNameORArray:
			return orarrayValue(state)
		default:
			return nil
		}
	default:
		return nil
	}
}

func mvregValue(ds *DotStore) any {
	switch len(ds.Fun) {
	case 0:
		return nil
	case 1:
		for _, v := range ds.Fun {
			return v
		}
	}
	dots := make([]Dot, 0, len(ds.Fun))
	for d := range ds.Fun {
		dots = append(dots, d)
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].Less(dots[j]) })
	out := make([]any, len(dots))
	for i, d := range dots {
		out[i] = ds.Fun[d]
	}
	return out
}

func ormapValue(state *State) map[string]any {
	out := make(map[string]any, len(state.Store.Map))
	for key, child := range state.Store.Map {
		out[key] = Value(&State{ReplicaID: state.ReplicaID, Store: child, CC: state.CC})
	}
	return out
}

func orarrayValue(state *State) []any {
	order := orArrayOrder(state)
	out := make([]any, 0, len(order))
	for _, uid := range order {
		el := state.Store.Map[uid]
		out = append(out, Value(&State{ReplicaID: state.ReplicaID, Store: el.Map["SECOND"], CC: state.CC}))
	}
	return out
}

// ORMapValue is a typed convenience wrapper over Value for callers that
// already know state holds an ORMap.
func ORMapValue(state *State) (map[string]any, error) {
	if err := requireKind(state, KindDotMap, TypeNameORMap); err != nil {
		return nil, err
	}
	return ormapValue(state), nil
}

// ORArrayValues is a typed convenience wrapper over Value for callers
// that already know state holds an ORArray.
func ORArrayValues(state *State) ([]any, error) {
	if err := requireKind(state, KindDotMap, TypeNameORArray); err != nil {
		return nil, err
	}
	return orarrayValue(state), nil
}
