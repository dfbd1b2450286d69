// Command crdtsim runs the engine's convergence scenarios (spec §8,
// S1-S6) against simulated replicas exchanging deltas in sequence on
// one goroutine, and prints the value each replica converges to. It exists to give a
// human a visible demonstration of the algebra — it is not a front-end,
// REPL, or transport, all of which are explicit Non-goals of the engine
// itself.
package main

import (
	"fmt"
	"log/slog"
	"os"

	crdt "github.com/casperlundberg/json-delta-crdt"
	"github.com/casperlundberg/json-delta-crdt/internal/replicaset"
	"github.com/casperlundberg/json-delta-crdt/internal/telemetry"
)

func main() {
	log := telemetry.NewDefaultLogger(slog.LevelInfo)

	scenarios := []func(telemetry.Logger){
		scenarioS1InsertConvergence,
		scenarioS2DifferentPositions,
		scenarioS3MoveWinsOverDelete,
		scenarioS4MoveAndUpdateCommute,
		scenarioS5AddWins,
		scenarioS6CircularMoves,
	}
	for _, s := range scenarios {
		s(log)
		fmt.Println()
	}
}

// newArrayReplica returns a fresh empty ORArray State bound to
// replicaID, logging through log.
func newArrayReplica(replicaID string, log telemetry.Logger) *crdt.State {
	return crdt.NewState(replicaID, crdt.TypeNameORArray, crdt.WithLogger(log), crdt.WithMetrics())
}

func newMapReplica(replicaID string, log telemetry.Logger) *crdt.State {
	return crdt.NewState(replicaID, crdt.TypeNameORMap, crdt.WithLogger(log), crdt.WithMetrics())
}

func writeValue(v any) func(*crdt.State) (*crdt.State, error) {
	return func(child *crdt.State) (*crdt.State, error) {
		return crdt.MVRegWrite(child, v)
	}
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "crdtsim:", err)
		os.Exit(1)
	}
}

// apply runs op against state, merges the resulting delta back into
// state itself (so the local replica immediately sees its own write),
// and broadcasts the delta to every other replica in set.
func apply(set *replicaset.Set, state *crdt.State, op func(*crdt.State) (*crdt.State, error)) {
	delta, err := op(state)
	must(err)
	must(state.MergeIn(delta))
	must(set.Broadcast(delta, state.ReplicaID))
}

func printConverged(label string, set *replicaset.Set) {
	fmt.Printf("%s:\n", label)
	set.Each(func(replicaID string, state *crdt.State) {
		fmt.Printf("  %s -> %v\n", replicaID, crdt.Value(state))
	})
}

func scenarioS1InsertConvergence(log telemetry.Logger) {
	fmt.Println("S1: insert convergence")
	set := replicaset.New()
	r1, r2, r3 := newArrayReplica("r1", log), newArrayReplica("r2", log), newArrayReplica("r3", log)
	set.Register(r1)
	set.Register(r2)
	set.Register(r3)

	pos := crdt.NewTopLevelPosition()
	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "a", pos, crdt.TypeNameMVReg, writeValue("A"))
	})
	apply(set, r2, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "b", pos, crdt.TypeNameMVReg, writeValue("B"))
	})
	apply(set, r3, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "c", pos, crdt.TypeNameMVReg, writeValue("C"))
	})
	printConverged("converged", set)
}

func scenarioS2DifferentPositions(log telemetry.Logger) {
	fmt.Println("S2: different positions")
	set := replicaset.New()
	r1, r2, r3 := newArrayReplica("r1", log), newArrayReplica("r2", log), newArrayReplica("r3", log)
	set.Register(r1)
	set.Register(r2)
	set.Register(r3)

	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "first", crdt.Position{50}, crdt.TypeNameMVReg, writeValue("First"))
	})
	apply(set, r2, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "second", crdt.Position{150}, crdt.TypeNameMVReg, writeValue("Second"))
	})
	apply(set, r3, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "third", crdt.Position{100}, crdt.TypeNameMVReg, writeValue("Third"))
	})
	printConverged("converged", set)
}

func scenarioS3MoveWinsOverDelete(log telemetry.Logger) {
	fmt.Println("S3: move wins over delete")
	set := replicaset.New()
	r1, r2 := newArrayReplica("r1", log), newArrayReplica("r2", log)
	set.Register(r1)
	set.Register(r2)

	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "a", crdt.Position{100}, crdt.TypeNameMVReg, writeValue("A"))
	})
	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "b", crdt.Position{200}, crdt.TypeNameMVReg, writeValue("B"))
	})

	// r1 moves a to [300]; r2 concurrently deletes a, without having
	// observed r1's move.
	moveDelta, err := crdt.ORArrayMove(r1, "a", crdt.Position{300})
	must(err)
	deleteDelta, err := crdt.ORArrayDelete(r2, "a")
	must(err)

	must(r1.MergeIn(moveDelta))
	must(r2.MergeIn(deleteDelta))
	must(r1.MergeIn(deleteDelta))
	must(r2.MergeIn(moveDelta))
	printConverged("converged (a survives at its new position)", set)
}

func scenarioS4MoveAndUpdateCommute(log telemetry.Logger) {
	fmt.Println("S4: move and update commute")
	set := replicaset.New()
	r1, r2 := newArrayReplica("r1", log), newArrayReplica("r2", log)
	set.Register(r1)
	set.Register(r2)

	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "x", crdt.Position{100}, crdt.TypeNameMVReg, writeValue("initial"))
	})

	moveDelta, err := crdt.ORArrayMove(r1, "x", crdt.Position{200})
	must(err)
	updateDelta, err := crdt.ORArrayApplyToValue(r2, "x", crdt.Position{100}, crdt.TypeNameMVReg, false, writeValue("updated"))
	must(err)

	must(r1.MergeIn(moveDelta))
	must(r2.MergeIn(updateDelta))
	must(r1.MergeIn(updateDelta))
	must(r2.MergeIn(moveDelta))
	printConverged("converged (single clean value at the new position)", set)
}

func scenarioS5AddWins(log telemetry.Logger) {
	fmt.Println("S5: add-wins")
	set := replicaset.New()
	r1, r2 := newMapReplica("r1", log), newMapReplica("r2", log)
	set.Register(r1)
	set.Register(r2)

	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORMapApplyToKey(s, "k", crdt.TypeNameMVReg, writeValue("v0"))
	})

	writeDelta, err := crdt.ORMapApplyToKey(r1, "k", crdt.TypeNameMVReg, writeValue("v1"))
	must(err)
	removeDelta, err := crdt.ORMapRemove(r2, "k")
	must(err)

	must(r1.MergeIn(writeDelta))
	must(r2.MergeIn(removeDelta))
	must(r1.MergeIn(removeDelta))
	must(r2.MergeIn(writeDelta))
	printConverged("converged (k's concurrent write wins)", set)
}

func scenarioS6CircularMoves(log telemetry.Logger) {
	fmt.Println("S6: circular moves")
	set := replicaset.New()
	r1, r2, r3 := newArrayReplica("r1", log), newArrayReplica("r2", log), newArrayReplica("r3", log)
	set.Register(r1)
	set.Register(r2)
	set.Register(r3)

	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "a", crdt.Position{100}, crdt.TypeNameMVReg, writeValue("A"))
	})
	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "b", crdt.Position{200}, crdt.TypeNameMVReg, writeValue("B"))
	})
	apply(set, r1, func(s *crdt.State) (*crdt.State, error) {
		return crdt.ORArrayInsertValue(s, "c", crdt.Position{300}, crdt.TypeNameMVReg, writeValue("C"))
	})

	moveA, err := crdt.ORArrayMove(r1, "a", crdt.Position{200})
	must(err)
	moveB, err := crdt.ORArrayMove(r2, "b", crdt.Position{300})
	must(err)
	moveC, err := crdt.ORArrayMove(r3, "c", crdt.Position{100})
	must(err)

	for _, delta := range []*crdt.State{moveA, moveB, moveC} {
		must(r1.MergeIn(delta))
		must(r2.MergeIn(delta))
		must(r3.MergeIn(delta))
	}
	printConverged("converged (no panic, all three elements present)", set)
}
