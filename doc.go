// Package kstatemachine implements hierarchical and parallel finite state
// machines with typed data states, pluggable event matching and guarded,
// dynamically resolved transitions.
//
// A machine owns a tree of states. Sequential composite states activate one
// child at a time; parallel states activate all children as independent
// regions. Processing an event resolves one transition per active region,
// walking from the active leaf towards the root so transitions defined
// nearer the leaf shadow ancestor transitions. A firing transition exits the
// source subtree leaf-first up to the least common ancestor of source and
// target, then enters ancestor-first down to the target and its default
// substates.
//
// Machines are usually declared through the fluent builder:
//
//	machine, err := kstatemachine.NewMachine("traffic").
//		State("green").Initial().
//		To("yellow").On("switch").Done().
//		State("yellow").
//		To("red").On("switch").Done().
//		FinalState("red").
//		Build()
//
// or loaded declaratively from YAML via LoadDefinition and Materialize.
//
// Machines are strictly single-threaded: all calls must come from one
// goroutine, or the embedder must serialize them externally. Reentrant
// ProcessEvent calls from listener callbacks are detected and routed to a
// configurable pending-event policy.
package kstatemachine
