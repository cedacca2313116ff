package kstatemachine

import (
	"testing"
)

func TestContext_EventAndArg(t *testing.T) {
	machine := CreateSimpleMachine()
	var seenKind string
	var seenArg any
	_ = machine.AddListener(&hookListener{onEntry: func(state State, ctx Context) {
		if state.Name() == "running" {
			seenKind = ctx.Event().Kind()
			seenArg = ctx.Arg()
		}
	}})

	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("start"), "payload")

	if seenKind != "start" {
		t.Errorf("Expected event kind 'start', got %s", seenKind)
	}
	if seenArg != "payload" {
		t.Errorf("Expected arg 'payload', got %v", seenArg)
	}
}

func TestContext_SourceAndTarget(t *testing.T) {
	machine := CreateSimpleMachine()
	var from, to string
	_ = machine.AddListener(&hookListener{onEntry: func(state State, ctx Context) {
		if state.Name() == "running" {
			from = describeState(ctx.SourceState())
			to = describeState(ctx.TargetState())
		}
	}})

	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("start"), nil)

	if from != "idle" || to != "running" {
		t.Errorf("Expected idle->running in context, got %s->%s", from, to)
	}
}

// A value set during the firing notification stays visible to the target's
// entry notifications.
func TestContext_TransitionArgFlows(t *testing.T) {
	machine := CreateSimpleMachine()
	var received any
	setter := &transitionArgSetter{value: "handoff"}
	_ = machine.AddListener(setter)
	_ = machine.AddListener(&hookListener{onEntry: func(state State, ctx Context) {
		if state.Name() == "running" {
			received = ctx.TransitionArg()
		}
	}})

	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("start"), nil)

	if received != "handoff" {
		t.Errorf("Expected transition arg 'handoff', got %v", received)
	}
}

type transitionArgSetter struct {
	BaseListener
	value any
}

func (l *transitionArgSetter) OnTransition(from State, to State, ctx Context) {
	ctx.SetTransitionArg(l.value)
}

func TestContext_SharedData(t *testing.T) {
	machine := CreateSimpleMachine()
	ctx := machine.Context()

	ctx.Set("retries", 3)

	value, ok := ctx.Get("retries")
	if !ok || value != 3 {
		t.Errorf("Expected retries=3, got %v (ok=%v)", value, ok)
	}

	all := ctx.GetAll()
	if len(all) != 1 || all["retries"] != 3 {
		t.Errorf("Expected one entry in data map, got %v", all)
	}

	if _, ok := ctx.Get("missing"); ok {
		t.Error("Expected missing key to report absence")
	}
}

func TestContext_GuardSeesSharedData(t *testing.T) {
	machine, err := NewMachine("conditional").
		State("a").Initial().
		To("b").On("go").When(func(ctx Context) bool {
			value, ok := ctx.Get("allowed")
			return ok && value.(bool)
		}).Done().
		State("b").
		Build()
	if err != nil {
		t.Fatalf("Expected no build error, got: %v", err)
	}

	_ = machine.Start()
	machine.Context().Set("allowed", false)
	result, _ := machine.ProcessEvent(NewEvent("go"), nil)
	AssertEventProcessed(t, result, false)

	machine.Context().Set("allowed", true)
	result, _ = machine.ProcessEvent(NewEvent("go"), nil)
	AssertEventProcessed(t, result, true)
}
