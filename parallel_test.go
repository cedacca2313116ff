package kstatemachine

import (
	"testing"
)

func TestParallel_EntryFansOut(t *testing.T) {
	machine := CreateParallelMachine()
	_ = machine.Start()
	AssertActiveLeaf(t, machine, "inactive")

	result, err := machine.ProcessEvent(NewEvent("activate"), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	AssertEventProcessed(t, result, true)

	AssertActiveLeaves(t, machine, "motor.stopped", "lights.off")
	if !machine.IsStateActive("active") || !machine.IsStateActive("motor") || !machine.IsStateActive("lights") {
		t.Error("Expected the parallel state and both regions to be active")
	}
}

func TestParallel_RegionsEvolveIndependently(t *testing.T) {
	machine := CreateParallelMachine()
	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("activate"), nil)

	_, _ = machine.ProcessEvent(NewEvent("start_motor"), nil)
	AssertActiveLeaves(t, machine, "motor.running", "lights.off")

	_, _ = machine.ProcessEvent(NewEvent("turn_on_lights"), nil)
	AssertActiveLeaves(t, machine, "motor.running", "lights.on")
}

func TestParallel_OneEventFiresInBothRegions(t *testing.T) {
	machine, err := NewMachine("dual").
		ParallelState("both", func(b *MachineBuilder) {
			b.CompositeState("left", func(lb *MachineBuilder) {
				lb.State("left.a").Initial().
					To("left.b").On("step").Done().
					State("left.b")
			})
			b.CompositeState("right", func(rb *MachineBuilder) {
				rb.State("right.a").Initial().
					To("right.b").On("step").Done().
					State("right.b")
			})
		}).Initial().
		Build()
	if err != nil {
		t.Fatalf("Expected no build error, got: %v", err)
	}

	_ = machine.Start()
	AssertActiveLeaves(t, machine, "left.a", "right.a")

	result, _ := machine.ProcessEvent(NewEvent("step"), nil)
	AssertEventProcessed(t, result, true)
	// One event resolves one transition per region.
	AssertActiveLeaves(t, machine, "left.b", "right.b")
}

func TestParallel_EscapeExitsWholeSubtree(t *testing.T) {
	machine := CreateParallelMachine()
	listener := NewTestListener()
	_ = machine.AddListener(listener)

	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("activate"), nil)
	_, _ = machine.ProcessEvent(NewEvent("start_motor"), nil)
	listener.Reset()

	result, _ := machine.ProcessEvent(NewEvent("deactivate"), nil)
	AssertEventProcessed(t, result, true)
	AssertActiveLeaf(t, machine, "inactive")

	// All regions exit leaf-first before the parallel state itself.
	exits := listener.StateExits
	if len(exits) != 5 {
		t.Fatalf("Expected 5 exits, got %v", exits)
	}
	if exits[len(exits)-1] != "active" {
		t.Errorf("Expected the parallel state to exit last, got %v", exits)
	}
	indexOf := func(name string) int {
		for i, e := range exits {
			if e == name {
				return i
			}
		}
		return -1
	}
	if indexOf("motor.running") > indexOf("motor") {
		t.Error("Expected region leaf to exit before its region")
	}
	if indexOf("lights.off") > indexOf("lights") {
		t.Error("Expected region leaf to exit before its region")
	}
}

func TestParallel_EntryIntoRegionActivatesSiblings(t *testing.T) {
	machine, err := NewMachine("deep-entry").
		State("idle").Initial().
		To("motor.running").On("engage").Done().
		ParallelState("active", func(b *MachineBuilder) {
			b.CompositeState("motor", func(mb *MachineBuilder) {
				mb.State("motor.stopped").Initial().
					State("motor.running")
			})
			b.CompositeState("lights", func(lb *MachineBuilder) {
				lb.State("lights.off").Initial().
					State("lights.on")
			})
		}).
		Build()
	if err != nil {
		t.Fatalf("Expected no build error, got: %v", err)
	}

	_ = machine.Start()
	AssertActiveLeaf(t, machine, "idle")

	result, err := machine.ProcessEvent(NewEvent("engage"), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	AssertEventProcessed(t, result, true)

	// Targeting a leaf inside one region still activates every region.
	AssertActiveLeaves(t, machine, "motor.running", "lights.off")
	if !machine.IsStateActive("active") || !machine.IsStateActive("motor") || !machine.IsStateActive("lights") {
		t.Error("Expected the parallel state and both regions to be active")
	}
}

func TestParallel_CrossRegionTransition(t *testing.T) {
	machine, err := NewMachine("cross-region").
		ParallelState("active", func(b *MachineBuilder) {
			b.CompositeState("motor", func(mb *MachineBuilder) {
				mb.State("motor.stopped").Initial().
					To("lights.on").On("link").Done().
					State("motor.running")
			})
			b.CompositeState("lights", func(lb *MachineBuilder) {
				lb.State("lights.off").Initial().
					State("lights.on")
			})
		}).Initial().
		Build()
	if err != nil {
		t.Fatalf("Expected no build error, got: %v", err)
	}

	listener := NewTestListener()
	_ = machine.AddListener(listener)
	_ = machine.Start()
	AssertActiveLeaves(t, machine, "motor.stopped", "lights.off")
	listener.Reset()

	result, err := machine.ProcessEvent(NewEvent("link"), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	AssertEventProcessed(t, result, true)

	// Each region keeps exactly one active leaf: the target region switches
	// child, the source region re-enters its default.
	AssertActiveLeaves(t, machine, "lights.on", "motor.stopped")
	AssertSequence(t, listener,
		"exit:motor.stopped",
		"exit:motor",
		"exit:lights.off",
		"transition:motor.stopped->lights.on",
		"enter:lights.on",
		"enter:motor",
		"enter:motor.stopped",
	)
}

func TestParallel_RootMode(t *testing.T) {
	machine := NewStateMachine("rooted", WithRootChildMode(Parallel))
	a := NewSimpleState("a")
	b := NewSimpleState("b")
	_ = machine.AddState(nil, a)
	_ = machine.AddState(nil, b)

	err := machine.Start()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	AssertActiveLeaves(t, machine, "a", "b")
}

func TestParallel_TopLevelFinalFinishesMachine(t *testing.T) {
	machine, err := NewMachine("run-once").
		State("working").Initial().
		To("done").On("finish").Done().
		FinalState("done").
		State("unreachable").
		Build()
	if err != nil {
		t.Fatalf("Expected no build error, got: %v", err)
	}

	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("finish"), nil)

	if !machine.IsFinished() {
		t.Error("Expected machine to finish in top-level final state")
	}
}

func TestParallel_NestedFinalDoesNotFinishMachine(t *testing.T) {
	machine, err := NewMachine("nested-final").
		CompositeState("outer", func(b *MachineBuilder) {
			b.State("working").Initial().
				To("outer.done").On("finish").Done().
				FinalState("outer.done")
		}).Initial().
		Build()
	if err != nil {
		t.Fatalf("Expected no build error, got: %v", err)
	}

	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("finish"), nil)

	if machine.IsFinished() {
		t.Error("A nested final state must not finish the machine")
	}
	AssertActiveLeaf(t, machine, "outer.done")
}
