package kstatemachine

import (
	"fmt"
	"sync"
	"testing"
)

// TestListener is a mock listener for testing that captures all notifications
type TestListener struct {
	mutex       sync.RWMutex
	Transitions []TransitionRecord
	StateEnters []string
	StateExits  []string
	Ignored     []string
	Started     int
	Stopped     int
	Finished    int
	// Sequence records every notification in arrival order for ordering
	// assertions, e.g. "exit:green", "transition:green->yellow",
	// "enter:yellow".
	Sequence []string
}

type TransitionRecord struct {
	From string
	To   string
}

// NewTestListener creates a new test listener
func NewTestListener() *TestListener {
	return &TestListener{}
}

func (l *TestListener) OnTransition(from State, to State, ctx Context) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Transitions = append(l.Transitions, TransitionRecord{From: describeState(from), To: describeState(to)})
	l.Sequence = append(l.Sequence, fmt.Sprintf("transition:%s->%s", describeState(from), describeState(to)))
}

func (l *TestListener) OnStateEntry(state State, ctx Context) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.StateEnters = append(l.StateEnters, describeState(state))
	l.Sequence = append(l.Sequence, "enter:"+describeState(state))
}

func (l *TestListener) OnStateExit(state State, ctx Context) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.StateExits = append(l.StateExits, describeState(state))
	l.Sequence = append(l.Sequence, "exit:"+describeState(state))
}

func (l *TestListener) OnEventIgnored(event Event, ctx Context) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Ignored = append(l.Ignored, event.Kind())
	l.Sequence = append(l.Sequence, "ignored:"+event.Kind())
}

func (l *TestListener) OnStarted(ctx Context) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Started++
	l.Sequence = append(l.Sequence, "started")
}

func (l *TestListener) OnStopped(ctx Context) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Stopped++
	l.Sequence = append(l.Sequence, "stopped")
}

func (l *TestListener) OnFinished(ctx Context) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Finished++
	l.Sequence = append(l.Sequence, "finished")
}

func (l *TestListener) Reset() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Transitions = nil
	l.StateEnters = nil
	l.StateExits = nil
	l.Ignored = nil
	l.Started = 0
	l.Stopped = 0
	l.Finished = 0
	l.Sequence = nil
}

func (l *TestListener) TransitionCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.Transitions)
}

func (l *TestListener) StateEnterCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.StateEnters)
}

func (l *TestListener) StateExitCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.StateExits)
}

func (l *TestListener) LastTransition() *TransitionRecord {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if len(l.Transitions) == 0 {
		return nil
	}
	return &l.Transitions[len(l.Transitions)-1]
}

func (l *TestListener) SequenceCopy() []string {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	out := make([]string, len(l.Sequence))
	copy(out, l.Sequence)
	return out
}

// Test machine builders - common machine configurations for testing

// CreateSimpleMachine creates a basic three-state machine
func CreateSimpleMachine() *StateMachine {
	machine, err := NewMachine("simple").
		State("idle").Initial().
		To("running").On("start").Done().
		State("running").
		To("stopped").On("stop").Done().
		State("stopped").
		To("idle").On("reset").Done().
		Build()
	if err != nil {
		panic(err)
	}
	return machine
}

// CreateTrafficMachine creates a traffic light that terminates in a final
// state: green -> yellow -> red
func CreateTrafficMachine() *StateMachine {
	machine, err := NewMachine("traffic").
		State("green").Initial().
		To("yellow").On("switch").Done().
		State("yellow").
		To("red").On("switch").Done().
		FinalState("red").
		Build()
	if err != nil {
		panic(err)
	}
	return machine
}

// CreateHierarchicalMachine creates a machine with a composite state and a
// transition grouped on the composite itself
func CreateHierarchicalMachine() *StateMachine {
	machine, err := NewMachine("hierarchical").
		State("offline").Initial().
		To("online").On("connect").Done().
		CompositeState("online", func(b *MachineBuilder) {
			b.State("online.idle").Initial().
				To("online.processing").On("process").Done().
				State("online.processing").
				To("online.idle").On("complete").Done()
		}).
		To("offline").On("disconnect").Done().
		Build()
	if err != nil {
		panic(err)
	}
	return machine
}

// CreateParallelMachine creates a machine with two independent regions
func CreateParallelMachine() *StateMachine {
	machine, err := NewMachine("parallel").
		State("inactive").Initial().
		To("active").On("activate").Done().
		ParallelState("active", func(b *MachineBuilder) {
			b.CompositeState("motor", func(mb *MachineBuilder) {
				mb.State("motor.stopped").Initial().
					To("motor.running").On("start_motor").Done().
					State("motor.running")
			})
			b.CompositeState("lights", func(lb *MachineBuilder) {
				lb.State("lights.off").Initial().
					To("lights.on").On("turn_on_lights").Done().
					State("lights.on")
			})
		}).
		To("inactive").On("deactivate").Done().
		Build()
	if err != nil {
		panic(err)
	}
	return machine
}

// Test assertions and utilities

// AssertActiveLeaf checks that the machine rests in a single expected leaf
func AssertActiveLeaf(t *testing.T, machine *StateMachine, expected string) {
	t.Helper()
	leaves := machine.ActiveLeafNames()
	if len(leaves) != 1 {
		t.Fatalf("Expected a single active leaf, got %v", leaves)
	}
	if leaves[0] != expected {
		t.Errorf("Expected active leaf %s, got %s", expected, leaves[0])
	}
}

// AssertActiveLeaves checks the machine's active leaves as an unordered set
func AssertActiveLeaves(t *testing.T, machine *StateMachine, expected ...string) {
	t.Helper()
	leaves := machine.ActiveLeafNames()
	if len(leaves) != len(expected) {
		t.Fatalf("Expected active leaves %v, got %v", expected, leaves)
	}
	seen := make(map[string]bool, len(leaves))
	for _, leaf := range leaves {
		seen[leaf] = true
	}
	for _, name := range expected {
		if !seen[name] {
			t.Errorf("Expected active leaves %v, got %v", expected, leaves)
			return
		}
	}
}

// AssertEventProcessed checks whether the event fired a transition
func AssertEventProcessed(t *testing.T, result *ProcessingResult, shouldProcess bool) {
	t.Helper()
	if result.Processed != shouldProcess {
		if shouldProcess {
			t.Errorf("Expected event to be processed (ignored: %q)", result.IgnoredReason)
		} else {
			t.Error("Expected event to be ignored")
		}
	}
}

// AssertStateChanged checks a single-region state change in the result
func AssertStateChanged(t *testing.T, result *ProcessingResult, expectedPrevious, expectedCurrent string) {
	t.Helper()
	if !result.StateChanged {
		t.Error("Expected state to change")
	}
	if len(result.PreviousLeaves) != 1 || result.PreviousLeaves[0] != expectedPrevious {
		t.Errorf("Expected previous leaf %s, got %v", expectedPrevious, result.PreviousLeaves)
	}
	if len(result.CurrentLeaves) != 1 || result.CurrentLeaves[0] != expectedCurrent {
		t.Errorf("Expected current leaf %s, got %v", expectedCurrent, result.CurrentLeaves)
	}
}

// AssertListenerCalled checks notification counts on the test listener
func AssertListenerCalled(t *testing.T, listener *TestListener, transitions, enters, exits int) {
	t.Helper()
	if listener.TransitionCount() != transitions {
		t.Errorf("Expected %d transitions, got %d", transitions, listener.TransitionCount())
	}
	if listener.StateEnterCount() != enters {
		t.Errorf("Expected %d state enters, got %d", enters, listener.StateEnterCount())
	}
	if listener.StateExitCount() != exits {
		t.Errorf("Expected %d state exits, got %d", exits, listener.StateExitCount())
	}
}

// AssertSequence checks that the listener saw exactly the given notification
// sequence
func AssertSequence(t *testing.T, listener *TestListener, expected ...string) {
	t.Helper()
	got := listener.SequenceCopy()
	if len(got) != len(expected) {
		t.Fatalf("Expected sequence %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("Expected sequence %v, got %v", expected, got)
		}
	}
}
