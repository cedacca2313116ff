package kstatemachine

import (
	"context"
	"sync"
)

// Context provides access to the event being processed, the transition in
// flight and shared data during guard, resolver, hook and listener execution
type Context interface {
	context.Context

	Machine() *StateMachine
	Event() Event
	Arg() any

	SourceState() State
	TargetState() State

	// TransitionArg is a slot listeners may populate while a transition is
	// firing; it stays visible to the entry notifications of the target.
	TransitionArg() any
	SetTransitionArg(value any)

	Get(key string) (any, bool)
	Set(key string, value any)
	GetAll() map[string]any
}

// machineContext implements the Context interface
type machineContext struct {
	context.Context
	machine       *StateMachine
	event         Event
	arg           any
	sourceState   State
	targetState   State
	transitionArg any

	data  map[string]any
	mutex sync.RWMutex
}

func newMachineContext(parent context.Context, machine *StateMachine) *machineContext {
	return &machineContext{
		Context: parent,
		machine: machine,
		data:    make(map[string]any),
	}
}

// Machine returns the owning state machine
func (ctx *machineContext) Machine() *StateMachine {
	return ctx.machine
}

// Event returns the event currently being processed, or nil outside event
// processing
func (ctx *machineContext) Event() Event {
	return ctx.event
}

// Arg returns the embedder-supplied argument passed with the event
func (ctx *machineContext) Arg() any {
	return ctx.arg
}

// SourceState returns the source of the transition in flight
func (ctx *machineContext) SourceState() State {
	return ctx.sourceState
}

// TargetState returns the resolved target of the transition in flight
func (ctx *machineContext) TargetState() State {
	return ctx.targetState
}

// TransitionArg returns the value set by listeners during firing
func (ctx *machineContext) TransitionArg() any {
	return ctx.transitionArg
}

// SetTransitionArg stores a value visible to later notifications of the same
// transition
func (ctx *machineContext) SetTransitionArg(value any) {
	ctx.transitionArg = value
}

// Get retrieves a value from the shared data map
func (ctx *machineContext) Get(key string) (any, bool) {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	value, exists := ctx.data[key]
	return value, exists
}

// Set stores a value in the shared data map
func (ctx *machineContext) Set(key string, value any) {
	ctx.mutex.Lock()
	defer ctx.mutex.Unlock()
	ctx.data[key] = value
}

// GetAll returns a copy of the shared data map
func (ctx *machineContext) GetAll() map[string]any {
	ctx.mutex.RLock()
	defer ctx.mutex.RUnlock()
	result := make(map[string]any, len(ctx.data))
	for k, v := range ctx.data {
		result[k] = v
	}
	return result
}

func (ctx *machineContext) beginEvent(event Event, arg any) {
	ctx.event = event
	ctx.arg = arg
	ctx.sourceState = nil
	ctx.targetState = nil
	ctx.transitionArg = nil
}

func (ctx *machineContext) beginTransition(source, target State) {
	ctx.sourceState = source
	ctx.targetState = target
	ctx.transitionArg = nil
}
