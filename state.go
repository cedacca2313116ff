package kstatemachine

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// ChildMode determines how the children of a composite state are activated
type ChildMode int

const (
	// Sequential composites activate exactly one child at a time, starting
	// from the designated initial child
	Sequential ChildMode = iota
	// Parallel composites activate all children simultaneously
	Parallel
)

// State represents a node in the hierarchical state tree
type State interface {
	Name() string
	ID() string
	Parent() State
	Children() []State
	ChildMode() ChildMode
	InitialChild() State
	IsActive() bool
	IsFinal() bool

	base() *BaseState
}

// ActionFunc is a hook executed on state entry or exit
type ActionFunc func(ctx Context) error

// BaseState provides the common node machinery shared by all state kinds:
// identity, tree linkage, the active flag and entry/exit hooks. It is embedded
// by the concrete state types and not used directly.
type BaseState struct {
	name      string
	id        string
	parent    State
	children  []State
	childMode ChildMode
	initial   State
	active    bool
	final     bool
	entryHook ActionFunc
	exitHook  ActionFunc
}

func newBaseState(name string, mode ChildMode) BaseState {
	return BaseState{
		name:      name,
		id:        uuid.New().String(),
		childMode: mode,
	}
}

func (s *BaseState) base() *BaseState { return s }

// Name returns the human-readable state name (may be empty)
func (s *BaseState) Name() string {
	return s.name
}

// ID returns the unique instance identifier of the state
func (s *BaseState) ID() string {
	return s.id
}

// Parent returns the owning state, or nil for the root
func (s *BaseState) Parent() State {
	return s.parent
}

// Children returns the ordered child states
func (s *BaseState) Children() []State {
	return s.children
}

// ChildMode returns how children of this state are activated
func (s *BaseState) ChildMode() ChildMode {
	return s.childMode
}

// InitialChild returns the designated initial child, or nil
func (s *BaseState) InitialChild() State {
	return s.initial
}

// IsActive reports whether the state lies on an active path from the root
func (s *BaseState) IsActive() bool {
	return s.active
}

// IsFinal reports whether this is a final state
func (s *BaseState) IsFinal() bool {
	return s.final
}

// WithEntryHook sets a hook executed when the state is entered
func (s *BaseState) WithEntryHook(hook ActionFunc) *BaseState {
	s.entryHook = hook
	return s
}

// WithExitHook sets a hook executed when the state is exited
func (s *BaseState) WithExitHook(hook ActionFunc) *BaseState {
	s.exitHook = hook
	return s
}

// addChild appends a child and wires its parent back-reference. Tree
// structure is frozen once the owning machine starts; the machine enforces
// that at its registration entry points.
func (s *BaseState) addChild(self State, child State) error {
	cb := child.base()
	if cb.parent != nil {
		return NewConfigurationError("State", fmt.Sprintf("state '%s' already has a parent", describeState(child)))
	}
	cb.parent = self
	s.children = append(s.children, child)
	return nil
}

func (s *BaseState) setInitialChild(child State) error {
	if s.childMode == Parallel {
		return NewConfigurationError("State", fmt.Sprintf("parallel state '%s' cannot designate an initial child", s.name))
	}
	found := false
	for _, c := range s.children {
		if c == child {
			found = true
			break
		}
	}
	if !found {
		return NewConfigurationError("State", fmt.Sprintf("'%s' is not a child of '%s'", describeState(child), s.name))
	}
	s.initial = child
	return nil
}

// describeState returns the state name, falling back to the instance ID for
// unnamed states
func describeState(s State) string {
	if s == nil {
		return "<nil>"
	}
	if s.Name() != "" {
		return s.Name()
	}
	return s.ID()
}

// SimpleState is a leaf state with no internal structure
type SimpleState struct {
	BaseState
}

// NewSimpleState creates a new leaf state
func NewSimpleState(name string) *SimpleState {
	return &SimpleState{BaseState: newBaseState(name, Sequential)}
}

// CompositeState is a hierarchical state whose children activate one at a
// time, starting from the designated initial child
type CompositeState struct {
	BaseState
}

// NewCompositeState creates a new sequential composite state
func NewCompositeState(name string) *CompositeState {
	return &CompositeState{BaseState: newBaseState(name, Sequential)}
}

// AddChild adds a child state
func (s *CompositeState) AddChild(child State) error {
	return s.addChild(s, child)
}

// SetInitialChild designates the child entered by default
func (s *CompositeState) SetInitialChild(child State) error {
	return s.setInitialChild(child)
}

// ParallelState is a composite state whose children are independent regions,
// all active simultaneously while the state is active
type ParallelState struct {
	BaseState
}

// NewParallelState creates a new parallel state
func NewParallelState(name string) *ParallelState {
	return &ParallelState{BaseState: newBaseState(name, Parallel)}
}

// AddChild adds a region subtree
func (s *ParallelState) AddChild(child State) error {
	return s.addChild(s, child)
}

// FinalState is a leaf state that may carry no outgoing transitions.
// Activating a top-level final state finishes the owning machine.
type FinalState struct {
	BaseState
}

// NewFinalState creates a new final state
func NewFinalState(name string) *FinalState {
	fs := &FinalState{BaseState: newBaseState(name, Sequential)}
	fs.final = true
	return fs
}

// dataCarrier is the untyped view of a data state used by the sequencer
type dataCarrier interface {
	DataType() reflect.Type
	bindData(value any) error
	clearData()
}

// DataState is a leaf state holding a payload of type D while active. The
// payload is supplied by a compatible data-carrying event on entry and
// cleared on exit.
type DataState[D any] struct {
	BaseState
	data    D
	hasData bool
}

// NewDataState creates a new data-carrying state
func NewDataState[D any](name string) *DataState[D] {
	return &DataState[D]{BaseState: newBaseState(name, Sequential)}
}

// Data returns the current payload and whether the slot is populated
func (s *DataState[D]) Data() (D, bool) {
	return s.data, s.hasData
}

// MustData returns the current payload, panicking if the state is not active
func (s *DataState[D]) MustData() D {
	if !s.hasData {
		panic(fmt.Sprintf("data state '%s' has no data (state inactive)", describeState(s)))
	}
	return s.data
}

// DataType returns the declared payload type
func (s *DataState[D]) DataType() reflect.Type {
	return reflect.TypeOf((*D)(nil)).Elem()
}

func (s *DataState[D]) bindData(value any) error {
	typed, ok := value.(D)
	if !ok {
		return NewDataBindingError(describeState(s), fmt.Sprintf("payload type %T is not assignable to declared type %s", value, s.DataType()))
	}
	s.data = typed
	s.hasData = true
	return nil
}

func (s *DataState[D]) clearData() {
	var zero D
	s.data = zero
	s.hasData = false
}

// isDescendantOf reports whether s lies strictly below ancestor in the tree
func isDescendantOf(s, ancestor State) bool {
	if s == nil || ancestor == nil {
		return false
	}
	for p := s.Parent(); p != nil; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

// ancestorChain returns the path root-first from the tree root down to s,
// inclusive
func ancestorChain(s State) []State {
	var chain []State
	for n := s; n != nil; n = n.Parent() {
		chain = append([]State{n}, chain...)
	}
	return chain
}

// findCommonAncestor computes the least common ancestor of two states. For
// identical states it returns the state's parent so that a self-targeting
// transition exits and re-enters its source.
func findCommonAncestor(a, b State) State {
	if a == b {
		return a.Parent()
	}

	chainA := ancestorChain(a)
	chainB := ancestorChain(b)

	var lca State
	minLen := len(chainA)
	if len(chainB) < minLen {
		minLen = len(chainB)
	}
	for i := 0; i < minLen; i++ {
		if chainA[i] == chainB[i] {
			lca = chainA[i]
		} else {
			break
		}
	}
	return lca
}
