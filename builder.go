package kstatemachine

import (
	"fmt"
	"reflect"
)

// MachineBuilder provides a fluent interface for declaring a state machine.
// States may reference transition targets declared later; all names are
// resolved when Build is called.
type MachineBuilder struct {
	name   string
	opts   []MachineOption
	parent State
	shared *builderShared
}

// builderShared holds the declaration lists shared between the top-level
// builder and the nested scopes created for composite and parallel states
type builderShared struct {
	stateDecls      []stateDecl
	initialDecls    []initialDecl
	transitionDecls []*transitionDecl
	statesByName    map[string]State
	errs            []error
}

type stateDecl struct {
	parent State
	state  State
}

type initialDecl struct {
	parent State
	child  State
}

type transitionDecl struct {
	source   State
	target   string
	kind     string
	exact    bool
	stay     bool
	resolver ResolverFunc
	guard    GuardFunc
	name     string
	dataType reflect.Type
}

// NewMachine starts declaring a machine with the given name
func NewMachine(name string, opts ...MachineOption) *MachineBuilder {
	return &MachineBuilder{
		name: name,
		opts: opts,
		shared: &builderShared{
			statesByName: make(map[string]State),
		},
	}
}

func (b *MachineBuilder) fail(format string, args ...any) {
	b.shared.errs = append(b.shared.errs, NewConfigurationError("Builder", fmt.Sprintf(format, args...)))
}

func (b *MachineBuilder) declare(s State) *StateBuilder {
	name := s.Name()
	if name == "" {
		b.fail("states declared through the builder must be named")
	} else if _, exists := b.shared.statesByName[name]; exists {
		b.fail("duplicate state name '%s'", name)
	} else {
		b.shared.statesByName[name] = s
	}
	b.shared.stateDecls = append(b.shared.stateDecls, stateDecl{parent: b.parent, state: s})
	return &StateBuilder{builder: b, state: s}
}

// State declares a leaf state in the current scope
func (b *MachineBuilder) State(name string) *StateBuilder {
	return b.declare(NewSimpleState(name))
}

// FinalState declares a final state in the current scope
func (b *MachineBuilder) FinalState(name string) *StateBuilder {
	return b.declare(NewFinalState(name))
}

// CompositeState declares a sequential composite state; configure runs in a
// nested scope whose states become children of the composite
func (b *MachineBuilder) CompositeState(name string, configure func(*MachineBuilder)) *StateBuilder {
	s := NewCompositeState(name)
	sb := b.declare(s)
	if configure != nil {
		configure(&MachineBuilder{name: b.name, opts: b.opts, parent: s, shared: b.shared})
	}
	return sb
}

// ParallelState declares a parallel state; every state declared in the
// nested scope becomes an independent region
func (b *MachineBuilder) ParallelState(name string, configure func(*MachineBuilder)) *StateBuilder {
	s := NewParallelState(name)
	sb := b.declare(s)
	if configure != nil {
		configure(&MachineBuilder{name: b.name, opts: b.opts, parent: s, shared: b.shared})
	}
	return sb
}

// DataStateOf declares a data-carrying leaf state holding a payload of type D
func DataStateOf[D any](b *MachineBuilder, name string) *StateBuilder {
	return b.declare(NewDataState[D](name))
}

// Build resolves all declarations and assembles the machine
func (b *MachineBuilder) Build() (*StateMachine, error) {
	if len(b.shared.errs) > 0 {
		return nil, b.shared.errs[0]
	}

	m := NewStateMachine(b.name, b.opts...)

	for _, d := range b.shared.stateDecls {
		if err := m.AddState(d.parent, d.state); err != nil {
			return nil, err
		}
	}
	for _, d := range b.shared.initialDecls {
		if err := m.SetInitialState(d.parent, d.child); err != nil {
			return nil, err
		}
	}
	for _, d := range b.shared.transitionDecls {
		t, err := b.materializeTransition(m, *d)
		if err != nil {
			return nil, err
		}
		if err := m.AddTransition(t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (b *MachineBuilder) materializeTransition(m *StateMachine, d transitionDecl) (*Transition, error) {
	if d.kind == "" {
		return nil, NewConfigurationError("Builder",
			fmt.Sprintf("transition from '%s' declares no event kind", describeState(d.source)))
	}
	var matcher EventMatcher
	if d.exact {
		matcher = MatchExactKind(d.kind)
	} else {
		matcher = m.defaultMatcher(d.kind)
	}

	var t *Transition
	switch {
	case d.stay:
		t = NewStayTransition(d.source, matcher)
	case d.resolver != nil:
		t = NewDynamicTransition(d.source, matcher, d.resolver)
	default:
		target, ok := b.shared.statesByName[d.target]
		if !ok {
			return nil, NewConfigurationError("Builder",
				fmt.Sprintf("transition from '%s' targets unknown state '%s'", describeState(d.source), d.target))
		}
		t = NewTransition(d.source, matcher, target)
		t.dataType = d.dataType
	}
	if d.guard != nil {
		t.WithGuard(d.guard)
	}
	if d.name != "" {
		t.WithName(d.name)
	}
	return t, nil
}

// StateBuilder configures a single declared state
type StateBuilder struct {
	builder *MachineBuilder
	state   State
}

// Initial designates this state as the initial child of its scope
func (sb *StateBuilder) Initial() *StateBuilder {
	sb.builder.shared.initialDecls = append(sb.builder.shared.initialDecls,
		initialDecl{parent: sb.builder.parent, child: sb.state})
	return sb
}

// OnEntry sets the entry hook
func (sb *StateBuilder) OnEntry(hook ActionFunc) *StateBuilder {
	sb.state.base().WithEntryHook(hook)
	return sb
}

// OnExit sets the exit hook
func (sb *StateBuilder) OnExit(hook ActionFunc) *StateBuilder {
	sb.state.base().WithExitHook(hook)
	return sb
}

func (sb *StateBuilder) addTransition(d transitionDecl) *TransitionBuilder {
	decl := &d
	sb.builder.shared.transitionDecls = append(sb.builder.shared.transitionDecls, decl)
	return &TransitionBuilder{stateBuilder: sb, decl: decl}
}

// To declares a transition from this state to the named target
func (sb *StateBuilder) To(target string) *TransitionBuilder {
	return sb.addTransition(transitionDecl{source: sb.state, target: target})
}

// Stay declares a transition that fires without leaving this state
func (sb *StateBuilder) Stay() *TransitionBuilder {
	return sb.addTransition(transitionDecl{source: sb.state, stay: true})
}

// Dynamic declares a transition whose target is chosen at firing time by the
// resolver
func (sb *StateBuilder) Dynamic(resolver ResolverFunc) *TransitionBuilder {
	return sb.addTransition(transitionDecl{source: sb.state, resolver: resolver})
}

// ToDataState declares a transition carrying a payload of type D to the named
// data state. The payload kind is checked against the target when the machine
// is built.
func ToDataState[D any](sb *StateBuilder, target string) *TransitionBuilder {
	return sb.addTransition(transitionDecl{
		source:   sb.state,
		target:   target,
		dataType: reflect.TypeOf((*D)(nil)).Elem(),
	})
}

// State declares a sibling state, continuing the fluent chain
func (sb *StateBuilder) State(name string) *StateBuilder {
	return sb.builder.State(name)
}

// FinalState declares a sibling final state
func (sb *StateBuilder) FinalState(name string) *StateBuilder {
	return sb.builder.FinalState(name)
}

// CompositeState declares a sibling composite state
func (sb *StateBuilder) CompositeState(name string, configure func(*MachineBuilder)) *StateBuilder {
	return sb.builder.CompositeState(name, configure)
}

// ParallelState declares a sibling parallel state
func (sb *StateBuilder) ParallelState(name string, configure func(*MachineBuilder)) *StateBuilder {
	return sb.builder.ParallelState(name, configure)
}

// Build assembles the machine
func (sb *StateBuilder) Build() (*StateMachine, error) {
	return sb.builder.Build()
}

// TransitionBuilder configures a single declared transition
type TransitionBuilder struct {
	stateBuilder *StateBuilder
	decl         *transitionDecl
}

// On sets the event kind; subkinds of the declared kind also match
func (tb *TransitionBuilder) On(kind string) *TransitionBuilder {
	tb.decl.kind = kind
	tb.decl.exact = false
	return tb
}

// OnExact sets the event kind with exact matching only
func (tb *TransitionBuilder) OnExact(kind string) *TransitionBuilder {
	tb.decl.kind = kind
	tb.decl.exact = true
	return tb
}

// When sets a guard predicate
func (tb *TransitionBuilder) When(guard GuardFunc) *TransitionBuilder {
	tb.decl.guard = guard
	return tb
}

// Named sets a diagnostic name on the transition
func (tb *TransitionBuilder) Named(name string) *TransitionBuilder {
	tb.decl.name = name
	return tb
}

// Done returns to the source state's builder
func (tb *TransitionBuilder) Done() *StateBuilder {
	return tb.stateBuilder
}

// To declares another transition from the same source state
func (tb *TransitionBuilder) To(target string) *TransitionBuilder {
	return tb.stateBuilder.To(target)
}

// State declares a sibling state, continuing the fluent chain
func (tb *TransitionBuilder) State(name string) *StateBuilder {
	return tb.stateBuilder.State(name)
}

// FinalState declares a sibling final state
func (tb *TransitionBuilder) FinalState(name string) *StateBuilder {
	return tb.stateBuilder.FinalState(name)
}

// CompositeState declares a sibling composite state
func (tb *TransitionBuilder) CompositeState(name string, configure func(*MachineBuilder)) *StateBuilder {
	return tb.stateBuilder.CompositeState(name, configure)
}

// ParallelState declares a sibling parallel state
func (tb *TransitionBuilder) ParallelState(name string, configure func(*MachineBuilder)) *StateBuilder {
	return tb.stateBuilder.ParallelState(name, configure)
}

// Build assembles the machine
func (tb *TransitionBuilder) Build() (*StateMachine, error) {
	return tb.stateBuilder.builder.Build()
}
