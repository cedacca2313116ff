package kstatemachine

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is a declarative machine description, typically loaded from
// YAML. Behavior (guards, resolvers, hooks) is referenced by name and bound
// at materialization time.
type Definition struct {
	Name     string     `yaml:"name"`
	RootMode string     `yaml:"rootMode,omitempty"`
	States   []StateDef `yaml:"states"`
}

// StateDef describes one state node
type StateDef struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind,omitempty"`
	Initial     bool            `yaml:"initial,omitempty"`
	OnEntry     string          `yaml:"onEntry,omitempty"`
	OnExit      string          `yaml:"onExit,omitempty"`
	States      []StateDef      `yaml:"states,omitempty"`
	Transitions []TransitionDef `yaml:"transitions,omitempty"`
}

// TransitionDef describes one outgoing transition
type TransitionDef struct {
	On       string `yaml:"on"`
	Exact    bool   `yaml:"exact,omitempty"`
	To       string `yaml:"to,omitempty"`
	Stay     bool   `yaml:"stay,omitempty"`
	Guard    string `yaml:"guard,omitempty"`
	Resolver string `yaml:"resolver,omitempty"`
	Name     string `yaml:"name,omitempty"`
}

// Bindings maps the behavior names referenced by a Definition to functions
type Bindings struct {
	Guards     map[string]GuardFunc
	Resolvers  map[string]ResolverFunc
	EntryHooks map[string]ActionFunc
	ExitHooks  map[string]ActionFunc
}

// LoadDefinition parses a YAML machine description
func LoadDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, NewConfigurationError("Definition", fmt.Sprintf("invalid YAML: %v", err))
	}
	if def.Name == "" {
		return nil, NewConfigurationError("Definition", "machine has no name")
	}
	if len(def.States) == 0 {
		return nil, NewConfigurationError("Definition", "machine has no states")
	}
	return &def, nil
}

// Materialize builds a runnable machine from the definition, resolving named
// guards, resolvers and hooks through the bindings
func (d *Definition) Materialize(bindings Bindings, opts ...MachineOption) (*StateMachine, error) {
	if d.RootMode == "parallel" {
		opts = append(opts, WithRootChildMode(Parallel))
	} else if d.RootMode != "" && d.RootMode != "sequential" {
		return nil, NewConfigurationError("Definition", fmt.Sprintf("unknown root mode '%s'", d.RootMode))
	}

	m := NewStateMachine(d.Name, opts...)
	byName := make(map[string]State)

	if err := buildStates(m, nil, d.States, bindings, byName); err != nil {
		return nil, err
	}
	if err := buildTransitions(m, d.States, bindings, byName); err != nil {
		return nil, err
	}
	return m, nil
}

func buildStates(m *StateMachine, parent State, defs []StateDef, bindings Bindings, byName map[string]State) error {
	for _, def := range defs {
		if def.Name == "" {
			return NewConfigurationError("Definition", "state has no name")
		}
		if _, exists := byName[def.Name]; exists {
			return NewConfigurationError("Definition", fmt.Sprintf("duplicate state name '%s'", def.Name))
		}

		s, err := newStateForDef(def)
		if err != nil {
			return err
		}
		if def.OnEntry != "" {
			hook, ok := bindings.EntryHooks[def.OnEntry]
			if !ok {
				return NewConfigurationError("Definition", fmt.Sprintf("unbound entry hook '%s' on state '%s'", def.OnEntry, def.Name))
			}
			s.base().WithEntryHook(hook)
		}
		if def.OnExit != "" {
			hook, ok := bindings.ExitHooks[def.OnExit]
			if !ok {
				return NewConfigurationError("Definition", fmt.Sprintf("unbound exit hook '%s' on state '%s'", def.OnExit, def.Name))
			}
			s.base().WithExitHook(hook)
		}

		if err := m.AddState(parent, s); err != nil {
			return err
		}
		byName[def.Name] = s
		if def.Initial {
			if err := m.SetInitialState(parent, s); err != nil {
				return err
			}
		}
		if len(def.States) > 0 {
			if err := buildStates(m, s, def.States, bindings, byName); err != nil {
				return err
			}
		}
	}
	return nil
}

func newStateForDef(def StateDef) (State, error) {
	kind := def.Kind
	if kind == "" {
		if len(def.States) > 0 {
			kind = "composite"
		} else {
			kind = "state"
		}
	}
	switch kind {
	case "state":
		if len(def.States) > 0 {
			return nil, NewConfigurationError("Definition", fmt.Sprintf("leaf state '%s' declares children", def.Name))
		}
		return NewSimpleState(def.Name), nil
	case "final":
		if len(def.States) > 0 || len(def.Transitions) > 0 {
			return nil, NewConfigurationError("Definition", fmt.Sprintf("final state '%s' declares children or transitions", def.Name))
		}
		return NewFinalState(def.Name), nil
	case "composite":
		return NewCompositeState(def.Name), nil
	case "parallel":
		return NewParallelState(def.Name), nil
	}
	return nil, NewConfigurationError("Definition", fmt.Sprintf("unknown state kind '%s' on state '%s'", kind, def.Name))
}

func buildTransitions(m *StateMachine, defs []StateDef, bindings Bindings, byName map[string]State) error {
	for _, def := range defs {
		source := byName[def.Name]
		for _, td := range def.Transitions {
			t, err := newTransitionForDef(m, source, td, bindings, byName)
			if err != nil {
				return err
			}
			if err := m.AddTransition(t); err != nil {
				return err
			}
		}
		if len(def.States) > 0 {
			if err := buildTransitions(m, def.States, bindings, byName); err != nil {
				return err
			}
		}
	}
	return nil
}

func newTransitionForDef(m *StateMachine, source State, td TransitionDef, bindings Bindings, byName map[string]State) (*Transition, error) {
	if td.On == "" {
		return nil, NewConfigurationError("Definition",
			fmt.Sprintf("transition from '%s' declares no event kind", describeState(source)))
	}
	var matcher EventMatcher
	if td.Exact {
		matcher = MatchExactKind(td.On)
	} else {
		matcher = m.defaultMatcher(td.On)
	}

	var t *Transition
	switch {
	case td.Stay:
		if td.To != "" || td.Resolver != "" {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("stay transition from '%s' also declares a target", describeState(source)))
		}
		t = NewStayTransition(source, matcher)
	case td.Resolver != "":
		resolver, ok := bindings.Resolvers[td.Resolver]
		if !ok {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("unbound resolver '%s' on transition from '%s'", td.Resolver, describeState(source)))
		}
		t = NewDynamicTransition(source, matcher, resolver)
	case td.To != "":
		target, ok := byName[td.To]
		if !ok {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("transition from '%s' targets unknown state '%s'", describeState(source), td.To))
		}
		t = NewTransition(source, matcher, target)
	default:
		return nil, NewConfigurationError("Definition",
			fmt.Sprintf("transition from '%s' on '%s' has no target, resolver or stay marker", describeState(source), td.On))
	}

	if td.Guard != "" {
		guard, ok := bindings.Guards[td.Guard]
		if !ok {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("unbound guard '%s' on transition from '%s'", td.Guard, describeState(source)))
		}
		t.WithGuard(guard)
	}
	if td.Name != "" {
		t.WithName(td.Name)
	}
	return t, nil
}
