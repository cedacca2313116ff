package kstatemachine

import (
	"fmt"
	"reflect"
)

// GuardFunc decides whether a matched transition may fire. It reads the
// current event and argument through the context.
type GuardFunc func(ctx Context) bool

// ResolverFunc computes the direction of a transition at firing time
type ResolverFunc func(ctx Context) Direction

type directionKind int

const (
	directionStay directionKind = iota
	directionTarget
	directionNone
)

// Direction is the outcome of a transition's direction resolver: stay in the
// source state, go to a target state, or decline the transition entirely.
type Direction struct {
	kind   directionKind
	target State
}

// Stay keeps the active state set unchanged; the firing notification still
// runs.
func Stay() Direction {
	return Direction{kind: directionStay}
}

// TargetState directs the transition to the given state
func TargetState(target State) Direction {
	return Direction{kind: directionTarget, target: target}
}

// NoTransition declines the transition; resolution continues as if the
// transition had not matched.
func NoTransition() Direction {
	return Direction{kind: directionNone}
}

// IsStay reports whether the direction keeps the current state
func (d Direction) IsStay() bool {
	return d.kind == directionStay
}

// IsNone reports whether the direction declines the transition
func (d Direction) IsNone() bool {
	return d.kind == directionNone
}

// Target returns the destination state, or nil for stay/none directions
func (d Direction) Target() State {
	return d.target
}

// Transition binds a source state, an event matcher, an optional guard and a
// direction resolver. The static target, when known, is kept for validation
// and diagram export; dynamic transitions carry only a resolver.
type Transition struct {
	name         string
	source       State
	matcher      EventMatcher
	guard        GuardFunc
	resolver     ResolverFunc
	staticTarget State
	targetless   bool
	dataType     reflect.Type
}

// NewTransition creates a transition with a fixed target state
func NewTransition(source State, matcher EventMatcher, target State) *Transition {
	return &Transition{
		source:       source,
		matcher:      matcher,
		staticTarget: target,
		resolver: func(Context) Direction {
			return TargetState(target)
		},
	}
}

// NewStayTransition creates a targetless transition: firing notifications run
// but the active state set never changes
func NewStayTransition(source State, matcher EventMatcher) *Transition {
	return &Transition{
		source:     source,
		matcher:    matcher,
		targetless: true,
		resolver: func(Context) Direction {
			return Stay()
		},
	}
}

// NewDynamicTransition creates a transition whose target is computed at
// firing time by the resolver
func NewDynamicTransition(source State, matcher EventMatcher, resolver ResolverFunc) *Transition {
	return &Transition{
		source:   source,
		matcher:  matcher,
		resolver: resolver,
	}
}

// NewDataTransition creates a transition into a data-carrying state. The
// payload type D is bound at compile time to the target's declared data type;
// the machine re-checks the pairing when the transition is registered.
func NewDataTransition[D any](source State, matcher EventMatcher, target *DataState[D]) *Transition {
	t := NewTransition(source, matcher, target)
	t.dataType = reflect.TypeOf((*D)(nil)).Elem()
	return t
}

// WithGuard sets the guard predicate
func (t *Transition) WithGuard(guard GuardFunc) *Transition {
	t.guard = guard
	return t
}

// WithName sets an optional name used in logs and diagram export
func (t *Transition) WithName(name string) *Transition {
	t.name = name
	return t
}

// Name returns the transition name (may be empty)
func (t *Transition) Name() string {
	return t.name
}

// Source returns the source state
func (t *Transition) Source() State {
	return t.source
}

// Matcher returns the event matcher
func (t *Transition) Matcher() EventMatcher {
	return t.matcher
}

// StaticTarget returns the fixed target state, or nil for dynamic and
// targetless transitions
func (t *Transition) StaticTarget() State {
	return t.staticTarget
}

// IsTargetless reports whether the transition always stays in its source
func (t *Transition) IsTargetless() bool {
	return t.targetless
}

// IsDynamic reports whether the target is computed at firing time
func (t *Transition) IsDynamic() bool {
	return t.staticTarget == nil && !t.targetless
}

func (t *Transition) String() string {
	label := t.name
	if label == "" {
		label = t.matcher.DeclaredKind()
	}
	if t.staticTarget != nil {
		return fmt.Sprintf("%s -> %s on '%s'", describeState(t.source), describeState(t.staticTarget), label)
	}
	return fmt.Sprintf("%s -> <dynamic> on '%s'", describeState(t.source), label)
}
