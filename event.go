package kstatemachine

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a trigger for transitions in the state machine. Events are
// identified by a kind: a dot-separated name where "error.timeout" is a
// subkind of "error". Matchers decide how strictly kinds are compared.
type Event interface {
	Kind() string
	ID() string
	Timestamp() time.Time
}

// DataCarryingEvent is an event that carries a typed payload, used to
// populate data states on entry.
type DataCarryingEvent interface {
	Event
	Payload() any
	PayloadType() reflect.Type
}

// BaseEvent provides a basic implementation of the Event interface
type BaseEvent struct {
	kind      string
	id        string
	timestamp time.Time
}

// NewEvent creates a new plain event of the given kind
func NewEvent(kind string) *BaseEvent {
	return &BaseEvent{
		kind:      kind,
		id:        uuid.New().String(),
		timestamp: time.Now(),
	}
}

// Kind returns the event kind
func (e *BaseEvent) Kind() string {
	return e.kind
}

// ID returns the unique event instance identifier
func (e *BaseEvent) ID() string {
	return e.id
}

// Timestamp returns the event creation time
func (e *BaseEvent) Timestamp() time.Time {
	return e.timestamp
}

// DataEvent is an event carrying a payload of type D
type DataEvent[D any] struct {
	BaseEvent
	data D
}

// NewDataEvent creates a new data-carrying event of the given kind
func NewDataEvent[D any](kind string, data D) *DataEvent[D] {
	return &DataEvent[D]{
		BaseEvent: *NewEvent(kind),
		data:      data,
	}
}

// Data returns the typed payload
func (e *DataEvent[D]) Data() D {
	return e.data
}

// Payload returns the payload as an untyped value
func (e *DataEvent[D]) Payload() any {
	return e.data
}

// PayloadType returns the static type of the payload
func (e *DataEvent[D]) PayloadType() reflect.Type {
	return reflect.TypeOf((*D)(nil)).Elem()
}

// EventMatcher decides whether an incoming event is compatible with a
// transition's declared event kind
type EventMatcher interface {
	Matches(event Event) bool
	DeclaredKind() string
}

// MatcherFunc adapts a plain function to the EventMatcher interface
type MatcherFunc func(event Event) bool

// Matches implements EventMatcher
func (f MatcherFunc) Matches(event Event) bool {
	return f(event)
}

// DeclaredKind returns an empty kind for function matchers
func (f MatcherFunc) DeclaredKind() string {
	return ""
}

type kindMatcher struct {
	kind  string
	exact bool
}

// MatchExactKind returns a matcher that accepts only events of exactly the
// declared kind
func MatchExactKind(kind string) EventMatcher {
	return &kindMatcher{kind: kind, exact: true}
}

// MatchKindOrSubkind returns a matcher that accepts the declared kind and any
// more specific subkind ("error" matches "error" and "error.timeout"). This is
// the default matching policy.
func MatchKindOrSubkind(kind string) EventMatcher {
	return &kindMatcher{kind: kind}
}

// Matches implements EventMatcher
func (m *kindMatcher) Matches(event Event) bool {
	if event.Kind() == m.kind {
		return true
	}
	if m.exact {
		return false
	}
	return strings.HasPrefix(event.Kind(), m.kind+".")
}

// DeclaredKind returns the kind this matcher was declared with
func (m *kindMatcher) DeclaredKind() string {
	return m.kind
}

// MatcherFactory builds a matcher for a declared event kind. It is the
// machine-level knob selecting the default matching policy.
type MatcherFactory func(kind string) EventMatcher

// ProcessingResult represents the outcome of processing a single event
type ProcessingResult struct {
	Processed      bool
	StateChanged   bool
	PreviousLeaves []string
	CurrentLeaves  []string
	Error          error
	IgnoredReason  string
}

func newProcessingResult(processed, stateChanged bool, previous, current []string) *ProcessingResult {
	return &ProcessingResult{
		Processed:      processed,
		StateChanged:   stateChanged,
		PreviousLeaves: previous,
		CurrentLeaves:  current,
	}
}

// WithError attaches an error to the result
func (r *ProcessingResult) WithError(err error) *ProcessingResult {
	r.Error = err
	return r
}

// WithIgnored marks the result as ignored with a reason
func (r *ProcessingResult) WithIgnored(reason string) *ProcessingResult {
	r.IgnoredReason = reason
	r.Processed = false
	return r
}

// Success returns true if the event was processed without error
func (r *ProcessingResult) Success() bool {
	return r.Processed && r.Error == nil
}
