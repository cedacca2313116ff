package kstatemachine

import (
	"context"
	"fmt"
)

// MachineStatus represents the lifecycle state of the machine
type MachineStatus int

const (
	// Machine has been configured but not started
	StatusNotStarted MachineStatus = iota
	// Machine is running and processing events
	StatusRunning
	// Machine was stopped explicitly and processes no events until restarted
	StatusStopped
	// A top-level final state was entered; events are reported, not processed
	StatusFinished
)

// LoggerFunc is the machine's logging sink. A nil sink disables logging.
type LoggerFunc func(message string)

type pendingEvent struct {
	event Event
	arg   any
}

// StateMachine is the root of a state tree and the single entry point for
// event processing. It is strictly single-threaded: no operation may be
// invoked concurrently from multiple goroutines without external
// synchronization, and the reentrancy flag only detects same-goroutine
// reentrancy from within listener callbacks.
type StateMachine struct {
	name string
	root *CompositeState

	statesByID   map[string]State
	statesByName map[string]State
	stateOrder   []State

	transitions     map[string][]*Transition
	transitionOrder []*Transition

	listeners *listenerManager
	status    MachineStatus
	frozen    bool

	processing   bool
	pendingQueue []pendingEvent

	pendingPolicy  PendingEventPolicy
	ignoredPolicy  IgnoredEventPolicy
	defaultMatcher MatcherFactory
	logger         LoggerFunc

	ctx *machineContext
}

// MachineOption is a functional option for configuring a StateMachine
type MachineOption func(*StateMachine)

// WithRootChildMode sets the activation mode of the machine's top-level
// states; Parallel makes every top-level subtree an independent region
func WithRootChildMode(mode ChildMode) MachineOption {
	return func(m *StateMachine) {
		m.root.childMode = mode
	}
}

// WithLogger sets the logging sink
func WithLogger(logger LoggerFunc) MachineOption {
	return func(m *StateMachine) {
		m.logger = logger
	}
}

// WithPendingEventPolicy overrides the policy applied to reentrant
// ProcessEvent calls
func WithPendingEventPolicy(policy PendingEventPolicy) MachineOption {
	return func(m *StateMachine) {
		m.pendingPolicy = policy
	}
}

// WithIgnoredEventPolicy overrides the policy applied to unmatched events
func WithIgnoredEventPolicy(policy IgnoredEventPolicy) MachineOption {
	return func(m *StateMachine) {
		m.ignoredPolicy = policy
	}
}

// WithDefaultMatcher overrides the default event matching policy used by the
// builder and the declarative definition loader
func WithDefaultMatcher(factory MatcherFactory) MachineOption {
	return func(m *StateMachine) {
		m.defaultMatcher = factory
	}
}

// NewStateMachine creates a new, empty state machine
func NewStateMachine(name string, opts ...MachineOption) *StateMachine {
	m := &StateMachine{
		name:           name,
		root:           NewCompositeState(name),
		statesByID:     make(map[string]State),
		statesByName:   make(map[string]State),
		transitions:    make(map[string][]*Transition),
		listeners:      newListenerManager(),
		pendingPolicy:  ThrowingPendingEventPolicy{},
		ignoredPolicy:  silentIgnoredEventPolicy{},
		defaultMatcher: MatchKindOrSubkind,
	}
	m.statesByID[m.root.id] = m.root

	for _, opt := range opts {
		opt(m)
	}

	m.listeners.logf = m.logf
	m.ctx = newMachineContext(context.Background(), m)
	return m
}

// Name returns the machine name
func (m *StateMachine) Name() string {
	return m.name
}

// Root returns the root node of the state tree
func (m *StateMachine) Root() State {
	return m.root
}

// Status returns the current lifecycle status
func (m *StateMachine) Status() MachineStatus {
	return m.status
}

// IsRunning reports whether the machine processes events
func (m *StateMachine) IsRunning() bool {
	return m.status == StatusRunning
}

// IsFinished reports whether a top-level final state has been entered
func (m *StateMachine) IsFinished() bool {
	return m.status == StatusFinished
}

// Context returns the machine's execution context
func (m *StateMachine) Context() Context {
	return m.ctx
}

func (m *StateMachine) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger(fmt.Sprintf(format, args...))
	}
}

// safeEvaluateGuard evaluates a guard with panic recovery
func safeEvaluateGuard(guard GuardFunc, ctx Context) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			err = fmt.Errorf("guard panic: %v", r)
		}
	}()

	result = guard(ctx)
	return result, nil
}

// safeResolveDirection runs a direction resolver with panic recovery
func safeResolveDirection(resolver ResolverFunc, ctx Context) (direction Direction, err error) {
	defer func() {
		if r := recover(); r != nil {
			direction = NoTransition()
			err = fmt.Errorf("resolver panic: %v", r)
		}
	}()

	direction = resolver(ctx)
	return direction, nil
}

// safeExecuteHook runs an entry/exit hook with panic recovery
func safeExecuteHook(hook ActionFunc, ctx Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()

	err = hook(ctx)
	return err
}

// SetLogger replaces the logging sink; a nil sink disables logging
func (m *StateMachine) SetLogger(logger LoggerFunc) {
	m.logger = logger
}

// SetPendingEventPolicy replaces the policy applied to reentrant
// ProcessEvent calls
func (m *StateMachine) SetPendingEventPolicy(policy PendingEventPolicy) {
	m.pendingPolicy = policy
}

// SetIgnoredEventPolicy replaces the policy applied to unmatched events
func (m *StateMachine) SetIgnoredEventPolicy(policy IgnoredEventPolicy) {
	m.ignoredPolicy = policy
}

// SetDefaultMatcher replaces the default event matching policy. It affects
// matchers created after the call; already-registered transitions keep
// theirs.
func (m *StateMachine) SetDefaultMatcher(factory MatcherFactory) {
	m.defaultMatcher = factory
}

// --------------------------------------------------------------------------
// Structure registration (builder contract; frozen once the machine starts)
// --------------------------------------------------------------------------

// AddState attaches child to parent; a nil parent attaches to the machine
// root. Non-empty state names must be unique within the machine.
func (m *StateMachine) AddState(parent State, child State) error {
	if m.frozen {
		return NewUsageError(ErrCodeStructureFrozen, "AddState", "state tree is frozen after start")
	}
	if parent == nil {
		parent = m.root
	}
	pb := parent.base()
	if _, ok := m.statesByID[pb.id]; !ok {
		return NewStateNotFoundError(describeState(parent))
	}
	if parent.IsFinal() {
		return NewConfigurationError("State", fmt.Sprintf("final state '%s' cannot own children", describeState(parent)))
	}
	cb := child.base()
	if _, ok := m.statesByID[cb.id]; ok {
		return NewConfigurationError("State", fmt.Sprintf("state '%s' is already registered", describeState(child)))
	}
	if child.Name() != "" {
		if _, ok := m.statesByName[child.Name()]; ok {
			return NewConfigurationError("State", fmt.Sprintf("duplicate state name '%s'", child.Name()))
		}
	}
	if err := pb.addChild(parent, child); err != nil {
		return err
	}
	m.statesByID[cb.id] = child
	if child.Name() != "" {
		m.statesByName[child.Name()] = child
	}
	m.stateOrder = append(m.stateOrder, child)
	return nil
}

// SetInitialState designates the child entered by default when parent is
// entered without a deeper explicit target; a nil parent designates the
// machine's top-level initial state
func (m *StateMachine) SetInitialState(parent State, child State) error {
	if m.frozen {
		return NewUsageError(ErrCodeStructureFrozen, "SetInitialState", "state tree is frozen after start")
	}
	if parent == nil {
		parent = m.root
	}
	return parent.base().setInitialChild(child)
}

// AddTransition registers a transition. Data-kind pairing between the
// transition and a data-carrying static target is validated here.
func (m *StateMachine) AddTransition(t *Transition) error {
	if m.frozen {
		return NewUsageError(ErrCodeStructureFrozen, "AddTransition", "transitions are frozen after start")
	}
	if t.source == nil {
		return NewConfigurationError("Transition", "transition has no source state")
	}
	sb := t.source.base()
	if _, ok := m.statesByID[sb.id]; !ok {
		return NewStateNotFoundError(describeState(t.source))
	}
	if t.source.IsFinal() {
		return NewConfigurationError("Transition", fmt.Sprintf("final state '%s' cannot have outgoing transitions", describeState(t.source)))
	}
	if t.matcher == nil {
		return NewConfigurationError("Transition", "transition has no event matcher")
	}
	if t.staticTarget != nil {
		tb := t.staticTarget.base()
		if _, ok := m.statesByID[tb.id]; !ok {
			return NewStateNotFoundError(describeState(t.staticTarget))
		}
		if dc, ok := t.staticTarget.(dataCarrier); ok {
			if t.dataType != nil && t.dataType != dc.DataType() {
				return NewConfigurationError("Transition", fmt.Sprintf(
					"declared data kind %s does not match target '%s' data kind %s",
					t.dataType, describeState(t.staticTarget), dc.DataType()))
			}
		} else if t.dataType != nil {
			return NewConfigurationError("Transition", fmt.Sprintf(
				"transition declares data kind %s but target '%s' is not data-carrying",
				t.dataType, describeState(t.staticTarget)))
		}
	}
	m.transitions[sb.id] = append(m.transitions[sb.id], t)
	m.transitionOrder = append(m.transitionOrder, t)
	return nil
}

// AllStates returns every registered state in registration order, excluding
// the root
func (m *StateMachine) AllStates() []State {
	states := make([]State, len(m.stateOrder))
	copy(states, m.stateOrder)
	return states
}

// StateByName looks up a state by its unique name
func (m *StateMachine) StateByName(name string) (State, bool) {
	s, ok := m.statesByName[name]
	return s, ok
}

// TransitionsFrom returns the transitions registered on the given source
// state, in registration order
func (m *StateMachine) TransitionsFrom(source State) []*Transition {
	ts := m.transitions[source.base().id]
	out := make([]*Transition, len(ts))
	copy(out, ts)
	return out
}

// AllTransitions returns every registered transition in registration order
func (m *StateMachine) AllTransitions() []*Transition {
	out := make([]*Transition, len(m.transitionOrder))
	copy(out, m.transitionOrder)
	return out
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Start freezes the state tree and drives the initial entry sequence from
// the root into its designated initial leaf or leaves
func (m *StateMachine) Start() error {
	if m.status == StatusRunning {
		return NewUsageError(ErrCodeAlreadyStarted, "Start", "machine is already started")
	}

	if err := m.validate(); err != nil {
		return err
	}

	m.frozen = true
	m.status = StatusRunning
	m.ctx.beginEvent(nil, nil)
	m.root.active = true

	if err := m.descendDefaults(m.root); err != nil {
		m.deactivateAll()
		m.status = StatusNotStarted
		m.frozen = false
		return err
	}

	m.logf("machine '%s' started", m.name)
	m.listeners.notifyStarted(m.ctx)
	m.checkFinished()
	return nil
}

// Stop exits all active states and halts event processing until the machine
// is started again
func (m *StateMachine) Stop() error {
	if m.status != StatusRunning && m.status != StatusFinished {
		return NewNotStartedError("Stop")
	}

	m.ctx.beginEvent(nil, nil)
	m.exitActiveChildren(m.root)
	m.root.active = false

	m.status = StatusStopped
	m.logf("machine '%s' stopped", m.name)
	m.listeners.notifyStopped(m.ctx)
	return nil
}

// validate checks the frozen structure before the first entry sequence
func (m *StateMachine) validate() error {
	if len(m.root.children) == 0 {
		return NewConfigurationError("StateMachine", "no states defined")
	}
	for _, s := range append([]State{m.root}, m.stateOrder...) {
		b := s.base()
		if len(b.children) > 0 && b.childMode == Sequential && b.initial == nil {
			return NewConfigurationError("StateMachine",
				fmt.Sprintf("composite state '%s' has no designated initial child", describeState(s)))
		}
	}
	return nil
}

// deactivateAll silently clears every active flag and data slot; used to
// unwind a failed start
func (m *StateMachine) deactivateAll() {
	for _, s := range m.stateOrder {
		s.base().active = false
		if dc, ok := s.(dataCarrier); ok {
			dc.clearData()
		}
	}
	m.root.active = false
}

// RestartFromState seeds a known active state directly, bypassing the normal
// start-from-root sequence. Intended for test harnesses; entry notifications
// still run so listeners observe a consistent picture.
func (m *StateMachine) RestartFromState(target State) error {
	if m.processing {
		return NewUsageError(ErrCodeUsage, "RestartFromState", "cannot restart while an event is being processed")
	}
	tb := target.base()
	if _, ok := m.statesByID[tb.id]; !ok {
		return NewStateNotFoundError(describeState(target))
	}
	if err := m.validate(); err != nil {
		return err
	}

	m.deactivateAll()
	m.frozen = true
	m.status = StatusRunning
	m.ctx.beginEvent(nil, nil)
	m.root.active = true

	chain := ancestorChain(target)
	for _, s := range chain {
		if s == State(m.root) {
			continue
		}
		if err := m.enterState(s); err != nil {
			return err
		}
	}
	if err := m.descendDefaults(target); err != nil {
		return err
	}

	// Ancestors under parallel parents imply their sibling regions.
	for _, s := range chain {
		parent := s.Parent()
		if parent == nil || parent.ChildMode() != Parallel {
			continue
		}
		for _, sibling := range parent.Children() {
			if !sibling.IsActive() {
				if err := m.enterTree(sibling); err != nil {
					return err
				}
			}
		}
	}

	m.logf("machine '%s' restarted from state '%s'", m.name, describeState(target))
	m.checkFinished()
	return nil
}

// --------------------------------------------------------------------------
// Event processing core
// --------------------------------------------------------------------------

// ProcessEvent submits one event with an optional embedder argument. Exactly
// one call may be in flight at a time; reentrant calls are routed to the
// pending-event policy. The machine must have been started.
func (m *StateMachine) ProcessEvent(event Event, arg any) (*ProcessingResult, error) {
	if m.status == StatusNotStarted || m.status == StatusStopped {
		err := NewNotStartedError("ProcessEvent")
		return newProcessingResult(false, false, nil, nil).WithError(err), err
	}

	if m.processing {
		leaves := m.ActiveLeafNames()
		if err := m.pendingPolicy.OnPendingEvent(m, event, arg); err != nil {
			return newProcessingResult(false, false, leaves, leaves).WithError(err), err
		}
		return newProcessingResult(false, false, leaves, leaves).WithIgnored("deferred by pending-event policy"), nil
	}

	result, err := m.processSingle(event, arg)
	m.drainPending()
	return result, err
}

// enqueuePending stores a reentrant event for processing after the in-flight
// call completes; used by QueuePendingEventPolicy
func (m *StateMachine) enqueuePending(event Event, arg any) {
	m.pendingQueue = append(m.pendingQueue, pendingEvent{event: event, arg: arg})
}

func (m *StateMachine) drainPending() {
	for len(m.pendingQueue) > 0 {
		if m.status != StatusRunning && m.status != StatusFinished {
			m.pendingQueue = nil
			return
		}
		next := m.pendingQueue[0]
		m.pendingQueue = m.pendingQueue[1:]
		if _, err := m.processSingle(next.event, next.arg); err != nil {
			m.logf("pending event '%s' failed: %v", next.event.Kind(), err)
		}
	}
}

// processSingle runs the full resolution and sequencing pipeline for one
// event. The reentrancy flag is cleared unconditionally on return so a
// sequencing failure can never wedge the machine.
func (m *StateMachine) processSingle(event Event, arg any) (*ProcessingResult, error) {
	m.processing = true
	defer func() {
		m.processing = false
	}()

	previous := m.ActiveLeafNames()
	m.ctx.beginEvent(event, arg)

	if m.status == StatusFinished {
		m.reportIgnored(event, arg)
		return newProcessingResult(false, false, previous, previous).WithIgnored("machine is finished"), nil
	}

	leaves := m.activeLeaves()
	fired := make(map[*Transition]bool)
	anyFired := false
	stateChanged := false

	for _, leaf := range leaves {
		if !leaf.IsActive() {
			// Deactivated by a transition fired for an earlier leaf of the
			// same event.
			continue
		}
		match := m.resolveTransition(leaf, event, fired)
		if match == nil {
			continue
		}
		fired[match.transition] = true
		anyFired = true

		source := match.transition.source
		if match.direction.IsStay() {
			m.ctx.beginTransition(source, source)
			m.logf("transition stayed in '%s' on event '%s'", describeState(source), event.Kind())
			m.listeners.notifyTransition(source, source, m.ctx)
			continue
		}

		target := match.direction.Target()
		if err := m.performTransition(match.transition, target); err != nil {
			return newProcessingResult(true, true, previous, m.ActiveLeafNames()).WithError(err), err
		}
		stateChanged = true

		if m.status == StatusFinished {
			break
		}
	}

	if !anyFired {
		m.reportIgnored(event, arg)
		return newProcessingResult(false, false, previous, previous).WithIgnored("no matching transition"), nil
	}
	return newProcessingResult(true, stateChanged, previous, m.ActiveLeafNames()), nil
}

func (m *StateMachine) reportIgnored(event Event, arg any) {
	m.ignoredPolicy.OnIgnoredEvent(m, event, arg)
	m.listeners.notifyEventIgnored(event, m.ctx)
}

type resolvedTransition struct {
	transition *Transition
	direction  Direction
}

// resolveTransition walks from leaf up to the root and returns the first
// matching, guard-satisfying transition with a non-declining direction.
// Transitions defined nearer the leaf shadow ancestor transitions for the
// same event.
func (m *StateMachine) resolveTransition(leaf State, event Event, fired map[*Transition]bool) *resolvedTransition {
	for s := leaf; s != nil; s = s.Parent() {
		for _, t := range m.transitions[s.base().id] {
			if fired[t] {
				continue
			}
			if !t.matcher.Matches(event) {
				continue
			}
			if t.guard != nil {
				passed, err := safeEvaluateGuard(t.guard, m.ctx)
				if err != nil {
					m.logf("guard failed for %s: %v", t, err)
					continue
				}
				if !passed {
					continue
				}
			}
			direction, err := safeResolveDirection(t.resolver, m.ctx)
			if err != nil {
				m.logf("resolver failed for %s: %v", t, err)
				continue
			}
			if direction.IsNone() {
				continue
			}
			return &resolvedTransition{transition: t, direction: direction}
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Entry/exit sequencing
// --------------------------------------------------------------------------

// performTransition applies the ordered state change for a firing transition
// with a resolved target: exits leaf-first up to the least common ancestor,
// dispatches the firing notification, then enters ancestor-first down to the
// target and its default substates
func (m *StateMachine) performTransition(t *Transition, target State) error {
	source := t.source
	if target == nil {
		return NewStateNotFoundError("<nil>")
	}
	tb := target.base()
	if _, ok := m.statesByID[tb.id]; !ok {
		return NewStateNotFoundError(describeState(target))
	}

	lca := findCommonAncestor(source, target)
	m.ctx.beginTransition(source, target)

	if lca != source {
		exitRoot := childTowards(lca, source)
		if exitRoot != nil {
			m.exitActiveChildren(exitRoot)
			m.exitState(exitRoot)
		}
	}

	entryPath := statesBelow(lca, target)

	// A still-active sequential composite on the entry path holds a child
	// from the previous configuration; that subtree leaves before the new
	// on-path child enters.
	for _, s := range entryPath {
		if !s.IsActive() || s.ChildMode() != Sequential {
			continue
		}
		next := childTowards(s, target)
		for _, child := range s.Children() {
			if child != next && child.IsActive() {
				m.exitActiveChildren(child)
				m.exitState(child)
			}
		}
	}

	m.logf("transition fired: %s (event '%s')", t, m.ctx.Event().Kind())
	m.listeners.notifyTransition(source, target, m.ctx)

	for _, s := range entryPath {
		if s.IsActive() {
			continue
		}
		if err := m.enterState(s); err != nil {
			return err
		}
	}
	if err := m.descendDefaults(target); err != nil {
		return err
	}

	// Parallel nodes touched by the entry bring every region with them,
	// including regions emptied by the exit phase.
	for _, s := range append([]State{lca}, entryPath...) {
		if s.ChildMode() != Parallel || !s.IsActive() {
			continue
		}
		if err := m.descendDefaults(s); err != nil {
			return err
		}
	}

	m.checkFinished()
	return nil
}

// childTowards returns the direct child of ancestor lying on the path to
// descendant, or nil when descendant is not below ancestor
func childTowards(ancestor, descendant State) State {
	child := descendant
	for child != nil && child.Parent() != ancestor {
		child = child.Parent()
	}
	return child
}

// statesBelow returns the path from (excluding) ancestor down to target,
// ancestor-first
func statesBelow(ancestor, target State) []State {
	var path []State
	for s := target; s != nil && s != ancestor; s = s.Parent() {
		path = append([]State{s}, path...)
	}
	return path
}

// enterState activates one node: data binding first, then the active flag,
// the entry hook and the entry notification. A data binding failure aborts
// before any notification for the node.
func (m *StateMachine) enterState(s State) error {
	b := s.base()
	if dc, ok := s.(dataCarrier); ok {
		if err := m.bindEntryData(dc, s); err != nil {
			return err
		}
	}
	b.active = true
	if b.entryHook != nil {
		if err := safeExecuteHook(b.entryHook, m.ctx); err != nil {
			m.logf("entry hook failed for '%s': %v", describeState(s), err)
		}
	}
	m.listeners.notifyStateEntry(s, m.ctx)
	return nil
}

// exitState deactivates one node: exit hook, exit notification, then the
// active flag and data slot are cleared
func (m *StateMachine) exitState(s State) {
	b := s.base()
	if b.exitHook != nil {
		if err := safeExecuteHook(b.exitHook, m.ctx); err != nil {
			m.logf("exit hook failed for '%s': %v", describeState(s), err)
		}
	}
	m.listeners.notifyStateExit(s, m.ctx)
	b.active = false
	if dc, ok := s.(dataCarrier); ok {
		dc.clearData()
	}
}

// exitActiveChildren exits every active descendant of s, leaf-first
func (m *StateMachine) exitActiveChildren(s State) {
	children := s.Children()
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		if child.IsActive() {
			m.exitActiveChildren(child)
			m.exitState(child)
		}
	}
}

// enterTree enters s and descends into its default substates
func (m *StateMachine) enterTree(s State) error {
	if err := m.enterState(s); err != nil {
		return err
	}
	return m.descendDefaults(s)
}

// descendDefaults descends below an entered node: sequential composites
// enter their designated initial child, parallel nodes enter all children
// simultaneously
func (m *StateMachine) descendDefaults(s State) error {
	b := s.base()
	if len(b.children) == 0 {
		return nil
	}
	if b.childMode == Parallel {
		for _, child := range b.children {
			if child.IsActive() {
				continue
			}
			if err := m.enterTree(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, child := range b.children {
		if child.IsActive() {
			// An explicit target deeper in this subtree was already entered.
			return nil
		}
	}
	return m.enterTree(b.initial)
}

// bindEntryData populates a data state's slot from the current event
func (m *StateMachine) bindEntryData(dc dataCarrier, s State) error {
	event := m.ctx.Event()
	if event == nil {
		return NewDataBindingError(describeState(s), "entered without an event carrying data")
	}
	de, ok := event.(DataCarryingEvent)
	if !ok {
		return NewDataBindingError(describeState(s),
			fmt.Sprintf("event '%s' carries no data for declared kind %s", event.Kind(), dc.DataType()))
	}
	return dc.bindData(de.Payload())
}

// checkFinished marks the machine finished when a top-level final state is
// active
func (m *StateMachine) checkFinished() {
	if m.status != StatusRunning {
		return
	}
	for _, child := range m.root.children {
		if child.IsFinal() && child.IsActive() {
			m.status = StatusFinished
			m.logf("machine '%s' finished in state '%s'", m.name, describeState(child))
			m.listeners.notifyFinished(m.ctx)
			return
		}
	}
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// ActiveStates returns all active states in entry order (ancestors before
// descendants), excluding the root
func (m *StateMachine) ActiveStates() []State {
	var active []State
	var walk func(s State)
	walk = func(s State) {
		for _, child := range s.Children() {
			if child.IsActive() {
				active = append(active, child)
				walk(child)
			}
		}
	}
	walk(m.root)
	return active
}

// activeLeaves returns the active states with no active children
func (m *StateMachine) activeLeaves() []State {
	var leaves []State
	for _, s := range m.ActiveStates() {
		hasActiveChild := false
		for _, child := range s.Children() {
			if child.IsActive() {
				hasActiveChild = true
				break
			}
		}
		if !hasActiveChild {
			leaves = append(leaves, s)
		}
	}
	return leaves
}

// ActiveLeaves returns the currently active leaf states, one per independent
// region
func (m *StateMachine) ActiveLeaves() []State {
	return m.activeLeaves()
}

// ActiveLeafNames returns the names of the active leaves
func (m *StateMachine) ActiveLeafNames() []string {
	leaves := m.activeLeaves()
	names := make([]string, len(leaves))
	for i, leaf := range leaves {
		names[i] = describeState(leaf)
	}
	return names
}

// IsStateActive reports whether the named state is currently active
func (m *StateMachine) IsStateActive(name string) bool {
	s, ok := m.statesByName[name]
	if !ok {
		return false
	}
	return s.IsActive()
}

// --------------------------------------------------------------------------
// Listeners
// --------------------------------------------------------------------------

// AddListener registers a listener. Registering the same listener twice is a
// usage error. A listener added while the machine runs immediately receives
// entry notifications for the currently active states so late subscribers
// observe current state.
func (m *StateMachine) AddListener(listener Listener) error {
	if err := m.listeners.add(listener); err != nil {
		return err
	}
	if m.status == StatusRunning || m.status == StatusFinished {
		for _, s := range m.ActiveStates() {
			state := s
			m.listeners.dispatch("OnStateEntry", func() { listener.OnStateEntry(state, m.ctx) })
		}
	}
	return nil
}

// RemoveListener unregisters a listener; unknown listeners are ignored
func (m *StateMachine) RemoveListener(listener Listener) {
	m.listeners.remove(listener)
}
