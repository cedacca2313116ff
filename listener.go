package kstatemachine

import (
	"log/slog"
)

// Listener observes state machine lifecycle events
type Listener interface {
	// Required methods

	// OnTransition is called when a transition fires, between the exit
	// notifications of the old states and the entry notifications of the new
	OnTransition(from State, to State, ctx Context)

	// OnStateEntry is called when a state is entered, ancestors first
	OnStateEntry(state State, ctx Context)
}

// ExtendedListener provides additional optional observation methods
type ExtendedListener interface {
	Listener

	// OnStateExit is called when a state is exited, leaves first
	OnStateExit(state State, ctx Context)

	// OnEventIgnored is called when no transition matches an event
	OnEventIgnored(event Event, ctx Context)

	// OnStarted is called when the machine starts
	OnStarted(ctx Context)

	// OnStopped is called when the machine stops
	OnStopped(ctx Context)

	// OnFinished is called when a top-level final state is entered
	OnFinished(ctx Context)
}

// BaseListener provides a default implementation with no-op methods
type BaseListener struct{}

// OnTransition implements the required Listener method
func (l *BaseListener) OnTransition(from State, to State, ctx Context) {}

// OnStateEntry implements the required Listener method
func (l *BaseListener) OnStateEntry(state State, ctx Context) {}

// OnStateExit implements the optional ExtendedListener method
func (l *BaseListener) OnStateExit(state State, ctx Context) {}

// OnEventIgnored implements the optional ExtendedListener method
func (l *BaseListener) OnEventIgnored(event Event, ctx Context) {}

// OnStarted implements the optional ExtendedListener method
func (l *BaseListener) OnStarted(ctx Context) {}

// OnStopped implements the optional ExtendedListener method
func (l *BaseListener) OnStopped(ctx Context) {}

// OnFinished implements the optional ExtendedListener method
func (l *BaseListener) OnFinished(ctx Context) {}

// listenerManager maintains the insertion-ordered listener set and dispatches
// notifications with per-listener panic isolation
type listenerManager struct {
	listeners []Listener
	logf      func(format string, args ...any)
}

func newListenerManager() *listenerManager {
	return &listenerManager{
		listeners: make([]Listener, 0),
		logf:      func(string, ...any) {},
	}
}

func (lm *listenerManager) add(listener Listener) error {
	for _, l := range lm.listeners {
		if l == listener {
			return NewUsageError(ErrCodeDuplicateListener, "AddListener", "listener is already registered")
		}
	}
	lm.listeners = append(lm.listeners, listener)
	return nil
}

func (lm *listenerManager) remove(listener Listener) {
	for i, l := range lm.listeners {
		if l == listener {
			lm.listeners = append(lm.listeners[:i], lm.listeners[i+1:]...)
			break
		}
	}
}

func (lm *listenerManager) snapshot() []Listener {
	listeners := make([]Listener, len(lm.listeners))
	copy(listeners, lm.listeners)
	return listeners
}

// dispatch runs fn for one listener, recovering from panics so a faulty
// listener cannot corrupt the sequencing pipeline
func (lm *listenerManager) dispatch(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			lm.logf("listener panic recovered in %s: %v", name, r)
		}
	}()
	fn()
}

func (lm *listenerManager) notifyTransition(from State, to State, ctx Context) {
	for _, listener := range lm.snapshot() {
		l := listener
		lm.dispatch("OnTransition", func() { l.OnTransition(from, to, ctx) })
	}
}

func (lm *listenerManager) notifyStateEntry(state State, ctx Context) {
	for _, listener := range lm.snapshot() {
		l := listener
		lm.dispatch("OnStateEntry", func() { l.OnStateEntry(state, ctx) })
	}
}

func (lm *listenerManager) notifyStateExit(state State, ctx Context) {
	for _, listener := range lm.snapshot() {
		if ext, ok := listener.(ExtendedListener); ok {
			e := ext
			lm.dispatch("OnStateExit", func() { e.OnStateExit(state, ctx) })
		}
	}
}

func (lm *listenerManager) notifyEventIgnored(event Event, ctx Context) {
	for _, listener := range lm.snapshot() {
		if ext, ok := listener.(ExtendedListener); ok {
			e := ext
			lm.dispatch("OnEventIgnored", func() { e.OnEventIgnored(event, ctx) })
		}
	}
}

func (lm *listenerManager) notifyStarted(ctx Context) {
	for _, listener := range lm.snapshot() {
		if ext, ok := listener.(ExtendedListener); ok {
			e := ext
			lm.dispatch("OnStarted", func() { e.OnStarted(ctx) })
		}
	}
}

func (lm *listenerManager) notifyStopped(ctx Context) {
	for _, listener := range lm.snapshot() {
		if ext, ok := listener.(ExtendedListener); ok {
			e := ext
			lm.dispatch("OnStopped", func() { e.OnStopped(ctx) })
		}
	}
}

func (lm *listenerManager) notifyFinished(ctx Context) {
	for _, listener := range lm.snapshot() {
		if ext, ok := listener.(ExtendedListener); ok {
			e := ext
			lm.dispatch("OnFinished", func() { e.OnFinished(ctx) })
		}
	}
}

// LoggingListener logs lifecycle notifications through a structured slog
// logger
type LoggingListener struct {
	BaseListener
	logger *slog.Logger
}

// NewLoggingListener creates a listener logging to the given slog logger; a
// nil logger falls back to slog.Default()
func NewLoggingListener(logger *slog.Logger) *LoggingListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingListener{logger: logger}
}

// OnTransition logs fired transitions
func (l *LoggingListener) OnTransition(from State, to State, ctx Context) {
	kind := ""
	if ctx.Event() != nil {
		kind = ctx.Event().Kind()
	}
	l.logger.Info("transition fired",
		"from", describeState(from),
		"to", describeState(to),
		"event", kind,
	)
}

// OnStateEntry logs state entries
func (l *LoggingListener) OnStateEntry(state State, ctx Context) {
	l.logger.Debug("state entered", "state", describeState(state))
}

// OnStateExit logs state exits
func (l *LoggingListener) OnStateExit(state State, ctx Context) {
	l.logger.Debug("state exited", "state", describeState(state))
}

// OnEventIgnored logs ignored events
func (l *LoggingListener) OnEventIgnored(event Event, ctx Context) {
	l.logger.Debug("event ignored", "event", event.Kind())
}

// OnStarted logs machine start
func (l *LoggingListener) OnStarted(ctx Context) {
	l.logger.Info("machine started", "machine", ctx.Machine().Name())
}

// OnStopped logs machine stop
func (l *LoggingListener) OnStopped(ctx Context) {
	l.logger.Info("machine stopped", "machine", ctx.Machine().Name())
}

// OnFinished logs machine completion
func (l *LoggingListener) OnFinished(ctx Context) {
	l.logger.Info("machine finished", "machine", ctx.Machine().Name())
}
