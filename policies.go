package kstatemachine

// PendingEventPolicy decides what happens when ProcessEvent is called while
// another event is already being processed, typically from inside a listener.
// The default policy treats this as a fatal usage error.
type PendingEventPolicy interface {
	OnPendingEvent(machine *StateMachine, event Event, arg any) error
}

// IgnoredEventPolicy is invoked when no transition matches an event for any
// active leaf. The default policy is a no-op.
type IgnoredEventPolicy interface {
	OnIgnoredEvent(machine *StateMachine, event Event, arg any)
}

// IgnoredEventPolicyFunc adapts a function to the IgnoredEventPolicy
// interface
type IgnoredEventPolicyFunc func(machine *StateMachine, event Event, arg any)

// OnIgnoredEvent implements IgnoredEventPolicy
func (f IgnoredEventPolicyFunc) OnIgnoredEvent(machine *StateMachine, event Event, arg any) {
	f(machine, event, arg)
}

// ThrowingPendingEventPolicy rejects reentrant event submission with a
// UsageError. This is the default.
type ThrowingPendingEventPolicy struct{}

// OnPendingEvent implements PendingEventPolicy
func (ThrowingPendingEventPolicy) OnPendingEvent(machine *StateMachine, event Event, arg any) error {
	return NewUsageError(ErrCodePendingEvent, "ProcessEvent",
		"event '"+event.Kind()+"' submitted while another event is being processed; "+
			"use QueuePendingEventPolicy to queue events from listeners")
}

// QueuePendingEventPolicy queues reentrant events; the machine drains the
// queue in submission order once the in-flight call completes
type QueuePendingEventPolicy struct{}

// OnPendingEvent implements PendingEventPolicy
func (QueuePendingEventPolicy) OnPendingEvent(machine *StateMachine, event Event, arg any) error {
	machine.enqueuePending(event, arg)
	return nil
}

// DropPendingEventPolicy silently discards reentrant events
type DropPendingEventPolicy struct{}

// OnPendingEvent implements PendingEventPolicy
func (DropPendingEventPolicy) OnPendingEvent(machine *StateMachine, event Event, arg any) error {
	machine.logf("dropping pending event '%s'", event.Kind())
	return nil
}

type silentIgnoredEventPolicy struct{}

func (silentIgnoredEventPolicy) OnIgnoredEvent(machine *StateMachine, event Event, arg any) {
	machine.logf("ignored event '%s': no matching transition", event.Kind())
}
