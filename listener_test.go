package kstatemachine

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

type panickyListener struct {
	BaseListener
}

func (l *panickyListener) OnStateEntry(state State, ctx Context) {
	panic("listener exploded")
}

func TestListener_PanicIsolation(t *testing.T) {
	machine := CreateSimpleMachine()
	good := NewTestListener()
	_ = machine.AddListener(&panickyListener{})
	_ = machine.AddListener(good)

	err := machine.Start()
	if err != nil {
		t.Fatalf("A panicking listener must not fail the machine, got: %v", err)
	}

	// The second listener is still notified.
	if good.StateEnterCount() != 1 {
		t.Errorf("Expected 1 entry notification, got %d", good.StateEnterCount())
	}
	AssertActiveLeaf(t, machine, "idle")
}

func TestListener_PanicLogged(t *testing.T) {
	var lines []string
	machine := CreateSimpleMachine()
	machine.SetLogger(func(message string) {
		lines = append(lines, message)
	})
	_ = machine.AddListener(&panickyListener{})

	_ = machine.Start()

	found := false
	for _, line := range lines {
		if strings.Contains(line, "listener panic") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected a panic recovery log line, got %v", lines)
	}
}

func TestListener_BaseListenerIsNoOp(t *testing.T) {
	machine := CreateSimpleMachine()
	_ = machine.AddListener(&BaseListener{})

	if err := machine.Start(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := machine.ProcessEvent(NewEvent("start"), nil); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestListener_PlainListenerSkipsExtendedNotifications(t *testing.T) {
	machine := CreateSimpleMachine()
	minimal := &minimalListener{}
	_ = machine.AddListener(minimal)

	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("start"), nil)
	_, _ = machine.ProcessEvent(NewEvent("bogus"), nil)
	_ = machine.Stop()

	if minimal.entries == 0 || minimal.transitions == 0 {
		t.Error("Expected core notifications to be delivered")
	}
}

// minimalListener implements only the core Listener interface
type minimalListener struct {
	transitions int
	entries     int
}

func (l *minimalListener) OnTransition(from State, to State, ctx Context) { l.transitions++ }
func (l *minimalListener) OnStateEntry(state State, ctx Context)          { l.entries++ }

func TestLoggingListener(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	machine := CreateTrafficMachine()
	_ = machine.AddListener(NewLoggingListener(logger))

	_ = machine.Start()
	_, _ = machine.ProcessEvent(NewEvent("switch"), nil)

	out := buf.String()
	if !strings.Contains(out, "green") || !strings.Contains(out, "yellow") {
		t.Errorf("Expected transition states in log output, got: %s", out)
	}
	if !strings.Contains(out, machine.Name()) {
		t.Errorf("Expected machine name in log output, got: %s", out)
	}
}

func TestLoggingListener_DefaultsToSlogDefault(t *testing.T) {
	l := NewLoggingListener(nil)
	if l == nil {
		t.Fatal("Expected a listener")
	}
}
