package kstatemachine

import (
	"strings"
	"testing"
)

func TestDirection_Kinds(t *testing.T) {
	target := NewSimpleState("target")

	stay := Stay()
	if !stay.IsStay() || stay.IsNone() || stay.Target() != nil {
		t.Error("Expected a stay direction")
	}

	none := NoTransition()
	if !none.IsNone() || none.IsStay() || none.Target() != nil {
		t.Error("Expected a declining direction")
	}

	to := TargetState(target)
	if to.IsStay() || to.IsNone() {
		t.Error("Expected a targeting direction")
	}
	if to.Target() != State(target) {
		t.Error("Expected the direction to carry its target")
	}
}

func TestTransition_Static(t *testing.T) {
	source := NewSimpleState("source")
	target := NewSimpleState("target")

	tr := NewTransition(source, MatchExactKind("go"), target)

	if tr.Source() != State(source) {
		t.Error("Expected source accessor")
	}
	if tr.StaticTarget() != State(target) {
		t.Error("Expected static target accessor")
	}
	if tr.IsDynamic() || tr.IsTargetless() {
		t.Error("Expected a plain static transition")
	}
}

func TestTransition_Stay(t *testing.T) {
	source := NewSimpleState("source")
	tr := NewStayTransition(source, MatchExactKind("ping"))

	if !tr.IsTargetless() {
		t.Error("Expected a targetless transition")
	}
	if tr.IsDynamic() {
		t.Error("Stay transitions are not dynamic")
	}
	if tr.StaticTarget() != nil {
		t.Error("Expected no static target")
	}
}

func TestTransition_Dynamic(t *testing.T) {
	source := NewSimpleState("source")
	tr := NewDynamicTransition(source, MatchExactKind("route"), func(ctx Context) Direction {
		return NoTransition()
	})

	if !tr.IsDynamic() {
		t.Error("Expected a dynamic transition")
	}
	if tr.StaticTarget() != nil {
		t.Error("Expected no static target")
	}
}

func TestTransition_GuardAndName(t *testing.T) {
	source := NewSimpleState("source")
	target := NewSimpleState("target")

	tr := NewTransition(source, MatchExactKind("go"), target).
		WithGuard(func(ctx Context) bool { return false }).
		WithName("gate")

	if tr.Name() != "gate" {
		t.Errorf("Expected name 'gate', got %s", tr.Name())
	}
	if tr.guard == nil {
		t.Error("Expected guard to be set")
	}
}

func TestTransition_String(t *testing.T) {
	source := NewSimpleState("source")
	target := NewSimpleState("target")
	tr := NewTransition(source, MatchExactKind("go"), target)

	s := tr.String()
	if !strings.Contains(s, "source") || !strings.Contains(s, "target") {
		t.Errorf("Expected string form to mention endpoints, got %s", s)
	}
}
