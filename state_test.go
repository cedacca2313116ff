package kstatemachine

import (
	"testing"
)

func TestState_TreeConstruction(t *testing.T) {
	parent := NewCompositeState("parent")
	child := NewSimpleState("child")

	err := parent.AddChild(child)
	if err != nil {
		t.Fatalf("Expected no error adding child, got: %v", err)
	}

	if child.Parent() != State(parent) {
		t.Error("Expected child's parent back-reference to be set")
	}
	if len(parent.Children()) != 1 {
		t.Errorf("Expected 1 child, got %d", len(parent.Children()))
	}
}

func TestState_RejectsSecondParent(t *testing.T) {
	a := NewCompositeState("a")
	b := NewCompositeState("b")
	child := NewSimpleState("child")

	_ = a.AddChild(child)
	err := b.AddChild(child)

	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error for reparenting, got: %v", err)
	}
}

func TestState_SetInitialChild(t *testing.T) {
	parent := NewCompositeState("parent")
	child := NewSimpleState("child")
	stranger := NewSimpleState("stranger")

	_ = parent.AddChild(child)

	if err := parent.SetInitialChild(child); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if parent.InitialChild() != State(child) {
		t.Error("Expected initial child to be set")
	}

	if err := parent.SetInitialChild(stranger); !IsConfigurationError(err) {
		t.Errorf("Expected configuration error for non-child, got: %v", err)
	}
}

func TestState_ParallelRejectsInitialChild(t *testing.T) {
	parent := NewParallelState("parent")
	child := NewSimpleState("child")
	_ = parent.AddChild(child)

	err := parent.setInitialChild(child)
	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got: %v", err)
	}
}

func TestState_Identity(t *testing.T) {
	a := NewSimpleState("same")
	b := NewSimpleState("same")

	if a.ID() == b.ID() {
		t.Error("Expected distinct instance IDs for distinct states")
	}
	if a.Name() != b.Name() {
		t.Error("Expected equal names")
	}
}

func TestState_FinalState(t *testing.T) {
	final := NewFinalState("done")
	if !final.IsFinal() {
		t.Error("Expected final state to report IsFinal")
	}
	if NewSimpleState("plain").IsFinal() {
		t.Error("Expected plain state to not report IsFinal")
	}
}

func TestState_DescribeFallsBackToID(t *testing.T) {
	unnamed := NewSimpleState("")
	if describeState(unnamed) != unnamed.ID() {
		t.Error("Expected unnamed state to be described by its ID")
	}
	if describeState(nil) != "<nil>" {
		t.Error("Expected nil state description")
	}
}

func buildTestTree() (root *CompositeState, a, a1, a2, b State) {
	root = NewCompositeState("root")
	compA := NewCompositeState("a")
	leafA1 := NewSimpleState("a1")
	leafA2 := NewSimpleState("a2")
	leafB := NewSimpleState("b")
	_ = root.AddChild(compA)
	_ = root.AddChild(leafB)
	_ = compA.AddChild(leafA1)
	_ = compA.AddChild(leafA2)
	return root, compA, leafA1, leafA2, leafB
}

func TestState_IsDescendantOf(t *testing.T) {
	root, a, a1, _, b := buildTestTree()

	if !isDescendantOf(a1, a) {
		t.Error("Expected a1 to descend from a")
	}
	if !isDescendantOf(a1, root) {
		t.Error("Expected a1 to descend from root")
	}
	if isDescendantOf(a1, b) {
		t.Error("Expected a1 to not descend from b")
	}
	if isDescendantOf(a1, a1) {
		t.Error("A state does not descend from itself")
	}
}

func TestState_AncestorChain(t *testing.T) {
	root, a, a1, _, _ := buildTestTree()

	chain := ancestorChain(a1)
	if len(chain) != 3 {
		t.Fatalf("Expected chain of 3, got %d", len(chain))
	}
	if chain[0] != State(root) || chain[1] != a || chain[2] != a1 {
		t.Error("Expected chain root-first down to the state")
	}
}

func TestState_FindCommonAncestor(t *testing.T) {
	root, a, a1, a2, b := buildTestTree()

	if lca := findCommonAncestor(a1, a2); lca != a {
		t.Errorf("Expected LCA of siblings to be their parent, got %v", describeState(lca))
	}
	if lca := findCommonAncestor(a1, b); lca != State(root) {
		t.Errorf("Expected LCA across subtrees to be root, got %v", describeState(lca))
	}
	if lca := findCommonAncestor(a1, a); lca != a {
		t.Errorf("Expected LCA of state and its ancestor to be the ancestor, got %v", describeState(lca))
	}
	// Self re-entry exits through the parent.
	if lca := findCommonAncestor(a1, a1); lca != a {
		t.Errorf("Expected LCA of a state with itself to be its parent, got %v", describeState(lca))
	}
}
