// Package visualization renders state machines as Graphviz DOT and SVG.
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mahendran-sakkarai/kstatemachine"
)

// DOTGenerator generates Graphviz DOT format representations of state machines
type DOTGenerator struct {
	machine *kstatemachine.StateMachine
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowGuardConditions bool
	ShowEventKinds      bool
	RankDirection       string // "TB", "LR", "BT", "RL"
	NodeShape           string
	LeafColor           string
	InitialColor        string
	FinalColor          string
	CompositeColor      string
	ParallelColor       string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowGuardConditions: true,
		ShowEventKinds:      true,
		RankDirection:       "TB",
		NodeShape:           "box",
		LeafColor:           "lightblue",
		InitialColor:        "lightgreen",
		FinalColor:          "lightcoral",
		CompositeColor:      "lightcyan",
		ParallelColor:       "lavender",
	}
}

// NewDOTGenerator creates a new DOT generator for the given machine
func NewDOTGenerator(machine *kstatemachine.StateMachine, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		machine: machine,
		options: opts,
	}
}

// Generate creates a DOT representation of the state machine
func (g *DOTGenerator) Generate() (string, error) {
	var dot strings.Builder

	dot.WriteString("digraph StateMachine {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString("  compound=true;\n")
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.NodeShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	dot.WriteString("  // States\n")
	root := g.machine.Root()
	for _, child := range root.Children() {
		g.generateStateNode(&dot, child, root.InitialChild(), 1)
	}
	dot.WriteString("\n")

	dot.WriteString("  // Transitions\n")
	g.generateTransitions(&dot)

	dot.WriteString("}\n")

	return dot.String(), nil
}

// generateStateNode generates a DOT node or cluster for a single state
func (g *DOTGenerator) generateStateNode(dot *strings.Builder, state kstatemachine.State, initial kstatemachine.State, depth int) {
	indent := strings.Repeat("  ", depth)
	name := stateLabel(state)

	if len(state.Children()) > 0 {
		color := g.options.CompositeColor
		if state.ChildMode() == kstatemachine.Parallel {
			color = g.options.ParallelColor
		}
		dot.WriteString(fmt.Sprintf("%ssubgraph \"cluster_%s\" {\n", indent, escape(name)))
		dot.WriteString(fmt.Sprintf("%s  label=\"%s\";\n", indent, escape(name)))
		dot.WriteString(fmt.Sprintf("%s  style=\"rounded,filled\";\n", indent))
		dot.WriteString(fmt.Sprintf("%s  fillcolor=%s;\n", indent, color))
		for _, child := range state.Children() {
			g.generateStateNode(dot, child, state.InitialChild(), depth+1)
		}
		dot.WriteString(indent + "}\n")
		return
	}

	shape := g.options.NodeShape
	fillColor := g.options.LeafColor
	label := name

	if state == initial {
		fillColor = g.options.InitialColor
		label += "\\n(initial)"
	}
	if state.IsFinal() {
		shape = "doublecircle"
		fillColor = g.options.FinalColor
	}

	dot.WriteString(fmt.Sprintf("%s\"%s\" [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"];\n",
		indent, escape(name), shape, fillColor, escape(label)))
}

// generateTransitions generates DOT edges for all transitions
func (g *DOTGenerator) generateTransitions(dot *strings.Builder) {
	dynamicCount := 0
	for _, t := range g.machine.AllTransitions() {
		from := anchorFor(t.Source())
		label := g.edgeLabel(t)

		switch {
		case t.IsTargetless():
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%s\" style=dotted];\n",
				escape(from), escape(from), escape(label)))
		case t.IsDynamic():
			// Dynamic targets are only known at firing time; render a
			// placeholder decision node.
			placeholder := fmt.Sprintf("dynamic_%d", dynamicCount)
			dynamicCount++
			dot.WriteString(fmt.Sprintf("  \"%s\" [shape=diamond label=\"?\"];\n", placeholder))
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%s\" style=dashed];\n",
				escape(from), placeholder, escape(label)))
		default:
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%s\"];\n",
				escape(from), escape(anchorFor(t.StaticTarget())), escape(label)))
		}
	}
}

func (g *DOTGenerator) edgeLabel(t *kstatemachine.Transition) string {
	var parts []string
	if g.options.ShowEventKinds {
		parts = append(parts, t.Matcher().DeclaredKind())
	}
	if g.options.ShowGuardConditions && t.Name() != "" {
		parts = append(parts, "("+t.Name()+")")
	}
	return strings.Join(parts, " ")
}

// anchorFor returns the node an edge attaches to. Composite states are
// clusters in DOT, so edges anchor on their first leaf descendant.
func anchorFor(state kstatemachine.State) string {
	for len(state.Children()) > 0 {
		state = state.Children()[0]
	}
	return stateLabel(state)
}

func stateLabel(state kstatemachine.State) string {
	if state.Name() != "" {
		return state.Name()
	}
	return state.ID()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// SVGGenerator generates SVG representations by calling Graphviz
type SVGGenerator struct {
	dotGenerator *DOTGenerator
}

// NewSVGGenerator creates a new SVG generator
func NewSVGGenerator(machine *kstatemachine.StateMachine, options ...DOTOptions) *SVGGenerator {
	return &SVGGenerator{
		dotGenerator: NewDOTGenerator(machine, options...),
	}
}

// Generate creates an SVG representation of the state machine
func (g *SVGGenerator) Generate() (string, error) {
	dotContent, err := g.dotGenerator.Generate()
	if err != nil {
		return "", err
	}

	// Use Graphviz dot command to convert DOT to SVG
	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}

// GenerateSVG creates an SVG representation of the state machine
// This is a convenience method on DOTGenerator for compatibility
func (g *DOTGenerator) GenerateSVG() (string, error) {
	svgGen := &SVGGenerator{dotGenerator: g}
	return svgGen.Generate()
}
