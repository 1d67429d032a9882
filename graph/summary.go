package graph

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Summary returns a human-readable description of the graph: inputs,
// outputs, every layer with its parameter count, and the state boundary
// when one is set.
func (g *Graph) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Graph: %s (%s)\n", g.name, g.kind)
	for _, spec := range g.inputs {
		fmt.Fprintf(&b, "Input:  %s %v %s\n", spec.Name, spec.Shape, spec.DType)
	}
	for _, spec := range g.outputs {
		fmt.Fprintf(&b, "Output: %s %v %s\n", spec.Name, spec.Shape, spec.DType)
	}
	fmt.Fprintf(&b, "Layers: %d\n\n", len(g.nodes))

	total := 0
	trainable := 0
	for i, n := range g.nodes {
		count := 0
		for _, p := range n.Layer.Params() {
			count += NumElements(p.Shape)
			if p.Trainable {
				trainable += NumElements(p.Shape)
			}
		}
		total += count
		fmt.Fprintf(&b, "Layer %d: %s (%s)\n", i+1, n.Layer.Name(), n.Layer.Kind())
		fmt.Fprintf(&b, "  Inbound: %s\n", strings.Join(n.Inbound, ", "))
		fmt.Fprintf(&b, "  Params:  %s\n", humanize.Comma(int64(count)))
		if s, ok := n.Layer.(Streamable); ok {
			fmt.Fprintf(&b, "  Mode:    %s\n", s.Mode())
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total Parameters: %s (%s trainable)\n", humanize.Comma(int64(total)), humanize.Comma(int64(trainable)))
	if len(g.stateInputs) > 0 {
		b.WriteString("State Boundary:\n")
		for i, spec := range g.stateInputs {
			fmt.Fprintf(&b, "  %s -> %s %v\n", spec.Name, g.stateOutputs[i].Name, spec.Shape)
		}
	}
	return b.String()
}
