package streaming

import (
	"fmt"

	"streamconv/graph"
)

// rebuildScope prefixes every parameter of a rebuilt graph, so rebuilt
// parameter names differ from trained ones while keeping the same
// trailing segment.
const rebuildScope = "streaming"

// Rebuild re-instantiates every layer of src from its configuration under
// a fresh parameter scope and wires the copies to new input specs, given
// positionally against src's inputs. Layer configurations carry their
// current mode, so state slots materialize here, not at SetMode time.
func Rebuild(src *graph.Graph, inputs []graph.TensorSpec) (*graph.Graph, error) {
	if src.Kind() != graph.Functional {
		return nil, fmt.Errorf("%w: only functional graphs can be rebuilt, got %s", ErrInvalidArgument, src.Kind())
	}
	srcInputs := src.Inputs()
	if len(inputs) != len(srcInputs) {
		return nil, fmt.Errorf("%w: graph has %d inputs, %d specs given", ErrInvalidArgument, len(srcInputs), len(inputs))
	}

	rename := make(map[string]string, len(inputs))
	b := graph.NewBuilder(src.Name())
	for i, spec := range inputs {
		b.Input(spec)
		rename[srcInputs[i].Name] = spec.Name
	}

	for _, n := range src.Nodes() {
		cfg := n.Layer.Config().Clone()
		cfg["scope"] = rebuildScope
		l, err := graph.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		inbound := make([]string, len(n.Inbound))
		for j, name := range n.Inbound {
			if renamed, ok := rename[name]; ok {
				name = renamed
			}
			inbound[j] = name
		}
		b.Add(l, inbound...)
	}
	for _, out := range src.Outputs() {
		b.Output(out.Name)
	}
	return b.Build()
}
