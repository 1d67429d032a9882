package graph

import (
	"errors"
	"fmt"
)

// Kind distinguishes how a graph was assembled. Only functional graphs
// carry the explicit wiring needed for structural transformation.
type Kind int

const (
	Functional Kind = iota
	Sequential
	Deferred
)

func (k Kind) String() string {
	switch k {
	case Functional:
		return "functional"
	case Sequential:
		return "sequential"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is a layer placed in a graph together with the names of the
// tensors feeding it. Inbound names refer to graph inputs or to the
// producing node.
type Node struct {
	Layer   Layer
	Inbound []string
}

// Graph is a directed acyclic wiring of layers. Nodes are stored in
// topological order so execution is a single forward sweep.
type Graph struct {
	name    string
	kind    Kind
	inputs  []TensorSpec
	outputs []TensorSpec
	nodes   []*Node

	stateInputs  []TensorSpec
	stateOutputs []TensorSpec
}

func newGraph(name string, kind Kind, inputs, outputs []TensorSpec, nodes []*Node) *Graph {
	return &Graph{name: name, kind: kind, inputs: inputs, outputs: outputs, nodes: nodes}
}

// NewSequential chains layers one after another from a single input.
func NewSequential(name string, input TensorSpec, layers ...Layer) *Graph {
	nodes := make([]*Node, 0, len(layers))
	prev := input.Name
	var outputs []TensorSpec
	shape := input.Shape
	for _, l := range layers {
		nodes = append(nodes, &Node{Layer: l, Inbound: []string{prev}})
		if s, err := l.OutputShape(shape); err == nil {
			shape = s
		}
		prev = l.Name()
	}
	if len(layers) > 0 {
		outputs = []TensorSpec{{Name: prev, Shape: shape, DType: Float32}}
	}
	return newGraph(name, Sequential, []TensorSpec{input}, outputs, nodes)
}

// NewDeferred returns a graph whose wiring is resolved only at call
// time. Such graphs cannot be structurally rebuilt.
func NewDeferred(name string) *Graph {
	return newGraph(name, Deferred, nil, nil, nil)
}

func (g *Graph) Name() string          { return g.name }
func (g *Graph) Kind() Kind            { return g.kind }
func (g *Graph) Inputs() []TensorSpec  { return g.inputs }
func (g *Graph) Outputs() []TensorSpec { return g.outputs }
func (g *Graph) Nodes() []*Node        { return g.nodes }

// Layers returns the graph's layers in topological order.
func (g *Graph) Layers() []Layer {
	out := make([]Layer, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Layer
	}
	return out
}

// Layer returns the named layer, or nil.
func (g *Graph) Layer(name string) Layer {
	for _, n := range g.nodes {
		if n.Layer.Name() == name {
			return n.Layer
		}
	}
	return nil
}

// Params returns every parameter of every layer in topological order.
func (g *Graph) Params() []*Parameter {
	var out []*Parameter
	for _, n := range g.nodes {
		out = append(out, n.Layer.Params()...)
	}
	return out
}

// SetStateBoundary promotes per-layer state tensors to graph inputs
// and outputs. The specs are appended after the data inputs and
// outputs, in the order given.
func (g *Graph) SetStateBoundary(in, out []TensorSpec) {
	g.stateInputs = in
	g.stateOutputs = out
}

func (g *Graph) StateInputs() []TensorSpec  { return g.stateInputs }
func (g *Graph) StateOutputs() []TensorSpec { return g.stateOutputs }

// AllInputs returns data inputs followed by state inputs.
func (g *Graph) AllInputs() []TensorSpec {
	if len(g.stateInputs) == 0 {
		return g.inputs
	}
	all := make([]TensorSpec, 0, len(g.inputs)+len(g.stateInputs))
	all = append(all, g.inputs...)
	return append(all, g.stateInputs...)
}

// AllOutputs returns data outputs followed by state outputs.
func (g *Graph) AllOutputs() []TensorSpec {
	if len(g.stateOutputs) == 0 {
		return g.outputs
	}
	all := make([]TensorSpec, 0, len(g.outputs)+len(g.stateOutputs))
	all = append(all, g.outputs...)
	return append(all, g.stateOutputs...)
}

// Clone re-instantiates every layer from its configuration and copies
// parameter values across, producing a graph that shares no storage
// with the receiver.
func (g *Graph) Clone() (*Graph, error) {
	nodes := make([]*Node, len(g.nodes))
	for i, n := range g.nodes {
		l, err := FromConfig(n.Layer.Config())
		if err != nil {
			return nil, err
		}
		src, dst := n.Layer.Params(), l.Params()
		if len(src) != len(dst) {
			return nil, fmt.Errorf("layer %s: clone has %d parameters, original has %d", n.Layer.Name(), len(dst), len(src))
		}
		for j, p := range src {
			if !ShapeEqual(p.Shape, dst[j].Shape) {
				return nil, fmt.Errorf("layer %s: clone parameter %s shape %v != %v", n.Layer.Name(), dst[j].Name, dst[j].Shape, p.Shape)
			}
			copy(dst[j].Data, p.Data)
		}
		inbound := make([]string, len(n.Inbound))
		copy(inbound, n.Inbound)
		nodes[i] = &Node{Layer: l, Inbound: inbound}
	}
	clone := newGraph(g.name, g.kind, cloneSpecs(g.inputs), cloneSpecs(g.outputs), nodes)
	clone.stateInputs = cloneSpecs(g.stateInputs)
	clone.stateOutputs = cloneSpecs(g.stateOutputs)
	return clone, nil
}

func cloneSpecs(specs []TensorSpec) []TensorSpec {
	if specs == nil {
		return nil
	}
	out := make([]TensorSpec, len(specs))
	for i, s := range specs {
		out[i] = s.Clone()
	}
	return out
}

// Run executes the graph over inputs given in AllInputs order and
// returns tensors in AllOutputs order. Layers streaming with an
// external state boundary consume and produce their state tensors
// through the boundary specs.
func (g *Graph) Run(inputs ...*Tensor) ([]*Tensor, error) {
	if g.kind == Deferred {
		return nil, errors.New("deferred graph cannot be executed")
	}
	want := g.AllInputs()
	if len(inputs) != len(want) {
		return nil, fmt.Errorf("graph %s wants %d inputs, got %d", g.name, len(want), len(inputs))
	}
	env := make(map[string]*Tensor, len(g.nodes)+len(inputs))
	for i, spec := range want {
		if inputs[i] == nil {
			return nil, fmt.Errorf("input %s is nil", spec.Name)
		}
		env[spec.Name] = inputs[i]
	}

	for _, n := range g.nodes {
		in := make([]*Tensor, len(n.Inbound))
		for i, name := range n.Inbound {
			t, ok := env[name]
			if !ok {
				return nil, fmt.Errorf("layer %s: missing inbound tensor %s", n.Layer.Name(), name)
			}
			in[i] = t
		}
		if s, ok := n.Layer.(Streamable); ok && s.Mode() == ModeExternalState {
			if len(in) != 1 {
				return nil, fmt.Errorf("layer %s: streaming step wants 1 input, got %d", n.Layer.Name(), len(in))
			}
			state, ok := env[s.InputState().Name]
			if !ok {
				return nil, fmt.Errorf("layer %s: missing state tensor %s", n.Layer.Name(), s.InputState().Name)
			}
			out, next, err := s.StreamStep(in[0], state)
			if err != nil {
				return nil, fmt.Errorf("layer %s: %w", n.Layer.Name(), err)
			}
			env[n.Layer.Name()] = out
			env[s.OutputState().Name] = next
			continue
		}
		out, err := n.Layer.Forward(in...)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", n.Layer.Name(), err)
		}
		env[n.Layer.Name()] = out
	}

	specs := g.AllOutputs()
	outs := make([]*Tensor, len(specs))
	for i, spec := range specs {
		t, ok := env[spec.Name]
		if !ok {
			return nil, fmt.Errorf("missing output tensor %s", spec.Name)
		}
		outs[i] = t
	}
	return outs, nil
}
