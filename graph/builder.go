package graph

import (
	"errors"
	"fmt"
)

// Builder assembles a functional graph incrementally. Errors stick: the
// first failure is remembered and returned by Build, so call sites can
// chain additions without checking each one.
type Builder struct {
	name    string
	inputs  []TensorSpec
	nodes   []*Node
	outputs []string
	shapes  map[string][]int
	err     error
}

// NewBuilder starts a functional graph with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, shapes: make(map[string][]int)}
}

// Input declares a graph input tensor.
func (b *Builder) Input(spec TensorSpec) *Builder {
	if b.err != nil {
		return b
	}
	if spec.Name == "" {
		b.err = errors.New("input spec needs a name")
		return b
	}
	if _, ok := b.shapes[spec.Name]; ok {
		b.err = fmt.Errorf("duplicate tensor name %s", spec.Name)
		return b
	}
	b.inputs = append(b.inputs, spec)
	b.shapes[spec.Name] = spec.Shape
	return b
}

// Add places a layer fed by the named inbound tensors. The layer's own
// name becomes the name of its output tensor.
func (b *Builder) Add(l Layer, inbound ...string) *Builder {
	if b.err != nil {
		return b
	}
	if l == nil {
		b.err = errors.New("nil layer")
		return b
	}
	if l.Name() == "" {
		b.err = errors.New("layer needs a name")
		return b
	}
	if _, ok := b.shapes[l.Name()]; ok {
		b.err = fmt.Errorf("duplicate tensor name %s", l.Name())
		return b
	}
	in := make([][]int, len(inbound))
	for i, name := range inbound {
		shape, ok := b.shapes[name]
		if !ok {
			b.err = fmt.Errorf("layer %s: unknown inbound tensor %s", l.Name(), name)
			return b
		}
		in[i] = shape
	}
	shape, err := l.OutputShape(in...)
	if err != nil {
		b.err = fmt.Errorf("layer %s: %w", l.Name(), err)
		return b
	}
	b.nodes = append(b.nodes, &Node{Layer: l, Inbound: inbound})
	b.shapes[l.Name()] = shape
	return b
}

// Output marks a tensor as a graph output. Order of calls is the order
// of outputs.
func (b *Builder) Output(name string) *Builder {
	if b.err != nil {
		return b
	}
	if _, ok := b.shapes[name]; !ok {
		b.err = fmt.Errorf("unknown output tensor %s", name)
		return b
	}
	b.outputs = append(b.outputs, name)
	return b
}

// Build finalizes the graph, or returns the first error encountered.
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.inputs) == 0 {
		return nil, errors.New("graph needs at least one input")
	}
	if len(b.outputs) == 0 {
		return nil, errors.New("graph needs at least one output")
	}
	outputs := make([]TensorSpec, len(b.outputs))
	for i, name := range b.outputs {
		outputs[i] = TensorSpec{Name: name, Shape: b.shapes[name], DType: Float32}
	}
	return newGraph(b.name, Functional, b.inputs, outputs, b.nodes), nil
}
