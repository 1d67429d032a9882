package graph

import "fmt"

// Parameter is a named, shaped tensor of learned values owned by a layer.
// The name is a /-separated scope path; the trailing segment is the
// parameter's logical identity, stable across graph clones and renames.
type Parameter struct {
	Name      string    `json:"name"`
	Shape     []int     `json:"shape"`
	Trainable bool      `json:"trainable"`
	Data      []float32 `json:"data"`
}

// NewParameter allocates a zero-initialized parameter.
func NewParameter(name string, shape []int, trainable bool) *Parameter {
	return &Parameter{
		Name:      name,
		Shape:     append([]int(nil), shape...),
		Trainable: trainable,
		Data:      make([]float32, NumElements(shape)),
	}
}

// Clone returns a deep copy.
func (p *Parameter) Clone() *Parameter {
	return &Parameter{
		Name:      p.Name,
		Shape:     append([]int(nil), p.Shape...),
		Trainable: p.Trainable,
		Data:      append([]float32(nil), p.Data...),
	}
}

// CheckShape verifies the declared shape matches the materialized values.
func (p *Parameter) CheckShape() error {
	if n := NumElements(p.Shape); n != len(p.Data) {
		return fmt.Errorf("parameter %s: shape %v wants %d values, has %d", p.Name, p.Shape, n, len(p.Data))
	}
	return nil
}
