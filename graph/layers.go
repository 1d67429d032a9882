package graph

import (
	"fmt"
	"math"
)

// Dense is a fully connected layer applied per frame: y = x*kernel + bias.
type Dense struct {
	name     string
	scope    string
	inputDim int
	units    int
	useBias  bool
	kernel   *Parameter
	bias     *Parameter
}

// NewDense creates a dense layer with zero-initialized parameters.
func NewDense(name string, inputDim, units int, useBias bool) *Dense {
	return newDense(name, "", inputDim, units, useBias)
}

func newDense(name, scope string, inputDim, units int, useBias bool) *Dense {
	d := &Dense{
		name:     name,
		scope:    scope,
		inputDim: inputDim,
		units:    units,
		useBias:  useBias,
	}
	d.kernel = NewParameter(paramName(scope, name, "kernel"), []int{inputDim, units}, true)
	if useBias {
		d.bias = NewParameter(paramName(scope, name, "bias"), []int{units}, true)
	}
	return d
}

func (d *Dense) Name() string { return d.name }
func (d *Dense) Kind() string { return "dense" }

func (d *Dense) Config() Config {
	return Config{
		"kind":      "dense",
		"name":      d.name,
		"scope":     d.scope,
		"input_dim": d.inputDim,
		"units":     d.units,
		"use_bias":  d.useBias,
	}
}

func (d *Dense) Params() []*Parameter {
	if d.bias != nil {
		return []*Parameter{d.kernel, d.bias}
	}
	return []*Parameter{d.kernel}
}

func (d *Dense) OutputShape(inputs ...[]int) ([]int, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("dense layer %s: expected 1 input, got %d", d.name, len(inputs))
	}
	in := inputs[0]
	if len(in) != 2 || in[1] != d.inputDim {
		return nil, fmt.Errorf("dense layer %s: input shape %v incompatible with input dim %d", d.name, in, d.inputDim)
	}
	return []int{in[0], d.units}, nil
}

func (d *Dense) Forward(inputs ...*Tensor) (*Tensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("dense layer %s: expected 1 input, got %d", d.name, len(inputs))
	}
	x := inputs[0]
	if len(x.Shape) != 2 || x.Shape[1] != d.inputDim {
		return nil, fmt.Errorf("dense layer %s: input shape %v incompatible with input dim %d", d.name, x.Shape, d.inputDim)
	}
	rows := x.Shape[0]
	out := Zeros([]int{rows, d.units})
	for t := 0; t < rows; t++ {
		for u := 0; u < d.units; u++ {
			var sum float32
			for i := 0; i < d.inputDim; i++ {
				sum += x.Data[t*d.inputDim+i] * d.kernel.Data[i*d.units+u]
			}
			if d.bias != nil {
				sum += d.bias.Data[u]
			}
			out.Data[t*d.units+u] = sum
		}
	}
	return out, nil
}

// Activation applies an elementwise or per-frame activation function.
type Activation struct {
	name string
	fn   string
}

// NewActivation creates an activation layer; fn is one of relu, tanh,
// softmax.
func NewActivation(name, fn string) *Activation {
	return &Activation{name: name, fn: fn}
}

func (a *Activation) Name() string { return a.name }
func (a *Activation) Kind() string { return "activation" }

func (a *Activation) Config() Config {
	return Config{"kind": "activation", "name": a.name, "activation": a.fn}
}

func (a *Activation) Params() []*Parameter { return nil }

func (a *Activation) OutputShape(inputs ...[]int) ([]int, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("activation layer %s: expected 1 input, got %d", a.name, len(inputs))
	}
	return append([]int(nil), inputs[0]...), nil
}

func (a *Activation) Forward(inputs ...*Tensor) (*Tensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("activation layer %s: expected 1 input, got %d", a.name, len(inputs))
	}
	x := inputs[0]
	out := x.Clone()
	switch a.fn {
	case "relu":
		for i, v := range out.Data {
			if v < 0 {
				out.Data[i] = 0
			}
		}
	case "tanh":
		for i, v := range out.Data {
			out.Data[i] = float32(math.Tanh(float64(v)))
		}
	case "softmax":
		if len(x.Shape) != 2 {
			return nil, fmt.Errorf("activation layer %s: softmax wants 2D input, got %v", a.name, x.Shape)
		}
		cols := x.Shape[1]
		for t := 0; t < x.Shape[0]; t++ {
			row := out.Data[t*cols : (t+1)*cols]
			max := row[0]
			for _, v := range row[1:] {
				if v > max {
					max = v
				}
			}
			var sum float32
			for i, v := range row {
				row[i] = float32(math.Exp(float64(v - max)))
				sum += row[i]
			}
			for i := range row {
				row[i] /= sum
			}
		}
	default:
		return nil, fmt.Errorf("activation layer %s: unknown activation %q", a.name, a.fn)
	}
	return out, nil
}

// Dropout is an identity at inference time. The training flag only records
// whether training-time behavior is requested; randomized dropping belongs
// to the training collaborator, not this library.
type Dropout struct {
	name     string
	rate     float32
	training bool
}

// NewDropout creates a dropout layer in training mode, matching the state
// of a freshly trained graph.
func NewDropout(name string, rate float32) *Dropout {
	return &Dropout{name: name, rate: rate, training: true}
}

func (d *Dropout) Name() string { return d.name }
func (d *Dropout) Kind() string { return "dropout" }

func (d *Dropout) Config() Config {
	return Config{"kind": "dropout", "name": d.name, "rate": d.rate, "training": d.training}
}

func (d *Dropout) Params() []*Parameter { return nil }

func (d *Dropout) Training() bool     { return d.training }
func (d *Dropout) SetTraining(v bool) { d.training = v }

func (d *Dropout) OutputShape(inputs ...[]int) ([]int, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("dropout layer %s: expected 1 input, got %d", d.name, len(inputs))
	}
	return append([]int(nil), inputs[0]...), nil
}

func (d *Dropout) Forward(inputs ...*Tensor) (*Tensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("dropout layer %s: expected 1 input, got %d", d.name, len(inputs))
	}
	return inputs[0].Clone(), nil
}

// Concatenate joins tensors along the feature axis, frame by frame.
type Concatenate struct {
	name string
}

// NewConcatenate creates a concatenation layer.
func NewConcatenate(name string) *Concatenate {
	return &Concatenate{name: name}
}

func (c *Concatenate) Name() string { return c.name }
func (c *Concatenate) Kind() string { return "concat" }

func (c *Concatenate) Config() Config {
	return Config{"kind": "concat", "name": c.name}
}

func (c *Concatenate) Params() []*Parameter { return nil }

func (c *Concatenate) OutputShape(inputs ...[]int) ([]int, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("concat layer %s: expected at least 2 inputs, got %d", c.name, len(inputs))
	}
	rows := inputs[0][0]
	features := 0
	for _, in := range inputs {
		if len(in) != 2 || in[0] != rows {
			return nil, fmt.Errorf("concat layer %s: incompatible input shapes %v", c.name, inputs)
		}
		features += in[1]
	}
	return []int{rows, features}, nil
}

func (c *Concatenate) Forward(inputs ...*Tensor) (*Tensor, error) {
	shapes := make([][]int, len(inputs))
	for i, in := range inputs {
		shapes[i] = in.Shape
	}
	outShape, err := c.OutputShape(shapes...)
	if err != nil {
		return nil, err
	}
	rows, features := outShape[0], outShape[1]
	out := Zeros(outShape)
	for t := 0; t < rows; t++ {
		offset := 0
		for _, in := range inputs {
			w := in.Shape[1]
			copy(out.Data[t*features+offset:t*features+offset+w], in.Data[t*w:(t+1)*w])
			offset += w
		}
	}
	return out, nil
}
