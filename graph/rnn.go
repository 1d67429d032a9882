package graph

import (
	"fmt"
	"math"
)

// RNN is a simple recurrent layer, h = tanh(x*kernel + h*recurrent + bias),
// emitting the final hidden state. In non-streaming modes the recurrence is
// unrolled over the whole input sequence; in streaming modes the hidden
// state is carried frame to frame, either as a persistent internal
// parameter or as externally threaded state.
type RNN struct {
	name     string
	scope    string
	inputDim int
	units    int
	mode     Mode
	unroll   bool

	kernel    *Parameter
	recurrent *Parameter
	bias      *Parameter

	hidden   *Parameter  // internal-state mode only
	inState  *TensorSpec // external-state mode only
	outState *TensorSpec
}

// NewRNN creates a recurrent layer in training mode with zero-initialized
// parameters.
func NewRNN(name string, inputDim, units int) *RNN {
	return newRNN(name, "", inputDim, units, ModeTraining, false)
}

func newRNN(name, scope string, inputDim, units int, mode Mode, unroll bool) *RNN {
	r := &RNN{
		name:     name,
		scope:    scope,
		inputDim: inputDim,
		units:    units,
		mode:     mode,
		unroll:   unroll,
	}
	r.kernel = NewParameter(paramName(scope, name, "kernel"), []int{inputDim, units}, true)
	r.recurrent = NewParameter(paramName(scope, name, "recurrent_kernel"), []int{units, units}, true)
	r.bias = NewParameter(paramName(scope, name, "bias"), []int{units}, true)
	stateShape := []int{1, units}
	switch mode {
	case ModeInternalState:
		r.hidden = NewParameter(paramName(scope, name, "hidden_state"), stateShape, false)
	case ModeExternalState:
		r.inState = &TensorSpec{Name: name + "/input_state", Shape: append([]int(nil), stateShape...)}
		r.outState = &TensorSpec{Name: name + "/output_state", Shape: append([]int(nil), stateShape...)}
	}
	return r
}

func (r *RNN) Name() string { return r.name }
func (r *RNN) Kind() string { return "rnn" }

func (r *RNN) Config() Config {
	return Config{
		"kind":      "rnn",
		"name":      r.name,
		"scope":     r.scope,
		"input_dim": r.inputDim,
		"units":     r.units,
		"mode":      r.mode.String(),
		"unroll":    r.unroll,
	}
}

func (r *RNN) Params() []*Parameter {
	params := []*Parameter{r.kernel, r.recurrent, r.bias}
	if r.hidden != nil {
		params = append(params, r.hidden)
	}
	return params
}

func (r *RNN) Mode() Mode     { return r.mode }
func (r *RNN) SetMode(m Mode) { r.mode = m }

func (r *RNN) Unroll() bool     { return r.unroll }
func (r *RNN) SetUnroll(v bool) { r.unroll = v }

func (r *RNN) InputState() *TensorSpec  { return r.inState }
func (r *RNN) OutputState() *TensorSpec { return r.outState }

func (r *RNN) OutputShape(inputs ...[]int) ([]int, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("rnn layer %s: expected 1 input, got %d", r.name, len(inputs))
	}
	in := inputs[0]
	if len(in) != 2 || in[1] != r.inputDim {
		return nil, fmt.Errorf("rnn layer %s: input shape %v incompatible with input dim %d", r.name, in, r.inputDim)
	}
	return []int{1, r.units}, nil
}

func (r *RNN) Forward(inputs ...*Tensor) (*Tensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("rnn layer %s: expected 1 input, got %d", r.name, len(inputs))
	}
	x := inputs[0]
	if len(x.Shape) != 2 || x.Shape[1] != r.inputDim {
		return nil, fmt.Errorf("rnn layer %s: input shape %v incompatible with input dim %d", r.name, x.Shape, r.inputDim)
	}
	switch r.mode {
	case ModeTraining, ModeNonStream:
		h := make([]float32, r.units)
		for t := 0; t < x.Shape[0]; t++ {
			h = r.step(x.Data[t*r.inputDim:(t+1)*r.inputDim], h)
		}
		return &Tensor{Shape: []int{1, r.units}, Data: h}, nil
	case ModeInternalState:
		if r.hidden == nil {
			return nil, fmt.Errorf("rnn layer %s: internal state not materialized", r.name)
		}
		h := r.hidden.Data
		for t := 0; t < x.Shape[0]; t++ {
			h = r.step(x.Data[t*r.inputDim:(t+1)*r.inputDim], h)
		}
		copy(r.hidden.Data, h)
		return &Tensor{Shape: []int{1, r.units}, Data: append([]float32(nil), h...)}, nil
	case ModeExternalState:
		return nil, fmt.Errorf("rnn layer %s: external-state mode requires StreamStep", r.name)
	default:
		return nil, fmt.Errorf("rnn layer %s: cannot run in mode %s", r.name, r.mode)
	}
}

func (r *RNN) StreamStep(frame, state *Tensor) (*Tensor, *Tensor, error) {
	if r.mode != ModeExternalState || r.inState == nil {
		return nil, nil, fmt.Errorf("rnn layer %s: not in external-state mode", r.name)
	}
	if !ShapeEqual(state.Shape, r.inState.Shape) {
		return nil, nil, fmt.Errorf("rnn layer %s: state shape %v, want %v", r.name, state.Shape, r.inState.Shape)
	}
	if len(frame.Shape) != 2 || frame.Shape[1] != r.inputDim {
		return nil, nil, fmt.Errorf("rnn layer %s: frame shape %v incompatible with input dim %d", r.name, frame.Shape, r.inputDim)
	}
	h := append([]float32(nil), state.Data...)
	for t := 0; t < frame.Shape[0]; t++ {
		h = r.step(frame.Data[t*r.inputDim:(t+1)*r.inputDim], h)
	}
	out := &Tensor{Shape: []int{1, r.units}, Data: h}
	return out, out.Clone(), nil
}

func (r *RNN) step(x, h []float32) []float32 {
	next := make([]float32, r.units)
	for j := 0; j < r.units; j++ {
		sum := r.bias.Data[j]
		for i := 0; i < r.inputDim; i++ {
			sum += x[i] * r.kernel.Data[i*r.units+j]
		}
		for k := 0; k < r.units; k++ {
			sum += h[k] * r.recurrent.Data[k*r.units+j]
		}
		next[j] = float32(math.Tanh(float64(sum)))
	}
	return next
}
