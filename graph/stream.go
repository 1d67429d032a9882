package graph

import "fmt"

// Stream buffers the most recent window of input frames so a model trained
// on whole spectrograms can run one frame at a time. In non-streaming modes
// it flattens the trailing window of the full input sequence; in streaming
// modes it maintains a ring buffer, either as a persistent internal
// parameter or as externally threaded state. It optionally wraps an inner
// layer applied to the flattened window.
type Stream struct {
	name     string
	scope    string
	ringSize int
	features int
	mode     Mode
	inner    Layer

	ring     *Parameter  // internal-state mode only
	inState  *TensorSpec // external-state mode only
	outState *TensorSpec
}

// NewStream creates a stream layer in training mode. inner may be nil, in
// which case the flattened window itself is the output.
func NewStream(name string, ringSize, features int, inner Layer) *Stream {
	return newStream(name, "", ringSize, features, ModeTraining, inner)
}

func newStream(name, scope string, ringSize, features int, mode Mode, inner Layer) *Stream {
	s := &Stream{
		name:     name,
		scope:    scope,
		ringSize: ringSize,
		features: features,
		mode:     mode,
		inner:    inner,
	}
	window := []int{1, ringSize * features}
	switch mode {
	case ModeInternalState:
		s.ring = NewParameter(paramName(scope, name, "ring_buffer"), window, false)
	case ModeExternalState:
		s.inState = &TensorSpec{Name: name + "/input_state", Shape: append([]int(nil), window...)}
		s.outState = &TensorSpec{Name: name + "/output_state", Shape: append([]int(nil), window...)}
	}
	return s
}

func (s *Stream) Name() string { return s.name }
func (s *Stream) Kind() string { return "stream" }

func (s *Stream) Config() Config {
	cfg := Config{
		"kind":      "stream",
		"name":      s.name,
		"scope":     s.scope,
		"ring_size": s.ringSize,
		"features":  s.features,
		"mode":      s.mode.String(),
	}
	if s.inner != nil {
		cfg["layer"] = s.inner.Config()
	}
	return cfg
}

func (s *Stream) Params() []*Parameter {
	var params []*Parameter
	if s.inner != nil {
		params = append(params, s.inner.Params()...)
	}
	if s.ring != nil {
		params = append(params, s.ring)
	}
	return params
}

func (s *Stream) Inner() Layer { return s.inner }

func (s *Stream) Mode() Mode     { return s.mode }
func (s *Stream) SetMode(m Mode) { s.mode = m }

func (s *Stream) InputState() *TensorSpec  { return s.inState }
func (s *Stream) OutputState() *TensorSpec { return s.outState }

func (s *Stream) OutputShape(inputs ...[]int) ([]int, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("stream layer %s: expected 1 input, got %d", s.name, len(inputs))
	}
	in := inputs[0]
	if len(in) != 2 || in[1] != s.features {
		return nil, fmt.Errorf("stream layer %s: input shape %v incompatible with %d features", s.name, in, s.features)
	}
	if (s.mode == ModeTraining || s.mode == ModeNonStream) && in[0] < s.ringSize {
		return nil, fmt.Errorf("stream layer %s: input needs at least %d frames, got %d", s.name, s.ringSize, in[0])
	}
	window := []int{1, s.ringSize * s.features}
	if s.inner == nil {
		return window, nil
	}
	return s.inner.OutputShape(window)
}

func (s *Stream) Forward(inputs ...*Tensor) (*Tensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("stream layer %s: expected 1 input, got %d", s.name, len(inputs))
	}
	x := inputs[0]
	if len(x.Shape) != 2 || x.Shape[1] != s.features {
		return nil, fmt.Errorf("stream layer %s: input shape %v incompatible with %d features", s.name, x.Shape, s.features)
	}
	switch s.mode {
	case ModeTraining, ModeNonStream:
		if x.Shape[0] < s.ringSize {
			return nil, fmt.Errorf("stream layer %s: input needs at least %d frames, got %d", s.name, s.ringSize, x.Shape[0])
		}
		// trailing window of the full sequence, flattened
		start := (x.Shape[0] - s.ringSize) * s.features
		window := &Tensor{
			Shape: []int{1, s.ringSize * s.features},
			Data:  append([]float32(nil), x.Data[start:]...),
		}
		return s.apply(window)
	case ModeInternalState:
		if s.ring == nil {
			return nil, fmt.Errorf("stream layer %s: internal state not materialized", s.name)
		}
		shiftWindow(s.ring.Data, x.Data)
		window := &Tensor{
			Shape: append([]int(nil), s.ring.Shape...),
			Data:  append([]float32(nil), s.ring.Data...),
		}
		return s.apply(window)
	case ModeExternalState:
		return nil, fmt.Errorf("stream layer %s: external-state mode requires StreamStep", s.name)
	default:
		return nil, fmt.Errorf("stream layer %s: cannot run in mode %s", s.name, s.mode)
	}
}

func (s *Stream) StreamStep(frame, state *Tensor) (*Tensor, *Tensor, error) {
	if s.mode != ModeExternalState || s.inState == nil {
		return nil, nil, fmt.Errorf("stream layer %s: not in external-state mode", s.name)
	}
	if !ShapeEqual(state.Shape, s.inState.Shape) {
		return nil, nil, fmt.Errorf("stream layer %s: state shape %v, want %v", s.name, state.Shape, s.inState.Shape)
	}
	if len(frame.Shape) != 2 || frame.Shape[1] != s.features {
		return nil, nil, fmt.Errorf("stream layer %s: frame shape %v incompatible with %d features", s.name, frame.Shape, s.features)
	}
	next := state.Clone()
	shiftWindow(next.Data, frame.Data)
	out, err := s.apply(next.Clone())
	if err != nil {
		return nil, nil, err
	}
	return out, next, nil
}

func (s *Stream) apply(window *Tensor) (*Tensor, error) {
	if s.inner == nil {
		return window, nil
	}
	return s.inner.Forward(window)
}

// shiftWindow drops the oldest values from buf and appends the new frames.
func shiftWindow(buf, frames []float32) {
	n := len(frames)
	if n >= len(buf) {
		copy(buf, frames[n-len(buf):])
		return
	}
	copy(buf, buf[n:])
	copy(buf[len(buf)-n:], frames)
}
