package graph

// Config is a layer configuration record: key-value settings that fully
// describe how to re-instantiate the layer through FromConfig. Values must
// survive a JSON round-trip, so numeric entries may come back as float64.
type Config map[string]any

// Int returns the integer value for key, tolerating JSON float64 decoding.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns the float value for key.
func (c Config) Float(key string, def float32) float32 {
	switch v := c[key].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	}
	return def
}

// Bool returns the boolean value for key.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// String returns the string value for key.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Sub returns a nested configuration record, or nil if absent.
func (c Config) Sub(key string) Config {
	switch v := c[key].(type) {
	case Config:
		return v
	case map[string]any:
		return Config(v)
	}
	return nil
}

// Clone returns a copy of the record, deep-copying nested records.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		switch nested := v.(type) {
		case Config:
			out[k] = nested.Clone()
		case map[string]any:
			out[k] = Config(nested).Clone()
		default:
			out[k] = v
		}
	}
	return out
}

// Layer is one computation unit in a Graph: a configuration record, zero or
// more owned parameters, and a forward computation.
type Layer interface {
	Name() string
	Kind() string
	// Config returns the full configuration needed to re-instantiate the
	// layer through FromConfig, including the current mode for layers that
	// carry one.
	Config() Config
	// Params returns the layer's owned parameters in their stable order.
	Params() []*Parameter
	// OutputShape computes the output shape for the given input shapes.
	OutputShape(inputs ...[]int) ([]int, error)
	Forward(inputs ...*Tensor) (*Tensor, error)
}

// Streamable is implemented by layers that change behavior per inference
// mode and may carry recurrent state between streaming steps. Layers that
// don't implement it are untouched by mode propagation.
type Streamable interface {
	Layer
	Mode() Mode
	// SetMode re-targets the layer's inference mode flag. It does not
	// materialize state; state slots appear when a layer is instantiated
	// from a configuration that already carries a streaming mode.
	SetMode(Mode)
	// InputState and OutputState are non-nil only for layers materialized
	// in external-state mode.
	InputState() *TensorSpec
	OutputState() *TensorSpec
	// StreamStep runs one external-state step: it consumes the previous
	// state and returns the layer output plus the next state.
	StreamStep(frame, state *Tensor) (out, next *Tensor, err error)
}

// TrainingAware is implemented by layers with training-time behavior that
// must be disabled for inference, such as dropout.
type TrainingAware interface {
	Layer
	Training() bool
	SetTraining(bool)
}

// Unrollable is implemented by recurrent layers that can favor explicit
// unrolled execution over a stateful recurrent primitive.
type Unrollable interface {
	Layer
	Unroll() bool
	SetUnroll(bool)
}

// Wrapper is implemented by layers that exclusively own an inner layer.
// Mode propagation recurses into the inner layer before the wrapper itself.
type Wrapper interface {
	Layer
	Inner() Layer
}

// paramName builds a scoped parameter path like "streaming/dense1/kernel".
func paramName(scope, layer, leaf string) string {
	if scope == "" {
		return layer + "/" + leaf
	}
	return scope + "/" + layer + "/" + leaf
}
