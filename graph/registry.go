package graph

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrLayerKindExists reports a duplicate registration.
	ErrLayerKindExists = errors.New("layer kind already registered")
	// ErrUnknownLayerKind reports a configuration naming no registered kind.
	ErrUnknownLayerKind = errors.New("unknown layer kind")
)

// Constructor re-instantiates a layer purely from its configuration record.
type Constructor func(cfg Config) (Layer, error)

var registry = struct {
	mu sync.RWMutex
	m  map[string]Constructor
}{
	m: make(map[string]Constructor),
}

// Register adds a layer constructor under kind.
func Register(kind string, fn Constructor) error {
	if kind == "" {
		return errors.New("layer kind is required")
	}
	if fn == nil {
		return errors.New("layer constructor is required")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.m[kind]; ok {
		return fmt.Errorf("%w: %s", ErrLayerKindExists, kind)
	}
	registry.m[kind] = fn
	return nil
}

// MustRegister is Register, panicking on error. Intended for package init.
func MustRegister(kind string, fn Constructor) {
	if err := Register(kind, fn); err != nil {
		panic(err)
	}
}

// FromConfig re-instantiates a layer from a configuration record produced
// by Layer.Config, possibly after a JSON round-trip.
func FromConfig(cfg Config) (Layer, error) {
	kind := cfg.String("kind", "")
	registry.mu.RLock()
	fn, ok := registry.m[kind]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayerKind, kind)
	}
	l, err := fn(cfg)
	if err != nil {
		return nil, fmt.Errorf("layer %q (%s): %w", cfg.String("name", ""), kind, err)
	}
	return l, nil
}

func init() {
	MustRegister("dense", denseFromConfig)
	MustRegister("activation", activationFromConfig)
	MustRegister("dropout", dropoutFromConfig)
	MustRegister("concat", concatFromConfig)
	MustRegister("stream", streamFromConfig)
	MustRegister("rnn", rnnFromConfig)
}

func denseFromConfig(cfg Config) (Layer, error) {
	inputDim := cfg.Int("input_dim", 0)
	units := cfg.Int("units", 0)
	if inputDim <= 0 || units <= 0 {
		return nil, fmt.Errorf("dense layer needs positive input_dim and units, got %d and %d", inputDim, units)
	}
	return newDense(cfg.String("name", ""), cfg.String("scope", ""), inputDim, units, cfg.Bool("use_bias", true)), nil
}

func activationFromConfig(cfg Config) (Layer, error) {
	fn := cfg.String("activation", "")
	if fn == "" {
		return nil, errors.New("activation layer needs an activation function")
	}
	return NewActivation(cfg.String("name", ""), fn), nil
}

func dropoutFromConfig(cfg Config) (Layer, error) {
	d := NewDropout(cfg.String("name", ""), cfg.Float("rate", 0))
	d.SetTraining(cfg.Bool("training", true))
	return d, nil
}

func concatFromConfig(cfg Config) (Layer, error) {
	return NewConcatenate(cfg.String("name", "")), nil
}

func streamFromConfig(cfg Config) (Layer, error) {
	mode, err := ParseMode(cfg.String("mode", "training"))
	if err != nil {
		return nil, err
	}
	ringSize := cfg.Int("ring_size", 0)
	features := cfg.Int("features", 0)
	if ringSize <= 0 || features <= 0 {
		return nil, fmt.Errorf("stream layer needs positive ring_size and features, got %d and %d", ringSize, features)
	}
	var inner Layer
	if sub := cfg.Sub("layer"); sub != nil {
		// the wrapper's name scope flows into the wrapped layer
		sub = sub.Clone()
		sub["scope"] = cfg.String("scope", "")
		inner, err = FromConfig(sub)
		if err != nil {
			return nil, err
		}
	}
	return newStream(cfg.String("name", ""), cfg.String("scope", ""), ringSize, features, mode, inner), nil
}

func rnnFromConfig(cfg Config) (Layer, error) {
	mode, err := ParseMode(cfg.String("mode", "training"))
	if err != nil {
		return nil, err
	}
	inputDim := cfg.Int("input_dim", 0)
	units := cfg.Int("units", 0)
	if inputDim <= 0 || units <= 0 {
		return nil, fmt.Errorf("rnn layer needs positive input_dim and units, got %d and %d", inputDim, units)
	}
	return newRNN(cfg.String("name", ""), cfg.String("scope", ""), inputDim, units, mode, cfg.Bool("unroll", false)), nil
}
