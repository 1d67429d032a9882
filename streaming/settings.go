package streaming

import (
	"fmt"

	"streamconv/graph"
)

// Settings carries the conversion-time description of the model's input
// geometry. Values are treated as immutable: derived variants are produced
// with the With* methods, never by mutating a shared value.
type Settings struct {
	// BatchSize used during training. Inference graphs always run with a
	// batch size of one.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// SpectrogramLength is the number of feature frames in one whole
	// training sample.
	SpectrogramLength int `yaml:"spectrogram_length" json:"spectrogram_length"`
	// FeatureSize is the per-frame feature vector width.
	FeatureSize int `yaml:"feature_size" json:"feature_size"`
	// FrameStride is the number of frames fed per streaming step. Zero
	// means one.
	FrameStride int `yaml:"frame_stride" json:"frame_stride"`
	// CondShape, when non-empty, declares a second conditioning input.
	CondShape []int `yaml:"cond_shape" json:"cond_shape,omitempty"`
	// TrainDir is where training artifacts live. Informational only.
	TrainDir string `yaml:"train_dir" json:"train_dir,omitempty"`
}

// WithBatchSize returns a copy with the batch size replaced.
func (s Settings) WithBatchSize(n int) Settings {
	s.CondShape = append([]int(nil), s.CondShape...)
	s.BatchSize = n
	return s
}

// InputShape returns the audio input shape for the given mode: the whole
// spectrogram for non-streaming inference, a single stride of frames for
// streaming.
func (s Settings) InputShape(mode graph.Mode) ([]int, error) {
	switch mode {
	case graph.ModeTraining, graph.ModeNonStream:
		if s.SpectrogramLength <= 0 || s.FeatureSize <= 0 {
			return nil, fmt.Errorf("%w: non-streaming input needs positive spectrogram_length and feature_size, got %d and %d",
				ErrInvalidArgument, s.SpectrogramLength, s.FeatureSize)
		}
		return []int{s.SpectrogramLength, s.FeatureSize}, nil
	case graph.ModeInternalState, graph.ModeExternalState:
		if s.FeatureSize <= 0 {
			return nil, fmt.Errorf("%w: streaming input needs positive feature_size, got %d", ErrInvalidArgument, s.FeatureSize)
		}
		stride := s.FrameStride
		if stride <= 0 {
			stride = 1
		}
		return []int{stride, s.FeatureSize}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidArgument, int(mode))
	}
}
