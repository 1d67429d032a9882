package graph

import "fmt"

// Mode selects the inference/streaming behavior of a conversion run. It is
// attached per call; a trained graph's layers stay in ModeTraining until a
// conversion clone is re-targeted.
type Mode int

const (
	// ModeTraining is the state of a freshly trained graph.
	ModeTraining Mode = iota
	// ModeNonStream runs inference over a whole spectrogram at once.
	ModeNonStream
	// ModeInternalState streams frame by frame, with recurrent state held
	// inside the graph's own persistent parameters.
	ModeInternalState
	// ModeExternalState streams frame by frame, with recurrent state exposed
	// as extra graph inputs and outputs managed by the caller.
	ModeExternalState
)

func (m Mode) String() string {
	switch m {
	case ModeTraining:
		return "training"
	case ModeNonStream:
		return "non_stream"
	case ModeInternalState:
		return "stream_internal_state"
	case ModeExternalState:
		return "stream_external_state"
	default:
		return "unknown"
	}
}

// ParseMode maps a configuration string back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "training":
		return ModeTraining, nil
	case "non_stream":
		return ModeNonStream, nil
	case "stream_internal_state":
		return ModeInternalState, nil
	case "stream_external_state":
		return ModeExternalState, nil
	default:
		return ModeTraining, fmt.Errorf("unknown mode %q", s)
	}
}
