package streaming

import "streamconv/graph"

// InputOutputStates collects the state tensor specs of every layer
// materialized in external-state mode, in topological layer order. The
// two slices are index-aligned: position i of the inputs belongs to the
// same layer as position i of the outputs.
func InputOutputStates(g *graph.Graph) (inputs, outputs []graph.TensorSpec) {
	for _, l := range g.Layers() {
		collectStates(l, &inputs, &outputs)
	}
	return inputs, outputs
}

func collectStates(l graph.Layer, inputs, outputs *[]graph.TensorSpec) {
	if w, ok := l.(graph.Wrapper); ok {
		if inner := w.Inner(); inner != nil {
			collectStates(inner, inputs, outputs)
		}
	}
	s, ok := l.(graph.Streamable)
	if !ok || s.Mode() != graph.ModeExternalState {
		return
	}
	in, out := s.InputState(), s.OutputState()
	if in == nil || out == nil {
		return
	}
	*inputs = append(*inputs, in.Clone())
	*outputs = append(*outputs, out.Clone())
}
