package streaming

import "streamconv/graph"

// SetMode re-targets every layer of g for the given inference mode. Layers
// wrapping an inner layer are recursed into, inner layer first. Layers
// with training-time behavior are switched to inference, and recurrent
// layers are asked for unrolled execution when the whole input is
// available at once. Layers carrying none of these traits are untouched.
//
// Only mode flags change here. State slots materialize when the graph is
// rebuilt from configuration, not when the flag flips.
func SetMode(g *graph.Graph, mode graph.Mode) {
	for _, l := range g.Layers() {
		setLayerMode(l, mode)
	}
}

func setLayerMode(l graph.Layer, mode graph.Mode) {
	if w, ok := l.(graph.Wrapper); ok {
		if inner := w.Inner(); inner != nil {
			setLayerMode(inner, mode)
		}
	}
	if s, ok := l.(graph.Streamable); ok {
		s.SetMode(mode)
	}
	if ta, ok := l.(graph.TrainingAware); ok && mode != graph.ModeTraining {
		ta.SetTraining(false)
	}
	if u, ok := l.(graph.Unrollable); ok && mode == graph.ModeNonStream {
		u.SetUnroll(true)
	}
}
