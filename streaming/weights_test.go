package streaming

import (
	"errors"
	"strings"
	"testing"

	"streamconv/graph"
)

// trainedGraph builds a small trained model, a windowing layer wrapping a
// dense projection, with deterministic parameter values.
func trainedGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewBuilder("kws").
		Input(graph.TensorSpec{Name: "audio", Shape: []int{4, 2}}).
		Add(graph.NewStream("stream1", 2, 2, graph.NewDense("proj", 4, 3, true)), "audio").
		Add(graph.NewDense("dense1", 3, 2, true), "stream1").
		Output("dense1").
		Build()
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	for i, p := range g.Params() {
		for j := range p.Data {
			p.Data[j] = 0.1*float32(j+1) + float32(i)
		}
	}
	return g
}

func rebuiltGraph(t *testing.T, src *graph.Graph, mode graph.Mode, inputs []graph.TensorSpec) *graph.Graph {
	t.Helper()
	clone, err := src.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	SetMode(clone, mode)
	rebuilt, err := Rebuild(clone, inputs)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	return rebuilt
}

func TestCopyWeightsEqualCounts(t *testing.T) {
	trained := trainedGraph(t)
	rebuilt := rebuiltGraph(t, trained, graph.ModeNonStream,
		[]graph.TensorSpec{{Name: "input_audio", Shape: []int{4, 2}}})

	if err := CopyWeights(trained, rebuilt); err != nil {
		t.Fatalf("CopyWeights failed: %v", err)
	}
	src, dst := trained.Params(), rebuilt.Params()
	for i := range src {
		for j, v := range src[i].Data {
			if dst[i].Data[j] != v {
				t.Fatalf("Parameter %s value %d not copied", dst[i].Name, j)
			}
		}
	}
}

func TestCopyWeightsCursorSkipsStateSlots(t *testing.T) {
	trained := trainedGraph(t)
	rebuilt := rebuiltGraph(t, trained, graph.ModeInternalState,
		[]graph.TensorSpec{{Name: "input_audio", Shape: []int{1, 2}}})

	// the rebuilt windowing layer gained a ring buffer parameter
	if got := len(rebuilt.Params()); got != len(trained.Params())+1 {
		t.Fatalf("Expected one extra parameter, got %d vs %d", got, len(trained.Params()))
	}

	if err := CopyWeights(trained, rebuilt); err != nil {
		t.Fatalf("CopyWeights failed: %v", err)
	}

	for _, p := range rebuilt.Params() {
		if strings.HasSuffix(p.Name, "/ring_buffer") {
			for _, v := range p.Data {
				if v != 0 {
					t.Error("Expected ring buffer to keep its zero initialization")
				}
			}
			continue
		}
		if p.Data[0] == 0 {
			t.Errorf("Expected trained values in %s", p.Name)
		}
	}
}

func TestCopyWeightsMatchesAcrossScopes(t *testing.T) {
	trained := trainedGraph(t)
	rebuilt := rebuiltGraph(t, trained, graph.ModeInternalState,
		[]graph.TensorSpec{{Name: "input_audio", Shape: []int{1, 2}}})

	srcNames := make(map[string]bool)
	for _, p := range trained.Params() {
		srcNames[p.Name] = true
	}
	for _, p := range rebuilt.Params() {
		if srcNames[p.Name] {
			t.Errorf("Expected rebuilt parameter %s to live under a new scope", p.Name)
		}
	}
	if err := CopyWeights(trained, rebuilt); err != nil {
		t.Fatalf("CopyWeights failed despite renamed scopes: %v", err)
	}
}

func TestCopyWeightsLayerCountMismatch(t *testing.T) {
	trained := trainedGraph(t)
	other, err := graph.NewBuilder("short").
		Input(graph.TensorSpec{Name: "in", Shape: []int{4, 2}}).
		Add(graph.NewDense("dense1", 2, 2, true), "in").
		Output("dense1").
		Build()
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	err = CopyWeights(trained, other)
	if !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("Expected ErrStructuralMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "number of layers in new graph") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestCopyWeightsUnconsumedTrainedWeights(t *testing.T) {
	trained, err := graph.NewBuilder("m").
		Input(graph.TensorSpec{Name: "in", Shape: []int{1, 2}}).
		Add(graph.NewDense("dense1", 2, 2, true), "in").
		Output("dense1").
		Build()
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	// rebuilt side dropped the bias, so the cursor cannot consume it
	rebuilt, err := graph.NewBuilder("m").
		Input(graph.TensorSpec{Name: "in", Shape: []int{1, 2}}).
		Add(graph.NewDense("dense1", 2, 2, false), "in").
		Output("dense1").
		Build()
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	trained.Params()[0].Data[0] = 5

	err = CopyWeights(trained, rebuilt)
	if !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("Expected ErrStructuralMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "trained layer has 2 weights, but only 1 were copied") {
		t.Errorf("Unexpected error message: %v", err)
	}
	// failed transfer must leave the target untouched
	if got := rebuilt.Params()[0].Data[0]; got != 0 {
		t.Errorf("Expected no partial assignment, got %f", got)
	}
}

func TestAssignWeightsPositional(t *testing.T) {
	trained := trainedGraph(t)
	rebuilt := rebuiltGraph(t, trained, graph.ModeExternalState,
		[]graph.TensorSpec{{Name: "input_audio", Shape: []int{1, 2}}})

	if err := AssignWeights(trained, rebuilt); err != nil {
		t.Fatalf("AssignWeights failed: %v", err)
	}
	src, dst := trained.Params(), rebuilt.Params()
	if len(src) != len(dst) {
		t.Fatalf("Expected equal parameter counts, got %d and %d", len(src), len(dst))
	}
	for i := range src {
		for j, v := range src[i].Data {
			if dst[i].Data[j] != v {
				t.Fatalf("Parameter %s value %d not copied", dst[i].Name, j)
			}
		}
	}
}

func TestAssignWeightsCountMismatch(t *testing.T) {
	trained := trainedGraph(t)
	rebuilt := rebuiltGraph(t, trained, graph.ModeInternalState,
		[]graph.TensorSpec{{Name: "input_audio", Shape: []int{1, 2}}})

	if err := AssignWeights(trained, rebuilt); !errors.Is(err, ErrStructuralMismatch) {
		t.Errorf("Expected ErrStructuralMismatch, got %v", err)
	}
}

// stubLayer lets tests lay out parameter lists the concrete layers never
// produce, like state slots surrounding the trained weights.
type stubLayer struct {
	name   string
	params []*graph.Parameter
}

func (s *stubLayer) Name() string         { return s.name }
func (s *stubLayer) Kind() string         { return "stub" }
func (s *stubLayer) Config() graph.Config { return graph.Config{"kind": "stub", "name": s.name} }

func (s *stubLayer) Params() []*graph.Parameter { return s.params }

func (s *stubLayer) OutputShape(inputs ...[]int) ([]int, error) {
	return inputs[0], nil
}

func (s *stubLayer) Forward(inputs ...*graph.Tensor) (*graph.Tensor, error) {
	return inputs[0], nil
}

func TestCopyWeightsCursorWithSurroundingStateSlots(t *testing.T) {
	kernel := graph.NewParameter("dense1/kernel", []int{2, 2}, true)
	bias := graph.NewParameter("dense1/bias", []int{2}, true)
	for i := range kernel.Data {
		kernel.Data[i] = float32(i + 1)
	}
	bias.Data[0], bias.Data[1] = 9, 8

	old := &stubLayer{name: "dense1", params: []*graph.Parameter{kernel, bias}}
	new := &stubLayer{name: "dense1", params: []*graph.Parameter{
		graph.NewParameter("streaming/dense1/state_in", []int{1, 2}, false),
		graph.NewParameter("streaming/dense1/kernel", []int{2, 2}, true),
		graph.NewParameter("streaming/dense1/bias", []int{2}, true),
		graph.NewParameter("streaming/dense1/state_out", []int{1, 2}, false),
	}}

	in := graph.TensorSpec{Name: "in", Shape: []int{1, 2}}
	oldG := graph.NewSequential("m", in, old)
	newG := graph.NewSequential("m", in, new)

	if err := CopyWeights(oldG, newG); err != nil {
		t.Fatalf("CopyWeights failed: %v", err)
	}
	if new.params[1].Data[0] != 1 || new.params[2].Data[0] != 9 {
		t.Error("Expected trained values in the weight slots")
	}
	for _, i := range []int{0, 3} {
		for _, v := range new.params[i].Data {
			if v != 0 {
				t.Errorf("Expected state slot %d untouched", i)
			}
		}
	}
}

func TestCopyWeightsRejectsLayerDroppingAllWeights(t *testing.T) {
	kernel := graph.NewParameter("dense1/kernel", []int{2, 2}, true)
	bias := graph.NewParameter("dense1/bias", []int{2}, true)
	old := &stubLayer{name: "dense1", params: []*graph.Parameter{kernel, bias}}
	new := &stubLayer{name: "dense1"} // no parameters at all

	in := graph.TensorSpec{Name: "in", Shape: []int{1, 2}}
	err := CopyWeights(graph.NewSequential("m", in, old), graph.NewSequential("m", in, new))
	if !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("Expected ErrStructuralMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "trained layer has 2 weights, but only 0 were copied") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestCopyWeightsFastAndCursorPathsAgree(t *testing.T) {
	mkTrained := func() []*graph.Parameter {
		kernel := graph.NewParameter("dense1/kernel", []int{2, 2}, true)
		bias := graph.NewParameter("dense1/bias", []int{2}, true)
		for i := range kernel.Data {
			kernel.Data[i] = 0.5 * float32(i+1)
		}
		bias.Data[0], bias.Data[1] = -1, 2
		return []*graph.Parameter{kernel, bias}
	}
	old := &stubLayer{name: "dense1", params: mkTrained()}

	// same layout: taken by the direct positional path
	direct := &stubLayer{name: "dense1", params: []*graph.Parameter{
		graph.NewParameter("streaming/dense1/kernel", []int{2, 2}, true),
		graph.NewParameter("streaming/dense1/bias", []int{2}, true),
	}}
	// one extra state slot: forces the cursor walk
	cursor := &stubLayer{name: "dense1", params: []*graph.Parameter{
		graph.NewParameter("streaming/dense1/kernel", []int{2, 2}, true),
		graph.NewParameter("streaming/dense1/bias", []int{2}, true),
		graph.NewParameter("streaming/dense1/ring_buffer", []int{1, 4}, false),
	}}

	in := graph.TensorSpec{Name: "in", Shape: []int{1, 2}}
	oldG := graph.NewSequential("m", in, old)
	if err := CopyWeights(oldG, graph.NewSequential("m", in, direct)); err != nil {
		t.Fatalf("Direct path failed: %v", err)
	}
	if err := CopyWeights(oldG, graph.NewSequential("m", in, cursor)); err != nil {
		t.Fatalf("Cursor path failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		for j, v := range direct.params[i].Data {
			if cursor.params[i].Data[j] != v {
				t.Errorf("Expected both paths to assign %s[%d]=%f, got %f",
					cursor.params[i].Name, j, v, cursor.params[i].Data[j])
			}
		}
		for j, v := range old.params[i].Data {
			if direct.params[i].Data[j] != v {
				t.Errorf("Expected trained value %f at %s[%d], got %f",
					v, direct.params[i].Name, j, direct.params[i].Data[j])
			}
		}
	}
}

func TestSameWeightSuffixMatching(t *testing.T) {
	old := graph.NewParameter("dense1/kernel", []int{2, 2}, true)
	scoped := graph.NewParameter("streaming/dense1/kernel", []int{2, 2}, true)
	if !sameWeight(old, scoped) {
		t.Error("Expected suffix match across scopes")
	}

	otherLeaf := graph.NewParameter("streaming/dense1/bias", []int{2, 2}, true)
	if sameWeight(old, otherLeaf) {
		t.Error("Expected different leaf names to mismatch")
	}

	state := graph.NewParameter("streaming/dense1/kernel", []int{2, 2}, false)
	if sameWeight(old, state) {
		t.Error("Expected trainable flag mismatch to fail")
	}

	otherShape := graph.NewParameter("streaming/dense1/kernel", []int{2, 3}, true)
	if sameWeight(old, otherShape) {
		t.Error("Expected shape mismatch to fail")
	}
}
