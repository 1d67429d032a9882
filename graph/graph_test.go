package graph

import (
	"strings"
	"testing"
)

func buildTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewBuilder("kws").
		Input(TensorSpec{Name: "input_audio", Shape: []int{2, 2}}).
		Add(NewDense("dense1", 2, 3, true), "input_audio").
		Add(NewActivation("relu1", "relu"), "dense1").
		Add(NewDense("dense2", 3, 2, false), "relu1").
		Add(NewActivation("softmax1", "softmax"), "dense2").
		Output("softmax1").
		Build()
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	return g
}

func TestBuilderShapePropagation(t *testing.T) {
	g := buildTestGraph(t)
	if g.Kind() != Functional {
		t.Errorf("Expected functional graph, got %v", g.Kind())
	}
	out := g.Outputs()
	if len(out) != 1 {
		t.Fatalf("Expected 1 output, got %d", len(out))
	}
	if !ShapeEqual(out[0].Shape, []int{2, 2}) {
		t.Errorf("Expected output shape [2 2], got %v", out[0].Shape)
	}
}

func TestBuilderErrorsStick(t *testing.T) {
	_, err := NewBuilder("bad").
		Input(TensorSpec{Name: "in", Shape: []int{1, 2}}).
		Add(NewDense("dense1", 5, 3, true), "in"). // wrong input dim
		Add(NewActivation("relu1", "relu"), "dense1").
		Output("relu1").
		Build()
	if err == nil {
		t.Fatal("Expected build error for incompatible shapes")
	}
	if !strings.Contains(err.Error(), "dense1") {
		t.Errorf("Expected error to name the failing layer, got: %v", err)
	}
}

func TestBuilderRejectsDuplicateNames(t *testing.T) {
	_, err := NewBuilder("bad").
		Input(TensorSpec{Name: "in", Shape: []int{1, 2}}).
		Add(NewDense("dense1", 2, 2, true), "in").
		Add(NewDense("dense1", 2, 2, true), "dense1").
		Output("dense1").
		Build()
	if err == nil {
		t.Error("Expected error for duplicate layer name")
	}
}

func TestBuilderRejectsUnknownInbound(t *testing.T) {
	_, err := NewBuilder("bad").
		Input(TensorSpec{Name: "in", Shape: []int{1, 2}}).
		Add(NewDense("dense1", 2, 2, true), "nope").
		Output("dense1").
		Build()
	if err == nil {
		t.Error("Expected error for unknown inbound tensor")
	}
}

func TestGraphRun(t *testing.T) {
	g := buildTestGraph(t)
	x := &Tensor{Shape: []int{2, 2}, Data: []float32{1, 0, 0, 1}}
	outs, err := g.Run(x)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outs) != 1 {
		t.Fatalf("Expected 1 output, got %d", len(outs))
	}
	// zero-initialized weights give a uniform softmax
	for i, v := range outs[0].Data {
		if v != 0.5 {
			t.Errorf("Expected uniform softmax 0.5 at %d, got %f", i, v)
		}
	}
}

func TestGraphRunWrongInputCount(t *testing.T) {
	g := buildTestGraph(t)
	if _, err := g.Run(); err == nil {
		t.Error("Expected error for missing inputs")
	}
}

func TestGraphCloneIsIndependent(t *testing.T) {
	g := buildTestGraph(t)
	g.Params()[0].Data[0] = 42

	clone, err := g.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if got := clone.Params()[0].Data[0]; got != 42 {
		t.Errorf("Expected cloned value 42, got %f", got)
	}

	clone.Params()[0].Data[0] = 7
	if got := g.Params()[0].Data[0]; got != 42 {
		t.Errorf("Expected original untouched, got %f", got)
	}
}

func TestGraphStateBoundaryOrdering(t *testing.T) {
	g := buildTestGraph(t)
	in := []TensorSpec{{Name: "s/input_state", Shape: []int{1, 4}}}
	out := []TensorSpec{{Name: "s/output_state", Shape: []int{1, 4}}}
	g.SetStateBoundary(in, out)

	all := g.AllInputs()
	if len(all) != 2 || all[1].Name != "s/input_state" {
		t.Errorf("Expected state input appended after data inputs, got %v", all)
	}
	allOut := g.AllOutputs()
	if len(allOut) != 2 || allOut[1].Name != "s/output_state" {
		t.Errorf("Expected state output appended after data outputs, got %v", allOut)
	}
}

func TestDeferredGraphCannotRun(t *testing.T) {
	g := NewDeferred("lazy")
	if _, err := g.Run(); err == nil {
		t.Error("Expected error running a deferred graph")
	}
}

func TestSequentialGraphRuns(t *testing.T) {
	g := NewSequential("seq",
		TensorSpec{Name: "in", Shape: []int{1, 2}},
		NewDense("dense1", 2, 2, true),
		NewActivation("relu1", "relu"),
	)
	if g.Kind() != Sequential {
		t.Errorf("Expected sequential kind, got %v", g.Kind())
	}
	outs, err := g.Run(&Tensor{Shape: []int{1, 2}, Data: []float32{1, 1}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !ShapeEqual(outs[0].Shape, []int{1, 2}) {
		t.Errorf("Expected output shape [1 2], got %v", outs[0].Shape)
	}
}

func TestSummaryListsLayersAndTotals(t *testing.T) {
	g := buildTestGraph(t)
	s := g.Summary()
	for _, want := range []string{"dense1", "softmax1", "Total Parameters: 15"} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected summary to contain %q:\n%s", want, s)
		}
	}
}
