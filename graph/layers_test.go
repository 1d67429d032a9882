package graph

import (
	"math"
	"testing"
)

func TestDenseForward(t *testing.T) {
	d := NewDense("dense1", 2, 2, true)
	copy(d.kernel.Data, []float32{1, 2, 3, 4}) // row-major [input_dim, units]
	copy(d.bias.Data, []float32{0.5, -0.5})

	x := &Tensor{Shape: []int{2, 2}, Data: []float32{1, 0, 0, 1}}
	out, err := d.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	want := []float32{1.5, 1.5, 3.5, 3.5}
	for i, v := range want {
		if out.Data[i] != v {
			t.Errorf("Expected output[%d]=%f, got %f", i, v, out.Data[i])
		}
	}
}

func TestDenseRejectsBadInput(t *testing.T) {
	d := NewDense("dense1", 4, 2, false)
	if _, err := d.Forward(&Tensor{Shape: []int{1, 3}, Data: make([]float32, 3)}); err == nil {
		t.Error("Expected error for mismatched input dim")
	}
}

func TestActivationSoftmax(t *testing.T) {
	a := NewActivation("softmax1", "softmax")
	out, err := a.Forward(&Tensor{Shape: []int{1, 3}, Data: []float32{1, 2, 3}})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	var sum float32
	for _, v := range out.Data {
		sum += v
	}
	if math.Abs(float64(sum-1)) > 1e-5 {
		t.Errorf("Expected softmax row to sum to 1, got %f", sum)
	}
	if !(out.Data[2] > out.Data[1] && out.Data[1] > out.Data[0]) {
		t.Errorf("Expected monotone softmax outputs, got %v", out.Data)
	}
}

func TestActivationRelu(t *testing.T) {
	a := NewActivation("relu1", "relu")
	out, err := a.Forward(&Tensor{Shape: []int{1, 4}, Data: []float32{-1, 0, 2, -3}})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	want := []float32{0, 0, 2, 0}
	for i, v := range want {
		if out.Data[i] != v {
			t.Errorf("Expected output[%d]=%f, got %f", i, v, out.Data[i])
		}
	}
}

func TestActivationUnknownFunction(t *testing.T) {
	a := NewActivation("bad", "swizzle")
	if _, err := a.Forward(&Tensor{Shape: []int{1, 1}, Data: []float32{1}}); err == nil {
		t.Error("Expected error for unknown activation")
	}
}

func TestDropoutIsIdentity(t *testing.T) {
	d := NewDropout("drop1", 0.5)
	x := &Tensor{Shape: []int{2, 2}, Data: []float32{1, 2, 3, 4}}
	out, err := d.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	for i, v := range x.Data {
		if out.Data[i] != v {
			t.Errorf("Expected identity at %d, got %f", i, out.Data[i])
		}
	}
	if !d.Training() {
		t.Error("Expected new dropout to start in training mode")
	}
}

func TestConcatenateForward(t *testing.T) {
	c := NewConcatenate("concat1")
	a := &Tensor{Shape: []int{2, 2}, Data: []float32{1, 2, 3, 4}}
	b := &Tensor{Shape: []int{2, 1}, Data: []float32{9, 8}}
	out, err := c.Forward(a, b)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if !ShapeEqual(out.Shape, []int{2, 3}) {
		t.Fatalf("Expected shape [2 3], got %v", out.Shape)
	}
	want := []float32{1, 2, 9, 3, 4, 8}
	for i, v := range want {
		if out.Data[i] != v {
			t.Errorf("Expected output[%d]=%f, got %f", i, v, out.Data[i])
		}
	}
}

func TestConcatenateRejectsMismatchedRows(t *testing.T) {
	c := NewConcatenate("concat1")
	a := &Tensor{Shape: []int{2, 2}, Data: make([]float32, 4)}
	b := &Tensor{Shape: []int{3, 1}, Data: make([]float32, 3)}
	if _, err := c.Forward(a, b); err == nil {
		t.Error("Expected error for mismatched frame counts")
	}
}
