package graph

import "fmt"

// DType identifies the element type of a tensor at a graph boundary.
type DType int

const (
	Float32 DType = iota
	Int8
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int8:
		return "int8"
	default:
		return "unknown"
	}
}

// TensorSpec declares a named tensor at a graph boundary: a data input, a
// data output, or a recurrent state exposed in external-state mode.
type TensorSpec struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	DType DType  `json:"dtype"`
}

// Clone returns a copy with its own shape slice.
func (ts TensorSpec) Clone() TensorSpec {
	ts.Shape = append([]int(nil), ts.Shape...)
	return ts
}

// Tensor is a dense float32 value with an explicit shape. The leading
// dimension is time (frames); batch size is always one.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor wraps data in a tensor, validating the element count.
func NewTensor(shape []int, data []float32) (*Tensor, error) {
	if n := NumElements(shape); n != len(data) {
		return nil, fmt.Errorf("tensor shape %v wants %d elements, got %d", shape, n, len(data))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Zeros allocates a zero-filled tensor of the given shape.
func Zeros(shape []int) *Tensor {
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, NumElements(shape)),
	}
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float32(nil), t.Data...),
	}
}

// NumElements returns the element count implied by shape.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// ShapeEqual reports whether two shapes are identical.
func ShapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
