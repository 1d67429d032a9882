package streaming

import (
	"fmt"
	"strings"

	"streamconv/graph"
)

// assignment is one staged parameter copy. Staging everything before
// writing anything means a failed transfer leaves the target graph
// exactly as it was.
type assignment struct {
	dst *graph.Parameter
	src []float32
}

func (a assignment) apply() { copy(a.dst.Data, a.src) }

// CopyWeights transfers trained parameter values into a rebuilt graph
// whose layers may carry extra non-trainable state parameters. Layers are
// aligned by position. Within a layer, when parameter counts differ, a
// cursor walks the trained parameters: each rebuilt parameter either
// matches the parameter under the cursor (same trainable flag, shape and
// name suffix) and takes its values, or is a new state slot and keeps its
// initialization. Every trained parameter must be consumed.
//
// On any error no parameter of the rebuilt graph is modified.
func CopyWeights(trained, rebuilt *graph.Graph) error {
	oldNodes, newNodes := trained.Nodes(), rebuilt.Nodes()
	if len(newNodes) != len(oldNodes) {
		return fmt.Errorf("%w: number of layers in new graph: %d != layer count in trained graph: %d",
			ErrStructuralMismatch, len(newNodes), len(oldNodes))
	}

	var staged []assignment
	for i := range newNodes {
		oldParams := oldNodes[i].Layer.Params()
		newParams := newNodes[i].Layer.Params()
		name := newNodes[i].Layer.Name()

		if len(newParams) == len(oldParams) {
			for j, dst := range newParams {
				if err := checkPair(oldParams[j], dst); err != nil {
					return fmt.Errorf("%w: layer %d (%s): %v", ErrStructuralMismatch, i, name, err)
				}
				if !graph.ShapeEqual(dst.Shape, oldParams[j].Shape) {
					return fmt.Errorf("%w: layer %d (%s): parameter %s shape %v != %v",
						ErrStructuralMismatch, i, name, dst.Name, dst.Shape, oldParams[j].Shape)
				}
				staged = append(staged, assignment{dst: dst, src: oldParams[j].Data})
			}
			continue
		}

		k := 0
		for _, dst := range newParams {
			if k < len(oldParams) {
				if err := checkPair(oldParams[k], dst); err != nil {
					return fmt.Errorf("%w: layer %d (%s): %v", ErrStructuralMismatch, i, name, err)
				}
			}
			if k < len(oldParams) && sameWeight(oldParams[k], dst) {
				staged = append(staged, assignment{dst: dst, src: oldParams[k].Data})
				k++
			}
		}
		if k != len(oldParams) {
			return fmt.Errorf("%w: layer %d (%s): trained layer has %d weights, but only %d were copied",
				ErrStructuralMismatch, i, name, len(oldParams), k)
		}
	}

	for _, a := range staged {
		a.apply()
	}
	return nil
}

// AssignWeights transfers trained parameter values positionally across
// two graphs with identical parameter layouts. On any error no parameter
// of the rebuilt graph is modified.
func AssignWeights(trained, rebuilt *graph.Graph) error {
	oldParams := trained.Params()
	newParams := rebuilt.Params()
	if len(newParams) != len(oldParams) {
		return fmt.Errorf("%w: new graph has %d parameters, trained graph has %d",
			ErrStructuralMismatch, len(newParams), len(oldParams))
	}

	staged := make([]assignment, len(newParams))
	for i, dst := range newParams {
		if !graph.ShapeEqual(dst.Shape, oldParams[i].Shape) {
			return fmt.Errorf("%w: parameter %s shape %v != %v",
				ErrStructuralMismatch, dst.Name, dst.Shape, oldParams[i].Shape)
		}
		staged[i] = assignment{dst: dst, src: oldParams[i].Data}
	}

	for _, a := range staged {
		a.apply()
	}
	return nil
}

// checkPair verifies both parameters hold values consistent with their
// declared shapes before any matching decision is made.
func checkPair(old, new *graph.Parameter) error {
	if err := old.CheckShape(); err != nil {
		return err
	}
	return new.CheckShape()
}

// sameWeight reports whether a rebuilt parameter is the trained parameter
// reborn under a new scope: trainable flag, shape, and the name segment
// after the last slash all match.
func sameWeight(old, new *graph.Parameter) bool {
	return old.Trainable == new.Trainable &&
		graph.ShapeEqual(old.Shape, new.Shape) &&
		nameSuffix(old.Name) == nameSuffix(new.Name)
}

func nameSuffix(s string) string {
	return s[strings.LastIndexByte(s, '/')+1:]
}
