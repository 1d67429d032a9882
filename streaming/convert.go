package streaming

import (
	"fmt"

	"streamconv/graph"
)

// ToInference converts a trained functional graph into an inference graph
// for the given mode. The trained graph is never modified: conversion
// clones it, re-targets the clone's layers, rebuilds the structure with
// inference input shapes derived from the settings, and transfers the
// trained parameter values into the rebuilt graph.
//
// Supported graph inputs are the audio features and an optional second
// conditioning input, in that order.
func ToInference(trained *graph.Graph, mode graph.Mode, s Settings) (*graph.Graph, error) {
	if trained == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidArgument)
	}
	if mode == graph.ModeTraining {
		return nil, fmt.Errorf("%w: training is not an inference mode", ErrInvalidArgument)
	}
	if trained.Kind() != graph.Functional {
		return nil, fmt.Errorf("%w: only functional graphs can be converted, got %s", ErrInvalidArgument, trained.Kind())
	}
	srcInputs := trained.Inputs()
	if len(srcInputs) > 2 {
		return nil, fmt.Errorf("%w: maximum number of inputs supported is 2 (input_audio and cond_features), but got %d",
			ErrInvalidArgument, len(srcInputs))
	}
	if len(srcInputs) == 0 {
		return nil, fmt.Errorf("%w: graph has no inputs", ErrInvalidArgument)
	}

	s = s.WithBatchSize(1)
	audioShape, err := s.InputShape(mode)
	if err != nil {
		return nil, err
	}
	inputs := []graph.TensorSpec{{Name: "input_audio", Shape: audioShape, DType: graph.Float32}}
	if len(srcInputs) == 2 {
		condShape := s.CondShape
		if len(condShape) == 0 {
			condShape = srcInputs[1].Shape
		}
		inputs = append(inputs, graph.TensorSpec{
			Name:  "cond_features",
			Shape: append([]int(nil), condShape...),
			DType: graph.Float32,
		})
	}

	clone, err := trained.Clone()
	if err != nil {
		return nil, err
	}
	SetMode(clone, mode)

	rebuilt, err := Rebuild(clone, inputs)
	if err != nil {
		return nil, err
	}

	switch mode {
	case graph.ModeInternalState:
		err = CopyWeights(trained, rebuilt)
	case graph.ModeExternalState:
		in, out := InputOutputStates(rebuilt)
		rebuilt.SetStateBoundary(in, out)
		err = AssignWeights(trained, rebuilt)
	default:
		err = AssignWeights(trained, rebuilt)
	}
	if err != nil {
		return nil, err
	}
	return rebuilt, nil
}
