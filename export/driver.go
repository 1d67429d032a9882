package export

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"streamconv/graph"
	"streamconv/streaming"
)

// Driver runs conversion-and-save pipelines over a trained graph. A
// failed artifact is logged and skipped when the failure is one of the
// expected conversion or filesystem errors, so one bad mode does not
// abort a batch export; anything else propagates.
type Driver struct {
	Log *slog.Logger
}

// NewDriver returns a driver logging through log, or slog.Default().
func NewDriver(log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{Log: log}
}

// SaveInference converts trained for the given mode and writes the result
// as a saved-graph directory. Supported modes are non-stream and
// internal-state streaming; external-state graphs carry caller-managed
// tensors that the saved-graph format does not describe as a runnable
// unit.
func (d *Driver) SaveInference(trained *graph.Graph, s streaming.Settings, mode graph.Mode, dir string) error {
	err := d.saveInference(trained, s, mode, dir)
	if err != nil && warnable(err) {
		d.Log.Warn("skipping saved graph", "mode", mode.String(), "dir", dir, "error", err)
		return nil
	}
	return err
}

func (d *Driver) saveInference(trained *graph.Graph, s streaming.Settings, mode graph.Mode, dir string) error {
	switch mode {
	case graph.ModeNonStream, graph.ModeInternalState:
	default:
		return fmt.Errorf("%w: mode %s cannot be exported as a saved graph", streaming.ErrInvalidArgument, mode)
	}
	converted, err := streaming.ToInference(trained, mode, s)
	if err != nil {
		return err
	}
	if err := Save(converted, dir); err != nil {
		return err
	}
	d.Log.Info("saved inference graph", "mode", mode.String(), "dir", dir)
	return nil
}

// QuantizeSaved loads a saved graph from dir, calibrates on the given
// samples and writes the int8 artifact to out. Failures follow the same
// log-and-skip policy as SaveInference.
func (d *Driver) QuantizeSaved(dir string, samples [][]float32, limit int, out string) error {
	err := d.quantizeSaved(dir, samples, limit, out)
	if err != nil && warnable(err) {
		d.Log.Warn("skipping quantized artifact", "dir", dir, "out", out, "error", err)
		return nil
	}
	return err
}

func (d *Driver) quantizeSaved(dir string, samples [][]float32, limit int, out string) error {
	g, err := Load(dir)
	if err != nil {
		return err
	}
	data, err := Int8Quantizer{}.Quantize(g, RepresentativeFrames(samples, limit))
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write quantized artifact: %w", err)
	}
	d.Log.Info("wrote quantized artifact", "out", out, "bytes", len(data))
	return nil
}

// warnable reports whether err belongs to the closed set of failures a
// batch export survives: conversion rejections, graph misalignments,
// calibration problems, and filesystem errors.
func warnable(err error) bool {
	if errors.Is(err, streaming.ErrInvalidArgument) ||
		errors.Is(err, streaming.ErrStructuralMismatch) ||
		errors.Is(err, ErrQuantize) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}
