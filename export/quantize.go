package export

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"streamconv/graph"
)

// ErrQuantize reports representative data unable to pin a quantization
// range.
var ErrQuantize = errors.New("quantize")

const (
	// FeatureMin and FeatureMax pin the input quantization range to the
	// feature extractor's output interval, regardless of what the
	// representative samples happen to cover.
	FeatureMin float32 = 0.0
	FeatureMax float32 = 26.0

	// maxRepresentativeSamples bounds the calibration pass.
	maxRepresentativeSamples = 500

	quantizeFormatVersion = 1
)

// RepresentativeFrames yields calibration frames for quantization: at
// most limit frames drawn from samples, with the first frame's leading
// two values forced to FeatureMin and FeatureMax. A non-positive limit,
// or one beyond the cap, means the cap. The sequence can be iterated any
// number of times; yielded frames are copies.
func RepresentativeFrames(samples [][]float32, limit int) iter.Seq[[]float32] {
	if limit <= 0 || limit > maxRepresentativeSamples {
		limit = maxRepresentativeSamples
	}
	return func(yield func([]float32) bool) {
		for n, s := range samples {
			if n >= limit {
				return
			}
			frame := append([]float32(nil), s...)
			if n == 0 && len(frame) >= 2 {
				frame[0] = FeatureMin
				frame[1] = FeatureMax
			}
			if !yield(frame) {
				return
			}
		}
	}
}

// Quantizer turns a graph and its calibration data into a flat binary
// artifact.
type Quantizer interface {
	Quantize(g *graph.Graph, frames iter.Seq[[]float32]) ([]byte, error)
}

// Int8Quantizer emits an 8-bit affine quantization of every parameter
// plus an input scale derived from the calibration frames, in a
// protobuf wire-format envelope:
//
//	1 varint  format version
//	2 fixed32 input scale
//	3 varint  input zero point (zigzag)
//	4 bytes   repeated tensor messages
//
// with each tensor message carrying name, packed shape, scale, zero
// point and the int8 values.
type Int8Quantizer struct{}

func (Int8Quantizer) Quantize(g *graph.Graph, frames iter.Seq[[]float32]) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrQuantize)
	}
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	seen := false
	for frame := range frames {
		for _, v := range frame {
			seen = true
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if !seen {
		return nil, fmt.Errorf("%w: no representative frames", ErrQuantize)
	}
	inScale, inZero := affineRange(lo, hi)

	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, quantizeFormatVersion)
	buf = protowire.AppendTag(buf, 2, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, math.Float32bits(inScale))
	buf = protowire.AppendTag(buf, 3, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(int64(inZero)))

	for _, p := range g.Params() {
		msg, err := quantizeTensor(p)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, 4, protowire.BytesType)
		buf = protowire.AppendBytes(buf, msg)
	}
	return buf, nil
}

func quantizeTensor(p *graph.Parameter) ([]byte, error) {
	if err := p.CheckShape(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuantize, err)
	}
	// zero-element parameters get the degenerate unit scale
	scale, zero := float32(1), 0
	if len(p.Data) > 0 {
		lo, hi := p.Data[0], p.Data[0]
		for _, v := range p.Data {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		scale, zero = affineRange(lo, hi)
	}

	var shape []byte
	for _, d := range p.Shape {
		shape = protowire.AppendVarint(shape, uint64(d))
	}
	values := make([]byte, len(p.Data))
	for i, v := range p.Data {
		values[i] = byte(int8(quantizeValue(v, scale, zero)))
	}

	var msg []byte
	msg = protowire.AppendTag(msg, 1, protowire.BytesType)
	msg = protowire.AppendString(msg, p.Name)
	msg = protowire.AppendTag(msg, 2, protowire.BytesType)
	msg = protowire.AppendBytes(msg, shape)
	msg = protowire.AppendTag(msg, 3, protowire.Fixed32Type)
	msg = protowire.AppendFixed32(msg, math.Float32bits(scale))
	msg = protowire.AppendTag(msg, 4, protowire.VarintType)
	msg = protowire.AppendVarint(msg, protowire.EncodeZigZag(int64(zero)))
	msg = protowire.AppendTag(msg, 5, protowire.BytesType)
	msg = protowire.AppendBytes(msg, values)
	return msg, nil
}

// affineRange maps [lo, hi] onto the int8 interval: real = scale*(q-zero).
// A degenerate range quantizes with unit scale.
func affineRange(lo, hi float32) (float32, int) {
	if lo > 0 {
		lo = 0
	}
	if hi < 0 {
		hi = 0
	}
	if hi == lo {
		return 1, 0
	}
	scale := (hi - lo) / 255
	zero := int(math.Round(float64(-128 - lo/scale)))
	if zero < -128 {
		zero = -128
	}
	if zero > 127 {
		zero = 127
	}
	return scale, zero
}

func quantizeValue(v, scale float32, zero int) int {
	q := int(math.Round(float64(v/scale))) + zero
	if q < -128 {
		q = -128
	}
	if q > 127 {
		q = 127
	}
	return q
}
