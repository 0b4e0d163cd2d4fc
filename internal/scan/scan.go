// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package scan classifies caller-supplied kernel coefficients and re-encodes
// them in the representation used by the accumulators: float32 weights for
// exact convolution, or scaled integers for fixed-point approximation.
package scan

import (
	"math"

	"github.com/mlnoga/sepblur/blurerr"
	"github.com/mlnoga/sepblur/pixel"
)

// Weight is the set of weight representations
type Weight interface {
	~float32 | ~int16 | ~int32
}

// Fractional bits of the fixed point weights
const (
	DefaultBitsU8  = 7  // int16 weights, int32 accumulator
	DefaultBitsU16 = 15 // int32 weights, int64 accumulator
	MaxBits16      = 14
	MaxBits32      = 30
)

// Tolerance on the coefficient sum within which a kernel counts as normalized
const normalizedEpsilon = 1e-3

// A ScanPoint is one non-zero kernel tap
type ScanPoint[W Weight] struct {
	Index  int
	Weight W
}

// ScannedKernel is a validated, symmetry-annotated kernel in the representation
// used by the accumulator
type ScannedKernel[W Weight] struct {
	Points     []ScanPoint[W] // non-zero taps in index order
	Weights    []W            // all taps
	Symmetric  bool           // Weights[i]==Weights[len-1-i] for all i
	HalfLength int            // len/2, also the pad radius
	Bits       uint           // fractional bits, 0 for float weights
	Raw        []float32      // coefficients as supplied
}

// Len returns the number of taps
func (k *ScannedKernel[W]) Len() int { return len(k.Weights) }

// Center returns the weight of the center tap
func (k *ScannedKernel[W]) Center() W { return k.Weights[k.HalfLength] }

// One returns the representation of weight 1.0
func (k *ScannedKernel[W]) One() W { return W(uint64(1) << k.Bits) }

// IsIdentity reports whether the kernel is the single tap [1.0]
func (k *ScannedKernel[W]) IsIdentity() bool {
	return len(k.Weights) == 1 && k.Weights[0] == k.One()
}

// HalfPoints returns the non-zero taps left of the center, for symmetric folding
func (k *ScannedKernel[W]) HalfPoints() []ScanPoint[W] {
	n := 0
	for n < len(k.Points) && k.Points[n].Index < k.HalfLength {
		n++
	}
	return k.Points[:n]
}

// ErrorBound returns the worst case deviation per pass of fixed point results
// from results with exact weights, in sample units, for samples in [0,maxSample].
// Includes one unit for the final rounding. Zero-bit kernels are exact up to
// float rounding and report the rounding unit only.
func (k *ScannedKernel[W]) ErrorBound(maxSample float64) float64 {
	if k.Bits == 0 {
		return 1
	}
	scale := 1 / float64(uint64(1)<<k.Bits)
	sum := 0.0
	for i, q := range k.Weights {
		sum += math.Abs(float64(k.Raw[i]) - float64(q)*scale)
	}
	return maxSample*sum + 1
}

// Validate checks kernel length and coefficient values. Called before any buffer work.
func Validate(op string, coeffs []float32) error {
	if len(coeffs) == 0 {
		return blurerr.E(op, blurerr.Validation, blurerr.EmptyKernel, "")
	}
	if len(coeffs)%2 == 0 {
		return blurerr.E(op, blurerr.Validation, blurerr.OddKernel, "received %d", len(coeffs))
	}
	for i, c := range coeffs {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return blurerr.E(op, blurerr.Validation, blurerr.BadWeight, "k[%d]=%f", i, c)
		}
	}
	return nil
}

// Exact scans a kernel for float32 accumulation
func Exact(coeffs []float32) (*ScannedKernel[float32], error) {
	if err := Validate("scan.Exact", coeffs); err != nil {
		return nil, err
	}
	return build(coeffs, append([]float32(nil), coeffs...), 0), nil
}

// Approx16 scans a kernel into int16 weights with the given fractional bits,
// for uint8 samples and int32 accumulators
func Approx16(coeffs []float32, bits uint) (*ScannedKernel[int16], error) {
	const op = "scan.Approx16"
	if err := Validate(op, coeffs); err != nil {
		return nil, err
	}
	if bits < 1 || bits > MaxBits16 {
		return nil, blurerr.E(op, blurerr.Validation, blurerr.Precision, "%d bits outside [1,%d]", bits, MaxBits16)
	}
	q, err := quantize(op, coeffs, bits, math.MinInt16, math.MaxInt16)
	if err != nil {
		return nil, err
	}
	if err := checkAccumulator(op, q, bits, math.MaxUint8, math.MaxInt32); err != nil {
		return nil, err
	}
	weights := make([]int16, len(q))
	for i, v := range q {
		weights[i] = int16(v)
	}
	return build(coeffs, weights, bits), nil
}

// Approx32 scans a kernel into int32 weights with the given fractional bits,
// for uint16 samples and int64 accumulators
func Approx32(coeffs []float32, bits uint) (*ScannedKernel[int32], error) {
	const op = "scan.Approx32"
	if err := Validate(op, coeffs); err != nil {
		return nil, err
	}
	if bits < 1 || bits > MaxBits32 {
		return nil, blurerr.E(op, blurerr.Validation, blurerr.Precision, "%d bits outside [1,%d]", bits, MaxBits32)
	}
	q, err := quantize(op, coeffs, bits, math.MinInt32, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	if err := checkAccumulator(op, q, bits, math.MaxUint16, math.MaxInt64); err != nil {
		return nil, err
	}
	weights := make([]int32, len(q))
	for i, v := range q {
		weights[i] = int32(v)
	}
	return build(coeffs, weights, bits), nil
}

// DefaultBits returns the fractional bits used for a sample type when none are given
func DefaultBits(t pixel.SampleType) uint {
	if t == pixel.U16 {
		return DefaultBitsU16
	}
	return DefaultBitsU8
}

// quantize scales by 2^bits and rounds half away from zero. Normalized kernels
// get their center tap corrected so the weights sum to exactly 2^bits.
func quantize(op string, coeffs []float32, bits uint, min, max int64) ([]int64, error) {
	scale := float64(uint64(1) << bits)
	q := make([]int64, len(coeffs))
	sum, qsum := 0.0, int64(0)
	for i, c := range coeffs {
		v := math.Round(float64(c) * scale)
		if v < float64(min) || v > float64(max) {
			return nil, blurerr.E(op, blurerr.Validation, blurerr.Overflow, "k[%d]=%f does not fit %d bits", i, c, bits)
		}
		q[i] = int64(v)
		sum += float64(c)
		qsum += q[i]
	}
	if math.Abs(sum-1) <= normalizedEpsilon {
		center := len(q) / 2
		q[center] += int64(scale) - qsum
		if q[center] < min || q[center] > max {
			return nil, blurerr.E(op, blurerr.Validation, blurerr.Overflow, "center weight does not fit %d bits", bits)
		}
	}
	return q, nil
}

// checkAccumulator rejects kernels whose worst-case sum over samples in
// [0,maxSample] could overflow the accumulator
func checkAccumulator(op string, q []int64, bits uint, maxSample, maxAcc float64) error {
	pos, neg := 0.0, 0.0
	for _, v := range q {
		if v > 0 {
			pos += float64(v)
		} else {
			neg -= float64(v)
		}
	}
	round := float64(uint64(1) << (bits - 1))
	if math.Max(pos, neg)*maxSample+round >= maxAcc {
		return blurerr.E(op, blurerr.Validation, blurerr.Overflow, "kernel may overflow the accumulator")
	}
	return nil
}

func build[W Weight](raw []float32, weights []W, bits uint) *ScannedKernel[W] {
	k := &ScannedKernel[W]{
		Weights:    weights,
		HalfLength: len(weights) / 2,
		Bits:       bits,
		Raw:        append([]float32(nil), raw...),
		Symmetric:  true,
	}
	n := len(weights)
	for i := 0; i < n/2; i++ {
		if weights[i] != weights[n-1-i] {
			k.Symmetric = false
			break
		}
	}
	for i, w := range weights {
		if w != 0 {
			k.Points = append(k.Points, ScanPoint[W]{Index: i, Weight: w})
		}
	}
	return k
}
