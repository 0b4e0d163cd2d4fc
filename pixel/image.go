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

// Package pixel describes the pixel buffers consumed by the convolution engine,
// and the policies used to resolve samples outside of the image bounds.
package pixel

import (
	"fmt"
	"math"

	"github.com/mlnoga/sepblur/blurerr"
)

// Sample is the set of supported sample types
type Sample interface {
	~uint8 | ~uint16 | ~float32
}

// SampleType tags the sample type of an image
type SampleType int

const (
	U8 SampleType = iota
	U16
	F32
)

func (s SampleType) String() string {
	switch s {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case F32:
		return "f32"
	}
	return fmt.Sprintf("SampleType(%d)", int(s))
}

// ParseSampleType parses the names returned by String
func ParseSampleType(s string) (SampleType, error) {
	switch s {
	case "u8", "uint8", "U8":
		return U8, nil
	case "u16", "uint16", "U16":
		return U16, nil
	case "f32", "float32", "F32":
		return F32, nil
	}
	return 0, fmt.Errorf("unknown sample type '%s'", s)
}

// Size of one sample in bytes
func (s SampleType) Bytes() int {
	switch s {
	case U8:
		return 1
	case U16:
		return 2
	}
	return 4
}

// Largest representable sample value, or +Inf for floats
func (s SampleType) Max() float64 {
	switch s {
	case U8:
		return math.MaxUint8
	case U16:
		return math.MaxUint16
	}
	return math.Inf(1)
}

// TypeOf returns the sample type tag for T
func TypeOf[T Sample]() SampleType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return U8
	case uint16:
		return U16
	case float32:
		return F32
	}
	// named types with a supported underlying type
	var probe T = 0
	probe--
	if probe < 0 {
		return F32
	}
	if float64(probe) > math.MaxUint8 {
		return U16
	}
	return U8
}

// Image is an interleaved pixel buffer borrowed from the caller.
// Stride is the distance between the starts of two rows, in samples.
type Image[T Sample] struct {
	Data     []T
	Width    int
	Height   int
	Stride   int
	Channels int
}

// NewImage allocates a tightly packed image
func NewImage[T Sample](width, height, channels int) *Image[T] {
	return &Image[T]{
		Data:     make([]T, width*height*channels),
		Width:    width,
		Height:   height,
		Stride:   width * channels,
		Channels: channels,
	}
}

// RowLen is the number of samples in one row, excluding stride padding
func (img *Image[T]) RowLen() int { return img.Width * img.Channels }

// Row returns the samples of row y, excluding stride padding
func (img *Image[T]) Row(y int) []T {
	start := y * img.Stride
	return img.Data[start : start+img.RowLen()]
}

// Type returns the sample type tag
func (img *Image[T]) Type() SampleType { return TypeOf[T]() }

// Check validates the descriptor against the stride/width/height/channel contract
func (img *Image[T]) Check(op string) error {
	if img == nil {
		return blurerr.E(op, blurerr.Validation, blurerr.ZeroSize, "nil image")
	}
	if img.Width <= 0 || img.Height <= 0 {
		return blurerr.E(op, blurerr.Validation, blurerr.ZeroSize, "%dx%d", img.Width, img.Height)
	}
	if img.Channels <= 0 {
		return blurerr.E(op, blurerr.Validation, blurerr.Channels, "%d channels", img.Channels)
	}
	rowLen := img.Width * img.Channels
	if rowLen/img.Channels != img.Width {
		return blurerr.E(op, blurerr.Validation, blurerr.Overflow, "row length %dx%d", img.Width, img.Channels)
	}
	if img.Stride < rowLen {
		return blurerr.E(op, blurerr.Validation, blurerr.Stride, "stride %d below row length %d", img.Stride, rowLen)
	}
	need := (img.Height-1)*img.Stride + rowLen
	if (need-rowLen)/img.Stride != img.Height-1 {
		return blurerr.E(op, blurerr.Validation, blurerr.Overflow, "buffer size for %d rows of stride %d", img.Height, img.Stride)
	}
	if len(img.Data) < need {
		return blurerr.E(op, blurerr.Validation, blurerr.BufferTooSmall, "have %d samples, need %d", len(img.Data), need)
	}
	return nil
}

// SameSize checks that two images agree in width, height and channels
func SameSize[T Sample](op string, a, b *Image[T]) error {
	if a.Width != b.Width || a.Height != b.Height || a.Channels != b.Channels {
		return blurerr.E(op, blurerr.Validation, blurerr.SizeMismatch, "%dx%dx%d vs %dx%dx%d",
			a.Width, a.Height, a.Channels, b.Width, b.Height, b.Channels)
	}
	return nil
}

// FromFloat converts an accumulator value to a sample: integer types are
// rounded half away from zero and saturated, floats are stored directly.
func FromFloat[T Sample](v float64) T {
	switch TypeOf[T]() {
	case U8:
		return T(saturate(v, math.MaxUint8))
	case U16:
		return T(saturate(v, math.MaxUint16))
	}
	return T(float32(v))
}

func saturate(v, max float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	v = math.Round(v)
	if v > max {
		return max
	}
	return v
}
