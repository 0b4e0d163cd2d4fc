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

// Package arena builds padded working copies of images, so that convolution
// can read out-of-bounds taps without per-pixel bounds checks.
package arena

import (
	"fmt"
	"math"

	"github.com/mlnoga/sepblur/blurerr"
	"github.com/mlnoga/sepblur/pixel"
	"github.com/pbnjay/memory"
)

// Largest supported pad on any side
const MaxRadius = 4096

// Pads on each side of the image, in pixels
type Pads struct {
	Left, Top, Right, Bottom int
}

// Uniform pads all sides by r
func Uniform(r int) Pads { return Pads{r, r, r, r} }

// Horizontal pads left and right by r
func Horizontal(r int) Pads { return Pads{Left: r, Right: r} }

// Vertical pads top and bottom by r
func Vertical(r int) Pads { return Pads{Top: r, Bottom: r} }

// Arena owns one contiguous padded buffer
type Arena[T pixel.Sample] struct {
	Data     []T
	Width    int // padded width in pixels
	Height   int // padded height in rows
	Stride   int // padded width times channels
	Channels int
	Pads     Pads
	Edge     pixel.EdgeMode2D

	srcWidth  int
	srcHeight int
	border    []T
}

// Size checks pads and image dimensions, and returns the number of samples
// a padded buffer needs. Reports overflow, pads beyond MaxRadius and buffers
// exceeding physical memory. Does not allocate.
func Size[T pixel.Sample](op string, width, height, channels int, pads Pads) (int, error) {
	for _, p := range []int{pads.Left, pads.Top, pads.Right, pads.Bottom} {
		if p < 0 || p > MaxRadius {
			return 0, blurerr.E(op, blurerr.Validation, blurerr.Radius, "pad %d outside [0,%d]", p, MaxRadius)
		}
	}
	w, h := width+pads.Left+pads.Right, height+pads.Top+pads.Bottom
	stride, ok := mul(w, channels)
	if !ok {
		return 0, blurerr.E(op, blurerr.Allocation, blurerr.Overflow, "arena row of %d pixels", w)
	}
	samples, ok := mul(stride, h)
	if !ok {
		return 0, blurerr.E(op, blurerr.Allocation, blurerr.Overflow, "arena of %d rows", h)
	}
	bytes, ok := mul(samples, pixel.TypeOf[T]().Bytes())
	if !ok {
		return 0, blurerr.E(op, blurerr.Allocation, blurerr.Overflow, "arena of %d samples", samples)
	}
	if total := memory.TotalMemory(); total > 0 && uint64(bytes) > total {
		return 0, blurerr.E(op, blurerr.Allocation, blurerr.OutOfMemory, "arena needs %d MB, physical memory is %d MB",
			bytes/1024/1024, total/1024/1024)
	}
	return samples, nil
}

func mul(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || c > math.MaxInt/2 {
		return 0, false
	}
	return c, true
}

// alloc takes the buffer from the pool, turning allocation panics into errors
func alloc[T pixel.Sample](op string, samples int) (data []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, blurerr.E(op, blurerr.Allocation, blurerr.OutOfMemory, fmt.Sprint(r))
		}
	}()
	return getBuffer[T](samples), nil
}

// Release returns the buffer to the pool. The arena must not be used afterwards.
func (a *Arena[T]) Release() {
	if a.Data != nil {
		putBuffer(a.Data)
		a.Data = nil
	}
}

func newEmpty[T pixel.Sample](op string, width, height, channels int, pads Pads, edge pixel.EdgeMode2D, border pixel.Scalar) (*Arena[T], error) {
	samples, err := Size[T](op, width, height, channels, pads)
	if err != nil {
		return nil, err
	}
	data, err := alloc[T](op, samples)
	if err != nil {
		return nil, err
	}
	w := width + pads.Left + pads.Right
	return &Arena[T]{
		Data:      data,
		Width:     w,
		Height:    height + pads.Top + pads.Bottom,
		Stride:    w * channels,
		Channels:  channels,
		Pads:      pads,
		Edge:      edge,
		srcWidth:  width,
		srcHeight: height,
		border:    pixel.ScalarFor[T](border, channels),
	}, nil
}

// New builds an arena from the given image, padded with the given pads.
// Interior samples are exact copies of the source, pads are filled by the
// edge policy.
func New[T pixel.Sample](img *pixel.Image[T], pads Pads, edge pixel.EdgeMode2D, border pixel.Scalar) (*Arena[T], error) {
	const op = "arena.New"
	if err := img.Check(op); err != nil {
		return nil, err
	}
	a, err := newEmpty[T](op, img.Width, img.Height, img.Channels, pads, edge, border)
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.Height; y++ {
		copy(a.Row(y), img.Row(y))
	}
	a.FillBorders()
	return a, nil
}

// NewUnfilled allocates an arena for an image of the given size whose interior
// rows are written later through Row. Contents are undefined until every
// interior row is written and FillBorders has run.
func NewUnfilled[T pixel.Sample](width, height, channels int, pads Pads, edge pixel.EdgeMode2D, border pixel.Scalar) (*Arena[T], error) {
	const op = "arena.NewUnfilled"
	if width <= 0 || height <= 0 {
		return nil, blurerr.E(op, blurerr.Validation, blurerr.ZeroSize, "%dx%d", width, height)
	}
	if channels <= 0 {
		return nil, blurerr.E(op, blurerr.Validation, blurerr.Channels, "%d channels", channels)
	}
	return newEmpty[T](op, width, height, channels, pads, edge, border)
}

// SourceWidth is the width of the unpadded image
func (a *Arena[T]) SourceWidth() int { return a.srcWidth }

// SourceHeight is the height of the unpadded image
func (a *Arena[T]) SourceHeight() int { return a.srcHeight }

// PaddedRow returns padded row py, 0 <= py < Height, including horizontal pads
func (a *Arena[T]) PaddedRow(py int) []T {
	start := py * a.Stride
	return a.Data[start : start+a.Stride]
}

// Row returns the interior samples of source row y, excluding horizontal pads
func (a *Arena[T]) Row(y int) []T {
	start := (y+a.Pads.Top)*a.Stride + a.Pads.Left*a.Channels
	return a.Data[start : start+a.srcWidth*a.Channels]
}

// At returns channel c of the pixel at source coordinates (x,y), which may lie
// anywhere within the pads
func (a *Arena[T]) At(x, y, c int) T {
	return a.Data[(y+a.Pads.Top)*a.Stride+(x+a.Pads.Left)*a.Channels+c]
}

// FillBorders fills all pads from the interior according to the edge policy
func (a *Arena[T]) FillBorders() {
	cn := a.Channels
	left, right := a.Pads.Left, a.Pads.Right
	if left > 0 || right > 0 {
		for y := 0; y < a.srcHeight; y++ {
			row := a.PaddedRow(y + a.Pads.Top)
			for px := 0; px < left; px++ {
				a.fillPixel(row[px*cn:px*cn+cn], row, px-left)
			}
			for px := left + a.srcWidth; px < a.Width; px++ {
				a.fillPixel(row[px*cn:px*cn+cn], row, px-left)
			}
		}
	}
	for py := 0; py < a.Height; py++ {
		y := py - a.Pads.Top
		if y >= 0 && y < a.srcHeight {
			continue
		}
		row := a.PaddedRow(py)
		sy, inside := a.Edge.Vertical.Resolve(y, a.srcHeight)
		if !inside {
			for px := 0; px < a.Width; px++ {
				copy(row[px*cn:px*cn+cn], a.border)
			}
			continue
		}
		copy(row, a.PaddedRow(sy+a.Pads.Top))
	}
}

// fillPixel sets one horizontal pad pixel at source column x within the given padded row
func (a *Arena[T]) fillPixel(dst, row []T, x int) {
	sx, inside := a.Edge.Horizontal.Resolve(x, a.srcWidth)
	if !inside {
		copy(dst, a.border)
		return
	}
	off := (sx + a.Pads.Left) * a.Channels
	copy(dst, row[off:off+a.Channels])
}
