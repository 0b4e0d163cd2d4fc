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

package arena

import (
	"errors"
	"testing"

	"github.com/mlnoga/sepblur/blurerr"
	"github.com/mlnoga/sepblur/pixel"
)

func testImage(width, height, channels, stride int) *pixel.Image[uint16] {
	img := &pixel.Image[uint16]{
		Data:     make([]uint16, (height-1)*stride+width*channels),
		Width:    width,
		Height:   height,
		Stride:   stride,
		Channels: channels,
	}
	for y := 0; y < height; y++ {
		row := img.Row(y)
		for i := range row {
			row[i] = uint16(1 + y*1000 + i)
		}
	}
	return img
}

func TestArenaInvariant(t *testing.T) {
	modes := []pixel.EdgeMode{pixel.Clamp, pixel.Wrap, pixel.Reflect, pixel.Mirror, pixel.Constant}
	dims := [][3]int{{1, 1, 1}, {5, 3, 3}, {7, 6, 4}, {2, 9, 1}}
	radii := []int{0, 1, 2, 7}
	border := pixel.Scalar{11, 22, 33, 44}

	for _, mode := range modes {
		for _, d := range dims {
			for _, r := range radii {
				w, h, cn := d[0], d[1], d[2]
				img := testImage(w, h, cn, w*cn+3)
				a, err := New(img, Uniform(r), pixel.Edges(mode), border)
				if err != nil {
					t.Fatalf("%v %v r=%d: %v", mode, d, r, err)
				}
				if a.Width != w+2*r || a.Height != h+2*r {
					t.Errorf("%v %v r=%d: padded %dx%d; want %dx%d", mode, d, r, a.Width, a.Height, w+2*r, h+2*r)
				}
				for y := -r; y < h+r; y++ {
					for x := -r; x < w+r; x++ {
						for c := 0; c < cn; c++ {
							got := a.At(x, y, c)
							want := uint16(border[c])
							sx, inX := mode.Resolve(x, w)
							sy, inY := mode.Resolve(y, h)
							if inX && inY {
								want = img.Data[sy*img.Stride+sx*cn+c]
							}
							if got != want {
								t.Fatalf("%v %v r=%d: at(%d,%d,%d)=%d; want %d", mode, d, r, x, y, c, got, want)
							}
						}
					}
				}
			}
		}
	}
}

func TestArenaAnisotropic(t *testing.T) {
	img := testImage(4, 4, 1, 4)
	a, err := New(img, Uniform(2), pixel.EdgeMode2D{Horizontal: pixel.Wrap, Vertical: pixel.Constant}, pixel.Dup(7))
	if err != nil {
		t.Fatal(err)
	}
	if v := a.At(-1, 0, 0); v != img.Data[3] {
		t.Errorf("wrapped left=%d; want %d", v, img.Data[3])
	}
	if v := a.At(-1, -1, 0); v != 7 {
		t.Errorf("corner=%d; want 7", v)
	}
	if v := a.At(1, 5, 0); v != 7 {
		t.Errorf("bottom=%d; want 7", v)
	}
}

func TestUnfilled(t *testing.T) {
	a, err := NewUnfilled[float32](3, 2, 1, Vertical(2), pixel.Edges(pixel.Reflect), pixel.Scalar{})
	if err != nil {
		t.Fatal(err)
	}
	copy(a.Row(0), []float32{1, 2, 3})
	copy(a.Row(1), []float32{4, 5, 6})
	a.FillBorders()
	// reflect of two rows: 0 1 | 0 1 | 0 1
	want := [][]float32{{1, 2, 3}, {4, 5, 6}, {1, 2, 3}, {4, 5, 6}, {1, 2, 3}, {4, 5, 6}}
	for py, w := range want {
		row := a.PaddedRow(py)
		for i := range w {
			if row[i] != w[i] {
				t.Errorf("row %d=%v; want %v", py, row, w)
				break
			}
		}
	}
}

func TestArenaErrors(t *testing.T) {
	img := testImage(4, 4, 1, 4)
	if _, err := New(img, Uniform(MaxRadius+1), pixel.Edges(pixel.Clamp), pixel.Scalar{}); blurerr.ReasonOf(err) != blurerr.Radius {
		t.Errorf("radius: got %v", err)
	}
	if _, err := Size[float32]("test", 1<<30, 1<<30, 4, Pads{}); !errors.Is(err, blurerr.ErrAllocation) {
		t.Errorf("huge: got %v", err)
	}
	bad := &pixel.Image[uint16]{Data: nil, Width: 4, Height: 4, Stride: 4, Channels: 1}
	if _, err := New(bad, Uniform(1), pixel.Edges(pixel.Clamp), pixel.Scalar{}); !errors.Is(err, blurerr.ErrValidation) {
		t.Errorf("short buffer: got %v", err)
	}
}

func TestPoolReuse(t *testing.T) {
	img := testImage(6, 5, 3, 18)
	a, err := New(img, Uniform(2), pixel.Edges(pixel.Clamp), pixel.Scalar{})
	if err != nil {
		t.Fatal(err)
	}
	n := len(a.Data)
	a.Release()
	if a.Data != nil {
		t.Errorf("data kept after release")
	}
	// a recycled buffer must be fully rewritten
	b, err := New(img, Uniform(2), pixel.Edges(pixel.Constant), pixel.Dup(9))
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Data) != n {
		t.Errorf("len=%d; want %d", len(b.Data), n)
	}
	if v := b.At(-2, -2, 0); v != 9 {
		t.Errorf("corner=%d; want 9", v)
	}
	if v := b.At(5, 4, 2); v != img.Data[4*18+5*3+2] {
		t.Errorf("interior=%d", v)
	}
	b.Release()
	ClearPools()
}
