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

package pixel

import (
	"errors"
	"image"
	"testing"

	"github.com/mlnoga/sepblur/blurerr"
)

type resolveTestCase struct {
	Mode EdgeMode
	N    int
	In   []int
	Want []int
}

func TestResolve(t *testing.T) {
	in := []int{-5, -4, -3, -2, -1, 0, 3, 4, 5, 6, 7, 8}
	tcs := []resolveTestCase{
		{Clamp, 4, in, []int{0, 0, 0, 0, 0, 0, 3, 3, 3, 3, 3, 3}},
		{Wrap, 4, in, []int{3, 0, 1, 2, 3, 0, 3, 0, 1, 2, 3, 0}},
		{Reflect, 4, in, []int{1, 2, 3, 2, 1, 0, 3, 2, 1, 0, 1, 2}},
		{Mirror, 4, in, []int{3, 3, 2, 1, 0, 0, 3, 3, 2, 1, 0, 0}},
		{Reflect, 1, []int{-3, -1, 1, 2}, []int{0, 0, 0, 0}},
		{Mirror, 1, []int{-3, -1, 1, 2}, []int{0, 0, 0, 0}},
		{Wrap, 1, []int{-3, -1, 1, 2}, []int{0, 0, 0, 0}},
	}
	for _, tc := range tcs {
		for i, x := range tc.In {
			got, inside := tc.Mode.Resolve(x, tc.N)
			if !inside || got != tc.Want[i] {
				t.Errorf("%v.Resolve(%d,%d)=%d,%v; want %d", tc.Mode, x, tc.N, got, inside, tc.Want[i])
			}
		}
	}

	for _, x := range []int{-2, -1, 4, 9} {
		if _, inside := Constant.Resolve(x, 4); inside {
			t.Errorf("constant.Resolve(%d,4) inside; want outside", x)
		}
	}
	if idx, inside := Constant.Resolve(2, 4); !inside || idx != 2 {
		t.Errorf("constant.Resolve(2,4)=%d,%v; want 2,true", idx, inside)
	}
}

func TestParseEdgeMode(t *testing.T) {
	for _, m := range []EdgeMode{Clamp, Wrap, Reflect, Mirror, Constant} {
		p, err := ParseEdgeMode(m.String())
		if err != nil || p != m {
			t.Errorf("ParseEdgeMode(%s)=%v,%v", m, p, err)
		}
	}
	if _, err := ParseEdgeMode("bogus"); err == nil {
		t.Errorf("ParseEdgeMode(bogus) succeeded")
	}
}

func TestFromFloat(t *testing.T) {
	if v := FromFloat[uint8](-3); v != 0 {
		t.Errorf("u8(-3)=%d; want 0", v)
	}
	if v := FromFloat[uint8](254.5); v != 255 {
		t.Errorf("u8(254.5)=%d; want 255", v)
	}
	if v := FromFloat[uint8](1000); v != 255 {
		t.Errorf("u8(1000)=%d; want 255", v)
	}
	if v := FromFloat[uint16](70000); v != 65535 {
		t.Errorf("u16(70000)=%d; want 65535", v)
	}
	if v := FromFloat[float32](-1.25); v != -1.25 {
		t.Errorf("f32(-1.25)=%f; want -1.25", v)
	}
}

func TestTypeOf(t *testing.T) {
	type gray uint16
	if TypeOf[uint8]() != U8 || TypeOf[uint16]() != U16 || TypeOf[float32]() != F32 || TypeOf[gray]() != U16 {
		t.Errorf("TypeOf mismatch")
	}
}

func TestCheck(t *testing.T) {
	img := NewImage[uint8](4, 3, 3)
	if err := img.Check("test"); err != nil {
		t.Errorf("valid image: %v", err)
	}

	short := &Image[uint8]{Data: make([]uint8, 10), Width: 4, Height: 3, Stride: 12, Channels: 3}
	if err := short.Check("test"); blurerr.ReasonOf(err) != blurerr.BufferTooSmall {
		t.Errorf("short buffer: got %v", err)
	}

	narrow := &Image[uint8]{Data: make([]uint8, 36), Width: 4, Height: 3, Stride: 8, Channels: 3}
	if err := narrow.Check("test"); !errors.Is(err, blurerr.ErrValidation) || blurerr.ReasonOf(err) != blurerr.Stride {
		t.Errorf("narrow stride: got %v", err)
	}

	// last row needs no stride padding
	padded := &Image[uint8]{Data: make([]uint8, 2*16+12), Width: 4, Height: 3, Stride: 16, Channels: 3}
	if err := padded.Check("test"); err != nil {
		t.Errorf("padded stride: %v", err)
	}

	other := NewImage[uint8](4, 2, 3)
	if err := SameSize("test", img, other); !errors.Is(err, blurerr.ErrSizeMismatch) {
		t.Errorf("size mismatch: got %v", err)
	}
}

func TestGray16RoundTrip(t *testing.T) {
	g := image.NewGray16(image.Rect(0, 0, 3, 2))
	for i := range g.Pix {
		g.Pix[i] = uint8(i * 37)
	}
	img := FromGray16(g)
	if img.Data[0] != uint16(g.Pix[0])<<8|uint16(g.Pix[1]) {
		t.Errorf("first sample %d", img.Data[0])
	}
	back := image.NewGray16(g.Bounds())
	ToGray16(img, back)
	for i := range g.Pix {
		if g.Pix[i] != back.Pix[i] {
			t.Fatalf("pix[%d]=%d; want %d", i, back.Pix[i], g.Pix[i])
		}
	}
}

func TestRawRoundTrip(t *testing.T) {
	img := NewImage[float32](3, 2, 3)
	for i := range img.Data {
		img.Data[i] = float32(i) - 2.5
	}
	data := EncodeRaw(img)
	if len(data) != 3*2*3*4 {
		t.Fatalf("len=%d", len(data))
	}
	back, err := DecodeRaw[float32](data, 3, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range img.Data {
		if back.Data[i] != img.Data[i] {
			t.Fatalf("[%d]=%f; want %f", i, back.Data[i], img.Data[i])
		}
	}

	u16, err := DecodeRaw[uint16]([]byte{0x34, 0x12, 0xff, 0x00}, 2, 1, 1)
	if err != nil || u16.Data[0] != 0x1234 || u16.Data[1] != 0xff {
		t.Errorf("u16 %v %v", u16, err)
	}
	if _, err := DecodeRaw[uint16]([]byte{1, 2, 3}, 2, 1, 1); blurerr.ReasonOf(err) != blurerr.BufferTooSmall {
		t.Errorf("odd length: %v", err)
	}
}
