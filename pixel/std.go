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
	"image"
)

// Adapters for the standard library image types. The 8-bit variants share
// the pixel memory of the source, the 16-bit variants copy because the
// standard library stores big-endian bytes.

// FromGray wraps the pixels of a grayscale image without copying
func FromGray(g *image.Gray) *Image[uint8] {
	b := g.Bounds()
	return &Image[uint8]{Data: g.Pix, Width: b.Dx(), Height: b.Dy(), Stride: g.Stride, Channels: 1}
}

// FromRGBA wraps the pixels of an RGBA image without copying
func FromRGBA(r *image.RGBA) *Image[uint8] {
	b := r.Bounds()
	return &Image[uint8]{Data: r.Pix, Width: b.Dx(), Height: b.Dy(), Stride: r.Stride, Channels: 4}
}

// FromNRGBA wraps the pixels of a non-premultiplied RGBA image without copying
func FromNRGBA(r *image.NRGBA) *Image[uint8] {
	b := r.Bounds()
	return &Image[uint8]{Data: r.Pix, Width: b.Dx(), Height: b.Dy(), Stride: r.Stride, Channels: 4}
}

// FromGray16 copies a 16-bit grayscale image into a packed uint16 image
func FromGray16(g *image.Gray16) *Image[uint16] {
	b := g.Bounds()
	img := NewImage[uint16](b.Dx(), b.Dy(), 1)
	for y := 0; y < img.Height; y++ {
		src := g.Pix[y*g.Stride:]
		dst := img.Row(y)
		for x := range dst {
			dst[x] = uint16(src[2*x])<<8 | uint16(src[2*x+1])
		}
	}
	return img
}

// ToGray16 writes a single channel uint16 image back into a 16-bit grayscale image
// of the same size
func ToGray16(img *Image[uint16], g *image.Gray16) {
	for y := 0; y < img.Height; y++ {
		dst := g.Pix[y*g.Stride:]
		src := img.Row(y)
		for x, v := range src {
			dst[2*x] = uint8(v >> 8)
			dst[2*x+1] = uint8(v)
		}
	}
}

// FromRGBA64 copies a 64-bit RGBA image into a packed 4-channel uint16 image
func FromRGBA64(r *image.RGBA64) *Image[uint16] {
	b := r.Bounds()
	img := NewImage[uint16](b.Dx(), b.Dy(), 4)
	for y := 0; y < img.Height; y++ {
		src := r.Pix[y*r.Stride:]
		dst := img.Row(y)
		for i := range dst {
			dst[i] = uint16(src[2*i])<<8 | uint16(src[2*i+1])
		}
	}
	return img
}

// ToRGBA64 writes a 4-channel uint16 image back into a 64-bit RGBA image of the same size
func ToRGBA64(img *Image[uint16], r *image.RGBA64) {
	for y := 0; y < img.Height; y++ {
		dst := r.Pix[y*r.Stride:]
		src := img.Row(y)
		for i, v := range src {
			dst[2*i] = uint8(v >> 8)
			dst[2*i+1] = uint8(v)
		}
	}
}
