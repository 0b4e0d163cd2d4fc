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
	"encoding/binary"
	"math"

	"github.com/mlnoga/sepblur/blurerr"
)

// DecodeRaw reads a packed image of interleaved little-endian samples
func DecodeRaw[T Sample](data []byte, width, height, channels int) (*Image[T], error) {
	const op = "pixel.DecodeRaw"
	if width <= 0 || height <= 0 {
		return nil, blurerr.E(op, blurerr.Validation, blurerr.ZeroSize, "%dx%d", width, height)
	}
	if channels <= 0 {
		return nil, blurerr.E(op, blurerr.Validation, blurerr.Channels, "%d channels", channels)
	}
	t := TypeOf[T]()
	n := width * height * channels
	if n/width/height != channels || len(data) != n*t.Bytes() {
		return nil, blurerr.E(op, blurerr.Validation, blurerr.BufferTooSmall, "%d bytes for %dx%dx%d %s", len(data), width, height, channels, t)
	}
	img := NewImage[T](width, height, channels)
	switch t {
	case U8:
		for i := range img.Data {
			img.Data[i] = T(data[i])
		}
	case U16:
		for i := range img.Data {
			img.Data[i] = T(binary.LittleEndian.Uint16(data[2*i:]))
		}
	default:
		for i := range img.Data {
			img.Data[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
		}
	}
	return img, nil
}

// EncodeRaw writes the image as packed interleaved little-endian samples
func EncodeRaw[T Sample](img *Image[T]) []byte {
	t := TypeOf[T]()
	size := t.Bytes()
	res := make([]byte, 0, img.Width*img.Height*img.Channels*size)
	for y := 0; y < img.Height; y++ {
		for _, v := range img.Row(y) {
			switch t {
			case U8:
				res = append(res, uint8(v))
			case U16:
				res = binary.LittleEndian.AppendUint16(res, uint16(v))
			default:
				res = binary.LittleEndian.AppendUint32(res, math.Float32bits(float32(v)))
			}
		}
	}
	return res
}
