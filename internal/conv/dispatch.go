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

package conv

import (
	"github.com/mlnoga/sepblur/blurerr"
	"github.com/mlnoga/sepblur/internal/scan"
	"github.com/mlnoga/sepblur/pixel"
)

// Kernel carries a scanned kernel in the representation matching the
// numeric contract. Exact configurations use F32, approximate uint8 uses I16,
// approximate uint16 uses I32.
type Kernel struct {
	F32 *scan.ScannedKernel[float32]
	I16 *scan.ScannedKernel[int16]
	I32 *scan.ScannedKernel[int32]
}

// Config selects the numeric contract and optionally pins a backend
type Config struct {
	Channels    int
	Approximate bool
	Backend     Backend // Auto picks the best available
}

// Units is the result of dispatch
type Units[T pixel.Sample] struct {
	Row     RowUnit[T]
	Column  ColumnUnit[T]
	Backend Backend
	// Fallback is set when a pinned backend was unavailable and Scalar was used
	Fallback bool
}

// Select picks the fastest units which implement the requested contract on
// this CPU. Configurations no unit implements yield an Unsupported error.
func Select[T pixel.Sample](cfg Config, caps Capabilities, row, column Kernel) (*Units[T], error) {
	const op = "conv.Select"
	t := pixel.TypeOf[T]()
	if err := checkConfig(op, t, cfg, row, column); err != nil {
		return nil, err
	}

	b, fallback := Scalar, false
	if cfg.Backend != Auto {
		if caps.Has(cfg.Backend) && supports(cfg.Backend, t, cfg.Approximate) {
			b = cfg.Backend
		} else {
			fallback = cfg.Backend != Scalar
		}
	} else {
		for _, p := range preference {
			if caps.Has(p) && supports(p, t, cfg.Approximate) {
				b = p
				break
			}
		}
	}
	u := build[T](b, t, cfg, row, column)
	u.Fallback = fallback
	return u, nil
}

func checkConfig(op string, t pixel.SampleType, cfg Config, row, column Kernel) error {
	switch cfg.Channels {
	case 1, 3, 4:
	default:
		return blurerr.E(op, blurerr.Unsupported, blurerr.Channels, "%d channels", cfg.Channels)
	}
	if !cfg.Approximate {
		if row.F32 == nil || column.F32 == nil {
			return blurerr.E(op, blurerr.Validation, blurerr.Precision, "missing float kernel")
		}
		return nil
	}
	switch t {
	case pixel.U8:
		if row.I16 == nil || column.I16 == nil {
			return blurerr.E(op, blurerr.Validation, blurerr.Precision, "missing 16-bit kernel")
		}
	case pixel.U16:
		if row.I32 == nil || column.I32 == nil {
			return blurerr.E(op, blurerr.Validation, blurerr.Precision, "missing 32-bit kernel")
		}
	default:
		return blurerr.E(op, blurerr.Unsupported, blurerr.Precision, "no fixed point units for %s samples", t)
	}
	return nil
}

// supports reports whether a backend implements the contract. uint16 fixed
// point needs 64-bit accumulators, which the SSE4.1 blocking does not offer.
func supports(b Backend, t pixel.SampleType, approximate bool) bool {
	if b == SSE41 && approximate && t == pixel.U16 {
		return false
	}
	return true
}

// build instantiates the units of one backend without checking the CPU.
// Non-scalar backends get the lane-blocked pure Go units.
func build[T pixel.Sample](b Backend, t pixel.SampleType, cfg Config, row, column Kernel) *Units[T] {
	u := &Units[T]{Backend: b}
	cn := cfg.Channels
	switch {
	case !cfg.Approximate:
		r, c := newExactRow[T](row.F32, cn), newExactColumn[T](column.F32)
		u.Row, u.Column = r, c
		if b != Scalar {
			lanes := b.Lanes(4)
			u.Row, u.Column = &blockedExactRow[T]{r, lanes}, &blockedExactColumn[T]{c, lanes}
		}
	case t == pixel.U8:
		r, c := newFixedRow[T, int16, int32](row.I16, cn), newFixedColumn[T, int16, int32](column.I16)
		u.Row, u.Column = r, c
		if b != Scalar {
			lanes := b.Lanes(4)
			u.Row, u.Column = &blockedFixedRow[T, int16, int32]{r, lanes}, &blockedFixedColumn[T, int16, int32]{c, lanes}
		}
	default:
		r, c := newFixedRow[T, int32, int64](row.I32, cn), newFixedColumn[T, int32, int64](column.I32)
		u.Row, u.Column = r, c
		if b != Scalar {
			lanes := b.Lanes(8)
			u.Row, u.Column = &blockedFixedRow[T, int32, int64]{r, lanes}, &blockedFixedColumn[T, int32, int64]{c, lanes}
		}
	}
	return u
}
