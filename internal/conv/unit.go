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

// Package conv holds the row and column convolution units, one family per
// backend, and the dispatcher which picks the best unit for a configuration.
// Units are pure Go. Backends named after an instruction set differ from the
// scalar one only in block width, taken from that set's register size.
//
// All units of one numeric contract compute every output with the same
// sequence of operations in the same order, so results agree bit for bit
// across backends. Blocked backends only change how many outputs are in
// flight at once.
package conv

import (
	"github.com/mlnoga/sepblur/pixel"
)

// Largest number of lanes in flight for any backend
const maxLanes = 16

// RowUnit convolves one arena row. src holds the padded row, with
// len(src) >= len(dst) + (kernel length - 1) * channels. dst receives one
// output per source sample.
type RowUnit[T pixel.Sample] interface {
	Row(dst, src []T)
}

// ColumnUnit convolves a vertical window of arena rows. rows[i] is the row
// holding tap i for the first output row. Column writes one output row and
// reads len(kernel) rows, Column2 writes two adjacent output rows and reads
// len(kernel)+1 rows.
type ColumnUnit[T pixel.Sample] interface {
	Column(dst []T, rows [][]T)
	Column2(dst0, dst1 []T, rows [][]T)
}

// floatStore converts float32 accumulators into samples. Integer samples are
// rounded half away from zero and saturated, float samples are stored as-is.
type floatStore[T pixel.Sample] struct {
	integer bool
	max     float32
}

func newFloatStore[T pixel.Sample]() floatStore[T] {
	t := pixel.TypeOf[T]()
	return floatStore[T]{integer: t != pixel.F32, max: float32(t.Max())}
}

func (s floatStore[T]) put(v float32) T {
	if !s.integer {
		return T(v)
	}
	if !(v > 0) {
		return 0
	}
	if v >= s.max {
		return T(s.max)
	}
	return T(float64(v) + 0.5)
}

// Fixed is the set of fixed point weight types
type Fixed interface {
	~int16 | ~int32
}

// Accumulator is the set of fixed point accumulator types
type Accumulator interface {
	~int32 | ~int64
}

// fixedStore shifts fixed point accumulators back into sample range, rounding
// half up, and saturates
type fixedStore[T pixel.Sample, A Accumulator] struct {
	bits  uint
	round A
	max   A
}

func newFixedStore[T pixel.Sample, A Accumulator](bits uint) fixedStore[T, A] {
	return fixedStore[T, A]{
		bits:  bits,
		round: A(1) << (bits - 1),
		max:   A(pixel.TypeOf[T]().Max()),
	}
}

func (s fixedStore[T, A]) put(acc A) T {
	v := (acc + s.round) >> s.bits
	if v < 0 {
		return 0
	}
	if v > s.max {
		return T(s.max)
	}
	return T(v)
}
