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
	"github.com/mlnoga/sepblur/internal/scan"
	"github.com/mlnoga/sepblur/pixel"
)

// fixedRow is the scalar fixed point row unit. Weights W are widened to
// accumulators A before multiplication.
type fixedRow[T pixel.Sample, W Fixed, A Accumulator] struct {
	k     *scan.ScannedKernel[W]
	half  []scan.ScanPoint[W]
	cn    int
	store fixedStore[T, A]
}

func newFixedRow[T pixel.Sample, W Fixed, A Accumulator](k *scan.ScannedKernel[W], channels int) *fixedRow[T, W, A] {
	return &fixedRow[T, W, A]{k: k, half: k.HalfPoints(), cn: channels, store: newFixedStore[T, A](k.Bits)}
}

func (u *fixedRow[T, W, A]) Row(dst, src []T) {
	u.rowFrom(dst, src, 0)
}

func (u *fixedRow[T, W, A]) rowFrom(dst, src []T, x0 int) {
	cn := u.cn
	if u.k.Symmetric {
		last := (u.k.Len() - 1) * cn
		center, hc := A(u.k.Center()), u.k.HalfLength*cn
		for x := x0; x < len(dst); x++ {
			sum := center * A(src[x+hc])
			for _, p := range u.half {
				o := p.Index * cn
				sum += A(p.Weight) * (A(src[x+o]) + A(src[x+last-o]))
			}
			dst[x] = u.store.put(sum)
		}
		return
	}
	for x := x0; x < len(dst); x++ {
		var sum A
		for _, p := range u.k.Points {
			sum += A(p.Weight) * A(src[x+p.Index*cn])
		}
		dst[x] = u.store.put(sum)
	}
}

// fixedColumn is the scalar fixed point column unit
type fixedColumn[T pixel.Sample, W Fixed, A Accumulator] struct {
	k     *scan.ScannedKernel[W]
	half  []scan.ScanPoint[W]
	store fixedStore[T, A]
}

func newFixedColumn[T pixel.Sample, W Fixed, A Accumulator](k *scan.ScannedKernel[W]) *fixedColumn[T, W, A] {
	return &fixedColumn[T, W, A]{k: k, half: k.HalfPoints(), store: newFixedStore[T, A](k.Bits)}
}

func (u *fixedColumn[T, W, A]) Column(dst []T, rows [][]T) {
	u.columnFrom(dst, rows, 0)
}

func (u *fixedColumn[T, W, A]) Column2(dst0, dst1 []T, rows [][]T) {
	u.Column(dst0, rows)
	u.Column(dst1, rows[1:])
}

func (u *fixedColumn[T, W, A]) columnFrom(dst []T, rows [][]T, x0 int) {
	if u.k.Symmetric {
		last := u.k.Len() - 1
		center, c := A(u.k.Center()), rows[u.k.HalfLength]
		for x := x0; x < len(dst); x++ {
			sum := center * A(c[x])
			for _, p := range u.half {
				sum += A(p.Weight) * (A(rows[p.Index][x]) + A(rows[last-p.Index][x]))
			}
			dst[x] = u.store.put(sum)
		}
		return
	}
	for x := x0; x < len(dst); x++ {
		var sum A
		for _, p := range u.k.Points {
			sum += A(p.Weight) * A(rows[p.Index][x])
		}
		dst[x] = u.store.put(sum)
	}
}

// blockedFixedRow computes lanes adjacent outputs at a time
type blockedFixedRow[T pixel.Sample, W Fixed, A Accumulator] struct {
	*fixedRow[T, W, A]
	lanes int
}

func (u *blockedFixedRow[T, W, A]) Row(dst, src []T) {
	cn, lanes := u.cn, u.lanes
	var acc [maxLanes]A
	a := acc[:lanes]
	x := 0
	if u.k.Symmetric {
		last := (u.k.Len() - 1) * cn
		center, hc := A(u.k.Center()), u.k.HalfLength*cn
		for ; x+lanes <= len(dst); x += lanes {
			c := src[x+hc : x+hc+lanes]
			for j := range a {
				a[j] = center * A(c[j])
			}
			for _, p := range u.half {
				o := p.Index * cn
				l, r := src[x+o:x+o+lanes], src[x+last-o:x+last-o+lanes]
				w := A(p.Weight)
				for j := range a {
					a[j] += w * (A(l[j]) + A(r[j]))
				}
			}
			d := dst[x : x+lanes]
			for j := range d {
				d[j] = u.store.put(a[j])
			}
		}
	} else {
		for ; x+lanes <= len(dst); x += lanes {
			for j := range a {
				a[j] = 0
			}
			for _, p := range u.k.Points {
				o := x + p.Index*cn
				s, w := src[o:o+lanes], A(p.Weight)
				for j := range a {
					a[j] += w * A(s[j])
				}
			}
			d := dst[x : x+lanes]
			for j := range d {
				d[j] = u.store.put(a[j])
			}
		}
	}
	u.rowFrom(dst, src, x)
}

// blockedFixedColumn computes lanes adjacent outputs at a time, two output
// rows per pass in Column2
type blockedFixedColumn[T pixel.Sample, W Fixed, A Accumulator] struct {
	*fixedColumn[T, W, A]
	lanes int
}

func (u *blockedFixedColumn[T, W, A]) Column(dst []T, rows [][]T) {
	lanes := u.lanes
	var acc [maxLanes]A
	a := acc[:lanes]
	x := 0
	for ; x+lanes <= len(dst); x += lanes {
		u.block(a, rows, x)
		d := dst[x : x+lanes]
		for j := range d {
			d[j] = u.store.put(a[j])
		}
	}
	u.columnFrom(dst, rows, x)
}

func (u *blockedFixedColumn[T, W, A]) block(a []A, rows [][]T, x int) {
	lanes := len(a)
	if u.k.Symmetric {
		last := u.k.Len() - 1
		center, c := A(u.k.Center()), rows[u.k.HalfLength][x:x+lanes]
		for j := range a {
			a[j] = center * A(c[j])
		}
		for _, p := range u.half {
			l, r, w := rows[p.Index][x:x+lanes], rows[last-p.Index][x:x+lanes], A(p.Weight)
			for j := range a {
				a[j] += w * (A(l[j]) + A(r[j]))
			}
		}
		return
	}
	for j := range a {
		a[j] = 0
	}
	for _, p := range u.k.Points {
		s, w := rows[p.Index][x:x+lanes], A(p.Weight)
		for j := range a {
			a[j] += w * A(s[j])
		}
	}
}

func (u *blockedFixedColumn[T, W, A]) Column2(dst0, dst1 []T, rows [][]T) {
	lanes, weights := u.lanes, u.k.Weights
	var acc0, acc1 [maxLanes]A
	a0, a1 := acc0[:lanes], acc1[:lanes]
	x := 0
	for ; x+lanes <= len(dst0); x += lanes {
		for j := range a0 {
			a0[j], a1[j] = 0, 0
		}
		// input row i is tap i of the first output and tap i-1 of the second
		for i := 0; i <= len(weights); i++ {
			s := rows[i][x : x+lanes]
			if i < len(weights) {
				if w := A(weights[i]); w != 0 {
					for j := range a0 {
						a0[j] += w * A(s[j])
					}
				}
			}
			if i > 0 {
				if w := A(weights[i-1]); w != 0 {
					for j := range a1 {
						a1[j] += w * A(s[j])
					}
				}
			}
		}
		d0, d1 := dst0[x:x+lanes], dst1[x:x+lanes]
		for j := range d0 {
			d0[j] = u.store.put(a0[j])
			d1[j] = u.store.put(a1[j])
		}
	}
	u.columnFrom(dst0, rows, x)
	u.columnFrom(dst1, rows[1:], x)
}
