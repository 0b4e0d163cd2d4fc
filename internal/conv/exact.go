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

// Products are wrapped in explicit float32 conversions, which forbids fused
// multiply-add and keeps results identical on every architecture.

// exactRow is the scalar float32 row unit
type exactRow[T pixel.Sample] struct {
	k     *scan.ScannedKernel[float32]
	half  []scan.ScanPoint[float32]
	cn    int
	store floatStore[T]
}

func newExactRow[T pixel.Sample](k *scan.ScannedKernel[float32], channels int) *exactRow[T] {
	return &exactRow[T]{k: k, half: k.HalfPoints(), cn: channels, store: newFloatStore[T]()}
}

func (u *exactRow[T]) Row(dst, src []T) {
	u.rowFrom(dst, src, 0)
}

// rowFrom computes outputs x0 and onwards
func (u *exactRow[T]) rowFrom(dst, src []T, x0 int) {
	cn := u.cn
	if u.k.Symmetric {
		last := (u.k.Len() - 1) * cn
		center, hc := u.k.Center(), u.k.HalfLength*cn
		for x := x0; x < len(dst); x++ {
			sum := float32(center * float32(src[x+hc]))
			for _, p := range u.half {
				o := p.Index * cn
				sum += float32(p.Weight * (float32(src[x+o]) + float32(src[x+last-o])))
			}
			dst[x] = u.store.put(sum)
		}
		return
	}
	for x := x0; x < len(dst); x++ {
		var sum float32
		for _, p := range u.k.Points {
			sum += float32(p.Weight * float32(src[x+p.Index*cn]))
		}
		dst[x] = u.store.put(sum)
	}
}

// exactColumn is the scalar float32 column unit
type exactColumn[T pixel.Sample] struct {
	k     *scan.ScannedKernel[float32]
	half  []scan.ScanPoint[float32]
	store floatStore[T]
}

func newExactColumn[T pixel.Sample](k *scan.ScannedKernel[float32]) *exactColumn[T] {
	return &exactColumn[T]{k: k, half: k.HalfPoints(), store: newFloatStore[T]()}
}

func (u *exactColumn[T]) Column(dst []T, rows [][]T) {
	u.columnFrom(dst, rows, 0)
}

func (u *exactColumn[T]) Column2(dst0, dst1 []T, rows [][]T) {
	u.Column(dst0, rows)
	u.Column(dst1, rows[1:])
}

func (u *exactColumn[T]) columnFrom(dst []T, rows [][]T, x0 int) {
	if u.k.Symmetric {
		last := u.k.Len() - 1
		center, c := u.k.Center(), rows[u.k.HalfLength]
		for x := x0; x < len(dst); x++ {
			sum := float32(center * float32(c[x]))
			for _, p := range u.half {
				sum += float32(p.Weight * (float32(rows[p.Index][x]) + float32(rows[last-p.Index][x])))
			}
			dst[x] = u.store.put(sum)
		}
		return
	}
	for x := x0; x < len(dst); x++ {
		var sum float32
		for _, p := range u.k.Points {
			sum += float32(p.Weight * float32(rows[p.Index][x]))
		}
		dst[x] = u.store.put(sum)
	}
}

// blockedExactRow computes lanes adjacent outputs at a time, and finishes
// the remainder with the scalar unit
type blockedExactRow[T pixel.Sample] struct {
	*exactRow[T]
	lanes int
}

func (u *blockedExactRow[T]) Row(dst, src []T) {
	cn, lanes := u.cn, u.lanes
	var acc [maxLanes]float32
	a := acc[:lanes]
	x := 0
	if u.k.Symmetric {
		last := (u.k.Len() - 1) * cn
		center, hc := u.k.Center(), u.k.HalfLength*cn
		for ; x+lanes <= len(dst); x += lanes {
			c := src[x+hc : x+hc+lanes]
			for j := range a {
				a[j] = float32(center * float32(c[j]))
			}
			for _, p := range u.half {
				o := p.Index * cn
				l, r := src[x+o:x+o+lanes], src[x+last-o:x+last-o+lanes]
				w := p.Weight
				for j := range a {
					a[j] += float32(w * (float32(l[j]) + float32(r[j])))
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
				s, w := src[o:o+lanes], p.Weight
				for j := range a {
					a[j] += float32(w * float32(s[j]))
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

// blockedExactColumn computes lanes adjacent outputs at a time. Column2
// produces two output rows per pass over the shared input rows.
type blockedExactColumn[T pixel.Sample] struct {
	*exactColumn[T]
	lanes int
}

func (u *blockedExactColumn[T]) Column(dst []T, rows [][]T) {
	lanes := u.lanes
	var acc [maxLanes]float32
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

// block accumulates lanes outputs starting at column x
func (u *blockedExactColumn[T]) block(a []float32, rows [][]T, x int) {
	lanes := len(a)
	if u.k.Symmetric {
		last := u.k.Len() - 1
		center, c := u.k.Center(), rows[u.k.HalfLength][x:x+lanes]
		for j := range a {
			a[j] = float32(center * float32(c[j]))
		}
		for _, p := range u.half {
			l, r, w := rows[p.Index][x:x+lanes], rows[last-p.Index][x:x+lanes], p.Weight
			for j := range a {
				a[j] += float32(w * (float32(l[j]) + float32(r[j])))
			}
		}
		return
	}
	for j := range a {
		a[j] = 0
	}
	for _, p := range u.k.Points {
		s, w := rows[p.Index][x:x+lanes], p.Weight
		for j := range a {
			a[j] += float32(w * float32(s[j]))
		}
	}
}

func (u *blockedExactColumn[T]) Column2(dst0, dst1 []T, rows [][]T) {
	if u.k.Symmetric {
		// folded pairs differ per output row
		u.Column(dst0, rows)
		u.Column(dst1, rows[1:])
		return
	}
	lanes, weights := u.lanes, u.k.Weights
	var acc0, acc1 [maxLanes]float32
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
				if w := weights[i]; w != 0 {
					for j := range a0 {
						a0[j] += float32(w * float32(s[j]))
					}
				}
			}
			if i > 0 {
				if w := weights[i-1]; w != 0 {
					for j := range a1 {
						a1[j] += float32(w * float32(s[j]))
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
