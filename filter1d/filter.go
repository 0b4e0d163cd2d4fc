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

// Package filter1d applies separable convolution kernels to images: one
// horizontal pass with a row kernel, then one vertical pass with a column
// kernel, each of odd length.
//
// Source and destination may be the same image. The source is copied into a
// padded working buffer before the destination is written.
package filter1d

import (
	"fmt"
	"math"
	"time"

	"github.com/mlnoga/sepblur/blurerr"
	"github.com/mlnoga/sepblur/internal/arena"
	"github.com/mlnoga/sepblur/internal/conv"
	"github.com/mlnoga/sepblur/internal/scan"
	"github.com/mlnoga/sepblur/internal/sched"
	"github.com/mlnoga/sepblur/kernels"
	"github.com/mlnoga/sepblur/pixel"
)

// plan holds everything a call needs, prepared before any image-sized work
type plan[T pixel.Sample] struct {
	units    *conv.Units[T]
	rowK     conv.Kernel
	colK     conv.Kernel
	rowHalf  int
	colHalf  int
	rowIdent bool
	colIdent bool
	threads  int
}

// Filter1D convolves the rows of src with rowKernel and the columns of the
// result with columnKernel, writing dst. Kernels must have odd length. On
// error dst is unchanged.
func Filter1D[T pixel.Sample](src, dst *pixel.Image[T], rowKernel, columnKernel []float32, opts Options) error {
	const op = "filter1d.Filter1D"
	start := time.Now()
	p, err := prepare(op, src, dst, rowKernel, columnKernel, opts)
	if err != nil {
		return err
	}
	if p.units.Fallback {
		logf(opts, "%s: backend %s unavailable, using %s\n", op, opts.Backend, p.units.Backend)
	}

	switch {
	case p.rowIdent && p.colIdent:
		for y := 0; y < src.Height; y++ {
			copy(dst.Row(y), src.Row(y))
		}
	case p.rowHalf == 0 && p.colHalf == 0:
		err = pointwise(src, dst, p)
	default:
		err = convolve(src, dst, p, opts)
	}
	if err != nil {
		return err
	}
	logf(opts, "%s: %dx%dx%d %s kernels %d/%d %s backend %s threads %d in %v\n",
		op, src.Width, src.Height, src.Channels, pixel.TypeOf[T](), len(rowKernel), len(columnKernel),
		opts.Precision, p.units.Backend, p.threads, time.Since(start))
	return nil
}

// Apply convolves rows and columns with the same kernel
func Apply[T pixel.Sample](src, dst *pixel.Image[T], kernel []float32, opts Options) error {
	return Filter1D(src, dst, kernel, kernel, opts)
}

// GaussianBlur blurs with a gaussian kernel of the given standard deviation
func GaussianBlur[T pixel.Sample](src, dst *pixel.Image[T], sigma float64, opts Options) error {
	const op = "filter1d.GaussianBlur"
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return blurerr.E(op, blurerr.Validation, blurerr.Radius, "sigma %v is not finite", sigma)
	}
	if r, ok := kernels.GaussianRadius(sigma); !ok {
		return blurerr.E(op, blurerr.Validation, blurerr.Radius, "sigma %v needs radius above %d", sigma, r)
	}
	return Apply(src, dst, kernels.Float32(kernels.Gaussian(sigma)), opts)
}

// BoxBlur blurs with a uniform kernel of 2*radius+1 taps
func BoxBlur[T pixel.Sample](src, dst *pixel.Image[T], radius int, opts Options) error {
	if radius < 0 || radius > arena.MaxRadius {
		return blurerr.E("filter1d.BoxBlur", blurerr.Validation, blurerr.Radius, "radius %d outside [0,%d]", radius, arena.MaxRadius)
	}
	return Apply(src, dst, kernels.Float32(kernels.Box(radius)), opts)
}

func logf(opts Options, format string, args ...interface{}) {
	if opts.Log != nil {
		fmt.Fprintf(opts.Log, format, args...)
	}
}

// prepare validates all inputs, scans the kernels, dispatches the units and
// checks the working buffers fit in memory
func prepare[T pixel.Sample](op string, src, dst *pixel.Image[T], rowKernel, columnKernel []float32, opts Options) (*plan[T], error) {
	if src == nil || dst == nil {
		return nil, blurerr.E(op, blurerr.Validation, blurerr.Unspecified, "nil image")
	}
	if err := scan.Validate(op, rowKernel); err != nil {
		return nil, err
	}
	if err := scan.Validate(op, columnKernel); err != nil {
		return nil, err
	}
	if err := src.Check(op); err != nil {
		return nil, err
	}
	if err := dst.Check(op); err != nil {
		return nil, err
	}
	if err := pixel.SameSize(op, src, dst); err != nil {
		return nil, err
	}

	t := pixel.TypeOf[T]()
	p := &plan[T]{}
	var err error
	if p.rowK, err = scanKernel(op, rowKernel, t, opts.Precision); err != nil {
		return nil, err
	}
	if p.colK, err = scanKernel(op, columnKernel, t, opts.Precision); err != nil {
		return nil, err
	}
	p.rowHalf, p.colHalf = len(rowKernel)/2, len(columnKernel)/2
	p.rowIdent, p.colIdent = isIdentity(p.rowK), isIdentity(p.colK)

	cfg := conv.Config{Channels: src.Channels, Approximate: opts.Precision.Approximate, Backend: opts.Backend}
	if p.units, err = conv.Select[T](cfg, conv.Probe(), p.rowK, p.colK); err != nil {
		return nil, err
	}
	p.threads = opts.Threading.ThreadCount(src.Width, src.Height)

	if _, err := arena.Size[T](op, src.Width, src.Height, src.Channels, arena.Horizontal(p.rowHalf)); err != nil {
		return nil, err
	}
	if _, err := arena.Size[T](op, src.Width, src.Height, src.Channels, arena.Vertical(p.colHalf)); err != nil {
		return nil, err
	}
	return p, nil
}

// scanKernel re-encodes coefficients for the precision and sample type
func scanKernel(op string, coeffs []float32, t pixel.SampleType, prec Precision) (k conv.Kernel, err error) {
	if !prec.Approximate {
		k.F32, err = scan.Exact(coeffs)
		return k, err
	}
	bits := prec.Bits
	if bits == 0 {
		bits = scan.DefaultBits(t)
	}
	switch t {
	case pixel.U8:
		k.I16, err = scan.Approx16(coeffs, bits)
	case pixel.U16:
		k.I32, err = scan.Approx32(coeffs, bits)
	default:
		err = blurerr.E(op, blurerr.Unsupported, blurerr.Precision, "approximate precision for %s samples", t)
	}
	return k, err
}

func isIdentity(k conv.Kernel) bool {
	switch {
	case k.F32 != nil:
		return k.F32.IsIdentity()
	case k.I16 != nil:
		return k.I16.IsIdentity()
	case k.I32 != nil:
		return k.I32.IsIdentity()
	}
	return false
}

// pointwise applies two single-tap kernels without building arenas
func pointwise[T pixel.Sample](src, dst *pixel.Image[T], p *plan[T]) error {
	regions := sched.Partition(src.Height, p.threads)
	return sched.Run(p.threads, regions, func(r sched.FilterRegion) {
		tmp := make([]T, src.RowLen())
		rows := [][]T{tmp}
		for y := r.Start; y < r.End; y++ {
			p.units.Row.Row(tmp, src.Row(y))
			p.units.Column.Column(dst.Row(y), rows)
		}
	})
}

// convolve runs the row phase into a vertically padded intermediate arena,
// then the column phase into dst
func convolve[T pixel.Sample](src, dst *pixel.Image[T], p *plan[T], opts Options) error {
	regions := sched.Partition(src.Height, p.threads)

	var inter *arena.Arena[T]
	if p.rowIdent {
		var err error
		inter, err = arena.New(src, arena.Vertical(p.colHalf), opts.Edge, opts.Border)
		if err != nil {
			return err
		}
	} else {
		in, err := arena.New(src, arena.Horizontal(p.rowHalf), opts.Edge, opts.Border)
		if err != nil {
			return err
		}
		inter, err = arena.NewUnfilled[T](src.Width, src.Height, src.Channels, arena.Vertical(p.colHalf), opts.Edge, opts.Border)
		if err != nil {
			in.Release()
			return err
		}
		err = sched.Run(p.threads, regions, func(r sched.FilterRegion) {
			for y := r.Start; y < r.End; y++ {
				p.units.Row.Row(inter.Row(y), in.PaddedRow(y))
			}
		})
		in.Release()
		if err != nil {
			inter.Release()
			return err
		}
		inter.FillBorders()
	}
	defer inter.Release()

	if p.colIdent {
		for y := 0; y < src.Height; y++ {
			copy(dst.Row(y), inter.Row(y))
		}
		return nil
	}

	n := 2*p.colHalf + 1
	return sched.Run(p.threads, regions, func(r sched.FilterRegion) {
		rows := make([][]T, n+1)
		for y := r.Start; y < r.End; y += 2 {
			for i := range rows {
				if py := y + i; py < inter.Height {
					rows[i] = inter.PaddedRow(py)
				}
			}
			if y+1 < r.End {
				p.units.Column.Column2(dst.Row(y), dst.Row(y+1), rows)
			} else {
				p.units.Column.Column(dst.Row(y), rows[:n])
			}
		}
	})
}
