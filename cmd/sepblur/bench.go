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

package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/sepblur/filter1d"
	"github.com/mlnoga/sepblur/internal/log"
	"github.com/mlnoga/sepblur/pixel"
)

// Time filtering a random image with every available backend, single
// threaded and with all CPUs
func cmdBench() error {
	opts, err := options()
	if err != nil {
		return err
	}
	opts.Log = nil
	if *iter < 1 {
		*iter = 1
	}
	row, col, err := kernelsFromFlags()
	if err != nil {
		return err
	}
	t, err := pixel.ParseSampleType(*sampleType)
	if err != nil {
		return err
	}
	log.Printf("Benchmarking %dx%dx%d %s, kernels %d/%d, %s, %d iterations, %d MiB memory\n",
		*width, *height, *channels, t, len(row), len(col), opts.Precision, *iter, totalMiBs)

	switch t {
	case pixel.U8:
		return bench[uint8](row, col, opts)
	case pixel.U16:
		return bench[uint16](row, col, opts)
	}
	return bench[float32](row, col, opts)
}

func bench[T pixel.Sample](row, col []float32, opts filter1d.Options) error {
	src := randomImage[T](*width, *height, *channels)
	dst := pixel.NewImage[T](*width, *height, *channels)

	caps := filter1d.Probe()
	backends := []filter1d.Backend{filter1d.Scalar}
	for _, b := range []filter1d.Backend{filter1d.SSE41, filter1d.AVX2, filter1d.AVX512, filter1d.NEON} {
		if caps.Has(b) {
			backends = append(backends, b)
		}
	}
	threadCounts := []int{1}
	if n := runtime.GOMAXPROCS(0); n > 1 {
		threadCounts = append(threadCounts, n)
	}
	pixels := float64(*width) * float64(*height)

	log.Printf("%-8s %7s %10s %10s %10s\n", "backend", "threads", "mean ms", "stddev ms", "MPix/s")
	for _, b := range backends {
		for _, n := range threadCounts {
			opts.Backend = b
			opts.Threading = filter1d.FixedThreads(n)
			ms := make([]float64, *iter)
			for i := range ms {
				start := time.Now()
				if err := filter1d.Filter1D(src, dst, row, col, opts); err != nil {
					return fmt.Errorf("%s with %d threads: %w", b, n, err)
				}
				ms[i] = float64(time.Since(start).Nanoseconds()) / 1e6
			}
			mean, std := timingStats(ms)
			log.Printf("%-8s %7d %10.3f %10.3f %10.1f\n", b, n, mean, std, pixels/mean/1e3)
		}
	}
	return nil
}

// timingStats returns mean and sample standard deviation of the timings.
// Fewer than two timings have no spread, and report 0.
func timingStats(ms []float64) (mean, std float64) {
	if len(ms) < 2 {
		return stat.Mean(ms, nil), 0
	}
	return stat.MeanStdDev(ms, nil)
}

// randomImage fills an image with uniformly distributed samples over the
// full range of integer types, or [0,1) for floats
func randomImage[T pixel.Sample](width, height, channels int) *pixel.Image[T] {
	rng := fastrand.RNG{}
	img := pixel.NewImage[T](width, height, channels)
	switch pixel.TypeOf[T]() {
	case pixel.U8:
		for i := range img.Data {
			img.Data[i] = T(rng.Uint32n(256))
		}
	case pixel.U16:
		for i := range img.Data {
			img.Data[i] = T(rng.Uint32n(65536))
		}
	default:
		for i := range img.Data {
			img.Data[i] = T(float32(rng.Uint32()>>8) / (1 << 24))
		}
	}
	return img
}
