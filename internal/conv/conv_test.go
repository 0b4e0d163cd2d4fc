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
	"errors"
	"fmt"
	"testing"

	"github.com/mlnoga/sepblur/blurerr"
	"github.com/mlnoga/sepblur/internal/scan"
	"github.com/mlnoga/sepblur/pixel"
	"github.com/valyala/fastrand"
)

var allBackends = []Backend{Scalar, SSE41, AVX2, AVX512, NEON}

// randomKernel returns n weights. Symmetric kernels mirror the left half.
// Dyadic kernels use multiples of 1/256, which float32 sums represent exactly
// for 8-bit samples.
func randomKernel(rng *fastrand.RNG, n int, symmetric, dyadic bool) []float32 {
	k := make([]float32, n)
	for i := range k {
		if dyadic {
			k[i] = float32(int(rng.Uint32n(97))-32) / 256
		} else {
			k[i] = float32(rng.Uint32n(20001))/10000 - 0.7
		}
		if rng.Uint32n(5) == 0 {
			k[i] = 0
		}
	}
	if symmetric {
		for i := 0; i < n/2; i++ {
			k[n-1-i] = k[i]
		}
	}
	return k
}

func randomSamples[T pixel.Sample](rng *fastrand.RNG, n int) []T {
	t := pixel.TypeOf[T]()
	d := make([]T, n)
	for i := range d {
		switch t {
		case pixel.U8:
			d[i] = T(rng.Uint32n(256))
		case pixel.U16:
			d[i] = T(rng.Uint32n(65536))
		default:
			d[i] = T(float32(rng.Uint32n(1<<20)) / (1 << 12))
		}
	}
	return d
}

func kernelFor(t *testing.T, k []float32, st pixel.SampleType, approximate bool) Kernel {
	t.Helper()
	var (
		res Kernel
		err error
	)
	switch {
	case !approximate:
		res.F32, err = scan.Exact(k)
	case st == pixel.U8:
		res.I16, err = scan.Approx16(k, scan.DefaultBitsU8)
	default:
		res.I32, err = scan.Approx32(k, scan.DefaultBitsU16)
	}
	if err != nil {
		t.Fatalf("scan %v: %v", k, err)
	}
	return res
}

// checkAgree compares every backend against the scalar units on random data
func checkAgree[T pixel.Sample](t *testing.T, approximate bool) {
	rng := fastrand.RNG{}
	rng.Seed(42)
	st := pixel.TypeOf[T]()
	for iter := 0; iter < 200; iter++ {
		n := 2*int(rng.Uint32n(16)) + 1
		cn := []int{1, 3, 4}[rng.Uint32n(3)]
		width := 1 + int(rng.Uint32n(70))
		k := kernelFor(t, randomKernel(&rng, n, iter%2 == 0, false), st, approximate)
		cfg := Config{Channels: cn, Approximate: approximate}
		ref := build[T](Scalar, st, cfg, k, k)

		src := randomSamples[T](&rng, (width+n-1)*cn)
		rows := make([][]T, n+1)
		for i := range rows {
			rows[i] = randomSamples[T](&rng, width*cn)
		}
		wantRow := make([]T, width*cn)
		ref.Row.Row(wantRow, src)
		want0, want1 := make([]T, width*cn), make([]T, width*cn)
		ref.Column.Column(want0, rows)
		ref.Column.Column(want1, rows[1:])

		for _, b := range allBackends[1:] {
			u := build[T](b, st, cfg, k, k)
			name := fmt.Sprintf("%v %v approx=%v n=%d cn=%d w=%d", st, b, approximate, n, cn, width)
			got := make([]T, width*cn)
			u.Row.Row(got, src)
			compare(t, name+" row", got, wantRow)
			u.Column.Column(got, rows)
			compare(t, name+" column", got, want0)
			got0, got1 := make([]T, width*cn), make([]T, width*cn)
			u.Column.Column2(got0, got1, rows)
			compare(t, name+" column2[0]", got0, want0)
			compare(t, name+" column2[1]", got1, want1)
		}
		got0, got1 := make([]T, width*cn), make([]T, width*cn)
		ref.Column.Column2(got0, got1, rows)
		compare(t, "scalar column2[1]", got1, want1)
	}
}

func compare[T pixel.Sample](t *testing.T, name string, got, want []T) {
	t.Helper()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: [%d]=%v; want %v", name, i, got[i], want[i])
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	checkAgree[uint8](t, false)
	checkAgree[uint16](t, false)
	checkAgree[float32](t, false)
	checkAgree[uint8](t, true)
	checkAgree[uint16](t, true)
}

func TestExactMatchesBruteForce(t *testing.T) {
	rng := fastrand.RNG{}
	rng.Seed(7)
	for iter := 0; iter < 100; iter++ {
		n := 2*int(rng.Uint32n(16)) + 1
		cn := []int{1, 3, 4}[rng.Uint32n(3)]
		width := 1 + int(rng.Uint32n(40))
		raw := randomKernel(&rng, n, iter%2 == 0, true)
		k := kernelFor(t, raw, pixel.U8, false)
		src := randomSamples[uint8](&rng, (width+n-1)*cn)
		rows := make([][]uint8, n)
		for i := range rows {
			rows[i] = randomSamples[uint8](&rng, width*cn)
		}

		wantRow, wantCol := make([]uint8, width*cn), make([]uint8, width*cn)
		for x := range wantRow {
			var r, c float64
			for i, w := range raw {
				r += float64(w) * float64(src[x+i*cn])
				c += float64(w) * float64(rows[i][x])
			}
			wantRow[x], wantCol[x] = pixel.FromFloat[uint8](r), pixel.FromFloat[uint8](c)
		}

		for _, b := range allBackends {
			u := build[uint8](b, pixel.U8, Config{Channels: cn}, k, k)
			got := make([]uint8, width*cn)
			u.Row.Row(got, src)
			compare(t, fmt.Sprintf("%v row %v", b, raw), got, wantRow)
			u.Column.Column(got, rows)
			compare(t, fmt.Sprintf("%v column %v", b, raw), got, wantCol)
		}
	}
}

func TestFixedMatchesReference(t *testing.T) {
	rng := fastrand.RNG{}
	rng.Seed(11)
	for iter := 0; iter < 100; iter++ {
		n := 2*int(rng.Uint32n(8)) + 1
		width := 1 + int(rng.Uint32n(40))
		raw := randomKernel(&rng, n, iter%2 == 1, false)
		k := kernelFor(t, raw, pixel.U16, true)
		src := randomSamples[uint16](&rng, width+n-1)

		want := make([]uint16, width)
		for x := range want {
			var acc int64
			for i, w := range k.I32.Weights {
				acc += int64(w) * int64(src[x+i])
			}
			v := (acc + 1<<14) >> 15
			if v < 0 {
				v = 0
			} else if v > 65535 {
				v = 65535
			}
			want[x] = uint16(v)
		}
		for _, b := range allBackends {
			u := build[uint16](b, pixel.U16, Config{Channels: 1, Approximate: true}, k, k)
			got := make([]uint16, width)
			u.Row.Row(got, src)
			compare(t, fmt.Sprintf("%v %v", b, k.I32.Weights), got, want)
		}
	}
}

func TestStoreRounding(t *testing.T) {
	s := newFloatStore[uint8]()
	for _, tc := range []struct {
		in   float32
		want uint8
	}{{-1, 0}, {0.49999997, 0}, {0.5, 1}, {1.5, 2}, {2.5, 3}, {254.5, 255}, {300, 255}} {
		if got := s.put(tc.in); got != tc.want {
			t.Errorf("put(%v)=%d; want %d", tc.in, got, tc.want)
		}
	}
	f := newFixedStore[uint8, int32](7)
	for _, tc := range []struct {
		in   int32
		want uint8
	}{{-200, 0}, {63, 0}, {64, 1}, {128 * 255, 255}, {128*255 + 64, 255}, {1 << 20, 255}} {
		if got := f.put(tc.in); got != tc.want {
			t.Errorf("fixed put(%d)=%d; want %d", tc.in, got, tc.want)
		}
	}
}

func TestSelect(t *testing.T) {
	k := []float32{0.25, 0.5, 0.25}
	exact := kernelFor(t, k, pixel.U8, false)
	q16 := kernelFor(t, k, pixel.U8, true)
	q32 := kernelFor(t, k, pixel.U16, true)
	all := Capabilities{SSE41: true, AVX2: true, AVX512: true}

	u, err := Select[uint8](Config{Channels: 3}, all, exact, exact)
	if err != nil || u.Backend != AVX512 {
		t.Errorf("auto: %v %v", u, err)
	}
	u, _ = Select[uint8](Config{Channels: 3}, Capabilities{}, exact, exact)
	if u.Backend != Scalar || u.Fallback {
		t.Errorf("no simd: %v", u.Backend)
	}
	u, _ = Select[uint8](Config{Channels: 1, Backend: NEON}, all, exact, exact)
	if u.Backend != Scalar || !u.Fallback {
		t.Errorf("pinned unavailable: %v fallback=%v", u.Backend, u.Fallback)
	}
	u, _ = Select[uint8](Config{Channels: 1, Backend: AVX2}, all, exact, exact)
	if u.Backend != AVX2 {
		t.Errorf("pinned: %v", u.Backend)
	}
	u16, _ := Select[uint16](Config{Channels: 4, Approximate: true}, Capabilities{SSE41: true}, q32, q32)
	if u16.Backend != Scalar {
		t.Errorf("u16 fixed point on sse4.1: %v", u16.Backend)
	}
	u, _ = Select[uint8](Config{Channels: 4, Approximate: true}, Capabilities{SSE41: true}, q16, q16)
	if u.Backend != SSE41 {
		t.Errorf("u8 fixed point on sse4.1: %v", u.Backend)
	}

	if _, err := Select[uint8](Config{Channels: 2}, all, exact, exact); !errors.Is(err, blurerr.ErrUnsupported) {
		t.Errorf("2 channels: %v", err)
	}
	if _, err := Select[float32](Config{Channels: 1, Approximate: true}, all, exact, exact); !errors.Is(err, blurerr.ErrUnsupported) {
		t.Errorf("approximate float: %v", err)
	}
	if _, err := Select[uint16](Config{Channels: 1, Approximate: true}, all, q16, q16); !errors.Is(err, blurerr.ErrValidation) {
		t.Errorf("wrong kernel representation: %v", err)
	}
}

func TestProbeOverride(t *testing.T) {
	t.Setenv(NoSIMDEnv, "1")
	if c := Probe(); c != (Capabilities{}) {
		t.Errorf("%s=1 probed %v", NoSIMDEnv, c)
	}
}

func TestParseBackend(t *testing.T) {
	for _, b := range append([]Backend{Auto}, allBackends...) {
		p, err := ParseBackend(b.String())
		if err != nil || p != b {
			t.Errorf("ParseBackend(%s)=%v,%v", b, p, err)
		}
	}
	if _, err := ParseBackend("mmx"); err == nil {
		t.Errorf("ParseBackend(mmx) succeeded")
	}
	if SSE41.Lanes(4) != 4 || AVX512.Lanes(4) != maxLanes || AVX2.Lanes(8) != 4 {
		t.Errorf("lanes")
	}
}
