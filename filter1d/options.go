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

package filter1d

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/mlnoga/sepblur/internal/conv"
	"github.com/mlnoga/sepblur/pixel"
)

// Backend pins the convolution units to one implementation family
type Backend = conv.Backend

const (
	Auto   = conv.Auto
	Scalar = conv.Scalar
	SSE41  = conv.SSE41
	AVX2   = conv.AVX2
	AVX512 = conv.AVX512
	NEON   = conv.NEON
)

// Capabilities of the current CPU, as seen by the dispatcher
type Capabilities = conv.Capabilities

// ParseBackend parses backend names like "avx2" or "scalar"
func ParseBackend(s string) (Backend, error) { return conv.ParseBackend(s) }

// Probe returns the CPU capabilities. Setting SEPBLUR_NO_SIMD=1 in the
// environment reports none.
func Probe() Capabilities { return conv.Probe() }

// Precision selects the numeric contract
type Precision struct {
	Approximate bool `json:"approximate"`
	Bits        uint `json:"bits"` // fractional bits of fixed point weights, 0 for the sample type default
}

// Exact accumulates in float32
func Exact() Precision { return Precision{} }

// Approximate accumulates in fixed point with the given fractional bits,
// or the default for the sample type if bits is 0. Supported for uint8
// and uint16 samples.
func Approximate(bits uint) Precision { return Precision{Approximate: true, Bits: bits} }

func (p Precision) String() string {
	if !p.Approximate {
		return "exact"
	}
	if p.Bits == 0 {
		return "approximate"
	}
	return fmt.Sprintf("approximate(%d)", p.Bits)
}

// ThreadingMode is the kind of threading policy
type ThreadingMode int

const (
	Single          ThreadingMode = iota // always one thread
	Adaptive                             // one thread per 64k pixels, up to the CPU count
	AdaptiveReserve                      // like Adaptive, leaving N CPUs free
	Fixed                                // exactly N threads
)

var threadingNames = []string{"single", "adaptive", "adaptiveReserve", "fixed"}

func (m ThreadingMode) String() string {
	if m >= 0 && int(m) < len(threadingNames) {
		return threadingNames[m]
	}
	return fmt.Sprintf("ThreadingMode(%d)", int(m))
}

// ParseThreadingMode parses the names returned by String, case insensitive
func ParseThreadingMode(s string) (ThreadingMode, error) {
	for i, n := range threadingNames {
		if strings.EqualFold(n, s) {
			return ThreadingMode(i), nil
		}
	}
	return Single, fmt.Errorf("unknown threading mode '%s'", s)
}

func (m ThreadingMode) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func (m *ThreadingMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseThreadingMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Pixels per thread in the adaptive policies
const pixelsPerThread = 65536

// ThreadingPolicy maps image dimensions to a thread count
type ThreadingPolicy struct {
	Mode ThreadingMode `json:"mode"`
	N    int           `json:"n"`
}

// SingleThread runs on the calling goroutine
func SingleThread() ThreadingPolicy { return ThreadingPolicy{Mode: Single} }

// AdaptiveThreads uses one thread per 64k pixels, at least 1 and at most max(GOMAXPROCS, 2)
func AdaptiveThreads() ThreadingPolicy { return ThreadingPolicy{Mode: Adaptive} }

// AdaptiveReserveThreads is like AdaptiveThreads but leaves n CPUs free
func AdaptiveReserveThreads(n int) ThreadingPolicy {
	return ThreadingPolicy{Mode: AdaptiveReserve, N: n}
}

// FixedThreads always uses n threads, or one if n < 1
func FixedThreads(n int) ThreadingPolicy { return ThreadingPolicy{Mode: Fixed, N: n} }

// ThreadCount returns the number of threads for an image of the given size
func (p ThreadingPolicy) ThreadCount(width, height int) int {
	return p.threadCount(width, height, runtime.GOMAXPROCS(0))
}

func (p ThreadingPolicy) threadCount(width, height, cpus int) int {
	switch p.Mode {
	case Fixed:
		return clamp(p.N, 1, p.N)
	case Adaptive:
		return clamp(width*height/pixelsPerThread, 1, max(cpus, 2))
	case AdaptiveReserve:
		return clamp(width*height/pixelsPerThread, 1, max(cpus-p.N, 1))
	}
	return 1
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func (p ThreadingPolicy) String() string {
	switch p.Mode {
	case AdaptiveReserve, Fixed:
		return fmt.Sprintf("%s(%d)", p.Mode, p.N)
	}
	return p.Mode.String()
}

// Options configure a filter call
type Options struct {
	Edge      pixel.EdgeMode2D `json:"edge"`
	Border    pixel.Scalar     `json:"border"`    // fill value per channel for Constant edges
	Precision Precision        `json:"precision"`
	Threading ThreadingPolicy  `json:"threading"`
	Backend   Backend          `json:"backend"`
	Log       io.Writer        `json:"-"` // nil for silence
}

// DefaultOptions reflects at the borders, accumulates exactly and picks
// threads and backend automatically
func DefaultOptions() Options {
	return Options{
		Edge:      pixel.Edges(pixel.Reflect),
		Precision: Exact(),
		Threading: AdaptiveThreads(),
		Backend:   Auto,
	}
}

// UnmarshalJSON fills fields missing from the input with defaults
func (o *Options) UnmarshalJSON(data []byte) error {
	type defaults Options
	def := defaults(DefaultOptions())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*o = Options(def)
	return nil
}
