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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Backend identifies one implementation family of the convolution units.
// All families are pure Go. The non-scalar ones are lane-blocked, computing
// as many adjacent outputs per step as one register of the named instruction
// set holds accumulators, and are offered only where the CPU has that set.
type Backend int

const (
	// Auto selects the best available backend
	Auto Backend = iota
	// Scalar is the portable reference implementation
	Scalar
	// SSE41 is lane-blocked at the width of SSE4.1 registers, 16 bytes
	SSE41
	// AVX2 is lane-blocked at the width of AVX2 registers, 32 bytes
	AVX2
	// AVX512 is lane-blocked at the width of AVX-512 registers, 64 bytes
	AVX512
	// NEON is lane-blocked at the width of NEON registers, 16 bytes
	NEON
)

var backendNames = []string{"auto", "scalar", "sse4.1", "avx2", "avx512", "neon"}

func (b Backend) String() string {
	if b >= 0 && int(b) < len(backendNames) {
		return backendNames[b]
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend parses the names returned by String
func ParseBackend(s string) (Backend, error) {
	l := strings.ToLower(s)
	for i, n := range backendNames {
		if n == l {
			return Backend(i), nil
		}
	}
	if l == "sse41" || l == "sse" {
		return SSE41, nil
	}
	return Auto, fmt.Errorf("unknown backend '%s'", s)
}

func (b Backend) MarshalJSON() ([]byte, error) { return json.Marshal(b.String()) }

func (b *Backend) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseBackend(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// RegisterBytes is the register width the backend's blocks are sized by, 0 for scalar
func (b Backend) RegisterBytes() int {
	switch b {
	case SSE41, NEON:
		return 16
	case AVX2:
		return 32
	case AVX512:
		return 64
	}
	return 0
}

// Lanes is the number of accumulators of the given size processed per block
func (b Backend) Lanes(accBytes int) int {
	return b.RegisterBytes() / accBytes
}

// Backends in order of preference
var preference = []Backend{AVX512, AVX2, SSE41, NEON}

// Capabilities of the current CPU
type Capabilities struct {
	SSE41  bool `json:"sse41"`
	AVX2   bool `json:"avx2"`
	AVX512 bool `json:"avx512"`
	NEON   bool `json:"neon"`
}

// Has reports whether the CPU can run the given backend
func (c Capabilities) Has(b Backend) bool {
	switch b {
	case Scalar:
		return true
	case SSE41:
		return c.SSE41
	case AVX2:
		return c.AVX2
	case AVX512:
		return c.AVX512
	case NEON:
		return c.NEON
	}
	return false
}

func (c Capabilities) String() string {
	var names []string
	for _, b := range preference {
		if c.Has(b) {
			names = append(names, b.String())
		}
	}
	if len(names) == 0 {
		return "scalar only"
	}
	return strings.Join(names, " ")
}

// NoSIMDEnv is the environment variable which, when set to a true value,
// restricts dispatch to the scalar backend
const NoSIMDEnv = "SEPBLUR_NO_SIMD"

func noSIMD() bool {
	v := os.Getenv(NoSIMDEnv)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}

// Probe queries the CPU for the features the backends need
func Probe() Capabilities {
	if noSIMD() {
		return Capabilities{}
	}
	return detect()
}
