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
	"encoding/json"
	"fmt"
	"strings"
)

// EdgeMode determines how taps outside of the image bounds are resolved
type EdgeMode int

const (
	// Replicate the edge sample: aaa|abcdefgh|hhh
	Clamp EdgeMode = iota
	// Circular continuation: fgh|abcdefgh|abc
	Wrap
	// Mirror without duplicating the edge sample: dcb|abcdefgh|gfe
	Reflect
	// Mirror duplicating the edge sample: cba|abcdefgh|hgf
	Mirror
	// Fill with a per-channel constant
	Constant
)

var edgeModeNames = []string{"clamp", "wrap", "reflect", "mirror", "constant"}

func (m EdgeMode) String() string {
	if m >= 0 && int(m) < len(edgeModeNames) {
		return edgeModeNames[m]
	}
	return fmt.Sprintf("EdgeMode(%d)", int(m))
}

// ParseEdgeMode parses the names returned by String, case insensitive
func ParseEdgeMode(s string) (EdgeMode, error) {
	l := strings.ToLower(s)
	for i, n := range edgeModeNames {
		if n == l {
			return EdgeMode(i), nil
		}
	}
	return Clamp, fmt.Errorf("unknown edge mode '%s'", s)
}

func (m EdgeMode) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func (m *EdgeMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEdgeMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Resolve maps coordinate i on an axis of n samples to a source index.
// Returns inside=false if the coordinate has no source sample, which only
// happens for Constant. Works for any distance from the image, not just
// for taps within one image length.
func (m EdgeMode) Resolve(i, n int) (idx int, inside bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch m {
	case Wrap:
		return euclidMod(i, n), true
	case Reflect:
		if n == 1 {
			return 0, true
		}
		period := 2 * (n - 1)
		j := euclidMod(i, period)
		if j >= n {
			j = period - j
		}
		return j, true
	case Mirror:
		period := 2 * n
		j := euclidMod(i, period)
		if j >= n {
			j = period - 1 - j
		}
		return j, true
	case Constant:
		return -1, false
	}
	if i < 0 {
		return 0, true
	}
	return n - 1, true
}

func euclidMod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}

// EdgeMode2D allows different edge handling per axis
type EdgeMode2D struct {
	Horizontal EdgeMode `json:"horizontal"`
	Vertical   EdgeMode `json:"vertical"`
}

// Edges returns an isotropic EdgeMode2D
func Edges(m EdgeMode) EdgeMode2D { return EdgeMode2D{Horizontal: m, Vertical: m} }

// Scalar holds per-channel constant border values, in sample units
type Scalar [4]float64

// Dup returns a Scalar with v in every channel
func Dup(v float64) Scalar { return Scalar{v, v, v, v} }

// ScalarFor converts the border constant to samples of type T for the first n channels
func ScalarFor[T Sample](s Scalar, n int) []T {
	res := make([]T, n)
	for c := range res {
		res[c] = FromFloat[T](s[c%len(s)])
	}
	return res
}
