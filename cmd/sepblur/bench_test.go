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
	"math"
	"testing"
)

type timingTestCase struct {
	MS   []float64
	Mean float64
	Std  float64
}

func TestTimingStats(t *testing.T) {
	epsilon := 1e-9
	tcs := []timingTestCase{
		{[]float64{4}, 4, 0},
		{[]float64{2, 4}, 3, math.Sqrt2},
		{[]float64{1, 1, 1}, 1, 0},
	}
	for _, tc := range tcs {
		mean, std := timingStats(tc.MS)
		if math.IsNaN(std) || math.Abs(mean-tc.Mean) > epsilon || math.Abs(std-tc.Std) > epsilon {
			t.Errorf("%v: mean=%f std=%f; want %f %f", tc.MS, mean, std, tc.Mean, tc.Std)
		}
	}
}
