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

// Package kernels builds common 1D convolution kernels for use with filter1d.
// All builders return odd-length, normalized kernels.
package kernels

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mlnoga/sepblur/internal/arena"
)

// Area under the Gaussian left of the kernel which may be truncated
const acceptOut = 0.01

// GaussianDefiniteIntegral returns the integral of the gaussian function with
// midpoint mu and standard deviation sigma from -Inf to x
func GaussianDefiniteIntegral(mu, sigma, x float64) float64 {
	return 0.5 * (1 + math.Erf((x-mu)/(math.Sqrt2*sigma)))
}

// GaussianRadius returns the radius of the narrowest gaussian kernel which
// leaves less than 1% of the area outside. The search stops at
// arena.MaxRadius, in which case ok is false. NaN and sigma <= 0 give 0.
func GaussianRadius(sigma float64) (radius int, ok bool) {
	if !(sigma > 0) {
		return 0, true
	}
	if math.IsInf(sigma, 1) {
		return arena.MaxRadius, false
	}
	for r := 0; r <= arena.MaxRadius+1; r++ {
		if GaussianDefiniteIntegral(0, sigma, -0.5-float64(r)) < acceptOut {
			return max(r-1, 0), true
		}
	}
	return arena.MaxRadius, false
}

// Gaussian generates a 1D gaussian kernel for the given sigma, based on
// symbolic integration of each tap's pixel area via the error function.
// The kernel is the narrowest which leaves less than 1% of the area outside,
// truncated to arena.MaxRadius. Sigma <= 0 yields the identity kernel [1].
func Gaussian(sigma float64) []float64 {
	if !(sigma > 0) {
		return []float64{1}
	}
	if math.IsInf(sigma, 1) {
		return Box(arena.MaxRadius)
	}
	mu := 0.0
	radius, _ := GaussianRadius(sigma)
	kernel := make([]float64, 2*radius+1)

	// left half and center via the integral, right half mirrored
	lower := GaussianDefiniteIntegral(mu, sigma, -0.5-float64(radius))
	for i := 0; i <= radius; i++ {
		upper := GaussianDefiniteIntegral(mu, sigma, -0.5-float64(radius)+float64(i+1))
		kernel[i] = upper - lower
		lower = upper
	}
	for i := 1; i <= radius; i++ {
		kernel[radius+i] = kernel[radius-i]
	}
	return Normalize(kernel)
}

// Sampled generates a gaussian kernel by sampling exp(-x²/2σ²) at integer
// offsets up to ceil(3σ), at most arena.MaxRadius. Sigma <= 0 yields the
// identity kernel [1].
func Sampled(sigma float64) []float64 {
	if !(sigma > 0) {
		return []float64{1}
	}
	half := arena.MaxRadius
	if r := math.Ceil(3 * sigma); r < float64(arena.MaxRadius) {
		half = int(r)
	}
	kernel := make([]float64, 2*half+1)
	twoSigmaSq := 2 * sigma * sigma
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / twoSigmaSq)
	}
	return Normalize(kernel)
}

// Box generates a uniform kernel of 2*radius+1 taps
func Box(radius int) []float64 {
	if radius < 0 {
		radius = 0
	}
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		kernel[i] = 1
	}
	return Normalize(kernel)
}

// Normalize scales the kernel in place so its taps sum to one. Kernels summing
// to zero are left unchanged.
func Normalize(kernel []float64) []float64 {
	if sum := floats.Sum(kernel); sum != 0 {
		floats.Scale(1/sum, kernel)
	}
	return kernel
}

// Float32 converts a kernel to the float32 coefficients the filters take
func Float32(kernel []float64) []float32 {
	res := make([]float32, len(kernel))
	for i, k := range kernel {
		res[i] = float32(k)
	}
	return res
}
