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

// Package sched splits images into horizontal bands and runs one phase of a
// filter over them in parallel, returning once every band is done.
package sched

import (
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// FilterRegion is a half-open band of rows [Start, End)
type FilterRegion struct {
	Start int
	End   int
}

// Len returns the number of rows in the region
func (r FilterRegion) Len() int { return r.End - r.Start }

func (r FilterRegion) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Partition splits rows into at most workers contiguous, disjoint, non-empty
// regions covering [0, rows). Region sizes differ by at most one.
func Partition(rows, workers int) []FilterRegion {
	if rows <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > rows {
		workers = rows
	}
	regions := make([]FilterRegion, workers)
	for i := range regions {
		regions[i] = FilterRegion{Start: i * rows / workers, End: (i + 1) * rows / workers}
	}
	return regions
}

// Run calls fn once per region on up to workers goroutines and waits for all
// of them. With a single worker, regions run in order on the calling
// goroutine. A panic in fn is returned as an error.
func Run(workers int, regions []FilterRegion, fn func(FilterRegion)) error {
	if workers <= 1 || len(regions) <= 1 {
		for _, r := range regions {
			if err := call(fn, r); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, r := range regions {
		r := r
		g.Go(func() error { return call(fn, r) })
	}
	return g.Wait()
}

func call(fn func(FilterRegion), r FilterRegion) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("worker panic in rows %v: %v\n%s", r, p, debug.Stack())
		}
	}()
	fn(r)
	return nil
}
