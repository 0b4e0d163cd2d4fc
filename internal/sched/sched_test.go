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

package sched

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPartition(t *testing.T) {
	for rows := 0; rows < 40; rows++ {
		for workers := 0; workers < 12; workers++ {
			regions := Partition(rows, workers)
			if rows == 0 {
				if len(regions) != 0 {
					t.Errorf("Partition(0,%d)=%v", workers, regions)
				}
				continue
			}
			next, min, max := 0, rows, 0
			for _, r := range regions {
				if r.Start != next || r.Len() <= 0 {
					t.Fatalf("Partition(%d,%d)=%v not contiguous and non-empty", rows, workers, regions)
				}
				next = r.End
				if r.Len() < min {
					min = r.Len()
				}
				if r.Len() > max {
					max = r.Len()
				}
			}
			if next != rows {
				t.Errorf("Partition(%d,%d)=%v does not cover", rows, workers, regions)
			}
			if max-min > 1 {
				t.Errorf("Partition(%d,%d)=%v unbalanced", rows, workers, regions)
			}
			if workers > 0 && len(regions) > workers {
				t.Errorf("Partition(%d,%d) has %d regions", rows, workers, len(regions))
			}
		}
	}
}

func TestRunCoversAllRows(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 8} {
		rows := 101
		var mu sync.Mutex
		seen := make([]int, rows)
		var active, peak int32
		err := Run(workers, Partition(rows, workers), func(r FilterRegion) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			mu.Lock()
			for y := r.Start; y < r.End; y++ {
				seen[y]++
			}
			mu.Unlock()
			atomic.AddInt32(&active, -1)
		})
		if err != nil {
			t.Fatal(err)
		}
		for y, n := range seen {
			if n != 1 {
				t.Errorf("workers=%d: row %d visited %d times", workers, y, n)
			}
		}
		if int(peak) > workers {
			t.Errorf("workers=%d: %d regions in flight", workers, peak)
		}
	}
}

func TestRunPanic(t *testing.T) {
	for _, workers := range []int{1, 3} {
		err := Run(workers, Partition(9, 3), func(r FilterRegion) {
			if r.Start == 3 {
				panic("boom")
			}
		})
		if err == nil || !strings.Contains(err.Error(), "boom") {
			t.Errorf("workers=%d: got %v", workers, err)
		}
	}
}
