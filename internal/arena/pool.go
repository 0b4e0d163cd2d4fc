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

package arena

import (
	"sync"

	"github.com/mlnoga/sepblur/pixel"
)

// Pools of constant sized buffers, one per sample type and size, to reduce
// allocation overhead when the same image size is filtered repeatedly
var pools = struct {
	sync.RWMutex
	m map[poolKey]*sync.Pool
}{m: make(map[poolKey]*sync.Pool)}

type poolKey struct {
	typ  any // nil pointer to the sample type
	size int
}

// Returns a pool for []T buffers of the given size
func getSizedPool[T pixel.Sample](size int) *sync.Pool {
	key := poolKey{typ: (*T)(nil), size: size}
	pools.RLock()
	pool := pools.m[key]
	pools.RUnlock()
	if pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]T, size)
			},
		}
		pools.Lock()
		if p, ok := pools.m[key]; ok {
			pool = p
		} else {
			pools.m[key] = pool
		}
		pools.Unlock()
	}
	return pool
}

// Retrieves a buffer of given size from the pool. Contents are undefined.
func getBuffer[T pixel.Sample](size int) []T {
	return getSizedPool[T](size).Get().([]T)
}

// Returns a buffer to the pool
func putBuffer[T pixel.Sample](buf []T) {
	getSizedPool[T](cap(buf)).Put(buf[:cap(buf)])
}

// ClearPools drops all pooled buffers
func ClearPools() {
	pools.Lock()
	pools.m = make(map[poolKey]*sync.Pool)
	pools.Unlock()
}
