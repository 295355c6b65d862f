// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"errors"
	"unsafe"
)

// Region is a mapped view of a shared object provided by the
// object/mapping collaborator. The queue subsystem never allocates the
// physical backing itself; it only formats and operates on the bytes it
// is handed.
type Region interface {
	// Bytes is the mapped memory. The slice must be 8-byte aligned and
	// stable for the lifetime of the mapping.
	Bytes() []byte
	// Close releases the mapping.
	Close() error
}

// HeapRegion is a process-local Region for same-process queue pairs and
// tests. Backed by a uint64 slice so the counter words are aligned the
// same way an mmapped object would be.
type HeapRegion struct {
	words []uint64
	size  int
}

// NewHeapRegion allocates a zeroed process-local region.
func NewHeapRegion(size int) *HeapRegion {
	if size <= 0 {
		panic("shmq: region size must be positive")
	}
	return &HeapRegion{
		words: make([]uint64, (size+7)/8),
		size:  size,
	}
}

// Bytes returns the region memory.
func (r *HeapRegion) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&r.words[0])), r.size)
}

// Close is a no-op for heap regions.
func (r *HeapRegion) Close() error {
	return nil
}

// errRegionSize reports a region too small for the requested geometry.
var errRegionSize = errors.New("shmq: region smaller than queue layout")
