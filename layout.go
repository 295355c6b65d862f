// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// cacheLine isolates producer-written and consumer-written header
// fields from each other to avoid false sharing across components.
const cacheLine = 64

const (
	// queueMagic marks a region formatted by CreateQueue.
	queueMagic uint32 = 0x53514d51 // "QMQS" little-endian

	// queueVersion is bumped on any wire layout change. Attach refuses
	// regions written by a different version.
	queueVersion uint32 = 1
)

// preamble is the mapping collaborator's framing at offset 0 of a queue
// region. It is not part of the ring wire format: it lets an attaching
// component validate geometry and lets either side observe invalidation.
// The closed field doubles as a futex word.
type preamble struct {
	magic    atomix.Uint32
	version  atomix.Uint32
	capacity atomix.Uint32
	payload  atomix.Uint32
	closed   atomix.Uint32
	_        [cacheLine - 20]byte
}

// ringHeader is the bit-exact shared header of one ring.
//
// The three counters are unbounded, never reset; the physical slot of
// index i is i mod capacity. Invariant: consumed ≤ ready ≤ reserve and
// reserve − consumed ≤ capacity. Each counter lives on its own cache
// line: reserve and ready are producer-written, consumed is
// consumer-written.
type ringHeader struct {
	capacity atomix.Uint32 // power of two, immutable after initRing
	_        [cacheLine - 4]byte
	reserve  atomix.Uint64 // next slot index a producer may claim
	_        [cacheLine - 8]byte
	ready    atomix.Uint64 // slots below this index are published
	_        [cacheLine - 8]byte
	consumed atomix.Uint64 // next slot index a consumer will take
	_        [cacheLine - 8]byte
}

// slotHeader precedes the payload bytes of every slot; the payload
// starts at offset 16 for every payload size.
//
// turn doubles as the slot gate: it advances two per cycle, free for
// cycle c at 2c and produced at 2c+1, so a wrapping producer cannot
// overwrite a slot the claiming consumer is still reading. Ordering on
// turn (release on produce and on release-to-free, acquire on the
// matching checks) is what publishes id, length and the payload.
type slotHeader struct {
	turn   atomix.Uint32
	length atomix.Uint32 // bytes of payload actually written
	id     atomix.Uint64
}

const (
	preambleSize   = unsafe.Sizeof(preamble{})
	ringHeaderSize = unsafe.Sizeof(ringHeader{})
	slotHeaderSize = unsafe.Sizeof(slotHeader{})
)

// slotStride returns the byte stride of one slot for the given payload
// size, rounded up so every slotHeader stays 8-byte aligned.
func slotStride(payload int) uintptr {
	return (slotHeaderSize + uintptr(payload) + 7) &^ 7
}

// ringBytes returns the bytes occupied by one ring: header plus slots.
func ringBytes(capacity, payload int) uintptr {
	return ringHeaderSize + uintptr(capacity)*slotStride(payload)
}

// QueueSize returns the region size CreateQueue requires for the given
// geometry: [preamble][submission ring][completion ring]. Capacity is
// rounded up to the next power of two, matching CreateQueue.
func QueueSize(capacity, payload int) int {
	return int(preambleSize + 2*ringBytes(roundToPow2(capacity), payload))
}

// turnOf derives the produced-state turn tag of slot index i: 2c+1 for
// production cycle c. The zeroed slot area of a fresh region carries
// tag 0 — free for cycle 0 — and never validates as produced.
func turnOf(i, capacity uint64) uint32 {
	return uint32(i/capacity)*2 + 1
}

// freeTurnOf derives the free-state turn tag a producer of slot index i
// must observe before writing: 2c for cycle c. The consumer of cycle
// c−1 stores it when its copy completes.
func freeTurnOf(i, capacity uint64) uint32 {
	return turnOf(i, capacity) - 1
}

// readyWord returns the 32-bit futex word overlaying the low half of
// the ready counter. The futex build targets are little-endian, so the
// low half is the first four bytes; on the emulated-wake fallback only
// explicit wakes matter and the overlay choice is irrelevant.
func (h *ringHeader) readyWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&h.ready))
}

// consumedWord returns the futex word overlaying the low half of the
// consumed counter.
func (h *ringHeader) consumedWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&h.consumed))
}

// closedWord returns the futex word carrying the shared closed flag.
func (p *preamble) closedWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&p.closed))
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
