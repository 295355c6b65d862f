// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Queue is a paired submission/completion channel inside one shared
// region: [preamble][submission ring][completion ring]. It is jointly
// owned by the two communicating components — neither side owns it
// exclusively, and all mutation goes through the rings' atomic
// counters.
//
// The Queue outlives any single request: it is created once when the
// channel between two components is established and torn down only
// when the backing object goes away.
type Queue struct {
	region     Region
	pre        *preamble
	submission *Ring
	completion *Ring
	closed     atomix.Uint32 // local latch; pre.closed carries the shared flag
}

// CreateQueue formats region as a fresh queue pair and returns the
// creator's handle. Capacity rounds up to the next power of two;
// payload is the fixed per-slot payload size of both rings.
//
// The region must be at least QueueSize(capacity, payload) bytes.
func CreateQueue(region Region, capacity, payload int) (*Queue, error) {
	if capacity < 2 {
		panic("shmq: capacity must be >= 2")
	}
	if payload < 0 {
		panic("shmq: payload size must be >= 0")
	}
	capacity = roundToPow2(capacity)

	mem := region.Bytes()
	need := QueueSize(capacity, payload)
	if len(mem) < need {
		return nil, errRegionSize
	}
	clear(mem[:need])

	q := &Queue{region: region}
	q.pre = (*preamble)(unsafe.Pointer(&mem[0]))
	subHdr := (*ringHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(&mem[0])) + preambleSize))
	comHdr := (*ringHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(&mem[0])) + preambleSize + ringBytes(capacity, payload)))

	q.submission = initRing(subHdr, capacity, payload)
	q.completion = initRing(comHdr, capacity, payload)

	q.pre.version.Store(queueVersion)
	q.pre.capacity.Store(uint32(capacity))
	q.pre.payload.Store(uint32(payload))
	q.pre.closed.Store(0)
	// Publish last: an attacher that sees the magic sees the geometry.
	q.pre.magic.StoreRelease(queueMagic)
	return q, nil
}

// AttachQueue opens the peer's view of a queue pair created by
// CreateQueue in the same region. Geometry is validated before any slot
// is trusted; a malformed preamble is corruption, not an I/O error.
func AttachQueue(region Region) (*Queue, error) {
	mem := region.Bytes()
	if uintptr(len(mem)) < preambleSize {
		return nil, errRegionSize
	}

	q := &Queue{region: region}
	q.pre = (*preamble)(unsafe.Pointer(&mem[0]))
	if q.pre.magic.LoadAcquire() != queueMagic || q.pre.version.Load() != queueVersion {
		return nil, ErrCorrupted
	}
	capacity := int(q.pre.capacity.Load())
	payload := int(q.pre.payload.Load())
	if capacity < 2 || capacity&(capacity-1) != 0 || payload < 0 {
		return nil, ErrCorrupted
	}
	if len(mem) < QueueSize(capacity, payload) {
		return nil, errRegionSize
	}

	subHdr := (*ringHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(&mem[0])) + preambleSize))
	comHdr := (*ringHeader)(unsafe.Pointer(uintptr(unsafe.Pointer(&mem[0])) + preambleSize + ringBytes(capacity, payload)))

	var err error
	if q.submission, err = attachRing(subHdr, payload); err != nil {
		return nil, err
	}
	if q.completion, err = attachRing(comHdr, payload); err != nil {
		return nil, err
	}
	return q, nil
}

// Submission returns the submission-direction ring.
func (q *Queue) Submission() *Ring {
	return q.submission
}

// Completion returns the completion-direction ring.
func (q *Queue) Completion() *Ring {
	return q.completion
}

// Cap returns the per-ring capacity.
func (q *Queue) Cap() int {
	return q.submission.Cap()
}

// PayloadSize returns the fixed per-slot payload size.
func (q *Queue) PayloadSize() int {
	return q.submission.PayloadSize()
}

// Close invalidates the queue for both sides: the shared closed word is
// raised and every parked waiter on either end is woken so pending
// requests resolve with ErrClosed. Safe to call from either side, and
// more than once.
func (q *Queue) Close() {
	q.closed.Store(1)
	q.pre.closed.StoreRelease(1)
	q.wakeAllWords()
}

// Invalidate marks the queue closed locally without writing to the
// shared region, for use when the collaborator signals that the backing
// object became unreachable. Parked local tasks resolve with ErrClosed.
// The Queue must not be used once the region is actually unmapped.
func (q *Queue) Invalidate() {
	q.closed.Store(1)
	q.wakeAllWords()
}

// Closed reports whether the queue was closed by either side or
// invalidated locally.
func (q *Queue) Closed() bool {
	return q.closed.Load() != 0 || q.pre.closed.LoadAcquire() != 0
}

func (q *Queue) wakeAllWords() {
	wordWake(q.pre.closedWord(), wakeAll)
	wordWake(q.submission.ReadyWord(), wakeAll)
	wordWake(q.submission.ConsumedWord(), wakeAll)
	wordWake(q.completion.ReadyWord(), wakeAll)
	wordWake(q.completion.ConsumedWord(), wakeAll)
}
