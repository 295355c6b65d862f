// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// publishSpinBudget bounds the producer-side spins: the slot-gate wait
// (claimed slot still being read by the wrapping cycle's consumer) and
// the ordered-publication wait (a predecessor claimed but has not
// published). Among live peers both complete quickly; exhausting the
// budget means a claimant died mid-operation, which is unrecoverable
// for the ring.
const publishSpinBudget = 1 << 20

// wakeAll wakes every waiter parked on a counter word. Waiters are
// spurious-wake tolerant and re-check their condition, so over-waking
// is always safe; under-waking across mutually untrusting components
// is not.
const wakeAll = 1 << 30

// Entry is one ring element: a correlation id plus an opaque payload of
// at most the ring's fixed payload size.
type Entry struct {
	ID      uint64
	Payload []byte
}

// Ring is one side's view of a fixed-capacity MPMC ring living inside a
// shared memory region. The region is jointly owned: all coordination
// goes through the header's atomic counters, never through a lock,
// because the peer may be a different, less trusted component or on the
// far side of a restart boundary.
//
// Obtain rings through CreateQueue/AttachQueue; a Ring never allocates
// or owns its backing memory.
type Ring struct {
	hdr      *ringHeader
	base     unsafe.Pointer // first slot
	stride   uintptr
	payload  int
	mask     uint64
	capacity uint64
	poisoned atomix.Bool // local latch: set once an invariant violation is seen
}

// RingState is an atomic-read snapshot of the ring counters, for
// diagnostics and invariant checks.
type RingState struct {
	Capacity uint64
	Reserve  uint64
	Ready    uint64
	Consumed uint64
}

// initRing formats the ring memory at hdr. The slot area must be
// zeroed by the caller: turn tag 0 never matches a production cycle,
// so a read of a never-written slot is caught.
func initRing(hdr *ringHeader, capacity, payload int) *Ring {
	n := uint64(capacity)
	hdr.reserve.Store(0)
	hdr.ready.Store(0)
	hdr.consumed.Store(0)
	hdr.capacity.StoreRelease(uint32(n))
	return viewRing(hdr, payload)
}

// attachRing validates the header written by the peer and returns a
// local view. Geometry that cannot have come from initRing is reported
// as corruption, not trusted.
func attachRing(hdr *ringHeader, payload int) (*Ring, error) {
	c := hdr.capacity.LoadAcquire()
	if c < 2 || c&(c-1) != 0 {
		return nil, ErrCorrupted
	}
	return viewRing(hdr, payload), nil
}

func viewRing(hdr *ringHeader, payload int) *Ring {
	n := uint64(hdr.capacity.Load())
	return &Ring{
		hdr:      hdr,
		base:     unsafe.Pointer(uintptr(unsafe.Pointer(hdr)) + ringHeaderSize),
		stride:   slotStride(payload),
		payload:  payload,
		mask:     n - 1,
		capacity: n,
	}
}

func (r *Ring) slot(i uint64) *slotHeader {
	return (*slotHeader)(unsafe.Pointer(uintptr(r.base) + uintptr(i)*r.stride))
}

func (r *Ring) slotPayload(s *slotHeader) []byte {
	p := unsafe.Pointer(uintptr(unsafe.Pointer(s)) + slotHeaderSize)
	return unsafe.Slice((*byte)(p), r.payload)
}

// TryPush claims the next reserve slot, writes the entry, and publishes
// it in claim order. Returns ErrWouldBlock when the ring is full; the
// claim itself never blocks the caller.
//
// The consumed counter admits a wrapping producer before the claiming
// consumer has finished reading the slot, so the producer additionally
// gates on the slot's free-state turn tag (bounded spin, released by
// the consumer when its copy completes) before writing.
//
// Publication is ordered: a producer that claimed out of order spins
// (bounded, ordering among producers completes in bounded time) until
// ready reaches its own index before bumping it, so a consumer never
// observes a hole below ready.
func (r *Ring) TryPush(e *Entry) error {
	if len(e.Payload) > r.payload {
		return ErrPayloadSize
	}
	if r.poisoned.Load() {
		return ErrCorrupted
	}

	var claimed uint64
	sw := spin.Wait{}
	for {
		reserve := r.hdr.reserve.LoadAcquire()
		consumed := r.hdr.consumed.LoadAcquire()
		if reserve-consumed >= r.capacity {
			return ErrWouldBlock
		}
		if r.hdr.reserve.CompareAndSwapAcqRel(reserve, reserve+1) {
			claimed = reserve
			break
		}
		sw.Once()
	}

	s := r.slot(claimed & r.mask)
	sw = spin.Wait{}
	for i := 0; s.turn.LoadAcquire() != freeTurnOf(claimed, r.capacity); i++ {
		if i >= publishSpinBudget {
			r.poisoned.Store(true)
			return ErrCorrupted
		}
		sw.Once()
	}
	s.id.Store(e.ID)
	s.length.Store(uint32(len(e.Payload)))
	buf := r.slotPayload(s)
	n := copy(buf, e.Payload)
	clear(buf[n:])
	s.turn.StoreRelease(turnOf(claimed, r.capacity))

	sw = spin.Wait{}
	for i := 0; r.hdr.ready.LoadAcquire() != claimed; i++ {
		if i >= publishSpinBudget {
			r.poisoned.Store(true)
			return ErrCorrupted
		}
		sw.Once()
	}
	r.hdr.ready.StoreRelease(claimed + 1)
	wordWake(r.hdr.readyWord(), wakeAll)
	return nil
}

// TryPop claims the next consumed slot and returns a copy of its entry.
// Returns ErrWouldBlock when the ring is empty.
//
// The slot turn tag is checked against the produced tag derived from
// the claimed index before any slot byte is trusted: publication of
// ready happens after the produced-tag release-store, so a mismatch
// means the counter protocol was violated by the peer. The ring poisons
// itself and every further operation fails with ErrCorrupted.
//
// The slot is released back to producers (free tag of the next cycle)
// only after the copy completes; until then a wrapping producer parks
// on the slot gate, never overwriting bytes being read.
func (r *Ring) TryPop() (Entry, error) {
	if r.poisoned.Load() {
		return Entry{}, ErrCorrupted
	}

	sw := spin.Wait{}
	for {
		consumed := r.hdr.consumed.LoadAcquire()
		ready := r.hdr.ready.LoadAcquire()
		if consumed == ready {
			return Entry{}, ErrWouldBlock
		}
		if !r.hdr.consumed.CompareAndSwapAcqRel(consumed, consumed+1) {
			sw.Once()
			continue
		}

		s := r.slot(consumed & r.mask)
		if s.turn.LoadAcquire() != turnOf(consumed, r.capacity) {
			r.poisoned.Store(true)
			return Entry{}, ErrCorrupted
		}
		length := s.length.Load()
		if int(length) > r.payload {
			r.poisoned.Store(true)
			return Entry{}, ErrCorrupted
		}
		e := Entry{
			ID:      s.id.Load(),
			Payload: append([]byte(nil), r.slotPayload(s)[:length]...),
		}
		s.turn.StoreRelease(turnOf(consumed, r.capacity) + 1)
		wordWake(r.hdr.consumedWord(), wakeAll)
		return e, nil
	}
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return int(r.capacity)
}

// PayloadSize returns the fixed payload size of every slot.
func (r *Ring) PayloadSize() int {
	return r.payload
}

// Poisoned reports whether this side has observed an invariant
// violation and refuses further operations.
func (r *Ring) Poisoned() bool {
	return r.poisoned.Load()
}

// State returns a snapshot of the ring counters. The three loads are
// not mutually atomic; values are for diagnostics only.
func (r *Ring) State() RingState {
	return RingState{
		Capacity: r.capacity,
		Reserve:  r.hdr.reserve.LoadAcquire(),
		Ready:    r.hdr.ready.LoadAcquire(),
		Consumed: r.hdr.consumed.LoadAcquire(),
	}
}

// ReadyWord exposes the futex word that advances with every publish.
// Consumers park on it through a Reactor.
func (r *Ring) ReadyWord() *uint32 {
	return r.hdr.readyWord()
}

// ConsumedWord exposes the futex word that advances with every pop.
// Producers park on it through a Reactor.
func (r *Ring) ConsumedWord() *uint32 {
	return r.hdr.consumedWord()
}
