// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// pollInterval bounds how long a waiter sleeps before re-checking its
// entries: lost-wake insurance, and the path that observes abort
// conditions raised without a futex wake (peer crashed mid-publish,
// local invalidation on the emulated-wake fallback).
const pollInterval = 10 * time.Millisecond

// WaitToken identifies one registered wait. Cancel removes it without
// side effects on any ring.
type WaitToken struct {
	r     *Reactor
	word  *uint32
	stale uint32
	abort func() bool
	wake  func()
}

// waitEntry collects every token parked on one word. One background
// waiter goroutine serves the entry for as long as tokens remain.
type waitEntry struct {
	word   *uint32
	tokens map[*WaitToken]struct{}
}

// Reactor turns the platform's "block until this memory word changes"
// primitive into task wakeups. It owns one waiter goroutine per
// actively watched word; waiters resolve every token whose condition
// became true and re-enqueue nothing themselves — the wake callback
// does the scheduling.
//
// Explicitly constructed and explicitly closed; never a process-wide
// implicit global, so teardown and tests stay deterministic.
type Reactor struct {
	mtx    sync.Mutex
	words  map[uintptr]*waitEntry
	closed bool
	wg     sync.WaitGroup
}

// NewReactor creates an empty reactor.
func NewReactor() *Reactor {
	return &Reactor{words: make(map[uintptr]*waitEntry)}
}

// Register arranges for wake to run once the value at word differs
// from stale or abort reports true (the error-state wakeup: closure is
// surfaced as a wake, not a completion). If the condition already
// holds, wake runs inline and Register returns nil — a change between
// the caller's own condition check and registration is never lost.
//
// wake may run on a reactor waiter goroutine; it must only schedule,
// never block. A false-negative on the condition is impossible, a
// false-positive (spurious wake) is allowed: woken tasks re-run their
// non-blocking operation.
func (r *Reactor) Register(word *uint32, stale uint32, abort func() bool, wake func()) *WaitToken {
	if atomic.LoadUint32(word) != stale || (abort != nil && abort()) {
		wake()
		return nil
	}

	r.mtx.Lock()
	if r.closed || atomic.LoadUint32(word) != stale {
		r.mtx.Unlock()
		wake()
		return nil
	}
	tok := &WaitToken{r: r, word: word, stale: stale, abort: abort, wake: wake}
	addr := uintptr(unsafe.Pointer(word))
	e := r.words[addr]
	if e == nil {
		e = &waitEntry{word: word, tokens: make(map[*WaitToken]struct{})}
		r.words[addr] = e
		r.wg.Add(1)
		go r.waitLoop(e)
	}
	e.tokens[tok] = struct{}{}
	r.mtx.Unlock()
	return tok
}

// Cancel removes the token. The wake callback will not run on its
// behalf after Cancel returns, unless it was already firing.
func (t *WaitToken) Cancel() {
	if t == nil {
		return
	}
	t.r.mtx.Lock()
	if e := t.r.words[uintptr(unsafe.Pointer(t.word))]; e != nil {
		delete(e.tokens, t)
	}
	t.r.mtx.Unlock()
}

// waitLoop serves one watched word: resolve satisfied tokens, park on
// the platform primitive, repeat. Exits when the last token leaves.
func (r *Reactor) waitLoop(e *waitEntry) {
	defer r.wg.Done()
	for {
		r.mtx.Lock()
		v := atomic.LoadUint32(e.word)
		var fire []*WaitToken
		for tok := range e.tokens {
			if v != tok.stale || r.closed || (tok.abort != nil && tok.abort()) {
				delete(e.tokens, tok)
				fire = append(fire, tok)
			}
		}
		done := len(e.tokens) == 0
		if done {
			delete(r.words, uintptr(unsafe.Pointer(e.word)))
		}
		r.mtx.Unlock()

		for _, tok := range fire {
			tok.wake()
		}
		if done {
			return
		}
		// Remaining tokens all carry stale == v, or they would have
		// fired above.
		wordWait(e.word, v, pollInterval)
	}
}

// Close fires every registered token and stops the waiter goroutines.
// Subsequent Register calls fire inline.
func (r *Reactor) Close() {
	r.mtx.Lock()
	r.closed = true
	words := make([]*uint32, 0, len(r.words))
	for _, e := range r.words {
		words = append(words, e.word)
	}
	r.mtx.Unlock()

	for _, w := range words {
		wordWake(w, wakeAll)
	}
	r.wg.Wait()
}
