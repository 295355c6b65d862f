// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux || !(amd64 || arm64)

package shmq

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// Emulated futex for targets without the syscall: waiters hash into
// address-keyed buckets of channel-based parkers. Only wakes waiters
// within this process; cross-process wakeups on such targets rely on
// the waiter's periodic re-check timeout.

const numWakeBuckets = 512

type wakeWaiter struct {
	addr uintptr
	ch   chan struct{}
}

type wakeBucket struct {
	mtx     sync.Mutex
	waiters map[*wakeWaiter]struct{}
}

var wakeBuckets [numWakeBuckets]wakeBucket

func bucketFor(addr *uint32) *wakeBucket {
	a := uint64(uintptr(unsafe.Pointer(addr)))
	// Fibonacci hash on the address; the word is at least 4-aligned.
	h := (a >> 2) * 0x9e3779b97f4a7c15
	return &wakeBuckets[h>>32%numWakeBuckets]
}

// wordWake wakes up to n waiters parked on the word at addr.
func wordWake(addr *uint32, n int) {
	b := bucketFor(addr)
	target := uintptr(unsafe.Pointer(addr))
	b.mtx.Lock()
	for w := range b.waiters {
		if w.addr != target {
			continue
		}
		select {
		case w.ch <- struct{}{}:
		default:
		}
		if n--; n <= 0 {
			break
		}
	}
	b.mtx.Unlock()
}

// wordWait parks until the word at addr differs from old, a wake is
// delivered, or timeout elapses. Spurious returns are allowed; the
// caller re-checks its condition.
func wordWait(addr *uint32, old uint32, timeout time.Duration) {
	b := bucketFor(addr)
	w := &wakeWaiter{addr: uintptr(unsafe.Pointer(addr)), ch: make(chan struct{}, 1)}

	// Enqueue under the bucket lock after re-checking the value: a
	// publisher either changes the word before our check or delivers
	// its wake after our insert. Same discipline as a kernel futex.
	b.mtx.Lock()
	if atomic.LoadUint32(addr) != old {
		b.mtx.Unlock()
		return
	}
	if b.waiters == nil {
		b.waiters = make(map[*wakeWaiter]struct{})
	}
	b.waiters[w] = struct{}{}
	b.mtx.Unlock()

	t := time.NewTimer(timeout)
	select {
	case <-w.ch:
	case <-t.C:
	}
	t.Stop()

	b.mtx.Lock()
	delete(b.waiters, w)
	b.mtx.Unlock()
}
