// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux && (amd64 || arm64)

package shmq

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex-backed wait/wake on 32-bit words inside shared mappings.
// Non-private futex ops: the word may live in a region mapped by
// another process, so FUTEX_PRIVATE_FLAG must not be used.

// Futex operation codes; x/sys/unix only exports the syscall number.
const (
	futexWaitOp = 0 // FUTEX_WAIT, non-private
	futexWakeOp = 1 // FUTEX_WAKE, non-private
)

// wordWake wakes up to n waiters parked on the word at addr.
func wordWake(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakeOp,
		uintptr(n),
		0, 0, 0,
	)
}

// wordWait parks until the word at addr differs from old, a wake is
// delivered, or timeout elapses. Spurious returns are allowed; the
// caller re-checks its condition.
func wordWait(addr *uint32, old uint32, timeout time.Duration) {
	// Re-check atomically before entering the syscall: the kernel
	// compares *addr against old under its own lock, closing the
	// publish-then-wake race.
	if atomic.LoadUint32(addr) != old {
		return
	}
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitOp,
		uintptr(old),
		uintptr(unsafe.Pointer(&ts)),
		0, 0,
	)
}
