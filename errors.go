// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For TryPush, Submit and Complete: the ring is full (backpressure).
// For TryPop, Receive and Await: nothing has arrived yet.
//
// ErrWouldBlock is a control flow signal, not a failure. The caller
// either retries with backoff or parks on a Reactor until the relevant
// counter word advances.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrClosed indicates the peer is gone or the backing region was
// invalidated. Terminal for every pending request on the queue; the
// queue itself is left untouched.
var ErrClosed = errors.New("shmq: queue closed")

// ErrCanceled indicates a wait was abandoned locally. Not an error for
// the queue: a completion arriving later for the canceled id is dropped
// silently.
var ErrCanceled = errors.New("shmq: request canceled")

// ErrCorrupted indicates a turn-tag or counter invariant violation:
// a protocol or memory-safety fault by a misbehaving peer. The ring
// poisons itself and refuses further operations rather than guess at
// recovery.
var ErrCorrupted = errors.New("shmq: ring corrupted")

// ErrPayloadSize indicates an entry payload larger than the fixed slot
// payload size the queue was created with.
var ErrPayloadSize = errors.New("shmq: payload exceeds slot size")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
