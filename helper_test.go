// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq_test

import (
	"testing"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/shmq"
)

// newQueue creates a heap-backed queue pair for tests.
func newQueue(tb testing.TB, capacity, payload int) *shmq.Queue {
	tb.Helper()
	region := shmq.NewHeapRegion(shmq.QueueSize(capacity, payload))
	q, err := shmq.CreateQueue(region, capacity, payload)
	if err != nil {
		tb.Fatalf("CreateQueue: %v", err)
	}
	return q
}

// execProto drives a protocol to completion on ep via Step+Advance loop.
// Retries on iox.ErrWouldBlock (peer not ready yet), fails the test on
// terminal errors. Used by stepping tests to exercise the non-blocking
// path.
func execProto[R any](tb testing.TB, ep *shmq.Endpoint, protocol kont.Expr[R]) R {
	tb.Helper()
	result, susp := shmq.Step[R](protocol)
	for susp != nil {
		var err error
		result, susp, err = shmq.Advance(ep, susp)
		if err != nil && !shmq.IsWouldBlock(err) {
			tb.Fatalf("Advance: %v", err)
		}
	}
	return result
}

// echoLoop is the canonical server protocol: serve n requests echoing
// each command back as the completion info.
func echoLoop(n int) kont.Eff[int] {
	return shmq.Loop(0, func(served int) kont.Eff[kont.Either[int, int]] {
		if served == n {
			return kont.Pure(kont.Right[int](served))
		}
		return shmq.RecvBind(func(req shmq.Request) kont.Eff[kont.Either[int, int]] {
			return shmq.CompleteThen(req.ID, req.Command,
				kont.Pure(kont.Left[int, int](served+1)),
			)
		})
	})
}
