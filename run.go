// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// runCapacity is the per-ring capacity of the heap-backed queue Run
// creates. 8 keeps several requests in flight while the pair fits
// comfortably in cache.
const runCapacity = 8

// runPayload is the fixed slot payload size Run uses.
const runPayload = 128

// Run creates a heap-backed queue pair and interleaves the client and
// server Cont-world protocols on the calling goroutine, using adaptive
// backoff (iox.Backoff) when neither side can make progress. Does not
// spawn goroutines. The first terminal error aborts both sides.
func Run[A, B any](client kont.Eff[A], server kont.Eff[B]) (A, B, error) {
	return RunExpr[A, B](kont.Reify(client), kont.Reify(server))
}

// RunExpr creates a heap-backed queue pair and interleaves the client
// and server Expr-world protocols on the calling goroutine.
func RunExpr[A, B any](client kont.Expr[A], server kont.Expr[B]) (A, B, error) {
	var zeroA A
	var zeroB B

	q, err := CreateQueue(NewHeapRegion(QueueSize(runCapacity, runPayload)), runCapacity, runPayload)
	if err != nil {
		return zeroA, zeroB, err
	}
	cEnd := ClientEnd(q)
	sEnd := ServerEnd(q)

	resultA, suspA := kont.StepExpr(client)
	resultB, suspB := kont.StepExpr(server)
	var bo iox.Backoff

	for suspA != nil || suspB != nil {
		progress := false
		if suspA != nil {
			a, next, err := Advance(cEnd, suspA)
			switch {
			case err == nil:
				resultA, suspA = a, next
				progress = true
			case !IsWouldBlock(err):
				suspA.Discard()
				if suspB != nil {
					suspB.Discard()
				}
				return zeroA, zeroB, err
			}
		}
		if suspB != nil {
			b, next, err := Advance(sEnd, suspB)
			switch {
			case err == nil:
				resultB, suspB = b, next
				progress = true
			case !IsWouldBlock(err):
				suspB.Discard()
				if suspA != nil {
					suspA.Discard()
				}
				return zeroA, zeroB, err
			}
		}
		if !progress {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
	return resultA, resultB, nil
}
