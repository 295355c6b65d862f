// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"code.hybscloud.com/kont"
)

// Step evaluates a queue protocol until the first effect suspension.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Advance dispatches the suspended queue operation on the endpoint.
// DispatchQueue is non-blocking: it returns iox.ErrWouldBlock when the
// ring cannot make progress (the I/O boundary), and a terminal error
// (ErrClosed, ErrCanceled, ErrCorrupted) when the operation can never
// succeed.
//
// On nil error the suspension is consumed and the protocol advances to
// the next effect or completion. On iox.ErrWouldBlock the suspension is
// unconsumed and may be retried after the peer makes progress. On a
// terminal error the suspension is unconsumed; the caller decides
// whether to Discard it.
func Advance[R any](ep *Endpoint, susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	op, ok := susp.Op().(queueDispatcher)
	if !ok {
		panic("shmq: unhandled effect in Advance")
	}
	v, err := op.DispatchQueue(ep)
	if err != nil {
		var zero R
		return zero, susp, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}
