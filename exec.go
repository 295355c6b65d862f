// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Exec runs a Cont-world queue protocol on a pre-created endpoint.
// Blocks past iox.ErrWouldBlock boundaries via adaptive backoff
// (iox.Backoff), without spawning goroutines. Terminal errors
// (ErrClosed, ErrCanceled, ErrCorrupted) abort the protocol.
func Exec[R any](ep *Endpoint, protocol kont.Eff[R]) (R, error) {
	return ExecExpr(ep, kont.Reify(protocol))
}

// ExecExpr runs an Expr-world queue protocol on a pre-created endpoint.
// Blocks past iox.ErrWouldBlock boundaries via adaptive backoff
// (iox.Backoff), without spawning goroutines.
func ExecExpr[R any](ep *Endpoint, protocol kont.Expr[R]) (R, error) {
	result, susp := kont.StepExpr(protocol)
	var bo iox.Backoff
	for susp != nil {
		var err error
		result, susp, err = Advance(ep, susp)
		if err == nil {
			bo.Reset()
			continue
		}
		if !IsWouldBlock(err) {
			susp.Discard()
			var zero R
			return zero, err
		}
		bo.Wait()
	}
	return result, nil
}

// Call is the blocking one-shot round trip: submit command, wait for
// the matching completion, return its info.
func Call(ep *Endpoint, command []byte) ([]byte, error) {
	return Exec(ep, CallBind(command, func(info []byte) kont.Eff[[]byte] {
		return kont.Pure(info)
	}))
}
