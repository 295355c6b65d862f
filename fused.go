// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"code.hybscloud.com/kont"
)

// SubmitBind submits a command and passes the assigned id to f.
// Fuses Perform(Submit{Command: c}) + Bind.
func SubmitBind[B any](command []byte, f func(RequestID) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Submit{Command: command}), f)
}

// AwaitBind waits for the completion of id and passes the info to f.
// Fuses Perform(Await{ID: id}) + Bind.
func AwaitBind[B any](id RequestID, f func([]byte) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Await{ID: id}), f)
}

// RecvBind receives the next command and passes it to f.
// Fuses Perform(Recv{}) + Bind.
func RecvBind[B any](f func(Request) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Recv{}), f)
}

// CompleteThen publishes the response for id and continues with next.
// Fuses Perform(Complete{ID: id, Info: info}) + Then.
func CompleteThen[B any](id RequestID, info []byte, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Complete{ID: id, Info: info}), next)
}

// CallBind submits a command, waits for its completion, and passes the
// info to f: the full request/response round trip as one protocol.
func CallBind[B any](command []byte, f func([]byte) kont.Eff[B]) kont.Eff[B] {
	return SubmitBind(command, func(id RequestID) kont.Eff[B] {
		return AwaitBind(id, f)
	})
}

// Loop runs a recursive queue protocol. step returns Left(nextState)
// to continue or Right(result) to finish; the usual server shape is a
// Recv/Complete body looping on Left.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if left, ok := e.GetLeft(); ok {
			return Loop(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}
