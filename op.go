// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"code.hybscloud.com/kont"
)

// queueDispatcher is the structural interface for queue operations.
// DispatchQueue is non-blocking: it returns iox.ErrWouldBlock at the
// I/O boundary when a ring cannot make progress, and parkWord names the
// counter word whose advance can unblock the operation.
type queueDispatcher interface {
	DispatchQueue(ep *Endpoint) (kont.Resumed, error)
	parkWord(ep *Endpoint) *uint32
}

// Submit is the effect operation submitting a command.
// Perform(Submit{Command: c}) resumes with the assigned RequestID.
type Submit struct {
	kont.Phantom[RequestID]
	Command []byte
}

// DispatchQueue handles Submit on the endpoint.
// Non-blocking: returns iox.ErrWouldBlock if the submission ring is full.
func (s Submit) DispatchQueue(ep *Endpoint) (kont.Resumed, error) {
	id, err := ep.Submit(s.Command)
	if err != nil {
		return nil, err
	}
	return id, nil
}

// A full push ring drains when the peer's consumed counter advances.
func (Submit) parkWord(ep *Endpoint) *uint32 {
	return ep.push.ConsumedWord()
}

// Await is the effect operation waiting for the completion of ID.
// Perform(Await{ID: id}) resumes with the info bytes.
type Await struct {
	kont.Phantom[[]byte]
	ID RequestID
}

// DispatchQueue handles Await on the endpoint.
// Non-blocking: returns iox.ErrWouldBlock while ID is outstanding.
func (a Await) DispatchQueue(ep *Endpoint) (kont.Resumed, error) {
	info, err := ep.Await(a.ID)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (Await) parkWord(ep *Endpoint) *uint32 {
	return ep.pop.ReadyWord()
}

// Recv is the effect operation receiving the next command (server
// side). Perform(Recv{}) resumes with a Request.
type Recv struct {
	kont.Phantom[Request]
}

// DispatchQueue handles Recv on the endpoint.
// Non-blocking: returns iox.ErrWouldBlock if the submission ring is empty.
func (Recv) DispatchQueue(ep *Endpoint) (kont.Resumed, error) {
	req, err := ep.Receive()
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (Recv) parkWord(ep *Endpoint) *uint32 {
	return ep.pop.ReadyWord()
}

// Complete is the effect operation publishing the response for ID.
// Perform(Complete{ID: id, Info: info}) resumes with struct{}{}.
type Complete struct {
	kont.Phantom[struct{}]
	ID   RequestID
	Info []byte
}

// DispatchQueue handles Complete on the endpoint.
// Non-blocking: returns iox.ErrWouldBlock if the completion ring is full.
func (c Complete) DispatchQueue(ep *Endpoint) (kont.Resumed, error) {
	if err := ep.Complete(c.ID, c.Info); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (Complete) parkWord(ep *Endpoint) *uint32 {
	return ep.push.ConsumedWord()
}
