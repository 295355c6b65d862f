// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// Request is one command popped from the submission ring, tagged with
// the id its eventual completion must carry.
type Request struct {
	ID      RequestID
	Command []byte
}

// Endpoint is one side's oriented view of a Queue: push is the ring
// this side produces into, pop the ring it consumes from. All methods
// are non-blocking and return ErrWouldBlock at the ring boundary;
// blocking behavior is layered on top by Exec, Run or an Executor.
type Endpoint struct {
	q       *Queue
	push    *Ring
	pop     *Ring
	ids     atomix.Uint64
	pending pendingTable
}

// ClientEnd returns the submitting side of q: Submit, Await, Cancel.
func ClientEnd(q *Queue) *Endpoint {
	return &Endpoint{q: q, push: q.submission, pop: q.completion}
}

// ServerEnd returns the serving side of q: Receive, Complete.
func ServerEnd(q *Queue) *Endpoint {
	return &Endpoint{q: q, push: q.completion, pop: q.submission}
}

// Queue returns the underlying paired queue.
func (ep *Endpoint) Queue() *Queue {
	return ep.q
}

// Submit assigns the next RequestID, records the pending request, and
// pushes the command onto the submission ring. Returns ErrWouldBlock
// when the ring is full; the id is not reused, identifiers stay
// monotonic with gaps.
func (ep *Endpoint) Submit(command []byte) (RequestID, error) {
	if ep.q.Closed() {
		return 0, ErrClosed
	}
	id := ep.ids.Add(1)
	// Record before pushing: another task draining completions on this
	// endpoint may route the response before Submit returns.
	ep.pending.add(id)
	e := Entry{ID: id, Payload: command}
	if err := ep.push.TryPush(&e); err != nil {
		ep.pending.cancel(id)
		return 0, err
	}
	return id, nil
}

// Await drains arrived completions, routing each to its pending
// request by id, then reports on the given id. Completions may arrive
// in any order relative to submissions; matching is purely by
// identifier. Returns ErrWouldBlock while the id is still outstanding,
// ErrClosed once the queue is closed, and ErrCanceled for an id that
// was never submitted here or was canceled.
func (ep *Endpoint) Await(id RequestID) ([]byte, error) {
	for {
		e, err := ep.pop.TryPop()
		if err != nil {
			if IsWouldBlock(err) {
				break
			}
			return nil, err
		}
		ep.pending.resolve(e.ID, e.Payload)
	}
	if info, ok := ep.pending.take(id); ok {
		return info, nil
	}
	// A completion that arrived before closure still delivers; only
	// outstanding waits turn terminal.
	if ep.q.Closed() {
		return nil, ErrClosed
	}
	if !ep.pending.has(id) {
		return nil, ErrCanceled
	}
	return nil, ErrWouldBlock
}

// AwaitTimeout blocks for the completion of id with adaptive backoff,
// abandoning (and canceling) the request once the deadline passes.
func (ep *Endpoint) AwaitTimeout(id RequestID, d time.Duration) ([]byte, error) {
	deadline := time.Now().Add(d)
	var bo iox.Backoff
	for {
		info, err := ep.Await(id)
		if !IsWouldBlock(err) {
			return info, err
		}
		if time.Now().After(deadline) {
			ep.Cancel(id)
			return nil, ErrCanceled
		}
		bo.Wait()
	}
}

// Cancel abandons the wait for id. Bookkeeping only: no slot is
// unwound, and a completion arriving later for id is dropped silently.
func (ep *Endpoint) Cancel(id RequestID) {
	ep.pending.cancel(id)
}

// Receive pops the next submitted command. Returns ErrWouldBlock when
// the submission ring is empty; once the queue is closed, commands
// already published still drain before ErrClosed is reported.
func (ep *Endpoint) Receive() (Request, error) {
	e, err := ep.pop.TryPop()
	if err != nil {
		if IsWouldBlock(err) && ep.q.Closed() {
			return Request{}, ErrClosed
		}
		return Request{}, err
	}
	return Request{ID: e.ID, Command: e.Payload}, nil
}

// Complete publishes the response for id on the completion ring.
// Returns ErrWouldBlock when the completion ring is full.
func (ep *Endpoint) Complete(id RequestID, info []byte) error {
	if ep.q.Closed() {
		return ErrClosed
	}
	e := Entry{ID: id, Payload: info}
	return ep.push.TryPush(&e)
}
