// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import "sync"

// RequestID correlates a completion to its originating submission.
// Monotonically increasing and unique within the endpoint's lifetime;
// the 64-bit space is treated as practically unbounded.
type RequestID = uint64

// pendingRequest is the client-side record for one in-flight request.
// Created on Submit, destroyed when the matching completion is
// delivered or the request is canceled.
type pendingRequest struct {
	info []byte
	done bool
}

// pendingTable tracks submitted-but-unresolved requests. This is local
// bookkeeping, never visible to the peer, so a plain mutex is fine:
// the lock-free discipline only matters for the shared rings.
type pendingTable struct {
	mtx sync.Mutex
	m   map[RequestID]*pendingRequest
}

func (t *pendingTable) add(id RequestID) {
	t.mtx.Lock()
	if t.m == nil {
		t.m = make(map[RequestID]*pendingRequest)
	}
	t.m[id] = &pendingRequest{}
	t.mtx.Unlock()
}

// resolve routes an arrived completion to its pending request. A
// completion whose id is unknown (canceled, or never ours) is dropped
// silently.
func (t *pendingTable) resolve(id RequestID, info []byte) {
	t.mtx.Lock()
	if p := t.m[id]; p != nil && !p.done {
		p.info = info
		p.done = true
	}
	t.mtx.Unlock()
}

// take removes and returns the delivered info for id, if the matching
// completion has arrived.
func (t *pendingTable) take(id RequestID) ([]byte, bool) {
	t.mtx.Lock()
	p := t.m[id]
	if p == nil || !p.done {
		t.mtx.Unlock()
		return nil, false
	}
	delete(t.m, id)
	t.mtx.Unlock()
	return p.info, true
}

// has reports whether id is still pending (submitted, not resolved,
// not canceled).
func (t *pendingTable) has(id RequestID) bool {
	t.mtx.Lock()
	_, ok := t.m[id]
	t.mtx.Unlock()
	return ok
}

// cancel removes the bookkeeping for id. Cancellation only forgets:
// it never unwinds a claimed slot, so the ring stays consistent and a
// late completion simply finds no home.
func (t *pendingTable) cancel(id RequestID) {
	t.mtx.Lock()
	delete(t.m, id)
	t.mtx.Unlock()
}
