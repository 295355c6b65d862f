// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/shmq"
)

func TestRoundTrip(t *testing.T) {
	q := newQueue(t, 8, 32)
	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(q)

	id, err := client.Submit([]byte("ping"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := client.Await(id); !shmq.IsWouldBlock(err) {
		t.Fatalf("Await before completion = %v, want ErrWouldBlock", err)
	}

	req, err := server.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := server.Complete(req.ID, []byte("pong")); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	info, err := client.Await(id)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if string(info[:4]) != "pong" {
		t.Fatalf("info = %q", info[:4])
	}
}

func TestRoundTripExactBytes(t *testing.T) {
	q := newQueue(t, 8, 32)
	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(q)

	// Await returns exactly the info passed to Complete: no slot padding
	// appended, lengths preserved.
	id, err := client.Submit([]byte("ok?"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	req, err := server.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(req.Command) != "ok?" {
		t.Fatalf("command = %q, want %q", req.Command, "ok?")
	}
	if err := server.Complete(req.ID, []byte("ok")); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	info, err := client.Await(id)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if string(info) != "ok" {
		t.Fatalf("info = %q, want %q", info, "ok")
	}
}

func TestRequestIDsMonotonic(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)

	var last shmq.RequestID
	for range 5 {
		id, err := client.Submit([]byte("x"))
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if id <= last {
			t.Fatalf("id %d not greater than %d", id, last)
		}
		last = id
	}

	// A failed submission burns its id: the next success still increases.
	server := shmq.ServerEnd(q)
	for { // fill the ring
		if _, err := client.Submit([]byte("x")); err != nil {
			break
		}
	}
	if _, err := server.Receive(); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	id, err := client.Submit([]byte("x"))
	if err != nil {
		t.Fatalf("Submit after drain: %v", err)
	}
	if id <= last {
		t.Fatalf("id %d not greater than %d after failed submits", id, last)
	}
}

func TestOutOfOrderCompletion(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(q)

	idA, err := client.Submit([]byte("a"))
	if err != nil {
		t.Fatalf("Submit a: %v", err)
	}
	idB, err := client.Submit([]byte("b"))
	if err != nil {
		t.Fatalf("Submit b: %v", err)
	}

	reqA, _ := server.Receive()
	reqB, _ := server.Receive()

	// Server completes in reverse order; routing is by id, not arrival.
	if err := server.Complete(reqB.ID, []byte("B")); err != nil {
		t.Fatalf("Complete B: %v", err)
	}
	if err := server.Complete(reqA.ID, []byte("A")); err != nil {
		t.Fatalf("Complete A: %v", err)
	}

	infoA, err := client.Await(idA)
	if err != nil {
		t.Fatalf("Await a: %v", err)
	}
	infoB, err := client.Await(idB)
	if err != nil {
		t.Fatalf("Await b: %v", err)
	}
	if infoA[0] != 'A' || infoB[0] != 'B' {
		t.Fatalf("misrouted completions: a=%q b=%q", infoA[0], infoB[0])
	}
}

func TestCompletionBeforeAwait(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(q)

	id, _ := client.Submit([]byte("x"))
	req, _ := server.Receive()
	server.Complete(req.ID, []byte("y"))

	// The completion already sits in the ring; the first Await delivers
	// without ever reporting ErrWouldBlock.
	info, err := client.Await(id)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if info[0] != 'y' {
		t.Fatalf("info = %q", info[0])
	}
}

func TestAwaitUnknownID(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)
	if _, err := client.Await(12345); !errors.Is(err, shmq.ErrCanceled) {
		t.Fatalf("Await unknown id = %v, want ErrCanceled", err)
	}
}

func TestCancelDropsLateCompletion(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(q)

	id, _ := client.Submit([]byte("x"))
	client.Cancel(id)

	req, _ := server.Receive()
	if err := server.Complete(req.ID, []byte("late")); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// The late completion is dropped silently; the id stays canceled.
	if _, err := client.Await(id); !errors.Is(err, shmq.ErrCanceled) {
		t.Fatalf("Await canceled id = %v, want ErrCanceled", err)
	}
}

func TestCloseResolvesPending(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)

	idA, _ := client.Submit([]byte("a"))
	idB, _ := client.Submit([]byte("b"))

	q.Close()

	if _, err := client.Await(idA); !errors.Is(err, shmq.ErrClosed) {
		t.Fatalf("Await a after close = %v, want ErrClosed", err)
	}
	if _, err := client.Await(idB); !errors.Is(err, shmq.ErrClosed) {
		t.Fatalf("Await b after close = %v, want ErrClosed", err)
	}
}

func TestInvalidateResolvesPending(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)

	idA, _ := client.Submit([]byte("a"))
	idB, _ := client.Submit([]byte("b"))

	// The backing object became unreachable: both pending waits turn
	// terminal, neither hangs.
	q.Invalidate()

	if _, err := client.Await(idA); !errors.Is(err, shmq.ErrClosed) {
		t.Fatalf("Await a after invalidation = %v, want ErrClosed", err)
	}
	if _, err := client.Await(idB); !errors.Is(err, shmq.ErrClosed) {
		t.Fatalf("Await b after invalidation = %v, want ErrClosed", err)
	}
}

func TestCloseDeliversArrivedCompletion(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(q)

	id, _ := client.Submit([]byte("x"))
	req, _ := server.Receive()
	server.Complete(req.ID, []byte("y"))

	q.Close()

	// A completion published before closure still delivers.
	info, err := client.Await(id)
	if err != nil {
		t.Fatalf("Await after close = %v, want completion", err)
	}
	if info[0] != 'y' {
		t.Fatalf("info = %q", info[0])
	}
}

func TestReceiveDrainsAfterClose(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(q)

	client.Submit([]byte("x"))
	q.Close()

	// Commands published before closure drain first.
	if _, err := server.Receive(); err != nil {
		t.Fatalf("Receive after close = %v, want drained command", err)
	}
	if _, err := server.Receive(); !errors.Is(err, shmq.ErrClosed) {
		t.Fatalf("Receive on drained closed queue = %v, want ErrClosed", err)
	}
}

func TestAwaitTimeout(t *testing.T) {
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)

	id, _ := client.Submit([]byte("x"))
	start := time.Now()
	_, err := client.AwaitTimeout(id, 20*time.Millisecond)
	if !errors.Is(err, shmq.ErrCanceled) {
		t.Fatalf("AwaitTimeout = %v, want ErrCanceled", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("AwaitTimeout returned before the deadline")
	}
}
