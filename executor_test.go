// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/shmq"
)

func TestSpawnRoundTrip(t *testing.T) {
	skipRace(t)
	q := newQueue(t, 8, 32)
	ex := shmq.NewExecutor(shmq.WithWorkers(2))
	defer ex.Shutdown()

	server := shmq.Spawn(ex, shmq.ServerEnd(q), kont.Reify(echoLoop(1)))
	client := shmq.Spawn(ex, shmq.ClientEnd(q), kont.Reify(
		shmq.CallBind([]byte("ping"), func(info []byte) kont.Eff[byte] {
			return kont.Pure(info[0])
		}),
	))

	got, err := client.Wait()
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if got != 'p' {
		t.Fatalf("client got %q, want 'p'", got)
	}
	served, err := server.Wait()
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	if served != 1 {
		t.Fatalf("served %d, want 1", served)
	}
}

func TestSpawnManyClients(t *testing.T) {
	skipRace(t)
	const n = 32
	q := newQueue(t, 8, 32)
	ex := shmq.NewExecutor(shmq.WithWorkers(4))
	defer ex.Shutdown()

	server := shmq.Spawn(ex, shmq.ServerEnd(q), kont.Reify(echoLoop(n)))

	// All clients share one endpoint: completions for any of them may be
	// drained by any of them and still route correctly.
	clientEnd := shmq.ClientEnd(q)
	futures := make([]*shmq.Future[byte], n)
	for i := range n {
		cmd := []byte{byte(i)}
		futures[i] = shmq.Spawn(ex, clientEnd, kont.Reify(
			shmq.CallBind(cmd, func(info []byte) kont.Eff[byte] {
				return kont.Pure(info[0])
			}),
		))
	}

	for i, fut := range futures {
		got, err := fut.Wait()
		if err != nil {
			t.Fatalf("client %d: %v", i, err)
		}
		if got != byte(i) {
			t.Fatalf("client %d got %d", i, got)
		}
	}
	if served, err := server.Wait(); err != nil || served != n {
		t.Fatalf("server = (%d, %v), want (%d, nil)", served, err, n)
	}
}

func TestSpawnCompletedBeforeSpawn(t *testing.T) {
	skipRace(t)
	q := newQueue(t, 8, 16)
	client := shmq.ClientEnd(q)
	server := shmq.ServerEnd(q)

	// The completion already sits in the ring when the awaiting protocol
	// is spawned: it must resolve without ever parking.
	id, err := client.Submit([]byte("x"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	req, _ := server.Receive()
	server.Complete(req.ID, []byte("y"))

	ex := shmq.NewExecutor()
	defer ex.Shutdown()
	fut := shmq.Spawn(ex, client, kont.Reify(
		shmq.AwaitBind(id, func(info []byte) kont.Eff[byte] {
			return kont.Pure(info[0])
		}),
	))
	got, err := fut.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != 'y' {
		t.Fatalf("got %q, want 'y'", got)
	}
}

func TestSpawnCloseResolvesParked(t *testing.T) {
	skipRace(t)
	q := newQueue(t, 8, 16)
	ex := shmq.NewExecutor()
	defer ex.Shutdown()

	// Recv on an idle queue parks. Closure is the error-state wakeup:
	// the parked task resolves with ErrClosed instead of hanging.
	fut := shmq.Spawn(ex, shmq.ServerEnd(q), kont.Reify(
		shmq.RecvBind(func(req shmq.Request) kont.Eff[struct{}] {
			return kont.Pure(struct{}{})
		}),
	))
	q.Close()
	if _, err := fut.Wait(); !errors.Is(err, shmq.ErrClosed) {
		t.Fatalf("parked Recv after close = %v, want ErrClosed", err)
	}
}

func TestSpawnFutureDone(t *testing.T) {
	q := newQueue(t, 8, 16)
	ex := shmq.NewExecutor()
	defer ex.Shutdown()

	fut := shmq.Spawn(ex, shmq.ClientEnd(q), kont.Reify(kont.Pure(42)))
	if v, err := fut.Wait(); err != nil || v != 42 {
		t.Fatalf("Wait = (%d, %v), want (42, nil)", v, err)
	}
	if !fut.Done() {
		t.Fatal("Done false after Wait returned")
	}
}

func TestShutdownResolvesParked(t *testing.T) {
	skipRace(t)
	q := newQueue(t, 8, 16)
	ex := shmq.NewExecutor()

	fut := shmq.Spawn(ex, shmq.ServerEnd(q), kont.Reify(
		shmq.RecvBind(func(req shmq.Request) kont.Eff[struct{}] {
			return kont.Pure(struct{}{})
		}),
	))
	ex.Shutdown()
	if !fut.Done() {
		t.Fatal("future unresolved after Shutdown")
	}
	if _, err := fut.Wait(); !errors.Is(err, shmq.ErrClosed) {
		t.Fatalf("parked task after Shutdown = %v, want ErrClosed", err)
	}
}
