// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shmq provides shared-memory asynchronous submission/completion
// queues with request correlation, futex-backed waiting, and a
// cooperative executor for queue protocols built on
// [code.hybscloud.com/kont].
//
// A [Queue] is a paired set of bounded MPMC ring buffers laid out in a
// single contiguous memory region, so two sides of a [Region] (heap
// buffer, or a file mapping shared between processes) exchange fixed-size
// commands and completions without copying through a kernel channel.
//
// # Architecture
//
//   - Rings: Lock-free bounded MPMC ring buffers with per-slot turn tags;
//     wraparound-safe for the full uint64 counter range.
//   - Non-blocking: Operations return [code.hybscloud.com/iox.ErrWouldBlock]
//     on full/empty rings; nothing inside the package spins unboundedly.
//   - Correlation: [Endpoint.Submit] assigns monotonically increasing
//     request ids; [Endpoint.Await] routes out-of-order completions back
//     to their requests.
//   - Waiting: [Reactor] bridges ring counter words to wakeups via the
//     platform futex (emulated elsewhere), with error-state wakeup on
//     queue closure.
//   - Execution: Dual-world API supporting closure-based (Cont-world)
//     and defunctionalized (Expr-world) evaluation of queue protocols.
//
// # API Topologies
//
//   - Operations: [Submit], [Await], [Recv], [Complete], dispatched on a
//     client or server [Endpoint].
//   - Cont-world: [SubmitBind], [AwaitBind], [RecvBind], [CompleteThen],
//     [CallBind], [Loop].
//   - Stepping: [Step] and [Advance] evaluate protocols one effect at a
//     time for integration with an outer event loop.
//   - Blocking: [Exec], [Run], and [Call] wait past boundaries using
//     adaptive backoff.
//   - Async: [Spawn] runs protocols on an [Executor], parking them on
//     the [Reactor] across ErrWouldBlock boundaries and resolving a
//     [Future] with the result.
//
// # Example
//
//	q, _ := shmq.CreateQueue(shmq.NewHeapRegion(shmq.QueueSize(8, 64)), 8, 64)
//	client := shmq.ClientEnd(q)
//	go serve(shmq.ServerEnd(q))
//	info, err := shmq.Call(client, []byte("ping"))
package shmq
