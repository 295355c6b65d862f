// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"errors"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
	"code.hybscloud.com/lfq"
	"go.uber.org/zap"
)

// runQueueCapacity bounds the ready-task queue. Enqueue past it applies
// backpressure to schedulers via backoff.
const runQueueCapacity = 1024

// task is one cooperatively scheduled protocol bound to an endpoint.
// step runs the protocol to its next suspension point or completion;
// a parked task is re-enqueued by its reactor wake callback, never by
// the worker that parked it.
type task struct {
	step func(ex *Executor) bool
}

// notifier parks idle workers. A generation counter under the mutex
// makes the wake-between-poll-and-sleep race benign: sleep(seq) returns
// immediately when a wake has happened since snapshot().
type notifier struct {
	mtx  sync.Mutex
	cond *sync.Cond
	seq  uint64
}

func (n *notifier) init() {
	n.cond = sync.NewCond(&n.mtx)
}

func (n *notifier) snapshot() uint64 {
	n.mtx.Lock()
	s := n.seq
	n.mtx.Unlock()
	return s
}

func (n *notifier) sleep(seq uint64) {
	n.mtx.Lock()
	for n.seq == seq {
		n.cond.Wait()
	}
	n.mtx.Unlock()
}

func (n *notifier) wake() {
	n.mtx.Lock()
	n.seq++
	n.cond.Broadcast()
	n.mtx.Unlock()
}

// Executor runs spawned queue protocols to their suspension points on
// a small worker pool and delivers reactor wakeups as re-scheduling
// events. Nothing yields control except an explicit ErrWouldBlock
// boundary, and no ring atomics are ever held across one.
//
// Explicitly constructed and explicitly shut down; pass it to whatever
// needs it rather than treating it as a process-wide singleton.
type Executor struct {
	runq    *lfq.MPMCSeq[*task]
	reactor *Reactor
	idle    notifier
	log     *zap.Logger
	state   atomix.Uint32 // 0 running, 1 shutting down
	wg      sync.WaitGroup
	workers int
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers sets the worker goroutine count. Default 1: a single
// cooperative loop, the common per-component arrangement.
func WithWorkers(n int) Option {
	return func(ex *Executor) {
		if n > 0 {
			ex.workers = n
		}
	}
}

// WithLogger attaches a logger for corruption and teardown events.
// Default is a nop logger; the hot path never logs.
func WithLogger(log *zap.Logger) Option {
	return func(ex *Executor) {
		if log != nil {
			ex.log = log
		}
	}
}

// NewExecutor creates and starts an executor.
func NewExecutor(opts ...Option) *Executor {
	ex := &Executor{
		runq:    lfq.NewMPMCSeq[*task](runQueueCapacity),
		reactor: NewReactor(),
		log:     zap.NewNop(),
		workers: 1,
	}
	ex.idle.init()
	for _, opt := range opts {
		opt(ex)
	}
	ex.wg.Add(ex.workers)
	for range ex.workers {
		go ex.worker()
	}
	return ex
}

// Reactor returns the executor's wait bridge.
func (ex *Executor) Reactor() *Reactor {
	return ex.reactor
}

func (ex *Executor) schedule(t *task) {
	var bo iox.Backoff
	for ex.runq.Enqueue(&t) != nil {
		bo.Wait()
	}
	ex.idle.wake()
}

func (ex *Executor) worker() {
	defer ex.wg.Done()
	for {
		t, err := ex.runq.Dequeue()
		if err == nil {
			t.step(ex)
			continue
		}
		if ex.state.Load() != 0 {
			return
		}
		seq := ex.idle.snapshot()
		// Re-check after taking the generation snapshot: a schedule
		// between the failed dequeue and sleep is observed either here
		// or by the generation bump.
		if t, err = ex.runq.Dequeue(); err == nil {
			t.step(ex)
			continue
		}
		if ex.state.Load() != 0 {
			return
		}
		ex.idle.sleep(seq)
	}
}

// Shutdown stops the workers and the reactor. Parked tasks are woken
// first; any task that still cannot progress resolves its future with
// ErrClosed. Close the queues before Shutdown for a fully deterministic
// drain.
func (ex *Executor) Shutdown() {
	ex.state.Store(1)
	ex.reactor.Close()
	ex.idle.wake()
	ex.wg.Wait()
	// Workers may have exited between the state flip and the reactor
	// firing its parked tasks. Drain here: with state set, no step can
	// park again, so this terminates.
	for {
		t, err := ex.runq.Dequeue()
		if err != nil {
			return
		}
		t.step(ex)
	}
}

// Future is the eventual result of a spawned protocol.
type Future[R any] struct {
	mtx    sync.Mutex
	cond   *sync.Cond
	done   bool
	result R
	err    error
}

func newFuture[R any]() *Future[R] {
	f := &Future[R]{}
	f.cond = sync.NewCond(&f.mtx)
	return f
}

func (f *Future[R]) complete(r R, err error) {
	f.mtx.Lock()
	if !f.done {
		f.result, f.err, f.done = r, err, true
		f.cond.Broadcast()
	}
	f.mtx.Unlock()
}

// Done reports whether the result is available.
func (f *Future[R]) Done() bool {
	f.mtx.Lock()
	d := f.done
	f.mtx.Unlock()
	return d
}

// Wait blocks until the protocol finishes and returns its result.
func (f *Future[R]) Wait() (R, error) {
	f.mtx.Lock()
	for !f.done {
		f.cond.Wait()
	}
	r, err := f.result, f.err
	f.mtx.Unlock()
	return r, err
}

// Spawn schedules protocol on ex, bound to ep. The task runs on worker
// goroutines until it completes or hits an ErrWouldBlock boundary; the
// boundary parks it on the reactor keyed by the suspended operation's
// counter word, and the word's advance (or queue closure) re-enqueues
// it. Terminal errors resolve the future.
func Spawn[R any](ex *Executor, ep *Endpoint, protocol kont.Expr[R]) *Future[R] {
	fut := newFuture[R]()
	result, susp := kont.StepExpr(protocol)

	t := &task{}
	t.step = func(ex *Executor) bool {
		for {
			if susp == nil {
				fut.complete(result, nil)
				return true
			}
			op, ok := susp.Op().(queueDispatcher)
			if !ok {
				panic("shmq: unhandled effect in Spawn")
			}

			// Snapshot before dispatching: a word advance between the
			// failed dispatch and registration then fires immediately.
			word := op.parkWord(ep)
			stale := atomic.LoadUint32(word)

			v, err := op.DispatchQueue(ep)
			if err == nil {
				result, susp = susp.Resume(v)
				continue
			}
			if !IsWouldBlock(err) {
				susp.Discard()
				if errors.Is(err, ErrCorrupted) {
					ex.log.Error("shmq: ring corrupted, task aborted", zap.Error(err))
				} else {
					ex.log.Debug("shmq: task aborted", zap.Error(err))
				}
				var zero R
				fut.complete(zero, err)
				return true
			}
			if ex.state.Load() != 0 {
				susp.Discard()
				var zero R
				fut.complete(zero, ErrClosed)
				return true
			}
			ex.reactor.Register(word, stale, ep.q.Closed, func() {
				ex.schedule(t)
			})
			return false
		}
	}
	ex.schedule(t)
	return fut
}
