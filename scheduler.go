// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"runtime"
	"sync"

	"github.com/joeycumines/logiface"
)

// kernel is one OS thread of the dispatch pool.
type kernel struct {
	id uint64
}

// Scheduler multiplexes fibers over a fixed pool of kernel threads.
//
// The zero value is not usable; construct with New. A Scheduler must be
// drained with JoinAll before Close: closing a scheduler that still has live
// fibers is a fatal user error and panics, matching thread-destructor
// semantics.
type Scheduler struct {
	// mtx guards ready, live, join, terminate, and closed. A fiber is never
	// resumed while mtx is held.
	mtx  sync.Mutex
	cond *sync.Cond

	ready    ReadyQueue
	strategy Strategy

	// live counts unfinished fibers: queued, running on a kernel, or parked
	// with the I/O thread. Joinable and JoinAll are defined over live, so a
	// fiber waiting on a descriptor still holds the scheduler open.
	live      int
	join      bool
	terminate bool
	closed    bool

	// kernels is keyed by goroutine id; fixed at construction, no removal
	// until teardown.
	kernels map[uint64]*kernel
	wg      sync.WaitGroup

	io *ioThread

	defaultStackSize int
	log              *logiface.Logger[logiface.Event]
}

// New creates a scheduler with the given number of kernel threads, and
// starts its I/O thread. kernels must be at least 1.
func New(kernels int, opts ...Option) (*Scheduler, error) {
	if kernels < 1 {
		return nil, ErrNoKernels
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		strategy:         cfg.strategy,
		defaultStackSize: cfg.defaultStackSize,
		log:              cfg.logger,
	}
	s.cond = sync.NewCond(&s.mtx)

	io, err := newIOThread(s)
	if err != nil {
		return nil, err
	}
	s.io = io

	s.kernels = make(map[uint64]*kernel, kernels)
	ids := make(chan uint64)
	for i := 0; i < kernels; i++ {
		s.wg.Add(1)
		go s.dispatch(ids)
	}
	for i := 0; i < kernels; i++ {
		id := <-ids
		s.kernels[id] = &kernel{id: id}
	}

	s.log.Debug().
		Int("kernels", kernels).
		Log("fibersched: scheduler started")

	return s, nil
}

// Add enqueues a new fiber running fn. The fiber is primed on the calling
// goroutine (started, then suspended before any of fn runs), pushed into the
// ready queue, and one idle kernel is signalled. Safe to call from inside a
// running fiber.
//
// Add after Close returns ErrSchedulerClosed. Add must not be called
// concurrently with Close.
func (s *Scheduler) Add(fn func(), opts ...SpawnOption) error {
	if fn == nil {
		return ErrNilEntry
	}
	cfg, err := resolveSpawnOptions(s, opts)
	if err != nil {
		return err
	}

	s.mtx.Lock()
	if s.terminate {
		s.mtx.Unlock()
		return ErrSchedulerClosed
	}
	s.mtx.Unlock()

	f, err := newFiber(s, fn, cfg.stackSize)
	if err != nil {
		return err
	}
	f.start()

	s.mtx.Lock()
	s.strategy.Push(&s.ready, f)
	s.live++
	s.cond.Signal()
	s.mtx.Unlock()
	return nil
}

// JoinAll blocks until every fiber has finished. The alternating wait/notify
// keeps kernels draining the queue while the joiner shares their condition
// variable.
func (s *Scheduler) JoinAll() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.join = true
	for s.live != 0 {
		s.cond.Wait()
		s.cond.Signal()
	}
	s.join = false
}

// Kernels returns the size of the kernel thread pool, fixed at
// construction.
func (s *Scheduler) Kernels() int {
	return len(s.kernels)
}

// Joinable reports whether any fiber is still unfinished (queued, running,
// or parked for I/O).
func (s *Scheduler) Joinable() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.live != 0
}

// Close tears down the kernel pool and the I/O thread. Closing a joinable
// scheduler panics: callers must JoinAll first. A second Close returns
// ErrSchedulerClosed.
func (s *Scheduler) Close() error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return ErrSchedulerClosed
	}
	if s.live != 0 {
		s.mtx.Unlock()
		panic("fibersched: Close called on a joinable scheduler; JoinAll first")
	}
	s.closed = true
	s.terminate = true
	s.cond.Broadcast()
	s.mtx.Unlock()

	s.wg.Wait()
	err := s.io.close()

	s.log.Debug().
		Log("fibersched: scheduler stopped")

	return err
}

// dispatch is the kernel thread loop. Each kernel is pinned to an OS thread
// for its lifetime.
func (s *Scheduler) dispatch(ids chan<- uint64) {
	defer s.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ids <- goroutineID()

	for {
		s.mtx.Lock()
		for !s.terminate && s.ready.Len() == 0 {
			s.cond.Wait()
		}
		if s.terminate {
			s.mtx.Unlock()
			return
		}
		f := s.strategy.Pop(&s.ready)
		s.mtx.Unlock()

		// Resume outside the lock; the fiber may run for a long time.
		switch f.resume() {
		case yieldReady:
			s.requeue(f)
		case yieldParked:
			// Ownership moved to the I/O thread before the fiber
			// suspended; it comes back through requeue when its
			// descriptor fires.
		case yieldFinished:
			s.mtx.Lock()
			s.live--
			if s.join {
				s.cond.Broadcast()
			}
			s.mtx.Unlock()
		}
	}
}

// requeue pushes a still-live fiber back into the ready queue, with the
// notify discipline shared by the dispatchers and the I/O thread: one signal
// keeps one idle kernel busy; during JoinAll, broadcast so the joiner also
// observes progress.
func (s *Scheduler) requeue(f *Fiber) {
	s.mtx.Lock()
	s.strategy.Push(&s.ready, f)
	if s.join {
		s.cond.Broadcast()
	} else {
		s.cond.Signal()
	}
	s.mtx.Unlock()
}

// logPanic reports a fiber entry panic. The panic value is discarded after
// logging; it never unwinds a kernel thread.
func (s *Scheduler) logPanic(v any) {
	s.log.Err().
		Err(PanicError{Value: v}).
		Log("fibersched: fiber entry panicked")
}
