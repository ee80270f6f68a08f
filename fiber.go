// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"sync/atomic"
)

// DefaultStackSize is the stack reservation used when no per-fiber size is
// given, see WithStackSize.
const DefaultStackSize = 256 << 10

// MaxStackSize is the largest acceptable stack reservation. Matches the
// runtime's goroutine stack ceiling on 64-bit platforms.
const MaxStackSize = 1 << 30

// yieldKind reports why control returned from a resume.
type yieldKind int32

const (
	// yieldReady means the fiber suspended cooperatively; requeue it.
	yieldReady yieldKind = iota
	// yieldParked means the fiber handed itself to the I/O thread before
	// suspending; the I/O thread now owns it.
	yieldParked
	// yieldFinished means the entry returned (or panicked); the fiber is
	// dead and must be dropped.
	yieldFinished
)

// Fiber is a cooperative user thread with its own stack.
//
// A Fiber is backed by a dedicated goroutine. Control transfers between the
// resuming goroutine and the fiber goroutine through a pair of unbuffered
// channels: a resumer sends on resumec then receives on yieldc, the fiber
// receives on resumec then sends on yieldc. At any instant at most one of
// the two sides is runnable, which makes the fiber a coroutine rather than
// ordinary concurrency — and makes resuming a fiber that has not yet reached
// its suspension point block until it has, instead of misbehaving.
//
// A Fiber is owned by exactly one location at a time: the scheduler's ready
// queue, the I/O thread's parked list, or the kernel currently resuming it.
type Fiber struct {
	sched *Scheduler
	entry func()

	resumec chan struct{}
	yieldc  chan yieldKind

	// revents is set by the I/O thread before the fiber is requeued; read
	// by the fiber after it wakes from Wait.
	revents Events

	stackSize int
	done      atomic.Bool
}

// newFiber validates the stack reservation and builds a fiber. Nothing runs
// until start.
func newFiber(s *Scheduler, entry func(), stackSize int) (*Fiber, error) {
	if stackSize <= 0 || stackSize > MaxStackSize {
		return nil, ErrStackAlloc
	}
	return &Fiber{
		sched:     s,
		entry:     entry,
		resumec:   make(chan struct{}),
		yieldc:    make(chan yieldKind),
		stackSize: stackSize,
	}, nil
}

// start launches the fiber goroutine and drives it to the priming
// suspension. No user code has run when start returns: the entry wrapper's
// very first act is a self-suspend, yielding control back to the enqueuer.
func (f *Fiber) start() {
	go f.main()
	<-f.yieldc
}

// main is the fiber goroutine.
func (f *Fiber) main() {
	gid := goroutineID()
	registerFiber(gid, f)
	defer unregisterFiber(gid)
	defer f.finish()
	f.suspend(yieldReady)
	f.entry()
}

// finish marks the fiber dead and performs the terminal yield. A panicking
// entry is recovered here: the failure does not unwind past the fiber.
func (f *Fiber) finish() {
	if v := recover(); v != nil {
		if s := f.sched; s != nil {
			s.logPanic(v)
		}
	}
	f.done.Store(true)
	f.yieldc <- yieldFinished
}

// resume transfers control to the fiber until its next suspension point and
// reports why control came back. The caller must own the fiber: it must not
// be in the ready queue, in the parked list, or resumed elsewhere.
func (f *Fiber) resume() yieldKind {
	f.resumec <- struct{}{}
	return <-f.yieldc
}

// suspend returns control to whoever called resume, then blocks until the
// next resume. Runs on the fiber goroutine only.
func (f *Fiber) suspend(kind yieldKind) {
	f.yieldc <- kind
	<-f.resumec
}

// Suspend yields the calling fiber back to its kernel. The fiber is requeued
// and will be resumed again later. Must be called from inside the fiber;
// calling it from any other goroutine deadlocks that goroutine.
func (f *Fiber) Suspend() {
	f.suspend(yieldReady)
}

// Finished reports whether the fiber's entry has returned. Meaningful to the
// fiber's owner after a resume has returned control.
func (f *Fiber) Finished() bool {
	return f.done.Load()
}

// StackSize returns the fiber's stack reservation in bytes. Goroutine stacks
// grow on demand, so the reservation is an admission bound rather than a
// fixed allocation.
func (f *Fiber) StackSize() int {
	return f.stackSize
}
