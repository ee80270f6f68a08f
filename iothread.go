// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"golang.org/x/sys/unix"
)

// noTimeout makes the readiness loop block until an event arrives.
const noTimeout = time.Duration(-1)

// ioRegistration is one park request, queued until the readiness loop
// absorbs it into its watch set.
type ioRegistration struct {
	fiber  *Fiber
	fd     int
	events Events
}

// ioThread owns every fiber parked on descriptor readiness. It waits on the
// aggregate descriptor set with poll(2) and hands ready fibers back to the
// scheduler's ready queue.
//
// The parked list, pfds, and slots are owned exclusively by the loop
// goroutine. User threads communicate only through park, which serializes on
// its own mutex and interrupts the poller via the wakeup pipe. pfds and
// slots are index-aligned; slot 0 permanently holds the wakeup pipe and is
// never partitioned out.
type ioThread struct {
	sched *Scheduler

	pipeR, pipeW int

	mu      sync.Mutex
	pending []ioRegistration

	closed atomic.Bool
	done   chan struct{}

	// Owned by the loop goroutine.
	parked *list.List // of *Fiber
	pfds   []unix.PollFd
	slots  []*list.Element

	// pollErrs limits repeated poll-failure log events.
	pollErrs *catrate.Limiter
}

// newIOThread builds the watch set with the wakeup pipe pinned in slot 0 and
// starts the readiness loop.
func newIOThread(s *Scheduler) (*ioThread, error) {
	r, w, err := newWakePipe()
	if err != nil {
		return nil, err
	}
	t := &ioThread{
		sched:    s,
		pipeR:    r,
		pipeW:    w,
		done:     make(chan struct{}),
		parked:   list.New(),
		pfds:     []unix.PollFd{{Fd: int32(r), Events: unix.POLLIN}},
		slots:    []*list.Element{nil},
		pollErrs: catrate.NewLimiter(map[time.Duration]int{time.Minute: 6}),
	}
	go t.run()
	return t, nil
}

// park transfers ownership of f to the I/O thread and arranges for the
// readiness loop to observe the new descriptor. The fiber must suspend with
// yieldParked immediately after park returns: it stays registered (and may
// be requeued) from this point on, and the resume/yield handoff is what
// keeps a fast-firing descriptor from resuming it early.
func (t *ioThread) park(f *Fiber, fd int, events Events) {
	t.mu.Lock()
	t.pending = append(t.pending, ioRegistration{fiber: f, fd: fd, events: events})
	t.mu.Unlock()
	t.wake()
}

// wake writes one byte to the self-pipe, breaking the readiness loop out of
// its wait. EAGAIN means the pipe is full and the loop is already signalled.
func (t *ioThread) wake() {
	var b [1]byte
	for {
		if _, err := unix.Write(t.pipeW, b[:]); err != unix.EINTR {
			return
		}
	}
}

// close stops the readiness loop and releases the pipe. The owning scheduler
// cannot be closed while any fiber is live, so the parked list is empty by
// the time this runs.
func (t *ioThread) close() error {
	t.closed.Store(true)
	t.wake()
	<-t.done
	err := unix.Close(t.pipeR)
	if cerr := unix.Close(t.pipeW); err == nil {
		err = cerr
	}
	return err
}

// run is the readiness loop.
func (t *ioThread) run() {
	defer close(t.done)
	for {
		if t.closed.Load() {
			return
		}
		t.absorb()

		n, err := pollFDs(t.pfds, noTimeout)
		if t.closed.Load() {
			return
		}
		if err != nil {
			t.logPollError(err)
			continue
		}
		if n <= 0 {
			continue
		}

		if t.pfds[0].Revents != 0 {
			t.pfds[0].Revents = 0
			drainWakePipe(t.pipeR)
		}

		if pivot := t.partition(); pivot < len(t.pfds) {
			t.restoreAndErase(pivot)
		}
	}
}

// absorb moves queued registrations into the watch set. Runs on the loop
// goroutine before each wait.
func (t *ioThread) absorb() {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, reg := range pending {
		el := t.parked.PushBack(reg.fiber)
		t.pfds = append(t.pfds, unix.PollFd{
			Fd:     int32(reg.fd),
			Events: eventsToPoll(reg.events),
		})
		t.slots = append(t.slots, el)
	}
}

// partition reorders pfds[1:] and slots[1:] in lockstep so entries with
// non-zero Revents form a contiguous tail, returning the first ready index.
// Index 0 is the wakeup pipe and is never moved.
func (t *ioThread) partition() int {
	pivot := len(t.pfds)
	for i := len(t.pfds) - 1; i >= 1; i-- {
		if t.pfds[i].Revents != 0 {
			pivot--
			t.pfds[i], t.pfds[pivot] = t.pfds[pivot], t.pfds[i]
			t.slots[i], t.slots[pivot] = t.slots[pivot], t.slots[i]
		}
	}
	return pivot
}

// restoreAndErase hands the ready tail [pivot, len) back to the scheduler,
// then erases it from the watch set. Each fiber is pushed under the
// scheduler's mutex and paired with exactly one notification, matching the
// dispatcher's signal discipline.
func (t *ioThread) restoreAndErase(pivot int) {
	s := t.sched

	s.mtx.Lock()
	for i := pivot; i < len(t.pfds); i++ {
		f := t.slots[i].Value.(*Fiber)
		f.revents = pollToEvents(t.pfds[i].Revents)
		s.strategy.Push(&s.ready, f)
		if s.join {
			s.cond.Broadcast()
		} else {
			s.cond.Signal()
		}
	}
	s.mtx.Unlock()

	for i := pivot; i < len(t.pfds); i++ {
		t.parked.Remove(t.slots[i])
		t.slots[i] = nil
	}
	t.pfds = t.pfds[:pivot]
	t.slots = t.slots[:pivot]
}

// logPollError reports a (non-EINTR) poll failure, rate limited so a
// persistently bad descriptor set cannot flood the log. The loop retries
// regardless.
func (t *ioThread) logPollError(err error) {
	if _, ok := t.pollErrs.Allow("poll"); !ok {
		return
	}
	t.sched.log.Err().
		Err(err).
		Int("fds", len(t.pfds)).
		Log("fibersched: poll failed")
}
