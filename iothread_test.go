// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"container/list"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// newTestPipe returns a non-blocking pipe, closed via t.Cleanup.
func newTestPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		t.Fatal("pipe failed:", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			t.Fatal("SetNonblock failed:", err)
		}
	}
	return fds[0], fds[1]
}

// TestIO_ReadParksUntilWrite is the basic reader/writer pairing: one fiber
// blocks reading an empty pipe, another writes a byte, both finish.
func TestIO_ReadParksUntilWrite(t *testing.T) {
	s, err := New(2)
	if err != nil {
		t.Fatal("New failed:", err)
	}
	defer s.Close()

	r, w := newTestPipe(t)

	var got []byte
	if err := s.Add(func() {
		buf := make([]byte, 8)
		n, err := Read(r, buf)
		if err != nil {
			t.Error("Read failed:", err)
			return
		}
		got = buf[:n]
	}); err != nil {
		t.Fatal("Add failed:", err)
	}
	if err := s.Add(func() {
		if _, err := Write(w, []byte{0x2a}); err != nil {
			t.Error("Write failed:", err)
		}
	}); err != nil {
		t.Fatal("Add failed:", err)
	}
	s.JoinAll()

	if len(got) != 1 || got[0] != 0x2a {
		t.Fatalf("read %v, want [42]", got)
	}
}

// TestIO_CompletionFollowsReadiness parks three fibers on three pipes and
// makes the pipes ready in reverse spawn order; completion must follow
// readiness order.
func TestIO_CompletionFollowsReadiness(t *testing.T) {
	s, err := New(2)
	if err != nil {
		t.Fatal("New failed:", err)
	}
	defer s.Close()

	const n = 3
	var (
		mu        sync.Mutex
		completed []int
		parked    sync.WaitGroup
	)
	readers := make([]int, n)
	writers := make([]int, n)
	for i := 0; i < n; i++ {
		readers[i], writers[i] = newTestPipe(t)
	}

	parked.Add(n)
	for i := 0; i < n; i++ {
		i := i
		if err := s.Add(func() {
			parked.Done()
			buf := make([]byte, 1)
			if _, err := Read(readers[i], buf); err != nil {
				t.Error("Read failed:", err)
				return
			}
			mu.Lock()
			completed = append(completed, i)
			mu.Unlock()
		}); err != nil {
			t.Fatal("Add failed:", err)
		}
	}

	// Wait until every fiber has at least started, then give them time to
	// park before making descriptors ready in reverse order.
	parked.Wait()
	time.Sleep(50 * time.Millisecond)
	for i := n - 1; i >= 0; i-- {
		if _, err := unix.Write(writers[i], []byte{byte(i)}); err != nil {
			t.Fatal("write failed:", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	s.JoinAll()

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != n {
		t.Fatalf("completed = %v, want %d entries", completed, n)
	}
	for i := 0; i < n; i++ {
		if completed[i] != n-1-i {
			t.Fatalf("completed = %v, want reverse spawn order", completed)
		}
	}
}

// TestIO_WaitReportsEvents verifies Wait surfaces the readiness it observed.
func TestIO_WaitReportsEvents(t *testing.T) {
	s, err := New(1)
	if err != nil {
		t.Fatal("New failed:", err)
	}
	defer s.Close()

	r, w := newTestPipe(t)
	if _, err := unix.Write(w, []byte{1}); err != nil {
		t.Fatal("write failed:", err)
	}

	var got Events
	if err := s.Add(func() {
		ev, err := Wait(r, EventRead)
		if err != nil {
			t.Error("Wait failed:", err)
			return
		}
		got = ev
	}); err != nil {
		t.Fatal("Add failed:", err)
	}
	s.JoinAll()

	if got&EventRead == 0 {
		t.Fatalf("Wait reported %v, want EventRead set", got)
	}
}

// TestIO_WaitOutsideFiber verifies the wrapper refuses non-fiber callers.
func TestIO_WaitOutsideFiber(t *testing.T) {
	if _, err := Wait(0, EventRead); !errors.Is(err, ErrNotFiber) {
		t.Fatalf("Wait outside fiber err = %v, want ErrNotFiber", err)
	}
}

// TestIO_WaitNoEvents verifies the interest bits are validated.
func TestIO_WaitNoEvents(t *testing.T) {
	s, err := New(1)
	if err != nil {
		t.Fatal("New failed:", err)
	}
	defer s.Close()

	var werr error
	if err := s.Add(func() {
		_, werr = Wait(0, 0)
	}); err != nil {
		t.Fatal("Add failed:", err)
	}
	s.JoinAll()

	if !errors.Is(werr, ErrNoEvents) {
		t.Fatalf("Wait(0, 0) err = %v, want ErrNoEvents", werr)
	}
}

// TestIO_SpuriousWakeupBenign writes to the wakeup pipe with no registration
// pending; the runtime must keep operating normally.
func TestIO_SpuriousWakeupBenign(t *testing.T) {
	s, err := New(1)
	if err != nil {
		t.Fatal("New failed:", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		s.io.wake()
	}

	ran := false
	if err := s.Add(func() { ran = true }); err != nil {
		t.Fatal("Add failed:", err)
	}
	s.JoinAll()
	if !ran {
		t.Fatal("fiber did not run after spurious wakeups")
	}
}

// TestIO_PartitionPinsSlotZero exercises the lockstep partition directly:
// ready entries move to the tail, the wakeup slot never moves.
func TestIO_PartitionPinsSlotZero(t *testing.T) {
	parked := list.New()
	mk := func() *list.Element { return parked.PushBack(&Fiber{}) }

	th := &ioThread{
		parked: parked,
		pfds: []unix.PollFd{
			{Fd: 100, Revents: unix.POLLIN}, // wakeup slot: ready, must not move
			{Fd: 1, Revents: 0},
			{Fd: 2, Revents: unix.POLLIN},
			{Fd: 3, Revents: 0},
			{Fd: 4, Revents: unix.POLLIN},
		},
	}
	th.slots = []*list.Element{nil, mk(), mk(), mk(), mk()}
	slotOf := make(map[int32]*list.Element, len(th.pfds))
	for i := 1; i < len(th.pfds); i++ {
		slotOf[th.pfds[i].Fd] = th.slots[i]
	}

	pivot := th.partition()

	if th.pfds[0].Fd != 100 {
		t.Fatalf("wakeup slot moved: pfds[0].Fd = %d", th.pfds[0].Fd)
	}
	if pivot != 3 {
		t.Fatalf("pivot = %d, want 3", pivot)
	}
	for i := 1; i < pivot; i++ {
		if th.pfds[i].Revents != 0 {
			t.Fatalf("unready entry at %d has revents", i)
		}
	}
	for i := pivot; i < len(th.pfds); i++ {
		if th.pfds[i].Revents == 0 {
			t.Fatalf("ready tail entry at %d has no revents", i)
		}
	}
	// slots stay index-aligned with pfds through the swaps
	for i := 1; i < len(th.pfds); i++ {
		if th.slots[i] == nil {
			t.Fatalf("slot %d lost", i)
		}
		if th.slots[i] != slotOf[th.pfds[i].Fd] {
			t.Fatalf("slot %d not aligned with fd %d", i, th.pfds[i].Fd)
		}
	}
}

// TestIO_ManyWaiters stresses the park/restore path with more fibers than
// kernels, every one parked on its own descriptor.
func TestIO_ManyWaiters(t *testing.T) {
	s, err := New(4)
	if err != nil {
		t.Fatal("New failed:", err)
	}
	defer s.Close()

	const n = 32
	var done sync.WaitGroup
	done.Add(n)
	writers := make([]int, n)
	for i := 0; i < n; i++ {
		r, w := newTestPipe(t)
		writers[i] = w
		if err := s.Add(func() {
			defer done.Done()
			buf := make([]byte, 1)
			if _, err := Read(r, buf); err != nil {
				t.Error("Read failed:", err)
			}
		}); err != nil {
			t.Fatal("Add failed:", err)
		}
	}

	for _, w := range writers {
		if _, err := unix.Write(w, []byte{1}); err != nil {
			t.Fatal("write failed:", err)
		}
	}
	done.Wait()
	s.JoinAll()
}
