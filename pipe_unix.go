// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build unix

package fibersched

import (
	"golang.org/x/sys/unix"
)

// newWakePipe creates the self-pipe used to interrupt the readiness loop
// when the watch set changes. Both ends are close-on-exec and non-blocking;
// a non-blocking write end means a full pipe degrades to a no-op (the poller
// is already signalled).
func newWakePipe() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	cleanup := func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	}

	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])

	if err := unix.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}

// drainWakePipe discards every byte buffered on the pipe's read end.
// Multiple registrations may coalesce into one poll wakeup, and a wakeup may
// arrive with no registration at all; both are benign.
func drainWakePipe(fd int) {
	var buf [64]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
