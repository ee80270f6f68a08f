// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"golang.org/x/sys/unix"
)

// Wait parks the calling fiber until fd reports at least one of the
// requested events, yielding its kernel to other fibers in the meantime.
// It returns the events actually reported; error and hangup conditions are
// folded into readiness, so the caller's next I/O operation observes the
// failure. The watch is one-shot: re-arm by calling Wait again.
//
// Wait must be called from inside a fiber, and registers the fiber with the
// I/O thread before suspending, so a descriptor that becomes ready
// immediately is never missed.
func Wait(fd int, events Events) (Events, error) {
	f := Current()
	if f == nil {
		return 0, ErrNotFiber
	}
	if events&EventIO == 0 {
		return 0, ErrNoEvents
	}
	f.revents = 0
	f.sched.io.park(f, fd, events)
	f.suspend(yieldParked)
	return f.revents, nil
}

// Read reads from fd into p, parking the fiber whenever the descriptor is
// not readable. The descriptor must be in non-blocking mode (see
// unix.SetNonblock). Must be called from inside a fiber.
func Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
		case unix.EAGAIN:
			if _, werr := Wait(fd, EventRead); werr != nil {
				return 0, werr
			}
		default:
			return n, err
		}
	}
}

// Write writes p to fd, parking the fiber whenever the descriptor is not
// writable. The descriptor must be in non-blocking mode. Must be called from
// inside a fiber. Short writes are possible, as with unix.Write.
func Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
		case unix.EAGAIN:
			if _, werr := Wait(fd, EventWrite); werr != nil {
				return 0, werr
			}
		default:
			return n, err
		}
	}
}
