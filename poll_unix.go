// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build unix

package fibersched

import (
	"time"

	"golang.org/x/sys/unix"
)

// Events is the set of I/O conditions a fiber may wait on.
type Events int16

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead Events = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
)

// EventIO watches both directions.
const EventIO = EventRead | EventWrite

// eventsToPoll converts Events to poll(2) interest flags.
func eventsToPoll(ev Events) int16 {
	var p int16
	if ev&EventRead != 0 {
		p |= unix.POLLIN
	}
	if ev&EventWrite != 0 {
		p |= unix.POLLOUT
	}
	return p
}

// pollToEvents converts poll(2) revents to Events. Error and hangup
// conditions are folded into readiness: a parked fiber must wake so its next
// I/O call can observe the failure.
func pollToEvents(p int16) Events {
	var ev Events
	if p&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		ev |= EventRead
	}
	if p&(unix.POLLOUT|unix.POLLERR) != 0 {
		ev |= EventWrite
	}
	return ev
}

// pollFDs waits for readiness on fds, returning the number of entries with
// non-zero Revents. A negative timeout blocks until an event arrives;
// positive sub-millisecond timeouts round up to one millisecond. EINTR is
// swallowed as (0, nil) so callers simply reiterate.
func pollFDs(fds []unix.PollFd, timeout time.Duration) (int, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
		if ms == 0 && timeout > 0 {
			ms = 1
		}
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
