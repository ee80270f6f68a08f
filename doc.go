// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package fibersched multiplexes many cooperative fibers over a small fixed
// pool of kernel threads, integrating non-blocking I/O so that a fiber which
// would block on a file descriptor is parked off-CPU until the descriptor
// becomes ready.
//
// # Architecture
//
// A [Scheduler] owns a pool of dispatcher goroutines (the "kernels", each
// pinned to an OS thread), a pluggable ready-queue [Strategy], and a single
// I/O thread. [Scheduler.Add] enqueues a fiber; an idle kernel pops it,
// resumes it, and either requeues it (cooperative yield), drops it
// (finished), or leaves it with the I/O thread (parked on a descriptor).
// [Scheduler.JoinAll] blocks until every fiber has finished.
//
// Scheduling is strictly cooperative. A fiber relinquishes its kernel only
// at explicit suspension points: [Fiber.Suspend], or the I/O wrappers
// ([Wait], [Read], [Write]), which register the fiber's descriptor with the
// I/O thread before yielding.
//
// # I/O integration
//
// The I/O thread waits on the aggregate descriptor set with poll(2). A
// self-pipe occupies slot 0 of the descriptor set permanently; registering a
// new descriptor writes one byte to it, breaking the poller out of its wait
// so the next iteration observes the addition. Ready fibers are handed back
// to the scheduler's ready queue under the scheduler's lock.
//
// # Platform support
//
// Unix only. The readiness primitive is poll(2) via golang.org/x/sys/unix;
// there is no Windows port.
//
// # Logging
//
// Structured logging integrates via github.com/joeycumines/logiface, see
// [WithLogger]. Without a logger the runtime is silent.
package fibersched
