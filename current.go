// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"runtime"
	"sync"
)

// fiberRegistry maps goroutine ids to the fiber running on that goroutine.
// This is the runtime's only process-wide state; it stands in for the
// per-kernel-thread current-context pointer, keyed by the fiber goroutine
// instead (a fiber goroutine is runnable exactly while some kernel is
// resuming it).
var fiberRegistry = struct {
	sync.RWMutex
	m map[uint64]*Fiber
}{m: make(map[uint64]*Fiber)}

func registerFiber(gid uint64, f *Fiber) {
	fiberRegistry.Lock()
	fiberRegistry.m[gid] = f
	fiberRegistry.Unlock()
}

func unregisterFiber(gid uint64) {
	fiberRegistry.Lock()
	delete(fiberRegistry.m, gid)
	fiberRegistry.Unlock()
}

// Current returns the fiber executing on the calling goroutine, or nil when
// the caller is not running inside a fiber. User code running inside a fiber
// may use it for introspection, voluntary yields ([Fiber.Suspend]), or to
// reach its scheduler.
func Current() *Fiber {
	fiberRegistry.RLock()
	f := fiberRegistry.m[goroutineID()]
	fiberRegistry.RUnlock()
	return f
}

// goroutineID returns the current goroutine's ID.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
