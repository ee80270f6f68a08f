// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrStackAlloc is returned when a fiber's requested stack size is
	// refused (non-positive, or beyond MaxStackSize).
	ErrStackAlloc = errors.New("fibersched: stack allocation refused")

	// ErrSchedulerClosed is returned by operations on a closed scheduler.
	ErrSchedulerClosed = errors.New("fibersched: scheduler closed")

	// ErrNoKernels is returned by New when the kernel count is less than 1.
	ErrNoKernels = errors.New("fibersched: kernel count must be at least 1")

	// ErrNotFiber is returned by fiber-only operations when the calling
	// goroutine is not running inside a fiber.
	ErrNotFiber = errors.New("fibersched: not called from a fiber")

	// ErrNilEntry is returned by Add when the entry function is nil.
	ErrNilEntry = errors.New("fibersched: nil entry function")

	// ErrNoEvents is returned by Wait when no interest bits are set.
	ErrNoEvents = errors.New("fibersched: no events requested")

	// ErrNilStrategy is returned by New when WithStrategy is given nil.
	ErrNilStrategy = errors.New("fibersched: nil strategy")
)

// PanicError carries the value recovered from a fiber entry that panicked.
// The panic does not unwind past the fiber: it is contained, logged if a
// logger is configured, and the fiber reports finished.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("fibersched: fiber panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type,
// enabling use with [errors.Is] and [errors.As] through the cause chain.
// If the panic Value is not an error, returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
