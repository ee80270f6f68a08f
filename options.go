// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"github.com/joeycumines/logiface"
)

// schedulerOptions holds configuration for Scheduler creation.
type schedulerOptions struct {
	strategy         Strategy
	logger           *logiface.Logger[logiface.Event]
	defaultStackSize int
}

// --- Scheduler Options ---

// Option configures a Scheduler instance.
type Option interface {
	applyScheduler(*schedulerOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*schedulerOptions) error
}

func (o *optionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.applyFunc(opts)
}

// WithStrategy sets the ready-queue discipline. The default is FIFO.
func WithStrategy(strategy Strategy) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if strategy == nil {
			return ErrNilStrategy
		}
		opts.strategy = strategy
		return nil
	}}
}

// WithLogger attaches a structured logger to the scheduler. A nil logger
// (also the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithDefaultStackSize sets the stack reservation used by Add when the spawn
// does not specify one. Goroutine stacks grow on demand, so the reservation
// is an admission bound, not a fixed allocation.
func WithDefaultStackSize(bytes int) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if bytes <= 0 || bytes > MaxStackSize {
			return ErrStackAlloc
		}
		opts.defaultStackSize = bytes
		return nil
	}}
}

// resolveOptions applies Option instances over the defaults. Nil options are
// skipped gracefully.
func resolveOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		strategy:         FIFO{},
		defaultStackSize: DefaultStackSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// --- Spawn Options ---

// spawnOptions holds per-fiber configuration for Add.
type spawnOptions struct {
	stackSize int
}

// SpawnOption configures a single fiber spawn.
type SpawnOption interface {
	applySpawn(*spawnOptions) error
}

// spawnOptionImpl implements SpawnOption.
type spawnOptionImpl struct {
	applyFunc func(*spawnOptions) error
}

func (o *spawnOptionImpl) applySpawn(opts *spawnOptions) error {
	return o.applyFunc(opts)
}

// WithStackSize sets this fiber's stack reservation in bytes. Out-of-range
// values surface as ErrStackAlloc from Add. Goroutine stacks grow on demand,
// so the reservation is an admission bound, not a fixed allocation.
func WithStackSize(bytes int) SpawnOption {
	return &spawnOptionImpl{func(opts *spawnOptions) error {
		if bytes <= 0 || bytes > MaxStackSize {
			return ErrStackAlloc
		}
		opts.stackSize = bytes
		return nil
	}}
}

// resolveSpawnOptions applies SpawnOption instances over the scheduler's
// defaults.
func resolveSpawnOptions(s *Scheduler, opts []SpawnOption) (*spawnOptions, error) {
	cfg := &spawnOptions{
		stackSize: s.defaultStackSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applySpawn(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
