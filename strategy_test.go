// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibersched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFibers(t *testing.T, n int) []*Fiber {
	t.Helper()
	fs := make([]*Fiber, n)
	for i := range fs {
		f, err := newFiber(nil, func() {}, DefaultStackSize)
		require.NoError(t, err)
		fs[i] = f
	}
	return fs
}

func TestFIFO_Order(t *testing.T) {
	var q ReadyQueue
	var st Strategy = FIFO{}

	fs := testFibers(t, 3)
	for _, f := range fs {
		st.Push(&q, f)
	}
	assert.Equal(t, 3, q.Len())

	for i := 0; i < 3; i++ {
		assert.Same(t, fs[i], st.Pop(&q))
	}
	assert.Equal(t, 0, q.Len())
}

func TestLIFO_Order(t *testing.T) {
	var q ReadyQueue
	var st Strategy = LIFO{}

	fs := testFibers(t, 3)
	for _, f := range fs {
		st.Push(&q, f)
	}

	for i := 2; i >= 0; i-- {
		assert.Same(t, fs[i], st.Pop(&q))
	}
	assert.Equal(t, 0, q.Len())
}

func TestReadyQueue_EmptyPops(t *testing.T) {
	var q ReadyQueue
	assert.Nil(t, q.PopFront())
	assert.Nil(t, q.PopBack())
	assert.Equal(t, 0, q.Len())
}

// TestScheduler_LIFOStrategy runs the scheduler end to end with the
// alternative discipline.
func TestScheduler_LIFOStrategy(t *testing.T) {
	s, err := New(1, WithStrategy(LIFO{}))
	require.NoError(t, err)
	defer s.Close()

	counter := 0
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Add(func() { counter++ }))
	}
	s.JoinAll()
	assert.Equal(t, 50, counter)
}
