// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListener_Call(t *testing.T) {
	var got int
	l := NewListener[int](func(v int) error {
		got = v
		return nil
	})

	require.NoError(t, l.Call(42))
	assert.Equal(t, 42, got)
	assert.False(t, l.Poisoned())
}

func TestListener_PropagatesError(t *testing.T) {
	want := errors.New("rejected")
	l := NewListener[int](func(int) error { return want })

	assert.ErrorIs(t, l.Call(1), want)
	assert.False(t, l.Poisoned(), "a returned error does not poison")
	assert.ErrorIs(t, l.Call(2), want)
}

func TestListener_PanicPoisons(t *testing.T) {
	var calls atomic.Int32
	l := NewListener[int](func(int) error {
		calls.Add(1)
		panic("boom")
	})

	err := l.Call(1)
	require.ErrorIs(t, err, ErrListenerPanic)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, l.Poisoned())

	err = l.Call(2)
	require.ErrorIs(t, err, ErrLockPoisoned)
	assert.Equal(t, int32(1), calls.Load(), "poisoned listener is not invoked again")
}

func TestListener_ConcurrentCalls(t *testing.T) {
	var total atomic.Int64
	l := NewListener[int](func(v int) error {
		total.Add(int64(v))
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Call(2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), total.Load())
}

func TestListener_SerialisesStatefulCallback(t *testing.T) {
	hub := NewHub[int]()

	var (
		counter  int
		inFlight atomic.Int32
		maxSeen  atomic.Int32
	)
	_, err := hub.AddListener("order.created", func(v int) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := maxSeen.Load()
			if n <= seen || maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}

		c := counter
		time.Sleep(time.Millisecond)
		counter = c + v
		return nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, hub.Emit("order.created", 1))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, int32(1), maxSeen.Load(), "one invocation at a time")
}

func TestListener_PanicPoisonsWaitingCalls(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	l := NewListener[int](func(v int) error {
		if v == 1 {
			close(entered)
			<-release
			panic("boom")
		}
		return nil
	})

	first := make(chan error, 1)
	go func() { first <- l.Call(1) }()
	<-entered

	second := make(chan error, 1)
	go func() { second <- l.Call(2) }()
	close(release)

	require.ErrorIs(t, <-first, ErrListenerPanic)
	require.ErrorIs(t, <-second, ErrLockPoisoned)
}
