// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	ID    string
	Total int
}

func counter(n *atomic.Int32) Callback[order] {
	return Infallible(func(order) { n.Add(1) })
}

func TestHub_OrderCreatedScenario(t *testing.T) {
	hub := NewHub[order]()

	var l1, l2 atomic.Int32
	id1, err := hub.AddListener("order.created", counter(&l1))
	require.NoError(t, err)
	_, err = hub.AddListener("order.created", counter(&l2))
	require.NoError(t, err)

	require.NoError(t, hub.Emit("order.created", order{ID: "o-1"}))
	assert.Equal(t, int32(1), l1.Load())
	assert.Equal(t, int32(1), l2.Load())

	removed, err := hub.RemoveListener(id1)
	require.NoError(t, err)
	require.True(t, removed)

	require.NoError(t, hub.Emit("order.created", order{ID: "o-2"}))
	assert.Equal(t, int32(1), l1.Load())
	assert.Equal(t, int32(2), l2.Load())
}

func TestHub_AddListenerReturnsDistinctIDs(t *testing.T) {
	hub := NewHub[int]()

	seen := make(map[ListenerID]bool)
	for i := 0; i < 50; i++ {
		id, err := hub.AddListener(fmt.Sprintf("kind-%d", i%5), Infallible(func(int) {}))
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestHub_AddListenerRejectsNil(t *testing.T) {
	hub := NewHub[int]()

	_, err := hub.AddListener("a", nil)
	require.ErrorIs(t, err, ErrNilCallback)

	kinds, err := hub.ListEventKinds()
	require.NoError(t, err)
	assert.Empty(t, kinds)
}

func TestHub_RemoveListenerOnlyOnce(t *testing.T) {
	hub := NewHub[int]()
	id, err := hub.AddListener("a", Infallible(func(int) {}))
	require.NoError(t, err)

	removed, err := hub.RemoveListener(id)
	require.NoError(t, err)
	assert.True(t, removed)

	for i := 0; i < 3; i++ {
		removed, err = hub.RemoveListener(id)
		require.NoError(t, err)
		assert.False(t, removed)
	}
}

func TestHub_RemoveListenersByKind(t *testing.T) {
	hub := NewHub[int]()
	for i := 0; i < 3; i++ {
		_, err := hub.AddListener("a", Infallible(func(int) {}))
		require.NoError(t, err)
	}
	_, err := hub.AddListener("b", Infallible(func(int) {}))
	require.NoError(t, err)

	n, err := hub.RemoveListenersByKind("a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	has, err := hub.HasListeners("a")
	require.NoError(t, err)
	assert.False(t, has)

	count, err := hub.ListenersCount("a")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = hub.ListenersCount("b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = hub.RemoveListenersByKind("never")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHub_ClearListeners(t *testing.T) {
	hub := NewHub[int]()
	_, err := hub.AddListener("a", Infallible(func(int) {}))
	require.NoError(t, err)
	_, err = hub.AddListener("b", Infallible(func(int) {}))
	require.NoError(t, err)

	require.NoError(t, hub.ClearListeners())

	kinds, err := hub.ListEventKinds()
	require.NoError(t, err)
	assert.Empty(t, kinds)
	require.NoError(t, hub.Verify())
}

func TestHub_ListEventKinds(t *testing.T) {
	hub := NewHub[int]()
	for _, k := range []string{"b", "a", "b", "c"} {
		_, err := hub.AddListener(k, Infallible(func(int) {}))
		require.NoError(t, err)
	}

	kinds, err := hub.ListEventKinds()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, kinds)
}

func TestHub_EmitWithoutListeners(t *testing.T) {
	hub := NewHub[int]()
	require.NoError(t, hub.Emit("nobody", 1))
}

func TestHub_EmitAggregatesFailures(t *testing.T) {
	hub := NewHub[int]()

	var calls atomic.Int32
	var failing []ListenerID
	for i := 0; i < 5; i++ {
		i := i
		id, err := hub.AddListener("work", func(int) error {
			calls.Add(1)
			if i%2 == 0 {
				return fmt.Errorf("worker %d failed", i)
			}
			return nil
		})
		require.NoError(t, err)
		if i%2 == 0 {
			failing = append(failing, id)
		}
	}

	err := hub.Emit("work", 7)
	require.Error(t, err)
	assert.Equal(t, int32(5), calls.Load(), "every listener is attempted")

	require.ErrorIs(t, err, ErrEmitFailed)
	var emitErr *EmitError
	require.True(t, errors.As(err, &emitErr))
	assert.Equal(t, []string{"work"}, emitErr.Kinds)
	assert.Equal(t, 5, emitErr.Attempted)
	require.Len(t, emitErr.Failures, 3)

	got := make([]ListenerID, 0, 3)
	for _, f := range emitErr.Failures {
		assert.Equal(t, "work", f.Kind)
		got = append(got, f.ListenerID)
	}
	assert.ElementsMatch(t, failing, got)
	assert.ElementsMatch(t, []string{"worker 0 failed", "worker 2 failed", "worker 4 failed"}, emitErr.Messages())
	assert.Contains(t, err.Error(), "3 of 5 listeners failed")
}

func TestHub_EmitRecoversPanickingListener(t *testing.T) {
	hub := NewHub[int]()

	var after atomic.Int32
	_, err := hub.AddListener("a", Infallible(func(int) { panic("boom") }))
	require.NoError(t, err)
	_, err = hub.AddListener("a", counter2(&after))
	require.NoError(t, err)

	err = hub.Emit("a", 1)
	require.ErrorIs(t, err, ErrListenerPanic)
	assert.Equal(t, int32(1), after.Load())

	// The panicking listener is poisoned from now on.
	err = hub.Emit("a", 2)
	require.ErrorIs(t, err, ErrLockPoisoned)
	require.ErrorIs(t, err, ErrEmitFailed)
	assert.Equal(t, int32(2), after.Load())
}

func counter2(n *atomic.Int32) Callback[int] {
	return Infallible(func(int) { n.Add(1) })
}

type cart struct {
	Items []string
}

func (c cart) Clone() cart {
	return cart{Items: append([]string(nil), c.Items...)}
}

func TestHub_EmitClonesPayloadPerListener(t *testing.T) {
	hub := NewHub[cart]()

	var seen [][]string
	var mu sync.Mutex
	for i := 0; i < 2; i++ {
		_, err := hub.AddListener("cart", Infallible(func(c cart) {
			c.Items[0] = "mutated"
			mu.Lock()
			seen = append(seen, c.Items)
			mu.Unlock()
		}))
		require.NoError(t, err)
	}

	original := cart{Items: []string{"apple"}}
	require.NoError(t, hub.Emit("cart", original))

	assert.Equal(t, "apple", original.Items[0])
	require.Len(t, seen, 2)
}

func TestHub_ListenerMayMutateRegistry(t *testing.T) {
	hub := NewHub[int]()

	var selfID ListenerID
	var nested atomic.Int32
	id, err := hub.AddListener("a", func(v int) error {
		if _, err := hub.AddListener("b", counter2(&nested)); err != nil {
			return err
		}
		if _, err := hub.RemoveListener(selfID); err != nil {
			return err
		}
		return hub.Emit("b", v)
	})
	require.NoError(t, err)
	selfID = id

	require.NoError(t, hub.Emit("a", 1))
	assert.Equal(t, int32(1), nested.Load())

	has, err := hub.HasListeners("a")
	require.NoError(t, err)
	assert.False(t, has, "listener removed itself")
	require.NoError(t, hub.Verify())
}

func TestHub_CloneSharesStorage(t *testing.T) {
	hub := NewHub[int]()
	clone := hub.Clone()

	var n atomic.Int32
	_, err := clone.AddListener("a", counter2(&n))
	require.NoError(t, err)

	require.NoError(t, hub.Emit("a", 1))
	assert.Equal(t, int32(1), n.Load())

	count, err := hub.ListenersCount("a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHub_PoisonedLockFailsEveryOperation(t *testing.T) {
	hub := NewHub[int]()
	_, err := hub.AddListener("a", Infallible(func(int) {}))
	require.NoError(t, err)

	err = hub.shared.Write("corrupt", func(*Registry[*Listener[int]]) {
		panic("critical section aborted")
	})
	require.ErrorIs(t, err, ErrLockPoisoned)
	assert.True(t, hub.shared.Poisoned())

	_, err = hub.AddListener("a", Infallible(func(int) {}))
	assert.ErrorIs(t, err, ErrLockPoisoned)
	_, err = hub.RemoveListener(ListenerID{})
	assert.ErrorIs(t, err, ErrLockPoisoned)
	_, err = hub.RemoveListenersByKind("a")
	assert.ErrorIs(t, err, ErrLockPoisoned)
	assert.ErrorIs(t, hub.ClearListeners(), ErrLockPoisoned)
	_, err = hub.ListEventKinds()
	assert.ErrorIs(t, err, ErrLockPoisoned)
	_, err = hub.HasListeners("a")
	assert.ErrorIs(t, err, ErrLockPoisoned)
	_, err = hub.ListenersCount("a")
	assert.ErrorIs(t, err, ErrLockPoisoned)
	assert.ErrorIs(t, hub.Emit("a", 1), ErrLockPoisoned)
	assert.ErrorIs(t, hub.NewEmitter("a").Emit(1), ErrLockPoisoned)
	assert.ErrorIs(t, hub.NewBroadcastEmitter().Emit(1), ErrLockPoisoned)

	err = hub.Emit("a", 1)
	assert.Contains(t, err.Error(), "event hub emit")
	assert.Contains(t, err.Error(), "critical section aborted")
	assert.Equal(t, 5, ExitCode(err))
}

func TestHub_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	hub := NewHub[int](WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

	_, err := hub.AddListener("a", func(int) error { return errors.New("nope") })
	require.NoError(t, err)
	require.Error(t, hub.Emit("a", 1))

	out := buf.String()
	assert.Contains(t, out, `"component":"event.hub"`)
	assert.Contains(t, out, "listener added")
	assert.Contains(t, out, "emit completed with listener failures")
}

func TestHub_ConcurrentAddAndEmit(t *testing.T) {
	hub := NewHub[int]()

	var delivered atomic.Int64
	_, err := hub.AddListener("steady", Infallible(func(int) { delivered.Add(1) }))
	require.NoError(t, err)

	const writers = 8
	const perWriter = 200
	const emits = 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kind := fmt.Sprintf("writer-%d", w)
			ids := make([]ListenerID, 0, perWriter)
			for i := 0; i < perWriter; i++ {
				id, err := hub.AddListener(kind, Infallible(func(int) {}))
				if err != nil {
					t.Error(err)
					return
				}
				ids = append(ids, id)
				if i%3 == 0 {
					if _, err := hub.RemoveListener(ids[len(ids)/2]); err != nil {
						t.Error(err)
						return
					}
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < emits; i++ {
			if err := hub.Emit("steady", i); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	wg.Wait()

	assert.Equal(t, int64(emits), delivered.Load())
	require.NoError(t, hub.Verify())

	kinds, err := hub.ListEventKinds()
	require.NoError(t, err)
	assert.Len(t, kinds, writers+1)
}
