// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Listener wraps a single callback so it can be invoked through a shared
// pointer from any goroutine. Invocations are serialised by the listener's
// own mutex, so a stateful callback never runs twice at once.
//
// The mutex is not re-entrant: a callback that, directly or through other
// listeners, emits to a kind it is itself registered for blocks forever.
type Listener[T any] struct {
	mu       sync.Mutex
	callback Callback[T]
	poisoned atomic.Pointer[panicError]
}

// NewListener wraps callback in a Listener.
func NewListener[T any](callback Callback[T]) *Listener[T] {
	return &Listener[T]{callback: callback}
}

// Call invokes the callback with v while holding the listener's mutex. A
// panic inside the callback is recovered and returned as an error wrapping
// ErrListenerPanic; the mutex is then poisoned and every later call fails
// with ErrLockPoisoned, including calls that were already waiting for it.
func (l *Listener[T]) Call(v T) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p := l.poisoned.Load(); p != nil {
		return lockError("listener", "call", p.value)
	}

	defer func() {
		if r := recover(); r != nil {
			p := &panicError{value: r}
			l.poisoned.CompareAndSwap(nil, p)
			err = p
		}
	}()

	return l.callback(v)
}

// Poisoned reports whether a previous call panicked.
func (l *Listener[T]) Poisoned() bool {
	return l.poisoned.Load() != nil
}

// panicError is the failure recorded for a listener that panicked.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrListenerPanic, e.value)
}

func (e *panicError) Unwrap() error {
	return ErrListenerPanic
}
