// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"sync"
	"sync/atomic"
)

// SharedRegistry guards a Registry with a read/write lock. It is the storage
// shared by a hub, its clones and every emitter created from them.
//
// A panic raised inside a critical section poisons the registry: the panic is
// recovered, and that operation and every later one fail with ErrLockPoisoned.
type SharedRegistry[L any] struct {
	owner    string
	mu       sync.RWMutex
	registry *Registry[L]
	poisoned atomic.Pointer[poison]
}

type poison struct {
	cause any
}

// NewSharedRegistry creates an empty shared registry. owner names the
// component in lock failure messages.
func NewSharedRegistry[L any](owner string) *SharedRegistry[L] {
	return &SharedRegistry[L]{
		owner:    owner,
		registry: NewRegistry[L](),
	}
}

// Write runs fn with exclusive access to the registry.
func (s *SharedRegistry[L]) Write(op string, fn func(*Registry[L])) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(op, fn)
}

// Read runs fn with shared access to the registry. fn must not mutate it.
func (s *SharedRegistry[L]) Read(op string, fn func(*Registry[L])) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run(op, fn)
}

func (s *SharedRegistry[L]) run(op string, fn func(*Registry[L])) (err error) {
	if p := s.poisoned.Load(); p != nil {
		return lockError(s.owner, op, p.cause)
	}

	defer func() {
		if r := recover(); r != nil {
			s.poisoned.CompareAndSwap(nil, &poison{cause: r})
			err = lockError(s.owner, op, r)
		}
	}()

	fn(s.registry)
	return nil
}

// Poisoned reports whether a critical section has panicked.
func (s *SharedRegistry[L]) Poisoned() bool {
	return s.poisoned.Load() != nil
}
