// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package channels

import (
	"fmt"

	"github.com/emitix/emitix/pkg/event"
)

// Callback is a cheap, copyable handle around a function. Copies share the
// same function. The zero Callback does nothing.
type Callback[T any] struct {
	fn *func(T) error
}

// NewCallback wraps fn. A nil fn yields the zero Callback.
func NewCallback[T any](fn func(T) error) Callback[T] {
	if fn == nil {
		return Callback[T]{}
	}
	return Callback[T]{fn: &fn}
}

// Run invokes the callback. Panics are recovered and returned as errors
// wrapping event.ErrListenerPanic.
func (c Callback[T]) Run(v T) (err error) {
	if c.fn == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", event.ErrListenerPanic, r)
		}
	}()

	return (*c.fn)(v)
}

// IsZero reports whether the callback wraps no function.
func (c Callback[T]) IsZero() bool {
	return c.fn == nil
}
