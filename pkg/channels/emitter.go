// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package channels

import "github.com/emitix/emitix/pkg/event"

// callbackEmitter is an event.Emitter driven by a single Callback handle.
type callbackEmitter[T any] struct {
	callback Callback[T]
}

func newCallbackEmitter[T any](cb Callback[T]) *callbackEmitter[T] {
	return &callbackEmitter[T]{callback: cb}
}

// Emitter wraps an arbitrary Callback as an event.Emitter.
func Emitter[T any](cb Callback[T]) event.Emitter[T] {
	return newCallbackEmitter(cb)
}

func (e *callbackEmitter[T]) Emit(v T) error {
	return e.callback.Run(v)
}

func (e *callbackEmitter[T]) Clone() event.Emitter[T] {
	return &callbackEmitter[T]{callback: e.callback}
}
