// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

// kindEmitter emits to a single kind of a hub.
type kindEmitter[T any] struct {
	hub  *Hub[T]
	kind string
}

func (e *kindEmitter[T]) Emit(v T) error {
	return e.hub.emit([]string{e.kind}, v)
}

func (e *kindEmitter[T]) Clone() Emitter[T] {
	return &kindEmitter[T]{hub: e.hub.Clone(), kind: e.kind}
}

// Kind returns the kind the emitter is bound to.
func (e *kindEmitter[T]) Kind() string {
	return e.kind
}

// callbackEmitter delivers straight to one pre-resolved listener, with no
// registry behind it.
type callbackEmitter[T any] struct {
	listener *Listener[T]
	kind     string
}

// NewCallbackEmitter returns an emitter that invokes callback on every call.
// label is reported as the kind in failures. A nil callback yields a null
// emitter.
func NewCallbackEmitter[T any](label string, callback Callback[T]) Emitter[T] {
	if callback == nil {
		return NullEmitter[T]()
	}
	return &callbackEmitter[T]{listener: NewListener(callback), kind: label}
}

func (e *callbackEmitter[T]) Emit(v T) error {
	if err := e.listener.Call(ClonePayload(v)); err != nil {
		return NewEmitError([]string{e.kind}, 1, []*ListenerError{{Kind: e.kind, Err: err}})
	}
	return nil
}

func (e *callbackEmitter[T]) Clone() Emitter[T] {
	return &callbackEmitter[T]{listener: e.listener, kind: e.kind}
}

// nullEmitter discards every value.
type nullEmitter[T any] struct{}

// NullEmitter returns an emitter that delivers nothing and never fails. It is
// a safe default wherever an emitter is required but no delivery should occur.
func NullEmitter[T any]() Emitter[T] {
	return nullEmitter[T]{}
}

func (nullEmitter[T]) Emit(T) error { return nil }

func (e nullEmitter[T]) Clone() Emitter[T] { return e }
