// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

// Emitter is the producer-side capability: it delivers a value to whatever
// listeners it is bound to.
type Emitter[T any] interface {
	// Emit delivers v. Listener failures are aggregated into an *EmitError
	// after every listener has been attempted.
	Emit(v T) error

	// Clone returns an independent handle sharing the same binding.
	Clone() Emitter[T]
}

// Manager is the administration-side capability over a listener registry.
type Manager[T any] interface {
	// Emit delivers v to every listener of kind.
	Emit(kind string, v T) error

	// AddListener registers callback for kind and returns its id.
	AddListener(kind string, callback Callback[T]) (ListenerID, error)

	// RemoveListener removes a listener by id. It reports false if the id is unknown.
	RemoveListener(id ListenerID) (bool, error)

	// RemoveListenersByKind removes every listener of kind and returns the count.
	RemoveListenersByKind(kind string) (int, error)

	// ClearListeners removes every listener.
	ClearListeners() error

	// ListEventKinds returns every kind that has listeners, sorted.
	ListEventKinds() ([]string, error)

	// HasListeners reports whether kind has listeners.
	HasListeners(kind string) (bool, error)

	// ListenersCount returns the number of listeners of kind.
	ListenersCount(kind string) (int, error)

	// NewEmitter returns an emitter bound to kind.
	NewEmitter(kind string) Emitter[T]

	// NewBroadcastEmitter returns an emitter bound to kinds; no kinds means
	// every kind registered at call time.
	NewBroadcastEmitter(kinds ...string) Emitter[T]

	// NewNullEmitter returns an emitter that delivers nothing.
	NewNullEmitter() Emitter[T]
}
