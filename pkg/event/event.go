// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package event provides a typed, in-process publish-subscribe hub.
//
// Listeners are registered against string event kinds and receive every value
// emitted for that kind. Delivery is synchronous and happens on the emitting
// goroutine, after the registry lock has been released, so a listener may
// register, remove or emit on the same hub without deadlocking.
//
//	hub := event.NewHub[Order]()
//	id, _ := hub.AddListener("order.created", func(o Order) error {
//		return audit.Record(o)
//	})
//	_ = hub.Emit("order.created", order)
//	_, _ = hub.RemoveListener(id)
//
// Emitters are narrow handles bound to a kind (or a set of kinds) that can be
// passed down a call chain without exposing the lifecycle API.
package event

import "github.com/google/uuid"

// ListenerID identifies a registered listener. Ids are random and never reused.
type ListenerID = uuid.UUID

// Callback is the function invoked for every delivered event.
// A non-nil error marks the delivery as failed; it does not stop delivery to
// the remaining listeners.
type Callback[T any] func(T) error

// Infallible adapts a function that cannot fail into a Callback.
func Infallible[T any](fn func(T)) Callback[T] {
	return func(v T) error {
		fn(v)
		return nil
	}
}

// Cloner is implemented by payloads that share memory (maps, slices, pointers)
// and must be duplicated before being handed to each listener.
type Cloner[T any] interface {
	Clone() T
}

// ClonePayload returns the copy of v delivered to a single listener: v.Clone()
// for Cloner payloads, v itself otherwise.
func ClonePayload[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}
