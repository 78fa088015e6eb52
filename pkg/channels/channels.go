// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package channels adapts the event registry to hosts that bring their own
// callback primitive. Listeners are stored as Callback handles in the shared
// event.Registry and delivered with the same contract as event.Hub.
package channels

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/emitix/emitix/pkg/event"
)

const owner = "event channels"

// Channels is an event.Manager whose listeners and emitters are Callback
// handles. Copies made with Clone share listeners.
type Channels[T any] struct {
	shared *event.SharedRegistry[Callback[T]]
	logger zerolog.Logger
}

var _ event.Manager[struct{}] = (*Channels[struct{}])(nil)

// New creates an empty Channels. The logger receives lock failures observed
// by emitters; pass zerolog.Nop() to silence it.
func New[T any](logger zerolog.Logger) *Channels[T] {
	return &Channels[T]{
		shared: event.NewSharedRegistry[Callback[T]](owner),
		logger: logger.With().Str("component", "event.channels").Logger(),
	}
}

// Clone returns a Channels sharing this one's listeners.
func (c *Channels[T]) Clone() *Channels[T] {
	return &Channels[T]{shared: c.shared, logger: c.logger}
}

// Emit delivers v to every callback registered for kind.
func (c *Channels[T]) Emit(kind string, v T) error {
	return c.emit([]string{kind}, v)
}

// AddListener registers callback for kind.
func (c *Channels[T]) AddListener(kind string, callback event.Callback[T]) (event.ListenerID, error) {
	if callback == nil {
		return event.ListenerID{}, event.ErrNilCallback
	}
	return c.AddCallback(kind, NewCallback(callback))
}

// AddCallback registers an existing Callback handle for kind.
func (c *Channels[T]) AddCallback(kind string, cb Callback[T]) (event.ListenerID, error) {
	if cb.IsZero() {
		return event.ListenerID{}, event.ErrNilCallback
	}

	var id event.ListenerID
	err := c.shared.Write("add listener", func(r *event.Registry[Callback[T]]) {
		id = r.Register(kind, cb)
	})
	return id, err
}

// RemoveListener removes a callback by id.
func (c *Channels[T]) RemoveListener(id event.ListenerID) (bool, error) {
	var removed bool
	err := c.shared.Write("remove listener", func(r *event.Registry[Callback[T]]) {
		removed = r.Remove(id)
	})
	return removed, err
}

// RemoveListenersByKind removes every callback of kind.
func (c *Channels[T]) RemoveListenersByKind(kind string) (int, error) {
	var n int
	err := c.shared.Write("remove listeners by kind", func(r *event.Registry[Callback[T]]) {
		n = r.RemoveByKind(kind)
	})
	return n, err
}

// ClearListeners removes every callback.
func (c *Channels[T]) ClearListeners() error {
	return c.shared.Write("clear listeners", func(r *event.Registry[Callback[T]]) {
		r.Clear()
	})
}

// ListEventKinds returns the kinds with callbacks, sorted.
func (c *Channels[T]) ListEventKinds() ([]string, error) {
	var kinds []string
	err := c.shared.Read("list event kinds", func(r *event.Registry[Callback[T]]) {
		kinds = r.Kinds()
	})
	return kinds, err
}

// HasListeners reports whether kind has callbacks.
func (c *Channels[T]) HasListeners(kind string) (bool, error) {
	var has bool
	err := c.shared.Read("has listeners", func(r *event.Registry[Callback[T]]) {
		has = r.Has(kind)
	})
	return has, err
}

// ListenersCount returns the number of callbacks for kind.
func (c *Channels[T]) ListenersCount(kind string) (int, error) {
	var n int
	err := c.shared.Read("listeners count", func(r *event.Registry[Callback[T]]) {
		n = r.Count(kind)
	})
	return n, err
}

// NewEmitter returns an emitter whose callback resolves kind's listeners on
// every call.
func (c *Channels[T]) NewEmitter(kind string) event.Emitter[T] {
	kinds := []string{kind}
	return newCallbackEmitter(NewCallback(func(v T) error {
		return c.emitLogged(kinds, kind, v)
	}))
}

// NewBroadcastEmitter returns an emitter for a set of kinds; no kinds means
// every kind registered at call time.
func (c *Channels[T]) NewBroadcastEmitter(kinds ...string) event.Emitter[T] {
	bound := event.UniqueKinds(kinds)
	label := strings.Join(bound, ", ")
	if bound == nil {
		label = "*"
	}

	return newCallbackEmitter(NewCallback(func(v T) error {
		return c.emitLogged(bound, label, v)
	}))
}

// NewNullEmitter returns an emitter around a callback that does nothing.
func (c *Channels[T]) NewNullEmitter() event.Emitter[T] {
	return newCallbackEmitter(NewCallback(func(T) error { return nil }))
}

// emitLogged is the emitter path: lock failures are logged before being
// returned, since emitters are often called far from the owner of c.
func (c *Channels[T]) emitLogged(kinds []string, label string, v T) error {
	err := c.emit(kinds, v)
	if event.IsLockFailure(err) && event.Failures(err) == nil {
		c.logger.Error().Err(err).Str("kinds", label).Msg("failed to lock the registry")
	}
	return err
}

func (c *Channels[T]) emit(kinds []string, v T) error {
	var entries []event.Entry[Callback[T]]
	resolved := kinds
	err := c.shared.Read("emit", func(r *event.Registry[Callback[T]]) {
		if kinds == nil {
			resolved = r.Kinds()
		}
		entries = r.Snapshot(resolved...)
	})
	if err != nil {
		return err
	}

	var failures []*event.ListenerError
	for _, e := range entries {
		if err := e.Listener.Run(event.ClonePayload(v)); err != nil {
			failures = append(failures, &event.ListenerError{ListenerID: e.ID, Kind: e.Kind, Err: err})
		}
	}
	return event.NewEmitError(resolved, len(entries), failures)
}
