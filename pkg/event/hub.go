// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"github.com/rs/zerolog"
)

const hubOwner = "event hub"

// Hub is a thread-safe listener registry with kind-addressed emission.
//
// Copies made with Clone share the same listeners. The zero value is not
// usable; create hubs with NewHub.
type Hub[T any] struct {
	shared *SharedRegistry[*Listener[T]]
	logger zerolog.Logger
}

var _ Manager[struct{}] = (*Hub[struct{}])(nil)

// Option configures a Hub.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used for registry changes and delivery failures.
// Hubs are silent by default.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewHub creates an empty hub.
func NewHub[T any](opts ...Option) *Hub[T] {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Hub[T]{
		shared: NewSharedRegistry[*Listener[T]](hubOwner),
		logger: o.logger.With().Str("component", "event.hub").Logger(),
	}
}

// Clone returns a hub sharing this hub's listeners.
func (h *Hub[T]) Clone() *Hub[T] {
	return &Hub[T]{shared: h.shared, logger: h.logger}
}

// AddListener registers callback for kind.
func (h *Hub[T]) AddListener(kind string, callback Callback[T]) (ListenerID, error) {
	if callback == nil {
		return ListenerID{}, ErrNilCallback
	}

	var id ListenerID
	err := h.shared.Write("add listener", func(r *Registry[*Listener[T]]) {
		id = r.Register(kind, NewListener(callback))
	})
	if err != nil {
		return ListenerID{}, err
	}

	h.logger.Debug().Str("kind", kind).Stringer("listener", id).Msg("listener added")
	return id, nil
}

// RemoveListener removes the listener with the given id. Removing an unknown
// or already removed id reports false without error.
func (h *Hub[T]) RemoveListener(id ListenerID) (bool, error) {
	var removed bool
	err := h.shared.Write("remove listener", func(r *Registry[*Listener[T]]) {
		removed = r.Remove(id)
	})
	if err != nil {
		return false, err
	}

	if removed {
		h.logger.Debug().Stringer("listener", id).Msg("listener removed")
	}
	return removed, nil
}

// RemoveListenersByKind removes every listener of kind.
func (h *Hub[T]) RemoveListenersByKind(kind string) (int, error) {
	var n int
	err := h.shared.Write("remove listeners by kind", func(r *Registry[*Listener[T]]) {
		n = r.RemoveByKind(kind)
	})
	if err != nil {
		return 0, err
	}

	h.logger.Debug().Str("kind", kind).Int("count", n).Msg("listeners removed")
	return n, nil
}

// ClearListeners removes every listener of every kind.
func (h *Hub[T]) ClearListeners() error {
	err := h.shared.Write("clear listeners", func(r *Registry[*Listener[T]]) {
		r.Clear()
	})
	if err != nil {
		return err
	}

	h.logger.Debug().Msg("listeners cleared")
	return nil
}

// ListEventKinds returns the kinds that currently have listeners, sorted.
func (h *Hub[T]) ListEventKinds() ([]string, error) {
	var kinds []string
	err := h.shared.Read("list event kinds", func(r *Registry[*Listener[T]]) {
		kinds = r.Kinds()
	})
	return kinds, err
}

// HasListeners reports whether kind has at least one listener.
func (h *Hub[T]) HasListeners(kind string) (bool, error) {
	var has bool
	err := h.shared.Read("has listeners", func(r *Registry[*Listener[T]]) {
		has = r.Has(kind)
	})
	return has, err
}

// ListenersCount returns the number of listeners registered for kind.
func (h *Hub[T]) ListenersCount(kind string) (int, error) {
	var n int
	err := h.shared.Read("listeners count", func(r *Registry[*Listener[T]]) {
		n = r.Count(kind)
	})
	return n, err
}

// Verify checks the registry's internal consistency.
func (h *Hub[T]) Verify() error {
	var verr error
	if err := h.shared.Read("verify", func(r *Registry[*Listener[T]]) {
		verr = r.Verify()
	}); err != nil {
		return err
	}
	return verr
}

// Emit delivers v to every listener of kind. Emitting to a kind without
// listeners succeeds.
func (h *Hub[T]) Emit(kind string, v T) error {
	return h.emit([]string{kind}, v)
}

// NewEmitter returns an emitter bound to kind. The registry is consulted on
// every call, so listeners added later are reached.
func (h *Hub[T]) NewEmitter(kind string) Emitter[T] {
	return &kindEmitter[T]{hub: h.Clone(), kind: kind}
}

// NewBroadcastEmitter returns an emitter bound to a set of kinds. With no
// kinds it targets every kind registered at the time of each call.
func (h *Hub[T]) NewBroadcastEmitter(kinds ...string) Emitter[T] {
	return newBroadcaster(h.Clone(), kinds)
}

// NewNullEmitter returns an emitter that delivers nothing.
func (h *Hub[T]) NewNullEmitter() Emitter[T] {
	return NullEmitter[T]()
}

// emit resolves kinds, snapshots their listeners under the read lock and
// invokes them after the lock is released. A nil kinds slice means all kinds.
func (h *Hub[T]) emit(kinds []string, v T) error {
	var entries []Entry[*Listener[T]]
	resolved := kinds
	err := h.shared.Read("emit", func(r *Registry[*Listener[T]]) {
		if kinds == nil {
			resolved = r.Kinds()
		}
		entries = r.Snapshot(resolved...)
	})
	if err != nil {
		return err
	}

	if err := deliver(resolved, entries, v); err != nil {
		h.logger.Warn().Err(err).Strs("kinds", resolved).Msg("emit completed with listener failures")
		return err
	}
	return nil
}

// deliver calls every entry with its own copy of v and aggregates failures.
func deliver[T any](kinds []string, entries []Entry[*Listener[T]], v T) error {
	var failures []*ListenerError
	for _, e := range entries {
		if err := e.Listener.Call(ClonePayload(v)); err != nil {
			failures = append(failures, &ListenerError{ListenerID: e.ID, Kind: e.Kind, Err: err})
		}
	}
	return NewEmitError(kinds, len(entries), failures)
}
