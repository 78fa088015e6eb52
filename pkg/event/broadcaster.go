// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

// broadcaster emits to a set of kinds. A nil set targets every kind present
// when Emit is called.
type broadcaster[T any] struct {
	hub   *Hub[T]
	kinds []string
}

func newBroadcaster[T any](hub *Hub[T], kinds []string) *broadcaster[T] {
	return &broadcaster[T]{hub: hub, kinds: UniqueKinds(kinds)}
}

func (b *broadcaster[T]) Emit(v T) error {
	return b.hub.emit(b.kinds, v)
}

func (b *broadcaster[T]) Clone() Emitter[T] {
	return &broadcaster[T]{hub: b.hub.Clone(), kinds: b.kinds}
}

// Kinds returns the bound kinds; nil means all kinds.
func (b *broadcaster[T]) Kinds() []string {
	if b.kinds == nil {
		return nil
	}
	return append([]string(nil), b.kinds...)
}

// UniqueKinds removes duplicate kinds while keeping the first occurrence order.
// An empty input yields nil, the "all kinds" marker.
func UniqueKinds(kinds []string) []string {
	if len(kinds) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(kinds))
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
