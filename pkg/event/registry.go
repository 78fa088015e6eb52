// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Registry stores listeners by event kind with a reverse index from listener
// id to kind. It is not safe for concurrent use; owners guard it with a lock.
//
// A kind bucket is removed as soon as its last listener goes away.
type Registry[L any] struct {
	listeners map[string]map[ListenerID]L
	links     map[ListenerID]string
}

// NewRegistry creates an empty registry.
func NewRegistry[L any]() *Registry[L] {
	return &Registry[L]{
		listeners: make(map[string]map[ListenerID]L),
		links:     make(map[ListenerID]string),
	}
}

// Register stores listener under kind and returns its new id.
func (r *Registry[L]) Register(kind string, listener L) ListenerID {
	id := uuid.New()

	bucket, ok := r.listeners[kind]
	if !ok {
		bucket = make(map[ListenerID]L)
		r.listeners[kind] = bucket
	}
	bucket[id] = listener
	r.links[id] = kind

	return id
}

// Remove deletes the listener with the given id.
// It returns false if the id is unknown or was already removed.
func (r *Registry[L]) Remove(id ListenerID) bool {
	kind, ok := r.links[id]
	if !ok {
		return false
	}
	delete(r.links, id)

	bucket := r.listeners[kind]
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(r.listeners, kind)
	}

	return true
}

// RemoveByKind deletes every listener of kind and returns how many were removed.
func (r *Registry[L]) RemoveByKind(kind string) int {
	bucket, ok := r.listeners[kind]
	if !ok {
		return 0
	}
	delete(r.listeners, kind)

	for id := range bucket {
		delete(r.links, id)
	}
	return len(bucket)
}

// Clear removes all listeners.
func (r *Registry[L]) Clear() {
	r.listeners = make(map[string]map[ListenerID]L)
	r.links = make(map[ListenerID]string)
}

// Entry is a listener together with its identity, as returned by Snapshot.
type Entry[L any] struct {
	ID       ListenerID
	Kind     string
	Listener L
}

// Snapshot copies out the listeners registered for the given kinds.
// Unknown kinds contribute nothing; a kind listed twice contributes twice.
// The order among listeners of one kind is unspecified.
func (r *Registry[L]) Snapshot(kinds ...string) []Entry[L] {
	size := 0
	for _, kind := range kinds {
		size += len(r.listeners[kind])
	}
	if size == 0 {
		return nil
	}

	entries := make([]Entry[L], 0, size)
	for _, kind := range kinds {
		for id, l := range r.listeners[kind] {
			entries = append(entries, Entry[L]{ID: id, Kind: kind, Listener: l})
		}
	}
	return entries
}

// Kinds returns every kind with at least one listener, sorted.
func (r *Registry[L]) Kinds() []string {
	kinds := make([]string, 0, len(r.listeners))
	for kind := range r.listeners {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Has reports whether kind has listeners.
func (r *Registry[L]) Has(kind string) bool {
	_, ok := r.listeners[kind]
	return ok
}

// Count returns the number of listeners registered for kind.
func (r *Registry[L]) Count(kind string) int {
	return len(r.listeners[kind])
}

// Len returns the total number of listeners.
func (r *Registry[L]) Len() int {
	return len(r.links)
}

// KindOf returns the kind a listener id is registered under.
func (r *Registry[L]) KindOf(id ListenerID) (string, bool) {
	kind, ok := r.links[id]
	return kind, ok
}

// Verify checks that the forward and reverse indices agree and that no empty
// bucket is left behind.
func (r *Registry[L]) Verify() error {
	total := 0
	for kind, bucket := range r.listeners {
		if len(bucket) == 0 {
			return fmt.Errorf("registry: empty bucket for kind %q", kind)
		}
		for id := range bucket {
			linked, ok := r.links[id]
			if !ok {
				return fmt.Errorf("registry: listener %s in kind %q has no reverse link", id, kind)
			}
			if linked != kind {
				return fmt.Errorf("registry: listener %s stored in kind %q but linked to %q", id, kind, linked)
			}
		}
		total += len(bucket)
	}
	if total != len(r.links) {
		return fmt.Errorf("registry: %d reverse links for %d listeners", len(r.links), total)
	}
	return nil
}
