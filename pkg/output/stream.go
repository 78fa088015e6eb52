// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package output

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/emitix/emitix/pkg/event"
)

// OutputSubscriber handles output events.
// Subscribers implement rendering logic for different output formats
// (tables, JSON, diagnostic logs).
type OutputSubscriber interface {
	// Handle processes an output event.
	Handle(event OutputEvent)

	// Name returns a unique identifier for this subscriber.
	Name() string

	// ShouldHandle decides if this subscriber cares about this event.
	ShouldHandle(event OutputEvent) bool
}

// KindSubscriber is an OutputSubscriber that only listens on some event
// types. Subscribers without Kinds are registered for every type.
type KindSubscriber interface {
	OutputSubscriber
	Kinds() []EventType
}

// Subscription identifies the hub listeners registered for one subscriber.
type Subscription struct {
	Name string
	IDs  []event.ListenerID
}

// OutputEventStream dispatches output events through an event hub keyed by
// EventType. Dispatch is synchronous; the order among subscribers of one
// type is unspecified.
type OutputEventStream struct {
	hub   *event.Hub[OutputEvent]
	count atomic.Int32
	now   func() time.Time
}

// NewOutputEventStream creates a stream with no subscribers.
func NewOutputEventStream(opts ...event.Option) *OutputEventStream {
	return &OutputEventStream{
		hub: event.NewHub[OutputEvent](opts...),
		now: time.Now,
	}
}

// Hub exposes the underlying hub, e.g. to build emitters for one event type.
func (s *OutputEventStream) Hub() *event.Hub[OutputEvent] {
	return s.hub
}

// Subscribe registers sub for its declared event types.
func (s *OutputEventStream) Subscribe(sub OutputSubscriber) (Subscription, error) {
	kinds := AllEventTypes
	if ks, ok := sub.(KindSubscriber); ok {
		kinds = ks.Kinds()
	}

	handle := func(ev OutputEvent) error {
		if sub.ShouldHandle(ev) {
			sub.Handle(ev)
		}
		return nil
	}

	subscription := Subscription{Name: sub.Name()}
	for _, kind := range kinds {
		id, err := s.hub.AddListener(string(kind), handle)
		if err != nil {
			s.Unsubscribe(subscription)
			return Subscription{}, fmt.Errorf("subscribe %s: %w", sub.Name(), err)
		}
		subscription.IDs = append(subscription.IDs, id)
	}

	s.count.Add(1)
	return subscription, nil
}

// Unsubscribe removes the listeners of sub. It reports whether any were
// still registered.
func (s *OutputEventStream) Unsubscribe(sub Subscription) bool {
	removed := false
	for _, id := range sub.IDs {
		ok, err := s.hub.RemoveListener(id)
		if err == nil && ok {
			removed = true
		}
	}
	if removed {
		s.count.Add(-1)
	}
	return removed
}

// Emit routes ev to the subscribers of ev.Type. A zero timestamp is set to
// the current time.
func (s *OutputEventStream) Emit(ev OutputEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	return s.hub.Emit(string(ev.Type), ev)
}

// Diag emits a diagnostic shown at level and above.
func (s *OutputEventStream) Diag(level OutputLevel, message string, metadata map[string]any) error {
	return s.Emit(OutputEvent{Type: EventDiag, Level: level, Message: message, Metadata: metadata})
}

// Step emits a step result.
func (s *OutputEventStream) Step(message string, metadata map[string]any) error {
	return s.Emit(OutputEvent{Type: EventStep, Message: message, Metadata: metadata})
}

// Summary emits the closing event of a run.
func (s *OutputEventStream) Summary(message string, metadata map[string]any) error {
	return s.Emit(OutputEvent{Type: EventSummary, Message: message, Metadata: metadata})
}

// SubscriberCount returns the number of active subscriptions.
func (s *OutputEventStream) SubscriberCount() int {
	return int(s.count.Load())
}
