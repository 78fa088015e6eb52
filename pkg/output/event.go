// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package output

import (
	"maps"
	"time"
)

// EventType is the hub kind an OutputEvent is routed under.
type EventType string

const (
	// EventDiag carries diagnostics filtered by verbosity.
	EventDiag EventType = "diag"
	// EventStep reports the outcome of one scenario or workload step.
	EventStep EventType = "step"
	// EventSummary closes a run.
	EventSummary EventType = "summary"
)

// AllEventTypes lists every routed kind.
var AllEventTypes = []EventType{EventDiag, EventStep, EventSummary}

// OutputLevel is the verbosity a diagnostic requires to be shown.
type OutputLevel int

const (
	LevelNormal  OutputLevel = iota // always shown
	LevelVerbose                    // -v
	LevelDebug                      // -vv
	LevelTrace                      // -vvv
)

// OutputEvent is a single message on the output stream.
type OutputEvent struct {
	Type      EventType      `json:"type"`
	Level     OutputLevel    `json:"level"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Clone gives every subscriber its own metadata map.
func (e OutputEvent) Clone() OutputEvent {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}

// OK reports whether a step or summary event is marked successful. Events
// without an "ok" entry count as successful.
func (e OutputEvent) OK() bool {
	ok, found := e.Metadata["ok"].(bool)
	return !found || ok
}
