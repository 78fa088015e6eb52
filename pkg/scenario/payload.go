// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package scenario

import (
	"maps"

	"github.com/mitchellh/copystructure"
	"github.com/spf13/cast"

	"github.com/emitix/emitix/pkg/event"
)

// hopsKey holds the number of forwards a payload has been through.
const hopsKey = "_hops"

// Payload is the event value delivered by scripted emits.
type Payload map[string]any

var _ event.Cloner[Payload] = Payload(nil)

// Clone returns a deep copy so that listeners cannot observe each other's
// mutations.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}

	cp, err := copystructure.Copy(map[string]any(p))
	if err != nil {
		return maps.Clone(p)
	}
	return Payload(cp.(map[string]any))
}

// Int reads key as an int, coercing strings and floats. Missing or
// unconvertible values yield 0.
func (p Payload) Int(key string) int {
	return cast.ToInt(p[key])
}

// String reads key as a string.
func (p Payload) String(key string) string {
	return cast.ToString(p[key])
}

// Hops returns how many times the payload has been forwarded.
func (p Payload) Hops() int {
	return p.Int(hopsKey)
}

// forwarded returns a copy of p with the hop counter incremented.
func (p Payload) forwarded() Payload {
	next := p.Clone()
	if next == nil {
		next = Payload{}
	}
	next[hopsKey] = p.Hops() + 1
	return next
}
