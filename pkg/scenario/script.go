// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package scenario runs scripted exercises against an event hub: listeners
// with canned behaviours, a sequence of emits and registry changes, and
// expectations checked along the way.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/emitix/emitix/pkg/version"
)

// Action is what a scripted listener does when called.
type Action string

const (
	// ActionRecord counts the call and succeeds.
	ActionRecord Action = "record"
	// ActionFail returns an error, optionally only on every n-th call.
	ActionFail Action = "fail"
	// ActionForward re-emits the payload to another kind from inside the callback.
	ActionForward Action = "forward"
	// ActionUnsubscribe removes its own registration on the first call.
	ActionUnsubscribe Action = "unsubscribe"
	// ActionPanic panics; the listener is poisoned afterwards.
	ActionPanic Action = "panic"
)

// DefaultMaxHops bounds forward chains when a script sets no max_hops.
const DefaultMaxHops = 8

// Script is a parsed scenario file.
type Script struct {
	Version   string         `yaml:"version" json:"version" validate:"required"`
	Name      string         `yaml:"name" json:"name" validate:"required"`
	MaxHops   int            `yaml:"max_hops,omitempty" json:"max_hops,omitempty" validate:"min=0,max=64"`
	Listeners []ListenerSpec `yaml:"listeners" json:"listeners" validate:"dive"`
	Steps     []Step         `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
}

// ListenerSpec declares one listener registered before the first step.
type ListenerSpec struct {
	Name      string `yaml:"name" json:"name" validate:"required"`
	Kind      string `yaml:"kind" json:"kind" validate:"required"`
	Action    Action `yaml:"action" json:"action" validate:"required,oneof=record fail forward unsubscribe panic"`
	Message   string `yaml:"message,omitempty" json:"message,omitempty"`
	Target    string `yaml:"target,omitempty" json:"target,omitempty" validate:"required_if=Action forward"`
	FailEvery int    `yaml:"fail_every,omitempty" json:"fail_every,omitempty" validate:"min=0"`
}

// Step is a single scripted operation. Exactly one operation field is set.
type Step struct {
	Emit       string       `yaml:"emit,omitempty" json:"emit,omitempty"`
	Broadcast  *[]string    `yaml:"broadcast,omitempty" json:"broadcast,omitempty"`
	Remove     string       `yaml:"remove,omitempty" json:"remove,omitempty"`
	RemoveKind string       `yaml:"remove_kind,omitempty" json:"remove_kind,omitempty"`
	Clear      bool         `yaml:"clear,omitempty" json:"clear,omitempty"`
	Expect     *Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Payload is delivered by emit and broadcast steps.
	Payload Payload `yaml:"payload,omitempty" json:"payload,omitempty"`
	// ExpectError marks an emit or broadcast whose listeners are meant to fail.
	ExpectError bool `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// Expectation checks registry and listener state at a point in the script.
type Expectation struct {
	// Calls maps listener names to their total number of calls so far.
	Calls map[string]int `yaml:"calls,omitempty" json:"calls,omitempty"`
	// Counts maps kinds to their current number of listeners.
	Counts map[string]int `yaml:"counts,omitempty" json:"counts,omitempty"`
	// Has maps kinds to whether they currently have listeners.
	Has map[string]bool `yaml:"has,omitempty" json:"has,omitempty"`
	// Kinds, when set, is the exact sorted list of kinds with listeners.
	Kinds *[]string `yaml:"kinds,omitempty" json:"kinds,omitempty"`
}

// StepType names the operation of a step.
type StepType string

const (
	StepEmit       StepType = "emit"
	StepBroadcast  StepType = "broadcast"
	StepRemove     StepType = "remove"
	StepRemoveKind StepType = "remove_kind"
	StepClear      StepType = "clear"
	StepExpect     StepType = "expect"
)

// operations returns every operation set on s.
func (s Step) operations() []StepType {
	var ops []StepType
	if s.Emit != "" {
		ops = append(ops, StepEmit)
	}
	if s.Broadcast != nil {
		ops = append(ops, StepBroadcast)
	}
	if s.Remove != "" {
		ops = append(ops, StepRemove)
	}
	if s.RemoveKind != "" {
		ops = append(ops, StepRemoveKind)
	}
	if s.Clear {
		ops = append(ops, StepClear)
	}
	if s.Expect != nil {
		ops = append(ops, StepExpect)
	}
	return ops
}

// Type returns the step's operation. It is only meaningful for validated
// scripts.
func (s Step) Type() StepType {
	if ops := s.operations(); len(ops) > 0 {
		return ops[0]
	}
	return ""
}

// Describe renders the step for reports and terminal output.
func (s Step) Describe() string {
	switch s.Type() {
	case StepEmit:
		return "emit " + s.Emit
	case StepBroadcast:
		if len(*s.Broadcast) == 0 {
			return "broadcast *"
		}
		return "broadcast " + strings.Join(*s.Broadcast, ",")
	case StepRemove:
		return "remove " + s.Remove
	case StepRemoveKind:
		return "remove_kind " + s.RemoveKind
	case StepClear:
		return "clear"
	case StepExpect:
		return "expect"
	default:
		return "unknown"
	}
}

// Load reads and validates a script file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a script. Unknown fields are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty script", ErrInvalidScript)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var validate = validator.New()

// Validate checks field constraints, the format version and references
// between steps and listeners.
func (s *Script) Validate() error {
	verr := &ValidationError{}

	if err := validate.Struct(s); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		for _, fe := range fields {
			verr.add("%s: failed %s", strings.TrimPrefix(fe.Namespace(), "Script."), fe.Tag())
		}
	}

	if s.Version != "" {
		if err := checkVersion(s.Version); err != nil {
			verr.addErr(err)
		}
	}

	names := make(map[string]bool, len(s.Listeners))
	for i, l := range s.Listeners {
		if names[l.Name] {
			verr.add("listeners[%d]: duplicate name %q", i, l.Name)
		}
		names[l.Name] = true
	}

	if cycle := s.forwardCycle(); cycle != nil {
		verr.add("listeners: forward cycle %s", strings.Join(cycle, " -> "))
	}

	for i, step := range s.Steps {
		ops := step.operations()
		switch len(ops) {
		case 0:
			verr.add("steps[%d]: no operation", i)
			continue
		case 1:
		default:
			verr.add("steps[%d]: more than one operation (%v)", i, ops)
			continue
		}

		switch ops[0] {
		case StepRemove:
			if !names[step.Remove] {
				verr.add("steps[%d]: remove references unknown listener %q", i, step.Remove)
			}
		case StepExpect:
			for name := range step.Expect.Calls {
				if !names[name] {
					verr.add("steps[%d]: expect references unknown listener %q", i, name)
				}
			}
		}

		if step.ExpectError && ops[0] != StepEmit && ops[0] != StepBroadcast {
			verr.add("steps[%d]: expect_error only applies to emit and broadcast", i)
		}
		if step.Payload != nil && ops[0] != StepEmit && ops[0] != StepBroadcast {
			verr.add("steps[%d]: payload only applies to emit and broadcast", i)
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

// forwardCycle returns a chain of kinds that leads back to its first kind
// through forward listeners, or nil. A listener is never invoked while it
// is already running, so such a chain could not make progress.
func (s *Script) forwardCycle() []string {
	targets := make(map[string][]string)
	var kinds []string
	for _, l := range s.Listeners {
		if l.Action != ActionForward || l.Target == "" {
			continue
		}
		if _, ok := targets[l.Kind]; !ok {
			kinds = append(kinds, l.Kind)
		}
		targets[l.Kind] = append(targets[l.Kind], l.Target)
	}

	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(targets))
	var path []string

	var visit func(kind string) []string
	visit = func(kind string) []string {
		switch state[kind] {
		case active:
			start := slices.Index(path, kind)
			return append(slices.Clone(path[start:]), kind)
		case done:
			return nil
		}

		state[kind] = active
		path = append(path, kind)
		for _, next := range targets[kind] {
			if cycle := visit(next); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[kind] = done
		return nil
	}

	for _, kind := range kinds {
		if cycle := visit(kind); cycle != nil {
			return cycle
		}
	}
	return nil
}

// checkVersion accepts script versions within version.ScenarioConstraint.
func checkVersion(v string) error {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("version %q: %v", v, err)
	}

	c, err := semver.NewConstraint(version.ScenarioConstraint)
	if err != nil {
		return err
	}
	if !c.Check(sv) {
		return fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedVersion, v, version.ScenarioConstraint)
	}
	return nil
}

func (s *Script) maxHops() int {
	if s.MaxHops > 0 {
		return s.MaxHops
	}
	return DefaultMaxHops
}
