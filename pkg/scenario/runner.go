// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package scenario

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/emitix/emitix/pkg/event"
	"github.com/emitix/emitix/pkg/output"
)

// Runner executes scripts against a fresh hub per run and reports progress
// on an output stream.
type Runner struct {
	stream *output.OutputEventStream
	logger zerolog.Logger
	now    func() time.Time
}

// NewRunner creates a Runner. A nil stream gets a stream without
// subscribers.
func NewRunner(stream *output.OutputEventStream, logger zerolog.Logger) *Runner {
	if stream == nil {
		stream = output.NewOutputEventStream()
	}
	return &Runner{
		stream: stream,
		logger: logger.With().Str("component", "scenario.runner").Logger(),
		now:    time.Now,
	}
}

// scripted is the runtime state of one declared listener.
type scripted struct {
	spec     ListenerSpec
	id       event.ListenerID
	calls    atomic.Int64
	failures atomic.Int64
}

// run holds the state of a single Run call.
type run struct {
	*Runner
	script    *Script
	hub       *event.Hub[Payload]
	listeners []*scripted
	byName    map[string]*scripted
	byID      map[event.ListenerID]*scripted
}

// Run executes script step by step. It returns the report together with
// ErrScenarioFailed when any step failed, or the context error if ctx is
// cancelled between steps.
func (r *Runner) Run(ctx context.Context, script *Script) (*Report, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}

	started := r.now()
	rn := &run{
		Runner: r,
		script: script,
		hub:    event.NewHub[Payload](event.WithLogger(r.logger)),
		byName: make(map[string]*scripted, len(script.Listeners)),
		byID:   make(map[event.ListenerID]*scripted, len(script.Listeners)),
	}

	report := &Report{
		Name:      script.Name,
		Version:   script.Version,
		StartedAt: started,
	}

	r.logger.Info().Str("scenario", script.Name).Int("steps", len(script.Steps)).Msg("scenario started")

	if err := rn.register(); err != nil {
		return report, err
	}

	var runErr error
	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		res := rn.step(i, step)
		report.Steps = append(report.Steps, res)
		if res.OK {
			report.Passed++
		} else {
			report.Failed++
		}

		_ = r.stream.Step(res.Description, map[string]any{
			"index":  res.Index,
			"type":   string(res.Type),
			"ok":     res.OK,
			"detail": res.Detail,
		})
	}

	for _, l := range rn.listeners {
		report.Listeners = append(report.Listeners, ListenerStats{
			Name:     l.spec.Name,
			Kind:     l.spec.Kind,
			Action:   l.spec.Action,
			ID:       l.id.String(),
			Calls:    l.calls.Load(),
			Failures: l.failures.Load(),
		})
	}
	report.DurationMS = r.now().Sub(started).Milliseconds()

	_ = r.stream.Summary(script.Name, map[string]any{
		"ok":          report.OK() && runErr == nil,
		"passed":      report.Passed,
		"failed":      report.Failed,
		"duration_ms": report.DurationMS,
	})
	r.logger.Info().
		Str("scenario", script.Name).
		Int("passed", report.Passed).
		Int("failed", report.Failed).
		Msg("scenario finished")

	if runErr != nil {
		return report, runErr
	}
	if !report.OK() {
		return report, fmt.Errorf("%w: %d of %d steps failed", ErrScenarioFailed, report.Failed, len(report.Steps))
	}
	return report, nil
}

func (rn *run) register() error {
	for _, spec := range rn.script.Listeners {
		l := &scripted{spec: spec}
		id, err := rn.hub.AddListener(spec.Kind, rn.callback(l))
		if err != nil {
			return fmt.Errorf("register listener %s: %w", spec.Name, err)
		}
		l.id = id

		rn.listeners = append(rn.listeners, l)
		rn.byName[spec.Name] = l
		rn.byID[id] = l

		_ = rn.stream.Diag(output.LevelVerbose, "listener added", map[string]any{
			"name":   spec.Name,
			"kind":   spec.Kind,
			"action": string(spec.Action),
		})
	}
	return nil
}

// callback builds the behaviour of a scripted listener. l.id is read at
// call time; registration completes before any step runs.
func (rn *run) callback(l *scripted) event.Callback[Payload] {
	return func(p Payload) error {
		n := l.calls.Add(1)

		err := rn.act(l, n, p)
		if err != nil {
			l.failures.Add(1)
		}
		return err
	}
}

func (rn *run) act(l *scripted, n int64, p Payload) error {
	spec := l.spec

	switch spec.Action {
	case ActionRecord:
		return nil

	case ActionFail:
		if spec.FailEvery > 1 && n%int64(spec.FailEvery) != 0 {
			return nil
		}
		if spec.Message != "" {
			return errors.New(spec.Message)
		}
		return fmt.Errorf("listener %s failed on call %d", spec.Name, n)

	case ActionForward:
		if p.Hops() >= rn.script.maxHops() {
			return fmt.Errorf("%w: %d", ErrHopLimit, p.Hops())
		}
		_ = rn.stream.Diag(output.LevelDebug, "emit "+spec.Target, map[string]any{
			"from": spec.Name,
			"hops": p.Hops() + 1,
		})
		if err := rn.hub.Emit(spec.Target, p.forwarded()); err != nil {
			return fmt.Errorf("forward to %s: %w", spec.Target, err)
		}
		return nil

	case ActionUnsubscribe:
		if _, err := rn.hub.RemoveListener(l.id); err != nil {
			return err
		}
		_ = rn.stream.Diag(output.LevelVerbose, "listener removed", map[string]any{"name": spec.Name})
		return nil

	case ActionPanic:
		msg := spec.Message
		if msg == "" {
			msg = "listener " + spec.Name + " panicked"
		}
		panic(msg)

	default:
		return fmt.Errorf("unknown action %q", spec.Action)
	}
}

func (rn *run) step(i int, step Step) StepResult {
	res := StepResult{
		Index:       i,
		Type:        step.Type(),
		Description: step.Describe(),
	}

	switch res.Type {
	case StepEmit:
		_ = rn.stream.Diag(output.LevelDebug, "emit "+step.Emit, nil)
		rn.delivered(&res, step, rn.hub.Emit(step.Emit, step.Payload))

	case StepBroadcast:
		_ = rn.stream.Diag(output.LevelDebug, step.Describe(), nil)
		emitter := rn.hub.NewBroadcastEmitter(*step.Broadcast...)
		rn.delivered(&res, step, emitter.Emit(step.Payload))

	case StepRemove:
		l := rn.byName[step.Remove]
		removed, err := rn.hub.RemoveListener(l.id)
		rn.mutated(&res, err, fmt.Sprintf("removed=%t", removed))
		if err == nil {
			_ = rn.stream.Diag(output.LevelVerbose, "listener removed", map[string]any{"name": step.Remove, "removed": removed})
		}

	case StepRemoveKind:
		n, err := rn.hub.RemoveListenersByKind(step.RemoveKind)
		rn.mutated(&res, err, fmt.Sprintf("removed=%d", n))
		if err == nil {
			_ = rn.stream.Diag(output.LevelVerbose, "listeners removed", map[string]any{"kind": step.RemoveKind, "count": n})
		}

	case StepClear:
		err := rn.hub.ClearListeners()
		rn.mutated(&res, err, "")
		if err == nil {
			_ = rn.stream.Diag(output.LevelVerbose, "listeners cleared", nil)
		}

	case StepExpect:
		mismatches := rn.check(step.Expect)
		res.OK = len(mismatches) == 0
		res.Errors = mismatches
		if !res.OK {
			res.Detail = fmt.Sprintf("%d expectation(s) not met", len(mismatches))
		}

	default:
		res.Errors = []string{"no operation"}
	}

	return res
}

// delivered records the outcome of an emit or broadcast.
func (rn *run) delivered(res *StepResult, step Step, err error) {
	failures := event.Failures(err)
	for _, f := range failures {
		name := f.ListenerID.String()
		if l, ok := rn.byID[f.ListenerID]; ok {
			name = l.spec.Name
		}
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", name, f.Err))
		_ = rn.stream.Diag(output.LevelVerbose, "listener "+name+" failed", map[string]any{
			"kind":  f.Kind,
			"error": f.Err.Error(),
		})
	}
	if err != nil && failures == nil {
		res.Errors = append(res.Errors, err.Error())
	}

	switch {
	case err == nil && !step.ExpectError:
		res.OK = true
	case err == nil && step.ExpectError:
		res.Detail = "expected listener failures, got none"
	case step.ExpectError && failures != nil:
		res.OK = true
		res.Detail = fmt.Sprintf("%d listener(s) failed as expected", len(failures))
	default:
		res.Detail = err.Error()
	}
}

func (rn *run) mutated(res *StepResult, err error, detail string) {
	if err != nil {
		res.Detail = err.Error()
		res.Errors = []string{err.Error()}
		return
	}
	res.OK = true
	res.Detail = detail
}

// check compares the expectation with the live hub and listener counters.
func (rn *run) check(exp *Expectation) []string {
	var mismatches []string

	for _, name := range sortedKeys(exp.Calls) {
		want := exp.Calls[name]
		if got := rn.byName[name].calls.Load(); got != int64(want) {
			mismatches = append(mismatches, fmt.Sprintf("calls[%s]: want %d, got %d", name, want, got))
		}
	}

	for _, kind := range sortedKeys(exp.Counts) {
		want := exp.Counts[kind]
		got, err := rn.hub.ListenersCount(kind)
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("counts[%s]: %v", kind, err))
			continue
		}
		if got != want {
			mismatches = append(mismatches, fmt.Sprintf("counts[%s]: want %d, got %d", kind, want, got))
		}
	}

	for _, kind := range sortedKeys(exp.Has) {
		want := exp.Has[kind]
		got, err := rn.hub.HasListeners(kind)
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("has[%s]: %v", kind, err))
			continue
		}
		if got != want {
			mismatches = append(mismatches, fmt.Sprintf("has[%s]: want %t, got %t", kind, want, got))
		}
	}

	if exp.Kinds != nil {
		want := slices.Clone(*exp.Kinds)
		sort.Strings(want)
		got, err := rn.hub.ListEventKinds()
		switch {
		case err != nil:
			mismatches = append(mismatches, fmt.Sprintf("kinds: %v", err))
		case !slices.Equal(want, got):
			mismatches = append(mismatches, fmt.Sprintf("kinds: want [%s], got [%s]", strings.Join(want, ","), strings.Join(got, ",")))
		}
	}

	return mismatches
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
