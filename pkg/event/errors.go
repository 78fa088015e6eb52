// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package event

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrLockPoisoned is returned by every operation that needs a lock whose
	// critical section was previously aborted by a panic.
	// CLI exit code: 5
	ErrLockPoisoned = errors.New("lock poisoned")

	// ErrListenerPanic marks a listener failure caused by a recovered panic.
	ErrListenerPanic = errors.New("listener panicked")

	// ErrNilCallback is returned when a nil callback is registered.
	ErrNilCallback = errors.New("callback cannot be nil")

	// ErrEmitFailed matches any *EmitError through errors.Is.
	// CLI exit code: 8
	ErrEmitFailed = errors.New("emit failed")
)

// ListenerError wraps a failure reported by a single listener invocation.
type ListenerError struct {
	// ListenerID is the id of the failing listener. It is the zero UUID for
	// emitters built around a bare callback.
	ListenerID ListenerID

	// Kind is the event kind the listener was invoked for.
	Kind string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return "listener " + e.ListenerID.String() + " on kind " + e.Kind + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// EmitError aggregates every listener failure of one emit call.
// It is only returned after all listeners have been attempted.
type EmitError struct {
	// Kinds holds the emitted kind, or the resolved kinds of a broadcast.
	Kinds []string

	// Failures lists the failed invocations in delivery order.
	Failures []*ListenerError

	// Attempted is the number of listeners invoked.
	Attempted int
}

// Error implements the error interface.
func (e *EmitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "emit %s: %d of %d listeners failed", strings.Join(e.Kinds, ","), len(e.Failures), e.Attempted)
	for i, f := range e.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes the individual listener failures to errors.Is and errors.As.
func (e *EmitError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Is allows errors.Is to match EmitError with ErrEmitFailed.
func (e *EmitError) Is(target error) bool {
	return target == ErrEmitFailed
}

// Messages returns the message of every underlying failure.
func (e *EmitError) Messages() []string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Err.Error()
	}
	return msgs
}

// NewEmitError aggregates listener failures of one emit call. It returns nil
// when there are no failures.
func NewEmitError(kinds []string, attempted int, failures []*ListenerError) error {
	if len(failures) == 0 {
		return nil
	}
	return &EmitError{
		Kinds:     slices.Clone(kinds),
		Failures:  failures,
		Attempted: attempted,
	}
}

// lockError builds the error returned when the guarding lock is poisoned.
func lockError(owner, op string, cause any) error {
	return fmt.Errorf("%s %s: %w: %v", owner, op, ErrLockPoisoned, cause)
}

// IsLockFailure reports whether err was caused by a poisoned lock. This
// includes emit errors carrying a failure from a poisoned listener.
func IsLockFailure(err error) bool {
	return errors.Is(err, ErrLockPoisoned)
}

// Failures returns the listener failures carried by err, if any.
func Failures(err error) []*ListenerError {
	var emitErr *EmitError
	if errors.As(err, &emitErr) {
		return emitErr.Failures
	}
	var listenerErr *ListenerError
	if errors.As(err, &listenerErr) {
		return []*ListenerError{listenerErr}
	}
	return nil
}

// ExitCode maps hub errors to CLI exit codes.
//   - 0: success
//   - 1: general error
//   - 5: lock failure
//   - 8: partial delivery failure
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrEmitFailed):
		return 8
	case errors.Is(err, ErrLockPoisoned):
		return 5
	default:
		return 1
	}
}
