// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidScript is returned for scripts that cannot be decoded or fail validation.
	ErrInvalidScript = errors.New("invalid scenario script")
	// ErrUnsupportedVersion is returned for scripts outside the supported format range.
	ErrUnsupportedVersion = errors.New("unsupported scenario version")
	// ErrScenarioFailed is returned by Runner.Run when at least one step failed.
	ErrScenarioFailed = errors.New("scenario failed")
	// ErrHopLimit is returned by forward listeners when a chain gets too long.
	ErrHopLimit = errors.New("forward hop limit reached")
)

// ValidationError lists every problem found in a script.
type ValidationError struct {
	Problems []string

	causes []error
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// addErr records err as a problem and keeps it matchable with errors.Is.
func (e *ValidationError) addErr(err error) {
	e.Problems = append(e.Problems, err.Error())
	e.causes = append(e.causes, err)
}

func (e *ValidationError) Error() string {
	return ErrInvalidScript.Error() + ": " + strings.Join(e.Problems, "; ")
}

// Unwrap lets errors.Is match ErrInvalidScript and any recorded cause such
// as ErrUnsupportedVersion.
func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrInvalidScript}, e.causes...)
}
