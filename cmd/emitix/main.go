// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package main

import (
	"errors"
	"os"

	"github.com/emitix/emitix/cmd/emitix/commands"
	"github.com/emitix/emitix/pkg/config"
	"github.com/emitix/emitix/pkg/event"
	"github.com/emitix/emitix/pkg/scenario"
)

// main runs the emitix CLI and exits with a status derived from the error.
//
// Exit codes:
//   - 0: Success
//   - 1: General error (default, including failed scenario steps)
//   - 2: Invalid usage/input (invalid script, unsupported script version, invalid configuration)
//   - 5: Hub lock failure (event.ErrLockPoisoned)
//   - 8: Partial delivery failure (event.ErrEmitFailed)
func main() {
	command := commands.NewCommand()

	if err := command.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code for an error.
func getExitCode(err error) int {
	if isUsageError(err) {
		return 2
	}
	return event.ExitCode(err)
}

func isUsageError(err error) bool {
	var cfgErr *config.ValidationError
	return errors.Is(err, scenario.ErrInvalidScript) ||
		errors.Is(err, scenario.ErrUnsupportedVersion) ||
		errors.As(err, &cfgErr)
}
