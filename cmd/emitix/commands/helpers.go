// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"context"

	"github.com/emitix/emitix/cmd/emitix/internal/format"
	"github.com/emitix/emitix/pkg/appctx"
	"github.com/emitix/emitix/pkg/config"
	"github.com/emitix/emitix/pkg/output"
)

// contextConfig returns the configuration loaded by the root command, or
// the defaults when a subcommand runs on its own.
func contextConfig(ctx context.Context) config.Config {
	if mgr, ok := appctx.Config(ctx); ok {
		return mgr.Get()
	}
	return config.DefaultConfig()
}

// contextOutput returns the shared output stream, or a stream without
// subscribers.
func contextOutput(ctx context.Context) *output.OutputEventStream {
	if stream, ok := appctx.Output(ctx); ok {
		return stream
	}
	return output.NewOutputEventStream()
}

// printJSONError writes err as a JSON document in JSON mode. In table mode
// cobra already prints the returned error to stderr.
func printJSONError(f format.Formatter, err error) {
	if f.Mode() == format.ModeJSON {
		_ = f.PrintError(err)
	}
}
