// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package appctx carries process-wide services on a context.Context.
package appctx

import (
	"context"

	"github.com/emitix/emitix/pkg/config"
	"github.com/emitix/emitix/pkg/output"
)

type key string

const (
	configKey key = "emitix.config.manager"
	outputKey key = "emitix.output.stream"
)

// WithConfig stores the shared config manager on context.
func WithConfig(ctx context.Context, manager *config.Manager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey, manager)
}

// Config retrieves the shared config manager from context.
func Config(ctx context.Context) (*config.Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	mgr, ok := ctx.Value(configKey).(*config.Manager)
	return mgr, ok && mgr != nil
}

// WithOutput stores the command's output stream on context.
func WithOutput(ctx context.Context, stream *output.OutputEventStream) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, outputKey, stream)
}

// Output retrieves the output stream from context.
func Output(ctx context.Context) (*output.OutputEventStream, bool) {
	if ctx == nil {
		return nil, false
	}
	stream, ok := ctx.Value(outputKey).(*output.OutputEventStream)
	return stream, ok && stream != nil
}
