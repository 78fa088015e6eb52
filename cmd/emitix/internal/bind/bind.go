// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package bind turns command flags and the loaded configuration into the
// option structs the command implementations consume.
//
// Command-local flags win when they were set explicitly; otherwise the
// value comes from configuration (defaults, file, EMITIX_* env).
package bind

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emitix/emitix/cmd/emitix/internal/format"
	"github.com/emitix/emitix/pkg/config"
	"github.com/emitix/emitix/pkg/scenario"
	"github.com/emitix/emitix/pkg/stress"
)

// RunOptions configures 'emitix run'.
type RunOptions struct {
	ScriptPath string
	Watch      bool
	Debounce   time.Duration
	ReportPath string
	Mode       format.OutputMode
	Quiet      bool
	Color      bool
}

// BindRunOptions extracts RunOptions from the run command.
//
// Flags read:
//   - --watch: Re-run the script when it changes
//   - --debounce: Quiet period before a re-run
//   - --report: Write the report to this path (.json, .yaml, .yml)
//   - --output/-o: table or json
//   - --quiet/-q (persistent): suppress progress output
func BindRunOptions(cmd *cobra.Command, args []string, cfg config.Config) (RunOptions, error) {
	if len(args) != 1 || args[0] == "" {
		return RunOptions{}, fmt.Errorf("%w: exactly one script path is required", scenario.ErrInvalidScript)
	}

	opts := RunOptions{
		ScriptPath: args[0],
		Watch:      cfg.Scenario.Watch,
		Debounce:   cfg.Scenario.Debounce,
		ReportPath: cfg.Scenario.Report,
		Color:      cfg.Output.Color,
	}

	flags := cmd.Flags()
	if flags.Changed("watch") {
		opts.Watch, _ = flags.GetBool("watch")
	}
	if flags.Changed("debounce") {
		opts.Debounce, _ = flags.GetDuration("debounce")
	}
	if flags.Changed("report") {
		opts.ReportPath, _ = flags.GetString("report")
	}
	opts.Quiet, _ = flags.GetBool("quiet")

	mode, err := bindMode(cmd, cfg)
	if err != nil {
		return RunOptions{}, err
	}
	opts.Mode = mode

	if opts.Debounce < 0 {
		return RunOptions{}, fmt.Errorf("invalid debounce %s (must not be negative)", opts.Debounce)
	}

	return opts, nil
}

// StressOptions configures 'emitix stress'.
type StressOptions struct {
	stress.Options
	Mode  format.OutputMode
	Quiet bool
	Color bool
}

// BindStressOptions extracts StressOptions. The --stress.* flags are
// already merged into cfg by the flag configuration source.
func BindStressOptions(cmd *cobra.Command, cfg config.Config) (StressOptions, error) {
	mode, err := bindMode(cmd, cfg)
	if err != nil {
		return StressOptions{}, err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

	return StressOptions{
		Options: stress.OptionsFromConfig(cfg.Stress),
		Mode:    mode,
		Quiet:   quiet,
		Color:   cfg.Output.Color,
	}, nil
}

// bindMode prefers -o/--output over output.format.
func bindMode(cmd *cobra.Command, cfg config.Config) (format.OutputMode, error) {
	mode := cfg.Output.Format
	if f := cmd.Flags().Lookup("output"); f != nil && f.Changed {
		mode = f.Value.String()
	}
	if mode == "" {
		return format.ModeTable, nil
	}
	if err := format.ValidateMode(mode); err != nil {
		return "", err
	}
	return format.ParseMode(mode), nil
}
