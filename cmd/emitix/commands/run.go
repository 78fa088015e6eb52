// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/emitix/emitix/cmd/emitix/internal/bind"
	"github.com/emitix/emitix/cmd/emitix/internal/format"
	"github.com/emitix/emitix/pkg/output"
	"github.com/emitix/emitix/pkg/scenario"
)

// NewRunCommand returns 'emitix run <script.yaml>'.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <script.yaml>",
		GroupID: "hub",
		Short:   "Run a scenario script against a fresh event hub",
		Long: `Run registers the listeners declared in a scenario script on a fresh
event hub, executes its steps in order and checks every expectation.

With --watch the script is re-run whenever the file changes.`,
		Example: `  emitix run examples/orders.yaml
  emitix run examples/orders.yaml -o json --report out/orders.json
  emitix run examples/orders.yaml --watch -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := bind.BindRunOptions(cmd, args, contextConfig(ctx))
			if err != nil {
				return err
			}

			stream := contextOutput(ctx)
			formatter := format.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.Mode, opts.Quiet, opts.Color)
			sub, err := stream.Subscribe(formatter)
			if err != nil {
				return err
			}
			defer stream.Unsubscribe(sub)

			return executeRun(ctx, opts, stream, formatter)
		},
	}

	cmd.Flags().Bool("watch", false, "Re-run the script when it changes")
	cmd.Flags().Duration("debounce", scenario.DefaultDebounce, "Quiet period before a watched script is re-run")
	cmd.Flags().String("report", "", "Write the run report to this path (.json, .yaml or .yml)")
	cmd.Flags().StringP("output", "o", "", "Output format (table, json)")

	return cmd
}

func executeRun(ctx context.Context, opts bind.RunOptions, stream *output.OutputEventStream, formatter format.Formatter) error {
	runner := scenario.NewRunner(stream, log.Logger)

	runOnce := func(ctx context.Context) error {
		script, err := scenario.Load(opts.ScriptPath)
		if err != nil {
			printJSONError(formatter, err)
			return err
		}

		report, runErr := runner.Run(ctx, script)
		if report == nil {
			printJSONError(formatter, runErr)
			return runErr
		}

		if formatter.Mode() == format.ModeJSON {
			if err := formatter.PrintJSON(report); err != nil {
				return err
			}
		}
		if opts.ReportPath != "" {
			if err := scenario.WriteReport(ctx, opts.ReportPath, report); err != nil {
				return err
			}
			log.Info().Str("path", opts.ReportPath).Msg("report written")
		}
		return runErr
	}

	runErr := runOnce(ctx)
	if !opts.Watch {
		return runErr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := scenario.NewWatcher(opts.ScriptPath, opts.Debounce, func(ctx context.Context) {
		_ = formatter.PrintSummary(fmt.Sprintf("%s changed, re-running", opts.ScriptPath))
		if err := runOnce(ctx); err != nil && !errors.Is(err, scenario.ErrScenarioFailed) {
			log.Warn().Err(err).Str("script", opts.ScriptPath).Msg("scenario run failed")
		}
	}, log.Logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	_ = formatter.PrintSummary(fmt.Sprintf("watching %s (Ctrl+C to stop)", opts.ScriptPath))
	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
