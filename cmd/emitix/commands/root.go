// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/emitix/emitix/pkg/appctx"
	"github.com/emitix/emitix/pkg/config"
	"github.com/emitix/emitix/pkg/event"
	"github.com/emitix/emitix/pkg/logging"
	"github.com/emitix/emitix/pkg/output"
	"github.com/emitix/emitix/pkg/output/subscribers"
	"github.com/emitix/emitix/pkg/paths"
)

const cliExecutable = "emitix"

// NewCommand constructs the top-level emitix CLI command, wiring global
// flags, configuration, logging and the shared output stream.
func NewCommand() *cobra.Command {
	var (
		configFile     string
		verbosityCount int
		quiet          bool
		logFile        *os.File
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Emitix drives a typed in-process event hub from scripts and stress workloads",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mgr := config.NewManager()

			path := configFile
			if path == "" {
				path = paths.ConfigFile()
			}
			sources := config.DefaultSources(path, cmd.Flags(), false)
			for _, src := range sources {
				if fs, ok := src.(*config.FlagSource); ok {
					fs.Verbosity = verbosityCount
				}
			}
			if err := mgr.LoadWithSources(sources); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg := mgr.Get()

			w, f, err := logWriter(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			logFile = f
			logging.SetLogWriter(w)
			if err := logging.ConfigureGlobalLogging(cfg.Log.Level); err != nil {
				return err
			}

			stream := output.NewOutputEventStream(event.WithLogger(log.Logger))
			diag := subscribers.NewDiagnosticSubscriber(output.OutputLevel(cfg.Output.Verbosity), cmd.ErrOrStderr(), cfg.Output.Color)
			if _, err := stream.Subscribe(diag); err != nil {
				return fmt.Errorf("subscribe diagnostics: %w", err)
			}

			ctx := appctx.WithConfig(cmd.Context(), mgr)
			ctx = appctx.WithOutput(ctx, stream)

			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}

			log.Debug().
				Str("config", path).
				Str("log_level", cfg.Log.Level).
				Int("verbosity", cfg.Output.Verbosity).
				Msg("configuration loaded")
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logFile != nil {
				return logFile.Close()
			}
			return nil
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default $XDG_CONFIG_HOME/emitix/config.yaml)")
	cmd.PersistentFlags().CountVarP(&verbosityCount, "verbosity", "v", "Increase diagnostic verbosity (repeatable)")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "hub", Title: "Hub Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewStressCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// logWriter picks the log sink for cfg. A log file is returned so it can
// be closed when the command finishes.
func logWriter(stderr io.Writer, cfg config.LogConfig) (io.Writer, *os.File, error) {
	var (
		out  = stderr
		file *os.File
	)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, file = f, f
	}

	if cfg.Format == "json" {
		return out, file, nil
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: file != nil}, file, nil
}
