// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/emitix/emitix/cmd/emitix/internal/bind"
	"github.com/emitix/emitix/cmd/emitix/internal/format"
	"github.com/emitix/emitix/pkg/config"
	"github.com/emitix/emitix/pkg/stress"
)

// NewStressCommand returns 'emitix stress'.
func NewStressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stress",
		GroupID: "hub",
		Short:   "Hammer an event hub from many goroutines and verify it stays consistent",
		Example: `  emitix stress
  emitix stress --stress.workers 32 --stress.iterations 1000 --stress.kinds 8
  EMITIX_STRESS_EMITTERS=0 emitix stress -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			opts, err := bind.BindStressOptions(cmd, contextConfig(ctx))
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

			res, runErr := stress.Run(ctx, opts.Options, stream, log.Logger)
			if res == nil {
				printJSONError(formatter, runErr)
				return runErr
			}

			if formatter.Mode() == format.ModeJSON {
				if err := formatter.PrintJSON(res); err != nil {
					return err
				}
			} else if !opts.Quiet {
				if err := formatter.PrintTable([]string{"Metric", "Value"}, resultRows(res)); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	config.BindStressFlags(cmd.Flags())
	cmd.Flags().StringP("output", "o", "", "Output format (table, json)")

	return cmd
}

func resultRows(res *stress.Result) [][]string {
	return [][]string{
		{"added", strconv.FormatInt(res.Added, 10)},
		{"removed", strconv.FormatInt(res.Removed, 10)},
		{"emits", strconv.FormatInt(res.Emits, 10)},
		{"deliveries", strconv.FormatInt(res.Deliveries, 10)},
		{"duration", res.Duration.String()},
	}
}
