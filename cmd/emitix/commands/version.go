// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/emitix/emitix/cmd/emitix/internal/format"
	v "github.com/emitix/emitix/pkg/version"
)

// NewVersionCommand returns 'emitix version'.
func NewVersionCommand() *cobra.Command {
	var (
		short bool
		mode  string
	)

	cmd := &cobra.Command{
		Use:     "version",
		GroupID: "core",
		Short:   "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			info := v.Get()

			if mode != "" {
				if err := format.ValidateMode(mode); err != nil {
					return err
				}
				if format.ParseMode(mode) == format.ModeJSON {
					return format.New(out, cmd.ErrOrStderr(), format.ModeJSON, false, false).PrintJSON(info)
				}
			}

			fmt.Fprintf(out, "%s version: %s\n", cliExecutable, info.Version)
			if short {
				return nil
			}
			fmt.Fprintf(out, "Commit: %s\n", info.Commit)
			fmt.Fprintf(out, "Build Date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "Scenario Format: %s (accepts %s)\n", info.ScenarioFormat, v.ScenarioConstraint)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	cmd.Flags().StringVarP(&mode, "output", "o", "", "Output format (table, json)")

	return cmd
}
