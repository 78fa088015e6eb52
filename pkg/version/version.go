// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package version provides version metadata for the application.
package version

import (
	"fmt"
	"time"
)

// These variables are typically injected at build time using -ldflags
var (
	// Version holds the current version of emitix.
	Version = "dev"
	// Commit holds the current version commit of emitix.
	Commit = "none"
	// BuildDate holds the build date of emitix.
	BuildDate = "unknown"
	// StartDate holds the start date of emitix.
	StartDate = time.Now()
)

const (
	// ScenarioFormat is the scenario script format written by this build.
	ScenarioFormat = "1.0.0"
	// ScenarioConstraint is the range of script versions this build runs.
	ScenarioConstraint = "^1"
)

// Struct returns version information in a structured format.
type Struct struct {
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	BuildDate      string `json:"buildDate"`
	ScenarioFormat string `json:"scenarioFormat"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("Emitix %s (commit: %s, date: %s, scenario format: %s)", Version, Commit, BuildDate, ScenarioFormat)
}

// Get returns version information as a Struct.
func Get() Struct {
	return Struct{
		Version:        Version,
		Commit:         Commit,
		BuildDate:      BuildDate,
		ScenarioFormat: ScenarioFormat,
	}
}
