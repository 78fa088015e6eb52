// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import "time"

// Config is the root configuration structure for emitix.
type Config struct {
	Log      LogConfig      `description:"Logging configuration" koanf:"log"`
	Scenario ScenarioConfig `description:"Scenario runner configuration" koanf:"scenario"`
	Stress   StressConfig   `description:"Stress workload configuration" koanf:"stress"`
	Output   OutputConfig   `description:"Terminal output configuration" koanf:"output"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level: trace | debug | info | warn | error" koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `description:"Log format: json | text" koanf:"format" validate:"oneof=json text"`
	File   string `description:"Log file path" koanf:"file"`
}

// ScenarioConfig holds defaults for 'emitix run'.
type ScenarioConfig struct {
	Watch    bool          `description:"Re-run the script whenever it changes" koanf:"watch"`
	Debounce time.Duration `description:"Quiet period before a changed script is re-run" koanf:"debounce" validate:"min=0"`
	Report   string        `description:"Write the run report to this path (.json or .yaml)" koanf:"report"`
}

// StressConfig holds defaults for 'emitix stress'.
type StressConfig struct {
	Workers    int           `description:"Concurrent writer goroutines" koanf:"workers" validate:"min=1,max=1024"`
	Emitters   int           `description:"Concurrent emitter goroutines" koanf:"emitters" validate:"min=0,max=1024"`
	Iterations int           `description:"Add/remove cycles per writer" koanf:"iterations" validate:"min=1"`
	Kinds      int           `description:"Distinct event kinds per writer" koanf:"kinds" validate:"min=1,max=4096"`
	Timeout    time.Duration `description:"Abort the workload after this long (0 = no limit)" koanf:"timeout" validate:"min=0"`
}

// OutputConfig controls how commands print to the terminal.
type OutputConfig struct {
	Format    string `description:"Output format: table | json" koanf:"format" validate:"oneof=table json"`
	Verbosity int    `description:"Diagnostic verbosity (0-3)" koanf:"verbosity" validate:"min=0,max=3"`
	Color     bool   `description:"Colorize terminal output" koanf:"color"`
}
