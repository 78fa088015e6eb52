// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"time"

	"github.com/spf13/pflag"
)

const defaultDebounce = 250 * time.Millisecond

// DefaultStressConfig returns the default stress workload. It is small
// enough to finish in well under a second on a laptop.
func DefaultStressConfig() StressConfig {
	return StressConfig{
		Workers:    8,
		Emitters:   4,
		Iterations: 200,
		Kinds:      4,
		Timeout:    30 * time.Second,
	}
}

// BindStressFlags binds the 'emitix stress' flags, namespaced under
// 'stress.' so they map directly onto koanf keys.
func BindStressFlags(flags *pflag.FlagSet) {
	defaults := DefaultStressConfig()

	flags.Int("stress.workers", defaults.Workers, "Concurrent writer goroutines")
	flags.Int("stress.emitters", defaults.Emitters, "Concurrent emitter goroutines")
	flags.Int("stress.iterations", defaults.Iterations, "Add/remove cycles per writer")
	flags.Int("stress.kinds", defaults.Kinds, "Distinct event kinds per writer")
	flags.Duration("stress.timeout", defaults.Timeout, "Abort the workload after this long (0 = no limit)")
}
