// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package config loads emitix configuration from defaults, a YAML file,
// EMITIX_ environment variables and command-line flags.
package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex
}

// NewManager creates a Manager with an empty koanf instance.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
		currentConfig: DefaultConfig(),
	}
}

// DefaultConfig returns the baseline configuration used when no other
// source overrides a value.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Scenario: ScenarioConfig{
			Debounce: defaultDebounce,
		},
		Stress: DefaultStressConfig(),
		Output: OutputConfig{
			Format:    "table",
			Verbosity: 1,
			Color:     true,
		},
	}
}

// Load loads the standard sources: defaults, the file at configPath, env
// and flags.
func (m *Manager) Load(flags *pflag.FlagSet, configPath string) error {
	return m.LoadWithSources(DefaultSources(configPath, flags, false))
}

// LoadWithSources loads sources in ascending priority, unmarshals the merged
// result and validates it.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := make([]ConfigSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := k.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return err
	}

	m.koanfInstance = k
	m.currentConfig = newCfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentConfig
}

// Koanf returns the merged key space of the last successful load.
func (m *Manager) Koanf() *koanf.Koanf {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance
}

// DefaultConfigAsMap flattens DefaultConfig into koanf keys for the
// confmap provider.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,
		"log.file":   def.Log.File,

		"scenario.watch":    def.Scenario.Watch,
		"scenario.debounce": def.Scenario.Debounce,
		"scenario.report":   def.Scenario.Report,

		"stress.workers":    def.Stress.Workers,
		"stress.emitters":   def.Stress.Emitters,
		"stress.iterations": def.Stress.Iterations,
		"stress.kinds":      def.Stress.Kinds,
		"stress.timeout":    def.Stress.Timeout,

		"output.format":    def.Output.Format,
		"output.verbosity": def.Output.Verbosity,
		"output.color":     def.Output.Color,
	}
}

// BindFlags defines the global flags that override configuration values.
// The --config/-c flag itself is defined on the root command.
func BindFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()

	flags.String("log.level", defaults.Log.Level, "Log level (trace, debug, info, warn, error)")
	flags.String("log.format", defaults.Log.Format, "Log format (text, json)")
	flags.String("output.format", defaults.Output.Format, "Output format (table, json)")
	flags.Bool("output.color", defaults.Output.Color, "Colorize terminal output")
}
