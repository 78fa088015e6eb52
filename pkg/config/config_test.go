// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Scenario.Debounce)
	assert.Equal(t, DefaultStressConfig(), cfg.Stress)
	assert.Equal(t, "table", cfg.Output.Format)
	require.NoError(t, cfg.Validate())
}

func TestNewManager_StartsWithDefaults(t *testing.T) {
	m := NewManager()
	assert.Equal(t, DefaultConfig(), m.Get())
	assert.NotNil(t, m.Koanf())
}

func TestManager_LoadPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "emitix.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
log:
  level: warn
stress:
  workers: 16
  iterations: 50
scenario:
  debounce: 1s
`), 0o644))

	t.Setenv("EMITIX_STRESS_WORKERS", "24")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	BindStressFlags(flags)
	require.NoError(t, flags.Parse([]string{"--stress.iterations=75"}))

	m := NewManager()
	require.NoError(t, m.Load(flags, configPath))
	cfg := m.Get()

	assert.Equal(t, "warn", cfg.Log.Level, "file overrides defaults")
	assert.Equal(t, 24, cfg.Stress.Workers, "env overrides file")
	assert.Equal(t, 75, cfg.Stress.Iterations, "changed flag overrides file")
	assert.Equal(t, 4, cfg.Stress.Kinds, "unchanged flag keeps default")
	assert.Equal(t, time.Second, cfg.Scenario.Debounce)
}

func TestManager_LoadWithSources_PriorityOrdering(t *testing.T) {
	t.Setenv("EMITIX_LOG_LEVEL", "warn")

	m := NewManager()
	err := m.LoadWithSources([]ConfigSource{
		&EnvSource{},
		&DefaultSource{}, // priority 10, loaded first despite order
	})
	require.NoError(t, err)

	assert.Equal(t, "warn", m.Get().Log.Level)
}

func TestManager_LoadWithSources_CustomSource(t *testing.T) {
	m := NewManager()
	err := m.LoadWithSources([]ConfigSource{
		&DefaultSource{},
		&mockConfigSource{name: "custom", priority: 25, loadFunc: func(k *koanf.Koanf) error {
			return k.Set("output.verbosity", 3)
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Get().Output.Verbosity)
}

func TestManager_LoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("EMITIX_STRESS_WORKERS", "0")
	t.Setenv("EMITIX_OUTPUT_FORMAT", "xml")

	m := NewManager()
	err := m.Load(nil, "")
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"stress.workers", "output.format"}, fields)
	assert.Contains(t, err.Error(), "must be one of: table,json")

	assert.Equal(t, DefaultConfig(), m.Get(), "failed load keeps previous config")
}

func TestManager_LoadSourceError(t *testing.T) {
	m := NewManager()
	err := m.LoadWithSources([]ConfigSource{
		&mockConfigSource{name: "broken", priority: 15, loadFunc: func(*koanf.Koanf) error {
			return errors.New("unreadable")
		}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config source broken")
}

func TestBindStressFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindStressFlags(flags)
	require.NoError(t, flags.Parse([]string{"--stress.workers=3", "--stress.timeout=2s"}))

	workers, err := flags.GetInt("stress.workers")
	require.NoError(t, err)
	assert.Equal(t, 3, workers)

	timeout, err := flags.GetDuration("stress.timeout")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, timeout)
}

// mockConfigSource is a test helper for custom config sources
type mockConfigSource struct {
	name     string
	priority int
	loadFunc func(k *koanf.Koanf) error
}

func (m *mockConfigSource) Name() string  { return m.name }
func (m *mockConfigSource) Priority() int { return m.priority }
func (m *mockConfigSource) Load(k *koanf.Koanf) error {
	if m.loadFunc != nil {
		return m.loadFunc(k)
	}
	return nil
}
