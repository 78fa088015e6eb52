// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by EnvSource.
const EnvPrefix = "EMITIX_"

// Load priorities of the built-in sources. A later layer overrides an
// earlier one key by key.
const (
	PriorityDefaults = 10
	PriorityFile     = 20
	PriorityEnv      = 30
	PriorityFlags    = 40
)

const maxVerbosity = 3

// ConfigSource is one layer of the emitix configuration.
type ConfigSource interface {
	Name() string
	Priority() int
	Load(k *koanf.Koanf) error
}

// DefaultSource seeds every key with the value from DefaultConfig.
type DefaultSource struct{}

func (s *DefaultSource) Name() string  { return "defaults" }
func (s *DefaultSource) Priority() int { return PriorityDefaults }

func (s *DefaultSource) Load(k *koanf.Koanf) error {
	if err := k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}
	return nil
}

// FileSource reads a YAML config file. An empty Path or a missing file
// contributes nothing.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string  { return "file:" + s.Path }
func (s *FileSource) Priority() int { return PriorityFile }

func (s *FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil
	}
	_, err := os.Stat(s.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("stat config %s: %w", s.Path, err)
	}

	if err := k.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config %s: %w", s.Path, err)
	}
	return nil
}

// EnvSource maps EMITIX_STRESS_WORKERS to stress.workers.
type EnvSource struct {
	Prefix string
}

func (s *EnvSource) Name() string  { return "env" }
func (s *EnvSource) Priority() int { return PriorityEnv }

func (s *EnvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}
	key := func(name string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, prefix)), "_", ".")
	}
	if err := k.Load(env.Provider(prefix, ".", key), nil); err != nil {
		return fmt.Errorf("load env %s*: %w", prefix, err)
	}
	return nil
}

// FlagSource applies dotted command-line flags such as --stress.workers,
// then the --debug and -v shorthands.
type FlagSource struct {
	Flags     *pflag.FlagSet
	Debug     bool
	Verbosity int
}

func (s *FlagSource) Name() string  { return "flags" }
func (s *FlagSource) Priority() int { return PriorityFlags }

func (s *FlagSource) Load(k *koanf.Koanf) error {
	if s.Flags != nil {
		if err := k.Load(posflag.Provider(namespaced(s.Flags), ".", k), nil); err != nil {
			return fmt.Errorf("load flags: %w", err)
		}
	}

	if s.Debug || s.Verbosity >= maxVerbosity {
		_ = k.Set("log.level", "debug")
	}
	if s.Verbosity > 0 {
		_ = k.Set("output.verbosity", min(s.Verbosity, maxVerbosity))
	}
	return nil
}

// namespaced keeps only flags whose names are koanf keys. Command-local
// flags such as --output would otherwise shadow a whole config section.
func namespaced(flags *pflag.FlagSet) *pflag.FlagSet {
	filtered := pflag.NewFlagSet(flags.Name(), pflag.ContinueOnError)
	flags.VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, ".") {
			filtered.AddFlag(f)
		}
	})
	return filtered
}

// DefaultSources layers defaults, the file at configPath, EMITIX_ variables
// and flags.
func DefaultSources(configPath string, flags *pflag.FlagSet, debug bool) []ConfigSource {
	return []ConfigSource{
		&DefaultSource{},
		&FileSource{Path: configPath},
		&EnvSource{Prefix: EnvPrefix},
		&FlagSource{Flags: flags, Debug: debug},
	}
}
