// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package paths resolves per-user locations used by emitix.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const configFileName = "config.yaml"

// ConfigDir returns the config directory for emitix.
// Order: XDG_CONFIG_HOME/emitix, platform-specific fallback.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "emitix")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("AppData"); appData != "" {
			return filepath.Join(appData, "Emitix")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "emitix")
}

// ConfigFile returns the configuration file read when --config is not
// given. The file is optional.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), configFileName)
}
