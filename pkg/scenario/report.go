// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// Report is the outcome of one scenario run.
type Report struct {
	Name       string          `json:"name" yaml:"name"`
	Version    string          `json:"version" yaml:"version"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	DurationMS int64           `json:"duration_ms" yaml:"duration_ms"`
	Steps      []StepResult    `json:"steps" yaml:"steps"`
	Listeners  []ListenerStats `json:"listeners" yaml:"listeners"`
	Passed     int             `json:"passed" yaml:"passed"`
	Failed     int             `json:"failed" yaml:"failed"`
}

// OK reports whether every step passed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// StepResult is the outcome of a single step.
type StepResult struct {
	Index       int      `json:"index" yaml:"index"`
	Type        StepType `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	OK          bool     `json:"ok" yaml:"ok"`
	Detail      string   `json:"detail,omitempty" yaml:"detail,omitempty"`
	Errors      []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ListenerStats summarises one scripted listener.
type ListenerStats struct {
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	Action   Action `json:"action" yaml:"action"`
	ID       string `json:"id" yaml:"id"`
	Calls    int64  `json:"calls" yaml:"calls"`
	Failures int64  `json:"failures" yaml:"failures"`
}

// lockRetry is how often WriteReport retries a held report lock.
const lockRetry = 50 * time.Millisecond

// WriteReport writes r to path as YAML (.yaml, .yml) or JSON (anything
// else). Concurrent writers of the same path are serialised with an
// advisory lock on path + ".lock".
func WriteReport(ctx context.Context, path string, r *Report) error {
	data, err := encodeReport(path, r)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock report %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("lock report %s: not acquired", path)
	}
	defer func() { _ = fl.Unlock() }()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var r Report
	if isYAML(path) {
		err = yaml.Unmarshal(data, &r)
	} else {
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &r, nil
}

func encodeReport(path string, r *Report) ([]byte, error) {
	if isYAML(path) {
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return data, nil
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return append(data, '\n'), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
