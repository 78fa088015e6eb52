// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package subscribers

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/emitix/emitix/pkg/output"
)

// Lipgloss styles for diagnostic messages
var (
	// Emission - cyan
	emitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	// Listener registered - green
	addStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	// Listener removed - yellow
	removeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	// Listener failure - red
	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	// Generic diagnostic - gray
	diagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// DiagnosticSubscriber renders diagnostic events up to a verbosity level.
// It is independent of the output format and is usually combined with a
// table or JSON formatter for steps and summaries.
//
// Verbosity levels:
//   - LevelVerbose (1): -v flag
//   - LevelDebug (2): -vv flag
//   - LevelTrace (3): -vvv flag
type DiagnosticSubscriber struct {
	level        output.OutputLevel
	writer       io.Writer
	colorEnabled bool
}

// NewDiagnosticSubscriber creates a DiagnosticSubscriber writing to writer
// (typically stderr).
func NewDiagnosticSubscriber(level output.OutputLevel, writer io.Writer, colorEnabled bool) *DiagnosticSubscriber {
	return &DiagnosticSubscriber{
		level:        level,
		writer:       writer,
		colorEnabled: colorEnabled,
	}
}

// Name returns the subscriber identifier.
func (s *DiagnosticSubscriber) Name() string {
	return "diagnostic-subscriber"
}

// Kinds limits the subscriber to diagnostic events.
func (s *DiagnosticSubscriber) Kinds() []output.EventType {
	return []output.EventType{output.EventDiag}
}

// ShouldHandle accepts diagnostics whose level is at most the subscriber's.
func (s *DiagnosticSubscriber) ShouldHandle(event output.OutputEvent) bool {
	if event.Type != output.EventDiag {
		return false
	}
	return event.Level <= s.level
}

// Handle renders a diagnostic line.
func (s *DiagnosticSubscriber) Handle(event output.OutputEvent) {
	line := fmt.Sprintf("%s %s %s", getLevelPrefix(event.Level), event.Timestamp.Format("15:04:05"), event.Message)
	meta := formatMetadata(event.Metadata)

	if !s.colorEnabled {
		if meta != "" {
			line += " " + meta
		}
		fmt.Fprintln(s.writer, line)
		return
	}

	message := event.Message
	var styled string

	switch {
	case strings.HasPrefix(message, "emit "), strings.HasPrefix(message, "broadcast "):
		styled = emitStyle.Render("  → " + message)
	case strings.HasPrefix(message, "listener added"):
		styled = addStyle.Render("  + " + message)
	case strings.HasPrefix(message, "listener removed"), strings.HasPrefix(message, "listeners removed"), strings.HasPrefix(message, "listeners cleared"):
		styled = removeStyle.Render("  - " + message)
	case strings.Contains(message, "failed"):
		styled = failStyle.Render("  ✗ " + message)
	default:
		styled = diagStyle.Render(line)
	}

	fmt.Fprintln(s.writer, styled)

	if meta != "" {
		fmt.Fprintln(s.writer, metaStyle.Render("    "+meta))
	}
}

// formatMetadata renders metadata as sorted key=value pairs.
func formatMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, metadata[k]))
	}
	return strings.Join(parts, " ")
}

// getLevelPrefix returns the display prefix for a given output level.
func getLevelPrefix(level output.OutputLevel) string {
	switch level {
	case output.LevelVerbose:
		return "[VERBOSE]"
	case output.LevelDebug:
		return "[DEBUG]"
	case output.LevelTrace:
		return "[TRACE]"
	default:
		return "[INFO]"
	}
}
