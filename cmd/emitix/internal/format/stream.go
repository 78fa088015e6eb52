// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/emitix/emitix/pkg/output"
	"github.com/emitix/emitix/pkg/stringutil"
)

const (
	markOK   = "✓"
	markFail = "✗"

	maxDetailLength = 120
)

func (f *formatter) Name() string {
	return "formatter"
}

func (f *formatter) Kinds() []output.EventType {
	return []output.EventType{output.EventStep, output.EventSummary}
}

// ShouldHandle renders progress only in table mode. JSON mode prints one
// document when the command finishes.
func (f *formatter) ShouldHandle(output.OutputEvent) bool {
	return f.mode == ModeTable && !f.quiet
}

func (f *formatter) Handle(ev output.OutputEvent) {
	switch ev.Type {
	case output.EventStep:
		f.printStep(ev)
	case output.EventSummary:
		f.printEventSummary(ev)
	}
}

// printStep writes "  ✓ [3] emit order.created  detail".
func (f *formatter) printStep(ev output.OutputEvent) {
	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(f.mark(ev.OK()))
	if idx, ok := ev.Metadata["index"]; ok {
		fmt.Fprintf(&sb, " [%v]", idx)
	}
	sb.WriteString(" ")
	sb.WriteString(ev.Message)
	if detail, _ := ev.Metadata["detail"].(string); detail != "" {
		sb.WriteString("  ")
		sb.WriteString(stringutil.Ellipsis(detail, maxDetailLength))
	}
	fmt.Fprintln(f.stdout, sb.String())
}

// printEventSummary writes "✓ orders: failed=0 passed=16" with the
// remaining metadata sorted by key.
func (f *formatter) printEventSummary(ev output.OutputEvent) {
	line := fmt.Sprintf("%s %s", f.mark(ev.OK()), ev.Message)
	if meta := summaryFields(ev.Metadata); meta != "" {
		line += ": " + meta
	}

	if !f.color {
		fmt.Fprintln(f.stdout, line)
		return
	}
	if ev.OK() {
		color.New(color.FgGreen).Fprintln(f.stdout, line)
	} else {
		color.New(color.FgRed).Fprintln(f.stdout, line)
	}
}

func (f *formatter) mark(ok bool) string {
	switch {
	case ok && f.color:
		return color.GreenString(markOK)
	case ok:
		return markOK
	case f.color:
		return color.RedString(markFail)
	default:
		return markFail
	}
}

func summaryFields(meta map[string]any) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		if k == "ok" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}
