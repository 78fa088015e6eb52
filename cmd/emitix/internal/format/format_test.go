// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emitix/emitix/pkg/output"
)

func TestNew(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeTable, false, false)
	require.NotNil(t, f)
	require.Equal(t, ModeTable, f.Mode())
}

func TestPrintJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name:     "simple object",
			data:     map[string]string{"kind": "order.created", "listeners": "2"},
			expected: "{\n  \"kind\": \"order.created\",\n  \"listeners\": \"2\"\n}\n",
		},
		{
			name:     "array",
			data:     []string{"a", "b"},
			expected: "[\n  \"a\",\n  \"b\"\n]\n",
		},
		{
			name:     "nil",
			data:     nil,
			expected: "null\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			f := New(&stdout, &stderr, ModeJSON, false, false)

			require.NoError(t, f.PrintJSON(tt.data))
			require.Equal(t, tt.expected, stdout.String())
			require.Empty(t, stderr.String())
		})
	}
}

func TestPrintTable(t *testing.T) {
	headers := []string{"Metric", "Value"}
	rows := [][]string{{"added", "12"}, {"emits", "7"}}

	t.Run("table mode", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, false, false)

		require.NoError(t, f.PrintTable(headers, rows))
		require.Equal(t, "Metric  Value\nadded   12\nemits   7\n", stdout.String())
	})

	t.Run("json mode", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeJSON, false, false)

		require.NoError(t, f.PrintTable(headers, rows))

		var items []map[string]string
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &items))
		require.Len(t, items, 2)
		require.Equal(t, "12", items[0]["Value"])
		require.Equal(t, "emits", items[1]["Metric"])
	})
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name       string
		mode       OutputMode
		quiet      bool
		wantStdout string
		wantStderr string
	}{
		{name: "table", mode: ModeTable, wantStdout: "done\n"},
		{name: "json goes to stderr", mode: ModeJSON, wantStderr: "done\n"},
		{name: "quiet", mode: ModeTable, quiet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			f := New(&stdout, &stderr, tt.mode, tt.quiet, false)

			require.NoError(t, f.PrintSummary("done"))
			require.Equal(t, tt.wantStdout, stdout.String())
			require.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestPrintError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, false, false)
		require.NoError(t, f.PrintError(nil))
		require.Empty(t, stderr.String())
	})

	t.Run("table", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, false, false)
		require.NoError(t, f.PrintError(errors.New("boom")))
		require.Equal(t, "Error: boom\n", stderr.String())
		require.Empty(t, stdout.String())
	})

	t.Run("json", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeJSON, false, false)
		require.NoError(t, f.PrintError(errors.New("boom")))

		var got map[string]any
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
		require.Equal(t, false, got["success"])
		require.Equal(t, "boom", got["error"])
	})
}

func TestValidateAndParseMode(t *testing.T) {
	require.NoError(t, ValidateMode("json"))
	require.NoError(t, ValidateMode("table"))
	require.Error(t, ValidateMode("yaml"))

	require.Equal(t, ModeJSON, ParseMode("JSON"))
	require.Equal(t, ModeTable, ParseMode("table"))
	require.Equal(t, ModeTable, ParseMode("unknown"))
}

func TestFormatterRendersStream(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeTable, false, false)

	stream := output.NewOutputEventStream()
	_, err := stream.Subscribe(f)
	require.NoError(t, err)

	require.NoError(t, stream.Step("emit order.created", map[string]any{"index": 0, "ok": true}))
	require.NoError(t, stream.Step("expect", map[string]any{"index": 1, "ok": false, "detail": "1 expectation(s) not met"}))
	require.NoError(t, stream.Diag(output.LevelNormal, "ignored", nil))
	require.NoError(t, stream.Summary("orders", map[string]any{"ok": false, "passed": 1, "failed": 1}))

	require.Equal(t,
		"  ✓ [0] emit order.created\n"+
			"  ✗ [1] expect  1 expectation(s) not met\n"+
			"✗ orders: failed=1 passed=1\n",
		stdout.String())
	require.Empty(t, stderr.String())
}

func TestFormatterSilentInJSONMode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeJSON, false, false)

	stream := output.NewOutputEventStream()
	_, err := stream.Subscribe(f)
	require.NoError(t, err)

	require.NoError(t, stream.Step("emit a", map[string]any{"ok": true}))
	require.NoError(t, stream.Summary("s", nil))
	require.Empty(t, stdout.String())
}
