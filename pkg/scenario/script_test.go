// Copyright 2025 Emitix Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package scenario

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Testdata(t *testing.T) {
	s, err := Load("testdata/orders.yaml")
	require.NoError(t, err)

	assert.Equal(t, "orders", s.Name)
	assert.Equal(t, "1.0", s.Version)
	require.Len(t, s.Listeners, 6)
	assert.Equal(t, ActionForward, s.Listeners[2].Action)
	assert.Equal(t, "order.audit", s.Listeners[2].Target)
	assert.Equal(t, 2, s.Listeners[4].FailEvery)

	require.NotEmpty(t, s.Steps)
	assert.Equal(t, StepEmit, s.Steps[0].Type())
	assert.Equal(t, 42, s.Steps[0].Payload.Int("total"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	require.Error(t, err)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader(`
version: "1.0"
name: x
steps:
  - emit: a
    colour: red
`))
	require.ErrorIs(t, err, ErrInvalidScript)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.ErrorIs(t, err, ErrInvalidScript)
	assert.Contains(t, err.Error(), "empty script")
}

func TestParse_UnquotedVersion(t *testing.T) {
	s, err := Parse(strings.NewReader(`
version: 1.2
name: x
steps:
  - clear: true
`))
	require.NoError(t, err)
	assert.Equal(t, "1.2", s.Version)
}

func TestValidate_Version(t *testing.T) {
	tests := []struct {
		version string
		want    error
	}{
		{"1.0.0", nil},
		{"1.9", nil},
		{"2.0.0", ErrUnsupportedVersion},
		{"0.9.0", ErrUnsupportedVersion},
		{"banana", ErrInvalidScript},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			s := &Script{Version: tt.version, Name: "v", Steps: []Step{{Clear: true}}}
			err := s.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_CollectsProblems(t *testing.T) {
	s := &Script{
		Version: "1.0.0",
		Name:    "broken",
		Listeners: []ListenerSpec{
			{Name: "a", Kind: "k", Action: ActionRecord},
			{Name: "a", Kind: "k", Action: ActionRecord},
			{Name: "fwd", Kind: "k", Action: ActionForward},
			{Name: "odd", Kind: "k", Action: "shout"},
		},
		Steps: []Step{
			{},
			{Emit: "k", Clear: true},
			{Remove: "ghost"},
			{Expect: &Expectation{Calls: map[string]int{"nobody": 1}}},
			{Clear: true, ExpectError: true},
			{RemoveKind: "k", Payload: Payload{"x": 1}},
		},
	}

	err := s.Validate()
	require.ErrorIs(t, err, ErrInvalidScript)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	joined := strings.Join(verr.Problems, "\n")
	assert.Contains(t, joined, "Listeners[2].Target: failed required_if")
	assert.Contains(t, joined, "Listeners[3].Action: failed oneof")
	assert.Contains(t, joined, `listeners[1]: duplicate name "a"`)
	assert.Contains(t, joined, "steps[0]: no operation")
	assert.Contains(t, joined, "steps[1]: more than one operation")
	assert.Contains(t, joined, `unknown listener "ghost"`)
	assert.Contains(t, joined, `unknown listener "nobody"`)
	assert.Contains(t, joined, "steps[4]: expect_error only applies")
	assert.Contains(t, joined, "steps[5]: payload only applies")
}

func TestValidate_KeepsCollectingAfterBadVersion(t *testing.T) {
	s := &Script{
		Version: "2.0.0",
		Name:    "late",
		Listeners: []ListenerSpec{
			{Name: "a", Kind: "k", Action: ActionRecord},
			{Name: "a", Kind: "k", Action: ActionRecord},
		},
		Steps: []Step{{Clear: true}},
	}

	err := s.Validate()
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	require.ErrorIs(t, err, ErrInvalidScript)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 2)
	assert.Contains(t, verr.Problems[0], "2.0.0")
	assert.Contains(t, verr.Problems[1], `duplicate name "a"`)
}

func TestValidate_ForwardCycle(t *testing.T) {
	tests := []struct {
		name      string
		listeners []ListenerSpec
		want      string
	}{
		{
			name: "two kinds",
			listeners: []ListenerSpec{
				{Name: "ping", Kind: "ping", Action: ActionForward, Target: "pong"},
				{Name: "pong", Kind: "pong", Action: ActionForward, Target: "ping"},
			},
			want: "forward cycle ping -> pong -> ping",
		},
		{
			name: "self",
			listeners: []ListenerSpec{
				{Name: "echo", Kind: "echo", Action: ActionForward, Target: "echo"},
			},
			want: "forward cycle echo -> echo",
		},
		{
			name: "behind a chain",
			listeners: []ListenerSpec{
				{Name: "in", Kind: "in", Action: ActionForward, Target: "x"},
				{Name: "x", Kind: "x", Action: ActionForward, Target: "y"},
				{Name: "y", Kind: "y", Action: ActionForward, Target: "x"},
			},
			want: "forward cycle x -> y -> x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Script{Version: "1.0.0", Name: "cycle", Listeners: tt.listeners, Steps: []Step{{Clear: true}}}
			err := s.Validate()
			require.ErrorIs(t, err, ErrInvalidScript)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ForwardChainWithoutCycle(t *testing.T) {
	s := &Script{
		Version: "1.0.0",
		Name:    "diamond",
		Listeners: []ListenerSpec{
			{Name: "l", Kind: "top", Action: ActionForward, Target: "left"},
			{Name: "r", Kind: "top", Action: ActionForward, Target: "right"},
			{Name: "lb", Kind: "left", Action: ActionForward, Target: "bottom"},
			{Name: "rb", Kind: "right", Action: ActionForward, Target: "bottom"},
			{Name: "sink", Kind: "bottom", Action: ActionRecord},
		},
		Steps: []Step{{Emit: "top"}},
	}
	require.NoError(t, s.Validate())
}

func TestValidate_RequiresSteps(t *testing.T) {
	s := &Script{Version: "1.0.0", Name: "empty"}
	require.ErrorIs(t, s.Validate(), ErrInvalidScript)
}

func TestStep_Describe(t *testing.T) {
	all := []string{}
	some := []string{"a", "b"}

	tests := []struct {
		step Step
		want string
	}{
		{Step{Emit: "order.created"}, "emit order.created"},
		{Step{Broadcast: &all}, "broadcast *"},
		{Step{Broadcast: &some}, "broadcast a,b"},
		{Step{Remove: "audit"}, "remove audit"},
		{Step{RemoveKind: "k"}, "remove_kind k"},
		{Step{Clear: true}, "clear"},
		{Step{Expect: &Expectation{}}, "expect"},
		{Step{}, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.step.Describe())
	}
}
