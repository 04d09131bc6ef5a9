// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

var roleKeyPattern = regexp.MustCompile(`"role":\s*"([a-z]+)"`)

// echoRoleComplete answers every role prompt with a minimal output that
// echoes the role key found in the system instructions.
func echoRoleComplete(ctx context.Context, system, user string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	role := "unknown"
	if m := roleKeyPattern.FindStringSubmatch(system); m != nil {
		role = m[1]
	}
	return `{"role": "` + role + `", "claim": "c", "confidence": 0.5}`, "offline", nil
}

func TestRunEnginesProducesAllFourRoles(t *testing.T) {
	ctx := context.Background()
	em := NewEmitter(ctx)

	var outputs datatypes.EngineOutputs
	var err error
	go func() {
		defer em.Close()
		outputs, err = runEngines(ctx, echoRoleComplete, em, "run-1", "q")
	}()
	events := collectEvents(em)

	require.NoError(t, err)
	require.Len(t, outputs, 4)
	for _, role := range datatypes.AllRoles() {
		out, ok := outputs[role]
		require.True(t, ok)
		assert.Equal(t, role, out.Role)
		assert.Equal(t, "offline", out.Provider)
		v, ok := out.Result.Field("role")
		require.True(t, ok)
		assert.Equal(t, string(role), v)
	}

	require.Len(t, events, 4)
	seen := make(map[string]bool)
	for _, ev := range events {
		assert.Equal(t, datatypes.EventEngineResult, ev.Type)
		role, _ := ev.Payload["role"].(datatypes.RoleKey)
		seen[string(role)] = true
	}
	assert.Len(t, seen, 4)
}

func TestRunEnginesNormalizesBadOutput(t *testing.T) {
	complete := func(ctx context.Context, system, user string) (string, string, error) {
		return "not json at all", "offline", nil
	}

	outputs, err := runEngines(context.Background(), complete, nil, "run-1", "q")
	require.NoError(t, err)
	require.Len(t, outputs, 4)
	for _, out := range outputs {
		assert.True(t, out.Result.ParseError)
	}
}

func TestRunEnginesReturnsFirstError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outputs, err := runEngines(ctx, echoRoleComplete, nil, "run-1", "q")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, outputs)
}

func TestRoleSystemPromptEmbedsRoleKey(t *testing.T) {
	for _, spec := range roleSpecs {
		prompt := roleSystemPrompt(spec)
		assert.Contains(t, prompt, `"role": "`+string(spec.Key)+`"`)
		assert.Contains(t, prompt, spec.Label)
		assert.Contains(t, prompt, `"questions_to_others"`)
	}
}
