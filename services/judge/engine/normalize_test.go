// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantField string
		wantValue any
	}{
		{
			name:      "plain json object",
			raw:       `{"claim": "hold"}`,
			wantField: "claim",
			wantValue: "hold",
		},
		{
			name:      "json fence",
			raw:       "```json\n{\"claim\": \"hold\"}\n```",
			wantField: "claim",
			wantValue: "hold",
		},
		{
			name:      "bare fence",
			raw:       "```\n{\"claim\": \"hold\"}\n```",
			wantField: "claim",
			wantValue: "hold",
		},
		{
			name:      "surrounding whitespace",
			raw:       "  \n {\"confidence\": 0.5} \n ",
			wantField: "confidence",
			wantValue: 0.5,
		},
		{
			name:    "prose instead of json",
			raw:     "I think you should hold.",
			wantErr: true,
		},
		{
			name:    "json array is not an object",
			raw:     `["a", "b"]`,
			wantErr: true,
		},
		{
			name:    "truncated object",
			raw:     `{"claim": "hol`,
			wantErr: true,
		},
		{
			name:    "empty string",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(tt.raw)
			if tt.wantErr {
				assert.True(t, out.ParseError)
				assert.Nil(t, out.Object)
				return
			}
			require.False(t, out.ParseError)
			v, ok := out.Field(tt.wantField)
			require.True(t, ok)
			assert.Equal(t, tt.wantValue, v)
		})
	}
}

func TestNormalizeKeepsCleanedRawOnFailure(t *testing.T) {
	out := Normalize("```json\nnot actually json\n```")
	require.True(t, out.ParseError)
	assert.Equal(t, "not actually json", out.Raw)
}

func TestFieldCoercionHelpers(t *testing.T) {
	m := map[string]any{
		"s":       "text",
		"n":       1.5,
		"b":       true,
		"list":    []any{"a", 2.0, "b"},
		"obj":     map[string]any{"k": "v"},
		"mistype": 7.0,
	}

	assert.Equal(t, "text", stringField(m, "s"))
	assert.Equal(t, "", stringField(m, "mistype"))
	assert.Equal(t, "", stringField(m, "missing"))

	n, ok := numberField(m, "n")
	require.True(t, ok)
	assert.Equal(t, 1.5, n)
	_, ok = numberField(m, "s")
	assert.False(t, ok)

	assert.True(t, boolField(m, "b"))
	assert.False(t, boolField(m, "mistype"))

	assert.Equal(t, []string{"a", "b"}, stringListField(m, "list"))
	assert.Nil(t, stringListField(m, "missing"))

	assert.Equal(t, map[string]any{"k": "v"}, objectField(m, "obj"))
	assert.Nil(t, objectField(m, "s"))
}
