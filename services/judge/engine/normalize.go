// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the judgment pipeline: the four-role fan-out,
// verdict synthesis with repair, the arena and all-to-all debate state
// machines, and the orchestrator that sequences them.
package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

var (
	openFencePattern  = regexp.MustCompile("(?i)^```json\\s*|^```\\s*")
	closeFencePattern = regexp.MustCompile("\\s*```$")
)

// Normalize parses raw model text into the uniform ModelOutput shape.
//
// Strips a Markdown code fence if present, then attempts a strict JSON
// object parse. On failure it returns the parse-error variant carrying the
// cleaned text. Never fails: this is the single boundary that shields every
// downstream stage from model misbehavior.
func Normalize(raw string) datatypes.ModelOutput {
	cleaned := strings.TrimSpace(raw)
	cleaned = openFencePattern.ReplaceAllString(cleaned, "")
	cleaned = closeFencePattern.ReplaceAllString(cleaned, "")

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return datatypes.ModelOutput{ParseError: true, Raw: cleaned}
	}
	return datatypes.ModelOutput{Object: obj}
}

// =============================================================================
// Field coercion helpers
// =============================================================================

// stringField returns a string field, or "" when absent or mistyped.
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// numberField returns a numeric field and whether it was present as a
// number. JSON numbers decode as float64.
func numberField(m map[string]any, key string) (float64, bool) {
	f, ok := m[key].(float64)
	return f, ok
}

// boolField returns a bool field, or false when absent or mistyped.
func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// stringListField coerces a JSON array field to its string elements.
// Non-string elements are skipped; absent or mistyped fields yield nil.
func stringListField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// objectField returns a nested object field, or nil.
func objectField(m map[string]any, key string) map[string]any {
	obj, _ := m[key].(map[string]any)
	return obj
}
