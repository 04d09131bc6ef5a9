// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRendererDefaultsToMachineModeOnBuffer(t *testing.T) {
	var buf bytes.Buffer
	r := NewEventRenderer(&buf, false)
	assert.False(t, r.Pretty())
}

func TestRendererForceJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewEventRenderer(&buf, true)
	assert.False(t, r.Pretty())
}

func TestMachineModePassthrough(t *testing.T) {
	var buf bytes.Buffer
	r := NewEventRenderer(&buf, true)

	line := []byte(`{"type":"start","run_id":"r1","mode":"base"}`)
	r.RenderLine(line)

	assert.Equal(t, string(line)+"\n", buf.String())
}

func TestPrettyModeRendersHeadlines(t *testing.T) {
	var buf bytes.Buffer
	r := &EventRenderer{out: &buf, pretty: true}

	r.RenderLine([]byte(`{"type":"start","run_id":"r1","mode":"base","debate":"arena"}`))
	r.RenderLine([]byte(`{"type":"engine_result","run_id":"r1","role":"risk","provider":"offline"}`))
	r.RenderLine([]byte(`{"type":"base_judgment","run_id":"r1","base":{"label":"HOLD","confidence":0.61}}`))
	r.RenderLine([]byte(`{"type":"debate_final","run_id":"r1","match_key":"arena","winner":"risk"}`))
	r.RenderLine([]byte(`{"type":"persisted","run_id":"r1","ok":false,"reason":"disabled"}`))

	out := buf.String()
	assert.Contains(t, out, "run r1")
	assert.Contains(t, out, "risk")
	assert.Contains(t, out, "HOLD")
	assert.Contains(t, out, "conf=0.61")
	assert.Contains(t, out, "winner")
	assert.Contains(t, out, "not persisted")
	assert.Contains(t, out, "disabled")
}

func TestPrettyModePassesUnparseableLinesThrough(t *testing.T) {
	var buf bytes.Buffer
	r := &EventRenderer{out: &buf, pretty: true}

	r.RenderLine([]byte("not json"))
	assert.Equal(t, "not json\n", buf.String())
}

func TestPrettyModeUnknownEventType(t *testing.T) {
	var buf bytes.Buffer
	r := &EventRenderer{out: &buf, pretty: true}

	r.RenderLine([]byte(`{"type":"mystery","run_id":"r1"}`))
	assert.Contains(t, buf.String(), "mystery")
}

func TestPaletteStylesCarryTheme(t *testing.T) {
	assert.True(t, styleBold.GetBold())
	assert.Equal(t, colorSuccess, styleSuccess.GetForeground())
	assert.Equal(t, colorWarning, styleWarning.GetForeground())
	assert.Equal(t, colorError, styleError.GetForeground())
	assert.Contains(t, styleWarning.Render("not persisted"), "not persisted")
}

func TestJudgmentHeadline(t *testing.T) {
	label, conf := judgmentHeadline(map[string]any{"label": "BUY", "confidence": 0.7})
	assert.Equal(t, "BUY", label)
	assert.Equal(t, 0.7, conf)

	label, conf = judgmentHeadline("not a map")
	assert.Equal(t, "?", label)
	assert.Zero(t, conf)
}
