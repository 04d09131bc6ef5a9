// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal rendering for the verdict CLI's event
// stream.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// Pretty-mode palette - deep ocean teals and arctic waters
var (
	colorAccent  = lipgloss.Color("#20B9B4") // Primary teal - engine activity
	colorSuccess = lipgloss.Color("#2CD7C7") // Bright teal - verdicts, persistence
	colorWarning = lipgloss.Color("#F4D03F") // Gold/amber for degraded outcomes
	colorError   = lipgloss.Color("#E74C3C") // Red for stage errors
	colorMuted   = lipgloss.Color("#2C4A54") // Slate for secondary detail

	styleBold    = lipgloss.NewStyle().Bold(true)
	styleAccent  = lipgloss.NewStyle().Foreground(colorAccent)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
)

// EventRenderer writes stream events to a terminal or pipe.
//
// # Description
//
// In pretty mode each event becomes one concise human line with the
// heavyweight payloads (full judgments, debate payloads) reduced to their
// headline fields. In machine mode events pass through as the raw NDJSON
// lines, making the CLI composable with jq.
//
// Mode defaults to pretty on a TTY and machine on a pipe; both can be
// forced.
type EventRenderer struct {
	out    io.Writer
	pretty bool
}

// NewEventRenderer builds a renderer for the writer. Pretty mode is
// auto-detected when the writer is the process stdout.
func NewEventRenderer(out io.Writer, forceJSON bool) *EventRenderer {
	pretty := false
	if f, ok := out.(*os.File); ok {
		pretty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if forceJSON {
		pretty = false
	}
	return &EventRenderer{out: out, pretty: pretty}
}

// Pretty reports whether the renderer is in human mode.
func (r *EventRenderer) Pretty() bool {
	return r.pretty
}

// RenderLine renders one raw NDJSON line from the stream.
func (r *EventRenderer) RenderLine(line []byte) {
	if !r.pretty {
		fmt.Fprintf(r.out, "%s\n", line)
		return
	}
	var ev datatypes.StreamEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		fmt.Fprintf(r.out, "%s\n", line)
		return
	}
	r.renderPretty(ev)
}

func (r *EventRenderer) renderPretty(ev datatypes.StreamEvent) {
	switch ev.Type {
	case datatypes.EventStart:
		fmt.Fprintf(r.out, "%s mode=%v debate=%v\n",
			styleBold.Render("⚖ run "+ev.RunID), ev.Payload["mode"], ev.Payload["debate"])

	case datatypes.EventEngineResult:
		fmt.Fprintf(r.out, "%s engine %-12v %s\n",
			styleAccent.Render("→"), ev.Payload["role"],
			styleMuted.Render(fmt.Sprintf("(%v)", ev.Payload["provider"])))

	case datatypes.EventBaseJudgment:
		label, conf := judgmentHeadline(ev.Payload["base"])
		fmt.Fprintf(r.out, "%s %s conf=%.2f\n",
			styleBold.Render("● base verdict"), styleSuccess.Render(label), conf)

	case datatypes.EventDeepJudgment:
		label, conf := judgmentHeadline(ev.Payload["deep"])
		fmt.Fprintf(r.out, "%s %s conf=%.2f\n",
			styleBold.Render("● deep verdict"), styleSuccess.Render(label), conf)

	case datatypes.EventDebateStep:
		fmt.Fprintf(r.out, "  %v r%v %v vs %v %s\n",
			ev.Payload["match_key"], ev.Payload["round"],
			ev.Payload["challenger"], ev.Payload["defender"],
			styleMuted.Render(fmt.Sprintf("[%v]", ev.Payload["phase"])))

	case datatypes.EventAllToAllStep:
		fmt.Fprintf(r.out, "  %v %s\n",
			ev.Payload["pair_key"], styleMuted.Render(fmt.Sprintf("[%v]", ev.Payload["phase"])))

	case datatypes.EventAllToAllRevision:
		fmt.Fprintf(r.out, "  self-revision %v\n", ev.Payload["role"])

	case datatypes.EventDebateFinal:
		fmt.Fprintf(r.out, "%s %s\n",
			styleBold.Render(fmt.Sprintf("● %v winner", ev.Payload["match_key"])),
			styleSuccess.Render(fmt.Sprintf("%v", ev.Payload["winner"])))

	case datatypes.EventAllToAllFinal:
		fmt.Fprintf(r.out, "%s %v\n",
			styleBold.Render("● tournament top2"), ev.Payload["top2"])

	case datatypes.EventFinal:
		fmt.Fprintf(r.out, "%s ok=%v\n", styleBold.Render("■ final"), ev.Payload["ok"])

	case datatypes.EventPersisted:
		if ok, _ := ev.Payload["ok"].(bool); ok {
			fmt.Fprintln(r.out, styleSuccess.Render("✓ persisted"))
		} else {
			fmt.Fprintf(r.out, "%s %v%v\n",
				styleWarning.Render("○ not persisted"),
				orBlank(ev.Payload["reason"]), orBlank(ev.Payload["error"]))
		}

	case datatypes.EventEngineError, datatypes.EventBaseError,
		datatypes.EventDeepError, datatypes.EventDebateError:
		fmt.Fprintf(r.out, "%s %v\n", styleError.Render("✗ "+string(ev.Type)), ev.Payload["error"])

	default:
		fmt.Fprintln(r.out, styleMuted.Render(string(ev.Type)))
	}
}

// judgmentHeadline pulls label and confidence out of a verdict payload.
func judgmentHeadline(v any) (string, float64) {
	m, ok := v.(map[string]any)
	if !ok {
		return "?", 0
	}
	label, _ := m["label"].(string)
	conf, _ := m["confidence"].(float64)
	return label, conf
}

func orBlank(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
