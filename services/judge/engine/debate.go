// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"strings"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// debateInput carries the shared context every debate prompt embeds.
type debateInput struct {
	Prompt  string
	Engines datatypes.EngineOutputs
	Base    *datatypes.BaseJudgment
	Deep    *datatypes.DeepJudgment
}

// roleLabel maps a role key back to its display label for prompts.
func roleLabel(key datatypes.RoleKey) string {
	for _, spec := range roleSpecs {
		if spec.Key == key {
			return spec.Label
		}
	}
	return string(key)
}

// sharedContext renders the run context block common to all three phases.
func (in debateInput) sharedContext() string {
	parts := []string{
		"User question:",
		in.Prompt,
		"",
		"BASE verdict:",
		indentJSON(in.Base),
	}
	if in.Deep != nil {
		parts = append(parts, "", "DEEP analysis:", indentJSON(in.Deep))
	}
	return strings.Join(parts, "\n")
}

// =============================================================================
// Phase prompts
// =============================================================================

func questionSystemPrompt(challenger datatypes.RoleKey) string {
	return strings.Join([]string{
		`You are the "` + roleLabel(challenger) + `" engine, cross-examining an opposing engine.`,
		"Attack the single weakest premise of the defender's argument with one pointed question.",
		"Output JSON only, in this format:",
		"{",
		`  "question": "one pointed question",`,
		`  "attack_type": "numbers|logic|premise|scope",`,
		`  "why_this_matters": "what flips if the defender cannot answer"`,
		"}",
	}, "\n")
}

func questionUserPrompt(in debateInput, defender datatypes.RoleKey) string {
	return strings.Join([]string{
		in.sharedContext(),
		"",
		`Defender ("` + roleLabel(defender) + `") output:`,
		indentJSON(in.Engines[defender]),
		"",
		"Constraints:",
		"- One question only; no compound questions.",
		"- Target a premise the defender stated, not one you invent.",
	}, "\n")
}

func answerSystemPrompt(defender datatypes.RoleKey) string {
	return strings.Join([]string{
		`You are the "` + roleLabel(defender) + `" engine, answering a cross-examination question.`,
		"Answer with evidence and numbers. Conceding a point you cannot defend scores better than evasion.",
		"Output JSON only, in this format:",
		"{",
		`  "answer": "direct answer to the question",`,
		`  "evidence": ["supporting point 1","supporting point 2"],`,
		`  "numbers": [{"metric":"", "value":"", "range":""}],`,
		`  "concede": false,`,
		`  "concede_reason": ""`,
		"}",
	}, "\n")
}

func answerUserPrompt(in debateInput, defender datatypes.RoleKey, question datatypes.ModelOutput) string {
	return strings.Join([]string{
		in.sharedContext(),
		"",
		"Your original output:",
		indentJSON(in.Engines[defender]),
		"",
		"Question put to you:",
		indentJSON(question),
	}, "\n")
}

func judgeSystemPrompt() string {
	return strings.Join([]string{
		"You are the neutral referee of a cross-examination exchange.",
		"Score the exchange, not the roles. Apply these rules:",
		"- A question that pins a real weak premise: challenger +1..+3.",
		"- An answer with concrete numbers that holds the premise: defender +1..+2.",
		"- Evasion or repetition: -1..-2 for the offender.",
		"- Self-contradiction: -3 for the offender.",
		"- An honest concession limits the damage: -1 at most.",
		"- Declare a knockout only when the defender's core premise is demolished with no possible repair.",
		"Output JSON only, in this format:",
		"{",
		`  "delta": {"challenger": 0, "defender": 0},`,
		`  "ko": false,`,
		`  "ko_reason": "",`,
		`  "why": ["scoring ground 1","scoring ground 2"],`,
		`  "loser_fail_type": "repeat|evasion|no_numbers|contradiction|scope_cheat|none"`,
		"}",
	}, "\n")
}

func judgeUserPrompt(in debateInput, challenger, defender datatypes.RoleKey, question, answer datatypes.ModelOutput) string {
	return strings.Join([]string{
		in.sharedContext(),
		"",
		"Exchange under review:",
		indentJSON(map[string]any{
			"challenger": challenger,
			"defender":   defender,
			"question":   question,
			"answer":     answer,
		}),
	}, "\n")
}

// parseJudgeVerdict coerces a raw judge output into a typed verdict.
// Missing or malformed fields zero out rather than fail: a silent judge
// scores the exchange as a wash.
func parseJudgeVerdict(out datatypes.ModelOutput) datatypes.JudgeVerdict {
	obj := out.Object
	if obj == nil {
		obj = map[string]any{}
	}

	delta := objectField(obj, "delta")
	challengerDelta, _ := numberField(delta, "challenger")
	defenderDelta, _ := numberField(delta, "defender")

	failType := stringField(obj, "loser_fail_type")
	if failType == "" {
		failType = datatypes.FailNone
	}

	return datatypes.JudgeVerdict{
		Delta: datatypes.JudgeDelta{
			Challenger: int(challengerDelta),
			Defender:   int(defenderDelta),
		},
		KO:            boolField(obj, "ko"),
		KOReason:      stringField(obj, "ko_reason"),
		Why:           stringListField(obj, "why"),
		LoserFailType: failType,
	}
}
