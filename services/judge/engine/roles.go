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
	"context"
	"strings"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// CompleteFunc is the reasoning-adapter boundary the engine calls through.
// It returns the raw model text and the tag of the provider that answered.
// Implementations must propagate context cancellation as an error.
type CompleteFunc func(ctx context.Context, system, user string) (text, provider string, err error)

// roleSpec binds a role key to its persona and instruction prefix.
type roleSpec struct {
	Key         datatypes.RoleKey
	Label       string
	Instruction string
}

// The four fixed reasoning roles, in declaration order.
var roleSpecs = []roleSpec{
	{
		Key:         datatypes.RoleProbability,
		Label:       "Probability",
		Instruction: "Focus on probabilities, premises and sensitivities. Speak in numbers, ranges and probability distributions.",
	},
	{
		Key:         datatypes.RoleRisk,
		Label:       "Risk",
		Instruction: "Focus on downside risk. Lay out loss scenarios, triggers, and hedge/stop rules.",
	},
	{
		Key:         datatypes.RoleStructure,
		Label:       "Structure",
		Instruction: "Focus on structure: business, financials, market, valuation, catalysts. Decompose the logic.",
	},
	{
		Key:         datatypes.RoleOpportunity,
		Label:       "Opportunity",
		Instruction: "Focus on opportunity cost, alternatives and relative attractiveness. Compare better uses of the same capital.",
	},
}

// roleSystemPrompt builds the system instructions for one reasoning role.
// The embedded JSON template doubles as the schema hint the offline
// generator keys off.
func roleSystemPrompt(spec roleSpec) string {
	return strings.Join([]string{
		`You are the "` + spec.Label + `" engine of the judgment panel.`,
		spec.Instruction,
		"Do not deliver a single conclusion; present structured evidence.",
		"Follow the output format below exactly.",
		"",
		"Output format (JSON):",
		"{",
		`  "role": "` + string(spec.Key) + `",`,
		`  "claim": "one-sentence core claim",`,
		`  "assumptions": ["premise 1","premise 2"],`,
		`  "numbers": [{"metric":"", "value":"", "range":""}],`,
		`  "reasoning": ["evidence 1","evidence 2","evidence 3"],`,
		`  "questions_to_others": ["question for another engine","question 2"],`,
		`  "confidence": 0.0`,
		"}",
		"",
		"Note: output JSON only.",
	}, "\n")
}

// roleUserPrompt builds the user message shared by all four roles.
func roleUserPrompt(prompt string) string {
	return strings.Join([]string{
		"User question (decision under judgment):",
		prompt,
		"",
		"Constraints:",
		`- If you do not know, say so, and put the missing data (ticker, price, horizon) in your questions.`,
		`- If you cannot produce a figure, mark it "unknown" in "numbers" and explain why.`,
	}, "\n")
}

// runRole invokes the reasoning adapter once for one role and normalizes
// the output. Provider failures are absorbed inside the adapter; the only
// error out of here is cancellation or a terminal adapter configuration
// problem.
func runRole(ctx context.Context, complete CompleteFunc, spec roleSpec, prompt string) (datatypes.RoleOutput, error) {
	text, provider, err := complete(ctx, roleSystemPrompt(spec), roleUserPrompt(prompt))
	if err != nil {
		return datatypes.RoleOutput{}, err
	}
	return datatypes.RoleOutput{
		Role:     spec.Key,
		Provider: provider,
		Result:   Normalize(text),
	}, nil
}
