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
	"encoding/json"
	"strings"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// defaultConfidence is the repair value when a synthesized verdict carries
// no usable confidence number.
const defaultConfidence = 0.55

// indentJSON renders a value for prompt embedding. Falls back to the error
// text so a prompt is never silently truncated.
func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "(unencodable: " + err.Error() + ")"
	}
	return string(data)
}

// =============================================================================
// BASE verdict
// =============================================================================

func baseSystemPrompt() string {
	return strings.Join([]string{
		"You are the BASE adjudicator of the judgment panel.",
		"Do not pronounce a single conclusion as truth; structure the disagreement.",
		"Output JSON only, in this format:",
		"{",
		`  "label": "BUY|HOLD|SELL|UNCERTAIN",`,
		`  "confidence": 0.0,`,
		`  "one_liner": "one-sentence verdict",`,
		`  "why": ["ground 1","ground 2","ground 3"],`,
		`  "what_would_change_mind": ["condition 1","condition 2"],`,
		`  "engine_disagreements": ["point of conflict 1","point of conflict 2"]`,
		"}",
	}, "\n")
}

func baseUserPrompt(prompt string, engines datatypes.EngineOutputs) string {
	return strings.Join([]string{
		"User question:",
		prompt,
		"",
		"Output of the four engines:",
		indentJSON(engines),
		"",
		"Rules:",
		"- engine_disagreements must contain at least one entry.",
		"- With insufficient data a defensive UNCERTAIN or HOLD is acceptable.",
	}, "\n")
}

// ComputeBase synthesizes the first-pass verdict across the four role
// outputs and repairs it into a well-formed BaseJudgment.
//
// The returned judgment always satisfies the disagreement invariant: the
// repair step backfills an empty or missing engine_disagreements list. The
// error return is cancellation only.
func ComputeBase(ctx context.Context, complete CompleteFunc, prompt string, engines datatypes.EngineOutputs) (*datatypes.BaseJudgment, error) {
	text, _, err := complete(ctx, baseSystemPrompt(), baseUserPrompt(prompt, engines))
	if err != nil {
		return nil, err
	}
	return RepairBase(Normalize(text)), nil
}

// RepairBase coerces a raw synthesis output into a valid BaseJudgment,
// substituting conservative defaults for every missing or malformed field.
func RepairBase(out datatypes.ModelOutput) *datatypes.BaseJudgment {
	obj := out.Object
	if obj == nil {
		obj = map[string]any{}
	}

	label := stringField(obj, "label")
	if label == "" {
		label = datatypes.LabelUncertain
	}
	conf, ok := numberField(obj, "confidence")
	if !ok {
		conf = defaultConfidence
	}
	oneLiner := stringField(obj, "one_liner")
	if oneLiner == "" {
		oneLiner = "(" + label + ") Conflicting evidence and insufficient data; defaulting to a conservative call."
	}
	disagreements := stringListField(obj, "engine_disagreements")
	if len(disagreements) == 0 {
		disagreements = []string{"The engines disagree on premises, downside risk and opportunity cost."}
	}

	return &datatypes.BaseJudgment{
		Label:               label,
		Confidence:          conf,
		OneLiner:            oneLiner,
		Why:                 stringListField(obj, "why"),
		WhatWouldChangeMind: stringListField(obj, "what_would_change_mind"),
		EngineDisagreements: disagreements,
	}
}

// =============================================================================
// DEEP verdict
// =============================================================================

func deepSystemPrompt() string {
	return strings.Join([]string{
		"You are the DEEP analyst of the judgment panel.",
		"Extend the BASE verdict into scenarios and analysis axes.",
		"Output JSON only, in this format:",
		"{",
		`  "label": "BUY|HOLD|SELL|UNCERTAIN",`,
		`  "confidence": 0.0,`,
		`  "cut_rules_triggered": ["triggered cut rule"],`,
		`  "scenarios": [{"name":"base","prob":0.5,"up":"upside path","down":"downside path"}],`,
		`  "axes": {`,
		`    "price_scenarios": ["..."],`,
		`    "structural_upside": ["..."],`,
		`    "tech_state": ["..."],`,
		`    "portfolio_risk": ["..."]`,
		"  },",
		`  "why": ["ground 1","ground 2"],`,
		`  "what_data_needed": ["missing datum 1","missing datum 2"]`,
		"}",
	}, "\n")
}

func deepUserPrompt(prompt string, base *datatypes.BaseJudgment, engines datatypes.EngineOutputs) string {
	return strings.Join([]string{
		"User question:",
		prompt,
		"",
		"BASE verdict:",
		indentJSON(base),
		"",
		"Output of the four engines:",
		indentJSON(engines),
		"",
		"Rules:",
		"- Scenario probabilities should roughly sum to 1.",
		"- Name a cut rule in cut_rules_triggered only when the evidence actually trips it.",
	}, "\n")
}

// ComputeDeep synthesizes the second-pass scenario/axis analysis. The
// error return is cancellation only; malformed output is repaired with
// conservative defaults anchored on the base verdict.
func ComputeDeep(ctx context.Context, complete CompleteFunc, prompt string, base *datatypes.BaseJudgment, engines datatypes.EngineOutputs) (*datatypes.DeepJudgment, error) {
	text, _, err := complete(ctx, deepSystemPrompt(), deepUserPrompt(prompt, base, engines))
	if err != nil {
		return nil, err
	}
	return RepairDeep(Normalize(text), base), nil
}

// RepairDeep coerces a raw deep-synthesis output into a valid DeepJudgment.
// Missing fields inherit from the base verdict where one exists.
func RepairDeep(out datatypes.ModelOutput, base *datatypes.BaseJudgment) *datatypes.DeepJudgment {
	obj := out.Object
	if obj == nil {
		obj = map[string]any{}
	}

	baseLabel := datatypes.LabelUncertain
	baseConf := defaultConfidence
	if base != nil {
		baseLabel = base.Label
		baseConf = base.Confidence
	}

	label := stringField(obj, "label")
	if label == "" {
		label = baseLabel
	}
	conf, ok := numberField(obj, "confidence")
	if !ok {
		// A repaired deep verdict must not claim more certainty than the
		// base verdict it degrades to.
		conf = min(0.65, baseConf)
	}

	scenarios := scenarioList(obj)
	if len(scenarios) == 0 {
		scenarios = []datatypes.Scenario{{
			Name: "base",
			Prob: 0.5,
			Up:   "Insufficient upside evidence",
			Down: "Insufficient downside evidence",
		}}
	}
	why := stringListField(obj, "why")
	if len(why) == 0 {
		why = []string{"Deep analysis held conservative given limited input data."}
	}
	dataNeeded := stringListField(obj, "what_data_needed")
	if len(dataNeeded) == 0 {
		dataNeeded = []string{"Ticker and current price", "Horizon", "Risk limit (stop basis)"}
	}
	cutRules := stringListField(obj, "cut_rules_triggered")
	if cutRules == nil {
		cutRules = []string{}
	}

	axesObj := objectField(obj, "axes")
	if axesObj == nil {
		axesObj = map[string]any{}
	}

	return &datatypes.DeepJudgment{
		Label:      label,
		Confidence: conf,
		Scenarios:  scenarios,
		Axes: datatypes.DeepAxes{
			PriceScenarios:   orEmpty(stringListField(axesObj, "price_scenarios")),
			StructuralUpside: orEmpty(stringListField(axesObj, "structural_upside")),
			TechState:        orEmpty(stringListField(axesObj, "tech_state")),
			PortfolioRisk:    orEmpty(stringListField(axesObj, "portfolio_risk")),
		},
		CutRulesTriggered: cutRules,
		Why:               why,
		WhatDataNeeded:    dataNeeded,
	}
}

// scenarioList coerces the scenarios array, dropping malformed entries.
func scenarioList(obj map[string]any) []datatypes.Scenario {
	raw, ok := obj["scenarios"].([]any)
	if !ok {
		return nil
	}
	out := make([]datatypes.Scenario, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		prob, _ := numberField(m, "prob")
		out = append(out, datatypes.Scenario{
			Name: stringField(m, "name"),
			Prob: prob,
			Up:   stringField(m, "up"),
			Down: stringField(m, "down"),
		})
	}
	return out
}

// orEmpty keeps axis lists serializing as [] rather than null.
func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
