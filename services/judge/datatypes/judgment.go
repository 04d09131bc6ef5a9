// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the judge service.
//
// This file contains the reasoning-role and verdict shapes. Request types
// live in requests.go, debate shapes in debate.go, stream events in
// events.go, and the terminal run shapes in run.go.
package datatypes

import "encoding/json"

// =============================================================================
// Roles
// =============================================================================

// RoleKey identifies one of the four fixed reasoning roles. The same keys
// identify debate contestants.
type RoleKey string

const (
	RoleProbability RoleKey = "probability"
	RoleRisk        RoleKey = "risk"
	RoleStructure   RoleKey = "structure"
	RoleOpportunity RoleKey = "opportunity"
)

// AllRoles returns the four reasoning roles in declaration order.
//
// The slice is freshly allocated; callers may reorder it.
func AllRoles() []RoleKey {
	return []RoleKey{RoleProbability, RoleRisk, RoleStructure, RoleOpportunity}
}

// =============================================================================
// Model Output (tagged variant)
// =============================================================================

// ModelOutput is the uniform shape every model response is normalized into.
//
// # Description
//
// A ModelOutput is either a well-formed JSON object (Object) or an explicit
// parse failure carrying the cleaned raw text (ParseError + Raw). Downstream
// stages never see anything else, regardless of how badly the model
// misbehaved. The variant serializes to either the object itself or
// {"parse_error": true, "raw": "..."}.
//
// # Thread Safety
//
// Immutable after creation. Safe to share across goroutines.
type ModelOutput struct {
	Object     map[string]any
	ParseError bool
	Raw        string
}

// Field returns the named top-level field of a well-formed output.
// Returns (nil, false) for parse failures or missing keys.
func (m ModelOutput) Field(key string) (any, bool) {
	if m.ParseError || m.Object == nil {
		return nil, false
	}
	v, ok := m.Object[key]
	return v, ok
}

// MarshalJSON serializes the variant to its wire form.
func (m ModelOutput) MarshalJSON() ([]byte, error) {
	if m.ParseError {
		return json.Marshal(map[string]any{"parse_error": true, "raw": m.Raw})
	}
	if m.Object == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m.Object)
}

// UnmarshalJSON restores the variant from its wire form.
func (m *ModelOutput) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		// Not an object (e.g. null); treat as empty well-formed output.
		m.Object = nil
		m.ParseError = false
		m.Raw = ""
		return nil
	}
	if pe, ok := obj["parse_error"].(bool); ok && pe {
		raw, _ := obj["raw"].(string)
		m.ParseError = true
		m.Raw = raw
		m.Object = nil
		return nil
	}
	m.Object = obj
	m.ParseError = false
	m.Raw = ""
	return nil
}

// =============================================================================
// Role Output
// =============================================================================

// RoleOutput is the product of running one reasoning role once.
// Immutable after creation; owned by the run that produced it.
type RoleOutput struct {
	Role     RoleKey     `json:"role"`
	Provider string      `json:"provider"`
	Result   ModelOutput `json:"result"`
}

// EngineOutputs maps each role to its output for one run.
type EngineOutputs map[RoleKey]RoleOutput

// =============================================================================
// Verdicts
// =============================================================================

// Judgment labels. Scoring is advisory; UNCERTAIN is the defensive default.
const (
	LabelBuy       = "BUY"
	LabelHold      = "HOLD"
	LabelSell      = "SELL"
	LabelUncertain = "UNCERTAIN"
)

// BaseJudgment is the first-pass synthesized verdict across the four role
// outputs.
//
// Invariant: EngineDisagreements is never empty. The synthesizer repairs a
// missing or empty list before the judgment reaches any downstream stage.
type BaseJudgment struct {
	Label               string   `json:"label"`
	Confidence          float64  `json:"confidence"`
	OneLiner            string   `json:"one_liner"`
	Why                 []string `json:"why"`
	WhatWouldChangeMind []string `json:"what_would_change_mind"`
	EngineDisagreements []string `json:"engine_disagreements"`
}

// Scenario is one named outcome path in a deep judgment.
type Scenario struct {
	Name string  `json:"name"`
	Prob float64 `json:"prob"`
	Up   string  `json:"up"`
	Down string  `json:"down"`
}

// DeepAxes are the four mandatory analysis axes of a deep judgment.
type DeepAxes struct {
	PriceScenarios   []string `json:"price_scenarios"`
	StructuralUpside []string `json:"structural_upside"`
	TechState        []string `json:"tech_state"`
	PortfolioRisk    []string `json:"portfolio_risk"`
}

// DeepJudgment is the optional second-pass scenario/axis analysis.
//
// Deep analysis is advisory: when synthesis fails the orchestrator degrades
// it to the base label/confidence plus Error rather than aborting the run.
type DeepJudgment struct {
	Label             string     `json:"label"`
	Confidence        float64    `json:"confidence"`
	Scenarios         []Scenario `json:"scenarios"`
	Axes              DeepAxes   `json:"axes"`
	CutRulesTriggered []string   `json:"cut_rules_triggered"`
	Why               []string   `json:"why"`
	WhatDataNeeded    []string   `json:"what_data_needed"`
	Error             string     `json:"error,omitempty"`
}
