// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"math"
	"regexp"
	"strings"
)

// OfflineClient is the deterministic substitute used when no provider
// credentials are configured, and as the last-resort fallback on provider
// failure.
//
// # Description
//
// Every response is schema-shaped placeholder JSON. The requested schema is
// recognized from the JSON template embedded in the system instructions, so
// the generator stays in lockstep with the prompts without any out-of-band
// hint. Output is a pure function of (system, user): the PRNG is seeded
// from a hash of the inputs, which keeps runs reproducible for tests and
// offline demos.
//
// # Limitations
//
//   - Content is placeholder text; only the shape and the numeric fields
//     are meaningful downstream.
type OfflineClient struct{}

// NewOfflineClient returns the deterministic offline generator.
func NewOfflineClient() *OfflineClient {
	return &OfflineClient{}
}

var rolePattern = regexp.MustCompile(`"role":\s*"([a-z_]+)"`)

// Complete implements the Client interface. It never fails except on a
// canceled context.
func (c *OfflineClient) Complete(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rnd := newSeededRand(fnv32a(system + "\n" + user))
	conf := math.Round((0.35+rnd.next()*0.45)*100) / 100

	var shape any
	switch {
	case strings.Contains(system, `"engine_disagreements"`):
		shape = offlineBase(rnd, conf)
	case strings.Contains(system, `"axes"`):
		shape = offlineDeep(rnd, conf)
	case strings.Contains(system, `"revised_claim"`):
		shape = map[string]any{
			"revised_claim":        "Holding the directional view, but with wider uncertainty bands after the cross-examination.",
			"what_i_got_wrong":     []string{"Understated the downside trigger probability."},
			"what_i_still_believe": []string{"The core premise survives absent new data."},
			"new_numbers_needed":   []string{"Current price and valuation multiple", "Position risk limit"},
			"confidence":           conf,
		}
	case strings.Contains(system, `"attack_type"`):
		shape = map[string]any{
			"question":         "Which core premise (demand, margin, rates) is weakest, and did you verify it with numbers?",
			"attack_type":      "numbers",
			"why_this_matters": "If the premise is wrong the conclusion flips.",
		}
	case strings.Contains(system, `"concede"`):
		concede := rnd.next() < 0.25
		reason := ""
		if concede {
			reason = "Conceding the lack of quantitative support."
		}
		shape = map[string]any{
			"answer":   "Quantitative data is thin; under a -10% demand sensitivity the breakeven assumption likely fails.",
			"evidence": []string{"Assumption-based", "Additional data required"},
			"numbers": []map[string]string{
				{"metric": "demand_change", "value": "-10%", "range": "-5%~-20%"},
			},
			"concede":        concede,
			"concede_reason": reason,
		}
	case strings.Contains(system, `"loser_fail_type"`):
		ko := rnd.next() < 0.1
		koReason := ""
		if ko {
			koReason = "Defender never produced numeric support for the challenged premise."
		}
		shape = map[string]any{
			"delta":           map[string]int{"challenger": 2, "defender": -1},
			"ko":              ko,
			"ko_reason":       koReason,
			"why":             []string{"The question pinned the weakest premise.", "The answer's numeric support was thin."},
			"loser_fail_type": "no_numbers",
		}
	default:
		shape = offlineRole(system, rnd, conf)
	}

	out, err := json.Marshal(shape)
	if err != nil {
		// Shapes above are static maps; this cannot happen at runtime.
		return "", err
	}
	return string(out), nil
}

func offlineBase(rnd *seededRand, conf float64) map[string]any {
	label := pick(rnd, []string{"BUY", "HOLD", "SELL", "UNCERTAIN"})
	return map[string]any{
		"label":      label,
		"confidence": conf,
		"one_liner":  "(" + label + ") Offline placeholder verdict; connect a provider for grounded judgment.",
		"why": []string{
			"Key premises need verification before a firm call",
			"The four perspectives partially conflict",
			"Risk/reward is unclear without fresher data",
		},
		"what_would_change_mind": []string{
			"Ticker, current price and horizon",
			"Financials and guidance",
			"Recent catalysts (earnings, regulation, contracts)",
		},
		"engine_disagreements": []string{
			"Upside-catalyst probability vs downside-risk magnitude",
			"Relative attractiveness against alternatives",
		},
	}
}

func offlineDeep(rnd *seededRand, conf float64) map[string]any {
	return map[string]any{
		"label":      pick(rnd, []string{"BUY", "HOLD", "SELL", "UNCERTAIN"}),
		"confidence": conf,
		"cut_rules_triggered": []string{},
		"scenarios": []map[string]any{
			{"name": "base", "prob": 0.5, "up": "Premises hold and catalysts land", "down": "Demand premise breaks"},
			{"name": "stress", "prob": 0.2, "up": "", "down": "Downside trigger fires with no hedge"},
		},
		"axes": map[string]any{
			"price_scenarios":   []string{"Range-bound absent a catalyst"},
			"structural_upside": []string{"Depends on unverified structural premise"},
			"tech_state":        []string{"Neutral momentum"},
			"portfolio_risk":    []string{"Size the position against the stop level"},
		},
		"why":              []string{"Offline placeholder analysis; conservative by construction."},
		"what_data_needed": []string{"Ticker and current price", "Horizon", "Risk limit (stop basis)"},
	}
}

func offlineRole(system string, rnd *seededRand, conf float64) map[string]any {
	role := "unknown"
	if m := rolePattern.FindStringSubmatch(system); m != nil {
		role = m[1]
	}
	return map[string]any{
		"role":  role,
		"claim": "Offline placeholder output; a live provider strengthens evidence and numbers.",
		"assumptions": []string{
			"No additional data supplied",
			"Market conditions remain variable",
		},
		"numbers": []map[string]string{
			{"metric": "unknown", "value": "unknown", "range": "unknown"},
		},
		"reasoning": []string{
			"Premises need verification",
			"Both upside and downside scenarios remain open",
			"Comparison against alternatives required",
		},
		"questions_to_others": []string{
			"What is the largest downside trigger?",
			"What is the edge over the alternatives?",
		},
		"confidence": conf,
	}
}

func pick(rnd *seededRand, options []string) string {
	return options[int(rnd.next()*float64(len(options)))]
}

// =============================================================================
// Seeded PRNG
// =============================================================================

// fnv32a hashes the prompt pair into a PRNG seed.
func fnv32a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// seededRand is a mulberry32 generator: tiny, fast and reproducible across
// platforms, which is all the offline generator needs.
type seededRand struct {
	state uint32
}

func newSeededRand(seed uint32) *seededRand {
	return &seededRand{state: seed}
}

// next returns a float64 in [0, 1).
func (r *seededRand) next() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296
}
