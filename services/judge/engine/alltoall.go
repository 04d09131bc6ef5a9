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

// allToAllPairs is the fixed pairing schedule: every unordered role pair
// exactly once, the first role as challenger.
func allToAllPairs() [][2]datatypes.RoleKey {
	return [][2]datatypes.RoleKey{
		{datatypes.RoleProbability, datatypes.RoleRisk},
		{datatypes.RoleProbability, datatypes.RoleStructure},
		{datatypes.RoleProbability, datatypes.RoleOpportunity},
		{datatypes.RoleRisk, datatypes.RoleStructure},
		{datatypes.RoleRisk, datatypes.RoleOpportunity},
		{datatypes.RoleStructure, datatypes.RoleOpportunity},
	}
}

// RunAllToAll executes the full tournament: six single-exchange pairings
// over a shared score, then a self-revision pass for every role.
//
// # Description
//
// Unlike the arena, a knockout verdict here is recorded in the pairing's
// judge summary but does not short-circuit the schedule; every pairing
// runs. After the schedule each role revises its own position against the
// final score and the judge summaries. The conflict map tallies the
// losing-side failure taxonomy across pairings as an audit signal.
//
// The terminal ranking's top two roles qualify for the final match the
// orchestrator may run afterwards.
//
// # Outputs
//
//   - The TournamentResult on completion.
//   - An error only on cancellation.
func RunAllToAll(ctx context.Context, complete CompleteFunc, em *Emitter, runID string, in debateInput) (*datatypes.TournamentResult, error) {
	score := datatypes.NewScore()
	matches := make([]datatypes.PairMatch, 0, 6)
	failCounts := make(map[string]int)

	for _, pair := range allToAllPairs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		challenger, defender := pair[0], pair[1]
		pairKey := string(challenger) + "__vs__" + string(defender)

		emitStep := func(phase string, payload any) {
			emit(em, runID, datatypes.EventAllToAllStep, map[string]any{
				"match_key":  datatypes.MatchKeyAllToAll,
				"pair_key":   pairKey,
				"challenger": challenger,
				"defender":   defender,
				"phase":      phase,
				"payload":    payload,
			})
		}

		qText, _, err := complete(ctx, questionSystemPrompt(challenger), questionUserPrompt(in, defender))
		if err != nil {
			return nil, err
		}
		question := Normalize(qText)
		emitStep(datatypes.PhaseQuestion, question)

		aText, _, err := complete(ctx, answerSystemPrompt(defender), answerUserPrompt(in, defender, question))
		if err != nil {
			return nil, err
		}
		answer := Normalize(aText)
		emitStep(datatypes.PhaseAnswer, answer)

		jText, _, err := complete(ctx, judgeSystemPrompt(), judgeUserPrompt(in, challenger, defender, question, answer))
		if err != nil {
			return nil, err
		}
		judge := parseJudgeVerdict(Normalize(jText))
		score[challenger] += judge.Delta.Challenger
		score[defender] += judge.Delta.Defender
		failCounts[judge.LoserFailType]++
		emitStep(datatypes.PhaseJudge, map[string]any{
			"judge": judge,
			"score": score.Clone(),
		})

		var koReason *string
		if judge.KO && judge.KOReason != "" {
			koReason = &judge.KOReason
		}
		matches = append(matches, datatypes.PairMatch{
			MatchKey:   datatypes.MatchKeyAllToAll,
			PairKey:    pairKey,
			Challenger: challenger,
			Defender:   defender,
			Steps: []datatypes.PhaseStep{
				{Phase: datatypes.PhaseQuestion, Payload: question},
				{Phase: datatypes.PhaseAnswer, Payload: answer},
				{Phase: datatypes.PhaseJudge, Payload: map[string]any{"judge": judge}},
			},
			JudgeSummary: datatypes.JudgeSummary{
				KO:            judge.KO,
				KOReason:      koReason,
				LoserFailType: judge.LoserFailType,
				Delta:         judge.Delta,
				Why:           judge.Why,
			},
		})
	}

	selfRevision := make(map[datatypes.RoleKey]datatypes.ModelOutput, len(roleSpecs))
	for _, spec := range roleSpecs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, _, err := complete(ctx, revisionSystemPrompt(spec), revisionUserPrompt(in, spec.Key, score, matches))
		if err != nil {
			return nil, err
		}
		revised := Normalize(text)
		selfRevision[spec.Key] = revised
		emit(em, runID, datatypes.EventAllToAllRevision, map[string]any{
			"match_key": datatypes.MatchKeyAllToAll,
			"role":      spec.Key,
			"payload":   revised,
		})
	}

	ranking := score.Ranking()
	top2 := make([]datatypes.RoleKey, 0, 2)
	for _, entry := range ranking[:min(2, len(ranking))] {
		top2 = append(top2, entry.Role)
	}

	result := &datatypes.TournamentResult{
		MatchKey: datatypes.MatchKeyAllToAll,
		Type:     datatypes.MatchKeyAllToAll,
		Score:    score.Clone(),
		Ranking:  ranking,
		Top2:     top2,
		ConflictMap: datatypes.ConflictMap{
			LoserFailTypeCounts: failCounts,
			Note:                "Frequency of losing-side failure patterns across all pairings.",
		},
		Matches:      matches,
		SelfRevision: selfRevision,
	}

	emit(em, runID, datatypes.EventAllToAllFinal, map[string]any{
		"match_key":    result.MatchKey,
		"ranking":      result.Ranking,
		"top2":         result.Top2,
		"conflict_map": result.ConflictMap,
	})
	return result, nil
}

// =============================================================================
// Self-revision prompts
// =============================================================================

func revisionSystemPrompt(spec roleSpec) string {
	return strings.Join([]string{
		`You are the "` + spec.Label + `" engine, revising your position after the tournament.`,
		"Concede what the cross-examination broke; keep what survived.",
		"Output JSON only, in this format:",
		"{",
		`  "revised_claim": "your updated one-sentence claim",`,
		`  "what_i_got_wrong": ["conceded point"],`,
		`  "what_i_still_believe": ["surviving point"],`,
		`  "new_numbers_needed": ["datum that would settle it"],`,
		`  "confidence": 0.0`,
		"}",
	}, "\n")
}

func revisionUserPrompt(in debateInput, role datatypes.RoleKey, score datatypes.Score, matches []datatypes.PairMatch) string {
	summaries := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		summaries = append(summaries, map[string]any{
			"pair_key":        m.PairKey,
			"delta":           m.JudgeSummary.Delta,
			"ko":              m.JudgeSummary.KO,
			"loser_fail_type": m.JudgeSummary.LoserFailType,
			"why":             m.JudgeSummary.Why,
		})
	}
	return strings.Join([]string{
		in.sharedContext(),
		"",
		"Your original output:",
		indentJSON(in.Engines[role]),
		"",
		"Final score:",
		indentJSON(score),
		"",
		"Judge summaries:",
		indentJSON(summaries),
	}, "\n")
}
