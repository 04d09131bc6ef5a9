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

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// Default arena schedule: four rounds cycling through the fixed pairings.
const defaultArenaRounds = 4

// DefaultArenaPairs is the fixed (challenger, defender) cycle of an arena
// match. Every role appears on both sides of an exchange across one pass.
func DefaultArenaPairs() [][2]datatypes.RoleKey {
	return [][2]datatypes.RoleKey{
		{datatypes.RoleProbability, datatypes.RoleRisk},
		{datatypes.RoleStructure, datatypes.RoleOpportunity},
		{datatypes.RoleRisk, datatypes.RoleStructure},
		{datatypes.RoleOpportunity, datatypes.RoleProbability},
	}
}

// ArenaOptions override the match shape. The zero value runs a standard
// four-round arena match.
type ArenaOptions struct {
	MatchKey string
	Pairs    [][2]datatypes.RoleKey
	Rounds   int
}

// RunArena executes one sequential debate match.
//
// # Description
//
// Each round is a strict question→answer→judge triad between the round's
// (challenger, defender) pair. Judge deltas mutate the running score; a
// knockout verdict ends the match immediately with the challenger as
// winner. Without a knockout the final ranking decides, with a margin of
// one point or less declared a draw.
//
// Every phase emits a debate_step event before the next phase starts, and
// the terminal debate_final event carries the full match result.
//
// # Outputs
//
//   - The immutable MatchResult on completion.
//   - An error only on cancellation; the caller then terminates silently
//     with no result event for the aborted match.
func RunArena(ctx context.Context, complete CompleteFunc, em *Emitter, runID string, in debateInput, opts ArenaOptions) (*datatypes.MatchResult, error) {
	matchKey := opts.MatchKey
	if matchKey == "" {
		matchKey = datatypes.MatchKeyArena
	}
	pairs := opts.Pairs
	if len(pairs) == 0 {
		pairs = DefaultArenaPairs()
	}
	rounds := opts.Rounds
	if rounds <= 0 {
		rounds = defaultArenaRounds
	}

	score := datatypes.NewScore()
	var steps []datatypes.DebateStep

	addStep := func(round int, challenger, defender datatypes.RoleKey, phase string, payload any) {
		step := datatypes.DebateStep{
			MatchKey:   matchKey,
			Round:      round,
			Challenger: challenger,
			Defender:   defender,
			Phase:      phase,
			Payload:    payload,
		}
		steps = append(steps, step)
		emit(em, runID, datatypes.EventDebateStep, eventPayload(step))
	}

	// Rounds are numbered from 1 in steps and events.
	for round := 1; round <= rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pair := pairs[(round-1)%len(pairs)]
		challenger, defender := pair[0], pair[1]

		qText, _, err := complete(ctx, questionSystemPrompt(challenger), questionUserPrompt(in, defender))
		if err != nil {
			return nil, err
		}
		question := Normalize(qText)
		addStep(round, challenger, defender, datatypes.PhaseQuestion, question)

		aText, _, err := complete(ctx, answerSystemPrompt(defender), answerUserPrompt(in, defender, question))
		if err != nil {
			return nil, err
		}
		answer := Normalize(aText)
		addStep(round, challenger, defender, datatypes.PhaseAnswer, answer)

		jText, _, err := complete(ctx, judgeSystemPrompt(), judgeUserPrompt(in, challenger, defender, question, answer))
		if err != nil {
			return nil, err
		}
		judge := parseJudgeVerdict(Normalize(jText))
		score[challenger] += judge.Delta.Challenger
		score[defender] += judge.Delta.Defender
		addStep(round, challenger, defender, datatypes.PhaseJudge, map[string]any{
			"judge": judge,
			"score": score.Clone(),
		})

		if judge.KO {
			reason := judge.KOReason
			if reason == "" {
				reason = "knockout"
			}
			result := finalizeMatch(matchKey, string(challenger), &defender, true, &reason, score, steps)
			emit(em, runID, datatypes.EventDebateFinal, eventPayload(result))
			return result, nil
		}
	}

	ranking := score.Ranking()
	var result *datatypes.MatchResult
	if len(ranking) >= 2 && ranking[0].Points-ranking[1].Points <= 1 {
		result = finalizeMatch(matchKey, datatypes.WinnerDraw, nil, false, nil, score, steps)
	} else {
		loser := ranking[1].Role
		result = finalizeMatch(matchKey, string(ranking[0].Role), &loser, false, nil, score, steps)
	}
	emit(em, runID, datatypes.EventDebateFinal, eventPayload(result))
	return result, nil
}

// finalizeMatch assembles the immutable match result.
func finalizeMatch(matchKey, winner string, loser *datatypes.RoleKey, ko bool, koReason *string, score datatypes.Score, steps []datatypes.DebateStep) *datatypes.MatchResult {
	why := winner + " dominated with more consistent evidence and numbers against the opponent's weakest premise."
	if winner == datatypes.WinnerDraw {
		why = "Margin too thin and the core premise conflict remains unresolved; declared a draw."
	}
	return &datatypes.MatchResult{
		MatchKey:    matchKey,
		Winner:      winner,
		Loser:       loser,
		KO:          ko,
		KOReason:    koReason,
		WhyOneLiner: why,
		Score:       score.Clone(),
		Steps:       steps,
	}
}
