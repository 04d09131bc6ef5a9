// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "sort"

// =============================================================================
// Phases and Taxonomies
// =============================================================================

// Debate phases. Every round is a strict question→answer→judge triad.
const (
	PhaseQuestion = "question"
	PhaseAnswer   = "answer"
	PhaseJudge    = "judge"
)

// Match keys label which bracket a step belongs to.
const (
	MatchKeyArena      = "arena"
	MatchKeyAllToAll   = "all_to_all"
	MatchKeyFinalMatch = "final_match"
)

// Failure taxonomy a judge assigns to the losing side of an exchange.
const (
	FailRepeat        = "repeat"
	FailEvasion       = "evasion"
	FailNoNumbers     = "no_numbers"
	FailContradiction = "contradiction"
	FailScopeCheat    = "scope_cheat"
	FailNone          = "none"
)

// WinnerDraw is the winner value when no contestant prevailed.
const WinnerDraw = "draw"

// =============================================================================
// Steps and Scores
// =============================================================================

// DebateStep is one phase of one round within a match. Steps form an
// append-only ordered sequence.
type DebateStep struct {
	MatchKey   string  `json:"match_key"`
	Round      int     `json:"round"`
	Challenger RoleKey `json:"challenger"`
	Defender   RoleKey `json:"defender"`
	Phase      string  `json:"phase"`
	Payload    any     `json:"payload"`
}

// Score is the running integer total per role. It is mutated only by
// judge-phase deltas, single-writer within a match.
type Score map[RoleKey]int

// NewScore returns a zeroed score over the four fixed roles.
func NewScore() Score {
	s := make(Score, 4)
	for _, r := range AllRoles() {
		s[r] = 0
	}
	return s
}

// Clone returns an independent copy. Judge-phase step payloads embed a
// snapshot of the score at that point, so the live map must not leak.
func (s Score) Clone() Score {
	out := make(Score, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// RankEntry is one row of a descending ranking.
type RankEntry struct {
	Role   RoleKey `json:"role"`
	Points int     `json:"points"`
}

// Ranking returns the roles ordered by points descending. Ties keep the
// fixed role declaration order so rankings are deterministic for equal
// scores.
func (s Score) Ranking() []RankEntry {
	entries := make([]RankEntry, 0, len(s))
	for _, r := range AllRoles() {
		if pts, ok := s[r]; ok {
			entries = append(entries, RankEntry{Role: r, Points: pts})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	return entries
}

// =============================================================================
// Judge Verdicts
// =============================================================================

// JudgeDelta is the signed score adjustment for one exchange. The
// conventional range is -5..+3 but it is model-reported, not enforced.
type JudgeDelta struct {
	Challenger int `json:"challenger"`
	Defender   int `json:"defender"`
}

// JudgeVerdict is the normalized judge-phase payload for one exchange.
type JudgeVerdict struct {
	Delta         JudgeDelta `json:"delta"`
	KO            bool       `json:"ko"`
	KOReason      string     `json:"ko_reason"`
	Why           []string   `json:"why"`
	LoserFailType string     `json:"loser_fail_type"`
}

// =============================================================================
// Match Results
// =============================================================================

// MatchResult is the terminal outcome of one arena match. Immutable once
// the match concludes.
type MatchResult struct {
	MatchKey    string       `json:"match_key"`
	Winner      string       `json:"winner"` // RoleKey or "draw"
	Loser       *RoleKey     `json:"loser"`
	KO          bool         `json:"ko"`
	KOReason    *string      `json:"ko_reason"`
	WhyOneLiner string       `json:"why_one_liner"`
	Score       Score        `json:"score"`
	Steps       []DebateStep `json:"steps"`
}

// PhaseStep is one phase entry within an all-to-all pairing record.
type PhaseStep struct {
	Phase   string `json:"phase"`
	Payload any    `json:"payload"`
}

// JudgeSummary condenses the judge outcome of one all-to-all pairing.
type JudgeSummary struct {
	KO            bool       `json:"ko"`
	KOReason      *string    `json:"ko_reason"`
	LoserFailType string     `json:"loser_fail_type"`
	Delta         JudgeDelta `json:"delta"`
	Why           []string   `json:"why"`
}

// PairMatch is the record of one all-to-all pairing.
type PairMatch struct {
	MatchKey     string       `json:"match_key"`
	PairKey      string       `json:"pair_key"`
	Challenger   RoleKey      `json:"challenger"`
	Defender     RoleKey      `json:"defender"`
	Steps        []PhaseStep  `json:"steps"`
	JudgeSummary JudgeSummary `json:"judge_summary"`
}

// ConflictMap aggregates failure-type frequencies across a tournament as a
// coarse audit signal. It does not feed back into scoring.
type ConflictMap struct {
	LoserFailTypeCounts map[string]int `json:"loser_fail_type_counts"`
	Note                string         `json:"note"`
}

// TournamentResult is the terminal outcome of an all-to-all tournament.
type TournamentResult struct {
	MatchKey     string                  `json:"match_key"`
	Type         string                  `json:"type"`
	Score        Score                   `json:"score"`
	Ranking      []RankEntry             `json:"ranking"`
	Top2         []RoleKey               `json:"top2"`
	ConflictMap  ConflictMap             `json:"conflict_map"`
	Matches      []PairMatch             `json:"matches"`
	SelfRevision map[RoleKey]ModelOutput `json:"self_revision"`
}

// =============================================================================
// Debate Result (tagged union)
// =============================================================================

// DebateResult type tags.
const (
	DebateTypeArena         = "arena"
	DebateTypeAllToAllFinal = "all_to_all_plus_final"
	DebateTypeAllToAllOnly  = "all_to_all_only"
	DebateTypeFailed        = "debate_failed"
	DebateTypeStageFailed   = "failed"
)

// DebateResult is the tagged union over every way the debate stage can end.
//
// Exactly one of the optional members is populated for the corresponding
// Type. StageFailed carries the upstream stage name when the run died
// before the debate could start.
type DebateResult struct {
	Type       string            `json:"type"`
	Match      *MatchResult      `json:"match,omitempty"`
	AllToAll   *TournamentResult `json:"all_to_all,omitempty"`
	FinalMatch *MatchResult      `json:"final_match,omitempty"`
	Stage      string            `json:"stage,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Winner returns the overall debate winner, or "" when undefined.
//
// For a tournament with a final match the final match decides; a bare
// tournament has no single winner.
func (d *DebateResult) Winner() string {
	if d == nil {
		return ""
	}
	switch d.Type {
	case DebateTypeArena:
		if d.Match != nil {
			return d.Match.Winner
		}
	case DebateTypeAllToAllFinal:
		if d.FinalMatch != nil {
			return d.FinalMatch.Winner
		}
	}
	return ""
}
