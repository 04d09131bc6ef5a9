// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

func TestRunAllToAllSchedule(t *testing.T) {
	ctx := context.Background()
	em := NewEmitter(ctx)
	complete := debateScript(
		`{"delta": {"challenger": 2, "defender": -1}, "ko": false, "why": [], "loser_fail_type": "no_numbers"}`,
		`{"delta": {"challenger": 1, "defender": 1}, "ko": false, "why": [], "loser_fail_type": "none"}`,
		washVerdict,
	)

	var result *datatypes.TournamentResult
	var err error
	go func() {
		defer em.Close()
		result, err = RunAllToAll(ctx, complete, em, "run-1", testDebateInput())
	}()
	events := collectEvents(em)

	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, datatypes.MatchKeyAllToAll, result.MatchKey)
	assert.Equal(t, datatypes.MatchKeyAllToAll, result.Type)
	require.Len(t, result.Matches, 6)
	assert.Equal(t, "probability__vs__risk", result.Matches[0].PairKey)
	assert.Equal(t, "structure__vs__opportunity", result.Matches[5].PairKey)
	for _, m := range result.Matches {
		assert.Len(t, m.Steps, 3)
	}

	// probability: +2 (vs risk) +1 (vs structure) = 3; risk: -1;
	// structure: +1 from the shared second pairing; the rest wash.
	assert.Equal(t, 3, result.Score[datatypes.RoleProbability])
	assert.Equal(t, -1, result.Score[datatypes.RoleRisk])
	assert.Equal(t, 1, result.Score[datatypes.RoleStructure])

	require.Len(t, result.Top2, 2)
	assert.Equal(t, datatypes.RoleProbability, result.Top2[0])
	assert.Equal(t, datatypes.RoleStructure, result.Top2[1])

	assert.Len(t, result.SelfRevision, 4)
	for _, role := range datatypes.AllRoles() {
		revised, ok := result.SelfRevision[role]
		require.True(t, ok)
		_, ok = revised.Field("revised_claim")
		assert.True(t, ok)
	}

	assert.Equal(t, 1, result.ConflictMap.LoserFailTypeCounts["no_numbers"])
	assert.Equal(t, 5, result.ConflictMap.LoserFailTypeCounts["none"])
	assert.NotEmpty(t, result.ConflictMap.Note)

	// 18 phase events, 4 revision events, 1 terminal event.
	require.Len(t, events, 23)
	stepCount, revisionCount := 0, 0
	for _, ev := range events {
		switch ev.Type {
		case datatypes.EventAllToAllStep:
			stepCount++
		case datatypes.EventAllToAllRevision:
			revisionCount++
		}
	}
	assert.Equal(t, 18, stepCount)
	assert.Equal(t, 4, revisionCount)
	last := events[len(events)-1]
	assert.Equal(t, datatypes.EventAllToAllFinal, last.Type)
	assert.Contains(t, last.Payload, "ranking")
	assert.Contains(t, last.Payload, "top2")
	assert.Contains(t, last.Payload, "conflict_map")
}

func TestRunAllToAllKODoesNotShortCircuit(t *testing.T) {
	complete := debateScript(
		`{"delta": {"challenger": 3, "defender": -5}, "ko": true, "ko_reason": "demolished", "why": [], "loser_fail_type": "contradiction"}`,
		washVerdict,
	)

	result, err := RunAllToAll(context.Background(), complete, nil, "run-1", testDebateInput())
	require.NoError(t, err)
	// All six pairings ran despite the first-round knockout.
	require.Len(t, result.Matches, 6)
	assert.True(t, result.Matches[0].JudgeSummary.KO)
	require.NotNil(t, result.Matches[0].JudgeSummary.KOReason)
	assert.Equal(t, "demolished", *result.Matches[0].JudgeSummary.KOReason)
	assert.False(t, result.Matches[1].JudgeSummary.KO)
	assert.Nil(t, result.Matches[1].JudgeSummary.KOReason)
}

func TestRunAllToAllCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := RunAllToAll(ctx, debateScript(washVerdict), nil, "run-1", testDebateInput())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}
