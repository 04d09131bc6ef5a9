// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(runID string) *datatypes.RunResult {
	loser := datatypes.RoleRisk
	return &datatypes.RunResult{
		OK:        true,
		RunID:     runID,
		UserID:    "tester",
		RequestID: "req-1",
		Mode:      datatypes.ModeBase,
		Debate:    datatypes.DebateArena,
		BaseJudgment: &datatypes.BaseJudgment{
			Label:               "HOLD",
			Confidence:          0.6,
			OneLiner:            "(HOLD) Insufficient data.",
			EngineDisagreements: []string{"x"},
		},
		DebateResult: &datatypes.DebateResult{
			Type: datatypes.DebateTypeArena,
			Match: &datatypes.MatchResult{
				MatchKey: datatypes.MatchKeyArena,
				Winner:   string(datatypes.RoleProbability),
				Loser:    &loser,
				Steps: []datatypes.DebateStep{
					{MatchKey: datatypes.MatchKeyArena, Round: 1, Challenger: datatypes.RoleProbability, Defender: datatypes.RoleRisk, Phase: datatypes.PhaseQuestion},
					{MatchKey: datatypes.MatchKeyArena, Round: 1, Challenger: datatypes.RoleProbability, Defender: datatypes.RoleRisk, Phase: datatypes.PhaseAnswer},
					{MatchKey: datatypes.MatchKeyArena, Round: 1, Challenger: datatypes.RoleProbability, Defender: datatypes.RoleRisk, Phase: datatypes.PhaseJudge},
				},
			},
		},
		Integrity: datatypes.Integrity{
			ChainHeadHash:        "head",
			DecisionSnapshotHash: "snapshot",
		},
	}
}

func TestBadgerStoreSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run := sampleRun("run-1")

	outcome := store.SaveRun(ctx, run)
	require.True(t, outcome.OK)
	require.NoError(t, outcome.Err)

	loaded, err := store.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.True(t, loaded.OK)
	assert.Equal(t, "tester", loaded.UserID)
	require.NotNil(t, loaded.BaseJudgment)
	assert.Equal(t, "HOLD", loaded.BaseJudgment.Label)
	assert.Equal(t, "head", loaded.Integrity.ChainHeadHash)
	assert.Equal(t, "snapshot", loaded.Integrity.DecisionSnapshotHash)
}

func TestBadgerStoreLoadUnknownRun(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestBadgerStoreNilRun(t *testing.T) {
	store := newTestStore(t)

	outcome := store.SaveRun(context.Background(), nil)
	assert.False(t, outcome.OK)
	assert.Error(t, outcome.Err)
}

func TestBadgerStoreCanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := store.SaveRun(ctx, sampleRun("run-1"))
	assert.False(t, outcome.OK)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestBadgerStoreBackfillsMissingBase(t *testing.T) {
	run := sampleRun("run-2")
	run.OK = false
	run.BaseJudgment = nil

	rec := buildRunRecord(run)
	require.NotNil(t, rec.BaseJudgment)
	assert.Equal(t, datatypes.LabelUncertain, rec.BaseJudgment.Label)
	assert.NotEmpty(t, rec.BaseJudgment.EngineDisagreements)
}

func TestFlattenStepsReindexesAcrossBrackets(t *testing.T) {
	loser := datatypes.RoleStructure
	debate := &datatypes.DebateResult{
		Type: datatypes.DebateTypeAllToAllFinal,
		AllToAll: &datatypes.TournamentResult{
			Matches: []datatypes.PairMatch{
				{
					MatchKey:   datatypes.MatchKeyAllToAll,
					PairKey:    "probability__vs__risk",
					Challenger: datatypes.RoleProbability,
					Defender:   datatypes.RoleRisk,
					Steps: []datatypes.PhaseStep{
						{Phase: datatypes.PhaseQuestion},
						{Phase: datatypes.PhaseAnswer},
						{Phase: datatypes.PhaseJudge},
					},
				},
				{
					MatchKey:   datatypes.MatchKeyAllToAll,
					PairKey:    "probability__vs__structure",
					Challenger: datatypes.RoleProbability,
					Defender:   datatypes.RoleStructure,
					Steps: []datatypes.PhaseStep{
						{Phase: datatypes.PhaseQuestion},
						{Phase: datatypes.PhaseAnswer},
						{Phase: datatypes.PhaseJudge},
					},
				},
			},
		},
		FinalMatch: &datatypes.MatchResult{
			MatchKey: datatypes.MatchKeyFinalMatch,
			Winner:   string(datatypes.RoleProbability),
			Loser:    &loser,
			Steps: []datatypes.DebateStep{
				{MatchKey: datatypes.MatchKeyFinalMatch, Round: 1, Challenger: datatypes.RoleProbability, Defender: datatypes.RoleStructure, Phase: datatypes.PhaseQuestion},
				{MatchKey: datatypes.MatchKeyFinalMatch, Round: 1, Challenger: datatypes.RoleProbability, Defender: datatypes.RoleStructure, Phase: datatypes.PhaseAnswer},
			},
		},
	}

	rows := FlattenSteps("run-3", debate)
	require.Len(t, rows, 8)
	for i, row := range rows {
		assert.Equal(t, i, row.Idx)
		assert.Equal(t, "run-3", row.RunID)
	}
	assert.Equal(t, datatypes.MatchKeyAllToAll, rows[0].MatchKey)
	assert.Equal(t, datatypes.RoleStructure, rows[3].Defender)
	assert.Equal(t, datatypes.MatchKeyFinalMatch, rows[6].MatchKey)
	assert.Equal(t, datatypes.PhaseAnswer, rows[7].Phase)
}

func TestFlattenStepsNilDebate(t *testing.T) {
	assert.Nil(t, FlattenSteps("run-4", nil))
}

func TestDisabledStoreSkips(t *testing.T) {
	outcome := DisabledStore{}.SaveRun(context.Background(), sampleRun("run-5"))
	assert.False(t, outcome.OK)
	assert.Equal(t, "disabled", outcome.Reason)
	assert.NoError(t, outcome.Err)
	assert.NoError(t, DisabledStore{}.Close())
}

func TestBadgerStoreRequiresPath(t *testing.T) {
	_, err := NewBadgerStore(Config{})
	assert.Error(t, err)
}
