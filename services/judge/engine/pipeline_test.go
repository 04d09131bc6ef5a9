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
	"github.com/AleutianAI/AleutianVerdict/services/judge/integrity"
	"github.com/AleutianAI/AleutianVerdict/services/judge/storage"
	"github.com/AleutianAI/AleutianVerdict/services/llm"
)

func offlinePipeline(t *testing.T, store storage.Store) *Pipeline {
	t.Helper()
	return NewPipeline(llm.NewRouter(llm.Config{AllowOffline: true}), store)
}

func runStreaming(t *testing.T, p *Pipeline, params RunParams) (*datatypes.RunResult, []datatypes.StreamEvent) {
	t.Helper()
	ctx := context.Background()
	em := NewEmitter(ctx)

	var result *datatypes.RunResult
	go func() {
		defer em.Close()
		result = p.Run(ctx, params, em)
	}()
	events := collectEvents(em)
	return result, events
}

func eventTypes(events []datatypes.StreamEvent) []string {
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func TestPipelineBaseRunWithoutDebate(t *testing.T) {
	p := offlinePipeline(t, storage.DisabledStore{})

	result, events := runStreaming(t, p, RunParams{
		Prompt: "Should I buy this stock?",
		Mode:   datatypes.ModeBase,
		Debate: datatypes.DebateNone,
	})

	require.NotNil(t, result)
	assert.True(t, result.OK)
	assert.NotEmpty(t, result.RunID)
	require.NotNil(t, result.BaseJudgment)
	assert.NotEmpty(t, result.BaseJudgment.Label)
	assert.NotEmpty(t, result.BaseJudgment.EngineDisagreements)
	assert.Nil(t, result.Deep)
	assert.Nil(t, result.DebateResult)

	require.NoError(t, integrity.Verify(result.Integrity.HashChain))
	assert.Equal(t, result.Integrity.ChainHeadHash,
		result.Integrity.HashChain[len(result.Integrity.HashChain)-1].StepHash)
	assert.NotEmpty(t, result.Integrity.DecisionSnapshotHash)

	types := eventTypes(events)
	require.GreaterOrEqual(t, len(types), 8)
	assert.Equal(t, datatypes.EventStart, types[0])
	// Four engine results in completion order, then the base verdict.
	engineResults := 0
	for _, ty := range types[1:5] {
		if ty == datatypes.EventEngineResult {
			engineResults++
		}
	}
	assert.Equal(t, 4, engineResults)
	assert.Equal(t, datatypes.EventBaseJudgment, types[5])
	assert.Equal(t, datatypes.EventFinal, types[len(types)-2])
	assert.Equal(t, datatypes.EventPersisted, types[len(types)-1])

	last := events[len(events)-1]
	assert.Equal(t, false, last.Payload["ok"])
	assert.Equal(t, "disabled", last.Payload["reason"])
}

func TestPipelinePersistedEmittedExactlyOnce(t *testing.T) {
	p := offlinePipeline(t, storage.DisabledStore{})

	_, events := runStreaming(t, p, RunParams{
		Prompt: "q",
		Mode:   datatypes.ModeBase,
		Debate: datatypes.DebateArena,
	})

	persisted := 0
	for _, ev := range events {
		if ev.Type == datatypes.EventPersisted {
			persisted++
		}
	}
	assert.Equal(t, 1, persisted)
	assert.Equal(t, datatypes.EventPersisted, events[len(events)-1].Type)
}

func TestPipelineArenaDebate(t *testing.T) {
	p := offlinePipeline(t, storage.DisabledStore{})

	result, events := runStreaming(t, p, RunParams{
		Prompt: "Should I rotate into bonds?",
		Mode:   datatypes.ModeBase,
		Debate: datatypes.DebateArena,
	})

	require.NotNil(t, result)
	require.NotNil(t, result.DebateResult)
	assert.Equal(t, datatypes.DebateTypeArena, result.DebateResult.Type)
	require.NotNil(t, result.DebateResult.Match)
	assert.NotEmpty(t, result.DebateResult.Match.Winner)
	assert.NotEmpty(t, result.DebateResult.Match.Steps)
	require.NoError(t, integrity.Verify(result.Integrity.HashChain))

	types := eventTypes(events)
	assert.Contains(t, types, datatypes.EventDebateStep)
	assert.Contains(t, types, datatypes.EventDebateFinal)
}

func TestPipelineDeepModeWithTournament(t *testing.T) {
	p := offlinePipeline(t, storage.DisabledStore{})

	result, events := runStreaming(t, p, RunParams{
		Prompt: "Is this the right entry point?",
		Mode:   datatypes.ModeDeep,
		Debate: datatypes.DebateAll,
	})

	require.NotNil(t, result)
	require.NotNil(t, result.Deep)
	assert.Empty(t, result.Deep.Error)
	assert.NotEmpty(t, result.Deep.Scenarios)

	require.NotNil(t, result.DebateResult)
	assert.Equal(t, datatypes.DebateTypeAllToAllFinal, result.DebateResult.Type)
	require.NotNil(t, result.DebateResult.AllToAll)
	assert.Len(t, result.DebateResult.AllToAll.Matches, 6)
	require.NotNil(t, result.DebateResult.FinalMatch)
	assert.Equal(t, datatypes.MatchKeyFinalMatch, result.DebateResult.FinalMatch.MatchKey)

	require.NoError(t, integrity.Verify(result.Integrity.HashChain))

	types := eventTypes(events)
	assert.Contains(t, types, datatypes.EventDeepJudgment)
	assert.Contains(t, types, datatypes.EventAllToAllStep)
	assert.Contains(t, types, datatypes.EventAllToAllRevision)
	assert.Contains(t, types, datatypes.EventAllToAllFinal)
}

func TestPipelinePersistsToStore(t *testing.T) {
	store, err := storage.NewBadgerStore(storage.InMemoryConfig())
	require.NoError(t, err)
	defer store.Close()
	p := offlinePipeline(t, store)

	result, events := runStreaming(t, p, RunParams{
		Prompt: "q",
		Mode:   datatypes.ModeBase,
		Debate: datatypes.DebateNone,
		UserID: "tester",
	})
	require.NotNil(t, result)

	last := events[len(events)-1]
	require.Equal(t, datatypes.EventPersisted, last.Type)
	assert.Equal(t, true, last.Payload["ok"])

	loaded, err := store.LoadRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, loaded.RunID)
	assert.Equal(t, "tester", loaded.UserID)
	require.NotNil(t, loaded.BaseJudgment)
	assert.Equal(t, result.BaseJudgment.Label, loaded.BaseJudgment.Label)
	assert.Equal(t, result.Integrity.ChainHeadHash, loaded.Integrity.ChainHeadHash)
}

func TestPipelineRunsWithoutEmitter(t *testing.T) {
	p := offlinePipeline(t, nil)

	result := p.Run(context.Background(), RunParams{
		Prompt: "q",
		Mode:   datatypes.ModeBase,
		Debate: datatypes.DebateArena,
	}, nil)

	require.NotNil(t, result)
	assert.True(t, result.OK)
	require.NoError(t, integrity.Verify(result.Integrity.HashChain))
}

func TestPipelineCancellationReturnsNil(t *testing.T) {
	p := offlinePipeline(t, storage.DisabledStore{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := p.Run(ctx, RunParams{
		Prompt: "q",
		Mode:   datatypes.ModeBase,
		Debate: datatypes.DebateArena,
	}, nil)
	assert.Nil(t, result)
}

func TestPipelineSnapshotHashIsRecomputable(t *testing.T) {
	p := offlinePipeline(t, storage.DisabledStore{})

	result := p.Run(context.Background(), RunParams{
		Prompt: "q",
		Mode:   datatypes.ModeBase,
		Debate: datatypes.DebateNone,
	}, nil)
	require.NotNil(t, result)

	// Engine outputs are part of the snapshot; a recomputation that omits
	// them must produce a different digest.
	withoutEngines := integrity.SnapshotHash("q", nil, result.BaseJudgment, result.Deep, result.DebateResult)
	assert.NotEqual(t, withoutEngines, result.Integrity.DecisionSnapshotHash)
}
