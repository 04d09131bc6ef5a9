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
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
	"github.com/AleutianAI/AleutianVerdict/services/judge/integrity"
	"github.com/AleutianAI/AleutianVerdict/services/judge/observability"
	"github.com/AleutianAI/AleutianVerdict/services/judge/storage"
	"github.com/AleutianAI/AleutianVerdict/services/llm"
)

// finalMatchRounds is the fixed length of the tournament's final match.
const finalMatchRounds = 3

// Pipeline runs judgment pipelines against a fixed set of dependencies.
//
// # Description
//
// A Pipeline is constructed once at bootstrap and shared across requests;
// each Run call is fully independent. Dependencies are explicit: the
// provider router for reasoning calls and the run store for best-effort
// persistence. Nothing in the engine reads ambient environment.
//
// # Thread Safety
//
// Safe for concurrent Run calls.
type Pipeline struct {
	router *llm.Router
	store  storage.Store
}

// NewPipeline wires the engine's dependencies. A nil store disables
// persistence rather than failing.
func NewPipeline(router *llm.Router, store storage.Store) *Pipeline {
	if store == nil {
		store = storage.DisabledStore{}
	}
	return &Pipeline{router: router, store: store}
}

// RunParams are the per-invocation inputs of one judgment run. The caller
// (HTTP handler or CLI) is responsible for validation and defaulting.
type RunParams struct {
	Prompt             string
	Mode               string // "base" or "deep"
	Debate             string // "arena", "all" or "none"
	ProviderPreference string // "", "openai" or "anthropic"
	UserID             string
	RequestID          string
}

// Run executes one judgment run end to end.
//
// # Description
//
// Stage order: prompt ledger step, engine fan-out, BASE synthesis,
// optional DEEP synthesis, optional debate, terminal assembly, best-effort
// persistence. Failures split three ways:
//
//   - engines or BASE failing is terminal: the run ends early with an
//     OK=false result that is still structurally complete, persisted, and
//     closed with a final event.
//   - DEEP or debate failing degrades: the run continues with an error
//     marker in the corresponding slot.
//   - cancellation is not a failure: Run returns nil, emits no further
//     events, and persists nothing.
//
// Events stream to em as stages complete; a nil emitter runs the pipeline
// without a stream. Run never returns an error: the result (or nil for a
// canceled run) is the entire contract.
func (p *Pipeline) Run(ctx context.Context, params RunParams, em *Emitter) *datatypes.RunResult {
	started := time.Now()
	runID := uuid.New().String()
	metrics := observability.DefaultMetrics

	ctx, span := otel.Tracer("services/judge/engine").Start(ctx, "JudgmentPipeline")
	defer span.End()
	span.SetAttributes(
		attribute.String("judge.run_id", runID),
		attribute.String("judge.mode", params.Mode),
		attribute.String("judge.debate", params.Debate),
	)

	metrics.RunStarted()
	slog.Info("Judgment run started",
		"run_id", runID,
		"request_id", params.RequestID,
		"mode", params.Mode,
		"debate", params.Debate)

	emit(em, runID, datatypes.EventStart, map[string]any{
		"request_id": params.RequestID,
		"user_id":    params.UserID,
		"mode":       params.Mode,
		"debate":     params.Debate,
	})

	ledger := integrity.NewLedger()
	ledger.AddStep("prompt", map[string]any{
		"prompt":     params.Prompt,
		"mode":       params.Mode,
		"debate":     params.Debate,
		"user_id":    params.UserID,
		"request_id": params.RequestID,
	})

	complete := func(ctx context.Context, system, user string) (string, string, error) {
		return p.router.Complete(ctx, params.ProviderPreference, system, user)
	}

	// Stage: engine fan-out. Terminal on failure.
	engines, err := runEngines(ctx, complete, em, runID, params.Prompt)
	if err != nil {
		if ctx.Err() != nil {
			metrics.RunAborted()
			return nil
		}
		metrics.RecordStageError("engines")
		return p.finishFailed(ctx, em, ledger, metrics, failedRun{
			runID:     runID,
			started:   started,
			params:    params,
			stage:     "engines",
			errText:   err.Error(),
			eventType: datatypes.EventEngineError,
		})
	}
	ledger.AddStep("engines", engines)

	// Stage: BASE synthesis. Terminal on failure.
	base, err := ComputeBase(ctx, complete, params.Prompt, engines)
	if err != nil {
		if ctx.Err() != nil {
			metrics.RunAborted()
			return nil
		}
		metrics.RecordStageError("base")
		return p.finishFailed(ctx, em, ledger, metrics, failedRun{
			runID:     runID,
			started:   started,
			params:    params,
			engines:   engines,
			stage:     "base",
			errText:   err.Error(),
			eventType: datatypes.EventBaseError,
		})
	}
	ledger.AddStep("base_judgment", base)
	emit(em, runID, datatypes.EventBaseJudgment, map[string]any{"base": base})

	// Stage: DEEP synthesis. Degrades on failure.
	var deep *datatypes.DeepJudgment
	if params.Mode == datatypes.ModeDeep {
		deep, err = ComputeDeep(ctx, complete, params.Prompt, base, engines)
		if err != nil {
			if ctx.Err() != nil {
				metrics.RunAborted()
				return nil
			}
			metrics.RecordStageError("deep")
			slog.Warn("Deep synthesis failed, degrading", "run_id", runID, "error", err)
			emit(em, runID, datatypes.EventDeepError, map[string]any{"error": err.Error()})
			deep = &datatypes.DeepJudgment{
				Label:      base.Label,
				Confidence: base.Confidence,
				Error:      err.Error(),
			}
			ledger.AddStep("deep_error", map[string]any{"error": err.Error()})
		} else {
			ledger.AddStep("deep_judgment", deep)
			emit(em, runID, datatypes.EventDeepJudgment, map[string]any{"deep": deep})
		}
	} else {
		ledger.AddStep("deep_judgment", nil)
	}

	// Stage: debate. Degrades on failure; silent on cancellation.
	debate, aborted := p.runDebate(ctx, complete, em, runID, params, engines, base, deep, ledger, metrics)
	if aborted {
		metrics.RunAborted()
		return nil
	}

	// Terminal assembly.
	snapshot := integrity.SnapshotHash(params.Prompt, engines, base, deep, debate)
	result := &datatypes.RunResult{
		OK:           true,
		RunID:        runID,
		StartedAt:    started.UTC().Format(time.RFC3339Nano),
		FinishedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		UserID:       params.UserID,
		RequestID:    params.RequestID,
		Mode:         params.Mode,
		Debate:       params.Debate,
		BaseJudgment: base,
		Deep:         deep,
		DebateResult: debate,
		Integrity: datatypes.Integrity{
			ChainHeadHash:        ledger.Head(),
			HashChain:            ledger.Chain(),
			DecisionSnapshotHash: snapshot,
		},
	}

	emit(em, runID, datatypes.EventFinal, map[string]any{
		"ok": true,
		"summary": map[string]any{
			"base_label":      base.Label,
			"winner":          debate.Winner(),
			"chain_head_hash": ledger.Head(),
		},
	})

	p.persistBestEffort(ctx, em, result, metrics)

	metrics.RunEnded(params.Mode, params.Debate, true, time.Since(started).Seconds())
	slog.Info("Judgment run finished",
		"run_id", runID,
		"label", base.Label,
		"duration_ms", time.Since(started).Milliseconds())
	return result
}

// runDebate dispatches the configured debate selection. The second return
// is true when the run was canceled mid-debate and must end silently.
func (p *Pipeline) runDebate(ctx context.Context, complete CompleteFunc, em *Emitter, runID string,
	params RunParams, engines datatypes.EngineOutputs, base *datatypes.BaseJudgment,
	deep *datatypes.DeepJudgment, ledger *integrity.Ledger, metrics *observability.JudgeMetrics) (*datatypes.DebateResult, bool) {

	in := debateInput{Prompt: params.Prompt, Engines: engines, Base: base, Deep: deep}

	switch params.Debate {
	case datatypes.DebateArena:
		match, err := RunArena(ctx, complete, em, runID, in, ArenaOptions{})
		if err != nil {
			return p.debateFailure(ctx, em, runID, ledger, metrics, err)
		}
		countJudgedExchanges(metrics, match)
		ledger.AddStep("debate_arena", match)
		return &datatypes.DebateResult{Type: datatypes.DebateTypeArena, Match: match}, false

	case datatypes.DebateAll:
		tournament, err := RunAllToAll(ctx, complete, em, runID, in)
		if err != nil {
			return p.debateFailure(ctx, em, runID, ledger, metrics, err)
		}
		for range tournament.Matches {
			metrics.RecordDebateRound(datatypes.MatchKeyAllToAll)
		}
		ledger.AddStep("debate_all_to_all", map[string]any{
			"ranking":      tournament.Ranking,
			"top2":         tournament.Top2,
			"conflict_map": tournament.ConflictMap,
		})

		if len(tournament.Top2) != 2 {
			return &datatypes.DebateResult{Type: datatypes.DebateTypeAllToAllOnly, AllToAll: tournament}, false
		}

		finalMatch, err := RunArena(ctx, complete, em, runID, in, ArenaOptions{
			MatchKey: datatypes.MatchKeyFinalMatch,
			Pairs:    [][2]datatypes.RoleKey{{tournament.Top2[0], tournament.Top2[1]}},
			Rounds:   finalMatchRounds,
		})
		if err != nil {
			return p.debateFailure(ctx, em, runID, ledger, metrics, err)
		}
		countJudgedExchanges(metrics, finalMatch)
		ledger.AddStep("debate_final_match", finalMatch)
		return &datatypes.DebateResult{
			Type:       datatypes.DebateTypeAllToAllFinal,
			AllToAll:   tournament,
			FinalMatch: finalMatch,
		}, false

	default:
		ledger.AddStep("debate", nil)
		return nil, false
	}
}

// debateFailure classifies a debate-stage error: cancellation ends the run
// silently, anything else degrades into a debate_failed result.
func (p *Pipeline) debateFailure(ctx context.Context, em *Emitter, runID string,
	ledger *integrity.Ledger, metrics *observability.JudgeMetrics, err error) (*datatypes.DebateResult, bool) {

	if ctx.Err() != nil {
		return nil, true
	}
	metrics.RecordStageError("debate")
	slog.Warn("Debate stage failed, degrading", "run_id", runID, "error", err)
	emit(em, runID, datatypes.EventDebateError, map[string]any{"error": err.Error()})
	ledger.AddStep("debate_failed", map[string]any{"error": err.Error()})
	return &datatypes.DebateResult{Type: datatypes.DebateTypeFailed, Error: err.Error()}, false
}

// countJudgedExchanges counts a match's judge-phase steps into the debate
// round metric.
func countJudgedExchanges(metrics *observability.JudgeMetrics, match *datatypes.MatchResult) {
	for _, step := range match.Steps {
		if step.Phase == datatypes.PhaseJudge {
			metrics.RecordDebateRound(match.MatchKey)
		}
	}
}

// failedRun carries the context of a terminal stage failure.
type failedRun struct {
	runID     string
	started   time.Time
	params    RunParams
	engines   datatypes.EngineOutputs
	stage     string
	errText   string
	eventType string
}

// finishFailed closes a run after a terminal engines/base failure: error
// event, ledger error step, OK=false result, final event, best-effort
// persistence. The failed result is structurally complete so consumers
// handle it like any other run.
func (p *Pipeline) finishFailed(ctx context.Context, em *Emitter, ledger *integrity.Ledger,
	metrics *observability.JudgeMetrics, f failedRun) *datatypes.RunResult {

	slog.Error("Judgment run failed", "run_id", f.runID, "stage", f.stage, "error", f.errText)
	emit(em, f.runID, f.eventType, map[string]any{"stage": f.stage, "error": f.errText})
	ledger.AddStep(f.stage+"_error", map[string]any{"error": f.errText})

	debate := &datatypes.DebateResult{
		Type:  datatypes.DebateTypeStageFailed,
		Stage: f.stage,
		Error: f.errText,
	}
	snapshot := integrity.SnapshotHash(f.params.Prompt, f.engines, nil, nil, debate)
	result := &datatypes.RunResult{
		OK:           false,
		RunID:        f.runID,
		StartedAt:    f.started.UTC().Format(time.RFC3339Nano),
		FinishedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		UserID:       f.params.UserID,
		RequestID:    f.params.RequestID,
		Mode:         f.params.Mode,
		Debate:       f.params.Debate,
		DebateResult: debate,
		Integrity: datatypes.Integrity{
			ChainHeadHash:        ledger.Head(),
			HashChain:            ledger.Chain(),
			DecisionSnapshotHash: snapshot,
		},
	}

	emit(em, f.runID, datatypes.EventFinal, map[string]any{
		"ok": false,
		"summary": map[string]any{
			"stage":           f.stage,
			"chain_head_hash": ledger.Head(),
		},
	})

	p.persistBestEffort(ctx, em, result, metrics)
	metrics.RunEnded(f.params.Mode, f.params.Debate, false, time.Since(f.started).Seconds())
	return result
}

// persistBestEffort saves the run and reports the outcome as a persisted
// event. A save failure is an outcome, never a run failure: it is logged,
// counted and emitted exactly once, then dropped.
func (p *Pipeline) persistBestEffort(ctx context.Context, em *Emitter, result *datatypes.RunResult,
	metrics *observability.JudgeMetrics) {

	outcome := p.store.SaveRun(ctx, result)
	switch {
	case outcome.OK:
		metrics.RecordPersistOutcome(true, false)
		emit(em, result.RunID, datatypes.EventPersisted, map[string]any{"ok": true})
	case outcome.Err == nil:
		metrics.RecordPersistOutcome(false, true)
		emit(em, result.RunID, datatypes.EventPersisted, map[string]any{
			"ok":     false,
			"reason": outcome.Reason,
		})
	default:
		metrics.RecordPersistOutcome(false, false)
		metrics.RecordStageError("persist")
		slog.Warn("Run persistence failed", "run_id", result.RunID, "error", outcome.Err)
		emit(em, result.RunID, datatypes.EventPersisted, map[string]any{
			"ok":    false,
			"error": outcome.Err.Error(),
		})
	}
}
