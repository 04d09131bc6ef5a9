// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// Config holds configuration for the embedded BadgerDB run store.
type Config struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output.
	// If nil, internal logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults for a persistent store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns configuration optimized for testing.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore persists run results in an embedded BadgerDB.
//
// # Description
//
// Each run writes one record under "run/<run_id>" plus one row per debate
// step under "run/<run_id>/step/<idx>". Steps are flattened across every
// bracket of the run (arena match, tournament pairings, final match) and
// re-indexed 0..N-1 in stream order, so a reader can replay the debate
// without reassembling the nested result.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens the run store with the given configuration.
// Creates the directory if it does not exist.
func NewBadgerStore(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// runKey and stepKey build the keyspace for one run.
func runKey(runID string) []byte {
	return []byte("run/" + runID)
}

func stepKey(runID string, idx int) []byte {
	return []byte(fmt.Sprintf("run/%s/step/%d", runID, idx))
}

// runRecord is the stored shape of one run. BaseJudgment is always
// populated: a run that died before synthesis stores a defensive
// UNCERTAIN placeholder so readers never handle a null verdict.
type runRecord struct {
	OK                   bool                    `json:"ok"`
	RunID                string                  `json:"run_id"`
	StartedAt            string                  `json:"started_at"`
	FinishedAt           string                  `json:"finished_at"`
	UserID               string                  `json:"user_id"`
	RequestID            string                  `json:"request_id"`
	Mode                 string                  `json:"mode"`
	Debate               string                  `json:"debate"`
	BaseJudgment         *datatypes.BaseJudgment `json:"base_judgment"`
	Deep                 *datatypes.DeepJudgment `json:"deep"`
	DebateType           string                  `json:"debate_type"`
	Winner               string                  `json:"winner"`
	StepCount            int                     `json:"step_count"`
	ChainHeadHash        string                  `json:"chain_head_hash"`
	DecisionSnapshotHash string                  `json:"decision_snapshot_hash"`
}

// stepRow is one flattened debate step as stored.
type stepRow struct {
	RunID      string            `json:"run_id"`
	Idx        int               `json:"idx"`
	MatchKey   string            `json:"match_key"`
	Round      int               `json:"round"`
	Challenger datatypes.RoleKey `json:"challenger"`
	Defender   datatypes.RoleKey `json:"defender"`
	Phase      string            `json:"phase"`
	Payload    any               `json:"payload"`
}

// SaveRun writes the run record and its flattened debate steps in one
// transaction. Implements the Store interface.
func (s *BadgerStore) SaveRun(ctx context.Context, run *datatypes.RunResult) SaveOutcome {
	if run == nil {
		return SaveOutcome{OK: false, Err: errors.New("nil run")}
	}
	if err := ctx.Err(); err != nil {
		return SaveOutcome{OK: false, Err: err}
	}

	rec := buildRunRecord(run)
	steps := FlattenSteps(run.RunID, run.DebateResult)
	rec.StepCount = len(steps)

	err := s.db.Update(func(txn *badger.Txn) error {
		recData, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode run record: %w", err)
		}
		if err := txn.Set(runKey(run.RunID), recData); err != nil {
			return err
		}
		for _, row := range steps {
			rowData, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("encode step %d: %w", row.Idx, err)
			}
			if err := txn.Set(stepKey(run.RunID, row.Idx), rowData); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SaveOutcome{OK: false, Err: err}
	}
	return SaveOutcome{OK: true}
}

// LoadRun reads one stored run record by id. Returns badger.ErrKeyNotFound
// for an unknown run.
func (s *BadgerStore) LoadRun(ctx context.Context, runID string) (*datatypes.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out datatypes.RunResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(runID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var rec runRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("decode run record: %w", err)
			}
			out = datatypes.RunResult{
				OK:           rec.OK,
				RunID:        rec.RunID,
				StartedAt:    rec.StartedAt,
				FinishedAt:   rec.FinishedAt,
				UserID:       rec.UserID,
				RequestID:    rec.RequestID,
				Mode:         rec.Mode,
				Debate:       rec.Debate,
				BaseJudgment: rec.BaseJudgment,
				Deep:         rec.Deep,
				Integrity: datatypes.Integrity{
					ChainHeadHash:        rec.ChainHeadHash,
					DecisionSnapshotHash: rec.DecisionSnapshotHash,
				},
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Close releases the database. Implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// buildRunRecord projects the run result into its stored shape.
func buildRunRecord(run *datatypes.RunResult) runRecord {
	base := run.BaseJudgment
	if base == nil {
		base = &datatypes.BaseJudgment{
			Label:               datatypes.LabelUncertain,
			Confidence:          0,
			OneLiner:            "(UNCERTAIN) Run ended before a verdict was synthesized.",
			EngineDisagreements: []string{"Run ended before the engines could be compared."},
		}
	}

	rec := runRecord{
		OK:                   run.OK,
		RunID:                run.RunID,
		StartedAt:            run.StartedAt,
		FinishedAt:           run.FinishedAt,
		UserID:               run.UserID,
		RequestID:            run.RequestID,
		Mode:                 run.Mode,
		Debate:               run.Debate,
		BaseJudgment:         base,
		Deep:                 run.Deep,
		ChainHeadHash:        run.Integrity.ChainHeadHash,
		DecisionSnapshotHash: run.Integrity.DecisionSnapshotHash,
	}
	if run.DebateResult != nil {
		rec.DebateType = run.DebateResult.Type
		rec.Winner = run.DebateResult.Winner()
	}
	return rec
}

// FlattenSteps linearizes every debate step of a run into stored rows,
// re-indexed 0..N-1 in stream order. Exported so callers outside the
// store can reproduce the persisted row shape.
func FlattenSteps(runID string, debate *datatypes.DebateResult) []stepRow {
	if debate == nil {
		return nil
	}

	var rows []stepRow
	add := func(matchKey string, round int, challenger, defender datatypes.RoleKey, phase string, payload any) {
		rows = append(rows, stepRow{
			RunID:      runID,
			Idx:        len(rows),
			MatchKey:   matchKey,
			Round:      round,
			Challenger: challenger,
			Defender:   defender,
			Phase:      phase,
			Payload:    payload,
		})
	}
	addMatch := func(m *datatypes.MatchResult) {
		if m == nil {
			return
		}
		for _, step := range m.Steps {
			add(step.MatchKey, step.Round, step.Challenger, step.Defender, step.Phase, step.Payload)
		}
	}

	addMatch(debate.Match)
	if t := debate.AllToAll; t != nil {
		for _, pairing := range t.Matches {
			for _, step := range pairing.Steps {
				add(pairing.MatchKey, 0, pairing.Challenger, pairing.Defender, step.Phase, step.Payload)
			}
		}
	}
	addMatch(debate.FinalMatch)
	return rows
}
