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

// =============================================================================
// Integrity Ledger
// =============================================================================

// GenesisHash is the fixed sentinel the hash chain starts from.
const GenesisHash = "GENESIS"

// LedgerRecord is one hash-linked entry in the integrity ledger.
//
// StepHash is SHA-256 over the JSON encoding of the record body with
// StepHash itself excluded. For every record after genesis, PrevHash equals
// the StepHash of the immediately preceding record, so the chain is linearly
// verifiable end to end.
type LedgerRecord struct {
	StepType string `json:"step_type"`
	TS       string `json:"ts"`
	PrevHash string `json:"prev_hash"`
	Payload  any    `json:"payload"`
	StepHash string `json:"step_hash"`
}

// Integrity bundles the full chain with its head and the independent
// decision snapshot fingerprint.
type Integrity struct {
	ChainHeadHash        string         `json:"chain_head_hash"`
	HashChain            []LedgerRecord `json:"hash_chain"`
	DecisionSnapshotHash string         `json:"decision_snapshot_hash"`
}

// =============================================================================
// Run Result
// =============================================================================

// RunResult is the terminal object of one pipeline invocation.
//
// Created once per invocation and immutable once returned. OK=false marks a
// structurally valid early termination after an unrecoverable failure in the
// engines or base stage; it is not an exception path.
type RunResult struct {
	OK           bool          `json:"ok"`
	RunID        string        `json:"run_id"`
	StartedAt    string        `json:"started_at"`
	FinishedAt   string        `json:"finished_at"`
	UserID       string        `json:"user_id"`
	RequestID    string        `json:"request_id"`
	Mode         string        `json:"mode"`
	Debate       string        `json:"debate"`
	BaseJudgment *BaseJudgment `json:"base_judgment"`
	Deep         *DeepJudgment `json:"deep"`
	DebateResult *DebateResult `json:"debate_result"`
	Integrity    Integrity     `json:"integrity"`
}
