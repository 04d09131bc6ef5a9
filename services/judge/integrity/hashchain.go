// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package integrity provides the tamper-evident hash chain that ties every
// pipeline stage to the final decision.
//
// # Description
//
// A Ledger is an append-only log. Each record links to the previous record's
// digest, starting from a fixed genesis sentinel, so the whole chain is
// linearly verifiable: recomputing any record's digest from its own fields
// must reproduce its step hash, and each prev hash must equal the preceding
// step hash.
//
// Independently of the chain, SnapshotHash fingerprints only the
// decision-relevant payloads of a run. Two runs with identical snapshots
// reached the same decision even if their chains differ in timing.
//
// # Thread Safety
//
// A Ledger is NOT safe for concurrent use. The pipeline orchestrator is the
// single writer within a run; there is no other writer by design.
//
// # Limitations
//
//   - Hashing is assumed infallible. A payload that cannot be JSON-encoded
//     is a programming error and panics rather than returning an error.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// Ledger is the append-only hash chain for one run.
type Ledger struct {
	chain []datatypes.LedgerRecord
	head  string
}

// NewLedger returns an empty ledger whose head is the genesis sentinel.
func NewLedger() *Ledger {
	return &Ledger{head: datatypes.GenesisHash}
}

// recordBody is the digest input: the full record minus the digest itself.
type recordBody struct {
	StepType string `json:"step_type"`
	TS       string `json:"ts"`
	PrevHash string `json:"prev_hash"`
	Payload  any    `json:"payload"`
}

// AddStep appends a record for one pipeline stage and advances the head.
//
// The payload is stored as given; the digest covers the JSON encoding of
// (step_type, ts, prev_hash, payload). Returns the appended record.
func (l *Ledger) AddStep(stepType string, payload any) datatypes.LedgerRecord {
	body := recordBody{
		StepType: stepType,
		TS:       time.Now().UTC().Format(time.RFC3339Nano),
		PrevHash: l.head,
		Payload:  payload,
	}
	rec := datatypes.LedgerRecord{
		StepType: body.StepType,
		TS:       body.TS,
		PrevHash: body.PrevHash,
		Payload:  body.Payload,
		StepHash: hashBody(body),
	}
	l.chain = append(l.chain, rec)
	l.head = rec.StepHash
	return rec
}

// Head returns the current chain tip: the genesis sentinel for an empty
// ledger, else the last record's step hash.
func (l *Ledger) Head() string {
	return l.head
}

// Chain returns the records appended so far, oldest first. The returned
// slice is the ledger's own backing array; callers must not mutate it.
func (l *Ledger) Chain() []datatypes.LedgerRecord {
	return l.chain
}

// Verify walks a chain and reports the first linkage or digest violation.
//
// A valid chain starts from the genesis sentinel, every record's digest
// recomputes from its own fields, and every prev hash equals the preceding
// step hash. An empty chain is valid.
func Verify(chain []datatypes.LedgerRecord) error {
	prev := datatypes.GenesisHash
	for i, rec := range chain {
		if rec.PrevHash != prev {
			return fmt.Errorf("record %d: prev_hash %q does not link to %q", i, rec.PrevHash, prev)
		}
		want := hashBody(recordBody{
			StepType: rec.StepType,
			TS:       rec.TS,
			PrevHash: rec.PrevHash,
			Payload:  rec.Payload,
		})
		if rec.StepHash != want {
			return fmt.Errorf("record %d (%s): step_hash mismatch", i, rec.StepType)
		}
		prev = rec.StepHash
	}
	return nil
}

// SnapshotHash digests only the decision-relevant payloads of a run.
func SnapshotHash(prompt string, engines datatypes.EngineOutputs, base *datatypes.BaseJudgment,
	deep *datatypes.DeepJudgment, debate *datatypes.DebateResult) string {

	return Sum256JSON(struct {
		Prompt  string                  `json:"prompt"`
		Engines datatypes.EngineOutputs `json:"engines"`
		Base    *datatypes.BaseJudgment `json:"base"`
		Deep    *datatypes.DeepJudgment `json:"deep"`
		Debate  *datatypes.DebateResult `json:"debate"`
	}{prompt, engines, base, deep, debate})
}

// Sum256JSON returns the hex SHA-256 of the canonical JSON encoding of v.
// Panics on an unencodable value; see the package limitations.
func Sum256JSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("integrity: unencodable payload: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashBody(body recordBody) string {
	return Sum256JSON(body)
}
