// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage persists terminal run results.
//
// Persistence is strictly best-effort: the pipeline treats a save failure
// as a reportable outcome, never as a run failure. Nothing in this package
// returns an error into the pipeline's control flow.
package storage

import (
	"context"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// SaveOutcome reports how one save attempt ended. It is data, not an
// error: the pipeline forwards it into the persisted event verbatim.
type SaveOutcome struct {
	// OK is true when the run was durably written.
	OK bool

	// Reason explains a non-error skip, e.g. "disabled".
	Reason string

	// Err carries the underlying write failure, nil otherwise.
	Err error
}

// Store is the persistence boundary the pipeline writes through.
//
// # Thread Safety
//
// Implementations must be safe for concurrent SaveRun calls; the service
// handles requests in parallel.
type Store interface {
	// SaveRun writes one terminal run result. Must not panic and must
	// honor context cancellation.
	SaveRun(ctx context.Context, run *datatypes.RunResult) SaveOutcome

	// Close releases underlying resources.
	Close() error
}

// DisabledStore is the Store used when persistence is turned off. Every
// save reports a skipped outcome.
type DisabledStore struct{}

func (DisabledStore) SaveRun(context.Context, *datatypes.RunResult) SaveOutcome {
	return SaveOutcome{OK: false, Reason: "disabled"}
}

func (DisabledStore) Close() error { return nil }
