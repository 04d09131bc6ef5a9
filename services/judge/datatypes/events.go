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

import "encoding/json"

// =============================================================================
// Stream Events
// =============================================================================

// Stream event types, in the order a successful run emits them.
const (
	EventStart            = "start"
	EventEngineResult     = "engine_result"
	EventBaseJudgment     = "base_judgment"
	EventDeepJudgment     = "deep_judgment"
	EventDebateStep       = "debate_step"
	EventDebateFinal      = "debate_final"
	EventAllToAllStep     = "all_to_all_step"
	EventAllToAllRevision = "all_to_all_self_revision"
	EventAllToAllFinal    = "debate_all_to_all_final"
	EventFinal            = "final"
	EventPersisted        = "persisted"
	EventEngineError      = "engine_error"
	EventBaseError        = "base_error"
	EventDeepError        = "deep_error"
	EventDebateError      = "debate_error"
)

// StreamEvent is one item on the run's event channel.
//
// # Description
//
// Events serialize as a single flat JSON object: {"type", "run_id", "ts"}
// merged with the payload keys. Consumers must treat the stream as
// append-only and at-most-once per item; there is no acknowledgement or
// replay.
//
// # Limitations
//
//   - Payload keys named "type", "run_id" or "ts" would collide with the
//     envelope and are therefore reserved.
type StreamEvent struct {
	Type    string
	RunID   string
	TS      string
	Payload map[string]any
}

// MarshalJSON flattens the payload into the event envelope.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		m[k] = v
	}
	m["type"] = e.Type
	m["run_id"] = e.RunID
	m["ts"] = e.TS
	return json.Marshal(m)
}

// UnmarshalJSON restores the envelope and collects the remaining keys as
// the payload. Used by stream consumers (CLI, tests).
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	e.Type, _ = m["type"].(string)
	e.RunID, _ = m["run_id"].(string)
	e.TS, _ = m["ts"].(string)
	delete(m, "type")
	delete(m, "run_id")
	delete(m, "ts")
	e.Payload = m
	return nil
}
