// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// NDJSONWriter defines the contract for writing newline-delimited JSON
// events to HTTP responses.
//
// # Description
//
// NDJSONWriter abstracts event serialization and writing, separating the
// stream wire format (one JSON object per line, flushed per event) from
// HTTP response mechanics. The event's own MarshalJSON flattens the
// envelope and payload into a single object.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the pipeline's fan-out
// stage can surface events from multiple goroutines.
//
// # Limitations
//
//   - Must be used with an http.Flusher-compatible ResponseWriter.
//   - Response headers must be set before the first write.
type NDJSONWriter interface {
	// WriteEvent serializes one event as a JSON line and flushes it.
	// Returns a non-nil error when the client is gone; the caller should
	// cancel the run.
	WriteEvent(event datatypes.StreamEvent) error
}

// =============================================================================
// Struct Definition
// =============================================================================

// ndjsonWriter implements NDJSONWriter for HTTP responses.
//
// # Fields
//
//   - writer: Underlying http.ResponseWriter
//   - flusher: http.Flusher interface for immediate send
//   - mu: Mutex for thread-safe writes
type ndjsonWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewNDJSONWriter creates a writer for the given ResponseWriter.
//
// The caller must set stream headers via SetNDJSONHeaders first. Returns
// an error if the ResponseWriter does not support flushing.
func NewNDJSONWriter(w http.ResponseWriter) (NDJSONWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &ndjsonWriter{writer: w, flusher: flusher}, nil
}

// WriteEvent implements NDJSONWriter.
func (w *ndjsonWriter) WriteEvent(event datatypes.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// SetNDJSONHeaders configures response headers for the event stream.
//
// Must be called before any response body is written. X-Accel-Buffering
// disables nginx buffering so events reach the client per line.
func SetNDJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ NDJSONWriter = (*ndjsonWriter)(nil)
