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
	"encoding/json"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// defaultEventBuffer bounds the channel between pipeline and transport.
// Large enough that a draining consumer never stalls the pipeline; small
// enough that an abandoned consumer is detected within one stage.
const defaultEventBuffer = 64

// Emitter is the bounded event channel between one pipeline run and its
// transport.
//
// # Description
//
// The pipeline is the only writer, the transport the only reader, so
// ordering is exactly producer order with no reordering or buffering beyond
// the channel itself. Send blocks when the channel is full, which gives the
// transport natural backpressure; a canceled run context unblocks any
// pending send so an abandoned consumer cannot wedge the pipeline.
//
// A nil *Emitter is valid and discards everything, which is how the
// non-streaming invocation path runs the pipeline unchanged.
//
// # Thread Safety
//
// Send may be called from multiple goroutines (the fan-out stage does);
// Close must be called exactly once, after all senders are done.
type Emitter struct {
	ctx       context.Context
	ch        chan datatypes.StreamEvent
	closeOnce sync.Once
}

// NewEmitter creates an emitter bound to the run's context.
func NewEmitter(ctx context.Context) *Emitter {
	return &Emitter{
		ctx: ctx,
		ch:  make(chan datatypes.StreamEvent, defaultEventBuffer),
	}
}

// Send queues one event. Drops the event when the run is canceled or the
// emitter is nil.
func (e *Emitter) Send(ev datatypes.StreamEvent) {
	if e == nil {
		return
	}
	select {
	case e.ch <- ev:
	case <-e.ctx.Done():
	}
}

// Events returns the transport side of the channel.
func (e *Emitter) Events() <-chan datatypes.StreamEvent {
	return e.ch
}

// Close ends the stream. Safe to call on a nil emitter.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() { close(e.ch) })
}

// emit stamps the run envelope onto a payload and queues it.
func emit(em *Emitter, runID, eventType string, payload map[string]any) {
	em.Send(datatypes.StreamEvent{
		Type:    eventType,
		RunID:   runID,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Payload: payload,
	})
}

// eventPayload converts a typed result into the flat payload map an event
// carries, via a JSON round trip. Panics on unencodable values, which would
// be a programming error in the result types.
func eventPayload(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		panic("engine: unencodable event payload: " + err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic("engine: event payload is not an object: " + err.Error())
	}
	return m
}
