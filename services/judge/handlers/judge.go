// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides HTTP handlers for the judge service.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
	"github.com/AleutianAI/AleutianVerdict/services/judge/engine"
	"github.com/AleutianAI/AleutianVerdict/services/judge/middleware"
)

// HandleJudge handles POST /v1/judge: one judgment run per request.
//
// # Description
//
// Validates the request before any pipeline work; a bad prompt is a plain
// 400, never a partial stream. With stream=true (the default) the response
// is an NDJSON event stream in pipeline order, ending when the run's
// persisted event has been written. With stream=false the handler runs the
// pipeline without an emitter and returns the terminal RunResult as a
// single JSON body.
//
// Client disconnects cancel the run through the request context; a
// canceled run ends silently with whatever events were already written.
//
// # Inputs
//
//   - pipeline: The shared judgment pipeline. Must not be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: Handler for the judge route.
func HandleJudge(pipeline *engine.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.JudgeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		params := engine.RunParams{
			Prompt:    req.Prompt,
			Mode:      req.Mode,
			Debate:    req.Debate,
			UserID:    middleware.UserID(c),
			RequestID: middleware.RequestID(c),
		}
		if req.ProviderPreference != nil {
			params.ProviderPreference = *req.ProviderPreference
		}

		if !req.WantStream() {
			result := pipeline.Run(c.Request.Context(), params, nil)
			if result == nil {
				// Canceled: the client is gone, nothing to answer.
				return
			}
			c.JSON(http.StatusOK, result)
			return
		}

		SetNDJSONHeaders(c.Writer)
		writer, err := NewNDJSONWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}
		c.Status(http.StatusOK)

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		em := engine.NewEmitter(ctx)
		go func() {
			defer em.Close()
			pipeline.Run(ctx, params, em)
		}()

		for ev := range em.Events() {
			if err := writer.WriteEvent(ev); err != nil {
				slog.Debug("Stream consumer gone, canceling run",
					"request_id", params.RequestID, "error", err)
				cancel()
				// Drain so the producer goroutine can finish and close.
				for range em.Events() {
				}
				return
			}
		}
	}
}
