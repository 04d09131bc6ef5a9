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

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxPromptBytes is the maximum size of a judgment prompt.
	// Byte length, not rune count, to bound memory on hostile input.
	MaxPromptBytes = 32 * 1024 // 32KB

	// Judgment modes.
	ModeBase = "base"
	ModeDeep = "deep"

	// Debate selections.
	DebateArena = "arena"
	DebateAll   = "all"
	DebateNone  = "none"

	// Provider preferences.
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOffline   = "offline"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// judgeValidate is the validator instance for judge datatypes.
// Initialized in init() with custom validators.
var judgeValidate *validator.Validate

func init() {
	judgeValidate = validator.New()
	_ = judgeValidate.RegisterValidation("maxbytes", validatePromptBytes)
}

// validatePromptBytes enforces MaxPromptBytes on string fields.
func validatePromptBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxPromptBytes
}

// =============================================================================
// Judge Request
// =============================================================================

// JudgeRequest is the body of POST /v1/judge.
//
// # Fields
//
//   - Prompt: Required. The free-text decision question. Max 32KB.
//   - Mode: Optional. "base" (default) or "deep" for the second-pass
//     scenario analysis.
//   - Debate: Optional. "arena" (default), "all" for the full round-robin
//     tournament plus final match, or "none".
//   - ProviderPreference: Optional. "openai" or "anthropic". Nil defers to
//     the service's configured default with offline fallback.
//   - Stream: Optional. Defaults to true (NDJSON event stream). Set false
//     for a single JSON RunResult body.
//
// # Validation
//
// A missing or non-string prompt is a client error reported before any
// pipeline stage runs.
type JudgeRequest struct {
	Prompt             string  `json:"prompt" validate:"required,maxbytes"`
	Mode               string  `json:"mode" validate:"omitempty,oneof=base deep"`
	Debate             string  `json:"debate" validate:"omitempty,oneof=arena all none"`
	ProviderPreference *string `json:"provider_preference" validate:"omitempty,oneof=openai anthropic"`
	Stream             *bool   `json:"stream"`
}

// Validate checks the request and applies defaults in place.
func (r *JudgeRequest) Validate() error {
	if err := judgeValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid judge request: %w", err)
	}
	if r.Mode == "" {
		r.Mode = ModeBase
	}
	if r.Debate == "" {
		r.Debate = DebateArena
	}
	return nil
}

// WantStream reports whether the caller asked for the event stream.
// Streaming is the default.
func (r *JudgeRequest) WantStream() bool {
	return r.Stream == nil || *r.Stream
}
