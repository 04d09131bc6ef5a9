// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the reasoning adapters for the judge service.
//
// A Client turns a (system, user) instruction pair into raw model text.
// The Router composes the concrete clients with provider selection and an
// offline fallback so the pipeline keeps running without credentials or
// through provider outages.
package llm

import "context"

// Client is the contract every reasoning backend implements.
//
// Implementations must propagate context cancellation and surface provider
// failures as errors the caller can fall back from.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config is the explicit provider configuration injected at bootstrap.
// No component reads environment state after construction.
type Config struct {
	// DefaultProvider is "openai" or "anthropic". Empty defaults to openai.
	DefaultProvider string

	OpenAIKey   string
	OpenAIModel string

	AnthropicKey   string
	AnthropicModel string

	// AllowOffline substitutes the deterministic offline generator when no
	// provider credentials are configured. Default true in the service; the
	// pipeline is not testable without it.
	AllowOffline bool
}

// HasKeys reports whether any live provider credential is configured.
func (c Config) HasKeys() bool {
	return c.OpenAIKey != "" || c.AnthropicKey != ""
}
