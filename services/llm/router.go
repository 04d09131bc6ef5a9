// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Provider tags reported alongside every completion.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOffline   = "offline"
)

// Router selects a provider per call and absorbs provider failures.
//
// # Description
//
// Selection order: the per-request preference, then the configured default,
// then openai. When the chosen provider is unavailable the router walks
// openai→anthropic→offline. A provider error (unreachable, unauthorized,
// rate-limited) falls back to the offline generator so the pipeline never
// dies on adapter failure; only context cancellation propagates.
//
// # Thread Safety
//
// Safe for concurrent use; the router holds no per-call state.
type Router struct {
	cfg       Config
	openai    Client
	anthropic Client
	offline   Client
}

// NewRouter wires the configured providers. Construction never fails: a
// provider without credentials is simply absent from the fallback walk.
func NewRouter(cfg Config) *Router {
	r := &Router{cfg: cfg, offline: NewOfflineClient()}

	if cfg.OpenAIKey != "" {
		client, err := NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel)
		if err == nil {
			r.openai = client
		} else {
			slog.Warn("OpenAI client unavailable", "error", err)
		}
	}
	if cfg.AnthropicKey != "" {
		client, err := NewAnthropicClient(cfg.AnthropicKey, cfg.AnthropicModel)
		if err == nil {
			r.anthropic = client
		} else {
			slog.Warn("Anthropic client unavailable", "error", err)
		}
	}
	return r
}

// pickProvider resolves the effective provider tag for one call.
func (r *Router) pickProvider(preference string) string {
	if preference == ProviderOpenAI || preference == ProviderAnthropic {
		return preference
	}
	if r.cfg.DefaultProvider == ProviderOpenAI || r.cfg.DefaultProvider == ProviderAnthropic {
		return r.cfg.DefaultProvider
	}
	return ProviderOpenAI
}

// Complete resolves a provider, runs the completion and returns the raw
// text plus the tag of the provider that actually answered.
//
// The error return is non-nil only for context cancellation or when
// offline substitution is disabled and no provider could answer.
func (r *Router) Complete(ctx context.Context, preference, system, user string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	if !r.cfg.HasKeys() {
		if r.cfg.AllowOffline {
			text, err := r.offline.Complete(ctx, system, user)
			return text, ProviderOffline, err
		}
		return "", "", fmt.Errorf("no provider credentials configured and offline substitution disabled")
	}

	for _, tag := range r.fallbackOrder(r.pickProvider(preference)) {
		client := r.clientFor(tag)
		if client == nil {
			continue
		}
		text, err := client.Complete(ctx, system, user)
		if err == nil {
			return text, tag, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", "", err
		}
		slog.Warn("Provider call failed, falling back", "provider", tag, "error", err)
	}

	// Last resort: the pipeline must not die on adapter failure.
	text, err := r.offline.Complete(ctx, system, user)
	return text, ProviderOffline, err
}

// fallbackOrder puts the preferred provider first, the other live provider
// second. The offline generator is appended by the caller as last resort.
func (r *Router) fallbackOrder(preferred string) []string {
	if preferred == ProviderAnthropic {
		return []string{ProviderAnthropic, ProviderOpenAI}
	}
	return []string{ProviderOpenAI, ProviderAnthropic}
}

func (r *Router) clientFor(tag string) Client {
	switch tag {
	case ProviderOpenAI:
		return r.openai
	case ProviderAnthropic:
		return r.anthropic
	default:
		return nil
	}
}
