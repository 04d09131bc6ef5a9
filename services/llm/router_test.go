// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient scripts one provider's behavior for router tests.
type stubClient struct {
	text  string
	err   error
	calls int
}

func (s *stubClient) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.text, s.err
}

func TestRouterOfflineWhenNoKeys(t *testing.T) {
	r := NewRouter(Config{AllowOffline: true})

	text, provider, err := r.Complete(context.Background(), "", `{"engine_disagreements": []}`, "q")
	require.NoError(t, err)
	assert.Equal(t, ProviderOffline, provider)
	assert.NotEmpty(t, text)
}

func TestRouterErrorsWhenOfflineDisabled(t *testing.T) {
	r := NewRouter(Config{AllowOffline: false})

	_, _, err := r.Complete(context.Background(), "", "sys", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider credentials")
}

func TestRouterUsesPreferredProvider(t *testing.T) {
	openai := &stubClient{text: "from openai"}
	anthropic := &stubClient{text: "from anthropic"}
	r := &Router{
		cfg:       Config{OpenAIKey: "k1", AnthropicKey: "k2"},
		openai:    openai,
		anthropic: anthropic,
		offline:   NewOfflineClient(),
	}

	text, provider, err := r.Complete(context.Background(), ProviderAnthropic, "sys", "q")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, provider)
	assert.Equal(t, "from anthropic", text)
	assert.Zero(t, openai.calls)
}

func TestRouterFallsBackOnProviderError(t *testing.T) {
	openai := &stubClient{err: errors.New("rate limited")}
	anthropic := &stubClient{text: "from anthropic"}
	r := &Router{
		cfg:       Config{OpenAIKey: "k1", AnthropicKey: "k2"},
		openai:    openai,
		anthropic: anthropic,
		offline:   NewOfflineClient(),
	}

	text, provider, err := r.Complete(context.Background(), ProviderOpenAI, "sys", "q")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, provider)
	assert.Equal(t, "from anthropic", text)
	assert.Equal(t, 1, openai.calls)
}

func TestRouterOfflineIsLastResort(t *testing.T) {
	openai := &stubClient{err: errors.New("unreachable")}
	r := &Router{
		cfg:     Config{OpenAIKey: "k1"},
		openai:  openai,
		offline: NewOfflineClient(),
	}

	text, provider, err := r.Complete(context.Background(), ProviderOpenAI, `{"engine_disagreements": []}`, "q")
	require.NoError(t, err)
	assert.Equal(t, ProviderOffline, provider)
	assert.NotEmpty(t, text)
}

func TestRouterPropagatesCancellation(t *testing.T) {
	openai := &stubClient{err: context.Canceled}
	r := &Router{
		cfg:       Config{OpenAIKey: "k1", AnthropicKey: "k2"},
		openai:    openai,
		anthropic: &stubClient{text: "never"},
		offline:   NewOfflineClient(),
	}

	_, _, err := r.Complete(context.Background(), ProviderOpenAI, "sys", "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouterPickProvider(t *testing.T) {
	tests := []struct {
		name       string
		preference string
		defaultP   string
		want       string
	}{
		{"explicit preference wins", ProviderAnthropic, ProviderOpenAI, ProviderAnthropic},
		{"config default applies", "", ProviderAnthropic, ProviderAnthropic},
		{"unknown preference ignored", "bedrock", ProviderAnthropic, ProviderAnthropic},
		{"bare fallback is openai", "", "", ProviderOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Router{cfg: Config{DefaultProvider: tt.defaultP}}
			assert.Equal(t, tt.want, r.pickProvider(tt.preference))
		})
	}
}
