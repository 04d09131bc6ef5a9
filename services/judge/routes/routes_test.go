// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianVerdict/services/judge/engine"
	"github.com/AleutianAI/AleutianVerdict/services/llm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter() *gin.Engine {
	router := gin.New()
	pipeline := engine.NewPipeline(llm.NewRouter(llm.Config{AllowOffline: true}), nil)
	SetupRoutes(router, pipeline)
	return router
}

func TestRouteRegistration(t *testing.T) {
	router := setupTestRouter()

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"health endpoint", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics endpoint", http.MethodGet, "/metrics", "", http.StatusOK},
		{"judge rejects empty body", http.MethodPost, "/v1/judge", "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/v1/nope", "", http.StatusNotFound},
		{"judge wrong method", http.MethodGet, "/v1/judge", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, err := http.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			if tt.body != "" || tt.method == http.MethodPost {
				req.Header.Set("Content-Type", "application/json")
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	router := setupTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}
