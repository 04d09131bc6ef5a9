// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func identityRouter() (*gin.Engine, *struct{ requestID, userID string }) {
	got := &struct{ requestID, userID string }{}
	router := gin.New()
	router.Use(Identity())
	router.GET("/probe", func(c *gin.Context) {
		got.requestID = RequestID(c)
		got.userID = UserID(c)
		c.Status(http.StatusOK)
	})
	return router, got
}

func TestIdentityAssignsRequestID(t *testing.T) {
	router, got := identityRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/probe", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	header := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, header)
	_, err := uuid.Parse(header)
	assert.NoError(t, err)
	assert.Equal(t, header, got.requestID)
	assert.Equal(t, AnonymousUser, got.userID)
}

func TestIdentityResolvesDebugUser(t *testing.T) {
	router, got := identityRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/probe?debug_user_id=alice", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", got.userID)
}

func TestAccessorsOutsideIdentity(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", RequestID(c))
	assert.Equal(t, AnonymousUser, UserID(c))
}
