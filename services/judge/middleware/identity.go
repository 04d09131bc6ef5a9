// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides Gin middleware for the judge service.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by Identity.
const (
	ContextKeyRequestID = "request_id"
	ContextKeyUserID    = "user_id"
)

// AnonymousUser is the user id when no identity was supplied.
const AnonymousUser = "anon"

// Identity assigns a request id and resolves the caller identity.
//
// # Description
//
// Every request gets a fresh UUID request id, echoed back in the
// X-Request-Id response header for correlation. The user id comes from the
// debug_user_id query parameter when present; this service has no real
// authentication and the debug identity exists for local attribution of
// persisted runs.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set(ContextKeyRequestID, requestID)
		c.Header("X-Request-Id", requestID)

		userID := c.Query("debug_user_id")
		if userID == "" {
			userID = AnonymousUser
		}
		c.Set(ContextKeyUserID, userID)

		c.Next()
	}
}

// RequestID returns the request id assigned by Identity, or "" outside it.
func RequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// UserID returns the resolved user id, or AnonymousUser outside Identity.
func UserID(c *gin.Context) string {
	if id := c.GetString(ContextKeyUserID); id != "" {
		return id
	}
	return AnonymousUser
}
