// Package identity extracts the authenticated caller from the request.
// Authentication itself happens upstream; the service trusts the headers
// the auth gateway injects.
package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userIDHeader = "X-User-ID"
	roleHeader   = "X-User-Role"

	userIDKey = "identity.userID"
	roleKey   = "identity.role"

	RoleAdmin = "admin"
)

// Middleware requires a well-formed user id on every request.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(userIDHeader)
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed user id"})
			return
		}

		c.Set(userIDKey, id.String())
		c.Set(roleKey, c.GetHeader(roleHeader))
		c.Next()
	}
}

// RequireAdmin guards catalog mutations.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(roleKey) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
