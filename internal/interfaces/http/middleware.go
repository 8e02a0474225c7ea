package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jetprint/print-workflow/internal/auth"
	"github.com/jetprint/print-workflow/internal/domain/entity"
)

// Context keys set by the auth middleware
const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// AuthRequired validates the Bearer token and stores the acting user's
// identity on the request context
func AuthRequired(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// AdminRequired rejects requests from non-administrator users. It must
// run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != entity.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// actingUserID returns the authenticated user id from the context
func actingUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
