package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Grekus14/MeChat/internal/log"
	"github.com/Grekus14/MeChat/internal/response"
	"github.com/Grekus14/MeChat/internal/token"
)

// Gin context keys set by RequireAuth.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextEmail    = "email"
)

// RequireAuth validates the Bearer access token and stores the caller's
// identity on the gin context.
func RequireAuth(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			log.Ctx(c.Request.Context()).Debug().Err(err).Msg("token rejected")
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if claims.Type != "access" {
			response.Unauthorized(c, "access token required")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// GetUserID returns the authenticated user id from the gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// GetUsername returns the authenticated username from the gin context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
