package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"childhood-friend/internal/pkg/jwtutil"
	"childhood-friend/internal/transport/http/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextNameKey   = "name"
)

func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.NG(c, 401, "missing authorization header")
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.NG(c, 401, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextNameKey, claims.Name)
		c.Next()
	}
}

// OptionalJWT records the caller when a valid bearer token is present and
// lets every request through.
func OptionalJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := jwtutil.ParseToken(secret, token); err == nil {
				c.Set(ContextUserIDKey, claims.UserID)
				c.Set(ContextNameKey, claims.Name)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user set by AuthJWT or OptionalJWT.
func UserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	return token, token != ""
}
