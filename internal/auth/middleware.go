package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ginSessionKey = "auth.session"

// Middleware resolves the bearer token into a Session and attaches it to the
// request context. Browsers cannot set headers on websocket upgrades, so a
// token query parameter is accepted as well.
func Middleware(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		session, err := svc.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(ginSessionKey, session)
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// RequireRole rejects sessions whose role is not in roles.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if session.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	}
}

// CurrentSession returns the session resolved by Middleware.
func CurrentSession(c *gin.Context) (*Session, bool) {
	if v, ok := c.Get(ginSessionKey); ok {
		if s, ok := v.(*Session); ok {
			return s, true
		}
	}
	return SessionFromContext(c.Request.Context())
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
