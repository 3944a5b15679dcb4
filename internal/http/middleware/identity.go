package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the caller's chat identity. The bot transport sets it
// on every request; the admin routes compare it against the configured
// administrator.
const HeaderUserID = "X-User-ID"

const (
	ctxKeyUserID = "userID"

	// AnonymousUser is the identity of requests without a usable X-User-ID.
	AnonymousUser = "anonymous"

	maxUserIDLen = 64
)

// Identity copies a well-formed X-User-ID header into the Gin context, where
// the logger, the rate limiter and the idempotency lookup read it. Oversized
// values are ignored rather than rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(HeaderUserID)); id != "" && len(id) <= maxUserIDLen {
			c.Set(ctxKeyUserID, id)
		}
		c.Next()
	}
}

// UserID returns the caller identity, or AnonymousUser.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return AnonymousUser
}
