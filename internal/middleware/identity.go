package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/labelforge-backend/internal/logger"
)

// callerIDKey is the gin context key the identity middleware populates.
const callerIDKey = "caller_id"

// IdentityMiddleware extracts the caller identity installed by the
// external auth gateway. Authentication itself happens upstream; this
// layer only forwards the resolved user id to the services that need it
// (owner backfill, labeledBy attribution).
type IdentityMiddleware struct {
	log *logger.Logger
}

func NewIdentityMiddleware(log *logger.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{log: log.With("middleware", "IdentityMiddleware")}
}

func (m *IdentityMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-Id"); userID != "" {
			c.Set(callerIDKey, userID)
		}
		c.Next()
	}
}

// CallerID returns the authenticated user id for the request, or "" when
// the request is anonymous.
func CallerID(c *gin.Context) string {
	return c.GetString(callerIDKey)
}
