package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey = "user_id"
	// CurrentUserKey is the context key for the authenticated user record.
	CurrentUserKey = "current_user"
)

// RequestContext holds request-scoped information.
type RequestContext struct {
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext stores request metadata for handlers and audit logging.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqCtx := &RequestContext{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Set("request_context", reqCtx)

		c.Next()
	}
}

// GetRequestContext retrieves the full request context.
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get("request_context"); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}
