package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/infra/security"
	"github.com/arazshah/callyou/internal/usecase"
)

// RequireAuth validates the Bearer access token and loads the authenticated
// user into the request context.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "Authorization header must be a Bearer token")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			abortUnauthorized(c, "Access token is required")
			return
		}

		user, err := auth.VerifyAccessToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredToken):
				abortUnauthorized(c, "Access token has expired")
			case errors.Is(err, usecase.ErrAccountInactive):
				abortWithEnvelope(c, http.StatusForbidden, "Account is inactive")
			case errors.Is(err, security.ErrInvalidToken),
				errors.Is(err, security.ErrWrongTokenType),
				errors.Is(err, usecase.ErrUserNotFound):
				abortUnauthorized(c, "Invalid access token")
			default:
				abortWithEnvelope(c, http.StatusServiceUnavailable, "Unable to verify access token")
			}
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(CurrentUserKey, user)
		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = user.ID
		}

		c.Next()
	}
}

// RequireAdmin allows only users with the admin type. Must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !user.IsAdmin() {
			abortWithEnvelope(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user loaded by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.User)
	return user, ok
}

// AuthenticatedUserID returns the user ID set by RequireAuth.
func AuthenticatedUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}

func abortUnauthorized(c *gin.Context, message string) {
	abortWithEnvelope(c, http.StatusUnauthorized, message)
}

func abortWithEnvelope(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"message": message,
			"details": nil,
			"path":    c.Request.URL.Path,
		},
	})
}
