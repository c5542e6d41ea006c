package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arazshah/callyou/internal/infra/security"
	"github.com/arazshah/callyou/internal/repository"
	"github.com/arazshah/callyou/internal/usecase"
)

// respondMappedError translates service-layer errors into the uniform error
// envelope. Unknown errors fall back to a 500 without leaking internals.
func respondMappedError(c *gin.Context, err error) {
	var policyErr *security.PasswordValidationError
	if errors.As(err, &policyErr) {
		respondError(c, http.StatusUnprocessableEntity, "Password does not meet requirements", gin.H{
			"code":   policyErr.Code,
			"reason": policyErr.Message,
		})
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, usecase.ErrWrongPassword):
		respondError(c, http.StatusUnauthorized, "Current password is incorrect", nil)
	case errors.Is(err, usecase.ErrInvalidRefreshToken):
		respondError(c, http.StatusUnauthorized, "Invalid refresh token", nil)
	case errors.Is(err, usecase.ErrExpiredRefreshToken):
		respondError(c, http.StatusUnauthorized, "Refresh token has expired", nil)
	case errors.Is(err, security.ErrExpiredToken):
		respondError(c, http.StatusUnauthorized, "Token has expired", nil)
	case errors.Is(err, security.ErrInvalidToken), errors.Is(err, security.ErrWrongTokenType):
		respondError(c, http.StatusUnauthorized, "Invalid token", nil)
	case errors.Is(err, usecase.ErrAccountInactive):
		respondError(c, http.StatusForbidden, "Account is inactive", nil)
	case errors.Is(err, usecase.ErrForbidden):
		respondError(c, http.StatusForbidden, "Operation not permitted", nil)
	case errors.Is(err, usecase.ErrUserNotFound), errors.Is(err, repository.ErrNotFound):
		respondError(c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, usecase.ErrEmailTaken):
		respondError(c, http.StatusConflict, "Email is already registered", nil)
	case errors.Is(err, usecase.ErrPhoneTaken):
		respondError(c, http.StatusConflict, "Phone number is already registered", nil)
	case errors.Is(err, repository.ErrDuplicate):
		respondError(c, http.StatusConflict, "Record already exists", nil)
	case errors.Is(err, usecase.ErrInvalidVerificationToken):
		respondError(c, http.StatusNotFound, "Verification token not found", nil)
	case errors.Is(err, usecase.ErrInvalidResetToken):
		respondError(c, http.StatusNotFound, "Password reset token not found", nil)
	case errors.Is(err, usecase.ErrAlreadyVerified):
		respondError(c, http.StatusUnprocessableEntity, "Email is already verified", nil)
	case errors.Is(err, usecase.ErrExpiredVerificationToken):
		respondError(c, http.StatusUnprocessableEntity, "Verification token has expired", nil)
	case errors.Is(err, usecase.ErrExpiredResetToken):
		respondError(c, http.StatusUnprocessableEntity, "Password reset token has expired", nil)
	default:
		respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// respondBindingError reports a malformed or invalid request body.
func respondBindingError(c *gin.Context, err error) {
	details := gin.H{}
	if err != nil {
		details["reason"] = err.Error()
	}
	respondError(c, http.StatusUnprocessableEntity, "Invalid request payload", details)
}
