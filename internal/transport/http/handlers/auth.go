package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/infra/telemetry"
	"github.com/arazshah/callyou/internal/transport/http/middleware"
	"github.com/arazshah/callyou/internal/usecase"
)

// AuthHandler exposes registration, login, token and password endpoints.
type AuthHandler struct {
	auth      *usecase.AuthService
	users     *usecase.UserService
	telemetry *telemetry.Provider
}

// NewAuthHandler constructs AuthHandler. The telemetry provider may be nil.
func NewAuthHandler(auth *usecase.AuthService, users *usecase.UserService, tel *telemetry.Provider) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, telemetry: tel}
}

// RegisterRoutes binds authentication routes. The authRate middleware guards
// the anonymous endpoints that can be abused for enumeration or brute force.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authRate gin.HandlerFunc) {
	guard := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if authRate == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{authRate, handler}
	}

	r.POST("/register", guard(h.register)...)
	r.POST("/login", guard(h.login)...)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
	r.POST("/verify-email", h.verifyEmail)
	r.POST("/resend-verification", guard(h.resendVerification)...)
	r.POST("/forgot-password", guard(h.forgotPassword)...)
	r.POST("/reset-password", h.resetPassword)
	r.POST("/change-password", middleware.RequireAuth(h.auth), h.changePassword)
	r.GET("/me", middleware.RequireAuth(h.auth), h.me)
	r.GET("/profile", middleware.RequireAuth(h.auth), h.profile)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	userType := domain.UserTypeClient
	if req.UserType != "" {
		userType = domain.UserType(req.UserType)
	}

	user, _, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Email:     strings.TrimSpace(req.Email),
		Phone:     req.Phone,
		Password:  req.Password,
		UserType:  userType,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Registration successful. Check your email to verify the account.", gin.H{
		"user":                  newUserPayload(user),
		"verification_required": !user.IsEmailVerified,
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, pair, err := h.auth.Authenticate(c.Request.Context(), usecase.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.telemetry.RecordLoginAttempt("failure")
		respondMappedError(c, err)
		return
	}

	h.telemetry.RecordLoginAttempt("success")
	respondSuccess(c, http.StatusOK, "Login successful", LoginResponse{
		Tokens: newTokenPayload(pair),
		User:   newUserPayload(user),
	})
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Token refreshed", newTokenPayload(pair))
}

// logout records the sign-out. Access tokens are stateless and expire on
// their own; clients discard the pair locally.
func (h *AuthHandler) logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), user, c.ClientIP(), c.Request.UserAgent()); err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) verifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), req.Token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Email verified", gin.H{
		"user": newUserPayload(user),
	})
}

func (h *AuthHandler) resendVerification(c *gin.Context) {
	var req ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.auth.ResendVerification(c.Request.Context(), req.Email, c.ClientIP(), c.Request.UserAgent()); err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Verification email sent", nil)
}

func (h *AuthHandler) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email, c.ClientIP(), c.Request.UserAgent()); err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "If the email is registered, a password reset message has been sent.", nil)
}

func (h *AuthHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword, c.ClientIP(), c.Request.UserAgent()); err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Password has been reset. You can now log in.", nil)
}

func (h *AuthHandler) changePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Password changed", nil)
}

func (h *AuthHandler) me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	respondSuccess(c, http.StatusOK, "OK", gin.H{
		"user": newUserPayload(user),
	})
}

func (h *AuthHandler) profile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "OK", gin.H{
		"profile": newProfilePayload(profile),
	})
}
