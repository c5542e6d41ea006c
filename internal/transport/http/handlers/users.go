package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/core/port"
	"github.com/arazshah/callyou/internal/transport/http/middleware"
	"github.com/arazshah/callyou/internal/usecase"
)

// UserHandler exposes account, profile and activity endpoints.
type UserHandler struct {
	auth  *usecase.AuthService
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(auth *usecase.AuthService, users *usecase.UserService) *UserHandler {
	return &UserHandler{auth: auth, users: users}
}

// RegisterRoutes binds user routes. All of them require authentication;
// listing is restricted to admins and the :id routes to self-or-admin.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.Use(middleware.RequireAuth(h.auth))

	r.GET("", middleware.RequireAdmin(), h.list)
	r.GET("/:id", h.get)
	r.PATCH("/:id", h.update)
	r.GET("/:id/profile", h.getProfile)
	r.PUT("/:id/profile", h.updateProfile)
	r.POST("/:id/deactivate", h.deactivate)
	r.GET("/:id/activity", h.activity)
	r.GET("/:id/stats", h.stats)
}

// targetUser resolves the :id path parameter and enforces self-or-admin
// access. It writes the error response itself when access is denied.
func targetUser(c *gin.Context) (actor *domain.User, targetID string, ok bool) {
	actor, found := middleware.CurrentUser(c)
	if !found {
		respondError(c, http.StatusUnauthorized, "Authentication required", nil)
		return nil, "", false
	}

	targetID = c.Param("id")
	if targetID != actor.ID && !actor.IsAdmin() {
		respondError(c, http.StatusForbidden, "Operation not permitted", nil)
		return nil, "", false
	}

	return actor, targetID, true
}

func (h *UserHandler) list(c *gin.Context) {
	filter := port.UserFilter{
		Search: c.Query("search"),
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}

	if raw := c.Query("user_type"); raw != "" {
		userType := domain.UserType(raw)
		filter.UserType = &userType
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.UserStatus(raw)
		filter.Status = &status
	}

	users, total, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		respondMappedError(c, err)
		return
	}

	payloads := make([]UserPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, newUserPayload(user))
	}

	respondSuccess(c, http.StatusOK, "OK", UserListResponse{
		Users:  payloads,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// get returns a user record. Non-admins can only fetch themselves.
func (h *UserHandler) get(c *gin.Context) {
	_, targetID, ok := targetUser(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), targetID)
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "OK", gin.H{
		"user": newUserPayload(user),
	})
}

// update changes account fields. Activation toggles are rejected for
// non-admins inside the service.
func (h *UserHandler) update(c *gin.Context) {
	actor, targetID, ok := targetUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), actor, targetID, usecase.UserUpdate{
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: req.IsActive,
	}, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "User updated", gin.H{
		"user": newUserPayload(user),
	})
}

func (h *UserHandler) getProfile(c *gin.Context) {
	_, targetID, ok := targetUser(c)
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), targetID)
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "OK", gin.H{
		"profile": newProfilePayload(profile),
	})
}

func (h *UserHandler) updateProfile(c *gin.Context) {
	_, targetID, ok := targetUser(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	input, err := buildProfileInput(req)
	if err != nil {
		respondBindingError(c, err)
		return
	}

	profile, err := h.users.UpdateProfile(c.Request.Context(), targetID, input, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Profile updated", gin.H{
		"profile": newProfilePayload(profile),
	})
}

func (h *UserHandler) activity(c *gin.Context) {
	_, targetID, ok := targetUser(c)
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	entries, err := h.users.Activity(c.Request.Context(), targetID, limit, offset)
	if err != nil {
		respondMappedError(c, err)
		return
	}

	payloads := make([]ActivityPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, newActivityPayload(entry))
	}

	respondSuccess(c, http.StatusOK, "OK", ActivityListResponse{
		Activity: payloads,
		Limit:    limit,
		Offset:   offset,
	})
}

func (h *UserHandler) stats(c *gin.Context) {
	_, targetID, ok := targetUser(c)
	if !ok {
		return
	}

	stats, err := h.users.Stats(c.Request.Context(), targetID)
	if err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "OK", gin.H{
		"stats": stats,
	})
}

func (h *UserHandler) deactivate(c *gin.Context) {
	actor, targetID, ok := targetUser(c)
	if !ok {
		return
	}

	if err := h.users.Deactivate(c.Request.Context(), actor, targetID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		respondMappedError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Account deactivated", nil)
}

func buildProfileInput(req UpdateProfileRequest) (usecase.UpdateProfileInput, error) {
	input := usecase.UpdateProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Country:     req.Country,
		State:       req.State,
		City:        req.City,
		Address:     req.Address,
		PostalCode:  req.PostalCode,
		Timezone:    req.Timezone,
		Language:    req.Language,
		AvatarURL:   req.AvatarURL,
		WebsiteURL:  req.WebsiteURL,

		IsProfilePublic:    req.IsProfilePublic,
		ShowEmail:          req.ShowEmail,
		ShowPhone:          req.ShowPhone,
		EmailNotifications: req.EmailNotifications,
		SMSNotifications:   req.SMSNotifications,
	}

	if req.BirthDate != nil {
		birth, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			return input, err
		}
		input.BirthDate = &birth
	}

	if req.Gender != nil {
		gender := domain.Gender(*req.Gender)
		input.Gender = &gender
	}

	return input, nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
