package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arazshah/callyou/internal/core/domain"
)

// SuccessEnvelope is the uniform payload for successful responses.
type SuccessEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ErrorEnvelope is the uniform payload for failed responses.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ErrorBody carries the error message, optional field details and request path.
type ErrorBody struct {
	Message string      `json:"message"`
	Details interface{} `json:"details"`
	Path    string      `json:"path"`
}

func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessEnvelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondError(c *gin.Context, status int, message string, details interface{}) {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}

	c.JSON(status, ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Message: message,
			Details: details,
			Path:    path,
		},
	})
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Phone     *string `json:"phone" binding:"omitempty"`
	Password  string  `json:"password" binding:"required"`
	UserType  string  `json:"user_type" binding:"omitempty,oneof=client consultant"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// LoginRequest defines the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token to exchange for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// VerifyEmailRequest carries the email verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendVerificationRequest asks for a fresh verification email.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPasswordRequest initiates a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePasswordRequest changes the password of the authenticated user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// UpdateUserRequest updates account fields; absent fields stay unchanged.
type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

// UpdateProfileRequest updates profile fields; absent fields stay unchanged.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	BirthDate   *string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Gender      *string `json:"gender" binding:"omitempty,oneof=male female other"`
	Country     *string `json:"country"`
	State       *string `json:"state"`
	City        *string `json:"city"`
	Address     *string `json:"address"`
	PostalCode  *string `json:"postal_code"`
	Timezone    *string `json:"timezone"`
	Language    *string `json:"language"`
	AvatarURL   *string `json:"avatar_url"`
	WebsiteURL  *string `json:"website_url"`

	IsProfilePublic    *bool `json:"is_profile_public"`
	ShowEmail          *bool `json:"show_email"`
	ShowPhone          *bool `json:"show_phone"`
	EmailNotifications *bool `json:"email_notifications"`
	SMSNotifications   *bool `json:"sms_notifications"`
}

// UserPayload is the API view of a user account.
type UserPayload struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Phone           *string    `json:"phone,omitempty"`
	UserType        string     `json:"user_type"`
	Status          string     `json:"status"`
	IsActive        bool       `json:"is_active"`
	IsVerified      bool       `json:"is_verified"`
	IsEmailVerified bool       `json:"is_email_verified"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	LoginCount      int        `json:"login_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ProfilePayload is the API view of a user profile.
type ProfilePayload struct {
	UserID      string         `json:"user_id"`
	FirstName   *string        `json:"first_name,omitempty"`
	LastName    *string        `json:"last_name,omitempty"`
	FullName    string         `json:"full_name"`
	DisplayName *string        `json:"display_name,omitempty"`
	Bio         *string        `json:"bio,omitempty"`
	BirthDate   *string        `json:"birth_date,omitempty"`
	Gender      *domain.Gender `json:"gender,omitempty"`
	Country     *string        `json:"country,omitempty"`
	State       *string        `json:"state,omitempty"`
	City        *string        `json:"city,omitempty"`
	Address     *string        `json:"address,omitempty"`
	PostalCode  *string        `json:"postal_code,omitempty"`
	Timezone    *string        `json:"timezone,omitempty"`
	Language    *string        `json:"language,omitempty"`
	AvatarURL   *string        `json:"avatar_url,omitempty"`
	WebsiteURL  *string        `json:"website_url,omitempty"`

	IsProfilePublic    bool `json:"is_profile_public"`
	ShowEmail          bool `json:"show_email"`
	ShowPhone          bool `json:"show_phone"`
	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
}

// TokenPayload carries an issued token pair.
type TokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse bundles the token pair with the authenticated user.
type LoginResponse struct {
	Tokens TokenPayload `json:"tokens"`
	User   UserPayload  `json:"user"`
}

// ActivityPayload is the API view of one activity log entry.
type ActivityPayload struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	ResourceType *string   `json:"resource_type,omitempty"`
	ResourceID   *string   `json:"resource_id,omitempty"`
	IPAddress    *string   `json:"ip_address,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserListResponse wraps a paginated user listing.
type UserListResponse struct {
	Users  []UserPayload `json:"users"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ActivityListResponse wraps a paginated activity listing.
type ActivityListResponse struct {
	Activity []ActivityPayload `json:"activity"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

func newUserPayload(user *domain.User) UserPayload {
	return UserPayload{
		ID:              user.ID,
		Email:           user.Email,
		Phone:           user.Phone,
		UserType:        string(user.UserType),
		Status:          string(user.Status),
		IsActive:        user.IsActive,
		IsVerified:      user.IsVerified,
		IsEmailVerified: user.IsEmailVerified,
		IsPhoneVerified: user.IsPhoneVerified,
		LastLogin:       user.LastLogin,
		LoginCount:      user.LoginCount,
		CreatedAt:       user.CreatedAt,
	}
}

func newProfilePayload(profile *domain.UserProfile) ProfilePayload {
	payload := ProfilePayload{
		UserID:             profile.UserID,
		FirstName:          profile.FirstName,
		LastName:           profile.LastName,
		FullName:           profile.FullName(),
		DisplayName:        profile.DisplayName,
		Bio:                profile.Bio,
		Gender:             profile.Gender,
		Country:            profile.Country,
		State:              profile.State,
		City:               profile.City,
		Address:            profile.Address,
		PostalCode:         profile.PostalCode,
		Timezone:           profile.Timezone,
		Language:           profile.Language,
		AvatarURL:          profile.AvatarURL,
		WebsiteURL:         profile.WebsiteURL,
		IsProfilePublic:    profile.IsProfilePublic,
		ShowEmail:          profile.ShowEmail,
		ShowPhone:          profile.ShowPhone,
		EmailNotifications: profile.EmailNotifications,
		SMSNotifications:   profile.SMSNotifications,
	}

	if profile.BirthDate != nil {
		birth := profile.BirthDate.Format("2006-01-02")
		payload.BirthDate = &birth
	}

	return payload
}

func newTokenPayload(pair *domain.TokenPair) TokenPayload {
	return TokenPayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}
}

func newActivityPayload(entry *domain.ActivityLog) ActivityPayload {
	return ActivityPayload{
		ID:           entry.ID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		CreatedAt:    entry.CreatedAt,
	}
}
