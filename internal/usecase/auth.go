package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/core/port"
	"github.com/arazshah/callyou/internal/infra/logger"
	"github.com/arazshah/callyou/internal/infra/security"
	"github.com/arazshah/callyou/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for every login failure so responses
	// cannot be used to probe which accounts exist or are locked.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPhoneTaken indicates the phone number is already registered.
	ErrPhoneTaken = errors.New("phone number already registered")
	// ErrInvalidRefreshToken indicates the refresh token is malformed or not a refresh token.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the refresh token has expired.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrInvalidVerificationToken indicates an unknown or consumed verification token.
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	// ErrExpiredVerificationToken indicates the verification token is past its lifetime.
	ErrExpiredVerificationToken = errors.New("verification token expired")
	// ErrAlreadyVerified indicates the email address was verified earlier.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrInvalidResetToken indicates an unknown or consumed password reset token.
	ErrInvalidResetToken = errors.New("invalid reset token")
	// ErrExpiredResetToken indicates the reset token is past its lifetime.
	ErrExpiredResetToken = errors.New("reset token expired")
	// ErrWrongPassword indicates the current password check failed on password change.
	ErrWrongPassword = errors.New("current password is incorrect")
	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountInactive indicates the account cannot perform the operation.
	ErrAccountInactive = errors.New("account is not active")
)

// Internal failure reasons recorded on login activity entries. They never
// reach the client.
const (
	loginFailureUserNotFound    = "user_not_found"
	loginFailureAccountLocked   = "account_locked"
	loginFailureAccountInactive = "account_inactive"
	loginFailureWrongPassword   = "wrong_password"
)

// AuthConfig bounds token and verification lifetimes for the service.
type AuthConfig struct {
	EmailTokenTTL time.Duration
	ResetTokenTTL time.Duration
}

// AuthService coordinates registration, login, token, and credential flows.
type AuthService struct {
	cfg       AuthConfig
	users     port.UserRepository
	profiles  port.ProfileRepository
	activity  port.ActivityRepository
	tx        port.TxManager
	tokens    *security.TokenIssuer
	passwords *security.PasswordValidator
	notifier  port.NotificationSender
	events    port.EventPublisher
	log       *zap.Logger

	now func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg AuthConfig,
	users port.UserRepository,
	profiles port.ProfileRepository,
	activity port.ActivityRepository,
	tx port.TxManager,
	tokens *security.TokenIssuer,
	passwords *security.PasswordValidator,
	notifier port.NotificationSender,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if cfg.EmailTokenTTL <= 0 {
		cfg.EmailTokenTTL = 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if passwords == nil {
		passwords = security.DefaultPasswordValidator()
	}

	return &AuthService{
		cfg:       cfg,
		users:     users,
		profiles:  profiles,
		activity:  activity,
		tx:        tx,
		tokens:    tokens,
		passwords: passwords,
		notifier:  notifier,
		events:    events,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service's notion of "now". Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Phone     *string
	Password  string
	UserType  domain.UserType
	FirstName *string
	LastName  *string
	IPAddress string
	UserAgent string
}

// Register creates an account, its empty profile, and the audit entry in one
// transaction, then hands the verification token off for delivery. The raw
// token is also returned to the caller; actual email delivery is a collaborator
// concern.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}
	if input.UserType == "" {
		input.UserType = domain.UserTypeClient
	}

	if err := s.passwords.Validate(input.Password); err != nil {
		return nil, "", err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("lookup email: %w", err)
	}

	if input.Phone != nil && *input.Phone != "" {
		if _, err := s.users.GetByPhone(ctx, *input.Phone); err == nil {
			return nil, "", ErrPhoneTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, "", fmt.Errorf("lookup phone: %w", err)
		}
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	verifyToken, err := security.GenerateVerificationToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:                      uuid.NewString(),
		Email:                   email,
		Phone:                   input.Phone,
		PasswordHash:            hash,
		UserType:                input.UserType,
		Status:                  domain.UserStatusActive,
		IsActive:                true,
		EmailVerificationToken:  &verifyToken,
		EmailVerificationSentAt: &now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	profile := &domain.UserProfile{
		ID:                 uuid.NewString(),
		UserID:             user.ID,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		IsProfilePublic:    true,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return s.recordActivity(ctx, &user.ID, "register", input.IPAddress, input.UserAgent, true, nil, nil)
	})
	if err != nil {
		return nil, "", err
	}

	s.notifier.SendEmailVerification(ctx, user.Email, verifyToken)
	s.publish(ctx, domain.EventUserRegistered, user)

	s.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("user_type", string(user.UserType)),
	)

	return user, verifyToken, nil
}

// LoginInput carries the credentials and request metadata for Authenticate.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// Authenticate validates credentials and issues a token pair. Every failure
// path records an audit entry with the internal reason and returns the same
// generic error. Failed-attempt increments commit even though login fails,
// and a correct password on a locked account still fails.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordLoginFailure(ctx, nil, input, loginFailureUserNotFound)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsLocked() {
		s.recordLoginFailure(ctx, &user.ID, input, loginFailureAccountLocked)
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive || user.Status != domain.UserStatusActive {
		s.recordLoginFailure(ctx, &user.ID, input, loginFailureAccountInactive)
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		now := s.now()
		user.FailedLoginAttempts++
		user.LastFailedLogin = &now
		user.UpdatedAt = now

		txErr := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.users.Update(ctx, user); err != nil {
				return fmt.Errorf("record failed attempt: %w", err)
			}
			return s.recordLoginFailureTx(ctx, &user.ID, input, loginFailureWrongPassword)
		})
		if txErr != nil {
			s.log.Error("persist failed login attempt", zap.Error(txErr))
		}

		return nil, nil, ErrInvalidCredentials
	}

	now := s.now()
	user.FailedLoginAttempts = 0
	user.LastFailedLogin = nil
	user.LastLogin = &now
	user.LoginCount++
	user.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("record login: %w", err)
		}
		return s.recordActivity(ctx, &user.ID, "login", input.IPAddress, input.UserAgent, true, nil, nil)
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, domain.EventUserLoggedIn, user)

	return user, pair, nil
}

// Refresh validates a refresh token and issues a fresh token pair. The
// presented token is not invalidated: verification is stateless, so it stays
// usable until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrExpiredToken):
			return nil, ErrExpiredRefreshToken
		default:
			return nil, ErrInvalidRefreshToken
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.CanLogin() {
		return nil, ErrInvalidRefreshToken
	}

	return s.issueTokenPair(user)
}

// Logout records the sign-out in the activity log. Tokens stay valid until
// they expire since verification is stateless.
func (s *AuthService) Logout(ctx context.Context, user *domain.User, ipAddress, userAgent string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.recordActivity(ctx, &user.ID, "logout", ipAddress, userAgent, true, nil, nil)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, domain.EventUserLoggedOut, user)
	return nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token, ipAddress, userAgent string) (*domain.User, error) {
	if token == "" {
		return nil, ErrInvalidVerificationToken
	}

	user, err := s.users.GetByEmailVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidVerificationToken
		}
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}

	if user.EmailVerificationSentAt == nil || s.now().Sub(*user.EmailVerificationSentAt) > s.cfg.EmailTokenTTL {
		return nil, ErrExpiredVerificationToken
	}

	now := s.now()
	user.IsEmailVerified = true
	user.IsVerified = true
	user.EmailVerificationToken = nil
	user.EmailVerificationSentAt = nil
	user.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("mark email verified: %w", err)
		}
		return s.recordActivity(ctx, &user.ID, "verify_email", ipAddress, userAgent, true, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEmailVerified, user)

	return user, nil
}

// ResendVerification issues a new verification token for an unverified
// account. This endpoint sits behind authentication-grade rate limiting, so
// unknown addresses fail loudly instead of pretending to succeed.
func (s *AuthService) ResendVerification(ctx context.Context, email, ipAddress, userAgent string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	token, err := security.GenerateVerificationToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now()
	user.EmailVerificationToken = &token
	user.EmailVerificationSentAt = &now
	user.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("store verification token: %w", err)
		}
		return s.recordActivity(ctx, &user.ID, "resend_verification", ipAddress, userAgent, true, nil, nil)
	})
	if err != nil {
		return err
	}

	s.notifier.SendEmailVerification(ctx, user.Email, token)
	return nil
}

// RequestPasswordReset issues a reset token for known accounts. Unknown
// addresses still generate a throwaway token so timing and response shape
// match, keeping the endpoint useless for enumeration.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, ipAddress, userAgent string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	token, err := security.GenerateVerificationToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	now := s.now()
	user.PasswordResetToken = &token
	user.PasswordResetSentAt = &now
	user.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("store reset token: %w", err)
		}
		return s.recordActivity(ctx, &user.ID, "request_password_reset", ipAddress, userAgent, true, nil, nil)
	})
	if err != nil {
		return err
	}

	s.notifier.SendPasswordReset(ctx, user.Email, token)
	return nil
}

// ResetPassword consumes a reset token and replaces the password. The lockout
// counter resets so a recovered account can log in immediately.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword, ipAddress, userAgent string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	user, err := s.users.GetByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if user.PasswordResetSentAt == nil || s.now().Sub(*user.PasswordResetSentAt) > s.cfg.ResetTokenTTL {
		return ErrExpiredResetToken
	}

	if err := s.passwords.Validate(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user.PasswordHash = hash
	user.PasswordResetToken = nil
	user.PasswordResetSentAt = nil
	user.FailedLoginAttempts = 0
	user.LastFailedLogin = nil
	user.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		return s.recordActivity(ctx, &user.ID, "reset_password", ipAddress, userAgent, true, nil, nil)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, domain.EventPasswordChanged, user)
	return nil
}

// ChangePassword replaces the password for an authenticated user after
// verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, ipAddress, userAgent string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrWrongPassword
	}

	validator := security.NewPasswordValidator(
		security.MinLengthRule(8),
		security.MaxLengthRule(128),
		security.RequireLowercaseRule(),
		security.RequireUppercaseRule(),
		security.RequireDigitRule(),
		security.RequireSymbolRule(),
		security.RequireDifferentFrom(currentPassword),
		security.RequirePasswordStrengthRule(2),
	)
	if err := validator.Validate(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user.PasswordHash = hash
	user.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("change password: %w", err)
		}
		return s.recordActivity(ctx, &user.ID, "change_password", ipAddress, userAgent, true, nil, nil)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, domain.EventPasswordChanged, user)
	return nil
}

// VerifyAccessToken parses an access token and loads the current account
// state, so stale tokens for deactivated users stop working immediately.
func (s *AuthService) VerifyAccessToken(ctx context.Context, raw string) (*domain.User, error) {
	claims, err := s.tokens.ParseAccessToken(raw)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.CanLogin() {
		return nil, ErrAccountInactive
	}

	return user, nil
}

func (s *AuthService) issueTokenPair(user *domain.User) (*domain.TokenPair, error) {
	claims := s.claimsFor(user)

	access, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := s.tokens.IssueRefreshToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *AuthService) claimsFor(user *domain.User) security.TokenClaims {
	return security.TokenClaims{
		UserID:     user.ID,
		Email:      user.Email,
		UserType:   string(user.UserType),
		IsVerified: user.IsVerified,
	}
}

func (s *AuthService) recordLoginFailure(ctx context.Context, userID *string, input LoginInput, reason string) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.recordLoginFailureTx(ctx, userID, input, reason)
	})
	if err != nil {
		s.log.Error("record login failure", zap.Error(err), zap.String("reason", reason))
	}
}

func (s *AuthService) recordLoginFailureTx(ctx context.Context, userID *string, input LoginInput, reason string) error {
	details := fmt.Sprintf(`{"reason":%q}`, reason)
	msg := "invalid credentials"
	return s.recordActivity(ctx, userID, "login_failed", input.IPAddress, input.UserAgent, false, &details, &msg)
}

func (s *AuthService) recordActivity(ctx context.Context, userID *string, action, ipAddress, userAgent string, success bool, details, errorMessage *string) error {
	entry := &domain.ActivityLog{
		ID:           uuid.NewString(),
		UserID:       userID,
		Action:       action,
		Details:      details,
		Success:      success,
		ErrorMessage: errorMessage,
		CreatedAt:    s.now(),
	}
	if ipAddress != "" {
		entry.IPAddress = &ipAddress
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}

	if err := s.activity.Create(ctx, entry); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (s *AuthService) publish(ctx context.Context, name string, user *domain.User) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, domain.UserEvent{
		Name:       name,
		UserID:     user.ID,
		Email:      user.Email,
		UserType:   user.UserType,
		OccurredAt: s.now(),
	})
}
