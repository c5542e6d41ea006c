package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/infra/security"
)

const testPassword = "Str0ng!Passphrase#2025"

type authFixture struct {
	svc      *AuthService
	users    *memUserRepo
	profiles *memProfileRepo
	activity *memActivityRepo
	notifier *stubNotifier
	events   *capturedEvents
	issuer   *security.TokenIssuer
	clock    *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	issuer, err := security.NewTokenIssuer("unit-test-secret-key", "callyou-auth", 30*time.Minute, 168*time.Hour)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	issuer.WithClock(clock.Now)

	users := newMemUserRepo()
	profiles := newMemProfileRepo()
	activity := newMemActivityRepo()
	notifier := newStubNotifier()
	events := &capturedEvents{}

	svc := NewAuthService(
		AuthConfig{EmailTokenTTL: 24 * time.Hour, ResetTokenTTL: time.Hour},
		users, profiles, activity, memTx{},
		issuer, security.DefaultPasswordValidator(),
		notifier, events,
		zaptest.NewLogger(t),
	).WithClock(clock.Now)

	return &authFixture{
		svc:      svc,
		users:    users,
		profiles: profiles,
		activity: activity,
		notifier: notifier,
		events:   events,
		issuer:   issuer,
		clock:    clock,
	}
}

func (f *authFixture) register(t *testing.T, email string) *domain.User {
	t.Helper()
	user, _, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: testPassword,
		UserType: domain.UserTypeClient,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestRegisterCreatesAccountProfileAndAudit(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, rawToken, err := f.svc.Register(ctx, RegisterInput{
		Email:     "New.User@Example.com",
		Password:  testPassword,
		UserType:  domain.UserTypeConsultant,
		IPAddress: "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if user.Email != "new.user@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if len(rawToken) != security.VerificationTokenLength {
		t.Fatalf("expected %d-char verification token, got %q", security.VerificationTokenLength, rawToken)
	}
	if user.EmailVerificationToken == nil || *user.EmailVerificationToken != rawToken {
		t.Fatal("expected the returned token stored on the new account")
	}
	if user.IsEmailVerified {
		t.Fatal("new accounts must start unverified")
	}

	if _, err := f.profiles.GetByUserID(ctx, user.ID); err != nil {
		t.Fatalf("expected profile to exist: %v", err)
	}

	if got := f.activity.lastAction(); got != "register" {
		t.Fatalf("expected register audit entry, got %q", got)
	}

	if token := f.notifier.verifications[user.Email]; token != *user.EmailVerificationToken {
		t.Fatal("expected verification token handed to the notifier")
	}

	names := f.events.names()
	if len(names) != 1 || names[0] != domain.EventUserRegistered {
		t.Fatalf("expected user.registered event, got %v", names)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	phone := "+15550001111"
	if _, _, err := f.svc.Register(ctx, RegisterInput{
		Email:    "taken@example.com",
		Phone:    &phone,
		Password: testPassword,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := f.svc.Register(ctx, RegisterInput{
		Email:    "TAKEN@example.com",
		Password: testPassword,
	}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, _, err := f.svc.Register(ctx, RegisterInput{
		Email:    "other@example.com",
		Phone:    &phone,
		Password: testPassword,
	}); !errors.Is(err, ErrPhoneTaken) {
		t.Fatalf("expected ErrPhoneTaken, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "weak@example.com",
		Password: "password1",
	})

	var vErr *security.PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %v", err)
	}
}

func TestAuthenticateSuccessIssuesTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	registered := f.register(t, "login@example.com")

	user, pair, err := f.svc.Authenticate(ctx, LoginInput{
		Email:    "login@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if user.ID != registered.ID {
		t.Fatalf("expected user %s, got %s", registered.ID, user.ID)
	}
	if user.LoginCount != 1 {
		t.Fatalf("expected login count 1, got %d", user.LoginCount)
	}
	if user.LastLogin == nil {
		t.Fatal("expected last login timestamp")
	}

	claims, err := f.issuer.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse issued access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("access token carries wrong subject: %s", claims.UserID)
	}
	if _, err := f.issuer.ParseRefreshToken(pair.RefreshToken); err != nil {
		t.Fatalf("parse issued refresh token: %v", err)
	}
	if pair.ExpiresIn != int((30 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expires_in: %d", pair.ExpiresIn)
	}
}

func TestAuthenticateFailuresAreGeneric(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "victim@example.com")

	// Unknown account.
	if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: "nobody@example.com", Password: testPassword}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if got := f.activity.lastAction(); got != "login_failed" {
		t.Fatalf("expected login_failed audit entry, got %q", got)
	}

	// Wrong password.
	if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: "Wrong!Pass9"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}

	// Inactive account.
	stored, _ := f.users.GetByID(ctx, user.ID)
	stored.IsActive = false
	if err := f.users.Update(ctx, stored); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: testPassword}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for inactive account, got %v", err)
	}
}

func TestAuthenticateLockoutAfterFiveFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "locked@example.com")

	for i := 0; i < domain.MaxFailedLoginAttempts; i++ {
		if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: "Wrong!Pass9"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.FailedLoginAttempts != domain.MaxFailedLoginAttempts {
		t.Fatalf("expected %d failed attempts persisted, got %d", domain.MaxFailedLoginAttempts, stored.FailedLoginAttempts)
	}
	if !stored.IsLocked() {
		t.Fatal("expected account to be locked")
	}

	// The correct password fails while the account is locked, with the same
	// generic error as every other failure.
	if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: testPassword}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials on locked account, got %v", err)
	}
}

func TestAuthenticateSuccessResetsFailureCounter(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "reset-counter@example.com")

	for i := 0; i < 3; i++ {
		f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: "Wrong!Pass9"})
	}

	if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: testPassword}); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.FailedLoginAttempts != 0 {
		t.Fatalf("expected counter reset, got %d", stored.FailedLoginAttempts)
	}
}

func TestRefreshIssuesFreshPairWithoutInvalidation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "refresh@example.com")

	_, pair, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	f.clock.Advance(time.Minute)

	renewed, err := f.svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if renewed.AccessToken == pair.AccessToken {
		t.Fatal("expected a newly issued access token")
	}
	if renewed.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a newly issued refresh token")
	}
	if _, err := f.issuer.ParseAccessToken(renewed.AccessToken); err != nil {
		t.Fatalf("parse renewed access token: %v", err)
	}
	if _, err := f.issuer.ParseRefreshToken(renewed.RefreshToken); err != nil {
		t.Fatalf("parse renewed refresh token: %v", err)
	}

	// The presented token is not invalidated and keeps working until expiry.
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("original refresh token must stay valid: %v", err)
	}
}

func TestRefreshRejectsAccessAndExpiredTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "refresh-neg@example.com")

	_, pair, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for access token, got %v", err)
	}

	if _, err := f.svc.Refresh(ctx, "not-a-token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for garbage, got %v", err)
	}

	f.clock.Advance(169 * time.Hour)
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrExpiredRefreshToken) {
		t.Fatalf("expected ErrExpiredRefreshToken, got %v", err)
	}
}

func TestRefreshRevalidatesAccountState(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "refresh-inactive@example.com")

	_, pair, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	stored.IsActive = false
	if err := f.users.Update(ctx, stored); err != nil {
		t.Fatalf("update user: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for deactivated account, got %v", err)
	}
}

func TestLogoutRecordsActivity(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "logout@example.com")

	if err := f.svc.Logout(ctx, user, "203.0.113.9", "test-agent"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if got := f.activity.lastAction(); got != "logout" {
		t.Fatalf("expected logout audit entry, got %q", got)
	}

	names := f.events.names()
	if names[len(names)-1] != domain.EventUserLoggedOut {
		t.Fatalf("expected user.logout event, got %v", names)
	}
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "verify@example.com")
	token := *user.EmailVerificationToken

	verified, err := f.svc.VerifyEmail(ctx, token, "", "")
	if err != nil {
		t.Fatalf("verify email: %v", err)
	}
	if !verified.IsEmailVerified || !verified.IsVerified {
		t.Fatal("expected verification flags set")
	}
	if verified.EmailVerificationToken != nil {
		t.Fatal("expected token cleared after use")
	}

	// Single use: the same token fails the second time.
	if _, err := f.svc.VerifyEmail(ctx, token, "", ""); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("expected ErrInvalidVerificationToken on reuse, got %v", err)
	}
}

func TestVerifyEmailExpiresAfterTTL(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "verify-late@example.com")

	f.clock.Advance(24*time.Hour + time.Minute)

	if _, err := f.svc.VerifyEmail(ctx, *user.EmailVerificationToken, "", ""); !errors.Is(err, ErrExpiredVerificationToken) {
		t.Fatalf("expected ErrExpiredVerificationToken, got %v", err)
	}
}

func TestResendVerification(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "resend@example.com")
	oldToken := *user.EmailVerificationToken

	auditBefore, _ := f.activity.CountByUser(ctx, user.ID)
	if err := f.svc.ResendVerification(ctx, user.Email, "203.0.113.9", "test-agent"); err != nil {
		t.Fatalf("resend verification: %v", err)
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.EmailVerificationToken == nil || *stored.EmailVerificationToken == oldToken {
		t.Fatal("expected a fresh verification token")
	}

	// The rotation is audited like every other mutation.
	if got := f.activity.lastAction(); got != "resend_verification" {
		t.Fatalf("expected resend_verification audit entry, got %q", got)
	}
	if auditAfter, _ := f.activity.CountByUser(ctx, user.ID); auditAfter != auditBefore+1 {
		t.Fatalf("expected one new audit row, got %d -> %d", auditBefore, auditAfter)
	}

	// Unknown addresses fail loudly; this endpoint is rate limited instead
	// of hiding account existence.
	before := f.notifier.verifyCallCount
	if err := f.svc.ResendVerification(ctx, "ghost@example.com", "", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown email, got %v", err)
	}
	if f.notifier.verifyCallCount != before {
		t.Fatal("expected no notification for unknown email")
	}

	// Verified accounts report the conflict.
	if _, err := f.svc.VerifyEmail(ctx, *stored.EmailVerificationToken, "", ""); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	if err := f.svc.ResendVerification(ctx, user.Email, "", ""); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestRequestPasswordResetDoesNotLeakAccounts(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "forgot@example.com")

	if err := f.svc.RequestPasswordReset(ctx, user.Email, "", ""); err != nil {
		t.Fatalf("request reset: %v", err)
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.PasswordResetToken == nil {
		t.Fatal("expected reset token stored")
	}
	if token := f.notifier.resets[user.Email]; token != *stored.PasswordResetToken {
		t.Fatal("expected reset token handed to the notifier")
	}

	// Unknown addresses return identical success without a notification.
	before := f.notifier.resetCallCount
	if err := f.svc.RequestPasswordReset(ctx, "ghost@example.com", "", ""); err != nil {
		t.Fatalf("request reset for unknown email: %v", err)
	}
	if f.notifier.resetCallCount != before {
		t.Fatal("expected no notification for unknown email")
	}
}

func TestResetPasswordFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "reset@example.com")

	// Lock the account first; reset must clear the counter.
	for i := 0; i < domain.MaxFailedLoginAttempts; i++ {
		f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: "Wrong!Pass9"})
	}

	if err := f.svc.RequestPasswordReset(ctx, user.Email, "", ""); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := f.notifier.resets[user.Email]

	const newPassword = "Fresh!Credential#77"
	if err := f.svc.ResetPassword(ctx, token, newPassword, "", ""); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	// The token is single use.
	if err := f.svc.ResetPassword(ctx, token, newPassword, "", ""); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken on reuse, got %v", err)
	}

	// Old password no longer works, the new one does.
	if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: testPassword}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: newPassword}); err != nil {
		t.Fatalf("expected new password accepted, got %v", err)
	}
}

func TestResetPasswordTokenExpiresAfterOneHour(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "reset-late@example.com")

	if err := f.svc.RequestPasswordReset(ctx, user.Email, "", ""); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := f.notifier.resets[user.Email]

	f.clock.Advance(time.Hour + time.Minute)

	if err := f.svc.ResetPassword(ctx, token, "Fresh!Credential#77", "", ""); !errors.Is(err, ErrExpiredResetToken) {
		t.Fatalf("expected ErrExpiredResetToken, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "change@example.com")

	if err := f.svc.ChangePassword(ctx, user.ID, "Wrong!Pass9", "Fresh!Credential#77", "", ""); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}

	var vErr *security.PasswordValidationError
	err := f.svc.ChangePassword(ctx, user.ID, testPassword, testPassword, "", "")
	if !errors.As(err, &vErr) || vErr.Code != "different" {
		t.Fatalf("expected different-password violation, got %v", err)
	}

	const newPassword = "Fresh!Credential#77"
	if err := f.svc.ChangePassword(ctx, user.ID, testPassword, newPassword, "", ""); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, _, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: newPassword}); err != nil {
		t.Fatalf("expected new password accepted, got %v", err)
	}

	names := f.events.names()
	if names[len(names)-1] != domain.EventPasswordChanged {
		t.Fatalf("expected password.changed event, got %v", names)
	}
}

func TestVerifyAccessTokenChecksAccountState(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "me@example.com")

	_, pair, err := f.svc.Authenticate(ctx, LoginInput{Email: user.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	got, err := f.svc.VerifyAccessToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}

	// Deactivating the account invalidates outstanding tokens immediately.
	stored, _ := f.users.GetByID(ctx, user.ID)
	stored.IsActive = false
	if err := f.users.Update(ctx, stored); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if _, err := f.svc.VerifyAccessToken(ctx, pair.AccessToken); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}
