package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/core/port"
	"github.com/arazshah/callyou/internal/infra/config"
	"github.com/arazshah/callyou/internal/infra/security"
	"github.com/arazshah/callyou/internal/repository"
	"github.com/arazshah/callyou/internal/repository/memory"
	"github.com/arazshah/callyou/internal/transport/http/middleware"
	httproutes "github.com/arazshah/callyou/internal/transport/http/routes"
	"github.com/arazshah/callyou/internal/usecase"
)

type userStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newUserStore() *userStore {
	return &userStore{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	copied := *u
	return &copied
}

func (s *userStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		return cloneUser(user), nil
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Email == email })
}

func (s *userStore) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (s *userStore) GetByEmailVerificationToken(_ context.Context, token string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == token
	})
}

func (s *userStore) GetByPasswordResetToken(_ context.Context, token string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == token
	})
}

func (s *userStore) find(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *userStore) List(_ context.Context, filter port.UserFilter) ([]*domain.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.User
	for _, user := range s.users {
		if filter.UserType != nil && user.UserType != *filter.UserType {
			continue
		}
		out = append(out, cloneUser(user))
	}
	return out, len(out), nil
}

type profileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
}

func newProfileStore() *profileStore {
	return &profileStore{profiles: make(map[string]*domain.UserProfile)}
}

func (s *profileStore) Create(_ context.Context, profile *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *profile
	s.profiles[profile.UserID] = &copied
	return nil
}

func (s *profileStore) GetByUserID(_ context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile, ok := s.profiles[userID]; ok {
		copied := *profile
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *profileStore) Update(_ context.Context, profile *domain.UserProfile) error {
	return s.Create(context.Background(), profile)
}

type activityStore struct {
	mu      sync.Mutex
	entries []*domain.ActivityLog
}

func (s *activityStore) Create(_ context.Context, entry *domain.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

func (s *activityStore) ListByUser(_ context.Context, userID string, limit, _ int) ([]*domain.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ActivityLog
	for _, entry := range s.entries {
		if entry.UserID != nil && *entry.UserID == userID {
			copied := *entry
			out = append(out, &copied)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *activityStore) CountByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, entry := range s.entries {
		if entry.UserID != nil && *entry.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *activityStore) CountByUserAndAction(_ context.Context, userID, action string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, entry := range s.entries {
		if entry.UserID != nil && *entry.UserID == userID && entry.Action == action {
			count++
		}
	}
	return count, nil
}

type directTx struct{}

func (directTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type dropNotifier struct{}

func (dropNotifier) SendEmailVerification(context.Context, string, string) {}
func (dropNotifier) SendPasswordReset(context.Context, string, string)     {}

type dropPublisher struct{}

func (dropPublisher) Publish(context.Context, domain.UserEvent) {}
func (dropPublisher) Close() error                              { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}
	cfg.RateLimit.WindowDuration = time.Minute
	cfg.RateLimit.AuthMaxAttempts = 10
	cfg.RateLimit.APIMaxAttempts = 100

	issuer, err := security.NewTokenIssuer("routes-test-secret", "callyou-auth", 30*time.Minute, 168*time.Hour)
	if err != nil {
		t.Fatalf("init token issuer: %v", err)
	}

	users := newUserStore()
	profiles := newProfileStore()
	activity := &activityStore{}

	auth := usecase.NewAuthService(
		usecase.AuthConfig{},
		users, profiles, activity, directTx{},
		issuer, security.DefaultPasswordValidator(),
		dropNotifier{}, dropPublisher{}, log,
	)
	userSvc := usecase.NewUserService(users, profiles, activity, directTx{}, dropPublisher{}, log)

	limiter := middleware.NewRateLimiter(memory.NewRateLimitStore(), log)

	return httproutes.Register(httproutes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: limiter,
		Services: httproutes.ServiceSet{
			Auth:  auth,
			Users: userSvc,
		},
	})
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRegisterLoginAndMeFlow(t *testing.T) {
	router := newTestRouter(t)

	register := doJSON(router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "Flow@Example.com",
		"password": "Str0ng!Passphrase#2025",
	})
	if register.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", register.Code, register.Body.String())
	}

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "flow@example.com",
		"password": "Str0ng!Passphrase#2025",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", login.Code, login.Body.String())
	}

	payload := decodeEnvelope(t, login)
	data, _ := payload["data"].(map[string]interface{})
	tokens, _ := data["tokens"].(map[string]interface{})
	accessToken, _ := tokens["access_token"].(string)
	if accessToken == "" {
		t.Fatalf("missing access token in login response: %s", login.Body.String())
	}
	if tokens["token_type"] != "bearer" {
		t.Fatalf("token_type = %v, want bearer", tokens["token_type"])
	}

	me := doJSON(router, http.MethodGet, "/api/v1/auth/me", accessToken, nil)
	if me.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", me.Code, me.Body.String())
	}
	if !strings.Contains(me.Body.String(), "flow@example.com") {
		t.Fatalf("me response missing account email: %s", me.Body.String())
	}
}

func TestLoginFailureIsGenericAndEnveloped(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "ghost@example.com",
		"password": "whatever-goes-here1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	payload := decodeEnvelope(t, rec)
	if payload["success"] != false {
		t.Fatalf("success = %v, want false", payload["success"])
	}
	errBody, _ := payload["error"].(map[string]interface{})
	if errBody["message"] != "Invalid credentials" {
		t.Fatalf("message = %v, want generic invalid credentials", errBody["message"])
	}
	if errBody["path"] != "/api/v1/auth/login" {
		t.Fatalf("path = %v, want /api/v1/auth/login", errBody["path"])
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/api/v1/auth/me", "/api/v1/auth/profile", "/api/v1/users/some-id/stats"} {
		rec := doJSON(router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want %d", path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestUserListRequiresAdmin(t *testing.T) {
	router := newTestRouter(t)

	register := doJSON(router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "plain@example.com",
		"password": "Str0ng!Passphrase#2025",
	})
	if register.Code != http.StatusCreated {
		t.Fatalf("register status = %d", register.Code)
	}

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "plain@example.com",
		"password": "Str0ng!Passphrase#2025",
	})
	payload := decodeEnvelope(t, login)
	data, _ := payload["data"].(map[string]interface{})
	tokens, _ := data["tokens"].(map[string]interface{})
	accessToken, _ := tokens["access_token"].(string)

	rec := doJSON(router, http.MethodGet, "/api/v1/users", accessToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func registerAndLogin(t *testing.T, router *gin.Engine, email string) (userID, accessToken string) {
	t.Helper()

	register := doJSON(router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    email,
		"password": "Str0ng!Passphrase#2025",
	})
	if register.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", register.Code, register.Body.String())
	}

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    email,
		"password": "Str0ng!Passphrase#2025",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", login.Code, login.Body.String())
	}

	payload := decodeEnvelope(t, login)
	data, _ := payload["data"].(map[string]interface{})
	tokens, _ := data["tokens"].(map[string]interface{})
	user, _ := data["user"].(map[string]interface{})

	userID, _ = user["id"].(string)
	accessToken, _ = tokens["access_token"].(string)
	if userID == "" || accessToken == "" {
		t.Fatalf("missing user id or access token in login response: %s", login.Body.String())
	}
	return userID, accessToken
}

func TestUserRoutesEnforceSelfOrAdmin(t *testing.T) {
	router := newTestRouter(t)

	aliceID, aliceToken := registerAndLogin(t, router, "alice@example.com")
	bobID, _ := registerAndLogin(t, router, "bob@example.com")

	own := doJSON(router, http.MethodGet, "/api/v1/users/"+aliceID+"/profile", aliceToken, nil)
	if own.Code != http.StatusOK {
		t.Fatalf("own profile status = %d, body %s", own.Code, own.Body.String())
	}

	update := doJSON(router, http.MethodPut, "/api/v1/users/"+aliceID+"/profile", aliceToken, gin.H{
		"first_name": "Alice",
	})
	if update.Code != http.StatusOK {
		t.Fatalf("profile update status = %d, body %s", update.Code, update.Body.String())
	}
	if !strings.Contains(update.Body.String(), "Alice") {
		t.Fatalf("profile update response missing applied name: %s", update.Body.String())
	}

	foreign := doJSON(router, http.MethodGet, "/api/v1/users/"+bobID+"/stats", aliceToken, nil)
	if foreign.Code != http.StatusForbidden {
		t.Fatalf("foreign stats status = %d, want %d", foreign.Code, http.StatusForbidden)
	}
}

func TestUpdateUserClearsEmailVerification(t *testing.T) {
	router := newTestRouter(t)

	userID, token := registerAndLogin(t, router, "patch-me@example.com")

	rec := doJSON(router, http.MethodPatch, "/api/v1/users/"+userID, token, gin.H{
		"email": "patched@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}

	payload := decodeEnvelope(t, rec)
	data, _ := payload["data"].(map[string]interface{})
	user, _ := data["user"].(map[string]interface{})
	if user["email"] != "patched@example.com" {
		t.Fatalf("email = %v, want patched@example.com", user["email"])
	}
	if user["is_email_verified"] != false {
		t.Fatalf("is_email_verified = %v, want false after email change", user["is_email_verified"])
	}
}

func TestAuthRateLimitOnLogin(t *testing.T) {
	router := newTestRouter(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = doJSON(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"email":    fmt.Sprintf("probe%d@example.com", i),
			"password": "definitely-wrong-1",
		})
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", last.Code, http.StatusTooManyRequests)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}
