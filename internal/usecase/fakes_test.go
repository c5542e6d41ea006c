package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/core/port"
	"github.com/arazshah/callyou/internal/repository"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Phone != nil && *user.Phone == phone {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmailVerificationToken(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.EmailVerificationToken != nil && *user.EmailVerificationToken == token {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByPasswordResetToken(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.PasswordResetToken != nil && *user.PasswordResetToken == token {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) List(_ context.Context, filter port.UserFilter) ([]*domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*domain.User, 0)
	for _, user := range r.users {
		if filter.UserType != nil && user.UserType != *filter.UserType {
			continue
		}
		if filter.Status != nil && user.Status != *filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(user.Email, filter.Search) {
			continue
		}
		clone := *user
		matched = append(matched, &clone)
	}
	total := len(matched)
	if filter.Offset > 0 && filter.Offset < len(matched) {
		matched = matched[filter.Offset:]
	} else if filter.Offset >= len(matched) {
		matched = nil
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[string]*domain.UserProfile)}
}

func (r *memProfileRepo) Create(_ context.Context, profile *domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[profile.UserID]; ok {
		return repository.ErrDuplicate
	}
	clone := *profile
	r.profiles[profile.UserID] = &clone
	return nil
}

func (r *memProfileRepo) GetByUserID(_ context.Context, userID string) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile, ok := r.profiles[userID]; ok {
		clone := *profile
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memProfileRepo) Update(_ context.Context, profile *domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[profile.UserID]; !ok {
		return repository.ErrNotFound
	}
	clone := *profile
	r.profiles[profile.UserID] = &clone
	return nil
}

type memActivityRepo struct {
	mu      sync.Mutex
	entries []*domain.ActivityLog
}

func newMemActivityRepo() *memActivityRepo {
	return &memActivityRepo{}
}

func (r *memActivityRepo) Create(_ context.Context, entry *domain.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *memActivityRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*domain.ActivityLog, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.UserID != nil && *entry.UserID == userID {
			clone := *entry
			matched = append(matched, &clone)
		}
	}
	if offset > 0 && offset < len(matched) {
		matched = matched[offset:]
	} else if offset >= len(matched) {
		matched = nil
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memActivityRepo) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.UserID != nil && *entry.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memActivityRepo) CountByUserAndAction(_ context.Context, userID, action string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.UserID != nil && *entry.UserID == userID && entry.Action == action {
			count++
		}
	}
	return count, nil
}

func (r *memActivityRepo) lastAction() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return ""
	}
	return r.entries[len(r.entries)-1].Action
}

// memTx runs the function directly; the in-memory repos have no transactions.
type memTx struct{}

func (memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubNotifier struct {
	mu              sync.Mutex
	verifications   map[string]string
	resets          map[string]string
	resetCallCount  int
	verifyCallCount int
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{
		verifications: make(map[string]string),
		resets:        make(map[string]string),
	}
}

func (n *stubNotifier) SendEmailVerification(_ context.Context, email, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications[email] = token
	n.verifyCallCount++
}

func (n *stubNotifier) SendPasswordReset(_ context.Context, email, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[email] = token
	n.resetCallCount++
}

type capturedEvents struct {
	mu     sync.Mutex
	events []domain.UserEvent
}

func (p *capturedEvents) Publish(_ context.Context, event domain.UserEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturedEvents) Close() error { return nil }

func (p *capturedEvents) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, event := range p.events {
		names = append(names, event.Name)
	}
	return names
}

var (
	_ port.UserRepository     = (*memUserRepo)(nil)
	_ port.ProfileRepository  = (*memProfileRepo)(nil)
	_ port.ActivityRepository = (*memActivityRepo)(nil)
	_ port.TxManager          = memTx{}
	_ port.NotificationSender = (*stubNotifier)(nil)
	_ port.EventPublisher     = (*capturedEvents)(nil)
)
