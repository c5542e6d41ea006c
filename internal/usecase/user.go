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
	"github.com/arazshah/callyou/internal/repository"
)

// ErrForbidden indicates the caller lacks permission for the operation.
var ErrForbidden = errors.New("operation not permitted")

// UserService handles account and profile management beyond authentication.
type UserService struct {
	users    port.UserRepository
	profiles port.ProfileRepository
	activity port.ActivityRepository
	tx       port.TxManager
	events   port.EventPublisher
	log      *zap.Logger

	now func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(
	users port.UserRepository,
	profiles port.ProfileRepository,
	activity port.ActivityRepository,
	tx port.TxManager,
	events port.EventPublisher,
	log *zap.Logger,
) *UserService {
	return &UserService{
		users:    users,
		profiles: profiles,
		activity: activity,
		tx:       tx,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service's notion of "now". Intended for tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// GetByID returns the account with the given identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// GetProfile returns the profile for a user, creating an empty one on first
// access for accounts that predate the profile table.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	profile = &domain.UserProfile{
		ID:                 uuid.NewString(),
		UserID:             userID,
		IsProfilePublic:    true,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return profile, nil
}

// UpdateProfileInput carries updatable profile fields. Nil leaves a field as is.
type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	DisplayName *string
	Bio         *string
	BirthDate   *time.Time
	Gender      *domain.Gender
	Country     *string
	State       *string
	City        *string
	Address     *string
	PostalCode  *string
	Timezone    *string
	Language    *string
	AvatarURL   *string
	WebsiteURL  *string

	IsProfilePublic    *bool
	ShowEmail          *bool
	ShowPhone          *bool
	EmailNotifications *bool
	SMSNotifications   *bool
}

// UpdateProfile applies the provided changes and records the update.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput, ipAddress, userAgent string) (*domain.UserProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	applyString := func(dst **string, src *string) {
		if src != nil {
			*dst = src
		}
	}

	applyString(&profile.FirstName, input.FirstName)
	applyString(&profile.LastName, input.LastName)
	applyString(&profile.DisplayName, input.DisplayName)
	applyString(&profile.Bio, input.Bio)
	applyString(&profile.Country, input.Country)
	applyString(&profile.State, input.State)
	applyString(&profile.City, input.City)
	applyString(&profile.Address, input.Address)
	applyString(&profile.PostalCode, input.PostalCode)
	applyString(&profile.Timezone, input.Timezone)
	applyString(&profile.Language, input.Language)
	applyString(&profile.AvatarURL, input.AvatarURL)
	applyString(&profile.WebsiteURL, input.WebsiteURL)

	if input.BirthDate != nil {
		profile.BirthDate = input.BirthDate
	}
	if input.Gender != nil {
		profile.Gender = input.Gender
	}
	if input.IsProfilePublic != nil {
		profile.IsProfilePublic = *input.IsProfilePublic
	}
	if input.ShowEmail != nil {
		profile.ShowEmail = *input.ShowEmail
	}
	if input.ShowPhone != nil {
		profile.ShowPhone = *input.ShowPhone
	}
	if input.EmailNotifications != nil {
		profile.EmailNotifications = *input.EmailNotifications
	}
	if input.SMSNotifications != nil {
		profile.SMSNotifications = *input.SMSNotifications
	}

	profile.UpdatedAt = s.now()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Update(ctx, profile); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return s.recordActivity(ctx, userID, "update_profile", ipAddress, userAgent)
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// UserUpdate carries updatable account fields. Nil leaves a field as is.
type UserUpdate struct {
	Email    *string
	Phone    *string
	IsActive *bool
}

// UpdateUser changes account-level fields. Users can update their own email
// and phone; activation state is admin only. Changing a contact detail drops
// its verified flag until it is confirmed again.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, targetID string, update UserUpdate, ipAddress, userAgent string) (*domain.User, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if actor.ID != targetID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if update.IsActive != nil && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("lookup email: %w", err)
			}
			user.Email = email
			user.IsEmailVerified = false
			user.IsVerified = false
		}
	}

	if update.Phone != nil {
		phone := strings.TrimSpace(*update.Phone)
		if user.Phone == nil || phone != *user.Phone {
			if phone != "" {
				if _, err := s.users.GetByPhone(ctx, phone); err == nil {
					return nil, ErrPhoneTaken
				} else if !errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("lookup phone: %w", err)
				}
			}
			if phone == "" {
				user.Phone = nil
			} else {
				user.Phone = &phone
			}
			user.IsPhoneVerified = false
		}
	}

	if update.IsActive != nil {
		user.IsActive = *update.IsActive
		if *update.IsActive {
			user.Status = domain.UserStatusActive
		} else {
			user.Status = domain.UserStatusInactive
		}
	}

	user.UpdatedAt = s.now()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("update user: %w", err)
		}
		return s.recordActivity(ctx, actor.ID, "update_user", ipAddress, userAgent)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// List returns users matching the filter. Admin only; the transport layer
// enforces the caller's type before reaching here.
func (s *UserService) List(ctx context.Context, filter port.UserFilter) ([]*domain.User, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.users.List(ctx, filter)
}

// Deactivate disables an account. Users can deactivate themselves; admins
// can deactivate anyone.
func (s *UserService) Deactivate(ctx context.Context, actor *domain.User, targetID, ipAddress, userAgent string) error {
	if actor == nil {
		return ErrForbidden
	}
	if actor.ID != targetID && !actor.IsAdmin() {
		return ErrForbidden
	}

	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	now := s.now()
	user.IsActive = false
	user.Status = domain.UserStatusInactive
	user.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		return s.recordActivity(ctx, actor.ID, "deactivate_user", ipAddress, userAgent)
	})
	if err != nil {
		return err
	}

	if s.events != nil {
		s.events.Publish(ctx, domain.UserEvent{
			Name:       domain.EventUserDeactivated,
			UserID:     user.ID,
			Email:      user.Email,
			UserType:   user.UserType,
			OccurredAt: now,
		})
	}

	s.log.Info("user deactivated",
		zap.String("user_id", user.ID),
		zap.String("actor_id", actor.ID),
	)

	return nil
}

// Activity returns the most recent audit entries for a user.
func (s *UserService) Activity(ctx context.Context, userID string, limit, offset int) ([]*domain.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	return s.activity.ListByUser(ctx, userID, limit, offset)
}

// Stats aggregates account counters for the stats endpoint.
func (s *UserService) Stats(ctx context.Context, userID string) (*domain.UserStats, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	activityCount, err := s.activity.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}

	totalFailed, err := s.activity.CountByUserAndAction(ctx, userID, "login_failed")
	if err != nil {
		return nil, fmt.Errorf("count failed logins: %w", err)
	}

	return &domain.UserStats{
		UserID:              user.ID,
		LoginCount:          user.LoginCount,
		FailedLoginAttempts: user.FailedLoginAttempts,
		TotalFailedLogins:   totalFailed,
		ActivityCount:       activityCount,
		LastLogin:           user.LastLogin,
		IsVerified:          user.IsVerified,
		IsEmailVerified:     user.IsEmailVerified,
		IsPhoneVerified:     user.IsPhoneVerified,
	}, nil
}

func (s *UserService) recordActivity(ctx context.Context, userID, action, ipAddress, userAgent string) error {
	entry := &domain.ActivityLog{
		ID:        uuid.NewString(),
		UserID:    &userID,
		Action:    action,
		Success:   true,
		CreatedAt: s.now(),
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
