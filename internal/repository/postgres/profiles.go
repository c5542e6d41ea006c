package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/core/port"
	"github.com/arazshah/callyou/internal/repository"
)

var profileColumns = []string{
	"id",
	"user_id",
	"first_name",
	"last_name",
	"display_name",
	"bio",
	"birth_date",
	"gender",
	"country",
	"state",
	"city",
	"address",
	"postal_code",
	"timezone",
	"language",
	"avatar_url",
	"website_url",
	"is_profile_public",
	"show_email",
	"show_phone",
	"email_notifications",
	"sms_notifications",
	"created_at",
	"updated_at",
}

// ProfileRepository implements port.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewProfileRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewProfileRepository(exec pgExecutor) *ProfileRepository {
	return &ProfileRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new profile row.
func (r *ProfileRepository) Create(ctx context.Context, profile *domain.UserProfile) error {
	stmt, args, err := r.builder.Insert("user_profiles").
		Columns(profileColumns...).
		Values(
			profile.ID,
			profile.UserID,
			profile.FirstName,
			profile.LastName,
			profile.DisplayName,
			profile.Bio,
			profile.BirthDate,
			profile.Gender,
			profile.Country,
			profile.State,
			profile.City,
			profile.Address,
			profile.PostalCode,
			profile.Timezone,
			profile.Language,
			profile.AvatarURL,
			profile.WebsiteURL,
			profile.IsProfilePublic,
			profile.ShowEmail,
			profile.ShowPhone,
			profile.EmailNotifications,
			profile.SMSNotifications,
			profile.CreatedAt,
			profile.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert profile sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves the profile belonging to a user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	stmt, args, err := r.builder.
		Select(profileColumns...).
		From("user_profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	row := executorFrom(ctx, r.exec).QueryRow(ctx, stmt, args...)

	var profile domain.UserProfile
	if err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FirstName,
		&profile.LastName,
		&profile.DisplayName,
		&profile.Bio,
		&profile.BirthDate,
		&profile.Gender,
		&profile.Country,
		&profile.State,
		&profile.City,
		&profile.Address,
		&profile.PostalCode,
		&profile.Timezone,
		&profile.Language,
		&profile.AvatarURL,
		&profile.WebsiteURL,
		&profile.IsProfilePublic,
		&profile.ShowEmail,
		&profile.ShowPhone,
		&profile.EmailNotifications,
		&profile.SMSNotifications,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	return &profile, nil
}

// Update persists all mutable profile fields.
func (r *ProfileRepository) Update(ctx context.Context, profile *domain.UserProfile) error {
	stmt, args, err := r.builder.Update("user_profiles").
		Set("first_name", profile.FirstName).
		Set("last_name", profile.LastName).
		Set("display_name", profile.DisplayName).
		Set("bio", profile.Bio).
		Set("birth_date", profile.BirthDate).
		Set("gender", profile.Gender).
		Set("country", profile.Country).
		Set("state", profile.State).
		Set("city", profile.City).
		Set("address", profile.Address).
		Set("postal_code", profile.PostalCode).
		Set("timezone", profile.Timezone).
		Set("language", profile.Language).
		Set("avatar_url", profile.AvatarURL).
		Set("website_url", profile.WebsiteURL).
		Set("is_profile_public", profile.IsProfilePublic).
		Set("show_email", profile.ShowEmail).
		Set("show_phone", profile.ShowPhone).
		Set("email_notifications", profile.EmailNotifications).
		Set("sms_notifications", profile.SMSNotifications).
		Set("updated_at", profile.UpdatedAt).
		Where(squirrel.Eq{"user_id": profile.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)
