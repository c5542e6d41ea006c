package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/core/port"
	"github.com/arazshah/callyou/internal/repository"
)

const uniqueViolationCode = "23505"

var userColumns = []string{
	"id",
	"email",
	"phone",
	"password_hash",
	"user_type",
	"status",
	"is_active",
	"is_verified",
	"is_email_verified",
	"is_phone_verified",
	"last_login",
	"login_count",
	"failed_login_attempts",
	"last_failed_login",
	"email_verification_token",
	"email_verification_sent_at",
	"password_reset_token",
	"password_reset_sent_at",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := r.builder.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Email,
			user.Phone,
			user.PasswordHash,
			user.UserType,
			user.Status,
			user.IsActive,
			user.IsVerified,
			user.IsEmailVerified,
			user.IsPhoneVerified,
			user.LastLogin,
			user.LoginCount,
			user.FailedLoginAttempts,
			user.LastFailedLogin,
			user.EmailVerificationToken,
			user.EmailVerificationSentAt,
			user.PasswordResetToken,
			user.PasswordResetSentAt,
			user.CreatedAt,
			user.UpdatedAt,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByPhone retrieves a user by phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"phone": phone})
}

// GetByEmailVerificationToken retrieves the user holding the given
// verification token.
func (r *UserRepository) GetByEmailVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email_verification_token": token})
}

// GetByPasswordResetToken retrieves the user holding the given reset token.
func (r *UserRepository) GetByPasswordResetToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"password_reset_token": token})
}

func (r *UserRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := executorFrom(ctx, r.exec).QueryRow(ctx, stmt, args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return user, nil
}

// Update persists all mutable user fields.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	stmt, args, err := r.builder.Update("users").
		Set("email", user.Email).
		Set("phone", user.Phone).
		Set("password_hash", user.PasswordHash).
		Set("user_type", user.UserType).
		Set("status", user.Status).
		Set("is_active", user.IsActive).
		Set("is_verified", user.IsVerified).
		Set("is_email_verified", user.IsEmailVerified).
		Set("is_phone_verified", user.IsPhoneVerified).
		Set("last_login", user.LastLogin).
		Set("login_count", user.LoginCount).
		Set("failed_login_attempts", user.FailedLoginAttempts).
		Set("last_failed_login", user.LastFailedLogin).
		Set("email_verification_token", user.EmailVerificationToken).
		Set("email_verification_sent_at", user.EmailVerificationSentAt).
		Set("password_reset_token", user.PasswordResetToken).
		Set("password_reset_sent_at", user.PasswordResetSentAt).
		Set("updated_at", user.UpdatedAt).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List returns users matching the filter and the total count before paging.
func (r *UserRepository) List(ctx context.Context, filter port.UserFilter) ([]*domain.User, int, error) {
	preds := squirrel.And{}
	if filter.UserType != nil {
		preds = append(preds, squirrel.Eq{"user_type": *filter.UserType})
	}
	if filter.Status != nil {
		preds = append(preds, squirrel.Eq{"status": *filter.Status})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		preds = append(preds, squirrel.Or{
			squirrel.ILike{"email": pattern},
			squirrel.Expr(
				`EXISTS (SELECT 1 FROM user_profiles p WHERE p.user_id = users.id
					AND (p.first_name ILIKE ? OR p.last_name ILIKE ? OR p.display_name ILIKE ?))`,
				pattern, pattern, pattern,
			),
		})
	}

	countQuery := r.builder.Select("COUNT(*)").From("users")
	if len(preds) > 0 {
		countQuery = countQuery.Where(preds)
	}

	countStmt, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users sql: %w", err)
	}

	exec := executorFrom(ctx, r.exec)

	var total int
	if err := exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := r.builder.Select(userColumns...).
		From("users").
		OrderBy("created_at DESC")
	if len(preds) > 0 {
		query = query.Where(preds)
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}

	return users, total, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user         domain.User
		phone        sql.NullString
		verifyToken  sql.NullString
		resetToken   sql.NullString
		lastLogin    sql.NullTime
		lastFailed   sql.NullTime
		verifySentAt sql.NullTime
		resetSentAt  sql.NullTime
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&phone,
		&user.PasswordHash,
		&user.UserType,
		&user.Status,
		&user.IsActive,
		&user.IsVerified,
		&user.IsEmailVerified,
		&user.IsPhoneVerified,
		&lastLogin,
		&user.LoginCount,
		&user.FailedLoginAttempts,
		&lastFailed,
		&verifyToken,
		&verifySentAt,
		&resetToken,
		&resetSentAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if phone.Valid {
		user.Phone = &phone.String
	}
	if verifyToken.Valid {
		user.EmailVerificationToken = &verifyToken.String
	}
	if resetToken.Valid {
		user.PasswordResetToken = &resetToken.String
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	if lastFailed.Valid {
		user.LastFailedLogin = &lastFailed.Time
	}
	if verifySentAt.Valid {
		user.EmailVerificationSentAt = &verifySentAt.Time
	}
	if resetSentAt.Valid {
		user.PasswordResetSentAt = &resetSentAt.Time
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
