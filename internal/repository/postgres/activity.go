package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/core/port"
)

var activityColumns = []string{
	"id",
	"user_id",
	"action",
	"resource_type",
	"resource_id",
	"ip_address",
	"user_agent",
	"details",
	"success",
	"error_message",
	"created_at",
}

// ActivityRepository implements port.ActivityRepository using PostgreSQL.
type ActivityRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewActivityRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewActivityRepository(exec pgExecutor) *ActivityRepository {
	return &ActivityRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create appends an audit record.
func (r *ActivityRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	stmt, args, err := r.builder.Insert("activity_logs").
		Columns(activityColumns...).
		Values(
			entry.ID,
			entry.UserID,
			entry.Action,
			entry.ResourceType,
			entry.ResourceID,
			entry.IPAddress,
			entry.UserAgent,
			entry.Details,
			entry.Success,
			entry.ErrorMessage,
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert activity sql: %w", err)
	}

	if _, err := executorFrom(ctx, r.exec).Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	return nil
}

// ListByUser returns the most recent activity entries for a user.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.ActivityLog, error) {
	query := r.builder.Select(activityColumns...).
		From("activity_logs").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	if offset > 0 {
		query = query.Offset(uint64(offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list activity sql: %w", err)
	}

	rows, err := executorFrom(ctx, r.exec).Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.ActivityLog, 0)
	for rows.Next() {
		var entry domain.ActivityLog
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.Details,
			&entry.Success,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return entries, nil
}

// CountByUser returns the total number of activity entries for a user.
func (r *ActivityRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, squirrel.Eq{"user_id": userID})
}

// CountByUserAndAction returns the number of entries matching an action.
func (r *ActivityRepository) CountByUserAndAction(ctx context.Context, userID, action string) (int, error) {
	return r.count(ctx, squirrel.Eq{"user_id": userID, "action": action})
}

func (r *ActivityRepository) count(ctx context.Context, pred squirrel.Eq) (int, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From("activity_logs").
		Where(pred).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count activity sql: %w", err)
	}

	var total int
	if err := executorFrom(ctx, r.exec).QueryRow(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}

	return total, nil
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
