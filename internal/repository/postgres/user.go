package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type userRepository struct {
	db queryer
}

const userColumns = `u.id, u.telegram_id, u.name, u.username, u.currency, u.timezone, u.date_format,
	u.monthly_summary_enabled, u.monthly_summary_time, u.last_monthly_summary_sent,
	u.expense_notifications_enabled, u.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		username    sql.NullString
		summaryTime sql.NullString
		lastSent    sql.NullTime
		dateFormat  string
	)
	if err := row.Scan(
		&u.ID,
		&u.TelegramID,
		&u.Name,
		&username,
		&u.Currency,
		&u.Timezone,
		&dateFormat,
		&u.MonthlySummaryEnabled,
		&summaryTime,
		&lastSent,
		&u.ExpenseNotificationsEnabled,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	u.Username = username.String
	u.MonthlySummaryTime = summaryTime.String
	if lastSent.Valid {
		t := lastSent.Time
		u.LastMonthlySummarySent = &t
	}
	df, err := models.ParseDateFormat(dateFormat)
	if err != nil {
		df = models.DateFormatDMY
	}
	u.DateFormat = df
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (telegram_id, name, username, currency, timezone, date_format,
			monthly_summary_enabled, monthly_summary_time, expense_notifications_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.TelegramID,
		user.Name,
		nullString(user.Username),
		user.Currency,
		user.Timezone,
		string(user.DateFormat),
		user.MonthlySummaryEnabled,
		nullString(user.MonthlySummaryTime),
		user.ExpenseNotificationsEnabled,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return nil, fmt.Errorf("user %d: %w", user.TelegramID, repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.telegram_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET name = $2, username = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, user.ID, user.Name, nullString(user.Username))
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return expectRows(result, fmt.Sprintf("user %d", user.ID))
}

func (r *userRepository) UpdateSettings(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET currency = $2, timezone = $3, date_format = $4, monthly_summary_enabled = $5,
			monthly_summary_time = $6, expense_notifications_enabled = $7
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Currency,
		user.Timezone,
		string(user.DateFormat),
		user.MonthlySummaryEnabled,
		nullString(user.MonthlySummaryTime),
		user.ExpenseNotificationsEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to update user settings: %w", err)
	}
	return expectRows(result, fmt.Sprintf("user %d", user.ID))
}

func (r *userRepository) ListSummaryEnabled(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.monthly_summary_enabled ORDER BY u.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
