// internal/infra/database/postgres_user_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ForWorkCodes/learn-en-bot/internal/domain/user"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrUserNotFound = fmt.Errorf("user not found")

const userColumns = `id, chat_id, username, daily_hour, daily_minute, is_subscribed, send_audio, created_at, updated_at`

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func scanUser(row interface{ Scan(dest ...any) error }) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.ChatID, &u.Username, &u.DailyHour, &u.DailyMinute,
		&u.IsSubscribed, &u.SendAudio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Upsert creates the user on first contact or refreshes the username of an
// existing one. The users_chat_id_key constraint makes concurrent first
// contacts converge on a single row.
func (r *PostgresUserRepository) Upsert(ctx context.Context, chatID int64, username string) (*user.User, error) {
	var uname sql.NullString
	if username != "" {
		uname = sql.NullString{String: username, Valid: true}
	}

	query := `INSERT INTO users (chat_id, username)
               VALUES ($1, $2)
               ON CONFLICT ON CONSTRAINT users_chat_id_key
               DO UPDATE SET username = COALESCE(EXCLUDED.username, users.username), updated_at = NOW()
               RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(ctx, query, chatID, uname))
	if err != nil {
		return nil, fmt.Errorf("error upserting user by chat id: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetByChatID(ctx context.Context, chatID int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE chat_id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by chat ID: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) SetDailyTime(ctx context.Context, id int64, hour, minute int) error {
	query := `UPDATE users SET daily_hour = $1, daily_minute = $2, updated_at = NOW() WHERE id = $3`
	return r.execOnUser(ctx, query, hour, minute, id)
}

func (r *PostgresUserRepository) ClearDailyTime(ctx context.Context, id int64) error {
	query := `UPDATE users SET daily_hour = NULL, daily_minute = NULL, updated_at = NOW() WHERE id = $1`
	return r.execOnUser(ctx, query, id)
}

func (r *PostgresUserRepository) SetSubscribed(ctx context.Context, id int64, subscribed bool) error {
	query := `UPDATE users SET is_subscribed = $1, updated_at = NOW() WHERE id = $2`
	return r.execOnUser(ctx, query, subscribed, id)
}

func (r *PostgresUserRepository) SetSendAudio(ctx context.Context, id int64, sendAudio bool) error {
	query := `UPDATE users SET send_audio = $1, updated_at = NOW() WHERE id = $2`
	return r.execOnUser(ctx, query, sendAudio, id)
}

func (r *PostgresUserRepository) execOnUser(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) ListWithCustomTime(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
               WHERE daily_hour IS NOT NULL AND daily_minute IS NOT NULL
               ORDER BY id`
	return r.listUsers(ctx, query)
}

func (r *PostgresUserRepository) ListSubscribedWithoutCustomTime(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
               WHERE is_subscribed AND daily_hour IS NULL AND daily_minute IS NULL
               ORDER BY id`
	return r.listUsers(ctx, query)
}

func (r *PostgresUserRepository) listUsers(ctx context.Context, query string, args ...any) ([]*user.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}
