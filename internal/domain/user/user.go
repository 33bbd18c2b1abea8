package user

import (
	"database/sql"
	"time"
)

// User is a learner interacting with the bot.
type User struct {
	ID       int64
	ChatID   int64 // Telegram chat id, unique
	Username sql.NullString

	// DailyHour/DailyMinute hold the user's preferred lesson time.
	// Both NULL means the user is served by the default schedule.
	DailyHour   sql.NullInt64
	DailyMinute sql.NullInt64

	// IsSubscribed suppresses the scheduled daily send when false.
	// On-demand requests still work for unsubscribed users.
	IsSubscribed bool
	SendAudio    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCustomTime reports whether the user configured a personal daily time.
func (u *User) HasCustomTime() bool {
	return u.DailyHour.Valid && u.DailyMinute.Valid
}
