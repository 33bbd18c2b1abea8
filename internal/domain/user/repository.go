package user

import (
	"context"
)

// Repository defines the operations for persisting and retrieving User entities.
type Repository interface {
	// Upsert creates the user on first contact or returns the existing record,
	// refreshing the username if it changed.
	Upsert(ctx context.Context, chatID int64, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByChatID(ctx context.Context, chatID int64) (*User, error)

	SetDailyTime(ctx context.Context, id int64, hour, minute int) error
	ClearDailyTime(ctx context.Context, id int64) error
	SetSubscribed(ctx context.Context, id int64, subscribed bool) error
	SetSendAudio(ctx context.Context, id int64, sendAudio bool) error

	// ListWithCustomTime returns every user with both hour and minute set.
	ListWithCustomTime(ctx context.Context) ([]*User, error)
	// ListSubscribedWithoutCustomTime returns the audience of the default daily job.
	ListSubscribedWithoutCustomTime(ctx context.Context) ([]*User, error)
}
