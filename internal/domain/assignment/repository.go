package assignment

import (
	"context"
	"time"
)

// Payload carries the content fields written into an assignment row.
// They are opaque to the scheduler.
type Payload struct {
	PhrasalVerb  string
	Translation  string
	Explanation  string
	ExamplesJSON string
}

// Repository defines operations over Assignment records.
type Repository interface {
	// GetToday returns the assignment dated day for the user, or ErrAssignmentNotFound.
	GetToday(ctx context.Context, userID int64, day time.Time) (*Assignment, error)
	GetByID(ctx context.Context, id int64) (*Assignment, error)

	// Ensure is the single write path that can race with a concurrent request
	// for the same user/day. When forceNew is true and a row exists, the
	// payload, status, follow-up flags and delivered_at are overwritten in
	// place (same row, same id). When no row exists, one is inserted. A
	// concurrent duplicate insert fails with ErrDuplicateAssignment; the
	// caller is expected to retry the read.
	Ensure(ctx context.Context, userID int64, day time.Time, p Payload, forceNew bool) (*Assignment, error)

	MarkDelivered(ctx context.Context, id int64, ts time.Time) error
	MarkFollowupSent(ctx context.Context, id int64, slot int) error
	MarkMastered(ctx context.Context, id int64) error

	// ListUndelivered returns every assignment with delivered_at IS NULL,
	// regardless of date. Used by the startup recovery pass.
	ListUndelivered(ctx context.Context) ([]*Assignment, error)
}
