package assignment

import (
	"database/sql"
	"time"
)

// Status represents the learner's progress on an assignment.
// The only transition is assigned -> mastered; it is never reversed
// within the lifetime of a record.
type Status string

const (
	StatusAssigned Status = "assigned"
	StatusMastered Status = "mastered"
)

// Assignment is the one daily learning artifact tied to a user and a calendar
// date. At most one assignment exists per (user_id, date_assigned); the
// database unique constraint is the final arbiter.
type Assignment struct {
	ID     int64
	UserID int64

	// DateAssigned is the calendar date (midnight, configured timezone).
	DateAssigned time.Time

	PhrasalVerb  string
	Translation  string
	Explanation  string
	ExamplesJSON string

	Status        Status
	Followup1Sent bool
	Followup2Sent bool

	// DeliveredAt is set exactly once, when the artifact is first
	// successfully handed to the delivery sink for that date.
	DeliveredAt sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Delivered reports whether the assignment has been handed off at least once.
func (a *Assignment) Delivered() bool {
	return a.DeliveredAt.Valid
}

// FollowupSent reports the flag for the given slot (1 or 2).
func (a *Assignment) FollowupSent(slot int) bool {
	if slot == 1 {
		return a.Followup1Sent
	}
	return a.Followup2Sent
}
