// internal/infra/scheduler/jobkey.go
package scheduler

import "fmt"

// JobKind discriminates the scheduler's job registrations.
type JobKind int

const (
	KindDefaultDaily JobKind = iota
	KindUserDaily
	KindFollowup
	KindDeliveryRetry
)

func (k JobKind) String() string {
	switch k {
	case KindDefaultDaily:
		return "default_daily"
	case KindUserDaily:
		return "user_daily"
	case KindFollowup:
		return "followup"
	case KindDeliveryRetry:
		return "delivery_retry"
	default:
		return "unknown"
	}
}

// JobKey is the dedup key under which a job is registered: re-registering the
// same key replaces the prior registration instead of duplicating it. The
// zero fields of unused dimensions keep keys comparable map keys.
type JobKey struct {
	Kind         JobKind
	UserID       int64
	AssignmentID int64
	Slot         int
}

func DefaultDailyKey() JobKey {
	return JobKey{Kind: KindDefaultDaily}
}

func UserDailyKey(userID int64) JobKey {
	return JobKey{Kind: KindUserDaily, UserID: userID}
}

func FollowupKey(assignmentID int64, slot int) JobKey {
	return JobKey{Kind: KindFollowup, AssignmentID: assignmentID, Slot: slot}
}

func DeliveryRetryKey(assignmentID int64) JobKey {
	return JobKey{Kind: KindDeliveryRetry, AssignmentID: assignmentID}
}

func (k JobKey) String() string {
	switch k.Kind {
	case KindUserDaily:
		return fmt.Sprintf("%s_%d", k.Kind, k.UserID)
	case KindFollowup:
		return fmt.Sprintf("%s%d_%d", k.Kind, k.Slot, k.AssignmentID)
	case KindDeliveryRetry:
		return fmt.Sprintf("%s_%d", k.Kind, k.AssignmentID)
	default:
		return k.Kind.String()
	}
}
