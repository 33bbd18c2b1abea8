// internal/infra/scheduler/followups.go
package scheduler

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ForWorkCodes/learn-en-bot/internal/domain/assignment"
	idb "github.com/ForWorkCodes/learn-en-bot/internal/infra/database"
	"github.com/ForWorkCodes/learn-en-bot/internal/messages"

	"gopkg.in/telebot.v3"
)

const (
	followupWindowStartHour = 11
	followupWindowEndHour   = 23

	followupOffset1 = 2 * time.Hour
	followupOffset2 = 7 * time.Hour

	// lastChanceDelay is tried when a clamped candidate already passed.
	lastChanceDelay = 15 * time.Minute

	// minFollowupGap keeps the two nudges from landing back to back.
	minFollowupGap = 60 * time.Second

	maxFollowups = 2
)

// planFollowupTimes computes the follow-up instants for a delivery at base.
//
// Candidates base+2h and base+7h are clamped to the [11:00, 23:00] window of
// base's day: raised to the window start when early, dropped when past the
// window end. A candidate at or before base gets one last chance at
// min(window end, base+15m). Survivors are sorted and deduplicated so kept
// candidates are at least a minute apart; up to two are returned.
func planFollowupTimes(base time.Time) []time.Time {
	windowStart := time.Date(base.Year(), base.Month(), base.Day(), followupWindowStartHour, 0, 0, 0, base.Location())
	windowEnd := time.Date(base.Year(), base.Month(), base.Day(), followupWindowEndHour, 0, 0, 0, base.Location())

	var survivors []time.Time
	for _, offset := range []time.Duration{followupOffset1, followupOffset2} {
		candidate := base.Add(offset)
		if candidate.Before(windowStart) {
			candidate = windowStart
		}
		if candidate.After(windowEnd) {
			continue
		}
		if !candidate.After(base) {
			candidate = base.Add(lastChanceDelay)
			if candidate.After(windowEnd) {
				candidate = windowEnd
			}
			if !candidate.After(base) {
				continue
			}
		}
		survivors = append(survivors, candidate)
	}

	sort.Slice(survivors, func(i, j int) bool { return survivors[i].Before(survivors[j]) })
	var uniq []time.Time
	for _, t := range survivors {
		if len(uniq) == 0 || t.Sub(uniq[len(uniq)-1]) >= minFollowupGap {
			uniq = append(uniq, t)
		}
	}
	if len(uniq) > maxFollowups {
		uniq = uniq[:maxFollowups]
	}
	return uniq
}

// PlanFollowups registers up to two follow-up jobs for the assignment,
// anchored at the current local time. Re-planning for the same assignment
// replaces the previous registrations rather than stacking new ones.
func (s *LessonScheduler) PlanFollowups(userID, assignmentID int64) {
	base := s.now().In(s.loc)
	for i, when := range planFollowupTimes(base) {
		slot := i + 1
		s.registerOneShot(FollowupKey(assignmentID, slot), when, func() {
			s.sendFollowup(userID, assignmentID, slot)
		})
		s.logger.WithFields(map[string]interface{}{
			"assignment_id": assignmentID,
			"slot":          slot,
			"at":            when.Format(time.RFC3339),
		}).Info("Follow-up planned")
	}
}

// sendFollowup fires at the scheduled time. It silently no-ops when the
// world moved on: user gone, today's assignment id changed, verb already
// mastered, or this slot already sent (a duplicate fire after a
// replace-existing race). Follow-up send failures are logged, never retried.
func (s *LessonScheduler) sendFollowup(userID, assignmentID int64, slot int) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, idb.ErrUserNotFound) {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to load user for follow-up")
		}
		return
	}

	a, err := s.assignments.GetToday(ctx, u.ID, s.today())
	if err != nil {
		if !errors.Is(err, idb.ErrAssignmentNotFound) {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to load assignment for follow-up")
		}
		return
	}
	if a.ID != assignmentID || a.Status == assignment.StatusMastered || a.FollowupSent(slot) {
		return
	}

	reminder := messages.FormatReminder(a.PhrasalVerb)
	if err := s.sink.SendMessage(u.ChatID, reminder, &telebot.SendOptions{ParseMode: telebot.ModeMarkdownV2}); err != nil {
		s.logger.WithError(err).WithField("chat_id", u.ChatID).Error("Failed to send follow-up")
		return
	}
	if err := s.assignments.MarkFollowupSent(ctx, a.ID, slot); err != nil {
		s.logger.WithError(err).WithField("assignment_id", a.ID).Error("Failed to mark follow-up sent")
	}
}
