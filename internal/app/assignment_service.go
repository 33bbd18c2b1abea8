// internal/app/assignment_service.go
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ForWorkCodes/learn-en-bot/internal/domain/assignment"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/content"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/user"
	idb "github.com/ForWorkCodes/learn-en-bot/internal/infra/database"
	"github.com/ForWorkCodes/learn-en-bot/internal/messages"

	"github.com/sirupsen/logrus"
)

// AssignmentService idempotently ensures that "today's" assignment exists for
// a user and formats it into a deliverable payload. It is the only component
// that writes assignment rows.
type AssignmentService struct {
	users       user.Repository
	assignments assignment.Repository
	provider    content.Provider
	logger      *logrus.Entry
	loc         *time.Location

	now func() time.Time // overridable in tests
}

func NewAssignmentService(
	ur user.Repository,
	ar assignment.Repository,
	provider content.Provider,
	loc *time.Location,
	logger *logrus.Entry,
) *AssignmentService {
	return &AssignmentService{
		users:       ur,
		assignments: ar,
		provider:    provider,
		logger:      logger,
		loc:         loc,
		now:         time.Now,
	}
}

// SetNow overrides the service clock. Intended for tests.
func (s *AssignmentService) SetNow(now func() time.Time) {
	s.now = now
}

// Today returns the current calendar date in the configured timezone.
func (s *AssignmentService) Today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// EnsureDaily returns today's assignment for the user, creating it when
// absent. With forceNew the existing row is overwritten in place and its
// delivery state reset. created reports whether a fresh content cycle began;
// the caller uses it to decide if follow-ups get (re-)planned.
func (s *AssignmentService) EnsureDaily(ctx context.Context, u *user.User, forceNew bool) (*assignment.Assignment, messages.Formatted, bool, error) {
	today := s.Today()

	existing, err := s.assignments.GetToday(ctx, u.ID, today)
	if err != nil && !errors.Is(err, idb.ErrAssignmentNotFound) {
		return nil, messages.Formatted{}, false, fmt.Errorf("failed to read today's assignment: %w", err)
	}

	if existing != nil && !forceNew {
		return existing, formatAssignment(existing), false, nil
	}

	// The provider never fails: internal errors become its canned fallback.
	payload := s.provider.GeneratePayload(ctx)
	examplesJSON, err := json.Marshal(payload.Examples)
	if err != nil {
		return nil, messages.Formatted{}, false, fmt.Errorf("failed to encode examples: %w", err)
	}

	a, err := s.assignments.Ensure(ctx, u.ID, today, assignment.Payload{
		PhrasalVerb:  payload.Verb,
		Translation:  payload.Translation,
		Explanation:  payload.Explanation,
		ExamplesJSON: string(examplesJSON),
	}, forceNew)
	if errors.Is(err, idb.ErrDuplicateAssignment) {
		// A concurrent writer won the insert race; the unique constraint is
		// the arbiter and we retry the read.
		s.logger.WithField("user_id", u.ID).Info("Concurrent assignment insert detected, re-reading")
		a, err = s.assignments.GetToday(ctx, u.ID, today)
		if err != nil {
			return nil, messages.Formatted{}, false, fmt.Errorf("failed to re-read assignment after conflict: %w", err)
		}
		return a, formatAssignment(a), false, nil
	}
	if err != nil {
		return nil, messages.Formatted{}, false, fmt.Errorf("failed to ensure assignment: %w", err)
	}

	created := forceNew || existing == nil
	return a, formatAssignment(a), created, nil
}

// EvaluateAnswer judges a learner's free-text sentence against today's verb.
// Mastery is monotonic: once mastered the status never goes back.
func (s *AssignmentService) EvaluateAnswer(ctx context.Context, u *user.User, text string) (string, bool, error) {
	a, err := s.assignments.GetToday(ctx, u.ID, s.Today())
	if errors.Is(err, idb.ErrAssignmentNotFound) {
		return "Сначала получи фразовый глагол дня — нажми «Напомнить фразовый глагол».", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read today's assignment: %w", err)
	}

	feedback, mastered, err := s.provider.Evaluate(ctx, a.PhrasalVerb, text)
	if err != nil {
		return "", false, fmt.Errorf("failed to evaluate answer: %w", err)
	}

	if mastered && a.Status != assignment.StatusMastered {
		if err := s.assignments.MarkMastered(ctx, a.ID); err != nil {
			s.logger.WithError(err).WithField("assignment_id", a.ID).Error("Failed to mark assignment mastered")
		}
	}
	return feedback, mastered, nil
}

func formatAssignment(a *assignment.Assignment) messages.Formatted {
	return messages.FormatAssignment(a.PhrasalVerb, a.Translation, a.Explanation, a.ExamplesJSON)
}
