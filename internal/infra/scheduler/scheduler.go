// internal/infra/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ForWorkCodes/learn-en-bot/internal/app"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/assignment"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/content"
	domainTelegram "github.com/ForWorkCodes/learn-en-bot/internal/domain/telegram"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/user"
	idb "github.com/ForWorkCodes/learn-en-bot/internal/infra/database"
	"github.com/ForWorkCodes/learn-en-bot/internal/messages"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	// deliveryRetryDelay is the fixed backoff before re-attempting a failed
	// delivery. Retries are deduplicated per assignment, so they never pile up.
	deliveryRetryDelay = 60 * time.Second

	jobTimeout   = 1 * time.Minute
	batchTimeout = 5 * time.Minute
)

// MenuFunc supplies the inline menu attached to lesson messages. It is
// injected by the telegram layer so the scheduler stays free of keyboard
// concerns; nil means no menu.
type MenuFunc func(sendAudio bool) *telebot.ReplyMarkup

// LessonScheduler owns every time-triggered behavior of the bot: the default
// daily cron job, per-user custom-time jobs, follow-up nudges, delivery
// retries, and the startup recovery of undelivered assignments. It is the
// single scheduling authority within the process.
type LessonScheduler struct {
	users       user.Repository
	assignments assignment.Repository
	service     *app.AssignmentService
	sink        domainTelegram.Client
	tts         content.Synthesizer
	menu        MenuFunc
	logger      *logrus.Entry

	defaultCron string
	loc         *time.Location
	cronEngine  *cron.Cron

	now func() time.Time // overridable in tests

	// mu guards the job table; runMu serializes job callback bodies so no
	// two jobs execute concurrently inside this process.
	mu    sync.Mutex
	jobs  map[JobKey]jobHandle
	ver   uint64
	runMu sync.Mutex
}

func NewLessonScheduler(
	ur user.Repository,
	ar assignment.Repository,
	service *app.AssignmentService,
	sink domainTelegram.Client,
	tts content.Synthesizer,
	menu MenuFunc,
	logger *logrus.Entry,
	defaultCron string,
	loc *time.Location,
) *LessonScheduler {
	return &LessonScheduler{
		users:       ur,
		assignments: ar,
		service:     service,
		sink:        sink,
		tts:         tts,
		menu:        menu,
		logger:      logger,
		defaultCron: defaultCron,
		loc:         loc,
		cronEngine:  cron.New(cron.WithLocation(loc)),
		now:         time.Now,
		jobs:        make(map[JobKey]jobHandle),
	}
}

// Initialize runs once at process start, before Start arms the clock:
// per-user custom jobs, the default job, then the recovery pass over
// undelivered assignments.
func (s *LessonScheduler) Initialize(ctx context.Context) error {
	if err := s.scheduleExistingCustomJobs(ctx); err != nil {
		return err
	}
	s.scheduleDefaultJob()
	return s.deliverPendingAssignments(ctx)
}

// Start arms the cron clock. One-shot timers armed during Initialize are
// already live.
func (s *LessonScheduler) Start() {
	s.cronEngine.Start()
	s.logger.Info("Lesson scheduler started")
}

// Stop cancels every registration and waits for a running cron callback to
// finish.
func (s *LessonScheduler) Stop() {
	stopCtx := s.cronEngine.Stop()
	<-stopCtx.Done()

	s.mu.Lock()
	for key, h := range s.jobs {
		if h.timer != nil {
			h.timer.Stop()
		}
		delete(s.jobs, key)
	}
	s.mu.Unlock()
	s.logger.Info("Lesson scheduler stopped")
}

// RescheduleUser is called whenever a user changes or clears their preferred
// time. Unregistering an absent job is a no-op; a user without a complete
// hour:minute pair is left to the default job.
func (s *LessonScheduler) RescheduleUser(ctx context.Context, userID int64) error {
	s.unregister(UserDailyKey(userID))

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, idb.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load user %d for reschedule: %w", userID, err)
	}
	if !u.HasCustomTime() {
		return nil
	}
	return s.scheduleDailyJob(u.ID, int(u.DailyHour.Int64), int(u.DailyMinute.Int64))
}

func (s *LessonScheduler) scheduleExistingCustomJobs(ctx context.Context) error {
	users, err := s.users.ListWithCustomTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users with custom time: %w", err)
	}
	for _, u := range users {
		if err := s.scheduleDailyJob(u.ID, int(u.DailyHour.Int64), int(u.DailyMinute.Int64)); err != nil {
			s.logger.WithError(err).WithField("user_id", u.ID).Error("Failed to schedule custom daily job")
		}
	}
	return nil
}

func (s *LessonScheduler) scheduleDailyJob(userID int64, hour, minute int) error {
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	if err := s.registerCron(UserDailyKey(userID), spec, func() { s.runUserDailyJob(userID) }); err != nil {
		return fmt.Errorf("failed to register daily job for user %d: %w", userID, err)
	}
	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"time":    fmt.Sprintf("%02d:%02d", hour, minute),
	}).Info("Custom daily job scheduled")
	return nil
}

// scheduleDefaultJob registers the global cron job. An invalid expression
// disables the default job with a logged error; the rest of the scheduler
// keeps running.
func (s *LessonScheduler) scheduleDefaultJob() {
	if err := s.registerCron(DefaultDailyKey(), s.defaultCron, s.runDefaultJob); err != nil {
		s.logger.WithError(err).WithField("cron", s.defaultCron).Error("Invalid cron expression, default daily job disabled")
		return
	}
	s.logger.WithField("cron", s.defaultCron).Info("Default daily job scheduled")
}

// runDefaultJob serves every subscribed user without a custom time. One
// user's failure never aborts the batch: each delivery is isolated and
// independently retried.
func (s *LessonScheduler) runDefaultJob() {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	users, err := s.users.ListSubscribedWithoutCustomTime(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list users for default daily job")
		return
	}
	for _, u := range users {
		if err := s.sendAssignmentToUser(ctx, u, false, true); err != nil {
			s.logger.WithError(err).WithField("chat_id", u.ChatID).Error("Failed to send scheduled assignment")
		}
	}
}

func (s *LessonScheduler) runUserDailyJob(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, idb.ErrUserNotFound) {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to load user for daily job")
		}
		return
	}
	if !u.IsSubscribed {
		return
	}
	if err := s.sendAssignmentToUser(ctx, u, false, true); err != nil {
		s.logger.WithError(err).WithField("chat_id", u.ChatID).Error("Failed to send custom-time assignment")
	}
}

// DeliverNow is the on-demand path used by commands and menu buttons. It
// runs through the same serialized delivery path as timer jobs.
func (s *LessonScheduler) DeliverNow(ctx context.Context, u *user.User, forceNew bool) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.sendAssignmentToUser(ctx, u, forceNew, true)
}

// sendAssignmentToUser ensures today's assignment and delivers it. Follow-ups
// are planned only when a fresh content cycle began or the assignment was
// never delivered before.
func (s *LessonScheduler) sendAssignmentToUser(ctx context.Context, u *user.User, forceNew, scheduleFollowups bool) error {
	a, formatted, created, err := s.service.EnsureDaily(ctx, u, forceNew)
	if err != nil {
		return err
	}
	needFollowups := scheduleFollowups && (created || !a.Delivered())
	return s.deliver(ctx, u, a, formatted, needFollowups)
}

// deliver attempts the text send and handles both outcomes: on success the
// assignment is marked delivered, a pending retry is cancelled and follow-ups
// are planned when due; on failure a delivery-retry job replaces any earlier
// one for this assignment.
func (s *LessonScheduler) deliver(ctx context.Context, u *user.User, a *assignment.Assignment, formatted messages.Formatted, planFollowups bool) error {
	opts := &telebot.SendOptions{ParseMode: telebot.ModeMarkdownV2}
	if s.menu != nil {
		opts.ReplyMarkup = s.menu(u.SendAudio)
	}

	if err := s.sink.SendMessage(u.ChatID, formatted.Markdown, opts); err != nil {
		s.logger.WithError(err).WithField("chat_id", u.ChatID).Error("Failed to send assignment message")
		s.scheduleDeliveryRetry(u.ID, a.ID)
		return nil
	}

	if u.SendAudio {
		s.sendVoice(ctx, u, formatted.Plain)
	}

	if err := s.assignments.MarkDelivered(ctx, a.ID, s.now()); err != nil {
		return fmt.Errorf("failed to mark assignment %d delivered: %w", a.ID, err)
	}
	s.unregister(DeliveryRetryKey(a.ID))

	if planFollowups && a.Status == assignment.StatusAssigned {
		s.PlanFollowups(u.ID, a.ID)
	}
	return nil
}

// sendVoice synthesizes and sends an audio rendition. Audio is best-effort:
// both synthesis and send failures are logged and swallowed.
func (s *LessonScheduler) sendVoice(ctx context.Context, u *user.User, plain string) {
	if s.tts == nil || plain == "" {
		return
	}
	audio, err := s.tts.Synthesize(ctx, plain)
	if err != nil {
		s.logger.WithError(err).WithField("chat_id", u.ChatID).Error("Failed to synthesize voice message")
		return
	}
	if len(audio) == 0 {
		return
	}
	if err := s.sink.SendAudio(u.ChatID, audio, "assignment.wav"); err != nil {
		s.logger.WithError(err).WithField("chat_id", u.ChatID).Error("Failed to send voice message")
	}
}

func (s *LessonScheduler) scheduleDeliveryRetry(userID, assignmentID int64) {
	at := s.now().Add(deliveryRetryDelay)
	s.registerOneShot(DeliveryRetryKey(assignmentID), at, func() {
		s.retryAssignmentDelivery(userID, assignmentID)
	})
	s.logger.WithFields(map[string]interface{}{
		"assignment_id": assignmentID,
		"at":            at.Format(time.RFC3339),
	}).Info("Delivery retry scheduled")
}

// retryAssignmentDelivery re-resolves user and assignment from the store at
// fire time; state may have changed since the failure. Staleness is
// re-validated exactly as in recovery.
func (s *LessonScheduler) retryAssignmentDelivery(userID, assignmentID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, idb.ErrUserNotFound) {
			// Orphan assignment: neutralize it instead of rescanning forever.
			s.markDeliveredQuietly(ctx, assignmentID)
		} else {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to load user for delivery retry")
		}
		return
	}

	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if !errors.Is(err, idb.ErrAssignmentNotFound) {
			s.logger.WithError(err).WithField("assignment_id", assignmentID).Error("Failed to load assignment for delivery retry")
		}
		return
	}
	if a.Delivered() {
		return
	}
	if dateBefore(a.DateAssigned, s.today()) || a.Status != assignment.StatusAssigned {
		s.markDeliveredQuietly(ctx, a.ID)
		return
	}

	formatted := messages.FormatAssignment(a.PhrasalVerb, a.Translation, a.Explanation, a.ExamplesJSON)
	if err := s.deliver(ctx, u, a, formatted, true); err != nil {
		s.logger.WithError(err).WithField("assignment_id", a.ID).Error("Delivery retry failed")
	}
}

// deliverPendingAssignments is the startup recovery pass: every undelivered
// assignment is either neutralized (stale date, non-assigned status, missing
// user) or re-sent through the live delivery path. Per-item failures never
// abort the pass.
func (s *LessonScheduler) deliverPendingAssignments(ctx context.Context) error {
	pending, err := s.assignments.ListUndelivered(ctx)
	if err != nil {
		return fmt.Errorf("failed to list undelivered assignments: %w", err)
	}
	today := s.today()

	for _, a := range pending {
		if dateBefore(a.DateAssigned, today) || a.Status != assignment.StatusAssigned {
			s.markDeliveredQuietly(ctx, a.ID)
			continue
		}

		u, err := s.users.GetByID(ctx, a.UserID)
		if err != nil {
			if errors.Is(err, idb.ErrUserNotFound) {
				s.markDeliveredQuietly(ctx, a.ID)
			} else {
				s.logger.WithError(err).WithField("user_id", a.UserID).Error("Failed to load user during recovery")
			}
			continue
		}

		formatted := messages.FormatAssignment(a.PhrasalVerb, a.Translation, a.Explanation, a.ExamplesJSON)
		if err := s.deliver(ctx, u, a, formatted, true); err != nil {
			s.logger.WithError(err).WithField("assignment_id", a.ID).Error("Failed to recover pending assignment")
		}
	}
	return nil
}

// markDeliveredQuietly neutralizes a stale assignment without a send attempt.
func (s *LessonScheduler) markDeliveredQuietly(ctx context.Context, assignmentID int64) {
	if err := s.assignments.MarkDelivered(ctx, assignmentID, s.now()); err != nil {
		s.logger.WithError(err).WithField("assignment_id", assignmentID).Error("Failed to mark stale assignment delivered")
	}
}

// today is the current calendar date in the configured timezone.
func (s *LessonScheduler) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// dateBefore compares calendar dates regardless of the wall-clock location
// the two values carry (DATE columns scan as UTC midnights).
func dateBefore(a, b time.Time) bool {
	return a.Format("2006-01-02") < b.Format("2006-01-02")
}
