package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ForWorkCodes/learn-en-bot/internal/domain/assignment"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/content"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/user"
	idb "github.com/ForWorkCodes/learn-en-bot/internal/infra/database"

	"gopkg.in/telebot.v3"
)

// In-memory doubles for the persistence and delivery boundaries. They are
// mutex-guarded because one-shot timers fire on their own goroutines.

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*user.User)}
}

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

func (r *fakeUserRepo) Upsert(_ context.Context, chatID int64, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ChatID == chatID {
			return copyUser(u), nil
		}
	}
	r.seq++
	u := &user.User{ID: r.seq, ChatID: chatID, IsSubscribed: true}
	if username != "" {
		u.Username.String = username
		u.Username.Valid = true
	}
	r.users[u.ID] = u
	return copyUser(u), nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) GetByChatID(_ context.Context, chatID int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ChatID == chatID {
			return copyUser(u), nil
		}
	}
	return nil, idb.ErrUserNotFound
}

func (r *fakeUserRepo) SetDailyTime(_ context.Context, id int64, hour, minute int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return idb.ErrUserNotFound
	}
	u.DailyHour.Int64 = int64(hour)
	u.DailyHour.Valid = true
	u.DailyMinute.Int64 = int64(minute)
	u.DailyMinute.Valid = true
	return nil
}

func (r *fakeUserRepo) ClearDailyTime(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return idb.ErrUserNotFound
	}
	u.DailyHour.Valid = false
	u.DailyMinute.Valid = false
	return nil
}

func (r *fakeUserRepo) SetSubscribed(_ context.Context, id int64, subscribed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return idb.ErrUserNotFound
	}
	u.IsSubscribed = subscribed
	return nil
}

func (r *fakeUserRepo) SetSendAudio(_ context.Context, id int64, sendAudio bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return idb.ErrUserNotFound
	}
	u.SendAudio = sendAudio
	return nil
}

func (r *fakeUserRepo) ListWithCustomTime(_ context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.User
	for _, u := range r.users {
		if u.HasCustomTime() {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListSubscribedWithoutCustomTime(_ context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.User
	for _, u := range r.users {
		if u.IsSubscribed && !u.HasCustomTime() {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

type fakeAssignmentRepo struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*assignment.Assignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{rows: make(map[int64]*assignment.Assignment)}
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	return &c
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func (r *fakeAssignmentRepo) GetToday(_ context.Context, userID int64, day time.Time) (*assignment.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.UserID == userID && sameDay(a.DateAssigned, day) {
			return copyAssignment(a), nil
		}
	}
	return nil, idb.ErrAssignmentNotFound
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id int64) (*assignment.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, idb.ErrAssignmentNotFound
	}
	return copyAssignment(a), nil
}

func (r *fakeAssignmentRepo) Ensure(_ context.Context, userID int64, day time.Time, p assignment.Payload, forceNew bool) (*assignment.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.UserID != userID || !sameDay(a.DateAssigned, day) {
			continue
		}
		if !forceNew {
			return nil, idb.ErrDuplicateAssignment
		}
		a.PhrasalVerb = p.PhrasalVerb
		a.Translation = p.Translation
		a.Explanation = p.Explanation
		a.ExamplesJSON = p.ExamplesJSON
		a.Status = assignment.StatusAssigned
		a.Followup1Sent = false
		a.Followup2Sent = false
		a.DeliveredAt.Valid = false
		return copyAssignment(a), nil
	}
	r.seq++
	a := &assignment.Assignment{
		ID:           r.seq,
		UserID:       userID,
		DateAssigned: day,
		PhrasalVerb:  p.PhrasalVerb,
		Translation:  p.Translation,
		Explanation:  p.Explanation,
		ExamplesJSON: p.ExamplesJSON,
		Status:       assignment.StatusAssigned,
	}
	r.rows[a.ID] = a
	return copyAssignment(a), nil
}

func (r *fakeAssignmentRepo) MarkDelivered(_ context.Context, id int64, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return idb.ErrAssignmentNotFound
	}
	if !a.DeliveredAt.Valid {
		a.DeliveredAt.Time = ts
		a.DeliveredAt.Valid = true
	}
	return nil
}

func (r *fakeAssignmentRepo) MarkFollowupSent(_ context.Context, id int64, slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return idb.ErrAssignmentNotFound
	}
	if slot == 1 {
		a.Followup1Sent = true
	} else {
		a.Followup2Sent = true
	}
	return nil
}

func (r *fakeAssignmentRepo) MarkMastered(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return idb.ErrAssignmentNotFound
	}
	a.Status = assignment.StatusMastered
	return nil
}

func (r *fakeAssignmentRepo) ListUndelivered(_ context.Context) ([]*assignment.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*assignment.Assignment
	for _, a := range r.rows {
		if !a.DeliveredAt.Valid {
			out = append(out, copyAssignment(a))
		}
	}
	return out, nil
}

// seed inserts a row directly, bypassing Ensure semantics.
func (r *fakeAssignmentRepo) seed(a *assignment.Assignment) *assignment.Assignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == 0 {
		r.seq++
		a.ID = r.seq
	}
	r.rows[a.ID] = a
	return copyAssignment(a)
}

type sentMessage struct {
	chatID int64
	text   string
	opts   *telebot.SendOptions
}

type sentAudio struct {
	chatID   int64
	filename string
}

// fakeSink records deliveries; failNext makes the next N text sends fail.
type fakeSink struct {
	mu       sync.Mutex
	failNext int
	attempts int
	messages []sentMessage
	audio    []sentAudio
}

type sendFailure struct{}

func (sendFailure) Error() string { return "telegram unreachable" }

func (s *fakeSink) SendMessage(chatID int64, text string, opts *telebot.SendOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failNext > 0 {
		s.failNext--
		return sendFailure{}
	}
	s.messages = append(s.messages, sentMessage{chatID: chatID, text: text, opts: opts})
	return nil
}

func (s *fakeSink) SendAudio(chatID int64, _ []byte, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, sentAudio{chatID: chatID, filename: filename})
	return nil
}

func (s *fakeSink) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeSink) lastMessage() sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[len(s.messages)-1]
}

func (s *fakeSink) audioCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audio)
}

type fakeProvider struct {
	payload content.Payload
}

func (p *fakeProvider) GeneratePayload(context.Context) content.Payload {
	return p.payload
}

func (p *fakeProvider) Evaluate(_ context.Context, _, _ string) (string, bool, error) {
	return "ok", false, nil
}

type fakeTTS struct {
	audio []byte
}

func (t *fakeTTS) Synthesize(context.Context, string) ([]byte, error) {
	return t.audio, nil
}
