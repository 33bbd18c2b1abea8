// internal/infra/scheduler/registry.go
package scheduler

import (
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// jobHandle is one live registration: either a cron entry or a one-shot
// timer. ver guards against a stale timer callback deleting a replacement
// registered under the same key after the timer was armed.
type jobHandle struct {
	entry cron.EntryID
	timer *time.Timer
	ver   uint64
}

// registerCron replaces any registration under key with a cron entry.
// The callback body runs through runJob, so job bodies never overlap.
func (s *LessonScheduler) registerCron(key JobKey, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cronEngine.AddFunc(spec, func() { s.runJob(key, fn) })
	if err != nil {
		return err
	}
	s.unregisterLocked(key)
	s.ver++
	s.jobs[key] = jobHandle{entry: id, ver: s.ver}
	return nil
}

// registerOneShot replaces any registration under key with a timer firing at
// the given instant (immediately when it is already past).
func (s *LessonScheduler) registerOneShot(key JobKey, at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unregisterLocked(key)
	s.ver++
	ver := s.ver

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	timer := time.AfterFunc(delay, func() {
		s.forget(key, ver)
		s.runJob(key, fn)
	})
	s.jobs[key] = jobHandle{timer: timer, ver: ver}
}

// unregister cancels the registration under key. Absent keys are a no-op;
// this is the only cancellation primitive.
func (s *LessonScheduler) unregister(key JobKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisterLocked(key)
}

func (s *LessonScheduler) unregisterLocked(key JobKey) {
	h, ok := s.jobs[key]
	if !ok {
		return
	}
	if h.timer != nil {
		h.timer.Stop()
	} else {
		s.cronEngine.Remove(h.entry)
	}
	delete(s.jobs, key)
}

// forget drops a fired one-shot from the table, but only when the firing
// timer is still the current registration for the key.
func (s *LessonScheduler) forget(key JobKey, ver uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.jobs[key]; ok && h.ver == ver {
		delete(s.jobs, key)
	}
}

// runJob serializes all job callback bodies: only one runs at a time within
// this process, matching the single-scheduling-authority model.
func (s *LessonScheduler) runJob(key JobKey, fn func()) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.logger.WithField("job", key.String()).Debug("Job fired")
	fn()
}

// Registered reports whether a job is currently registered under key.
func (s *LessonScheduler) Registered(key JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	return ok
}

// Snapshot returns the currently registered job keys, ordered for stable
// logging and assertions.
func (s *LessonScheduler) Snapshot() []JobKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]JobKey, 0, len(s.jobs))
	for k := range s.jobs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
