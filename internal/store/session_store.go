package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
)

// DefaultIDAttempts bounds the collision-retry loop when minting session ids.
const DefaultIDAttempts = 8

// SessionStore is the process-wide registry of exam attempts keyed by session id.
// Expiry is evaluated lazily; lookups never evict. Only Sweep removes entries.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*model.ExamSession
	newID       func() string
	now         func() time.Time
	maxAttempts int
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithIDGenerator replaces the session id generator (uuid v4 by default).
func WithIDGenerator(gen func() string) SessionStoreOption {
	return func(s *SessionStore) { s.newID = gen }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) { s.now = now }
}

// WithMaxIDAttempts sets how many ids are tried before giving up.
func WithMaxIDAttempts(n int) SessionStoreOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore(opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		sessions:    make(map[string]*model.ExamSession),
		newID:       uuid.NewString,
		now:         time.Now,
		maxAttempts: DefaultIDAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's notion of the current time.
func (s *SessionStore) Now() time.Time {
	return s.now()
}

// Create mints a new session for the student/exam pair expiring after durationMinutes.
// Generating the id, checking for a collision and inserting happen under one lock.
func (s *SessionStore) Create(studentID, examID string, durationMinutes int) (model.ExamSession, error) {
	if durationMinutes <= 0 {
		return model.ExamSession{}, fmt.Errorf("duration %d: %w", durationMinutes, model.ErrInvalidDuration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.mintIDLocked()
	if err != nil {
		return model.ExamSession{}, err
	}

	now := s.now()
	sess := &model.ExamSession{
		ID:        id,
		StudentID: studentID,
		ExamID:    examID,
		StartedAt: now,
		ExpireAt:  now.Add(time.Duration(durationMinutes) * time.Minute),
	}
	s.sessions[id] = sess
	return *sess, nil
}

func (s *SessionStore) mintIDLocked() (string, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.sessions[id]; !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", s.maxAttempts, model.ErrIDGenerationExhausted)
}

// IsValid reports whether the session exists and has not expired.
func (s *SessionStore) IsValid(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	return !sess.IsExpired(s.now())
}

// Get returns a copy of the session record, expired or not.
func (s *SessionStore) Get(sessionID string) (model.ExamSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.ExamSession{}, false
	}
	return copySession(sess), true
}

// RecordSubmission atomically re-checks validity and records a submission.
// With exclusive set, a session that was already submitted is rejected.
func (s *SessionStore) RecordSubmission(sessionID string, exclusive bool) (model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	now := s.now()
	if !ok || sess.IsExpired(now) {
		return model.ExamSession{}, model.ErrSessionExpiredOrInvalid
	}
	if exclusive && sess.SubmittedAt != nil {
		return model.ExamSession{}, model.ErrAlreadySubmitted
	}

	sess.SubmittedAt = &now
	sess.Submissions++
	return copySession(sess), nil
}

// Sweep removes sessions whose expiry lies more than grace in the past and
// returns how many were removed.
func (s *SessionStore) Sweep(grace time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-grace)
	removed := 0
	for id, sess := range s.sessions {
		if !cutoff.Before(sess.ExpireAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// ActiveExamIDs returns the exam ids referenced by sessions still in the store.
func (s *SessionStore) ActiveExamIDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(s.sessions))
	for _, sess := range s.sessions {
		ids[sess.ExamID] = struct{}{}
	}
	return ids
}

// Len returns the number of sessions held, live or expired.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func copySession(sess *model.ExamSession) model.ExamSession {
	out := *sess
	if sess.SubmittedAt != nil {
		t := *sess.SubmittedAt
		out.SubmittedAt = &t
	}
	return out
}
