package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stemsi/lms-backend/internal/model"
)

// ErrAnswerKeyNotFound is returned when no key was ever stored for an exam.
var ErrAnswerKeyNotFound = errors.New("answer key not found")

type answerKeyEntry struct {
	key      model.AnswerKey
	storedAt time.Time
}

// AnswerKeyStore holds correct answers server-side, keyed by exam id.
// A stored key is replaced wholesale by the next Store for the same exam.
type AnswerKeyStore struct {
	mu   sync.RWMutex
	keys map[string]answerKeyEntry
	now  func() time.Time
}

// NewAnswerKeyStore creates an empty AnswerKeyStore. A nil clock means time.Now.
func NewAnswerKeyStore(now func() time.Time) *AnswerKeyStore {
	if now == nil {
		now = time.Now
	}
	return &AnswerKeyStore{
		keys: make(map[string]answerKeyEntry),
		now:  now,
	}
}

// Store validates and saves a copy of key for examID, overwriting any prior key.
func (s *AnswerKeyStore) Store(examID string, key model.AnswerKey) error {
	if strings.TrimSpace(examID) == "" {
		return fmt.Errorf("empty exam id: %w", model.ErrMalformedInput)
	}
	if key == nil {
		return fmt.Errorf("nil answer key: %w", model.ErrMalformedInput)
	}
	if err := key.Validate(); err != nil {
		return err
	}

	entry := answerKeyEntry{key: key.Clone(), storedAt: s.now()}

	s.mu.Lock()
	s.keys[examID] = entry
	s.mu.Unlock()
	return nil
}

// StoreJSON parses a serialized answer key and stores it.
func (s *AnswerKeyStore) StoreJSON(examID string, raw []byte) error {
	key, err := model.ParseAnswerKey(raw)
	if err != nil {
		return err
	}
	return s.Store(examID, key)
}

// Get returns the key stored for examID. Callers must treat it as read-only.
func (s *AnswerKeyStore) Get(examID string) (model.AnswerKey, error) {
	s.mu.RLock()
	entry, ok := s.keys[examID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrAnswerKeyNotFound
	}
	return entry.key, nil
}

// EvictUnused drops keys stored before cutoff whose exam id is not in inUse.
func (s *AnswerKeyStore) EvictUnused(cutoff time.Time, inUse map[string]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for examID, entry := range s.keys {
		if _, used := inUse[examID]; used {
			continue
		}
		if entry.storedAt.Before(cutoff) {
			delete(s.keys, examID)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored keys.
func (s *AnswerKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
