package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/metrics"
	"github.com/stemsi/lms-backend/internal/store"
)

// SessionSweeper evicts dead sessions and answer keys nobody can use anymore.
// Lookups never evict, so without it both stores only grow.
type SessionSweeper struct {
	sessions *store.SessionStore
	keys     *store.AnswerKeyStore
	interval time.Duration
	grace    time.Duration
	keyTTL   time.Duration
	log      zerolog.Logger
}

const (
	defaultSweepInterval = time.Minute
	defaultAnswerKeyTTL  = 12 * time.Hour
)

// NewSessionSweeper creates a sweeper. Sessions are dropped grace after they
// expire; keys are dropped keyTTL after their last store once no live session
// refers to their exam. Non-positive interval or keyTTL use the defaults.
func NewSessionSweeper(
	sessions *store.SessionStore,
	keys *store.AnswerKeyStore,
	interval, grace, keyTTL time.Duration,
	log zerolog.Logger,
) *SessionSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if grace < 0 {
		grace = 0
	}
	if keyTTL <= 0 {
		keyTTL = defaultAnswerKeyTTL
	}
	return &SessionSweeper{
		sessions: sessions,
		keys:     keys,
		interval: interval,
		grace:    grace,
		keyTTL:   keyTTL,
		log:      log.With().Str("component", "session_sweeper").Logger(),
	}
}

// Start sweeps on every tick until ctx is cancelled.
func (s *SessionSweeper) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("SessionSweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce runs a single pass and reports how much it removed.
func (s *SessionSweeper) SweepOnce() (sessions, keys int) {
	sessions = s.sessions.Sweep(s.grace)
	cutoff := s.sessions.Now().Add(-s.keyTTL)
	keys = s.keys.EvictUnused(cutoff, s.sessions.ActiveExamIDs())

	metrics.Evictions.WithLabelValues("sessions").Add(float64(sessions))
	metrics.Evictions.WithLabelValues("answer_keys").Add(float64(keys))

	if sessions > 0 || keys > 0 {
		s.log.Info().
			Int("sessions", sessions).
			Int("answer_keys", keys).
			Int("live_sessions", s.sessions.Len()).
			Msg("Swept expired entries")
	}
	return sessions, keys
}
