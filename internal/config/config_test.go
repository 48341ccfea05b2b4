package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUBMISSION_POLICY", "")
	t.Setenv("SESSION_GRACE_SECONDS", "")

	cfg := Load()
	assert.Equal(t, SubmissionAllowResubmit, cfg.SubmissionPolicy)
	assert.Equal(t, 5*time.Minute, cfg.SessionGrace)
	assert.Equal(t, 8, cfg.SessionIDAttempts)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SUBMISSION_POLICY", "Single")
	t.Setenv("SESSION_SWEEP_INTERVAL_SECONDS", "15")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()
	assert.Equal(t, SubmissionSingle, cfg.SubmissionPolicy)
	assert.Equal(t, 15*time.Second, cfg.SessionSweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestParseSubmissionPolicy_UnknownFallsBack(t *testing.T) {
	assert.Equal(t, SubmissionAllowResubmit, parseSubmissionPolicy("whatever"))
}

func TestLoad_NonPositiveValuesFallBack(t *testing.T) {
	for _, raw := range []string{"0", "-5"} {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("SESSION_SWEEP_INTERVAL_SECONDS", raw)
			t.Setenv("ANSWER_KEY_TTL_MINUTES", raw)
			t.Setenv("SESSION_ID_ATTEMPTS", raw)
			t.Setenv("RATE_LIMIT_PER_MINUTE", raw)
			t.Setenv("MAX_DB_CONNS", raw)

			cfg := Load()
			assert.Equal(t, time.Minute, cfg.SessionSweepInterval)
			assert.Equal(t, 12*time.Hour, cfg.AnswerKeyTTL)
			assert.Equal(t, 8, cfg.SessionIDAttempts)
			assert.Equal(t, 120, cfg.RateLimitPerMinute)
			assert.Equal(t, int32(16), cfg.MaxDBConns)
		})
	}
}

func TestLoad_SessionGrace(t *testing.T) {
	t.Setenv("SESSION_GRACE_SECONDS", "0")
	assert.Equal(t, time.Duration(0), Load().SessionGrace)

	t.Setenv("SESSION_GRACE_SECONDS", "-1")
	assert.Equal(t, 5*time.Minute, Load().SessionGrace)
}
