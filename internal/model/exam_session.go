package model

import (
	"encoding/json"
	"time"
)

// ExamSession is a time-bounded attempt binding a student to an exam.
// It is valid while now < ExpireAt; expiry is purely a clock comparison.
type ExamSession struct {
	ID          string     `json:"session_id"`
	StudentID   string     `json:"student_id"`
	ExamID      string     `json:"exam_id"`
	StartedAt   time.Time  `json:"started_at"`
	ExpireAt    time.Time  `json:"expire_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Submissions int        `json:"submissions"`
}

// IsExpired reports whether the session is dead at the given instant.
func (s *ExamSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpireAt)
}

// Remaining returns the time left before expiry, never negative.
func (s *ExamSession) Remaining(now time.Time) time.Duration {
	if d := s.ExpireAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// StartExamResponse is returned to the student when an exam attempt starts.
// It never carries correct answers.
type StartExamResponse struct {
	SessionID string               `json:"session_id"`
	ExamID    string               `json:"exam_id"`
	ExamName  string               `json:"exam_name"`
	Duration  int                  `json:"duration"`
	ExpireAt  time.Time            `json:"expire_at"`
	Questions []QuestionForStudent `json:"questions"`
}

// SubmitExamRequest is the payload for submitting an exam attempt.
// Answers is kept raw so it can be validated at the trust boundary.
type SubmitExamRequest struct {
	SessionID string          `json:"session_id" binding:"required,max=64"`
	Answers   json.RawMessage `json:"answers" binding:"required,json_object"`
}

// SessionState is the live view of a session, used to restore a reloaded page.
type SessionState struct {
	SessionID     string    `json:"session_id"`
	ExamID        string    `json:"exam_id"`
	ExpireAt      time.Time `json:"expire_at"`
	RemainingTime float64   `json:"remaining_time"`
	Submissions   int       `json:"submissions"`
}
