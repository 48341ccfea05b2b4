package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/grading"
	"github.com/stemsi/lms-backend/internal/metrics"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/store"
)

// ExamFinder loads exam definitions. It returns model.ErrExamNotFound for
// unknown ids.
type ExamFinder interface {
	GetByID(ctx context.Context, id string) (*model.Exam, error)
}

// ResultPublisher hands graded results to durable storage.
type ResultPublisher interface {
	Publish(ctx context.Context, result model.ExamResult) error
}

// ExamSessionService starts exam attempts and grades their submissions.
// It composes the session store, the answer key store and the grader.
type ExamSessionService struct {
	exams    ExamFinder
	sessions *store.SessionStore
	keys     *store.AnswerKeyStore
	grader   *grading.Grader
	results  ResultPublisher
	policy   config.SubmissionPolicy
	log      zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService. results may be nil,
// in which case graded results are only returned to the caller.
func NewExamSessionService(
	exams ExamFinder,
	sessions *store.SessionStore,
	keys *store.AnswerKeyStore,
	results ResultPublisher,
	policy config.SubmissionPolicy,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		exams:    exams,
		sessions: sessions,
		keys:     keys,
		grader:   grading.NewGrader(keys),
		results:  results,
		policy:   policy,
		log:      log.With().Str("component", "exam_session_service").Logger(),
	}
}

// StartExam opens a session for the student and returns the questions without
// their correct answers. Essay exams are rejected before anything is stored.
func (s *ExamSessionService) StartExam(ctx context.Context, studentID, examID string) (*model.StartExamResponse, error) {
	exam, err := s.loadMCQExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.DurationMinutes <= 0 {
		return nil, fmt.Errorf("exam %s: %w", exam.ID, model.ErrInvalidDuration)
	}

	key, err := exam.AnswerKey()
	if err != nil {
		return nil, fmt.Errorf("derive answer key: %w", err)
	}
	if err := s.keys.Store(exam.ID, key); err != nil {
		return nil, fmt.Errorf("store answer key: %w", err)
	}

	sess, err := s.sessions.Create(studentID, exam.ID, exam.DurationMinutes)
	if err != nil {
		if errors.Is(err, model.ErrIDGenerationExhausted) {
			s.log.Error().Err(err).Str("exam_id", exam.ID).Msg("Session id space exhausted")
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsStarted.Inc()
	s.log.Info().
		Str("session_id", sess.ID).
		Str("student_id", studentID).
		Str("exam_id", exam.ID).
		Time("expire_at", sess.ExpireAt).
		Msg("Exam session started")

	return &model.StartExamResponse{
		SessionID: sess.ID,
		ExamID:    exam.ID,
		ExamName:  exam.Name,
		Duration:  exam.DurationMinutes,
		ExpireAt:  sess.ExpireAt,
		Questions: exam.StudentQuestions(),
	}, nil
}

// SubmitExamJSON parses a raw answers payload and submits it. The session is
// checked before the payload, so a dead session never reports MalformedInput.
func (s *ExamSessionService) SubmitExamJSON(ctx context.Context, studentID, sessionID string, raw []byte) (*model.ExamResult, error) {
	if _, err := s.liveSession(studentID, sessionID); err != nil {
		return nil, err
	}
	answers, err := model.ParseSubmittedAnswers(raw)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return nil, err
	}
	return s.SubmitExam(ctx, studentID, sessionID, answers)
}

// SubmitExam grades answers for a live session. An empty studentID skips the
// ownership check; otherwise a session owned by someone else is reported as
// invalid. Whether a session may be submitted again is decided by the policy.
func (s *ExamSessionService) SubmitExam(ctx context.Context, studentID, sessionID string, answers model.SubmittedAnswers) (*model.ExamResult, error) {
	sess, err := s.liveSession(studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.submissionAllowed(sess); err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeAlreadySubmitted).Inc()
		return nil, err
	}

	graded, err := s.grader.GradeExam(sess.ExamID, answers)
	if err != nil {
		if errors.Is(err, model.ErrUnknownExam) {
			metrics.Submissions.WithLabelValues(metrics.OutcomeUnknownExam).Inc()
			s.log.Error().
				Err(err).
				Str("session_id", sessionID).
				Str("exam_id", sess.ExamID).
				Msg("Live session has no stored answer key")
		}
		return nil, err
	}

	recorded, err := s.sessions.RecordSubmission(sessionID, s.exclusiveSubmission())
	if err != nil {
		if errors.Is(err, model.ErrAlreadySubmitted) {
			metrics.Submissions.WithLabelValues(metrics.OutcomeAlreadySubmitted).Inc()
		} else {
			metrics.Submissions.WithLabelValues(metrics.OutcomeInvalidSession).Inc()
		}
		return nil, err
	}

	result := model.ExamResult{
		SessionID:    recorded.ID,
		ExamID:       recorded.ExamID,
		StudentID:    recorded.StudentID,
		CorrectCount: graded.Correct,
		Total:        graded.Total,
		Score:        graded.Score(),
		Attempt:      recorded.Submissions,
		SubmittedAt:  *recorded.SubmittedAt,
	}

	if s.results != nil {
		if err := s.results.Publish(ctx, result); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to queue result for persistence")
		}
	}

	metrics.Submissions.WithLabelValues(metrics.OutcomeGraded).Inc()
	metrics.SubmissionScore.Observe(result.Score)
	s.log.Info().
		Str("session_id", sessionID).
		Str("exam_id", result.ExamID).
		Int("correct", result.CorrectCount).
		Int("total", result.Total).
		Int("attempt", result.Attempt).
		Msg("Exam submitted and graded")

	return &result, nil
}

// SessionState reports the remaining time of a live session.
func (s *ExamSessionService) SessionState(ctx context.Context, studentID, sessionID string) (*model.SessionState, error) {
	sess, ok := s.sessions.Get(sessionID)
	now := s.sessions.Now()
	if !ok || sess.IsExpired(now) || (studentID != "" && sess.StudentID != studentID) {
		return nil, model.ErrSessionExpiredOrInvalid
	}

	return &model.SessionState{
		SessionID:     sess.ID,
		ExamID:        sess.ExamID,
		ExpireAt:      sess.ExpireAt,
		RemainingTime: sess.Remaining(now).Seconds(),
		Submissions:   sess.Submissions,
	}, nil
}

// StoreAnswerKeyJSON replaces the answer key of an exam with a serialized one.
func (s *ExamSessionService) StoreAnswerKeyJSON(examID string, raw []byte) (*model.StoreAnswerKeyResponse, error) {
	if err := s.keys.StoreJSON(examID, raw); err != nil {
		return nil, err
	}
	key, err := s.keys.Get(examID)
	if err != nil {
		return nil, fmt.Errorf("read back answer key: %w", err)
	}

	s.log.Info().Str("exam_id", examID).Int("questions", len(key)).Msg("Answer key stored")
	return &model.StoreAnswerKeyResponse{ExamID: examID, Questions: len(key), AnswerKey: key}, nil
}

// RefreshAnswerKey re-derives the answer key from the stored exam definition.
// Keys are not invalidated when an exam is edited, so this is the manual path.
func (s *ExamSessionService) RefreshAnswerKey(ctx context.Context, examID string) (*model.StoreAnswerKeyResponse, error) {
	exam, err := s.loadMCQExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	key, err := exam.AnswerKey()
	if err != nil {
		return nil, fmt.Errorf("derive answer key: %w", err)
	}
	if err := s.keys.Store(exam.ID, key); err != nil {
		return nil, fmt.Errorf("store answer key: %w", err)
	}

	s.log.Info().Str("exam_id", exam.ID).Int("questions", len(key)).Msg("Answer key refreshed")
	return &model.StoreAnswerKeyResponse{ExamID: exam.ID, Questions: len(key), AnswerKey: key}, nil
}

func (s *ExamSessionService) loadMCQExam(ctx context.Context, examID string) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, model.ErrExamNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, model.ErrExamNotFound
	}
	if exam.Type != model.ExamTypeMCQ {
		return nil, model.ErrExamNotMCQ
	}
	if exam.ID == "" {
		exam.ID = examID
	}
	return exam, nil
}

// liveSession returns the session if it is unexpired and, when studentID is
// set, owned by that student.
func (s *ExamSessionService) liveSession(studentID, sessionID string) (model.ExamSession, error) {
	if !s.sessions.IsValid(sessionID) {
		metrics.Submissions.WithLabelValues(metrics.OutcomeInvalidSession).Inc()
		return model.ExamSession{}, model.ErrSessionExpiredOrInvalid
	}
	sess, ok := s.sessions.Get(sessionID)
	if !ok || (studentID != "" && sess.StudentID != studentID) {
		metrics.Submissions.WithLabelValues(metrics.OutcomeInvalidSession).Inc()
		return model.ExamSession{}, model.ErrSessionExpiredOrInvalid
	}
	return sess, nil
}

// submissionAllowed is the single place the resubmission policy is applied
// before grading. RecordSubmission enforces the same rule atomically.
func (s *ExamSessionService) submissionAllowed(sess model.ExamSession) error {
	if s.exclusiveSubmission() && sess.Submissions > 0 {
		return model.ErrAlreadySubmitted
	}
	return nil
}

func (s *ExamSessionService) exclusiveSubmission() bool {
	return s.policy == config.SubmissionSingle
}
