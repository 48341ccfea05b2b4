package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExamFinder struct {
	exams map[string]*model.Exam
	err   error
}

func (f *fakeExamFinder) GetByID(_ context.Context, id string) (*model.Exam, error) {
	if f.err != nil {
		return nil, f.err
	}
	exam, ok := f.exams[id]
	if !ok {
		return nil, model.ErrExamNotFound
	}
	cp := *exam
	return &cp, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	results []model.ExamResult
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, result model.ExamResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result)
	return p.err
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc       *ExamSessionService
	sessions  *store.SessionStore
	keys      *store.AnswerKeyStore
	finder    *fakeExamFinder
	publisher *fakePublisher
	clock     *testClock
}

func newFixture(t *testing.T, policy config.SubmissionPolicy) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	finder := &fakeExamFinder{exams: map[string]*model.Exam{
		"algebra": {
			ID:              "algebra",
			Name:            "Algebra",
			Type:            model.ExamTypeMCQ,
			DurationMinutes: 1,
			MCQ: []model.MCQ{
				{Question: "2+2?", Answers: []string{"3", "4", "5"}, CorrectAnswer: []int{1}},
				{Question: "Even numbers?", Answers: []string{"2", "3", "4"}, CorrectAnswer: []int{0, 2}},
				{Question: "First letter?", Answers: []string{"a", "b"}, CorrectAnswer: []int{0}},
			},
		},
		"essay": {
			ID:              "essay",
			Name:            "Write about Go",
			Type:            model.ExamTypeEssay,
			DurationMinutes: 60,
		},
		"untimed": {
			ID:   "untimed",
			Name: "Broken",
			Type: model.ExamTypeMCQ,
			MCQ:  []model.MCQ{{Question: "?", Answers: []string{"x"}, CorrectAnswer: []int{0}}},
		},
	}}

	sessions := store.NewSessionStore(store.WithClock(clock.Now))
	keys := store.NewAnswerKeyStore(clock.Now)
	publisher := &fakePublisher{}

	return &fixture{
		svc:       NewExamSessionService(finder, sessions, keys, publisher, policy, zerolog.Nop()),
		sessions:  sessions,
		keys:      keys,
		finder:    finder,
		publisher: publisher,
		clock:     clock,
	}
}

func TestStartExam_HidesCorrectAnswers(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)

	resp, err := f.svc.StartExam(context.Background(), "student-1", "algebra")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "algebra", resp.ExamID)
	assert.Equal(t, 1, resp.Duration)
	assert.Equal(t, f.clock.Now().Add(time.Minute), resp.ExpireAt)
	require.Len(t, resp.Questions, 3)
	assert.Equal(t, "1", resp.Questions[0].ID)
	assert.True(t, resp.Questions[1].Multi)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct")

	assert.True(t, f.sessions.IsValid(resp.SessionID))
	key, err := f.keys.Get("algebra")
	require.NoError(t, err)
	assert.Len(t, key, 3)
}

func TestStartExam_RejectsEssayWithoutSideEffects(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)

	_, err := f.svc.StartExam(context.Background(), "student-1", "essay")
	assert.ErrorIs(t, err, model.ErrExamNotMCQ)
	assert.Equal(t, 0, f.sessions.Len())
	assert.Equal(t, 0, f.keys.Len())
}

func TestStartExam_Errors(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)

	_, err := f.svc.StartExam(context.Background(), "student-1", "missing")
	assert.ErrorIs(t, err, model.ErrExamNotFound)

	_, err = f.svc.StartExam(context.Background(), "student-1", "untimed")
	assert.ErrorIs(t, err, model.ErrInvalidDuration)
	assert.Equal(t, 0, f.keys.Len())

	f.finder.err = errors.New("connection refused")
	_, err = f.svc.StartExam(context.Background(), "student-1", "algebra")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrExamNotFound)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestSubmitExam_GradesAndPublishes(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	result, err := f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": 1, "2": [2, 0], "3": 1}`))
	require.NoError(t, err)

	assert.Equal(t, 2, result.CorrectCount)
	assert.Equal(t, 3, result.Total)
	assert.InDelta(t, 66.67, result.Score, 0.01)
	assert.Equal(t, 1, result.Attempt)
	assert.Equal(t, "student-1", result.StudentID)

	require.Len(t, f.publisher.results, 1)
	assert.Equal(t, *result, f.publisher.results[0])
}

func TestSubmitExam_IndexZeroCounts(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	result, err := f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"3": 0}`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.CorrectCount)
}

func TestSubmitExam_InvalidSession(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	_, err := f.svc.SubmitExamJSON(ctx, "", "nonexistent-id", []byte(`{"1": 1}`))
	assert.ErrorIs(t, err, model.ErrSessionExpiredOrInvalid)

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": 1}`))
	assert.ErrorIs(t, err, model.ErrSessionExpiredOrInvalid)
	assert.Empty(t, f.publisher.results)
}

func TestSubmitExam_OtherStudentsSessionIsInvalid(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	_, err = f.svc.SubmitExamJSON(ctx, "student-2", start.SessionID, []byte(`{"1": 1}`))
	assert.ErrorIs(t, err, model.ErrSessionExpiredOrInvalid)

	_, err = f.svc.SubmitExamJSON(ctx, "", start.SessionID, []byte(`{"1": 1}`))
	assert.NoError(t, err)
}

func TestSubmitExam_MalformedAnswers(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	_, err = f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": "b"}`))
	assert.ErrorIs(t, err, model.ErrMalformedInput)

	sess, ok := f.sessions.Get(start.SessionID)
	require.True(t, ok)
	assert.Equal(t, 0, sess.Submissions)
}

func TestSubmitExamJSON_ChecksSessionBeforePayload(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	_, err := f.svc.SubmitExamJSON(ctx, "", "nonexistent-id", []byte(`{"1": "x"}`))
	assert.ErrorIs(t, err, model.ErrSessionExpiredOrInvalid)

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	_, err = f.svc.SubmitExamJSON(ctx, "student-2", start.SessionID, []byte(`not json`))
	assert.ErrorIs(t, err, model.ErrSessionExpiredOrInvalid)

	f.clock.Advance(61 * time.Second)
	_, err = f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": "x"}`))
	assert.ErrorIs(t, err, model.ErrSessionExpiredOrInvalid)
}

func TestSubmitExamJSON_NullAnswerIsUnanswered(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	result, err := f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": 1, "2": null}`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 3, result.Total)
}

func TestSubmitExam_UnknownExam(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)

	sess, err := f.sessions.Create("student-1", "no-key", 10)
	require.NoError(t, err)

	_, err = f.svc.SubmitExam(context.Background(), "student-1", sess.ID, model.SubmittedAnswers{})
	assert.ErrorIs(t, err, model.ErrUnknownExam)
}

func TestSubmitExam_ResubmissionPolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     config.SubmissionPolicy
		secondErr  error
		wantResult int
	}{
		{name: "allow resubmit", policy: config.SubmissionAllowResubmit, wantResult: 2},
		{name: "single", policy: config.SubmissionSingle, secondErr: model.ErrAlreadySubmitted, wantResult: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.policy)
			ctx := context.Background()

			start, err := f.svc.StartExam(ctx, "student-1", "algebra")
			require.NoError(t, err)

			_, err = f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": 0}`))
			require.NoError(t, err)

			second, err := f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": 1}`))
			if tc.secondErr != nil {
				assert.ErrorIs(t, err, tc.secondErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 2, second.Attempt)
				assert.Equal(t, 1, second.CorrectCount)
			}
			assert.Len(t, f.publisher.results, tc.wantResult)
		})
	}
}

func TestSubmitExam_PublishFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	f.publisher.err = errors.New("redis down")
	ctx := context.Background()

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	result, err := f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": 1}`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.CorrectCount)
}

func TestSubmitExam_NilPublisher(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	svc := NewExamSessionService(f.finder, f.sessions, f.keys, nil, config.SubmissionAllowResubmit, zerolog.Nop())
	ctx := context.Background()

	start, err := svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	_, err = svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{}`))
	assert.NoError(t, err)
}

func TestSessionState(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	f.clock.Advance(20 * time.Second)
	state, err := f.svc.SessionState(ctx, "student-1", start.SessionID)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, state.RemainingTime, 0.001)
	assert.Equal(t, 0, state.Submissions)

	_, err = f.svc.SessionState(ctx, "student-2", start.SessionID)
	assert.ErrorIs(t, err, model.ErrSessionExpiredOrInvalid)

	f.clock.Advance(40 * time.Second)
	_, err = f.svc.SessionState(ctx, "student-1", start.SessionID)
	assert.ErrorIs(t, err, model.ErrSessionExpiredOrInvalid)
}

func TestStoreAnswerKeyJSON_ReplacesKey(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	start, err := f.svc.StartExam(ctx, "student-1", "algebra")
	require.NoError(t, err)

	resp, err := f.svc.StoreAnswerKeyJSON("algebra", []byte(`{"1": 2}`))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Questions)

	result, err := f.svc.SubmitExamJSON(ctx, "student-1", start.SessionID, []byte(`{"1": 2}`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 1, result.Total)

	_, err = f.svc.StoreAnswerKeyJSON("algebra", []byte(`{"1": "x"}`))
	assert.ErrorIs(t, err, model.ErrMalformedInput)
}

func TestRefreshAnswerKey(t *testing.T) {
	f := newFixture(t, config.SubmissionAllowResubmit)
	ctx := context.Background()

	_, err := f.svc.StoreAnswerKeyJSON("algebra", []byte(`{"1": 2}`))
	require.NoError(t, err)

	resp, err := f.svc.RefreshAnswerKey(ctx, "algebra")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Questions)
	require.Contains(t, resp.AnswerKey, "2")
	assert.Equal(t, []int{0, 2}, resp.AnswerKey["2"].Indices())

	_, err = f.svc.RefreshAnswerKey(ctx, "essay")
	assert.ErrorIs(t, err, model.ErrExamNotMCQ)
}
