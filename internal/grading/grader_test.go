package grading

import (
	"testing"

	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multi(t *testing.T, idx ...int) model.Answer {
	t.Helper()
	a, err := model.NewAnswer(idx, true)
	require.NoError(t, err)
	return a
}

func TestGrade_SingleChoice(t *testing.T) {
	key := model.AnswerKey{"q1": model.SingleAnswer(2), "q2": model.SingleAnswer(1)}
	submitted := model.SubmittedAnswers{"q1": model.SingleAnswer(2), "q2": model.SingleAnswer(3)}

	assert.Equal(t, 1, Grade(key, submitted))
}

func TestGrade_MultiSelectIsAllOrNothing(t *testing.T) {
	key := model.AnswerKey{"q1": multi(t, 1, 3)}

	tests := []struct {
		name      string
		submitted model.Answer
		want      int
	}{
		{name: "partial selection", submitted: multi(t, 1), want: 0},
		{name: "same order", submitted: multi(t, 1, 3), want: 1},
		{name: "different order", submitted: multi(t, 3, 1), want: 1},
		{name: "duplicates ignored", submitted: multi(t, 3, 1, 3), want: 1},
		{name: "extra option", submitted: multi(t, 1, 2, 3), want: 0},
		{name: "empty selection", submitted: multi(t), want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(key, model.SubmittedAnswers{"q1": tc.submitted})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGrade_UnansweredQuestionsCountZero(t *testing.T) {
	key := model.AnswerKey{
		"q1": model.SingleAnswer(0),
		"q2": model.SingleAnswer(1),
		"q3": model.SingleAnswer(2),
	}
	submitted := model.SubmittedAnswers{"q1": model.SingleAnswer(0), "q3": model.SingleAnswer(1)}

	assert.Equal(t, 1, Grade(key, submitted))
}

func TestGrade_IndexZeroIsAnAnswer(t *testing.T) {
	key := model.AnswerKey{"1": model.SingleAnswer(0)}
	assert.Equal(t, 1, Grade(key, model.SubmittedAnswers{"1": model.SingleAnswer(0)}))
}

func TestGrade_IgnoresQuestionsOutsideTheKey(t *testing.T) {
	key := model.AnswerKey{"q1": model.SingleAnswer(1)}
	submitted := model.SubmittedAnswers{"q1": model.SingleAnswer(1), "q9": model.SingleAnswer(1)}

	assert.Equal(t, 1, Grade(key, submitted))
}

func TestGrade_EmptyKey(t *testing.T) {
	assert.Equal(t, 0, Grade(model.AnswerKey{}, model.SubmittedAnswers{"q1": model.SingleAnswer(1)}))
}

func TestGrader_GradeExam(t *testing.T) {
	keys := store.NewAnswerKeyStore(nil)
	require.NoError(t, keys.Store("exam-1", model.AnswerKey{
		"q1": model.SingleAnswer(2),
		"q2": multi(t, 0, 1),
	}))
	g := NewGrader(keys)

	res, err := g.GradeExam("exam-1", model.SubmittedAnswers{
		"q1": model.SingleAnswer(2),
		"q2": multi(t, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, 2, res.Total)
	assert.InDelta(t, 100.0, res.Score(), 0.0001)
}

func TestGrader_GradeExam_UnknownExam(t *testing.T) {
	g := NewGrader(store.NewAnswerKeyStore(nil))

	_, err := g.GradeExam("missing", model.SubmittedAnswers{})
	assert.ErrorIs(t, err, model.ErrUnknownExam)
}

func TestGrader_UsesLatestStoredKey(t *testing.T) {
	keys := store.NewAnswerKeyStore(nil)
	require.NoError(t, keys.Store("exam-1", model.AnswerKey{"q1": model.SingleAnswer(1), "q2": model.SingleAnswer(1)}))
	require.NoError(t, keys.Store("exam-1", model.AnswerKey{"q1": model.SingleAnswer(3)}))
	g := NewGrader(keys)

	res, err := g.GradeExam("exam-1", model.SubmittedAnswers{"q1": model.SingleAnswer(3), "q2": model.SingleAnswer(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 1, res.Total)
}
