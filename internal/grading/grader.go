package grading

import (
	"errors"
	"fmt"

	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/store"
)

// Grade counts the questions of key answered exactly right in submitted.
// Only the key's questions are considered; a missing answer simply fails to
// match. Multi-select questions are all-or-nothing set comparisons.
func Grade(key model.AnswerKey, submitted model.SubmittedAnswers) int {
	correct := 0
	for qid, want := range key {
		got, ok := submitted[qid]
		if !ok {
			continue
		}
		if want.Equal(got) {
			correct++
		}
	}
	return correct
}

// Result is the outcome of grading one submission.
type Result struct {
	ExamID  string
	Correct int
	Total   int
}

// Score returns the percentage of correct answers.
func (r Result) Score() float64 {
	return model.Percentage(r.Correct, r.Total)
}

// KeyLookup resolves a stored answer key by exam id.
type KeyLookup interface {
	Get(examID string) (model.AnswerKey, error)
}

// Grader grades submissions against keys held in a KeyLookup.
type Grader struct {
	keys KeyLookup
}

// NewGrader creates a Grader reading keys from the given lookup.
func NewGrader(keys KeyLookup) *Grader {
	return &Grader{keys: keys}
}

// GradeExam grades submitted against the stored key for examID.
func (g *Grader) GradeExam(examID string, submitted model.SubmittedAnswers) (Result, error) {
	key, err := g.keys.Get(examID)
	if err != nil {
		if errors.Is(err, store.ErrAnswerKeyNotFound) {
			return Result{}, fmt.Errorf("exam %s: %w", examID, model.ErrUnknownExam)
		}
		return Result{}, fmt.Errorf("get answer key: %w", err)
	}

	return Result{
		ExamID:  examID,
		Correct: Grade(key, submitted),
		Total:   len(key),
	}, nil
}
