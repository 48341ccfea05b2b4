package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ExamType enumerates the kinds of exam an author can create.
type ExamType int

const (
	ExamTypeUnknown ExamType = 0
	ExamTypeMCQ     ExamType = 1
	ExamTypeEssay   ExamType = 2
)

func (t ExamType) String() string {
	switch t {
	case ExamTypeMCQ:
		return "mcq"
	case ExamTypeEssay:
		return "essay"
	default:
		return "unknown"
	}
}

// NormalizeExamType maps the loosely typed exam_type field stored on the exam
// document ("mcq", "1", 1, "essay", "2", 2) to an ExamType.
// Anything else is ExamTypeUnknown.
func NormalizeExamType(v interface{}) ExamType {
	var raw string
	switch t := v.(type) {
	case nil:
		return ExamTypeUnknown
	case ExamType:
		return t
	case string:
		raw = t
	case int:
		raw = strconv.Itoa(t)
	case int32:
		raw = strconv.FormatInt(int64(t), 10)
	case int64:
		raw = strconv.FormatInt(t, 10)
	case float64:
		raw = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		raw = fmt.Sprint(t)
	}

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mcq", "1":
		return ExamTypeMCQ
	case "essay", "2":
		return ExamTypeEssay
	default:
		return ExamTypeUnknown
	}
}

// Exam is the read-only view of an exam document used by the grading core.
type Exam struct {
	ID              string   `json:"id"`
	Name            string   `json:"exam_name"`
	Description     string   `json:"exam_description"`
	Type            ExamType `json:"exam_type"`
	ClassID         string   `json:"class_id"`
	Additional      string   `json:"additional,omitempty"`
	DurationMinutes int      `json:"duration"`
	MCQ             []MCQ    `json:"mcq"`
}

// MCQ is a single multiple-choice question. More than one correct index
// makes it a multi-select (MSQ) question.
type MCQ struct {
	ID            string   `json:"id,omitempty"`
	Question      string   `json:"question"`
	Answers       []string `json:"answers"`
	CorrectAnswer []int    `json:"correct_answer"`
}

// QuestionID returns the identifier of the i-th question: its sub-document id
// when one is stored, otherwise its 1-based position.
func (e *Exam) QuestionID(i int) string {
	if i >= 0 && i < len(e.MCQ) && e.MCQ[i].ID != "" {
		return e.MCQ[i].ID
	}
	return strconv.Itoa(i + 1)
}

// AnswerKey derives the server-side answer key from the exam's MCQ list.
func (e *Exam) AnswerKey() (AnswerKey, error) {
	key := make(AnswerKey, len(e.MCQ))
	for i, q := range e.MCQ {
		ans, err := NewAnswer(q.CorrectAnswer, len(q.CorrectAnswer) > 1)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		if ans.IsEmpty() {
			return nil, fmt.Errorf("question %d has no correct answer: %w", i+1, ErrMalformedInput)
		}
		key[e.QuestionID(i)] = ans
	}
	return key, nil
}

// StudentQuestions returns the question list with correct answers stripped.
func (e *Exam) StudentQuestions() []QuestionForStudent {
	out := make([]QuestionForStudent, len(e.MCQ))
	for i, q := range e.MCQ {
		options := make([]string, len(q.Answers))
		copy(options, q.Answers)
		out[i] = QuestionForStudent{
			ID:       e.QuestionID(i),
			Question: q.Question,
			Answers:  options,
			Multi:    len(q.CorrectAnswer) > 1,
		}
	}
	return out
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
	Multi    bool     `json:"multi"`
}
