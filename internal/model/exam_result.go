package model

import "time"

// ExamResult is the graded outcome of one submission.
type ExamResult struct {
	SessionID    string    `json:"session_id"`
	ExamID       string    `json:"exam_id"`
	StudentID    string    `json:"student_id"`
	CorrectCount int       `json:"correct_count"`
	Total        int       `json:"total"`
	Score        float64   `json:"score"`
	Attempt      int       `json:"attempt"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Percentage computes correct/total as a 0-100 score.
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// StoreAnswerKeyResponse acknowledges an answer key upload and echoes the
// normalized key back to the admin.
type StoreAnswerKeyResponse struct {
	ExamID    string    `json:"exam_id"`
	Questions int       `json:"questions"`
	AnswerKey AnswerKey `json:"answer_key"`
}
