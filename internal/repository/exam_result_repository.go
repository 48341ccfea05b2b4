package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/lms-backend/internal/model"
)

// ExamResultRepository persists graded submissions.
type ExamResultRepository struct {
	pool *pgxpool.Pool
}

// NewExamResultRepository creates a new ExamResultRepository.
func NewExamResultRepository(pool *pgxpool.Pool) *ExamResultRepository {
	return &ExamResultRepository{pool: pool}
}

// InsertBatch writes many results in one statement. Re-delivered results
// (same session and attempt) are ignored.
func (r *ExamResultRepository) InsertBatch(ctx context.Context, results []model.ExamResult) error {
	n := len(results)
	if n == 0 {
		return nil
	}

	sessionIDs := make([]string, n)
	examIDs := make([]string, n)
	studentIDs := make([]string, n)
	correct := make([]int32, n)
	totals := make([]int32, n)
	scores := make([]float64, n)
	attempts := make([]int32, n)
	submittedAts := make([]time.Time, n)

	for i, res := range results {
		sessionIDs[i] = res.SessionID
		examIDs[i] = res.ExamID
		studentIDs[i] = res.StudentID
		correct[i] = int32(res.CorrectCount)
		totals[i] = int32(res.Total)
		scores[i] = res.Score
		attempts[i] = int32(res.Attempt)
		submittedAts[i] = res.SubmittedAt
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO exam_results
			(session_id, exam_id, student_id, correct_count, total, score, attempt, submitted_at)
		SELECT * FROM UNNEST(
			$1::text[],
			$2::text[],
			$3::text[],
			$4::int[],
			$5::int[],
			$6::float8[],
			$7::int[],
			$8::timestamptz[]
		)
		ON CONFLICT (session_id, attempt) DO NOTHING`,
		sessionIDs, examIDs, studentIDs, correct, totals, scores, attempts, submittedAts,
	)
	return err
}

// Insert writes a single result.
func (r *ExamResultRepository) Insert(ctx context.Context, res *model.ExamResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_results
			(session_id, exam_id, student_id, correct_count, total, score, attempt, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (session_id, attempt) DO NOTHING`,
		res.SessionID, res.ExamID, res.StudentID, res.CorrectCount, res.Total, res.Score, res.Attempt, res.SubmittedAt,
	)
	return err
}

// ListByExam returns one page of results for an exam, newest first, plus the total count.
func (r *ExamResultRepository) ListByExam(ctx context.Context, examID string, page, perPage int) ([]model.ExamResult, int, error) {
	offset := (page - 1) * perPage

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT session_id, exam_id, student_id, correct_count, total, score, attempt, submitted_at
		 FROM exam_results
		 WHERE exam_id = $1
		 ORDER BY submitted_at DESC
		 LIMIT $2 OFFSET $3`, examID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		var res model.ExamResult
		if err := rows.Scan(
			&res.SessionID, &res.ExamID, &res.StudentID, &res.CorrectCount,
			&res.Total, &res.Score, &res.Attempt, &res.SubmittedAt,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
