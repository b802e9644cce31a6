package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examio/examio-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateResult is returned when an insert violates the one result
// per (student, exam) unique constraint. The constraint is the
// authoritative single-attempt guarantee; any racing duplicate submission
// lands here.
var ErrDuplicateResult = errors.New("result already exists for this student and exam")

// ResultRepository handles result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a new result. Results are immutable: there is no
// update path, only this single insert.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	answersRaw, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO results (student_id, exam_id, answers, score, total_marks, percentage, passed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, submitted_at`,
		res.StudentID, res.ExamID, answersRaw, res.Score,
		res.TotalMarks, res.Percentage, res.Passed,
	).Scan(&res.ID, &res.SubmittedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateResult
	}
	return err
}

const resultColumns = `id, student_id, exam_id, answers, score, total_marks, percentage, passed, submitted_at`

func scanResult(row interface{ Scan(...any) error }, res *model.Result) error {
	var answersRaw []byte
	if err := row.Scan(&res.ID, &res.StudentID, &res.ExamID, &answersRaw,
		&res.Score, &res.TotalMarks, &res.Percentage, &res.Passed, &res.SubmittedAt); err != nil {
		return err
	}
	if err := json.Unmarshal(answersRaw, &res.Answers); err != nil {
		return fmt.Errorf("decode answers for result %s: %w", res.ID, err)
	}
	return nil
}

// GetByStudentAndExam retrieves the unique result for a (student, exam)
// pair. Returns pgx.ErrNoRows when no attempt exists.
func (r *ResultRepository) GetByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE student_id = $1 AND exam_id = $2`, studentID, examID)
	if err := scanResult(row, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListByStudent retrieves all of a student's results, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results
		 WHERE student_id = $1 ORDER BY submitted_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := scanResult(rows, &res); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListAll retrieves every result, newest first. Admin only.
func (r *ResultRepository) ListAll(ctx context.Context) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := scanResult(rows, &res); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
