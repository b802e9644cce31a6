package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examio/examio-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam in creation order.
// The rows include the answer key; callers serving students must project
// through model.QuestionForStudent.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, options, correct_answer, marks, created_at
		 FROM questions WHERE exam_id = $1
		 ORDER BY created_at, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var optionsRaw []byte
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &optionsRaw, &q.CorrectAnswer, &q.Marks, &q.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(optionsRaw, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	var optionsRaw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, question_text, options, correct_answer, marks, created_at
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.ExamID, &q.QuestionText, &optionsRaw, &q.CorrectAnswer, &q.Marks, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(optionsRaw, &q.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return q, nil
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	optionsRaw, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_text, options, correct_answer, marks)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		q.ExamID, q.QuestionText, optionsRaw, q.CorrectAnswer, q.Marks,
	).Scan(&q.ID, &q.CreatedAt)
}

// Update persists all mutable question fields.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	optionsRaw, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET question_text = $1, options = $2, correct_answer = $3, marks = $4
		 WHERE id = $5`,
		q.QuestionText, optionsRaw, q.CorrectAnswer, q.Marks, q.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("question not found")
	}
	return nil
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("question not found")
	}
	return nil
}
