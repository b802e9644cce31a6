package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examio/examio-backend/internal/model"
	"github.com/examio/examio-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Attempt errors.
var (
	ErrAlreadySubmitted = errors.New("exam already submitted by this student")
	ErrResultNotFound   = errors.New("result not found")
	ErrExamNotGradable  = errors.New("exam total marks must be positive")
)

// ExamGetter looks up exam metadata.
type ExamGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// QuestionLister loads the full question set, answer key included, for
// an exam.
type QuestionLister interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// ResultStore persists and retrieves results. Create must return
// repository.ErrDuplicateResult when the (student, exam) unique
// constraint is violated.
type ResultStore interface {
	Create(ctx context.Context, res *model.Result) error
	GetByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Result, error)
	ListAll(ctx context.Context) ([]model.Result, error)
}

// AttemptService is the scoring engine: it grades a submitted answer set
// against the exam's answer key and persists the one-and-only result for
// that (student, exam) pair.
type AttemptService struct {
	exams     ExamGetter
	questions QuestionLister
	results   ResultStore
	log       zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(exams ExamGetter, questions QuestionLister, results ResultStore, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		exams:     exams,
		questions: questions,
		results:   results,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

// Submit grades an answer set and persists the result.
//
// The up-front duplicate check is a UX fast path only: two racing
// submissions both pass it, and the loser is rejected by the storage
// unique constraint and surfaced as ErrAlreadySubmitted. Unknown
// question IDs and unanswered questions contribute zero; there is no
// partial credit and no penalty for wrong answers. The submitted answers
// are stored verbatim, sentinels included, for later display.
func (s *AttemptService) Submit(ctx context.Context, examID uuid.UUID, studentID int, answers []model.SubmittedAnswer) (*model.Result, error) {
	_, err := s.results.GetByStudentAndExam(ctx, studentID, examID)
	switch {
	case err == nil:
		return nil, ErrAlreadySubmitted
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("check existing result: %w", err)
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrExamNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TotalMarks <= 0 {
		return nil, ErrExamNotGradable
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	score := scoreAnswers(questions, answers)

	result := &model.Result{
		StudentID:  studentID,
		ExamID:     examID,
		Answers:    answers,
		Score:      score,
		TotalMarks: exam.TotalMarks,
		Percentage: float64(score) / float64(exam.TotalMarks) * 100,
		Passed:     score >= exam.PassingMarks,
	}

	if err := s.results.Create(ctx, result); err != nil {
		if errors.Is(err, repository.ErrDuplicateResult) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("store result: %w", err)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Int("score", score).
		Bool("passed", result.Passed).
		Msg("Attempt graded")

	return result, nil
}

// ResultFor retrieves the unique result for a (student, exam) pair.
func (s *AttemptService) ResultFor(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error) {
	res, err := s.results.GetByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListForStudent retrieves all of a student's results.
func (s *AttemptService) ListForStudent(ctx context.Context, studentID int) ([]model.Result, error) {
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, nil
}

// ListAll retrieves every result. Admin only.
func (s *AttemptService) ListAll(ctx context.Context) ([]model.Result, error) {
	results, err := s.results.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, nil
}

// scoreAnswers sums the marks of every question whose submitted answer
// matches its correct index. Later duplicates of the same question in
// the answer set win, matching last-write semantics on the client.
func scoreAnswers(questions []model.Question, answers []model.SubmittedAnswer) int {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	selected := make(map[uuid.UUID]int, len(answers))
	for _, a := range answers {
		if _, ok := byID[a.QuestionID]; ok {
			selected[a.QuestionID] = a.SelectedAnswer
		}
	}

	score := 0
	for id, q := range byID {
		if picked, ok := selected[id]; ok && picked == q.CorrectAnswer {
			score += q.Marks
		}
	}
	return score
}
