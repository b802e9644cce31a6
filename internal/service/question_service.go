package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examio/examio-backend/internal/model"
	"github.com/examio/examio-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrQuestionNotFound is returned when a question lookup finds nothing.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService handles question authoring. Every mutation queues a
// paper cache rebuild for the owning exam so students never see a stale
// question set.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	examService  *ExamService
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, examService *ExamService) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, examService: examService}
}

// ListByExam retrieves the full question set including the answer key.
// Admin-facing only.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.examService.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// Add creates a question under an exam. Marks defaults to 1.
func (s *QuestionService) Add(ctx context.Context, examID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.examService.GetByID(ctx, examID); err != nil {
		return nil, err
	}

	marks := req.Marks
	if marks == 0 {
		marks = 1
	}
	if *req.CorrectAnswer >= len(req.Options) {
		return nil, errors.New("correct answer index is out of range")
	}

	question := &model.Question{
		ExamID:        examID,
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectAnswer: *req.CorrectAnswer,
		Marks:         marks,
	}
	if err := s.questionRepo.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	s.examService.QueuePaperRefresh(ctx, examID)
	return question, nil
}

// Update applies the non-empty fields of req to a question.
func (s *QuestionService) Update(ctx context.Context, questionID uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	if req.QuestionText != "" {
		question.QuestionText = req.QuestionText
	}
	if req.Options != nil {
		question.Options = req.Options
	}
	if req.CorrectAnswer != nil {
		question.CorrectAnswer = *req.CorrectAnswer
	}
	if req.Marks > 0 {
		question.Marks = req.Marks
	}
	if question.CorrectAnswer >= len(question.Options) {
		return nil, errors.New("correct answer index is out of range")
	}

	if err := s.questionRepo.Update(ctx, question); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}

	s.examService.QueuePaperRefresh(ctx, question.ExamID)
	return question, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, questionID uuid.UUID) error {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return err
	}

	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return err
	}

	s.examService.QueuePaperRefresh(ctx, question.ExamID)
	return nil
}
