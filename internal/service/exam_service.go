package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examio/examio-backend/internal/config"
	"github.com/examio/examio-backend/internal/model"
	"github.com/examio/examio-backend/internal/repository"
	"github.com/examio/examio-backend/internal/response"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrExamNotFound        = errors.New("exam not found")
	ErrExamInactive        = errors.New("exam is not active")
	ErrNoQuestions         = errors.New("exam has no questions")
	ErrPassingExceedsTotal = errors.New("passing marks may not exceed total marks")
)

// ExamService handles exam business logic and the Redis paper cache.
// The cached paper is the student-facing payload: exam metadata plus the
// question set with the answer key stripped before it ever leaves the
// service.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return exam, nil
}

// ListActive retrieves active exams for the student listing.
func (s *ExamService) ListActive(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.examRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// ListPaginated retrieves all exams with pagination for the admin view.
func (s *ExamService) ListPaginated(ctx context.Context, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	exams, total, err := s.examRepo.ListPaginated(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return exams, pagination, nil
}

// Create inserts a new exam.
func (s *ExamService) Create(ctx context.Context, exam *model.Exam) error {
	if exam.PassingMarks > exam.TotalMarks {
		return ErrPassingExceedsTotal
	}
	return s.examRepo.Create(ctx, exam)
}

// Update applies the non-empty fields of req to the exam and queues a
// paper cache rebuild.
func (s *ExamService) Update(ctx context.Context, examID uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.DurationMinutes > 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.TotalMarks > 0 {
		exam.TotalMarks = req.TotalMarks
	}
	if req.PassingMarks != nil {
		exam.PassingMarks = *req.PassingMarks
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}

	if exam.PassingMarks > exam.TotalMarks {
		return nil, ErrPassingExceedsTotal
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	s.QueuePaperRefresh(ctx, examID)
	return exam, nil
}

// Delete removes an exam, its questions and results (cascade), and its
// cached paper.
func (s *ExamService) Delete(ctx context.Context, examID uuid.UUID) error {
	if err := s.examRepo.Delete(ctx, examID); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to drop cached paper")
	}
	return nil
}

// GetPaper returns the student-facing paper for an exam, serving from
// Redis when warm and falling back to PostgreSQL on a miss. The fallback
// self-heals the cache.
func (s *ExamService) GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamPaperKey(examID.String())).Result()
	if err == nil {
		paper := &model.ExamPaper{}
		if err := json.Unmarshal([]byte(raw), paper); err == nil {
			return paper, nil
		}
		// Corrupt cache entry: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read paper cache: %w", err)
	}

	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exam.IsActive {
		return nil, ErrExamInactive
	}

	paper, err := s.buildPaper(ctx, exam)
	if err != nil {
		return nil, err
	}
	if err := s.cachePaper(ctx, paper); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to warm paper cache")
	}
	return paper, nil
}

// WarmPaperCache rebuilds and stores the cached paper for one exam.
// Inactive exams and exams without questions get their cache entry
// dropped instead.
func (s *ExamService) WarmPaperCache(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, ErrExamNotFound) {
			return s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err()
		}
		return err
	}
	if !exam.IsActive {
		return s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err()
	}

	paper, err := s.buildPaper(ctx, exam)
	if err != nil {
		if errors.Is(err, ErrNoQuestions) {
			return s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err()
		}
		return err
	}
	return s.cachePaper(ctx, paper)
}

// PrewarmActive loads every active exam's paper into Redis. Called once
// on startup before traffic is accepted.
func (s *ExamService) PrewarmActive(ctx context.Context) error {
	exams, err := s.examRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active exams: %w", err)
	}

	warmed := 0
	for _, exam := range exams {
		if err := s.WarmPaperCache(ctx, exam.ID); err != nil {
			s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Prewarm failed for exam")
			continue
		}
		warmed++
	}

	s.log.Info().Int("exams", warmed).Msg("Paper caches prewarmed")
	return nil
}

// QueuePaperRefresh asks the background worker to rebuild an exam's
// cached paper. Failures are logged only; a stale cache self-heals on
// the next miss.
func (s *ExamService) QueuePaperRefresh(ctx context.Context, examID uuid.UUID) {
	if err := s.rdb.RPush(ctx, config.WorkerKey.PaperRefreshQueue, examID.String()).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to queue paper refresh")
	}
}

// buildPaper assembles the answer-key-free payload from PostgreSQL.
func (s *ExamService) buildPaper(ctx context.Context, exam *model.Exam) (*model.ExamPaper, error) {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}

	return &model.ExamPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		Description:     exam.Description,
		DurationMinutes: exam.DurationMinutes,
		TotalMarks:      exam.TotalMarks,
		Questions:       studentQuestions,
	}, nil
}

func (s *ExamService) cachePaper(ctx context.Context, paper *model.ExamPaper) error {
	raw, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamPaperKey(paper.ExamID.String()), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache paper: %w", err)
	}
	return nil
}
