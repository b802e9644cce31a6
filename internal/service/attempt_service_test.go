package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/examio/examio-backend/internal/model"
	"github.com/examio/examio-backend/internal/repository"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeExamGetter struct {
	exams map[uuid.UUID]*model.Exam
}

func (f *fakeExamGetter) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

type fakeQuestionLister struct {
	questions map[uuid.UUID][]model.Question
}

func (f *fakeQuestionLister) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	return f.questions[examID], nil
}

// fakeResultStore enforces the (student, exam) unique constraint the way
// the database does, so duplicate races are observable in tests.
type resultKey struct {
	studentID int
	examID    uuid.UUID
}

type fakeResultStore struct {
	mu      sync.Mutex
	results map[resultKey]*model.Result
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: make(map[resultKey]*model.Result)}
}

func (f *fakeResultStore) Create(_ context.Context, res *model.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := resultKey{res.StudentID, res.ExamID}
	if _, exists := f.results[k]; exists {
		return repository.ErrDuplicateResult
	}
	res.ID = uuid.New()
	stored := *res
	f.results[k] = &stored
	return nil
}

func (f *fakeResultStore) GetByStudentAndExam(_ context.Context, studentID int, examID uuid.UUID) (*model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.results[resultKey{studentID, examID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return res, nil
}

func (f *fakeResultStore) ListByStudent(_ context.Context, studentID int) ([]model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Result
	for _, res := range f.results {
		if res.StudentID == studentID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (f *fakeResultStore) ListAll(_ context.Context) ([]model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Result
	for _, res := range f.results {
		out = append(out, *res)
	}
	return out, nil
}

// ─── Fixtures ───────────────────────────────────────────────────────

// fourQuestionExam builds an exam worth 20 marks (4 questions x 5 marks)
// with a passing threshold of 12. Every correct answer is option 0.
func fourQuestionExam() (*model.Exam, []model.Question) {
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           "JavaScript Fundamentals",
		DurationMinutes: 60,
		TotalMarks:      20,
		PassingMarks:    12,
		IsActive:        true,
	}
	questions := make([]model.Question, 4)
	for i := range questions {
		questions[i] = model.Question{
			ID:            uuid.New(),
			ExamID:        exam.ID,
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 0,
			Marks:         5,
		}
	}
	return exam, questions
}

func newTestService(exam *model.Exam, questions []model.Question) (*AttemptService, *fakeResultStore) {
	store := newFakeResultStore()
	svc := NewAttemptService(
		&fakeExamGetter{exams: map[uuid.UUID]*model.Exam{exam.ID: exam}},
		&fakeQuestionLister{questions: map[uuid.UUID][]model.Question{exam.ID: questions}},
		store,
		zerolog.Nop(),
	)
	return svc, store
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestSubmitPartialCorrect(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	// 3 correct, 1 wrong.
	answers := []model.SubmittedAnswer{
		{QuestionID: questions[0].ID, SelectedAnswer: 0},
		{QuestionID: questions[1].ID, SelectedAnswer: 0},
		{QuestionID: questions[2].ID, SelectedAnswer: 0},
		{QuestionID: questions[3].ID, SelectedAnswer: 2},
	}

	result, err := svc.Submit(context.Background(), exam.ID, 1, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 15 {
		t.Errorf("score = %d, want 15", result.Score)
	}
	if result.Percentage != 75.0 {
		t.Errorf("percentage = %v, want 75", result.Percentage)
	}
	if !result.Passed {
		t.Error("passed = false, want true (15 >= 12)")
	}
}

func TestSubmitAllWrongOrUnanswered(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	answers := []model.SubmittedAnswer{
		{QuestionID: questions[0].ID, SelectedAnswer: 1},
		{QuestionID: questions[1].ID, SelectedAnswer: 3},
		{QuestionID: questions[2].ID, SelectedAnswer: model.AnswerUnanswered},
		{QuestionID: questions[3].ID, SelectedAnswer: model.AnswerUnanswered},
	}

	result, err := svc.Submit(context.Background(), exam.ID, 1, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("score = %d, want 0", result.Score)
	}
	if result.Percentage != 0 {
		t.Errorf("percentage = %v, want 0", result.Percentage)
	}
	if result.Passed {
		t.Error("passed = true, want false")
	}
}

func TestSubmitEmptyAnswerSet(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	result, err := svc.Submit(context.Background(), exam.ID, 1, []model.SubmittedAnswer{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("score = %d, want 0", result.Score)
	}
}

func TestSubmitUnknownQuestionIDsIgnored(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	answers := []model.SubmittedAnswer{
		{QuestionID: questions[0].ID, SelectedAnswer: 0},
		// Belongs to no exam; must contribute nothing.
		{QuestionID: uuid.New(), SelectedAnswer: 0},
	}

	result, err := svc.Submit(context.Background(), exam.ID, 1, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 5 {
		t.Errorf("score = %d, want 5", result.Score)
	}
}

func TestSubmitDuplicateAnswersLastWins(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	answers := []model.SubmittedAnswer{
		{QuestionID: questions[0].ID, SelectedAnswer: 0},
		{QuestionID: questions[0].ID, SelectedAnswer: 2},
	}

	result, err := svc.Submit(context.Background(), exam.ID, 1, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("score = %d, want 0 (later selection overrides)", result.Score)
	}
}

func TestSubmitScoreAtThresholdPasses(t *testing.T) {
	exam, questions := fourQuestionExam()
	exam.PassingMarks = 10
	svc, _ := newTestService(exam, questions)

	answers := []model.SubmittedAnswer{
		{QuestionID: questions[0].ID, SelectedAnswer: 0},
		{QuestionID: questions[1].ID, SelectedAnswer: 0},
	}

	result, err := svc.Submit(context.Background(), exam.ID, 1, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score != 10 {
		t.Fatalf("score = %d, want 10", result.Score)
	}
	if !result.Passed {
		t.Error("passed = false, want true (score == passing marks)")
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	first := []model.SubmittedAnswer{{QuestionID: questions[0].ID, SelectedAnswer: 0}}
	firstResult, err := svc.Submit(context.Background(), exam.ID, 1, first)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second := []model.SubmittedAnswer{
		{QuestionID: questions[0].ID, SelectedAnswer: 0},
		{QuestionID: questions[1].ID, SelectedAnswer: 0},
	}
	if _, err := svc.Submit(context.Background(), exam.ID, 1, second); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second Submit err = %v, want ErrAlreadySubmitted", err)
	}

	// The stored result must still be the first one.
	stored, err := svc.ResultFor(context.Background(), 1, exam.ID)
	if err != nil {
		t.Fatalf("ResultFor: %v", err)
	}
	if stored.Score != firstResult.Score {
		t.Errorf("stored score = %d, want %d", stored.Score, firstResult.Score)
	}
}

func TestSubmitDifferentStudentsIndependent(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	answers := []model.SubmittedAnswer{{QuestionID: questions[0].ID, SelectedAnswer: 0}}
	if _, err := svc.Submit(context.Background(), exam.ID, 1, answers); err != nil {
		t.Fatalf("student 1 Submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), exam.ID, 2, answers); err != nil {
		t.Fatalf("student 2 Submit: %v", err)
	}
}

func TestSubmitConcurrentDuplicates(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	answers := []model.SubmittedAnswer{{QuestionID: questions[0].ID, SelectedAnswer: 0}}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), exam.ID, 1, answers)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadySubmitted):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if duplicates != attempts-1 {
		t.Errorf("duplicates = %d, want %d", duplicates, attempts-1)
	}
}

func TestSubmitExamNotFound(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	_, err := svc.Submit(context.Background(), uuid.New(), 1, nil)
	if !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("err = %v, want ErrExamNotFound", err)
	}
}

func TestSubmitZeroTotalMarksRejected(t *testing.T) {
	exam, questions := fourQuestionExam()
	exam.TotalMarks = 0
	svc, _ := newTestService(exam, questions)

	_, err := svc.Submit(context.Background(), exam.ID, 1, nil)
	if !errors.Is(err, ErrExamNotGradable) {
		t.Fatalf("err = %v, want ErrExamNotGradable", err)
	}
}

func TestSubmitStoresAnswersVerbatim(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	answers := []model.SubmittedAnswer{
		{QuestionID: questions[0].ID, SelectedAnswer: 2},
		{QuestionID: questions[1].ID, SelectedAnswer: model.AnswerUnanswered},
	}

	result, err := svc.Submit(context.Background(), exam.ID, 1, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(result.Answers) != 2 {
		t.Fatalf("stored %d answers, want 2", len(result.Answers))
	}
	if result.Answers[1].SelectedAnswer != model.AnswerUnanswered {
		t.Errorf("unanswered sentinel not preserved: %d", result.Answers[1].SelectedAnswer)
	}
}

func TestResultForMissing(t *testing.T) {
	exam, questions := fourQuestionExam()
	svc, _ := newTestService(exam, questions)

	if _, err := svc.ResultFor(context.Background(), 1, exam.ID); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("err = %v, want ErrResultNotFound", err)
	}
}
