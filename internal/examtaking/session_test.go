package examtaking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/examio/examio-backend/internal/model"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeLoader struct {
	paper    *model.ExamPaper
	paperErr error
	prior    *model.Result
	priorErr error
}

func (f *fakeLoader) LoadPaper(context.Context) (*model.ExamPaper, error) {
	return f.paper, f.paperErr
}

func (f *fakeLoader) PriorResult(context.Context) (*model.Result, error) {
	return f.prior, f.priorErr
}

type fakeSubmitter struct {
	mu       sync.Mutex
	calls    int
	received [][]model.SubmittedAnswer
	result   *model.Result
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, answers []model.SubmittedAnswer) (*model.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.received = append(f.received, answers)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeTickSource lets tests drive Run without waiting on wall time.
type fakeTickSource struct {
	ch      chan time.Time
	stopped chan struct{}
}

func newFakeTickSource() *fakeTickSource {
	return &fakeTickSource{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (f *fakeTickSource) C() <-chan time.Time { return f.ch }
func (f *fakeTickSource) Stop()               { close(f.stopped) }

// ─── Fixtures ───────────────────────────────────────────────────────

func twoQuestionPaper() *model.ExamPaper {
	return &model.ExamPaper{
		ExamID:          uuid.New(),
		Title:           "Sample",
		DurationMinutes: 2,
		TotalMarks:      10,
		Questions: []model.QuestionForStudent{
			{ID: uuid.New(), Options: []string{"a", "b", "c", "d"}},
			{ID: uuid.New(), Options: []string{"a", "b", "c", "d"}},
		},
	}
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestStartInProgress(t *testing.T) {
	paper := twoQuestionPaper()
	s := NewSession(&fakeLoader{paper: paper}, &fakeSubmitter{}, Config{})

	if got := s.Start(context.Background()); got != StateInProgress {
		t.Fatalf("state = %s, want IN_PROGRESS", got)
	}
	if got := s.Remaining(); got != 120 {
		t.Errorf("remaining = %d, want 120 (2 minutes)", got)
	}
}

func TestStartBlockedOnPriorResult(t *testing.T) {
	prior := &model.Result{ID: uuid.New(), Score: 7}
	s := NewSession(&fakeLoader{prior: prior}, &fakeSubmitter{}, Config{})

	if got := s.Start(context.Background()); got != StateBlocked {
		t.Fatalf("state = %s, want BLOCKED", got)
	}
	if s.Result() != prior {
		t.Error("blocked session must expose the prior result")
	}
	if err := s.Submit(context.Background()); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("Submit err = %v, want ErrNotInProgress", err)
	}
}

func TestStartErroredOnLoadFailure(t *testing.T) {
	boom := errors.New("paper unavailable")
	s := NewSession(&fakeLoader{paperErr: boom}, &fakeSubmitter{}, Config{})

	if got := s.Start(context.Background()); got != StateErrored {
		t.Fatalf("state = %s, want ERRORED", got)
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err() = %v, want %v", s.Err(), boom)
	}
}

func TestSelectLastWriteWins(t *testing.T) {
	paper := twoQuestionPaper()
	s := NewSession(&fakeLoader{paper: paper}, &fakeSubmitter{result: &model.Result{}}, Config{})
	s.Start(context.Background())

	q := paper.Questions[0].ID
	if err := s.Select(q, 1); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := s.Select(q, 3); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := s.Answered(); got != 1 {
		t.Errorf("answered = %d, want 1", got)
	}
}

func TestSelectUnknownQuestionRejected(t *testing.T) {
	paper := twoQuestionPaper()
	s := NewSession(&fakeLoader{paper: paper}, &fakeSubmitter{}, Config{})
	s.Start(context.Background())

	if err := s.Select(uuid.New(), 0); err == nil {
		t.Error("Select with a foreign question ID must fail")
	}
}

func TestCountdownMonotonic(t *testing.T) {
	paper := twoQuestionPaper()
	var seen []int
	s := NewSession(&fakeLoader{paper: paper}, &fakeSubmitter{result: &model.Result{}}, Config{
		OnTick: func(remaining int) { seen = append(seen, remaining) },
	})
	s.Start(context.Background())

	for i := 0; i < 5; i++ {
		s.Tick(context.Background())
	}

	if len(seen) != 5 {
		t.Fatalf("got %d ticks, want 5", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] != seen[i-1]-1 {
			t.Fatalf("countdown not monotonic: %v", seen)
		}
	}
}

func TestAutoSubmitAtZeroSkipsConfirm(t *testing.T) {
	paper := twoQuestionPaper()
	submitter := &fakeSubmitter{result: &model.Result{ID: uuid.New()}}
	confirmCalled := false
	s := NewSession(&fakeLoader{paper: paper}, submitter, Config{
		Confirm: func(int) bool { confirmCalled = true; return false },
	})
	s.Start(context.Background())

	// One answered, one left blank; run the clock out.
	s.Select(paper.Questions[0].ID, 2)
	for s.State() == StateInProgress {
		s.Tick(context.Background())
	}

	if confirmCalled {
		t.Error("timeout submission must not consult Confirm")
	}
	if got := s.State(); got != StateDone {
		t.Fatalf("state = %s, want DONE", got)
	}
	if submitter.callCount() != 1 {
		t.Fatalf("submit calls = %d, want 1", submitter.callCount())
	}

	// The packaged set covers every question, blanks as the sentinel.
	packaged := submitter.received[0]
	if len(packaged) != 2 {
		t.Fatalf("packaged %d answers, want 2", len(packaged))
	}
	byID := map[uuid.UUID]int{}
	for _, a := range packaged {
		byID[a.QuestionID] = a.SelectedAnswer
	}
	if byID[paper.Questions[0].ID] != 2 {
		t.Errorf("answered question = %d, want 2", byID[paper.Questions[0].ID])
	}
	if byID[paper.Questions[1].ID] != model.AnswerUnanswered {
		t.Errorf("blank question = %d, want unanswered sentinel", byID[paper.Questions[1].ID])
	}
}

func TestManualSubmitConfirmDeclined(t *testing.T) {
	paper := twoQuestionPaper()
	submitter := &fakeSubmitter{result: &model.Result{}}
	var askedWith int
	s := NewSession(&fakeLoader{paper: paper}, submitter, Config{
		Confirm: func(unanswered int) bool { askedWith = unanswered; return false },
	})
	s.Start(context.Background())
	s.Select(paper.Questions[0].ID, 0)

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if askedWith != 1 {
		t.Errorf("confirm asked with %d unanswered, want 1", askedWith)
	}
	if got := s.State(); got != StateInProgress {
		t.Errorf("state = %s, want IN_PROGRESS after declining", got)
	}
	if submitter.callCount() != 0 {
		t.Errorf("submit calls = %d, want 0", submitter.callCount())
	}
}

func TestManualSubmitAllAnsweredNoConfirm(t *testing.T) {
	paper := twoQuestionPaper()
	submitter := &fakeSubmitter{result: &model.Result{ID: uuid.New()}}
	confirmCalled := false
	s := NewSession(&fakeLoader{paper: paper}, submitter, Config{
		Confirm: func(int) bool { confirmCalled = true; return false },
	})
	s.Start(context.Background())
	s.Select(paper.Questions[0].ID, 0)
	s.Select(paper.Questions[1].ID, 1)

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if confirmCalled {
		t.Error("fully answered submit must not consult Confirm")
	}
	if got := s.State(); got != StateDone {
		t.Errorf("state = %s, want DONE", got)
	}
}

func TestSubmitFailureFreezesTimerAndAllowsRetry(t *testing.T) {
	paper := twoQuestionPaper()
	boom := errors.New("storage down")
	submitter := &fakeSubmitter{err: boom}
	s := NewSession(&fakeLoader{paper: paper}, submitter, Config{})
	s.Start(context.Background())
	s.Select(paper.Questions[0].ID, 0)
	s.Select(paper.Questions[1].ID, 0)

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := s.State(); got != StateInProgress {
		t.Fatalf("state = %s, want IN_PROGRESS after failed submit", got)
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err() = %v, want %v", s.Err(), boom)
	}

	// The countdown stays frozen forever after a submission attempt.
	before := s.Remaining()
	s.Tick(context.Background())
	if got := s.Remaining(); got != before {
		t.Errorf("remaining moved from %d to %d after freeze", before, got)
	}

	// Retry succeeds once storage recovers.
	submitter.mu.Lock()
	submitter.err = nil
	submitter.result = &model.Result{ID: uuid.New()}
	submitter.mu.Unlock()

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if got := s.State(); got != StateDone {
		t.Errorf("state = %s, want DONE after retry", got)
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil after success", s.Err())
	}
}

func TestSubmitAlreadySubmittedResolvesToPriorResult(t *testing.T) {
	paper := twoQuestionPaper()
	prior := &model.Result{ID: uuid.New(), Score: 9}
	loader := &fakeLoader{paper: paper}
	submitter := &fakeSubmitter{err: ErrAlreadySubmitted}
	s := NewSession(loader, submitter, Config{})
	s.Start(context.Background())
	s.Select(paper.Questions[0].ID, 0)
	s.Select(paper.Questions[1].ID, 0)

	// The duplicate appeared between Start and Submit.
	loader.prior = prior

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := s.State(); got != StateDone {
		t.Fatalf("state = %s, want DONE", got)
	}
	if s.Result() != prior {
		t.Error("session must resolve to the stored result")
	}
}

func TestRunStopsTickSourceOnCancel(t *testing.T) {
	paper := twoQuestionPaper()
	s := NewSession(&fakeLoader{paper: paper}, &fakeSubmitter{result: &model.Result{}}, Config{})
	s.Start(context.Background())

	ticks := newFakeTickSource()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, ticks)
		close(done)
	}()

	ticks.ch <- time.Now()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on context cancel")
	}
	select {
	case <-ticks.stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop the tick source")
	}
	if got := s.Remaining(); got != 119 {
		t.Errorf("remaining = %d, want 119 after one tick", got)
	}
}

func TestRunExitsWhenGraded(t *testing.T) {
	paper := twoQuestionPaper()
	paper.DurationMinutes = 1
	s := NewSession(&fakeLoader{paper: paper}, &fakeSubmitter{result: &model.Result{ID: uuid.New()}}, Config{})
	s.Start(context.Background())

	ticks := newFakeTickSource()
	done := make(chan struct{})
	go func() {
		s.Run(context.Background(), ticks)
		close(done)
	}()

	for i := 0; i < 60; i++ {
		select {
		case ticks.ch <- time.Now():
		case <-done:
			i = 60
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after the countdown reached zero")
	}
	if got := s.State(); got != StateDone {
		t.Errorf("state = %s, want DONE", got)
	}
}
