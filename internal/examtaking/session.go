// Package examtaking models one student's pass through an exam as an
// explicit state machine: a countdown seeded from the exam duration, an
// in-memory answer map with last-write-wins updates, and exactly one
// submission, manual or automatic at zero.
package examtaking

import (
	"context"
	"errors"
	"sync"

	"github.com/examio/examio-backend/internal/model"
	"github.com/google/uuid"
)

// State enumerates the session lifecycle.
type State string

const (
	StateLoading    State = "LOADING"
	StateInProgress State = "IN_PROGRESS"
	StateSubmitting State = "SUBMITTING"
	StateDone       State = "DONE"
	// StateBlocked is terminal: a result already exists for this
	// (student, exam) pair, detected before any questions are shown.
	StateBlocked State = "BLOCKED"
	// StateErrored is terminal: the exam paper could not be loaded.
	StateErrored State = "ERRORED"
)

// ErrAlreadySubmitted is what a Submitter must return (possibly wrapped)
// when the engine rejects the attempt as a duplicate. The session then
// resolves to the existing result instead of treating it as a failure.
var ErrAlreadySubmitted = errors.New("attempt already submitted")

// ErrNotInProgress is returned for answer/submit calls outside
// StateInProgress.
var ErrNotInProgress = errors.New("session is not in progress")

// Loader fetches what the session needs to start: the answer-key-free
// paper, and any prior result for this student and exam.
type Loader interface {
	LoadPaper(ctx context.Context) (*model.ExamPaper, error)
	// PriorResult returns the existing result, or (nil, nil) when the
	// student has not attempted the exam yet.
	PriorResult(ctx context.Context) (*model.Result, error)
}

// Submitter delivers the packaged answers to the scoring engine.
type Submitter interface {
	Submit(ctx context.Context, answers []model.SubmittedAnswer) (*model.Result, error)
}

// Config tunes optional session behavior.
type Config struct {
	// Confirm is consulted on a manual submit when some questions are
	// unanswered. Returning false keeps the session in progress. When
	// nil, manual submits proceed without confirmation. The automatic
	// timeout submit never consults it.
	Confirm func(unanswered int) bool
	// OnTick is invoked after every accepted countdown decrement with
	// the remaining seconds.
	OnTick func(remaining int)
	// OnState is invoked on every state transition.
	OnState func(s State)
}

// Session is the exam-taking state machine. It is owned by a single
// caller; the mutex only guards against a tick pump running alongside
// that caller.
type Session struct {
	mu        sync.Mutex
	loader    Loader
	submitter Submitter
	cfg       Config

	state       State
	paper       *model.ExamPaper
	remaining   int
	timerFrozen bool
	answers     map[uuid.UUID]int
	result      *model.Result
	lastErr     error
}

// NewSession creates a session in StateLoading.
func NewSession(loader Loader, submitter Submitter, cfg Config) *Session {
	return &Session{
		loader:    loader,
		submitter: submitter,
		cfg:       cfg,
		state:     StateLoading,
		answers:   make(map[uuid.UUID]int),
	}
}

// Start performs the Loading phase: prior-attempt detection, then paper
// fetch and countdown initialization. It returns the resulting state:
// StateInProgress, StateBlocked, or StateErrored.
func (s *Session) Start(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return s.state
	}

	prior, err := s.loader.PriorResult(ctx)
	if err != nil {
		s.lastErr = err
		s.setState(StateErrored)
		return s.state
	}
	if prior != nil {
		s.result = prior
		s.setState(StateBlocked)
		return s.state
	}

	paper, err := s.loader.LoadPaper(ctx)
	if err != nil {
		s.lastErr = err
		s.setState(StateErrored)
		return s.state
	}

	s.paper = paper
	s.remaining = paper.DurationMinutes * 60
	s.setState(StateInProgress)
	return s.state
}

// Select records an answer for a question. Repeated selections for the
// same question overwrite the previous one; order across different
// questions is irrelevant. Selections for questions outside the paper
// are rejected.
func (s *Session) Select(questionID uuid.UUID, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if !s.hasQuestion(questionID) {
		return errors.New("question does not belong to this exam")
	}
	s.answers[questionID] = option
	return nil
}

// Tick advances the countdown by one second. Reaching zero triggers the
// automatic submission, which skips confirmation. Ticks are ignored once
// the timer is frozen: the countdown never resumes after a submission
// has been attempted, even a failed one.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress || s.timerFrozen {
		return
	}

	s.remaining--
	if s.cfg.OnTick != nil {
		s.cfg.OnTick(s.remaining)
	}
	if s.remaining <= 0 {
		s.remaining = 0
		s.submitLocked(ctx)
	}
}

// Submit performs a manual submission. With unanswered questions it
// first asks Confirm; declining leaves the session in progress with no
// submit call issued. Calls while already submitting are ignored.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return nil
	}
	if s.state != StateInProgress {
		return ErrNotInProgress
	}

	if unanswered := len(s.paper.Questions) - len(s.answers); unanswered > 0 && s.cfg.Confirm != nil {
		if !s.cfg.Confirm(unanswered) {
			return nil
		}
	}

	s.submitLocked(ctx)
	return nil
}

// Run pumps ticks from a TickSource into the session until the context
// is cancelled or the session leaves StateInProgress. The tick source is
// stopped on every exit path, so a torn-down session never leaks a
// timer.
func (s *Session) Run(ctx context.Context, ticks TickSource) {
	defer ticks.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks.C():
			s.Tick(ctx)
			if st := s.State(); st != StateInProgress && st != StateSubmitting {
				return
			}
		}
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Paper returns the loaded exam paper, nil before Start succeeds.
func (s *Session) Paper() *model.ExamPaper {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paper
}

// Remaining returns the countdown value in seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Result returns the created (or pre-existing, when blocked) result.
func (s *Session) Result() *model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the failure that put the session in StateErrored, or the
// last submit failure.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Answered returns how many questions currently have a selection.
func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// submitLocked freezes the countdown, packages every question's current
// answer, and invokes the engine once. Must be called with s.mu held.
func (s *Session) submitLocked(ctx context.Context) {
	s.timerFrozen = true
	s.setState(StateSubmitting)

	packaged := make([]model.SubmittedAnswer, len(s.paper.Questions))
	for i, q := range s.paper.Questions {
		selected := model.AnswerUnanswered
		if v, ok := s.answers[q.ID]; ok {
			selected = v
		}
		packaged[i] = model.SubmittedAnswer{QuestionID: q.ID, SelectedAnswer: selected}
	}

	result, err := s.submitter.Submit(ctx, packaged)
	switch {
	case err == nil:
		s.result = result
		s.lastErr = nil
		s.setState(StateDone)
	case errors.Is(err, ErrAlreadySubmitted):
		// A duplicate slipped past the initial check; the stored result
		// is the one to show.
		if prior, perr := s.loader.PriorResult(ctx); perr == nil && prior != nil {
			s.result = prior
		}
		s.lastErr = nil
		s.setState(StateDone)
	default:
		// Surface the error and re-enable manual submit. The countdown
		// stays frozen.
		s.lastErr = err
		s.setState(StateInProgress)
	}
}

func (s *Session) setState(next State) {
	s.state = next
	if s.cfg.OnState != nil {
		s.cfg.OnState(next)
	}
}

func (s *Session) hasQuestion(id uuid.UUID) bool {
	for _, q := range s.paper.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}
