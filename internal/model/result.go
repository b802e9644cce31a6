package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerUnanswered is the sentinel selected-answer value for a question
// the student left blank.
const AnswerUnanswered = -1

// SubmittedAnswer is one (question, selected option) pair as submitted.
type SubmittedAnswer struct {
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedAnswer int       `json:"selected_answer"`
}

// Result is the durable, immutable outcome of one student's one attempt
// at one exam. At most one result exists per (student, exam) pair,
// enforced by a unique constraint in the database.
type Result struct {
	ID          uuid.UUID         `json:"id"`
	StudentID   int               `json:"student_id"`
	ExamID      uuid.UUID         `json:"exam_id"`
	Answers     []SubmittedAnswer `json:"answers"`
	Score       int               `json:"score"`
	TotalMarks  int               `json:"total_marks"`
	Percentage  float64           `json:"percentage"`
	Passed      bool              `json:"passed"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// SubmitAttemptRequest is the payload for submitting an exam attempt.
type SubmitAttemptRequest struct {
	Answers []SubmitAnswerItem `json:"answers" binding:"required,dive"`
}

// SubmitAnswerItem is one answer in a submission payload. SelectedAnswer
// is a pointer so that 0 (the first option) survives required-validation;
// -1 marks an unanswered question.
type SubmitAnswerItem struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer *int      `json:"selected_answer" binding:"required,min=-1,max=3"`
}
