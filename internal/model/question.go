package model

import (
	"time"

	"github.com/google/uuid"
)

// Question represents one multiple-choice item belonging to an exam.
// CorrectAnswer indexes into Options and must never appear in any
// student-facing payload; use QuestionForStudent for those.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correct_answer"`
	Marks         int       `json:"marks"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuestionForStudent is the answer-key-free projection of a question.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
	Marks        int       `json:"marks"`
}

// ForStudent strips the answer key from a question.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Options:      q.Options,
		Marks:        q.Marks,
	}
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	CorrectAnswer *int     `json:"correct_answer" binding:"required,min=0,max=3"`
	Marks         int      `json:"marks" binding:"omitempty,min=1,max=100"`
}

// UpdateQuestionRequest is the payload for editing a question.
type UpdateQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"omitempty,min=1,max=2000"`
	Options       []string `json:"options" binding:"omitempty,len=4,dive,required,max=500"`
	CorrectAnswer *int     `json:"correct_answer" binding:"omitempty,min=0,max=3"`
	Marks         int      `json:"marks" binding:"omitempty,min=1,max=100"`
}
