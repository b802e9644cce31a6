package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an authored assessment with a time limit and
// scoring thresholds.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
	PassingMarks    int       `json:"passing_marks"`
	IsActive        bool      `json:"is_active"`
	CreatedBy       int       `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateExamRequest is the payload for creating a new exam.
// passing_marks may never exceed total_marks; the same rule is
// backed by a CHECK constraint in the database.
type CreateExamRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	Description     string `json:"description" binding:"required,max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
	TotalMarks      int    `json:"total_marks" binding:"required,min=1"`
	PassingMarks    *int   `json:"passing_marks" binding:"required,min=0,ltefield=TotalMarks"`
	IsActive        *bool  `json:"is_active" binding:"omitempty"`
}

// UpdateExamRequest is the payload for updating an existing exam.
// Fields left empty keep their current values.
type UpdateExamRequest struct {
	Title           string  `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int     `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	TotalMarks      int     `json:"total_marks" binding:"omitempty,min=1"`
	PassingMarks    *int    `json:"passing_marks" binding:"omitempty,min=0"`
	IsActive        *bool   `json:"is_active" binding:"omitempty"`
}

// ExamPaper is the student-facing exam payload: metadata plus the
// question set with the answer key stripped. This is the shape cached
// in Redis and the only question projection students ever receive.
type ExamPaper struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	DurationMinutes int                  `json:"duration_minutes"`
	TotalMarks      int                  `json:"total_marks"`
	Questions       []QuestionForStudent `json:"questions"`
}
