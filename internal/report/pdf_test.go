package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/examio/examio-backend/internal/model"
)

func TestRenderResult(t *testing.T) {
	examID := uuid.New()
	q1 := model.Question{
		ID:            uuid.New(),
		ExamID:        examID,
		QuestionText:  "What is JavaScript?",
		Options:       []string{"A programming language", "A database", "An operating system", "A framework"},
		CorrectAnswer: 0,
		Marks:         5,
	}
	q2 := model.Question{
		ID:            uuid.New(),
		ExamID:        examID,
		QuestionText:  "What does DOM stand for?",
		Options:       []string{"Document Object Model", "Data Object Model", "Digital Object Model", "Document Oriented Model"},
		CorrectAnswer: 0,
		Marks:         5,
	}

	res := &model.Result{
		ID:        uuid.New(),
		StudentID: 1,
		ExamID:    examID,
		Answers: []model.SubmittedAnswer{
			{QuestionID: q1.ID, SelectedAnswer: 0},
			{QuestionID: q2.ID, SelectedAnswer: model.AnswerUnanswered},
		},
		Score:       5,
		TotalMarks:  10,
		Percentage:  50,
		Passed:      false,
		SubmittedAt: time.Now(),
	}
	exam := &model.Exam{ID: examID, Title: "JavaScript Fundamentals", TotalMarks: 10, PassingMarks: 6}
	student := &model.User{ID: 1, Name: "John Doe", Email: "john@example.com", Role: model.RoleStudent}

	pdf, err := RenderResult(res, exam, student, []model.Question{q1, q2})
	if err != nil {
		t.Fatalf("RenderResult: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output does not start with a PDF header")
	}
	if len(pdf) < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", len(pdf))
	}
}

func TestRenderResultSkipsForeignAnswers(t *testing.T) {
	examID := uuid.New()
	res := &model.Result{
		ID:     uuid.New(),
		ExamID: examID,
		Answers: []model.SubmittedAnswer{
			{QuestionID: uuid.New(), SelectedAnswer: 1},
		},
		TotalMarks:  10,
		SubmittedAt: time.Now(),
	}
	exam := &model.Exam{ID: examID, Title: "Empty"}
	student := &model.User{Name: "Jane", Email: "jane@example.com"}

	// No matching questions: the report must still render.
	pdf, err := RenderResult(res, exam, student, nil)
	if err != nil {
		t.Fatalf("RenderResult: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output does not start with a PDF header")
	}
}
