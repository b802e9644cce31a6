package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestForStudentStripsAnswerKey(t *testing.T) {
	q := Question{
		ID:            uuid.New(),
		ExamID:        uuid.New(),
		QuestionText:  "What is JavaScript?",
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: 2,
		Marks:         5,
	}

	projected := q.ForStudent()

	raw, err := json.Marshal(projected)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "correct_answer") {
		t.Errorf("student projection leaks the answer key: %s", raw)
	}
	if projected.ID != q.ID || projected.Marks != q.Marks {
		t.Error("projection dropped fields it should carry")
	}
}
