// Package report renders a result as a downloadable PDF. It consumes
// the same Result structure the scoring engine produces; the full
// question records are only used to label answers, and only after the
// attempt is already graded.
package report

import (
	"bytes"
	"fmt"

	"github.com/examio/examio-backend/internal/model"
	"github.com/jung-kurt/gofpdf"
)

// RenderResult builds a PDF score report for one graded attempt.
func RenderResult(res *model.Result, exam *model.Exam, student *model.User, questions []model.Question) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Exam Result", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	writeLine := func(label, value string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(45, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(0, 8, value, "", "L", false)
	}

	writeLine("Student:", fmt.Sprintf("%s (%s)", student.Name, student.Email))
	writeLine("Exam:", exam.Title)
	writeLine("Submitted:", res.SubmittedAt.Format("2006-01-02 15:04"))
	writeLine("Score:", fmt.Sprintf("%d / %d", res.Score, res.TotalMarks))
	writeLine("Percentage:", fmt.Sprintf("%.2f%%", res.Percentage))

	verdict := "FAILED"
	if res.Passed {
		verdict = "PASSED"
	}
	writeLine("Outcome:", verdict)
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, "Answers", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID.String()] = &questions[i]
	}

	num := 0
	for _, a := range res.Answers {
		q, ok := byID[a.QuestionID.String()]
		if !ok {
			continue
		}
		num++

		pdf.SetFont("Arial", "B", 11)
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", num, q.QuestionText), "", "L", false)

		pdf.SetFont("Arial", "", 11)
		selected := "Unanswered"
		if a.SelectedAnswer >= 0 && a.SelectedAnswer < len(q.Options) {
			selected = q.Options[a.SelectedAnswer]
		}
		mark := "Incorrect"
		if a.SelectedAnswer == q.CorrectAnswer {
			mark = fmt.Sprintf("Correct (+%d)", q.Marks)
		}
		pdf.MultiCell(0, 6, fmt.Sprintf("    Your answer: %s - %s", selected, mark), "", "L", false)
		if a.SelectedAnswer != q.CorrectAnswer && q.CorrectAnswer < len(q.Options) {
			pdf.MultiCell(0, 6, fmt.Sprintf("    Correct answer: %s", q.Options[q.CorrectAnswer]), "", "L", false)
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
