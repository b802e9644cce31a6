package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examio/examio-backend/internal/middleware"
	"github.com/examio/examio-backend/internal/report"
	"github.com/examio/examio-backend/internal/response"
	"github.com/examio/examio-backend/internal/service"
)

// ReportHandler serves result sheets as PDF downloads.
type ReportHandler struct {
	attemptService  *service.AttemptService
	examService     *service.ExamService
	questionService *service.QuestionService
	userService     *service.UserService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(
	attemptService *service.AttemptService,
	examService *service.ExamService,
	questionService *service.QuestionService,
	userService *service.UserService,
) *ReportHandler {
	return &ReportHandler{
		attemptService:  attemptService,
		examService:     examService,
		questionService: questionService,
		userService:     userService,
	}
}

// MyResultPDF godoc
// GET /api/v1/student/exams/:examId/result/pdf
// Streams the authenticated student's result sheet for one exam.
func (h *ReportHandler) MyResultPDF(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	h.servePDF(c, c.Param("examId"), claims.UserID)
}

// ResultPDF godoc
// GET /api/v1/admin/exams/:examId/results/:userId/pdf
// Streams any student's result sheet for one exam.
func (h *ReportHandler) ResultPDF(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	h.servePDF(c, c.Param("examId"), studentID)
}

func (h *ReportHandler) servePDF(c *gin.Context, rawExamID string, studentID int) {
	examID, err := uuid.Parse(rawExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctx := c.Request.Context()

	result, err := h.attemptService.ResultFor(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	exam, err := h.examService.GetByID(ctx, examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	student, err := h.userService.GetByID(ctx, studentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	questions, err := h.questionService.ListByExam(ctx, examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	pdf, err := report.RenderResult(result, exam, student, questions)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	filename := fmt.Sprintf("result-%s-%d.pdf", examID, studentID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
