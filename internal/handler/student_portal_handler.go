package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examio/examio-backend/internal/response"
	"github.com/examio/examio-backend/internal/service"
)

// StudentPortalHandler handles the student-facing read endpoints.
// Students only ever receive exam papers, never raw question rows.
type StudentPortalHandler struct {
	examService *service.ExamService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(examService *service.ExamService) *StudentPortalHandler {
	return &StudentPortalHandler{examService: examService}
}

// ListExams godoc
// GET /api/v1/student/exams
// Returns active exams only.
func (h *StudentPortalHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.ListActive(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetPaper godoc
// GET /api/v1/student/exams/:examId/paper
// Returns the cached exam paper with the answer key stripped.
func (h *StudentPortalHandler) GetPaper(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), examID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamInactive):
			response.Fail(c, http.StatusForbidden, response.ErrExamInactive)
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}
