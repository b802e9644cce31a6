package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examio/examio-backend/internal/middleware"
	"github.com/examio/examio-backend/internal/model"
	"github.com/examio/examio-backend/internal/response"
	"github.com/examio/examio-backend/internal/service"
	"github.com/examio/examio-backend/internal/validator"
)

// AttemptHandler handles exam submission and result endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// Submit godoc
// POST /api/v1/student/exams/:examId/submit
// Grades the submitted answers and persists the single permitted result.
func (h *AttemptHandler) Submit(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answers := make([]model.SubmittedAnswer, 0, len(req.Answers))
	for _, item := range req.Answers {
		answers = append(answers, model.SubmittedAnswer{
			QuestionID:     item.QuestionID,
			SelectedAnswer: *item.SelectedAnswer,
		})
	}

	result, err := h.attemptService.Submit(c.Request.Context(), examID, claims.UserID, answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamNotGradable):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/student/exams/:examId/result
// Returns the student's result for one exam.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.attemptService.ResultFor(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ListMyResults godoc
// GET /api/v1/student/results
func (h *AttemptHandler) ListMyResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.attemptService.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ListAllResults godoc
// GET /api/v1/admin/results
func (h *AttemptHandler) ListAllResults(c *gin.Context) {
	results, err := h.attemptService.ListAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}
