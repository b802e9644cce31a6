package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examio/examio-backend/internal/examtaking"
	"github.com/examio/examio-backend/internal/middleware"
	"github.com/examio/examio-backend/internal/model"
	"github.com/examio/examio-backend/internal/service"
	ws "github.com/examio/examio-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// AttemptWSHandler drives a live exam-taking session over WebSocket: it
// streams the countdown, records selections, and resolves the single
// submission.
type AttemptWSHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewAttemptWSHandler creates a new AttemptWSHandler.
func NewAttemptWSHandler(
	examService *service.ExamService,
	attemptService *service.AttemptService,
	log zerolog.Logger,
	allowedOrigins []string,
) *AttemptWSHandler {
	return &AttemptWSHandler{
		examService:    examService,
		attemptService: attemptService,
		log:            log.With().Str("component", "attempt_ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// sessionLoader adapts the exam and attempt services to the session's
// Loader interface for one (student, exam) pair.
type sessionLoader struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
	examID         uuid.UUID
	studentID      int
}

func (l *sessionLoader) LoadPaper(ctx context.Context) (*model.ExamPaper, error) {
	return l.examService.GetPaper(ctx, l.examID)
}

func (l *sessionLoader) PriorResult(ctx context.Context) (*model.Result, error) {
	result, err := l.attemptService.ResultFor(ctx, l.studentID, l.examID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// sessionSubmitter adapts the attempt service to the session's Submitter
// interface. Submission failures are also pushed to the client so the
// session can stay alive for a retry.
type sessionSubmitter struct {
	attemptService *service.AttemptService
	conn           *ws.Conn
	examID         uuid.UUID
	studentID      int
}

func (s *sessionSubmitter) Submit(ctx context.Context, answers []model.SubmittedAnswer) (*model.Result, error) {
	result, err := s.attemptService.Submit(ctx, s.examID, s.studentID, answers)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubmitted) {
			return nil, examtaking.ErrAlreadySubmitted
		}
		s.conn.WriteError("submission failed, your answers are kept; try again")
		return nil, err
	}
	return result, nil
}

// Stream godoc
// WS /ws/v1/student/exams/:examId/take
// Runs the full exam-taking lifecycle on a single connection.
func (h *AttemptWSHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(rawConn)
	defer conn.Close()

	studentID := claims.UserID
	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := &sessionLoader{
		examService:    h.examService,
		attemptService: h.attemptService,
		examID:         examID,
		studentID:      studentID,
	}
	submitter := &sessionSubmitter{
		attemptService: h.attemptService,
		conn:           conn,
		examID:         examID,
		studentID:      studentID,
	}

	// The client confirms submitting with unanswered questions by sending
	// confirm_submit, which flips this flag and retries the submit.
	var confirmed atomic.Bool

	session := examtaking.NewSession(loader, submitter, examtaking.Config{
		Confirm: func(unanswered int) bool {
			if confirmed.Load() {
				return true
			}
			conn.WriteEvent(ws.EventConfirm, gin.H{"unanswered": unanswered})
			return false
		},
		OnTick: func(remaining int) {
			conn.WriteEvent(ws.EventTick, gin.H{"remaining": remaining})
		},
	})

	// Both the countdown pump and the read loop can observe the graded
	// state; only the first one pushes the result.
	var gradedSent atomic.Bool
	sendGraded := func() {
		if gradedSent.CompareAndSwap(false, true) {
			conn.WriteEvent(ws.EventGraded, gin.H{"result": session.Result()})
		}
	}

	switch session.Start(ctx) {
	case examtaking.StateBlocked:
		wsLog.Info().Msg("Attempt blocked, result exists")
		conn.WriteEvent(ws.EventBlocked, gin.H{"result": session.Result()})
		return
	case examtaking.StateErrored:
		wsLog.Warn().Err(session.Err()).Msg("Session failed to start")
		conn.WriteError(startErrorMessage(session.Err()))
		return
	}

	wsLog.Info().Msg("Exam session started")
	conn.WriteEvent(ws.EventStarted, gin.H{
		"paper":     session.Paper(),
		"remaining": session.Remaining(),
	})

	// Countdown pump. When it exits with a graded session the result is
	// pushed and the connection torn down.
	go func() {
		session.Run(ctx, examtaking.NewWallTicker())
		if session.State() == examtaking.StateDone {
			sendGraded()
		}
		cancel()
		conn.Close()
	}()

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionSelect:
			h.handleSelect(conn, session, &msg)

		case ws.ActionSubmit:
			if err := session.Submit(ctx); err != nil {
				conn.WriteError(err.Error())
			}

		case ws.ActionConfirmSubmit:
			confirmed.Store(true)
			if err := session.Submit(ctx); err != nil {
				conn.WriteError(err.Error())
			}

		case ws.ActionPing:
			conn.WriteEvent(ws.EventPong, nil)

		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}

		if session.State() == examtaking.StateDone {
			sendGraded()
			return
		}
	}
}

func (h *AttemptWSHandler) handleSelect(conn *ws.Conn, session *examtaking.Session, msg *ws.RequestPayload) {
	if msg.QuestionID == "" || msg.Selected == nil {
		conn.WriteError("question_id and selected are required")
		return
	}

	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return
	}

	if err := session.Select(questionID, *msg.Selected); err != nil {
		conn.WriteError(err.Error())
	}
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return "exam not found"
	case errors.Is(err, service.ErrExamInactive):
		return "exam is not active"
	case errors.Is(err, service.ErrNoQuestions):
		return "exam has no questions"
	default:
		return "could not load exam"
	}
}
