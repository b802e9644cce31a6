package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examio/examio-backend/internal/config"
	"github.com/examio/examio-backend/internal/handler"
	"github.com/examio/examio-backend/internal/middleware"
	"github.com/examio/examio-backend/internal/response"
	"github.com/examio/examio-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Attempt       *handler.AttemptHandler
	AttemptWS     *handler.AttemptWSHandler
	Exam          *handler.ExamHandler
	Question      *handler.QuestionHandler
	User          *handler.UserHandler
	Report        *handler.ReportHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestID())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudent(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/exams", handlers.StudentPortal.ListExams)
		studentAPI.GET("/exams/:examId/paper", handlers.StudentPortal.GetPaper)
		studentAPI.POST("/exams/:examId/submit", handlers.Attempt.Submit)
		studentAPI.GET("/exams/:examId/result", handlers.Attempt.GetResult)
		studentAPI.GET("/exams/:examId/result/pdf", handlers.Report.MyResultPDF)
		studentAPI.GET("/results", handlers.Attempt.ListMyResults)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireStudentWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/student/exams/:examId/take", handlers.AttemptWS.Stream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdmin(authService))
	{
		// Exam management
		adminAPI.GET("/exams", handlers.Exam.List)
		adminAPI.POST("/exams", handlers.Exam.Create)
		adminAPI.GET("/exams/:examId", handlers.Exam.Get)
		adminAPI.PUT("/exams/:examId", handlers.Exam.Update)
		adminAPI.DELETE("/exams/:examId", handlers.Exam.Delete)

		// Question management
		adminAPI.GET("/exams/:examId/questions", handlers.Question.ListByExam)
		adminAPI.POST("/exams/:examId/questions", handlers.Question.Add)
		adminAPI.PUT("/questions/:questionId", handlers.Question.Update)
		adminAPI.DELETE("/questions/:questionId", handlers.Question.Delete)

		// Results
		adminAPI.GET("/results", handlers.Attempt.ListAllResults)
		adminAPI.GET("/exams/:examId/results/:userId/pdf", handlers.Report.ResultPDF)

		// User management
		adminAPI.GET("/users", handlers.User.List)
		adminAPI.PUT("/users/:userId/role", handlers.User.UpdateRole)
		adminAPI.DELETE("/users/:userId", handlers.User.Delete)
		adminAPI.POST("/users/:userId/reset-session", handlers.User.ResetSession)
	}

	return router
}
