package router

import (
	"net/http"
	"time"

	"github.com/brainwavehq/academy-backend/internal/config"
	"github.com/brainwavehq/academy-backend/internal/handler"
	"github.com/brainwavehq/academy-backend/internal/middleware"
	"github.com/brainwavehq/academy-backend/internal/response"
	"github.com/brainwavehq/academy-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Course        *handler.CourseHandler
	Assignment    *handler.AssignmentHandler
	WS            *handler.WSHandler
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
	router.Use(response.RequestIDMiddleware())

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
		auth.POST("/student/signup", handlers.Auth.StudentSignup)
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/courses", handlers.StudentPortal.ListCourses)
		studentAPI.GET("/courses/:course_id/assignments", handlers.StudentPortal.ListAssignments)

		studentAPI.GET("/assignments/:assignment_id/paper", handlers.StudentPortal.GetPaper)
		studentAPI.POST("/assignments/:assignment_id/enter", handlers.StudentPortal.Enter)
		studentAPI.POST("/assignments/:assignment_id/start", handlers.StudentPortal.Start)
		studentAPI.GET("/assignments/:assignment_id/state", handlers.StudentPortal.GetState)
		studentAPI.POST("/assignments/:assignment_id/answer", handlers.StudentPortal.RecordAnswer)
		studentAPI.POST("/assignments/:assignment_id/navigate", handlers.StudentPortal.Navigate)
		studentAPI.POST("/assignments/:assignment_id/submit", handlers.StudentPortal.Submit)
		studentAPI.POST("/assignments/:assignment_id/retry", handlers.StudentPortal.Retry)
		studentAPI.POST("/assignments/:assignment_id/leave", handlers.StudentPortal.Leave)
		studentAPI.GET("/assignments/:assignment_id/results", handlers.StudentPortal.GetResults)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/assignments/:assignment_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		// Course management
		teacherAPI.GET("/courses", handlers.Course.ListCourses)
		teacherAPI.POST("/courses", handlers.Course.CreateCourse)
		teacherAPI.PUT("/courses/:course_id", handlers.Course.UpdateCourse)
		teacherAPI.DELETE("/courses/:course_id", handlers.Course.DeleteCourse)
		teacherAPI.GET("/courses/:course_id/assignments", handlers.Assignment.ListAssignments)

		// Assignment authoring
		teacherAPI.POST("/assignments", handlers.Assignment.CreateAssignment)
		teacherAPI.GET("/assignments/:assignment_id", handlers.Assignment.GetAssignment)
		teacherAPI.PUT("/assignments/:assignment_id", handlers.Assignment.UpdateAssignment)
		teacherAPI.DELETE("/assignments/:assignment_id", handlers.Assignment.DeleteAssignment)
		teacherAPI.POST("/assignments/:assignment_id/publish", handlers.Assignment.PublishAssignment)
		teacherAPI.POST("/assignments/:assignment_id/archive", handlers.Assignment.ArchiveAssignment)
		teacherAPI.POST("/assignments/:assignment_id/questions", handlers.Assignment.AddQuestion)
		teacherAPI.PUT("/assignments/:assignment_id/questions", handlers.Assignment.ReplaceQuestions)
		teacherAPI.GET("/assignments/:assignment_id/gradebook", handlers.Assignment.GetGradebook)

		// Student account management
		teacherAPI.GET("/students", handlers.StudentMgmt.ListStudents)
		teacherAPI.POST("/students", handlers.StudentMgmt.CreateStudent)
		teacherAPI.GET("/students/:student_id", handlers.StudentMgmt.GetStudent)
		teacherAPI.PUT("/students/:student_id", handlers.StudentMgmt.UpdateStudent)
		teacherAPI.DELETE("/students/:student_id", handlers.StudentMgmt.DeleteStudent)
		teacherAPI.POST("/students/:student_id/reset-session", handlers.Auth.ResetStudentSession)
	}

	return router
}
