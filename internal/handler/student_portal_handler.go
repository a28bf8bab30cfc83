package handler

import (
	"errors"
	"net/http"

	"github.com/brainwavehq/academy-backend/internal/middleware"
	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/quiz"
	"github.com/brainwavehq/academy-backend/internal/response"
	"github.com/brainwavehq/academy-backend/internal/service"
	"github.com/brainwavehq/academy-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StudentPortalHandler handles student-facing endpoints: the course catalog,
// assignment list, and the attempt-taking flow.
type StudentPortalHandler struct {
	courseService     *service.CourseService
	assignmentService *service.AssignmentService
	attemptService    *service.AttemptService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	courseService *service.CourseService,
	assignmentService *service.AssignmentService,
	attemptService *service.AttemptService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		courseService:     courseService,
		assignmentService: assignmentService,
		attemptService:    attemptService,
	}
}

// assignmentOverlay decorates a published assignment with the student's
// attempt history for the course page.
type assignmentOverlay struct {
	model.Assignment
	AttemptsUsed int  `json:"attempts_used"`
	BestPercent  *int `json:"best_percent,omitempty"`
	Completed    bool `json:"completed"`
}

// ListCourses godoc
// GET /api/v1/student/courses
// Returns the course catalog.
func (h *StudentPortalHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.ListAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// ListAssignments godoc
// GET /api/v1/student/courses/:course_id/assignments
// Returns published assignments with the student's attempt status overlaid.
func (h *StudentPortalHandler) ListAssignments(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	assignments, err := h.assignmentService.ListPublishedByCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	attempts, err := h.attemptService.ListCourseAttempts(c.Request.Context(), courseID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	used := make(map[uuid.UUID]int, len(attempts))
	best := make(map[uuid.UUID]int, len(attempts))
	for _, a := range attempts {
		used[a.AssignmentID]++
		if a.Percent != nil {
			if cur, ok := best[a.AssignmentID]; !ok || *a.Percent > cur {
				best[a.AssignmentID] = *a.Percent
			}
		}
	}

	overlays := make([]assignmentOverlay, 0, len(assignments))
	for _, a := range assignments {
		o := assignmentOverlay{
			Assignment:   a,
			AttemptsUsed: used[a.ID],
			Completed:    used[a.ID] > 0,
		}
		if p, ok := best[a.ID]; ok {
			bp := p
			o.BestPercent = &bp
		}
		overlays = append(overlays, o)
	}

	response.Success(c, http.StatusOK, gin.H{"assignments": overlays})
}

// GetPaper godoc
// GET /api/v1/student/assignments/:assignment_id/paper
// Returns the assignment paper from Redis, answer keys stripped.
func (h *StudentPortalHandler) GetPaper(c *gin.Context) {
	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.assignmentService.GetPaper(c.Request.Context(), assignmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAssignmentNotAvailable)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// Enter godoc
// POST /api/v1/student/assignments/:assignment_id/enter
// Opens (or resumes) the attempt session in the instructions view.
func (h *StudentPortalHandler) Enter(c *gin.Context) {
	h.withSession(c, func(assignmentID uuid.UUID, studentID int) (quiz.State, error) {
		return h.attemptService.Enter(c.Request.Context(), assignmentID, studentID)
	})
}

// Start godoc
// POST /api/v1/student/assignments/:assignment_id/start
// Begins a new attempt; the countdown starts now for timed assignments.
func (h *StudentPortalHandler) Start(c *gin.Context) {
	h.withSession(c, func(assignmentID uuid.UUID, studentID int) (quiz.State, error) {
		return h.attemptService.Start(c.Request.Context(), assignmentID, studentID)
	})
}

// GetState godoc
// GET /api/v1/student/assignments/:assignment_id/state
// Returns the live session snapshot, covering the page-reload case.
func (h *StudentPortalHandler) GetState(c *gin.Context) {
	h.withSession(c, func(assignmentID uuid.UUID, studentID int) (quiz.State, error) {
		return h.attemptService.State(assignmentID, studentID)
	})
}

// RecordAnswer godoc
// POST /api/v1/student/assignments/:assignment_id/answer
// Saves one answer; repeated saves for the same question overwrite.
func (h *StudentPortalHandler) RecordAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.RecordAnswer(c.Request.Context(), assignmentID, claims.UserID, req.QuestionID, req.Value); err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// Navigate godoc
// POST /api/v1/student/assignments/:assignment_id/navigate
// Moves the current question pointer; out-of-range jumps clamp.
func (h *StudentPortalHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.Navigate(assignmentID, claims.UserID, service.NavAction(req.Direction), req.Index)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// Submit godoc
// POST /api/v1/student/assignments/:assignment_id/submit
// Finishes the attempt. Requires confirm=true; submission is irreversible.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.Submit(c.Request.Context(), assignmentID, claims.UserID, req.Confirm)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// Retry godoc
// POST /api/v1/student/assignments/:assignment_id/retry
// Returns to the instructions view for a fresh attempt, if any remain.
func (h *StudentPortalHandler) Retry(c *gin.Context) {
	h.withSession(c, func(assignmentID uuid.UUID, studentID int) (quiz.State, error) {
		return h.attemptService.Retry(assignmentID, studentID)
	})
}

// Leave godoc
// POST /api/v1/student/assignments/:assignment_id/leave
// Drops the live session and releases its countdown timer.
func (h *StudentPortalHandler) Leave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	h.attemptService.Leave(assignmentID, claims.UserID)
	response.Success(c, http.StatusOK, gin.H{})
}

// GetResults godoc
// GET /api/v1/student/assignments/:assignment_id/results
// Returns the graded result of the latest attempt.
func (h *StudentPortalHandler) GetResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.Results(c.Request.Context(), assignmentID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// withSession factors the claims + ID parsing shared by the state-returning
// attempt endpoints.
func (h *StudentPortalHandler) withSession(c *gin.Context, fn func(uuid.UUID, int) (quiz.State, error)) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := fn(assignmentID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// failAttempt maps attempt-flow errors to response codes.
func failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quiz.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, quiz.ErrAttemptsExhausted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptsExhausted)
	case errors.Is(err, quiz.ErrNotInProgress):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
	case errors.Is(err, quiz.ErrConfirmationRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrConfirmationRequired)
	case errors.Is(err, quiz.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
	case errors.Is(err, quiz.ErrClosed), errors.Is(err, service.ErrNoActiveSession):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotActive)
	case errors.Is(err, service.ErrAssignmentNotAvailable):
		response.Fail(c, http.StatusNotFound, response.ErrAssignmentNotAvailable)
	case errors.Is(err, service.ErrNoCompletedAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
