package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/brainwavehq/academy-backend/internal/middleware"
	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/response"
	"github.com/brainwavehq/academy-backend/internal/service"
	"github.com/brainwavehq/academy-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AssignmentHandler handles teacher-facing assignment authoring and grading.
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// ListAssignments godoc
// GET /api/v1/teacher/courses/:course_id/assignments
// Returns all assignments in a course, drafts included.
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
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

	assignments, err := h.assignmentService.ListByCourse(c.Request.Context(), claims.UserID, courseID)
	if err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assignments": assignments})
}

// GetAssignment godoc
// GET /api/v1/teacher/assignments/:assignment_id
// Returns an assignment with its full question set, answer keys included.
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
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

	assignment, err := h.assignmentService.GetByID(c.Request.Context(), assignmentID)
	if err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assignment": assignment})
}

// CreateAssignment godoc
// POST /api/v1/teacher/assignments
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateAssignmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assignment, err := h.assignmentService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"assignment": assignment})
}

// UpdateAssignment godoc
// PUT /api/v1/teacher/assignments/:assignment_id
// Drafts only; published assignments are immutable.
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
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

	var req model.UpdateAssignmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assignment, err := h.assignmentService.Update(c.Request.Context(), claims.UserID, assignmentID, &req)
	if err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assignment": assignment})
}

// DeleteAssignment godoc
// DELETE /api/v1/teacher/assignments/:assignment_id
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
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

	if err := h.assignmentService.Delete(c.Request.Context(), claims.UserID, assignmentID); err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// PublishAssignment godoc
// POST /api/v1/teacher/assignments/:assignment_id/publish
// Validates the question set and makes the assignment visible to students.
func (h *AssignmentHandler) PublishAssignment(c *gin.Context) {
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

	if err := h.assignmentService.Publish(c.Request.Context(), claims.UserID, assignmentID); err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": string(model.AssignmentStatusPublished)})
}

// ArchiveAssignment godoc
// POST /api/v1/teacher/assignments/:assignment_id/archive
func (h *AssignmentHandler) ArchiveAssignment(c *gin.Context) {
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

	if err := h.assignmentService.Archive(c.Request.Context(), claims.UserID, assignmentID); err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": string(model.AssignmentStatusArchived)})
}

// AddQuestion godoc
// POST /api/v1/teacher/assignments/:assignment_id/questions
func (h *AssignmentHandler) AddQuestion(c *gin.Context) {
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

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.assignmentService.AddQuestion(c.Request.Context(), claims.UserID, assignmentID, &req)
	if err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceQuestions godoc
// PUT /api/v1/teacher/assignments/:assignment_id/questions
// Swaps the full question set atomically.
func (h *AssignmentHandler) ReplaceQuestions(c *gin.Context) {
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

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.assignmentService.ReplaceQuestions(c.Request.Context(), claims.UserID, assignmentID, &req)
	if err != nil {
		failAssignment(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetGradebook godoc
// GET /api/v1/teacher/assignments/:assignment_id/gradebook
// Returns each student's best completed attempt, paginated.
func (h *AssignmentHandler) GetGradebook(c *gin.Context) {
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

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	rows, pagination, err := h.assignmentService.Gradebook(c.Request.Context(), claims.UserID, assignmentID, page, perPage)
	if err != nil {
		failAssignment(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": rows}, pagination)
}

// failAssignment maps assignment authoring errors to response codes.
func failAssignment(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotCourseOwner)
	case errors.Is(err, service.ErrAssignmentNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrAssignmentNotDraft)
	case errors.Is(err, service.ErrAssignmentNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrAssignmentNotAvailable)
	case errors.Is(err, service.ErrNoQuestionsToPublish):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, model.ErrPointsMismatch), errors.Is(err, model.ErrBadTimeLimit):
		response.Fail(c, http.StatusBadRequest, response.ErrPointsMismatch)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
