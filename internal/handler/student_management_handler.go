package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/repository"
	"github.com/brainwavehq/academy-backend/internal/response"
	"github.com/brainwavehq/academy-backend/internal/service"
	"github.com/brainwavehq/academy-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// StudentManagementHandler handles teacher-side student account CRUD.
type StudentManagementHandler struct {
	studentService *service.StudentService
}

// NewStudentManagementHandler creates a new StudentManagementHandler.
func NewStudentManagementHandler(studentService *service.StudentService) *StudentManagementHandler {
	return &StudentManagementHandler{studentService: studentService}
}

// ListStudents godoc
// GET /api/v1/teacher/students
// Supports ?grade_level=, ?page=, ?per_page=.
func (h *StudentManagementHandler) ListStudents(c *gin.Context) {
	var gradeLevel *model.GradeLevel
	if raw := c.Query("grade_level"); raw != "" {
		gl := model.GradeLevel(raw)
		switch gl {
		case model.GradeLevel9, model.GradeLevel10, model.GradeLevel11, model.GradeLevel12:
			gradeLevel = &gl
		default:
			response.Fail(c, http.StatusBadRequest, response.ErrValidation)
			return
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	students, pagination, err := h.studentService.List(c.Request.Context(), gradeLevel, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, pagination)
}

// GetStudent godoc
// GET /api/v1/teacher/students/:student_id
func (h *StudentManagementHandler) GetStudent(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), studentID)
	if err != nil {
		failStudent(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// CreateStudent godoc
// POST /api/v1/teacher/students
func (h *StudentManagementHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), &req)
	if err != nil {
		failStudent(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// UpdateStudent godoc
// PUT /api/v1/teacher/students/:student_id
func (h *StudentManagementHandler) UpdateStudent(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), studentID, &req)
	if err != nil {
		failStudent(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// DeleteStudent godoc
// DELETE /api/v1/teacher/students/:student_id
func (h *StudentManagementHandler) DeleteStudent(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), studentID); err != nil {
		failStudent(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// failStudent maps student account errors to response codes.
func failStudent(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
