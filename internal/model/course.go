package model

import (
	"time"

	"github.com/google/uuid"
)

// Course represents a course taught by a teacher.
type Course struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	TeacherID   int       `json:"teacher_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCourseRequest is the payload for creating a new course.
type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=255"`
	Subject     string `json:"subject" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// UpdateCourseRequest is the payload for updating an existing course.
type UpdateCourseRequest struct {
	Title       string `json:"title" binding:"omitempty,min=3,max=255"`
	Subject     string `json:"subject" binding:"omitempty,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}
