package model

import "time"

// GradeLevel represents the student's year group.
type GradeLevel string

const (
	GradeLevel9  GradeLevel = "9"
	GradeLevel10 GradeLevel = "10"
	GradeLevel11 GradeLevel = "11"
	GradeLevel12 GradeLevel = "12"
)

// Student represents a student user.
type Student struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	GradeLevel   GradeLevel `json:"grade_level"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// CreateStudentRequest is the payload for creating a new student account.
type CreateStudentRequest struct {
	Name       string     `json:"name" binding:"required,min=2,max=100"`
	Email      string     `json:"email" binding:"required,email"`
	GradeLevel GradeLevel `json:"grade_level" binding:"required,oneof=9 10 11 12"`
	Password   string     `json:"password" binding:"required,min=6,max=128"`
}

// UpdateStudentRequest is the payload for updating an existing student.
type UpdateStudentRequest struct {
	Name       string     `json:"name" binding:"required,min=2,max=100"`
	Email      string     `json:"email" binding:"required,email"`
	GradeLevel GradeLevel `json:"grade_level" binding:"required,oneof=9 10 11 12"`
	Password   string     `json:"password" binding:"omitempty,min=6,max=128"`
}
