package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBadTimeLimit   = errors.New("time limit must be a positive number of seconds")
	ErrPointsMismatch = errors.New("question points do not sum to the assignment total")
)

// AssignmentStatus enumerates the possible states of an assignment.
type AssignmentStatus string

const (
	AssignmentStatusDraft     AssignmentStatus = "DRAFT"
	AssignmentStatusPublished AssignmentStatus = "PUBLISHED"
	AssignmentStatusArchived  AssignmentStatus = "ARCHIVED"
)

// AssignmentKind distinguishes graded homework from timed quizzes.
type AssignmentKind string

const (
	AssignmentKindHomework AssignmentKind = "assignment"
	AssignmentKindQuiz     AssignmentKind = "quiz"
)

// Assignment represents a gradable unit of work with a question set and
// attempt policy. TimeLimitSeconds is nil for untimed assignments.
type Assignment struct {
	ID               uuid.UUID        `json:"id"`
	CourseID         uuid.UUID        `json:"course_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Instructions     string           `json:"instructions"`
	Kind             AssignmentKind   `json:"kind"`
	TotalPoints      int              `json:"total_points"`
	TimeLimitSeconds *int             `json:"time_limit_seconds,omitempty"`
	AllowedAttempts  int              `json:"allowed_attempts"`
	DueAt            *time.Time       `json:"due_at,omitempty"`
	ShowResults      bool             `json:"show_results"`
	Status           AssignmentStatus `json:"status"`
	Questions        []Question       `json:"questions,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Validate checks the cross-field invariants that binding tags cannot express:
// a positive time limit when present, and question points summing to the
// assignment's total.
func (a *Assignment) Validate() error {
	if a.TimeLimitSeconds != nil && *a.TimeLimitSeconds <= 0 {
		return fmt.Errorf("%w: got %d", ErrBadTimeLimit, *a.TimeLimitSeconds)
	}
	if len(a.Questions) == 0 {
		return nil
	}
	sum := 0
	for i := range a.Questions {
		sum += a.Questions[i].Points
	}
	if sum != a.TotalPoints {
		return fmt.Errorf("%w: questions sum to %d, assignment total is %d", ErrPointsMismatch, sum, a.TotalPoints)
	}
	return nil
}

// CreateAssignmentRequest is the payload for creating a new assignment.
type CreateAssignmentRequest struct {
	CourseID         uuid.UUID      `json:"course_id" binding:"required"`
	Title            string         `json:"title" binding:"required,min=3,max=255"`
	Description      string         `json:"description" binding:"omitempty,max=2000"`
	Instructions     string         `json:"instructions" binding:"omitempty,max=4000"`
	Kind             AssignmentKind `json:"kind" binding:"required,oneof=assignment quiz"`
	TotalPoints      int            `json:"total_points" binding:"required,min=1"`
	TimeLimitSeconds *int           `json:"time_limit_seconds" binding:"omitempty,min=1,max=28800"`
	AllowedAttempts  int            `json:"allowed_attempts" binding:"required,min=1,max=10"`
	DueAt            *time.Time     `json:"due_at" binding:"omitempty"`
	ShowResults      *bool          `json:"show_results" binding:"omitempty"`
}

// UpdateAssignmentRequest is the payload for updating an existing assignment.
type UpdateAssignmentRequest struct {
	Title            string         `json:"title" binding:"omitempty,min=3,max=255"`
	Description      string         `json:"description" binding:"omitempty,max=2000"`
	Instructions     string         `json:"instructions" binding:"omitempty,max=4000"`
	Kind             AssignmentKind `json:"kind" binding:"omitempty,oneof=assignment quiz"`
	TotalPoints      *int           `json:"total_points" binding:"omitempty,min=1"`
	TimeLimitSeconds *int           `json:"time_limit_seconds" binding:"omitempty,min=1,max=28800"`
	AllowedAttempts  *int           `json:"allowed_attempts" binding:"omitempty,min=1,max=10"`
	DueAt            *time.Time     `json:"due_at" binding:"omitempty"`
	ShowResults      *bool          `json:"show_results" binding:"omitempty"`
}

// AssignmentPaper is the cached payload sent to students (no answer keys).
type AssignmentPaper struct {
	AssignmentID     uuid.UUID            `json:"assignment_id"`
	Title            string               `json:"title"`
	CourseTitle      string               `json:"course_title"`
	Instructions     string               `json:"instructions"`
	TotalPoints      int                  `json:"total_points"`
	TimeLimitSeconds *int                 `json:"time_limit_seconds,omitempty"`
	AllowedAttempts  int                  `json:"allowed_attempts"`
	Questions        []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without its answer key.
type QuestionForStudent struct {
	ID       uuid.UUID    `json:"id"`
	Kind     QuestionKind `json:"kind"`
	Prompt   string       `json:"prompt"`
	Points   int          `json:"points"`
	Options  []string     `json:"options,omitempty"`
	OrderNum int          `json:"order_num"`
}

// PaperFor strips answer keys and explanations from an assignment for
// delivery to students.
func PaperFor(a *Assignment, courseTitle string) *AssignmentPaper {
	questions := make([]QuestionForStudent, 0, len(a.Questions))
	for i := range a.Questions {
		q := &a.Questions[i]
		questions = append(questions, QuestionForStudent{
			ID:       q.ID,
			Kind:     q.Kind,
			Prompt:   q.Prompt,
			Points:   q.Points,
			Options:  q.Options,
			OrderNum: q.OrderNum,
		})
	}
	return &AssignmentPaper{
		AssignmentID:     a.ID,
		Title:            a.Title,
		CourseTitle:      courseTitle,
		Instructions:     a.Instructions,
		TotalPoints:      a.TotalPoints,
		TimeLimitSeconds: a.TimeLimitSeconds,
		AllowedAttempts:  a.AllowedAttempts,
		Questions:        questions,
	}
}
