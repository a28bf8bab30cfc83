package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states as persisted.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// NavigateRequest is the payload for moving the current question pointer.
// Index is only read for "jump".
type NavigateRequest struct {
	Direction string `json:"direction" binding:"required,oneof=next previous jump"`
	Index     int    `json:"index" binding:"min=0"`
}

// Attempt represents one full pass through an assignment by a student.
// Number is 1-based and consumes one unit of the allowed-attempts budget.
type Attempt struct {
	ID            uuid.UUID     `json:"id"`
	AssignmentID  uuid.UUID     `json:"assignment_id"`
	StudentID     int           `json:"student_id"`
	Number        int           `json:"number"`
	Status        AttemptStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	EarnedPoints  *int          `json:"earned_points,omitempty"`
	Percent       *int          `json:"percent,omitempty"`
	AutoSubmitted bool          `json:"auto_submitted"`
}
