package model

import "github.com/google/uuid"

// Answer is a student's response to one question. Value holds the option
// index as a string for choice kinds and free text otherwise. Correct stays
// nil until the attempt is graded, and permanently nil for essays.
type Answer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Value      string    `json:"value"`
	Correct    *bool     `json:"correct,omitempty"`
}

// RecordAnswerRequest is the payload for saving a single answer.
type RecordAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Value      string    `json:"value" binding:"required,max=10000"`
}

// SubmitAttemptRequest is the payload for manually submitting an attempt.
// Confirm must be true: submission is irreversible.
type SubmitAttemptRequest struct {
	Confirm bool `json:"confirm" binding:"required"`
}
