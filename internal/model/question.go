package model

import (
	"github.com/google/uuid"
)

// QuestionKind enumerates the supported question formats.
type QuestionKind string

const (
	QuestionKindMultipleChoice QuestionKind = "multiple_choice"
	QuestionKindTrueFalse      QuestionKind = "true_false"
	QuestionKindShortAnswer    QuestionKind = "short_answer"
	QuestionKindEssay          QuestionKind = "essay"
)

// Question represents a single assignment question.
// CorrectAnswer holds the option index as a string for choice kinds, the
// expected literal for short answers, and nil for essays (not auto-gradable).
type Question struct {
	ID            uuid.UUID    `json:"id"`
	AssignmentID  uuid.UUID    `json:"assignment_id"`
	Kind          QuestionKind `json:"kind"`
	Prompt        string       `json:"prompt"`
	Points        int          `json:"points"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	OrderNum      int          `json:"order_num"`
}

// AutoGradable reports whether the question carries an answer key.
func (q *Question) AutoGradable() bool {
	return q.CorrectAnswer != nil
}

// HasOptions reports whether the question kind is option-based.
func (q *Question) HasOptions() bool {
	return q.Kind == QuestionKindMultipleChoice || q.Kind == QuestionKindTrueFalse
}

// AddQuestionRequest is the payload for adding a question to an assignment.
type AddQuestionRequest struct {
	Kind          QuestionKind `json:"kind" binding:"required,oneof=multiple_choice true_false short_answer essay"`
	Prompt        string       `json:"prompt" binding:"required,min=1,max=2000"`
	Points        int          `json:"points" binding:"required,min=1"`
	Options       []string     `json:"options" binding:"omitempty,dive,min=1,max=500"`
	CorrectAnswer *string      `json:"correct_answer" binding:"omitempty,max=500"`
	Explanation   string       `json:"explanation" binding:"omitempty,max=2000"`
	OrderNum      int          `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
