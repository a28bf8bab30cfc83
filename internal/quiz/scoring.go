package quiz

import (
	"math"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/google/uuid"
)

// QuestionResult is the graded outcome for a single question. Correct is nil
// for questions without an answer key (essays).
type QuestionResult struct {
	QuestionID     uuid.UUID `json:"question_id"`
	Correct        *bool     `json:"correct,omitempty"`
	PointsAwarded  int       `json:"points_awarded"`
	PointsPossible int       `json:"points_possible"`
	Answered       bool      `json:"answered"`
	CorrectAnswer  *string   `json:"correct_answer,omitempty"`
	Explanation    string    `json:"explanation,omitempty"`
}

// Result is the graded outcome of one attempt.
type Result struct {
	Questions     []QuestionResult `json:"questions"`
	EarnedPoints  int              `json:"earned_points"`
	TotalPoints   int              `json:"total_points"`
	Percent       int              `json:"percent"`
	AttemptNumber int              `json:"attempt_number"`
	AutoSubmitted bool             `json:"auto_submitted"`
}

// Grade scores a set of answers against the question list. It is pure: same
// inputs always produce the same Result and neither argument is mutated.
//
// Correctness is a string comparison between the submitted value and the
// answer key. Unanswered auto-gradable questions count as incorrect. Essay
// points stay in the denominator, so assignments with essay questions cannot
// reach 100% from auto-grading alone; manual grading tops them up later.
func Grade(questions []model.Question, answers map[uuid.UUID]string) Result {
	res := Result{
		Questions: make([]QuestionResult, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		res.TotalPoints += q.Points

		value, answered := answers[q.ID]
		qr := QuestionResult{
			QuestionID:     q.ID,
			PointsPossible: q.Points,
			Answered:       answered,
			CorrectAnswer:  q.CorrectAnswer,
			Explanation:    q.Explanation,
		}

		if q.AutoGradable() {
			correct := answered && value == *q.CorrectAnswer
			qr.Correct = &correct
			if correct {
				qr.PointsAwarded = q.Points
				res.EarnedPoints += q.Points
			}
		}

		res.Questions = append(res.Questions, qr)
	}

	if res.TotalPoints > 0 {
		res.Percent = int(math.Round(float64(res.EarnedPoints) / float64(res.TotalPoints) * 100))
	}

	return res
}
