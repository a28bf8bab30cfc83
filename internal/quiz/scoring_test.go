package quiz

import (
	"reflect"
	"testing"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/google/uuid"
)

func TestGradeDeterministic(t *testing.T) {
	a := algebraQuiz()
	answers := map[uuid.UUID]string{
		a.Questions[0].ID: "0",
		a.Questions[1].ID: "0",
	}

	first := Grade(a.Questions, answers)
	second := Grade(a.Questions, answers)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grading must be deterministic:\n%+v\n%+v", first, second)
	}
}

func TestGradeDoesNotMutateInputs(t *testing.T) {
	a := algebraQuiz()
	answers := map[uuid.UUID]string{a.Questions[0].ID: "0"}

	questionsBefore := make([]model.Question, len(a.Questions))
	copy(questionsBefore, a.Questions)
	answersBefore := map[uuid.UUID]string{a.Questions[0].ID: "0"}

	_ = Grade(a.Questions, answers)

	if !reflect.DeepEqual(a.Questions, questionsBefore) {
		t.Fatal("questions were mutated")
	}
	if !reflect.DeepEqual(answers, answersBefore) {
		t.Fatal("answers were mutated")
	}
}

func TestGradeUnansweredCountsIncorrect(t *testing.T) {
	a := algebraQuiz()
	res := Grade(a.Questions, nil)

	if res.EarnedPoints != 0 || res.Percent != 0 {
		t.Fatalf("expected 0 points / 0%%, got %d / %d%%", res.EarnedPoints, res.Percent)
	}
	for _, qr := range res.Questions {
		if qr.Correct == nil || *qr.Correct {
			t.Fatalf("unanswered auto-gradable question must be incorrect: %+v", qr)
		}
		if qr.Answered {
			t.Fatal("question must be reported unanswered")
		}
	}
}

func TestGradeEssayNeverAutoScored(t *testing.T) {
	assignmentID := uuid.New()
	essay := model.Question{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		Kind:         model.QuestionKindEssay,
		Prompt:       "Explain the difference between an expression and an equation.",
		Points:       45,
	}

	res := Grade([]model.Question{essay}, map[uuid.UUID]string{
		essay.ID: "An expression has no equals sign.",
	})

	if res.Questions[0].Correct != nil {
		t.Fatal("essay correctness must stay undefined")
	}
	if !res.Questions[0].Answered {
		t.Fatal("submitted essay must be reported answered")
	}
	// Essay points stay in the denominator: auto-grading alone yields 0%.
	if res.TotalPoints != 45 || res.EarnedPoints != 0 || res.Percent != 0 {
		t.Fatalf("expected 0/45 at 0%%, got %d/%d at %d%%", res.EarnedPoints, res.TotalPoints, res.Percent)
	}
}

func TestGradeMixedKinds(t *testing.T) {
	assignmentID := uuid.New()
	questions := []model.Question{
		{ID: uuid.New(), AssignmentID: assignmentID, Kind: model.QuestionKindShortAnswer, Prompt: "Solve for y: 3y - 7 = 14", Points: 20, CorrectAnswer: strPtr("7")},
		{ID: uuid.New(), AssignmentID: assignmentID, Kind: model.QuestionKindMultipleChoice, Prompt: "Pick one", Points: 15, Options: []string{"a", "b"}, CorrectAnswer: strPtr("1")},
		{ID: uuid.New(), AssignmentID: assignmentID, Kind: model.QuestionKindEssay, Prompt: "Discuss.", Points: 45},
	}

	res := Grade(questions, map[uuid.UUID]string{
		questions[0].ID: "7",
		questions[1].ID: "0",
		questions[2].ID: "Some essay text.",
	})

	if res.TotalPoints != 80 {
		t.Fatalf("expected total 80, got %d", res.TotalPoints)
	}
	if res.EarnedPoints != 20 {
		t.Fatalf("expected 20 earned, got %d", res.EarnedPoints)
	}
	// round(20/80*100) = 25
	if res.Percent != 25 {
		t.Fatalf("expected 25%%, got %d%%", res.Percent)
	}
}

func TestGradeRoundsToNearestInteger(t *testing.T) {
	assignmentID := uuid.New()
	questions := make([]model.Question, 3)
	for i := range questions {
		questions[i] = model.Question{
			ID:            uuid.New(),
			AssignmentID:  assignmentID,
			Kind:          model.QuestionKindTrueFalse,
			Prompt:        "T/F",
			Points:        1,
			Options:       []string{"True", "False"},
			CorrectAnswer: strPtr("0"),
		}
	}

	one := Grade(questions, map[uuid.UUID]string{questions[0].ID: "0"})
	if one.Percent != 33 {
		t.Fatalf("round(1/3*100) should be 33, got %d", one.Percent)
	}

	two := Grade(questions, map[uuid.UUID]string{
		questions[0].ID: "0",
		questions[1].ID: "0",
	})
	if two.Percent != 67 {
		t.Fatalf("round(2/3*100) should be 67, got %d", two.Percent)
	}
}

func TestGradeEmptyQuestionList(t *testing.T) {
	res := Grade(nil, nil)
	if res.TotalPoints != 0 || res.Percent != 0 || len(res.Questions) != 0 {
		t.Fatalf("empty grading must be zero-valued, got %+v", res)
	}
}
