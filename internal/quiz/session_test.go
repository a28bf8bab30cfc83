package quiz

import (
	"sync"
	"testing"
	"time"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// algebraQuiz returns a 2-question, 30-second quiz: Q1 multiple choice
// (correct index 0, 10 points), Q2 true/false (correct index 1, 10 points).
func algebraQuiz() model.Assignment {
	assignmentID := uuid.New()
	return model.Assignment{
		ID:               assignmentID,
		Title:            "Algebra Basics Quiz",
		Kind:             model.AssignmentKindQuiz,
		TotalPoints:      20,
		TimeLimitSeconds: intPtr(30),
		AllowedAttempts:  3,
		Status:           model.AssignmentStatusPublished,
		Questions: []model.Question{
			{
				ID:            uuid.New(),
				AssignmentID:  assignmentID,
				Kind:          model.QuestionKindMultipleChoice,
				Prompt:        "What is the solution to 2x + 5 = 15?",
				Points:        10,
				Options:       []string{"x = 5", "x = 10", "x = 7.5", "x = 6"},
				CorrectAnswer: strPtr("0"),
			},
			{
				ID:            uuid.New(),
				AssignmentID:  assignmentID,
				Kind:          model.QuestionKindTrueFalse,
				Prompt:        "The equation x^2 = 9 has only one solution.",
				Points:        10,
				Options:       []string{"True", "False"},
				CorrectAnswer: strPtr("1"),
			},
		},
	}
}

// frozenTimer keeps the real ticker from ever firing so tests can drive the
// countdown by calling tick directly.
var frozenTimer = WithTickInterval(time.Hour)

func TestStartEntersInProgress(t *testing.T) {
	s := NewSession(algebraQuiz(), 0, frozenTimer)

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if s.View() != ViewInProgress {
		t.Fatalf("expected in_progress, got %s", s.View())
	}
	if s.CurrentIndex() != 0 {
		t.Fatalf("expected index 0, got %d", s.CurrentIndex())
	}
	if s.Remaining() != 30 {
		t.Fatalf("expected 30 seconds remaining, got %d", s.Remaining())
	}

	// Start is idempotent while in progress.
	if err := s.Start(); err != nil {
		t.Fatalf("second start should no-op, got %v", err)
	}
	s.Close()
}

func TestStartRequiresQuestions(t *testing.T) {
	a := algebraQuiz()
	a.Questions = nil
	s := NewSession(a, 0, frozenTimer)

	if err := s.Start(); err != ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if s.View() != ViewInstructions {
		t.Fatalf("session must stay on instructions, got %s", s.View())
	}
}

func TestStartRefusedWhenAttemptsExhausted(t *testing.T) {
	a := algebraQuiz()
	a.AllowedAttempts = 1

	s := NewSession(a, 1, frozenTimer)
	if err := s.Start(); err != ErrAttemptsExhausted {
		t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
	}
	if s.View() != ViewInstructions {
		t.Fatalf("no transition may occur, got %s", s.View())
	}
}

func TestAnswerUpsert(t *testing.T) {
	a := algebraQuiz()
	s := NewSession(a, 0, frozenTimer)
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	q1 := a.Questions[0].ID
	if err := s.RecordAnswer(q1, "2"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := s.RecordAnswer(q1, "0"); err != nil {
		t.Fatalf("re-record failed: %v", err)
	}

	state := s.Snapshot()
	if len(state.Answers) != 1 {
		t.Fatalf("expected exactly one answer record, got %d", len(state.Answers))
	}
	if state.Answers[0].Value != "0" {
		t.Fatalf("expected last write to win, got %q", state.Answers[0].Value)
	}
}

func TestRecordAnswerGuards(t *testing.T) {
	a := algebraQuiz()
	s := NewSession(a, 0, frozenTimer)
	defer s.Close()

	if err := s.RecordAnswer(a.Questions[0].ID, "0"); err != ErrNotInProgress {
		t.Fatalf("expected ErrNotInProgress before start, got %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.RecordAnswer(uuid.New(), "0"); err != ErrUnknownQuestion {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestNavigationClamped(t *testing.T) {
	s := NewSession(algebraQuiz(), 0, frozenTimer)
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	s.Previous()
	if s.CurrentIndex() != 0 {
		t.Fatalf("previous from 0 must stay at 0, got %d", s.CurrentIndex())
	}

	s.Next()
	if s.CurrentIndex() != 1 {
		t.Fatalf("expected index 1, got %d", s.CurrentIndex())
	}
	s.Next()
	if s.CurrentIndex() != 1 {
		t.Fatalf("next past last must stay clamped, got %d", s.CurrentIndex())
	}

	s.JumpTo(-5)
	if s.CurrentIndex() != 0 {
		t.Fatalf("jump below 0 must clamp, got %d", s.CurrentIndex())
	}
	s.JumpTo(99)
	if s.CurrentIndex() != 1 {
		t.Fatalf("jump past last must clamp, got %d", s.CurrentIndex())
	}
}

func TestManualSubmitGrades(t *testing.T) {
	a := algebraQuiz()

	var sunk []Result
	s := NewSession(a, 0, frozenTimer, WithSink(func(r Result) { sunk = append(sunk, r) }))
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.RecordAnswer(a.Questions[0].ID, "0"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := s.RecordAnswer(a.Questions[1].ID, "0"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if err := s.Submit(false); err != ErrConfirmationRequired {
		t.Fatalf("unconfirmed submit must be refused, got %v", err)
	}
	if s.View() != ViewInProgress {
		t.Fatalf("refused submit must not transition, got %s", s.View())
	}

	if err := s.Submit(true); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if s.View() != ViewResults {
		t.Fatalf("expected results view, got %s", s.View())
	}

	res := s.Result()
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.EarnedPoints != 10 || res.Percent != 50 {
		t.Fatalf("expected 10 points / 50%%, got %d / %d%%", res.EarnedPoints, res.Percent)
	}
	if res.Questions[0].Correct == nil || !*res.Questions[0].Correct {
		t.Fatal("Q1 should be correct")
	}
	if res.Questions[1].Correct == nil || *res.Questions[1].Correct {
		t.Fatal("Q2 should be incorrect")
	}
	if res.AttemptNumber != 1 || res.AutoSubmitted {
		t.Fatalf("expected manual attempt 1, got %+v", res)
	}

	if len(sunk) != 1 {
		t.Fatalf("sink must receive the result exactly once, got %d", len(sunk))
	}

	// Answers are frozen after grading.
	if err := s.RecordAnswer(a.Questions[0].ID, "3"); err != ErrNotInProgress {
		t.Fatalf("expected ErrNotInProgress after grading, got %v", err)
	}
}

func TestDoubleSubmitGradesOnce(t *testing.T) {
	a := algebraQuiz()

	var mu sync.Mutex
	graded := 0
	s := NewSession(a, 0, frozenTimer, WithSink(func(Result) {
		mu.Lock()
		graded++
		mu.Unlock()
	}))
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Submit(true)
		}()
	}
	wg.Wait()

	// A late timer expiry against the finished attempt must also be a no-op.
	if s.tick() {
		t.Fatal("tick must stop once the attempt is finished")
	}

	if graded != 1 {
		t.Fatalf("scoring must run exactly once, ran %d times", graded)
	}
	if s.Result().AttemptNumber != 1 {
		t.Fatalf("expected a single consumed attempt, got %d", s.Result().AttemptNumber)
	}
}

func TestCountdownMonotonicAndAutoSubmit(t *testing.T) {
	a := algebraQuiz()
	a.TimeLimitSeconds = intPtr(3)

	graded := 0
	s := NewSession(a, 0, frozenTimer, WithSink(func(Result) { graded++ }))
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if !s.tick() {
		t.Fatal("countdown should continue at 2s")
	}
	if s.Remaining() != 2 {
		t.Fatalf("expected 2s remaining, got %d", s.Remaining())
	}
	if !s.tick() {
		t.Fatal("countdown should continue at 1s")
	}

	// The tick that reaches zero forces submission without confirmation.
	if s.tick() {
		t.Fatal("countdown must stop at zero")
	}
	if s.Remaining() != 0 {
		t.Fatalf("remaining must never go negative, got %d", s.Remaining())
	}
	if s.View() != ViewResults {
		t.Fatalf("expected auto-submit into results, got %s", s.View())
	}

	res := s.Result()
	if !res.AutoSubmitted {
		t.Fatal("result must be flagged auto-submitted")
	}
	if res.EarnedPoints != 0 || res.Percent != 0 {
		t.Fatalf("unanswered quiz must score 0, got %d / %d%%", res.EarnedPoints, res.Percent)
	}
	if graded != 1 {
		t.Fatalf("expected one grading pass, got %d", graded)
	}
}

func TestTimerExpiryEndToEnd(t *testing.T) {
	a := algebraQuiz()
	a.TimeLimitSeconds = intPtr(2)

	done := make(chan Result, 1)
	s := NewSession(a, 0, WithTickInterval(time.Millisecond), WithSink(func(r Result) { done <- r }))
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case res := <-done:
		if !res.AutoSubmitted {
			t.Fatal("expected auto-submitted result")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired auto-submit")
	}

	if s.View() != ViewResults {
		t.Fatalf("expected results view, got %s", s.View())
	}

	// The ticking goroutine must have released its stop channel.
	s.mu.Lock()
	released := s.stopTimer == nil
	s.mu.Unlock()
	if !released {
		t.Fatal("countdown timer must be released on exit from in_progress")
	}
}

func TestUntimedNeverTicks(t *testing.T) {
	a := algebraQuiz()
	a.TimeLimitSeconds = nil

	s := NewSession(a, 0, frozenTimer)
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	s.mu.Lock()
	hasTimer := s.stopTimer != nil
	s.mu.Unlock()
	if hasTimer {
		t.Fatal("untimed attempts must not acquire a timer")
	}

	if s.tick() {
		t.Fatal("tick must be inert for untimed attempts")
	}
	if s.Remaining() != untimed {
		t.Fatalf("expected untimed sentinel, got %d", s.Remaining())
	}
	if s.View() != ViewInProgress {
		t.Fatalf("untimed attempt must stay in progress, got %s", s.View())
	}
}

func TestRetryResetsAttempt(t *testing.T) {
	a := algebraQuiz()
	a.AllowedAttempts = 2

	s := NewSession(a, 0, frozenTimer)
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.RecordAnswer(a.Questions[0].ID, "0"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := s.Submit(true); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := s.Retry(); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if s.View() != ViewInstructions {
		t.Fatalf("retry must re-enter instructions, got %s", s.View())
	}
	if state := s.Snapshot(); len(state.Answers) != 0 || state.Result != nil {
		t.Fatalf("retry must reset answers and result, got %+v", state)
	}
	if s.Remaining() != 30 {
		t.Fatalf("retry must reset the timer display, got %d", s.Remaining())
	}

	if err := s.Start(); err != nil {
		t.Fatalf("second attempt start failed: %v", err)
	}
	if err := s.Submit(true); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if s.Result().AttemptNumber != 2 {
		t.Fatalf("expected attempt 2, got %d", s.Result().AttemptNumber)
	}

	// Budget is now spent.
	if err := s.Retry(); err != ErrAttemptsExhausted {
		t.Fatalf("expected ErrAttemptsExhausted, got %v", err)
	}
}

func TestCloseReleasesTimerAndRejectsEvents(t *testing.T) {
	a := algebraQuiz()
	a.TimeLimitSeconds = intPtr(1)

	graded := 0
	s := NewSession(a, 0, WithTickInterval(50*time.Millisecond), WithSink(func(Result) { graded++ }))

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	s.Close()

	// A dangling tick against the disposed session must not fire.
	time.Sleep(120 * time.Millisecond)
	if graded != 0 {
		t.Fatal("closed session must never grade")
	}
	if s.View() != ViewInProgress {
		t.Fatalf("close must not transition views, got %s", s.View())
	}

	if err := s.RecordAnswer(a.Questions[0].ID, "0"); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Submit(true); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Start(); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	s.Close() // idempotent
}

func TestSnapshotFollowsQuestionOrder(t *testing.T) {
	a := algebraQuiz()
	s := NewSession(a, 0, frozenTimer)
	defer s.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.RecordAnswer(a.Questions[1].ID, "1"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := s.RecordAnswer(a.Questions[0].ID, "0"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	state := s.Snapshot()
	if len(state.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(state.Answers))
	}
	if state.Answers[0].QuestionID != a.Questions[0].ID {
		t.Fatal("snapshot answers must follow question order")
	}
	if state.Untimed {
		t.Fatal("timed quiz must not report untimed")
	}
}
