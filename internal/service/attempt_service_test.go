package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brainwavehq/academy-backend/internal/config"
	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/quiz"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func ptrStr(s string) *string { return &s }
func ptrInt(n int) *int       { return &n }

// publishedAssignment returns a 2-question published quiz worth 20 points.
func publishedAssignment(limitSeconds *int) *model.Assignment {
	id := uuid.New()
	return &model.Assignment{
		ID:               id,
		Title:            "Cell Structure Quiz",
		Kind:             model.AssignmentKindQuiz,
		TotalPoints:      20,
		TimeLimitSeconds: limitSeconds,
		AllowedAttempts:  2,
		ShowResults:      true,
		Status:           model.AssignmentStatusPublished,
		Questions: []model.Question{
			{
				ID:            uuid.New(),
				AssignmentID:  id,
				Kind:          model.QuestionKindMultipleChoice,
				Prompt:        "Which organelle produces ATP?",
				Points:        10,
				Options:       []string{"Mitochondria", "Nucleus", "Ribosome", "Golgi"},
				CorrectAnswer: ptrStr("0"),
			},
			{
				ID:            uuid.New(),
				AssignmentID:  id,
				Kind:          model.QuestionKindTrueFalse,
				Prompt:        "Plant cells have no cell wall.",
				Points:        10,
				Options:       []string{"True", "False"},
				CorrectAnswer: ptrStr("1"),
			},
		},
	}
}

type stubAssignments struct {
	assignment *model.Assignment
}

func (s *stubAssignments) GetByID(_ context.Context, _ uuid.UUID) (*model.Assignment, error) {
	return s.assignment, nil
}

func (s *stubAssignments) GetWithQuestions(_ context.Context, _ uuid.UUID) (*model.Assignment, error) {
	return s.assignment, nil
}

func (s *stubAssignments) ListQuestions(_ context.Context, _ uuid.UUID) ([]model.Question, error) {
	return s.assignment.Questions, nil
}

type stubAttempts struct {
	mu        sync.Mutex
	createErr error
	onCreate  func()
	created   []model.Attempt
	deleted   []uuid.UUID
}

func (s *stubAttempts) Create(_ context.Context, attempt *model.Attempt) error {
	s.mu.Lock()
	hook := s.onCreate
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	attempt.ID = uuid.New()
	s.created = append(s.created, *attempt)
	return nil
}

func (s *stubAttempts) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubAttempts) CountCompleted(_ context.Context, _ uuid.UUID, _ int) (int, error) {
	return 0, nil
}

func (s *stubAttempts) GetLatestCompleted(_ context.Context, _ uuid.UUID, _ int) (*model.Attempt, error) {
	return nil, errors.New("no rows")
}

func (s *stubAttempts) ListAnswers(_ context.Context, _ uuid.UUID) ([]model.Answer, error) {
	return nil, nil
}

func (s *stubAttempts) ListCompletedByStudent(_ context.Context, _ uuid.UUID, _ int) ([]model.Attempt, error) {
	return nil, nil
}

func newTestAttemptService(t *testing.T, a *model.Assignment, store *stubAttempts) (*AttemptService, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := NewAttemptService(&stubAssignments{assignment: a}, store, quiz.NewRegistry(), rdb, zerolog.Nop())
	return svc, rdb
}

func TestStartRecordsRowBeforeSession(t *testing.T) {
	a := publishedAssignment(nil)
	store := &stubAttempts{}
	svc, _ := newTestAttemptService(t, a, store)
	ctx := context.Background()

	if _, err := svc.Enter(ctx, a.ID, 1); err != nil {
		t.Fatalf("enter failed: %v", err)
	}

	// Observe the session view at the moment the row is inserted.
	viewDuringInsert := quiz.View("")
	store.onCreate = func() {
		if st, err := svc.State(a.ID, 1); err == nil {
			viewDuringInsert = st.View
		}
	}

	state, err := svc.Start(ctx, a.ID, 1)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if state.View != quiz.ViewInProgress {
		t.Fatalf("expected in_progress, got %s", state.View)
	}
	if viewDuringInsert != quiz.ViewInstructions {
		t.Fatalf("attempt row must be inserted before the session starts, view was %q", viewDuringInsert)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one attempt row, got %d", len(store.created))
	}
	if store.created[0].Number != 1 {
		t.Fatalf("expected attempt number 1, got %d", store.created[0].Number)
	}

	// A second start must not create a second row.
	if _, err := svc.Start(ctx, a.ID, 1); err != nil {
		t.Fatalf("double start must no-op, got %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("double start created an extra row, have %d", len(store.created))
	}
}

func TestStartInsertFailureKeepsInstructions(t *testing.T) {
	a := publishedAssignment(nil)
	store := &stubAttempts{createErr: errors.New("connection refused")}
	svc, _ := newTestAttemptService(t, a, store)
	ctx := context.Background()

	if _, err := svc.Start(ctx, a.ID, 1); err == nil {
		t.Fatal("start must surface the insert failure")
	}
	state, err := svc.State(a.ID, 1)
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	if state.View != quiz.ViewInstructions {
		t.Fatalf("failed insert must leave the session on instructions, got %s", state.View)
	}

	// Once the database recovers the student can start normally.
	store.mu.Lock()
	store.createErr = nil
	store.mu.Unlock()

	state, err = svc.Start(ctx, a.ID, 1)
	if err != nil {
		t.Fatalf("retried start failed: %v", err)
	}
	if state.View != quiz.ViewInProgress {
		t.Fatalf("expected in_progress, got %s", state.View)
	}
	if len(store.created) != 1 || len(store.deleted) != 0 {
		t.Fatalf("expected 1 row and no rollbacks, got %d/%d", len(store.created), len(store.deleted))
	}
}

func TestStartRollsBackRowWhenSessionRefuses(t *testing.T) {
	a := publishedAssignment(nil)
	a.Questions = nil
	store := &stubAttempts{}
	svc, _ := newTestAttemptService(t, a, store)

	_, err := svc.Start(context.Background(), a.ID, 1)
	if !errors.Is(err, quiz.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected the row insert to have run, got %d", len(store.created))
	}
	if len(store.deleted) != 1 || store.deleted[0] != store.created[0].ID {
		t.Fatalf("refused start must roll the row back, deleted %v", store.deleted)
	}
}

func TestSubmitEnqueuesResultForRow(t *testing.T) {
	a := publishedAssignment(nil)
	store := &stubAttempts{}
	svc, rdb := newTestAttemptService(t, a, store)
	ctx := context.Background()

	if _, err := svc.Start(ctx, a.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.RecordAnswer(ctx, a.ID, 1, a.Questions[0].ID, "0"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	// Answer autosave reaches the draft hash and the answer queue.
	draftKey := config.CacheKey.StudentDraftAnswersKey(a.ID.String(), 1)
	if v, err := rdb.HGet(ctx, draftKey, a.Questions[0].ID.String()).Result(); err != nil || v != "0" {
		t.Fatalf("expected draft autosave, got %q (%v)", v, err)
	}
	if n := rdb.LLen(ctx, config.WorkerKey.PersistAnswersQueue).Val(); n != 1 {
		t.Fatalf("expected 1 queued answer, got %d", n)
	}

	state, err := svc.Submit(ctx, a.ID, 1, true)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if state.View != quiz.ViewResults {
		t.Fatalf("expected results, got %s", state.View)
	}

	raw, err := rdb.RPop(ctx, config.WorkerKey.PersistResultsQueue).Result()
	if err != nil {
		t.Fatalf("expected a queued result job: %v", err)
	}
	var job struct {
		AttemptID string `json:"attempt_id"`
		Percent   int    `json:"percent"`
	}
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		t.Fatalf("unmarshal result job: %v", err)
	}
	if job.AttemptID != store.created[0].ID.String() {
		t.Fatalf("result job for attempt %s, want %s", job.AttemptID, store.created[0].ID)
	}
	if job.Percent != 50 {
		t.Fatalf("expected 50%%, got %d%%", job.Percent)
	}
}

func TestAutoSubmitFindsAttemptRow(t *testing.T) {
	a := publishedAssignment(ptrInt(1))
	store := &stubAttempts{}
	svc, rdb := newTestAttemptService(t, a, store)
	ctx := context.Background()

	if _, err := svc.Start(ctx, a.ID, 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// The one-second limit expires on its own; the graded result must still
	// reach the persistence queue rather than being dropped for lack of a row.
	deadline := time.Now().Add(3 * time.Second)
	for rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Val() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("auto-submit never enqueued a result")
		}
		time.Sleep(50 * time.Millisecond)
	}

	raw := rdb.RPop(ctx, config.WorkerKey.PersistResultsQueue).Val()
	var job struct {
		AttemptID     string `json:"attempt_id"`
		AutoSubmitted bool   `json:"auto_submitted"`
	}
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		t.Fatalf("unmarshal result job: %v", err)
	}
	if !job.AutoSubmitted {
		t.Fatal("expected an auto-submitted result")
	}
	if job.AttemptID != store.created[0].ID.String() {
		t.Fatalf("result job for attempt %s, want %s", job.AttemptID, store.created[0].ID)
	}

	state, err := svc.State(a.ID, 1)
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	if state.View != quiz.ViewResults {
		t.Fatalf("expected results after expiry, got %s", state.View)
	}
}
