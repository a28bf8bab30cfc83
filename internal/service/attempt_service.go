package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/brainwavehq/academy-backend/internal/config"
	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/quiz"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrAssignmentNotAvailable = errors.New("assignment is not available")
	ErrNoActiveSession        = errors.New("no active attempt session")
	ErrNoCompletedAttempt     = errors.New("no completed attempt")
)

type attemptKey struct {
	AssignmentID uuid.UUID
	StudentID    int
}

// answerRecord mirrors one stored answer in the result queue payload.
type answerRecord struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
	Correct    *bool  `json:"correct"`
}

// answerJob is the persist_answers_queue payload.
type answerJob struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// resultJob is the persist_results_queue payload.
type resultJob struct {
	AttemptID     string         `json:"attempt_id"`
	AssignmentID  string         `json:"assignment_id"`
	StudentID     int            `json:"student_id"`
	EarnedPoints  int            `json:"earned_points"`
	Percent       int            `json:"percent"`
	AutoSubmitted bool           `json:"auto_submitted"`
	FinishedAt    time.Time      `json:"finished_at"`
	Answers       []answerRecord `json:"answers"`
}

// AssignmentReader is the assignment lookup surface the attempt flow needs.
// Satisfied by repository.AssignmentRepository.
type AssignmentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	GetWithQuestions(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	ListQuestions(ctx context.Context, assignmentID uuid.UUID) ([]model.Question, error)
}

// AttemptStore is the durable attempt surface the attempt flow needs.
// Satisfied by repository.AttemptRepository.
type AttemptStore interface {
	Create(ctx context.Context, attempt *model.Attempt) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountCompleted(ctx context.Context, assignmentID uuid.UUID, studentID int) (int, error)
	GetLatestCompleted(ctx context.Context, assignmentID uuid.UUID, studentID int) (*model.Attempt, error)
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error)
	ListCompletedByStudent(ctx context.Context, courseID uuid.UUID, studentID int) ([]model.Attempt, error)
}

// AttemptService drives attempt sessions: the instructions → in-progress →
// results flow, answer autosave, and handoff of graded results to the
// persistence queue. Live sessions are in-memory; PostgreSQL holds the
// durable attempt history.
type AttemptService struct {
	assignRepo  AssignmentReader
	attemptRepo AttemptStore
	registry    *quiz.Registry
	rdb         *redis.Client
	log         zerolog.Logger

	// active maps a live in-progress session to its attempt row.
	mu     sync.Mutex
	active map[attemptKey]uuid.UUID
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	assignRepo AssignmentReader,
	attemptRepo AttemptStore,
	registry *quiz.Registry,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		assignRepo:  assignRepo,
		attemptRepo: attemptRepo,
		registry:    registry,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
		active:      make(map[attemptKey]uuid.UUID),
	}
}

// Enter returns the session state for an assignment, creating the session in
// the instructions view on first entry.
func (s *AttemptService) Enter(ctx context.Context, assignmentID uuid.UUID, studentID int) (quiz.State, error) {
	sess, err := s.getOrBuildSession(ctx, assignmentID, studentID)
	if err != nil {
		return quiz.State{}, err
	}
	return sess.Snapshot(), nil
}

// Start begins a new attempt: an IN_PROGRESS attempt row is recorded first,
// then the session moves to in-progress. The row must exist before the view
// can leave instructions, so a grading pass always finds it, even when a
// one-second time limit expires immediately after starting. If the insert
// fails the session never starts; if the session refuses to start the row is
// rolled back.
func (s *AttemptService) Start(ctx context.Context, assignmentID uuid.UUID, studentID int) (quiz.State, error) {
	sess, err := s.getOrBuildSession(ctx, assignmentID, studentID)
	if err != nil {
		return quiz.State{}, err
	}

	key := attemptKey{AssignmentID: assignmentID, StudentID: studentID}
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.View() != quiz.ViewInstructions {
		// Double starts are no-ops; the first one owns the attempt row.
		return sess.Snapshot(), nil
	}

	created := uuid.Nil
	if _, ok := s.active[key]; !ok {
		attempt := &model.Attempt{
			AssignmentID: assignmentID,
			StudentID:    studentID,
			Number:       sess.AttemptsUsed() + 1,
			StartedAt:    time.Now().UTC(),
		}
		if err := s.attemptRepo.Create(ctx, attempt); err != nil {
			return quiz.State{}, err
		}
		s.active[key] = attempt.ID
		created = attempt.ID
	}

	if err := sess.Start(); err != nil {
		if created != uuid.Nil {
			delete(s.active, key)
			if delErr := s.attemptRepo.Delete(ctx, created); delErr != nil {
				s.log.Error().Err(delErr).
					Str("attempt_id", created.String()).
					Msg("Orphan attempt cleanup failed")
			}
		}
		return quiz.State{}, err
	}

	return sess.Snapshot(), nil
}

// State returns a snapshot of the live session, for page reloads and the
// WebSocket stream.
func (s *AttemptService) State(assignmentID uuid.UUID, studentID int) (quiz.State, error) {
	sess, ok := s.registry.Get(assignmentID, studentID)
	if !ok {
		return quiz.State{}, ErrNoActiveSession
	}
	return sess.Snapshot(), nil
}

// RecordAnswer saves one answer into the live session and autosaves it: the
// Redis draft hash is updated on the hot path and a persistence job is queued
// for the answer worker. Autosave failures are logged, never surfaced; the
// in-memory answer is already safe for grading.
func (s *AttemptService) RecordAnswer(ctx context.Context, assignmentID uuid.UUID, studentID int, questionID uuid.UUID, value string) error {
	sess, ok := s.registry.Get(assignmentID, studentID)
	if !ok {
		return ErrNoActiveSession
	}
	if err := sess.RecordAnswer(questionID, value); err != nil {
		return err
	}

	s.mu.Lock()
	attemptID, ok := s.active[attemptKey{AssignmentID: assignmentID, StudentID: studentID}]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	draftKey := config.CacheKey.StudentDraftAnswersKey(assignmentID.String(), studentID)
	if err := s.rdb.HSet(ctx, draftKey, questionID.String(), value).Err(); err != nil {
		s.log.Warn().Err(err).Str("assignment_id", assignmentID.String()).Msg("Draft autosave failed")
	}

	raw, err := json.Marshal(answerJob{
		AttemptID:  attemptID.String(),
		QuestionID: questionID.String(),
		Value:      value,
	})
	if err != nil {
		return nil
	}
	if err := s.rdb.LPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("assignment_id", assignmentID.String()).Msg("Answer enqueue failed")
	}
	return nil
}

// NavAction identifies a navigation event within an attempt.
type NavAction string

const (
	NavNext     NavAction = "next"
	NavPrevious NavAction = "previous"
	NavJump     NavAction = "jump"
)

// Navigate moves the current question pointer. Out-of-range jumps clamp.
func (s *AttemptService) Navigate(assignmentID uuid.UUID, studentID int, action NavAction, target int) (quiz.State, error) {
	sess, ok := s.registry.Get(assignmentID, studentID)
	if !ok {
		return quiz.State{}, ErrNoActiveSession
	}

	switch action {
	case NavNext:
		sess.Next()
	case NavPrevious:
		sess.Previous()
	case NavJump:
		sess.JumpTo(target)
	}
	return sess.Snapshot(), nil
}

// Submit finishes the attempt on explicit, confirmed user request. The graded
// result flows to the persistence queue through the session sink.
func (s *AttemptService) Submit(ctx context.Context, assignmentID uuid.UUID, studentID int, confirmed bool) (quiz.State, error) {
	sess, ok := s.registry.Get(assignmentID, studentID)
	if !ok {
		return quiz.State{}, ErrNoActiveSession
	}
	if err := sess.Submit(confirmed); err != nil {
		return quiz.State{}, err
	}
	return sess.Snapshot(), nil
}

// Retry returns the session to the instructions view for a fresh attempt,
// provided the attempt budget allows one.
func (s *AttemptService) Retry(assignmentID uuid.UUID, studentID int) (quiz.State, error) {
	sess, ok := s.registry.Get(assignmentID, studentID)
	if !ok {
		return quiz.State{}, ErrNoActiveSession
	}
	if err := sess.Retry(); err != nil {
		return quiz.State{}, err
	}
	return sess.Snapshot(), nil
}

// Leave drops the live session. The countdown timer is released; a later
// Enter rebuilds state from the durable attempt history.
func (s *AttemptService) Leave(assignmentID uuid.UUID, studentID int) {
	s.registry.Remove(assignmentID, studentID)

	s.mu.Lock()
	delete(s.active, attemptKey{AssignmentID: assignmentID, StudentID: studentID})
	s.mu.Unlock()
}

// Results returns the graded result for the student's latest attempt, from
// the live session when present or the attempt history otherwise. When the
// assignment hides results, per-question details are stripped and only the
// totals remain.
func (s *AttemptService) Results(ctx context.Context, assignmentID uuid.UUID, studentID int) (*quiz.Result, error) {
	assignment, err := s.assignRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if sess, ok := s.registry.Get(assignmentID, studentID); ok {
		if r := sess.Result(); r != nil {
			return redactResult(assignment, r), nil
		}
	}

	attempt, err := s.attemptRepo.GetLatestCompleted(ctx, assignmentID, studentID)
	if err != nil {
		return nil, ErrNoCompletedAttempt
	}
	answers, err := s.attemptRepo.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	questions, err := s.assignRepo.ListQuestions(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return redactResult(assignment, rebuildResult(assignment, questions, attempt, answers)), nil
}

// ListCourseAttempts retrieves a student's completed attempts across a course,
// for the assignment list status overlay.
func (s *AttemptService) ListCourseAttempts(ctx context.Context, courseID uuid.UUID, studentID int) ([]model.Attempt, error) {
	attempts, err := s.attemptRepo.ListCompletedByStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

// ─── Session plumbing ───────────────────────────────────────────────────────

func (s *AttemptService) getOrBuildSession(ctx context.Context, assignmentID uuid.UUID, studentID int) (*quiz.Session, error) {
	if sess, ok := s.registry.Get(assignmentID, studentID); ok {
		return sess, nil
	}

	assignment, err := s.assignRepo.GetWithQuestions(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != model.AssignmentStatusPublished {
		return nil, ErrAssignmentNotAvailable
	}

	used, err := s.attemptRepo.CountCompleted(ctx, assignmentID, studentID)
	if err != nil {
		return nil, err
	}

	sess := s.registry.GetOrCreate(assignmentID, studentID, func() *quiz.Session {
		return quiz.NewSession(*assignment, used, quiz.WithSink(s.sinkFor(assignmentID, studentID)))
	})
	return sess, nil
}

// sinkFor builds the per-session result sink. It runs once per finished
// attempt, on whichever goroutine finished it (handler or countdown timer),
// and hands the graded result to the result worker via Redis.
func (s *AttemptService) sinkFor(assignmentID uuid.UUID, studentID int) quiz.ResultSink {
	return func(res quiz.Result) {
		key := attemptKey{AssignmentID: assignmentID, StudentID: studentID}

		s.mu.Lock()
		attemptID, ok := s.active[key]
		delete(s.active, key)
		s.mu.Unlock()
		if !ok {
			s.log.Error().
				Str("assignment_id", assignmentID.String()).
				Int("student_id", studentID).
				Msg("Graded attempt has no active row, result dropped")
			return
		}

		var answers []answerRecord
		if sess, live := s.registry.Get(assignmentID, studentID); live {
			snap := sess.Snapshot()
			for _, a := range snap.Answers {
				answers = append(answers, answerRecord{
					QuestionID: a.QuestionID.String(),
					Value:      a.Value,
					Correct:    a.Correct,
				})
			}
		}

		raw, err := json.Marshal(resultJob{
			AttemptID:     attemptID.String(),
			AssignmentID:  assignmentID.String(),
			StudentID:     studentID,
			EarnedPoints:  res.EarnedPoints,
			Percent:       res.Percent,
			AutoSubmitted: res.AutoSubmitted,
			FinishedAt:    time.Now().UTC(),
			Answers:       answers,
		})
		if err != nil {
			s.log.Error().Err(err).Msg("Marshal result job")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.rdb.LPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
			s.log.Error().Err(err).
				Str("attempt_id", attemptID.String()).
				Msg("Result enqueue failed")
			return
		}

		s.log.Info().
			Str("attempt_id", attemptID.String()).
			Int("percent", res.Percent).
			Bool("auto_submitted", res.AutoSubmitted).
			Msg("Attempt graded")
	}
}

// ─── Result reconstruction ──────────────────────────────────────────────────

// rebuildResult reassembles a Result from the durable attempt history.
func rebuildResult(assignment *model.Assignment, questions []model.Question, attempt *model.Attempt, answers []model.Answer) *quiz.Result {
	answerMap := make(map[uuid.UUID]model.Answer, len(answers))
	for _, a := range answers {
		answerMap[a.QuestionID] = a
	}

	res := &quiz.Result{
		Questions:     make([]quiz.QuestionResult, 0, len(questions)),
		TotalPoints:   assignment.TotalPoints,
		AttemptNumber: attempt.Number,
		AutoSubmitted: attempt.AutoSubmitted,
	}
	if attempt.EarnedPoints != nil {
		res.EarnedPoints = *attempt.EarnedPoints
	}
	if attempt.Percent != nil {
		res.Percent = *attempt.Percent
	}

	for i := range questions {
		q := &questions[i]
		qr := quiz.QuestionResult{
			QuestionID:     q.ID,
			PointsPossible: q.Points,
			CorrectAnswer:  q.CorrectAnswer,
			Explanation:    q.Explanation,
		}
		if a, ok := answerMap[q.ID]; ok {
			qr.Answered = a.Value != ""
			qr.Correct = a.Correct
			if a.Correct != nil && *a.Correct {
				qr.PointsAwarded = q.Points
			}
		}
		res.Questions = append(res.Questions, qr)
	}
	return res
}

// redactResult strips per-question details when the assignment hides results.
func redactResult(assignment *model.Assignment, res *quiz.Result) *quiz.Result {
	if assignment.ShowResults {
		return res
	}
	redacted := *res
	redacted.Questions = nil
	return &redacted
}
