package quiz

import (
	"errors"
	"sync"
	"time"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/google/uuid"
)

// View identifies the screen an attempt session is showing.
type View string

const (
	ViewInstructions View = "instructions"
	ViewInProgress   View = "in_progress"
	ViewResults      View = "results"
)

// untimed is the sentinel remaining-time value for assignments without a limit.
const untimed = -1

// Session errors. ErrAttemptsExhausted and ErrNotInProgress are race-prevention
// guards: callers reject the request without treating it as a user mistake.
var (
	ErrNoQuestions          = errors.New("assignment has no questions")
	ErrAttemptsExhausted    = errors.New("no attempts remaining")
	ErrNotInProgress        = errors.New("attempt is not in progress")
	ErrUnknownQuestion      = errors.New("question does not belong to this assignment")
	ErrConfirmationRequired = errors.New("submission requires explicit confirmation")
	ErrClosed               = errors.New("session is closed")
)

// ResultSink receives the graded result exactly once per finished attempt.
// It is invoked outside the session lock; failures are the sink's concern and
// never roll the session back to in-progress.
type ResultSink func(Result)

// Option configures a Session.
type Option func(*Session)

// WithClock injects a time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTickInterval overrides the one-second countdown tick. Test-only.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickEvery = d }
}

// WithSink registers the result sink.
func WithSink(sink ResultSink) Option {
	return func(s *Session) { s.sink = sink }
}

// Session is the state machine for one student working through one
// assignment: instructions → in_progress → results. All events (user
// actions, countdown ticks, submission) are serialized through the session
// mutex, so concurrent submits and timer expiry cannot double-grade.
//
// A Session is owned by exactly one presenting client and is never shared
// across students.
type Session struct {
	mu sync.Mutex

	assignment model.Assignment

	view         View
	index        int
	answers      map[uuid.UUID]model.Answer
	remaining    int
	attemptsUsed int
	submitting   bool
	closed       bool
	result       *Result
	startedAt    time.Time

	// stopTimer is non-nil only while a timed attempt is in progress.
	stopTimer chan struct{}

	sink      ResultSink
	now       func() time.Time
	tickEvery time.Duration
}

// NewSession creates a session in the instructions view. attemptsUsed is the
// number of attempts the student has already consumed for this assignment.
func NewSession(assignment model.Assignment, attemptsUsed int, opts ...Option) *Session {
	s := &Session{
		assignment:   assignment,
		view:         ViewInstructions,
		answers:      make(map[uuid.UUID]model.Answer),
		remaining:    untimed,
		attemptsUsed: attemptsUsed,
		now:          time.Now,
		tickEvery:    time.Second,
	}
	if assignment.TimeLimitSeconds != nil {
		s.remaining = *assignment.TimeLimitSeconds
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start moves the session from instructions to in-progress, resets the
// answer collection and question index, and acquires the countdown timer for
// timed assignments. It refuses to start when the assignment has no
// questions or the attempt budget is spent.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.view != ViewInstructions {
		// Not an error: double-clicks and races are expected.
		return nil
	}
	if len(s.assignment.Questions) == 0 {
		return ErrNoQuestions
	}
	if s.attemptsUsed >= s.assignment.AllowedAttempts {
		return ErrAttemptsExhausted
	}

	s.answers = make(map[uuid.UUID]model.Answer, len(s.assignment.Questions))
	s.index = 0
	s.result = nil
	s.startedAt = s.now()

	if s.assignment.TimeLimitSeconds != nil {
		s.remaining = *s.assignment.TimeLimitSeconds
		s.startTimerLocked()
	} else {
		s.remaining = untimed
	}

	s.view = ViewInProgress
	return nil
}

// RecordAnswer upserts the answer for a question: at most one record per
// question, last write wins. Edits are refused once submission has begun.
func (s *Session) RecordAnswer(questionID uuid.UUID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.view != ViewInProgress || s.submitting {
		return ErrNotInProgress
	}
	if !s.hasQuestionLocked(questionID) {
		return ErrUnknownQuestion
	}

	s.answers[questionID] = model.Answer{QuestionID: questionID, Value: value}
	return nil
}

// Next advances the current question index, clamped to the last question.
func (s *Session) Next() {
	s.move(func(i int) int { return i + 1 })
}

// Previous moves the current question index back, clamped to zero.
func (s *Session) Previous() {
	s.move(func(i int) int { return i - 1 })
}

// JumpTo moves directly to question i, clamped to [0, len(questions)-1].
func (s *Session) JumpTo(i int) {
	s.move(func(int) int { return i })
}

func (s *Session) move(next func(int) int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.view != ViewInProgress {
		return
	}
	i := next(s.index)
	if i < 0 {
		i = 0
	}
	if max := len(s.assignment.Questions) - 1; i > max {
		i = max
	}
	s.index = i
}

// Submit finishes the attempt on explicit user request. confirmed must be
// true: submission is irreversible. Submitting while another submit (manual
// or timer-driven) is already resolving is a no-op, never a second grading
// pass.
func (s *Session) Submit(confirmed bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.view != ViewInProgress || s.submitting {
		s.mu.Unlock()
		return nil
	}
	if !confirmed {
		s.mu.Unlock()
		return ErrConfirmationRequired
	}
	res := s.finishLocked(false)
	s.mu.Unlock()

	s.deliver(res)
	return nil
}

// Retry re-enters the instructions view after results, provided attempts
// remain. Answers, index, and the timer display are freshly reset; the next
// Start begins the new attempt.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.view != ViewResults {
		return nil
	}
	if s.attemptsUsed >= s.assignment.AllowedAttempts {
		return ErrAttemptsExhausted
	}

	s.view = ViewInstructions
	s.answers = make(map[uuid.UUID]model.Answer, len(s.assignment.Questions))
	s.index = 0
	s.result = nil
	if s.assignment.TimeLimitSeconds != nil {
		s.remaining = *s.assignment.TimeLimitSeconds
	} else {
		s.remaining = untimed
	}
	return nil
}

// Close tears the session down and releases the countdown timer. Safe to
// call from any state and more than once; a closed session rejects all
// further events.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.closed = true
}

// ─── Countdown ─────────────────────────────────────────────────────

func (s *Session) startTimerLocked() {
	stop := make(chan struct{})
	s.stopTimer = stop
	go s.runTimer(stop)
}

func (s *Session) stopTimerLocked() {
	if s.stopTimer != nil {
		close(s.stopTimer)
		s.stopTimer = nil
	}
}

func (s *Session) runTimer(stop chan struct{}) {
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick() {
				return
			}
		}
	}
}

// tick decrements the countdown by one second and forces submission when it
// reaches zero. Returns false once the timer should stop. The zero-second
// submit goes through the same finish path as a manual submit, so a race
// between the two still grades exactly once.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.closed || s.view != ViewInProgress || s.submitting || s.remaining < 0 {
		s.mu.Unlock()
		return false
	}

	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		s.mu.Unlock()
		return true
	}

	res := s.finishLocked(true)
	s.mu.Unlock()

	s.deliver(res)
	return false
}

// ─── Finish path ───────────────────────────────────────────────────

// finishLocked grades the attempt and transitions to results. Returns nil if
// another finish already won the race. Caller holds the lock.
func (s *Session) finishLocked(auto bool) *Result {
	if s.view != ViewInProgress || s.submitting {
		return nil
	}
	s.submitting = true
	s.stopTimerLocked()

	values := make(map[uuid.UUID]string, len(s.answers))
	for id, a := range s.answers {
		values[id] = a.Value
	}

	res := Grade(s.assignment.Questions, values)
	s.attemptsUsed++
	res.AttemptNumber = s.attemptsUsed
	res.AutoSubmitted = auto

	// Finalize correctness on the stored answers; they are never mutated
	// again after this point.
	for i := range res.Questions {
		qr := &res.Questions[i]
		if a, ok := s.answers[qr.QuestionID]; ok && qr.Correct != nil {
			a.Correct = qr.Correct
			s.answers[qr.QuestionID] = a
		}
	}

	s.result = &res
	s.view = ViewResults
	s.submitting = false
	return &res
}

func (s *Session) deliver(res *Result) {
	if res != nil && s.sink != nil {
		s.sink(*res)
	}
}

// ─── Accessors ─────────────────────────────────────────────────────

// State is a consistent snapshot of the session, used by the reload/state
// endpoint and the WebSocket stream.
type State struct {
	View            View           `json:"view"`
	Index           int            `json:"index"`
	Remaining       int            `json:"remaining_seconds"`
	Untimed         bool           `json:"untimed"`
	AttemptsUsed    int            `json:"attempts_used"`
	AllowedAttempts int            `json:"allowed_attempts"`
	Answers         []model.Answer `json:"answers"`
	Result          *Result        `json:"result,omitempty"`
}

// Snapshot returns the session state. Answers follow question order.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]model.Answer, 0, len(s.answers))
	for i := range s.assignment.Questions {
		if a, ok := s.answers[s.assignment.Questions[i].ID]; ok {
			answers = append(answers, a)
		}
	}

	remaining := s.remaining
	if remaining == untimed {
		remaining = 0
	}

	return State{
		View:            s.view,
		Index:           s.index,
		Remaining:       remaining,
		Untimed:         s.assignment.TimeLimitSeconds == nil,
		AttemptsUsed:    s.attemptsUsed,
		AllowedAttempts: s.assignment.AllowedAttempts,
		Answers:         answers,
		Result:          s.result,
	}
}

// View returns the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// CurrentIndex returns the 0-based current question index.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Remaining returns the countdown value in seconds, or -1 when untimed.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// AttemptsUsed returns how many attempts have been consumed.
func (s *Session) AttemptsUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptsUsed
}

// Result returns the graded result, or nil before the attempt finishes.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// StartedAt returns when the current attempt entered in-progress.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) hasQuestionLocked(questionID uuid.UUID) bool {
	for i := range s.assignment.Questions {
		if s.assignment.Questions[i].ID == questionID {
			return true
		}
	}
	return false
}
