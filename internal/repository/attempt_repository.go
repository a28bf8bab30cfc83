package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GradebookRow combines student data with their best completed attempt on
// one assignment.
type GradebookRow struct {
	StudentID     int              `json:"student_id"`
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	GradeLevel    model.GradeLevel `json:"grade_level"`
	AttemptNumber int              `json:"attempt_number"`
	EarnedPoints  *int             `json:"earned_points"`
	Percent       *int             `json:"percent"`
	AutoSubmitted bool             `json:"auto_submitted"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    *time.Time       `json:"finished_at"`
}

// AttemptRepository handles attempt and answer data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new in-progress attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (assignment_id, student_id, number, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		a.AssignmentID, a.StudentID, a.Number, model.AttemptStatusInProgress, a.StartedAt,
	).Scan(&a.ID)
}

// Delete removes an attempt row. Used to roll back a start whose session
// could not actually begin.
func (r *AttemptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM attempts WHERE id = $1`, id)
	return err
}

// Complete marks a single attempt as completed with its grade.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID, earned, percent int, autoSubmitted bool, finishedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, earned_points = $2, percent = $3, auto_submitted = $4, finished_at = $5
		 WHERE id = $6`,
		model.AttemptStatusCompleted, earned, percent, autoSubmitted, finishedAt, id)
	return err
}

// CompleteBatch marks many attempts as completed in one round trip.
// All slices must be the same length.
func (r *AttemptRepository) CompleteBatch(ctx context.Context, ids []string, earned, percent []int, autoSubmitted []bool, finishedAt []time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if len(earned) != len(ids) || len(percent) != len(ids) || len(autoSubmitted) != len(ids) || len(finishedAt) != len(ids) {
		return fmt.Errorf("mismatched batch lengths: %d ids", len(ids))
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE attempts AS a
		 SET status = $6, earned_points = b.earned, percent = b.percent,
		     auto_submitted = b.auto_submitted, finished_at = b.finished_at
		 FROM (
		     SELECT * FROM UNNEST($1::uuid[], $2::int[], $3::int[], $4::boolean[], $5::timestamptz[])
		            AS t(id, earned, percent, auto_submitted, finished_at)
		 ) AS b
		 WHERE a.id = b.id`,
		ids, earned, percent, autoSubmitted, finishedAt, model.AttemptStatusCompleted)
	return err
}

// CountCompleted returns how many attempts a student has already consumed
// on an assignment.
func (r *AttemptRepository) CountCompleted(ctx context.Context, assignmentID uuid.UUID, studentID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts
		 WHERE assignment_id = $1 AND student_id = $2 AND status = $3`,
		assignmentID, studentID, model.AttemptStatusCompleted,
	).Scan(&n)
	return n, err
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, assignment_id, student_id, number, status, started_at, finished_at,
		        earned_points, percent, auto_submitted
		 FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.AssignmentID, &a.StudentID, &a.Number, &a.Status, &a.StartedAt,
		&a.FinishedAt, &a.EarnedPoints, &a.Percent, &a.AutoSubmitted)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetLatestCompleted retrieves the most recent completed attempt for a
// student on an assignment.
func (r *AttemptRepository) GetLatestCompleted(ctx context.Context, assignmentID uuid.UUID, studentID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, assignment_id, student_id, number, status, started_at, finished_at,
		        earned_points, percent, auto_submitted
		 FROM attempts
		 WHERE assignment_id = $1 AND student_id = $2 AND status = $3
		 ORDER BY number DESC LIMIT 1`,
		assignmentID, studentID, model.AttemptStatusCompleted,
	).Scan(&a.ID, &a.AssignmentID, &a.StudentID, &a.Number, &a.Status, &a.StartedAt,
		&a.FinishedAt, &a.EarnedPoints, &a.Percent, &a.AutoSubmitted)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListCompletedByStudent retrieves every completed attempt a student has
// made across all assignments of a course, newest first.
func (r *AttemptRepository) ListCompletedByStudent(ctx context.Context, courseID uuid.UUID, studentID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT at.id, at.assignment_id, at.student_id, at.number, at.status, at.started_at,
		        at.finished_at, at.earned_points, at.percent, at.auto_submitted
		 FROM attempts at
		 JOIN assignments a ON at.assignment_id = a.id
		 WHERE a.course_id = $1 AND at.student_id = $2 AND at.status = $3
		 ORDER BY at.finished_at DESC`,
		courseID, studentID, model.AttemptStatusCompleted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.AssignmentID, &a.StudentID, &a.Number, &a.Status,
			&a.StartedAt, &a.FinishedAt, &a.EarnedPoints, &a.Percent, &a.AutoSubmitted); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListGradebook retrieves each student's best completed attempt on an
// assignment, with pagination. Students with no completed attempt are
// not listed.
func (r *AttemptRepository) ListGradebook(ctx context.Context, assignmentID uuid.UUID, page, perPage int) ([]GradebookRow, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT student_id) FROM attempts
		 WHERE assignment_id = $1 AND status = $2`,
		assignmentID, model.AttemptStatusCompleted,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT best.student_id, s.name, s.email, s.grade_level,
		        best.number, best.earned_points, best.percent, best.auto_submitted,
		        best.started_at, best.finished_at
		 FROM (
		     SELECT DISTINCT ON (student_id) *
		     FROM attempts
		     WHERE assignment_id = $1 AND status = $2
		     ORDER BY student_id, percent DESC NULLS LAST, number DESC
		 ) best
		 JOIN students s ON best.student_id = s.id
		 ORDER BY s.name
		 LIMIT $3 OFFSET $4`,
		assignmentID, model.AttemptStatusCompleted, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []GradebookRow
	for rows.Next() {
		var g GradebookRow
		if err := rows.Scan(&g.StudentID, &g.Name, &g.Email, &g.GradeLevel,
			&g.AttemptNumber, &g.EarnedPoints, &g.Percent, &g.AutoSubmitted,
			&g.StartedAt, &g.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, g)
	}
	return results, total, rows.Err()
}

// ─── Answers ────────────────────────────────────────────────────────────────

// UpsertAnswers writes a batch of answers for one attempt in a single round
// trip. All slices must be the same length; corrects may contain nils for
// ungraded answers.
func (r *AttemptRepository) UpsertAnswers(ctx context.Context, attemptID uuid.UUID, questionIDs, values []string, corrects []*bool) error {
	if len(questionIDs) == 0 {
		return nil
	}
	if len(values) != len(questionIDs) || len(corrects) != len(questionIDs) {
		return fmt.Errorf("mismatched batch lengths: %d question ids", len(questionIDs))
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, value, correct)
		 SELECT $1, t.question_id, t.value, t.correct
		 FROM UNNEST($2::uuid[], $3::text[], $4::boolean[]) AS t(question_id, value, correct)
		 ON CONFLICT (attempt_id, question_id)
		 DO UPDATE SET value = EXCLUDED.value, correct = EXCLUDED.correct`,
		attemptID, questionIDs, values, corrects)
	return err
}

// ListAnswers retrieves all saved answers for an attempt.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT aa.question_id, aa.value, aa.correct
		 FROM attempt_answers aa
		 JOIN questions q ON aa.question_id = q.id
		 WHERE aa.attempt_id = $1
		 ORDER BY q.order_num`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.QuestionID, &a.Value, &a.Correct); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
