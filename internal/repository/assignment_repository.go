package repository

import (
	"context"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssignmentRepository handles assignment and question data access.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

const assignmentColumns = `id, course_id, title, description, instructions, kind, total_points,
	        time_limit_seconds, allowed_attempts, due_at, show_results, status, created_at, updated_at`

func scanAssignment(row pgx.Row) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := row.Scan(&a.ID, &a.CourseID, &a.Title, &a.Description, &a.Instructions, &a.Kind,
		&a.TotalPoints, &a.TimeLimitSeconds, &a.AllowedAttempts, &a.DueAt, &a.ShowResults,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an assignment by its UUID, without questions.
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	return scanAssignment(r.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
}

// GetWithQuestions retrieves an assignment together with its ordered
// question set, answer keys included.
func (r *AssignmentRepository) GetWithQuestions(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := r.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Questions = questions
	return a, nil
}

// ListByCourse retrieves all assignments in a course, newest first.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Assignment, error) {
	return r.list(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE course_id = $1 ORDER BY created_at DESC`, courseID)
}

// ListPublishedByCourse retrieves the assignments students can see.
func (r *AssignmentRepository) ListPublishedByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Assignment, error) {
	return r.list(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE course_id = $1 AND status = $2
		 ORDER BY due_at NULLS LAST, created_at DESC`, courseID, model.AssignmentStatusPublished)
}

// ListPublished returns all published assignments.
// Used for paper cache prewarming on application startup.
func (r *AssignmentRepository) ListPublished(ctx context.Context) ([]model.Assignment, error) {
	return r.list(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE status = $1 ORDER BY created_at DESC`, model.AssignmentStatusPublished)
}

func (r *AssignmentRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Assignment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// Create inserts a new assignment in DRAFT status.
func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assignments (course_id, title, description, instructions, kind, total_points,
		                          time_limit_seconds, allowed_attempts, due_at, show_results, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		a.CourseID, a.Title, a.Description, a.Instructions, a.Kind, a.TotalPoints,
		a.TimeLimitSeconds, a.AllowedAttempts, a.DueAt, a.ShowResults, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// Update modifies an assignment's settings.
func (r *AssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assignments
		 SET title = $1, description = $2, instructions = $3, kind = $4, total_points = $5,
		     time_limit_seconds = $6, allowed_attempts = $7, due_at = $8, show_results = $9,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $10`,
		a.Title, a.Description, a.Instructions, a.Kind, a.TotalPoints,
		a.TimeLimitSeconds, a.AllowedAttempts, a.DueAt, a.ShowResults, a.ID,
	)
	return err
}

// UpdateStatus updates an assignment's lifecycle status.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assignments SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id)
	return err
}

// Delete removes an assignment. Questions and attempts cascade.
func (r *AssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	return err
}

// ─── Questions ──────────────────────────────────────────────────────────────

// ListQuestions retrieves all questions for an assignment, ordered by order_num.
func (r *AssignmentRepository) ListQuestions(ctx context.Context, assignmentID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assignment_id, kind, prompt, points, options, correct_answer, explanation, order_num
		 FROM questions WHERE assignment_id = $1
		 ORDER BY order_num`, assignmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AssignmentID, &q.Kind, &q.Prompt, &q.Points,
			&q.Options, &q.CorrectAnswer, &q.Explanation, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// AddQuestion inserts a single question.
func (r *AssignmentRepository) AddQuestion(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (assignment_id, kind, prompt, points, options, correct_answer, explanation, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		q.AssignmentID, q.Kind, q.Prompt, q.Points, q.Options, q.CorrectAnswer, q.Explanation, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceQuestions atomically swaps an assignment's full question set.
func (r *AssignmentRepository) ReplaceQuestions(ctx context.Context, assignmentID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE assignment_id = $1`, assignmentID); err != nil {
		return err
	}

	for i := range questions {
		q := &questions[i]
		q.AssignmentID = assignmentID
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (assignment_id, kind, prompt, points, options, correct_answer, explanation, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			q.AssignmentID, q.Kind, q.Prompt, q.Points, q.Options, q.CorrectAnswer, q.Explanation, q.OrderNum,
		).Scan(&q.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
