package repository

import (
	"context"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CourseRepository handles course data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetByID retrieves a course by its UUID.
func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, subject, teacher_id, description, created_at, updated_at
		 FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Subject, &c.TeacherID, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListAll retrieves every course ordered by title. The student catalog is
// small enough that pagination is not worth the round trips.
func (r *CourseRepository) ListAll(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, subject, teacher_id, description, created_at, updated_at
		 FROM courses ORDER BY title`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Subject, &c.TeacherID, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// ListByTeacher retrieves all courses owned by a teacher.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID int) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, subject, teacher_id, description, created_at, updated_at
		 FROM courses WHERE teacher_id = $1
		 ORDER BY created_at DESC`, teacherID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Subject, &c.TeacherID, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (title, subject, teacher_id, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		c.Title, c.Subject, c.TeacherID, c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update modifies a course's details.
func (r *CourseRepository) Update(ctx context.Context, c *model.Course) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE courses SET title = $1, subject = $2, description = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4`,
		c.Title, c.Subject, c.Description, c.ID,
	)
	return err
}

// Delete removes a course by ID. Assignments cascade at the database level.
func (r *CourseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}
