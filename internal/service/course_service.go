package service

import (
	"context"
	"errors"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNotCourseOwner = errors.New("not the owner of this course")

// CourseService handles course business logic.
type CourseService struct {
	courseRepo *repository.CourseRepository
	log        zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(courseRepo *repository.CourseRepository, log zerolog.Logger) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		log:        log.With().Str("component", "course_service").Logger(),
	}
}

// GetByID retrieves a course by its UUID.
func (s *CourseService) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

// ListAll retrieves the full course catalog for students.
func (s *CourseService) ListAll(ctx context.Context) ([]model.Course, error) {
	courses, err := s.courseRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// ListByTeacher retrieves a teacher's own courses.
func (s *CourseService) ListByTeacher(ctx context.Context, teacherID int) ([]model.Course, error) {
	courses, err := s.courseRepo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// Create inserts a new course owned by the teacher.
func (s *CourseService) Create(ctx context.Context, teacherID int, req *model.CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		Title:       req.Title,
		Subject:     req.Subject,
		TeacherID:   teacherID,
		Description: req.Description,
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}

	s.log.Info().Str("course_id", course.ID.String()).Int("teacher_id", teacherID).Msg("Course created")
	return course, nil
}

// Update modifies a course after verifying ownership. Empty request fields
// leave the existing values untouched.
func (s *CourseService) Update(ctx context.Context, teacherID int, courseID uuid.UUID, req *model.UpdateCourseRequest) (*model.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != teacherID {
		return nil, ErrNotCourseOwner
	}

	if req.Title != "" {
		course.Title = req.Title
	}
	if req.Subject != "" {
		course.Subject = req.Subject
	}
	if req.Description != "" {
		course.Description = req.Description
	}

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// Delete removes a course after verifying ownership.
func (s *CourseService) Delete(ctx context.Context, teacherID int, courseID uuid.UUID) error {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if course.TeacherID != teacherID {
		return ErrNotCourseOwner
	}
	return s.courseRepo.Delete(ctx, courseID)
}
