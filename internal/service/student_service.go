package service

import (
	"context"

	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/repository"
	"github.com/brainwavehq/academy-backend/internal/response"
	"github.com/rs/zerolog"
)

// StudentService handles student account management for the teacher portal.
type StudentService struct {
	studentRepo *repository.StudentRepository
	auth        *AuthService
	log         zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository, auth *AuthService, log zerolog.Logger) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		auth:        auth,
		log:         log.With().Str("component", "student_service").Logger(),
	}
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// List retrieves students with pagination and optional grade filter.
func (s *StudentService) List(ctx context.Context, gradeLevel *model.GradeLevel, page, perPage int) ([]model.Student, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	students, total, err := s.studentRepo.ListPaginated(ctx, gradeLevel, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if students == nil {
		students = []model.Student{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return students, pagination, nil
}

// Create registers a new student account.
func (s *StudentService) Create(ctx context.Context, req *model.CreateStudentRequest) (*model.Student, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		Name:         req.Name,
		Email:        req.Email,
		GradeLevel:   req.GradeLevel,
		PasswordHash: hash,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}

	s.log.Info().Int("student_id", student.ID).Msg("Student created")
	return student, nil
}

// Update modifies a student account, re-hashing the password when provided.
func (s *StudentService) Update(ctx context.Context, id int, req *model.UpdateStudentRequest) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	student.Name = req.Name
	student.Email = req.Email
	student.GradeLevel = req.GradeLevel
	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, err
	}

	if req.Password != "" {
		hash, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.studentRepo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}
	return student, nil
}

// Delete removes a student account and clears any login session.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	if err := s.studentRepo.Delete(ctx, id); err != nil {
		return err
	}
	return s.auth.ResetStudentSession(ctx, id)
}
