package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brainwavehq/academy-backend/internal/config"
	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/repository"
	"github.com/brainwavehq/academy-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrAssignmentNotDraft     = errors.New("assignment status is not DRAFT")
	ErrAssignmentNotPublished = errors.New("assignment status is not PUBLISHED")
	ErrNoQuestionsToPublish   = errors.New("assignment has no questions, cannot publish")
)

// AssignmentService handles assignment business logic and paper caching.
type AssignmentService struct {
	assignRepo  *repository.AssignmentRepository
	courseRepo  *repository.CourseRepository
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	cfg         *config.Config
	log         zerolog.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	assignRepo *repository.AssignmentRepository,
	courseRepo *repository.CourseRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		assignRepo:  assignRepo,
		courseRepo:  courseRepo,
		attemptRepo: attemptRepo,
		rdb:         rdb,
		cfg:         cfg,
		log:         log.With().Str("component", "assignment_service").Logger(),
	}
}

// GetByID retrieves an assignment with its questions.
func (s *AssignmentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	return s.assignRepo.GetWithQuestions(ctx, id)
}

// ListByCourse retrieves all assignments in a course for its owning teacher.
func (s *AssignmentService) ListByCourse(ctx context.Context, teacherID int, courseID uuid.UUID) ([]model.Assignment, error) {
	if _, err := s.ownedCourse(ctx, teacherID, courseID); err != nil {
		return nil, err
	}
	assignments, err := s.assignRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	return assignments, nil
}

// ListPublishedByCourse retrieves the assignments students can see in a course.
func (s *AssignmentService) ListPublishedByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Assignment, error) {
	assignments, err := s.assignRepo.ListPublishedByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	return assignments, nil
}

// Create inserts a new assignment as DRAFT after verifying course ownership.
func (s *AssignmentService) Create(ctx context.Context, teacherID int, req *model.CreateAssignmentRequest) (*model.Assignment, error) {
	if _, err := s.ownedCourse(ctx, teacherID, req.CourseID); err != nil {
		return nil, err
	}

	showResults := true
	if req.ShowResults != nil {
		showResults = *req.ShowResults
	}

	assignment := &model.Assignment{
		CourseID:         req.CourseID,
		Title:            req.Title,
		Description:      req.Description,
		Instructions:     req.Instructions,
		Kind:             req.Kind,
		TotalPoints:      req.TotalPoints,
		TimeLimitSeconds: req.TimeLimitSeconds,
		AllowedAttempts:  req.AllowedAttempts,
		DueAt:            req.DueAt,
		ShowResults:      showResults,
		Status:           model.AssignmentStatusDraft,
	}
	if err := assignment.Validate(); err != nil {
		return nil, err
	}

	if err := s.assignRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// Update modifies a draft assignment's settings.
func (s *AssignmentService) Update(ctx context.Context, teacherID int, assignmentID uuid.UUID, req *model.UpdateAssignmentRequest) (*model.Assignment, error) {
	assignment, err := s.ownedAssignment(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != model.AssignmentStatusDraft {
		return nil, ErrAssignmentNotDraft
	}

	if req.Title != "" {
		assignment.Title = req.Title
	}
	if req.Description != "" {
		assignment.Description = req.Description
	}
	if req.Instructions != "" {
		assignment.Instructions = req.Instructions
	}
	if req.Kind != "" {
		assignment.Kind = req.Kind
	}
	if req.TotalPoints != nil {
		assignment.TotalPoints = *req.TotalPoints
	}
	if req.TimeLimitSeconds != nil {
		assignment.TimeLimitSeconds = req.TimeLimitSeconds
	}
	if req.AllowedAttempts != nil {
		assignment.AllowedAttempts = *req.AllowedAttempts
	}
	if req.DueAt != nil {
		assignment.DueAt = req.DueAt
	}
	if req.ShowResults != nil {
		assignment.ShowResults = *req.ShowResults
	}

	if err := assignment.Validate(); err != nil {
		return nil, err
	}
	if err := s.assignRepo.Update(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// Delete removes a draft assignment.
func (s *AssignmentService) Delete(ctx context.Context, teacherID int, assignmentID uuid.UUID) error {
	assignment, err := s.ownedAssignment(ctx, teacherID, assignmentID)
	if err != nil {
		return err
	}
	if assignment.Status != model.AssignmentStatusDraft {
		return ErrAssignmentNotDraft
	}
	return s.assignRepo.Delete(ctx, assignmentID)
}

// Publish moves a draft assignment to PUBLISHED and caches the student paper
// in Redis. The question set must be non-empty and its points must sum to the
// assignment total.
func (s *AssignmentService) Publish(ctx context.Context, teacherID int, assignmentID uuid.UUID) error {
	assignment, err := s.ownedAssignment(ctx, teacherID, assignmentID)
	if err != nil {
		return err
	}
	if assignment.Status != model.AssignmentStatusDraft {
		return ErrAssignmentNotDraft
	}

	assignment.Questions, err = s.assignRepo.ListQuestions(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(assignment.Questions) == 0 {
		return ErrNoQuestionsToPublish
	}
	if err := assignment.Validate(); err != nil {
		return err
	}

	if err := s.WarmPaperCache(ctx, assignment); err != nil {
		return err
	}
	if err := s.assignRepo.UpdateStatus(ctx, assignmentID, model.AssignmentStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("assignment_id", assignmentID.String()).Msg("Assignment published")
	return nil
}

// Archive moves a published assignment to ARCHIVED and drops its cached paper.
func (s *AssignmentService) Archive(ctx context.Context, teacherID int, assignmentID uuid.UUID) error {
	assignment, err := s.ownedAssignment(ctx, teacherID, assignmentID)
	if err != nil {
		return err
	}
	if assignment.Status != model.AssignmentStatusPublished {
		return ErrAssignmentNotPublished
	}

	if err := s.assignRepo.UpdateStatus(ctx, assignmentID, model.AssignmentStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	s.rdb.Del(ctx, config.CacheKey.AssignmentPaperKey(assignmentID.String()))

	s.log.Info().Str("assignment_id", assignmentID.String()).Msg("Assignment archived")
	return nil
}

// WarmPaperCache builds the student paper (answer keys stripped) and stores
// it in Redis. The assignment must carry its questions.
func (s *AssignmentService) WarmPaperCache(ctx context.Context, assignment *model.Assignment) error {
	course, err := s.courseRepo.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}

	paper := model.PaperFor(assignment, course.Title)
	raw, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	key := config.CacheKey.AssignmentPaperKey(assignment.ID.String())
	if err := s.rdb.Set(ctx, key, raw, s.cfg.PaperCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache paper: %w", err)
	}

	s.log.Debug().
		Str("assignment_id", assignment.ID.String()).
		Int("questions", len(assignment.Questions)).
		Msg("Paper cache warmed")
	return nil
}

// PrewarmAllCaches loads every published assignment's paper into Redis on
// application startup.
func (s *AssignmentService) PrewarmAllCaches(ctx context.Context) error {
	assignments, err := s.assignRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published assignments: %w", err)
	}

	if len(assignments) == 0 {
		s.log.Info().Msg("No published assignments to prewarm")
		return nil
	}

	warmed := 0
	for i := range assignments {
		a := &assignments[i]
		a.Questions, err = s.assignRepo.ListQuestions(ctx, a.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("assignment_id", a.ID.String()).Msg("Failed to load questions, skipping")
			continue
		}
		if err := s.WarmPaperCache(ctx, a); err != nil {
			s.log.Warn().Err(err).Str("assignment_id", a.ID.String()).Msg("Failed to warm paper, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(assignments)).Msg("Prewarming complete")
	return nil
}

// GetPaper retrieves the cached student paper, falling back to PostgreSQL
// and self-healing the cache on a miss.
func (s *AssignmentService) GetPaper(ctx context.Context, assignmentID uuid.UUID) (*model.AssignmentPaper, error) {
	key := config.CacheKey.AssignmentPaperKey(assignmentID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var paper model.AssignmentPaper
		if err := json.Unmarshal(data, &paper); err != nil {
			return nil, fmt.Errorf("unmarshal paper: %w", err)
		}
		return &paper, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get paper: %w", err)
	}

	// Cache miss. Rebuild from the source of truth.
	assignment, err := s.assignRepo.GetWithQuestions(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if assignment.Status != model.AssignmentStatusPublished {
		return nil, ErrAssignmentNotPublished
	}
	if err := s.WarmPaperCache(ctx, assignment); err != nil {
		s.log.Warn().Err(err).Str("assignment_id", assignmentID.String()).Msg("Self-heal cache write failed")
	}

	course, err := s.courseRepo.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return model.PaperFor(assignment, course.Title), nil
}

// ─── Questions ──────────────────────────────────────────────────────────────

// AddQuestion appends a question to a draft assignment.
func (s *AssignmentService) AddQuestion(ctx context.Context, teacherID int, assignmentID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	assignment, err := s.ownedAssignment(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != model.AssignmentStatusDraft {
		return nil, ErrAssignmentNotDraft
	}

	question := &model.Question{
		AssignmentID:  assignmentID,
		Kind:          req.Kind,
		Prompt:        req.Prompt,
		Points:        req.Points,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		OrderNum:      req.OrderNum,
	}
	if err := s.assignRepo.AddQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// ReplaceQuestions swaps a draft assignment's full question set atomically.
func (s *AssignmentService) ReplaceQuestions(ctx context.Context, teacherID int, assignmentID uuid.UUID, req *model.ReplaceQuestionsRequest) ([]model.Question, error) {
	assignment, err := s.ownedAssignment(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != model.AssignmentStatusDraft {
		return nil, ErrAssignmentNotDraft
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = model.Question{
			Kind:          q.Kind,
			Prompt:        q.Prompt,
			Points:        q.Points,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			OrderNum:      q.OrderNum,
		}
		if questions[i].OrderNum == 0 {
			questions[i].OrderNum = i + 1
		}
	}

	if err := s.assignRepo.ReplaceQuestions(ctx, assignmentID, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ─── Gradebook ──────────────────────────────────────────────────────────────

// Gradebook retrieves each student's best completed attempt on an assignment.
func (s *AssignmentService) Gradebook(ctx context.Context, teacherID int, assignmentID uuid.UUID, page, perPage int) ([]repository.GradebookRow, *response.Pagination, error) {
	if _, err := s.ownedAssignment(ctx, teacherID, assignmentID); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	rows, total, err := s.attemptRepo.ListGradebook(ctx, assignmentID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if rows == nil {
		rows = []repository.GradebookRow{}
	}

	totalPages := (int(total) + perPage - 1) / perPage
	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}
	return rows, pagination, nil
}

// ─── Ownership helpers ──────────────────────────────────────────────────────

func (s *AssignmentService) ownedCourse(ctx context.Context, teacherID int, courseID uuid.UUID) (*model.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != teacherID {
		return nil, ErrNotCourseOwner
	}
	return course, nil
}

func (s *AssignmentService) ownedAssignment(ctx context.Context, teacherID int, assignmentID uuid.UUID) (*model.Assignment, error) {
	assignment, err := s.assignRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, teacherID, assignment.CourseID); err != nil {
		return nil, err
	}
	return assignment, nil
}
