package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brainwavehq/academy-backend/internal/config"
	"github.com/brainwavehq/academy-backend/internal/database"
	"github.com/brainwavehq/academy-backend/internal/logger"
	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/brainwavehq/academy-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Seeds one teacher, one course, one published quiz, and a roster of
// students. Intended for local development only. Default passwords:
// teacher "teach123", students "learn123".
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	teacherRepo := repository.NewTeacherRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	assignRepo := repository.NewAssignmentRepository(pool)

	fmt.Println("=== Seeding Demo Data ===")

	// ─── Teacher ───────────────────────────────────────────────────────
	teacherHash, err := bcrypt.GenerateFromPassword([]byte("teach123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash teacher password")
	}

	teacher := &model.Teacher{
		Name:         "Sarah Mitchell",
		Email:        "sarah.mitchell@brainwave.academy",
		Subject:      "Mathematics",
		PasswordHash: string(teacherHash),
	}
	if err := teacherRepo.Create(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			existing, err := teacherRepo.GetByEmail(ctx, teacher.Email)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load existing teacher")
			}
			teacher = existing
			fmt.Printf("Found existing teacher with ID: %d\n", teacher.ID)
		} else {
			log.Fatal().Err(err).Msg("Failed to create teacher")
		}
	} else {
		fmt.Printf("Created teacher with ID: %d\n", teacher.ID)
	}

	// ─── Course ────────────────────────────────────────────────────────
	course := &model.Course{
		Title:       "Algebra II",
		Subject:     "Mathematics",
		TeacherID:   teacher.ID,
		Description: "Quadratic functions, polynomials, and exponential growth.",
	}
	if err := courseRepo.Create(ctx, course); err != nil {
		log.Fatal().Err(err).Msg("Failed to create course")
	}
	fmt.Printf("Created course: %s (%s)\n", course.Title, course.ID)

	// ─── Assignment + Questions ────────────────────────────────────────
	timeLimit := 600
	assignment := &model.Assignment{
		CourseID:         course.ID,
		Title:            "Quadratic Functions Quiz",
		Description:      "Ten-minute checkpoint on quadratics.",
		Instructions:     "Answer every question. The quiz submits itself when the timer runs out.",
		Kind:             model.AssignmentKindQuiz,
		TotalPoints:      10,
		TimeLimitSeconds: &timeLimit,
		AllowedAttempts:  2,
		ShowResults:      true,
		Status:           model.AssignmentStatusDraft,
	}
	if err := assignRepo.Create(ctx, assignment); err != nil {
		log.Fatal().Err(err).Msg("Failed to create assignment")
	}

	vertex := "1"
	discriminant := "true"
	root := "3"
	questions := []model.Question{
		{
			Kind:          model.QuestionKindMultipleChoice,
			Prompt:        "What is the vertex of y = (x - 2)^2 + 5?",
			Points:        3,
			Options:       []string{"(-2, 5)", "(2, 5)", "(2, -5)", "(5, 2)"},
			CorrectAnswer: &vertex,
			Explanation:   "Vertex form y = (x - h)^2 + k has its vertex at (h, k).",
			OrderNum:      1,
		},
		{
			Kind:          model.QuestionKindTrueFalse,
			Prompt:        "A negative discriminant means the parabola never crosses the x-axis.",
			Points:        3,
			Options:       []string{"false", "true"},
			CorrectAnswer: &discriminant,
			OrderNum:      2,
		},
		{
			Kind:          model.QuestionKindShortAnswer,
			Prompt:        "What is the positive root of x^2 - 9 = 0?",
			Points:        2,
			CorrectAnswer: &root,
			OrderNum:      3,
		},
		{
			Kind:     model.QuestionKindEssay,
			Prompt:   "Explain how completing the square converts standard form to vertex form.",
			Points:   2,
			OrderNum: 4,
		},
	}
	for i := range questions {
		questions[i].AssignmentID = assignment.ID
		if err := assignRepo.AddQuestion(ctx, &questions[i]); err != nil {
			log.Fatal().Err(err).Msg("Failed to create question")
		}
	}

	if err := assignRepo.UpdateStatus(ctx, assignment.ID, model.AssignmentStatusPublished); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish assignment")
	}
	fmt.Printf("Published assignment: %s (%s)\n", assignment.Title, assignment.ID)

	// ─── Students ──────────────────────────────────────────────────────
	studentHash, err := bcrypt.GenerateFromPassword([]byte("learn123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash student password")
	}

	names := []string{
		"Ava Thompson", "Ben Carter", "Chloe Nguyen", "Daniel Reyes", "Emma Walsh",
		"Felix Ortiz", "Grace Kim", "Henry Patel", "Isla Morgan", "Jack Rivera",
		"Kara Bennett", "Liam Foster", "Mia Delgado", "Noah Brooks", "Olivia Chen",
		"Parker Hayes", "Quinn Murphy", "Ruby Santos", "Sam Whitaker", "Tara Lindqvist",
	}
	grades := []model.GradeLevel{
		model.GradeLevel9, model.GradeLevel10, model.GradeLevel11, model.GradeLevel12,
	}

	successCount := 0
	for i, name := range names {
		student := &model.Student{
			Name:         name,
			Email:        fmt.Sprintf("student%02d@brainwave.academy", i+1),
			GradeLevel:   grades[i%len(grades)],
			PasswordHash: string(studentHash),
		}
		if err := studentRepo.Create(ctx, student); err != nil {
			fmt.Printf("Error creating student %s: %v\n", student.Name, err)
			continue
		}
		successCount++
	}

	fmt.Printf("Created %d/%d students\n", successCount, len(names))
	fmt.Println("=== Done ===")
}
