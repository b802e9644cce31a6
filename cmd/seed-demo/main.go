package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/examio/examio-backend/internal/config"
	"github.com/examio/examio-backend/internal/database"
	"github.com/examio/examio-backend/internal/logger"
	"github.com/examio/examio-backend/internal/model"
	"github.com/examio/examio-backend/internal/repository"
)

// Seeds a demo admin, two students, and one exam with four questions.
// Pass -d to wipe all data instead.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	if len(os.Args) > 1 && os.Args[1] == "-d" {
		if _, err := pool.Exec(ctx, "TRUNCATE results, questions, exams, users RESTART IDENTITY CASCADE"); err != nil {
			log.Fatal().Err(err).Msg("Failed to destroy data")
		}
		fmt.Println("Data destroyed successfully")
		return
	}

	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Demo Data ===")

	hash := func(password string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		return string(h)
	}

	admin := &model.User{
		Name:         "Admin User",
		Email:        "admin@example.com",
		PasswordHash: hash("admin123"),
		Role:         model.RoleAdmin,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	students := []*model.User{
		{Name: "John Doe", Email: "john@example.com", PasswordHash: hash("student123"), Role: model.RoleStudent},
		{Name: "Jane Smith", Email: "jane@example.com", PasswordHash: hash("student123"), Role: model.RoleStudent},
	}
	for _, s := range students {
		if err := userRepo.Create(ctx, s); err != nil {
			log.Fatal().Err(err).Str("email", s.Email).Msg("Failed to create student")
		}
	}

	exam := &model.Exam{
		Title:           "JavaScript Fundamentals",
		Description:     "Test your knowledge of JavaScript basics",
		DurationMinutes: 60,
		TotalMarks:      20,
		PassingMarks:    12,
		IsActive:        true,
		CreatedBy:       admin.ID,
	}
	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}

	questions := []*model.Question{
		{
			ExamID:       exam.ID,
			QuestionText: "What is JavaScript?",
			Options: []string{
				"A programming language",
				"A database",
				"An operating system",
				"A framework",
			},
			CorrectAnswer: 0,
			Marks:         5,
		},
		{
			ExamID:        exam.ID,
			QuestionText:  "Which keyword is used to declare a variable in JavaScript?",
			Options:       []string{"var", "int", "string", "variable"},
			CorrectAnswer: 0,
			Marks:         5,
		},
		{
			ExamID:       exam.ID,
			QuestionText: "What does DOM stand for?",
			Options: []string{
				"Document Object Model",
				"Data Object Model",
				"Digital Object Model",
				"Document Oriented Model",
			},
			CorrectAnswer: 0,
			Marks:         5,
		},
		{
			ExamID:        exam.ID,
			QuestionText:  "Which method is used to parse a string to an integer?",
			Options:       []string{"parseInt()", "parseFloat()", "Number()", "toInteger()"},
			CorrectAnswer: 0,
			Marks:         5,
		},
	}
	for _, q := range questions {
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Fatal().Err(err).Msg("Failed to create question")
		}
	}

	fmt.Println("Sample data imported successfully!")
	fmt.Println("\nCreated Users:")
	fmt.Println("Admin - Email: admin@example.com, Password: admin123")
	fmt.Println("Student 1 - Email: john@example.com, Password: student123")
	fmt.Println("Student 2 - Email: jane@example.com, Password: student123")
	fmt.Printf("\nCreated Exam: %s (ID: %s)\n", exam.Title, exam.ID)
	fmt.Printf("Created %d questions for the exam\n", len(questions))
}
