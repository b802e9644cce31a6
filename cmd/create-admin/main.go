// Command create-admin interactively provisions an admin account.
// Registration through the API always yields students, so the first
// admin has to come from here (or from cmd/seed-demo).
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/examio/examio-backend/internal/config"
	"github.com/examio/examio-backend/internal/database"
	"github.com/examio/examio-backend/internal/logger"
	"github.com/examio/examio-backend/internal/model"
	"github.com/examio/examio-backend/internal/repository"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	stdin := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Admin User ===")

	name, err := prompt(stdin, "Enter Name: ")
	if err != nil {
		fail(err)
	}
	email, err := prompt(stdin, "Enter Email: ")
	if err != nil {
		fail(err)
	}
	password, err := promptPassword()
	if err != nil {
		fail(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	admin := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			fail(fmt.Errorf("email %s is already registered", email))
		}
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin '%s' (%s) created with ID: %d\n", admin.Name, admin.Email, admin.ID)
}

func prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("value is required")
	}
	return line, nil
}

func promptPassword() (string, error) {
	fmt.Print("Enter Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", errors.New("could not read password")
	}
	if len(raw) < 6 {
		return "", errors.New("password must be at least 6 characters")
	}
	return string(raw), nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
