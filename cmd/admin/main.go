// Command admin bootstraps an ADMIN account. Role is fixed at creation, so
// the first administrator has to be seeded out of band; this tool runs the
// regular signup path with the ADMIN role against the configured database.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/ktb-community/community-be-main/internal/logging"
	"github.com/ktb-community/community-be-main/internal/server/auth"
	"github.com/ktb-community/community-be-main/internal/server/config"
	"github.com/ktb-community/community-be-main/internal/server/repositories/repomanager"
	"github.com/ktb-community/community-be-main/internal/server/services"
	"github.com/ktb-community/community-be-main/internal/server/sessions"
	"github.com/ktb-community/community-be-main/internal/server/validation"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	email, nickname, profileImage, err := readIdentity(os.Stdin)
	if err != nil {
		return err
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Signup never touches the auth strategy, so a throwaway one will do.
	strategy := services.NewSessionStrategy(sessions.NewMemoryStore(), time.Minute)

	svc := services.NewAuthService(db, rm, auth.NewBcryptHasher(cfg.BcryptCost),
		validation.NewFieldValidator(), strategy, logger)

	id, err := svc.SignupAdmin(ctx, services.SignupParams{
		Email:        email,
		Password:     password,
		Nickname:     nickname,
		ProfileImage: profileImage,
	})
	if err != nil {
		return err
	}

	fmt.Printf("admin account created, id %d\n", id)
	return nil
}

func readIdentity(in io.Reader) (string, string, string, error) {
	reader := bufio.NewReader(in)

	email, err := prompt(reader, "Email")
	if err != nil {
		return "", "", "", err
	}
	nickname, err := prompt(reader, "Nickname")
	if err != nil {
		return "", "", "", err
	}
	profileImage, err := prompt(reader, "Profile image key")
	if err != nil {
		return "", "", "", err
	}
	return email, nickname, profileImage, nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	value, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}

	fmt.Print("Repeat password: ")
	repeated, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}

	if string(password) != string(repeated) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}
