package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/bcrypt"
	_ "github.com/lib/pq"

	"github.com/gatescan/terminal/internal/auth"
	"github.com/gatescan/terminal/internal/config"
	"github.com/gatescan/terminal/internal/db"
	"github.com/gatescan/terminal/internal/gate"
	httphandler "github.com/gatescan/terminal/internal/http"
	"github.com/gatescan/terminal/internal/http/handlers"
	"github.com/gatescan/terminal/internal/repo"
	"github.com/gatescan/terminal/internal/sms"
)

// Dev credentials seeded when DEV_MODE=true so a fresh install can log in.
const (
	devOperatorUsername = "operator"
	devOperatorPassword = "gate1234"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	submissionRepo := repo.NewSubmissionRepo(database)
	tokenRepo := repo.NewTokenRepo(database)
	userRepo := repo.NewGateUserRepo(database)

	if cfg.DevMode {
		if err := seedDevOperator(ctx, userRepo); err != nil {
			log.Fatalf("Failed to seed dev operator: %v", err)
		}
		log.Printf("DEV_MODE: operator %q available with the development password", devOperatorUsername)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	loginService := auth.NewLoginService(userRepo, jwtService)
	gateService := gate.NewService(submissionRepo, tokenRepo, sms.NewStub())
	gateHandler := handlers.NewGateHandler(loginService, gateService)

	router := httphandler.NewRouter(gateHandler, jwtService, userRepo)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Gateway starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Gateway failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Gateway forced to shutdown: %v", err)
	}

	log.Println("Gateway exited")
}

// runMigrations runs database migrations using goose.
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the repo root)")
	}

	absDir, _ := filepath.Abs(migrationDir)
	log.Printf("Running migrations from %s", absDir)

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// seedDevOperator creates the development operator account if missing.
func seedDevOperator(ctx context.Context, users repo.GateUserRepo) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(devOperatorPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash dev password: %w", err)
	}
	return users.CreateIfMissing(ctx, devOperatorUsername, hash)
}
