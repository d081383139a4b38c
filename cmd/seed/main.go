// Command seed creates the bootstrap administrator account if it does not
// already exist, so a fresh deployment has a privileged login.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/numeshj/saranya-class/internal/config"
	"github.com/numeshj/saranya-class/internal/crypto"
	"github.com/numeshj/saranya-class/internal/db"
	"github.com/numeshj/saranya-class/internal/model"
	"github.com/numeshj/saranya-class/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	email := getenv("SEED_ADMIN_EMAIL", "admin@center.test")
	password := getenv("SEED_ADMIN_PASSWORD", "AdminPass123!")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := db.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store setup failed: %v", err)
	}
	defer cleanup()

	if _, err := store.FindUserByEmail(ctx, email); err == nil {
		log.Printf("admin %s already exists, nothing to do", email)
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Fatalf("admin lookup failed: %v", err)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		log.Fatalf("password hash failed: %v", err)
	}

	user, err := store.CreateUser(ctx, repository.NewUser{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		Roles:        []string{model.RoleAdmin},
	})
	if err != nil {
		log.Fatalf("admin creation failed: %v", err)
	}
	log.Printf("created admin %s (%s)", user.Email, user.ID)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
