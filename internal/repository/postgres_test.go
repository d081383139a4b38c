package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/numeshj/saranya-class/internal/db"
	"github.com/numeshj/saranya-class/internal/model"
	"github.com/numeshj/saranya-class/internal/repository"
)

func openTestPostgres(t *testing.T) *repository.Postgres {
	t.Helper()
	url := os.Getenv("AUTH_TEST_DATABASE_URL")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("AUTH_TEST_DATABASE_URL or DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(url); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repository.NewPostgres(pool)
}

func testEmail() string {
	return fmt.Sprintf("it-%s@example.local", uuid.NewString()[:8])
}

func TestPostgresCreateAndFindUser(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()

	email := testEmail()
	created, err := store.CreateUser(ctx, repository.NewUser{
		Email:        email,
		PasswordHash: "scrypt:00:00",
		FirstName:    "Test",
		LastName:     "User",
		Roles:        []string{model.RoleStudent},
	})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	found, err := store.FindUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected same user")
	}
	if len(found.Roles) != 1 || found.Roles[0] != model.RoleStudent {
		t.Fatalf("unexpected roles %v", found.Roles)
	}

	_, err = store.CreateUser(ctx, repository.NewUser{
		Email:        email,
		PasswordHash: "scrypt:00:00",
		FirstName:    "Test",
		LastName:     "User",
		Roles:        []string{model.RoleStudent},
	})
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestPostgresConditionalRevoke(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, repository.NewUser{
		Email:        testEmail(),
		PasswordHash: "scrypt:00:00",
		FirstName:    "Test",
		LastName:     "User",
		Roles:        []string{model.RoleStudent},
	})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	now := time.Now().UTC()
	token := model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.CreateRefreshToken(ctx, token); err != nil {
		t.Fatalf("create token error: %v", err)
	}

	if _, err := store.FindActiveRefreshToken(ctx, user.ID, token.TokenHash); err != nil {
		t.Fatalf("expected active token, got %v", err)
	}
	if err := store.RevokeRefreshToken(ctx, token.ID, now); err != nil {
		t.Fatalf("revoke error: %v", err)
	}
	if err := store.RevokeRefreshToken(ctx, token.ID, now); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected second revoke to lose, got %v", err)
	}
	if _, err := store.FindActiveRefreshToken(ctx, user.ID, token.TokenHash); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected revoked token to be inactive, got %v", err)
	}
}

func TestPostgresTwoFactorNotImplemented(t *testing.T) {
	store := openTestPostgres(t)
	if err := store.SetTwoFactorSecret(context.Background(), uuid.NewString(), "secret"); !errors.Is(err, repository.ErrNotImplemented) {
		t.Fatalf("expected repository.ErrNotImplemented, got %v", err)
	}
}
