package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/numeshj/saranya-class/internal/model"
)

func TestMemoryDuplicateEmail(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	_, err := store.CreateUser(ctx, NewUser{Email: "alice@test.io", PasswordHash: "h", FirstName: "A", LastName: "B", Roles: []string{"student"}})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	_, err = store.CreateUser(ctx, NewUser{Email: "Alice@Test.io", PasswordHash: "h", FirstName: "A", LastName: "B", Roles: []string{"student"}})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestMemoryConditionalRevokeSingleWinner(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	token := model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		TokenHash: "hash-1",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	if err := store.CreateRefreshToken(ctx, token); err != nil {
		t.Fatalf("create error: %v", err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.RevokeRefreshToken(ctx, token.ID, time.Now().UTC()); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one successful revoke, got %d", count)
	}
}

func TestMemoryConsumeResetTokenOnce(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	token := model.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		TokenHash: "reset-hash",
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
	if err := store.CreatePasswordResetToken(ctx, token); err != nil {
		t.Fatalf("create error: %v", err)
	}

	userID, err := store.ConsumePasswordResetToken(ctx, "reset-hash", now)
	if err != nil || userID != "user-1" {
		t.Fatalf("expected first consume to succeed, got %q %v", userID, err)
	}
	if _, err := store.ConsumePasswordResetToken(ctx, "reset-hash", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second consume to fail, got %v", err)
	}
}

func TestMemoryConsumeResetTokenExpired(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	token := model.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		TokenHash: "stale-hash",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-30 * time.Minute),
	}
	if err := store.CreatePasswordResetToken(ctx, token); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := store.ConsumePasswordResetToken(ctx, "stale-hash", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestMemoryUpdatePasswordBumpsVersion(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, NewUser{Email: "bob@test.io", PasswordHash: "old", FirstName: "B", LastName: "C", Roles: []string{"student"}})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if err := store.UpdatePassword(ctx, user.ID, "new", time.Now().UTC()); err != nil {
		t.Fatalf("update error: %v", err)
	}

	updated, err := store.FindUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if updated.PasswordHash != "new" {
		t.Fatalf("expected new hash")
	}
	if updated.RefreshTokenVersion != user.RefreshTokenVersion+1 {
		t.Fatalf("expected version bump, got %d", updated.RefreshTokenVersion)
	}
	if updated.PasswordChangedAt == nil {
		t.Fatalf("expected passwordChangedAt to be set")
	}
}
