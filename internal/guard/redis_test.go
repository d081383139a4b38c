package guard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisGuard(t *testing.T, threshold int, lockout time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, threshold, lockout), mr
}

func TestRedisLockoutAfterThreshold(t *testing.T) {
	g, _ := newRedisGuard(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		state, err := g.RecordAttempt(ctx, "bob@test.io", false)
		if err != nil {
			t.Fatalf("record error: %v", err)
		}
		if !state.LockedUntil.IsZero() {
			t.Fatalf("locked too early at failure %d", i+1)
		}
	}

	state, err := g.RecordAttempt(ctx, "bob@test.io", false)
	if err != nil {
		t.Fatalf("record error: %v", err)
	}
	if state.LockedUntil.IsZero() {
		t.Fatalf("expected lockout at fifth failure")
	}

	locked, err := g.IsLocked(ctx, "bob@test.io")
	if err != nil {
		t.Fatalf("isLocked error: %v", err)
	}
	if !locked {
		t.Fatalf("expected identifier to be locked")
	}
}

func TestRedisSuccessClears(t *testing.T) {
	g, _ := newRedisGuard(t, 3, time.Minute)
	ctx := context.Background()

	g.RecordAttempt(ctx, "alice@test.io", false)
	g.RecordAttempt(ctx, "alice@test.io", false)
	if _, err := g.RecordAttempt(ctx, "alice@test.io", true); err != nil {
		t.Fatalf("record error: %v", err)
	}

	state, _ := g.RecordAttempt(ctx, "alice@test.io", false)
	if state.Failures != 1 {
		t.Fatalf("expected fresh counter after success, got %d", state.Failures)
	}
}

func TestRedisLockExpires(t *testing.T) {
	g, mr := newRedisGuard(t, 2, time.Minute)
	ctx := context.Background()

	g.RecordAttempt(ctx, "eve@test.io", false)
	g.RecordAttempt(ctx, "eve@test.io", false)
	if locked, _ := g.IsLocked(ctx, "eve@test.io"); !locked {
		t.Fatalf("expected lock")
	}

	mr.FastForward(2 * time.Minute)
	if locked, _ := g.IsLocked(ctx, "eve@test.io"); locked {
		t.Fatalf("expected lock to expire")
	}
}
