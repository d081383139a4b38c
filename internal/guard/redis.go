package guard

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares attempt state across instances. Failure counters are kept
// fresh with a TTL equal to the lockout window; locks are plain keys whose
// TTL is the remaining lockout.
type Redis struct {
	client    *redis.Client
	threshold int
	lockout   time.Duration
}

func NewRedis(client *redis.Client, threshold int, lockout time.Duration) *Redis {
	return &Redis{client: client, threshold: threshold, lockout: lockout}
}

func failKey(identifier string) string { return "login:fail:" + identifier }
func lockKey(identifier string) string { return "login:lock:" + identifier }

func (g *Redis) RecordAttempt(ctx context.Context, identifier string, success bool) (State, error) {
	if identifier == "" {
		return State{}, nil
	}

	if success {
		if err := g.client.Del(ctx, failKey(identifier), lockKey(identifier)).Err(); err != nil {
			return State{}, err
		}
		return State{}, nil
	}

	ttl, err := g.client.TTL(ctx, lockKey(identifier)).Result()
	if err != nil {
		return State{}, err
	}
	if ttl > 0 {
		return State{LockedUntil: time.Now().Add(ttl)}, nil
	}

	count, err := g.client.Incr(ctx, failKey(identifier)).Result()
	if err != nil {
		return State{}, err
	}
	if count == 1 {
		if err := g.client.Expire(ctx, failKey(identifier), g.lockout).Err(); err != nil {
			return State{}, err
		}
	}
	if count >= int64(g.threshold) {
		if err := g.client.Set(ctx, lockKey(identifier), "1", g.lockout).Err(); err != nil {
			return State{}, err
		}
		if err := g.client.Del(ctx, failKey(identifier)).Err(); err != nil {
			return State{}, err
		}
		return State{LockedUntil: time.Now().Add(g.lockout)}, nil
	}
	return State{Failures: int(count)}, nil
}

func (g *Redis) IsLocked(ctx context.Context, identifier string) (bool, error) {
	exists, err := g.client.Exists(ctx, lockKey(identifier)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
