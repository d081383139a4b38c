// Package guard tracks consecutive login failures per identifier and
// enforces a temporary lockout. The in-memory implementation is
// process-local: horizontally scaled deployments count per instance, which
// weakens the guard. The Redis implementation centralizes the state for
// multi-instance deployments and is opted into via configuration.
package guard

import (
	"context"
	"sync"
	"time"
)

// State is the observable attempt state after recording an attempt.
type State struct {
	Failures    int
	LockedUntil time.Time
}

func (s State) Locked(now time.Time) bool {
	return s.LockedUntil.After(now)
}

type Guard interface {
	// RecordAttempt must be called after each credential check. A success
	// clears the state; a failure increments the counter and, at the
	// threshold, starts the lockout and resets the counter so the next
	// window counts fresh.
	RecordAttempt(ctx context.Context, identifier string, success bool) (State, error)
	// IsLocked must be checked before any password verification is
	// attempted.
	IsLocked(ctx context.Context, identifier string) (bool, error)
}

type Memory struct {
	mu        sync.Mutex
	entries   map[string]*State
	threshold int
	lockout   time.Duration
	now       func() time.Time
}

func NewMemory(threshold int, lockout time.Duration) *Memory {
	return &Memory{
		entries:   make(map[string]*State),
		threshold: threshold,
		lockout:   lockout,
		now:       time.Now,
	}
}

func (g *Memory) RecordAttempt(_ context.Context, identifier string, success bool) (State, error) {
	if identifier == "" {
		return State{}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	entry, ok := g.entries[identifier]
	if !ok {
		entry = &State{}
		g.entries[identifier] = entry
	}
	if entry.LockedUntil.After(now) {
		return *entry, nil
	}

	if success {
		delete(g.entries, identifier)
		return State{}, nil
	}

	entry.Failures++
	if entry.Failures >= g.threshold {
		entry.LockedUntil = now.Add(g.lockout)
		entry.Failures = 0
	}
	return *entry, nil
}

func (g *Memory) IsLocked(_ context.Context, identifier string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[identifier]
	if !ok {
		return false, nil
	}
	return entry.LockedUntil.After(g.now()), nil
}
