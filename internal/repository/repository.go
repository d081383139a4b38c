// Package repository abstracts principal and token persistence over the
// document (Mongo) and relational (Postgres) backends. Call sites select an
// implementation once at startup and stay oblivious to which one is active.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/numeshj/saranya-class/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already in use")
	ErrNotImplemented = errors.New("not implemented for this backend")
)

// NewUser is the creation shape; the password is already hashed by the
// caller.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Roles        []string
}

type Store interface {
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	FindUserByID(ctx context.Context, id string) (model.User, error)
	// CreateUser returns ErrDuplicateEmail when the email is taken; the
	// uniqueness check is enforced at the storage layer, not by callers.
	CreateUser(ctx context.Context, user NewUser) (model.User, error)
	RecordLogin(ctx context.Context, userID string, at time.Time) error
	// UpdatePassword replaces the hash and bumps the refresh token version,
	// invalidating every outstanding refresh token for the user.
	UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error
	// SetTwoFactorSecret returns ErrNotImplemented on backends without
	// two-factor support.
	SetTwoFactorSecret(ctx context.Context, userID, secret string) error

	CreateRefreshToken(ctx context.Context, token model.RefreshToken) error
	// FindActiveRefreshToken looks up a non-revoked, non-expired record by
	// owner and token hash.
	FindActiveRefreshToken(ctx context.Context, userID, tokenHash string) (model.RefreshToken, error)
	// RevokeRefreshToken revokes only if not already revoked and returns
	// ErrNotFound otherwise. This conditional write is the linearization
	// point for rotation: exactly one of two concurrent rotations wins.
	RevokeRefreshToken(ctx context.Context, id string, at time.Time) error
	// LinkReplacement records the successor of a rotated token.
	LinkReplacement(ctx context.Context, id, replacementID string) error
	// RevokeRefreshTokenByHash is idempotent: revoking an unknown or
	// already-revoked token is not an error.
	RevokeRefreshTokenByHash(ctx context.Context, tokenHash string, at time.Time) error

	CreatePasswordResetToken(ctx context.Context, token model.PasswordResetToken) error
	// ConsumePasswordResetToken atomically marks an unused, unexpired token
	// as used and returns its owner. ErrNotFound covers unknown, expired
	// and already-consumed tokens alike.
	ConsumePasswordResetToken(ctx context.Context, tokenHash string, at time.Time) (string, error)
}
