// Package token issues signed access/refresh pairs, persists refresh
// records and performs single-use rotation with reuse detection.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/numeshj/saranya-class/internal/auth"
	"github.com/numeshj/saranya-class/internal/crypto"
	"github.com/numeshj/saranya-class/internal/model"
	"github.com/numeshj/saranya-class/internal/repository"
)

var (
	// ErrInvalid covers bad signatures, unknown subjects and stale
	// refresh token versions.
	ErrInvalid = errors.New("refresh token invalid")
	// ErrExpired is a structurally valid but expired refresh token.
	ErrExpired = errors.New("refresh token expired")
	// ErrReused is a verified, unexpired refresh token with no active
	// record: it was already spent by a prior rotation. Treat as a
	// compromise signal.
	ErrReused = errors.New("refresh token reuse detected")
)

type Config struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Pair struct {
	Access  string
	Refresh string
}

// Meta is request context persisted alongside a refresh record.
type Meta struct {
	UserAgent string
	IP        string
}

type Service struct {
	store repository.Store
	cfg   Config
}

func NewService(store repository.Store, cfg Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Issue signs a new access/refresh pair. The refresh token carries the
// user's current version counter; nothing is persisted here.
func (s *Service) Issue(user model.User) (Pair, error) {
	access, err := auth.NewAccessToken(s.cfg.AccessSecret, s.cfg.Issuer, user.ID, user.Roles, s.cfg.AccessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := auth.NewRefreshToken(s.cfg.RefreshSecret, s.cfg.Issuer, user.ID, user.RefreshTokenVersion, s.cfg.RefreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Persist stores the hash of a raw refresh token with its metadata. The
// expiry is read back out of the token's own claim so record and claim
// can never disagree.
func (s *Service) Persist(ctx context.Context, user model.User, rawRefresh string, meta Meta) (model.RefreshToken, error) {
	claims, err := auth.ParseRefreshToken(s.cfg.RefreshSecret, s.cfg.Issuer, rawRefresh)
	if err != nil {
		return model.RefreshToken{}, err
	}

	record := model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: crypto.HashToken(rawRefresh),
		CreatedAt: time.Now().UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if meta.UserAgent != "" {
		record.UserAgent = &meta.UserAgent
	}
	if meta.IP != "" {
		record.IPAddress = &meta.IP
	}

	if err := s.store.CreateRefreshToken(ctx, record); err != nil {
		return model.RefreshToken{}, err
	}
	return record, nil
}

// IssueAndPersist is the login/register path: the pair is only returned
// once the refresh record is durably stored.
func (s *Service) IssueAndPersist(ctx context.Context, user model.User, meta Meta) (Pair, error) {
	pair, err := s.Issue(user)
	if err != nil {
		return Pair{}, err
	}
	if _, err := s.Persist(ctx, user, pair.Refresh, meta); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

// VerifyRefresh validates signature, expiry and version and returns the
// owning user. It does not consult the token records; 2FA and similar
// flows use it as the lightweight refresh-in-body authentication path.
func (s *Service) VerifyRefresh(ctx context.Context, rawRefresh string) (model.User, error) {
	claims, err := auth.ParseRefreshToken(s.cfg.RefreshSecret, s.cfg.Issuer, rawRefresh)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.User{}, ErrExpired
		}
		return model.User{}, ErrInvalid
	}

	user, err := s.store.FindUserByID(ctx, claims.Subject)
	if err != nil {
		return model.User{}, ErrInvalid
	}
	if claims.Version != user.RefreshTokenVersion {
		return model.User{}, ErrInvalid
	}
	return user, nil
}

// Rotate exchanges a refresh token for a fresh pair. The revoke of the old
// record is conditional on it not being revoked yet, so of two concurrent
// rotations presenting the same token exactly one succeeds.
func (s *Service) Rotate(ctx context.Context, rawRefresh string, meta Meta) (Pair, model.User, error) {
	user, err := s.VerifyRefresh(ctx, rawRefresh)
	if err != nil {
		return Pair{}, model.User{}, err
	}

	record, err := s.store.FindActiveRefreshToken(ctx, user.ID, crypto.HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Pair{}, model.User{}, ErrReused
		}
		return Pair{}, model.User{}, err
	}

	if err := s.store.RevokeRefreshToken(ctx, record.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost the race to a concurrent rotation.
			return Pair{}, model.User{}, ErrReused
		}
		return Pair{}, model.User{}, err
	}

	pair, err := s.Issue(user)
	if err != nil {
		return Pair{}, model.User{}, err
	}
	replacement, err := s.Persist(ctx, user, pair.Refresh, meta)
	if err != nil {
		return Pair{}, model.User{}, err
	}
	// Forward link is audit metadata only; losing it does not fail the
	// rotation.
	_ = s.store.LinkReplacement(ctx, record.ID, replacement.ID)

	return pair, user, nil
}

// Revoke marks the record of a raw refresh token revoked. Unknown and
// already-revoked tokens are not errors; logout stays idempotent.
func (s *Service) Revoke(ctx context.Context, rawRefresh string) error {
	return s.store.RevokeRefreshTokenByHash(ctx, crypto.HashToken(rawRefresh), time.Now().UTC())
}
