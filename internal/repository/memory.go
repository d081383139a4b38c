package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/numeshj/saranya-class/internal/model"
)

// Memory backs tests and database-less local development. It honors the
// same conditional-write semantics as the real backends; postgres and mongo
// remain the deployment targets.
type Memory struct {
	mu          sync.Mutex
	users       map[string]*model.User
	emails      map[string]string
	refresh     map[string]*model.RefreshToken
	refreshHash map[string]string
	resets      map[string]*model.PasswordResetToken
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*model.User),
		emails:      make(map[string]string),
		refresh:     make(map[string]*model.RefreshToken),
		refreshHash: make(map[string]string),
		resets:      make(map[string]*model.PasswordResetToken),
	}
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return *m.users[id], nil
}

func (m *Memory) FindUserByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return *user, nil
}

func (m *Memory) CreateUser(_ context.Context, user NewUser) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := m.emails[email]; exists {
		return model.User{}, ErrDuplicateEmail
	}

	now := time.Now().UTC()
	created := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: user.PasswordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Roles:        append([]string{}, user.Roles...),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[created.ID] = created
	m.emails[email] = created.ID
	return *created, nil
}

func (m *Memory) RecordLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.LastLoginAt = &at
	user.UpdatedAt = at
	return nil
}

func (m *Memory) UpdatePassword(_ context.Context, userID, passwordHash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordChangedAt = &at
	user.RefreshTokenVersion++
	user.UpdatedAt = at
	return nil
}

func (m *Memory) SetTwoFactorSecret(_ context.Context, userID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.TwoFactorSecret = &secret
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) CreateRefreshToken(_ context.Context, token model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := token
	m.refresh[token.ID] = &stored
	m.refreshHash[token.TokenHash] = token.ID
	return nil
}

func (m *Memory) FindActiveRefreshToken(_ context.Context, userID, tokenHash string) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refreshHash[tokenHash]
	if !ok {
		return model.RefreshToken{}, ErrNotFound
	}
	token := m.refresh[id]
	if token.UserID != userID || token.RevokedAt != nil || !token.ExpiresAt.After(time.Now().UTC()) {
		return model.RefreshToken{}, ErrNotFound
	}
	return *token, nil
}

func (m *Memory) RevokeRefreshToken(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.refresh[id]
	if !ok || token.RevokedAt != nil {
		return ErrNotFound
	}
	token.RevokedAt = &at
	return nil
}

func (m *Memory) LinkReplacement(_ context.Context, id, replacementID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.refresh[id]
	if !ok {
		return ErrNotFound
	}
	token.ReplacedBy = &replacementID
	return nil
}

func (m *Memory) RevokeRefreshTokenByHash(_ context.Context, tokenHash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refreshHash[tokenHash]
	if !ok {
		return nil
	}
	token := m.refresh[id]
	if token.RevokedAt == nil {
		token.RevokedAt = &at
	}
	return nil
}

func (m *Memory) CreatePasswordResetToken(_ context.Context, token model.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := token
	m.resets[token.TokenHash] = &stored
	return nil
}

func (m *Memory) ConsumePasswordResetToken(_ context.Context, tokenHash string, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.resets[tokenHash]
	if !ok || token.UsedAt != nil || !token.ExpiresAt.After(at) {
		return "", ErrNotFound
	}
	token.UsedAt = &at
	return token.UserID, nil
}
