package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/numeshj/saranya-class/internal/model"
)

const pgUniqueViolation = "23505"

// Postgres is the relational adapter. Roles are normalized into a
// many-to-many join with upsert-if-absent role creation.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const userColumns = `
	u.id, u.email, u.password_hash, u.first_name, u.last_name, u.is_active,
	u.last_login_at, u.password_changed_at, u.refresh_token_version,
	u.created_at, u.updated_at
`

func (s *Postgres) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
	return s.scanUser(ctx, row)
}

func (s *Postgres) FindUserByID(ctx context.Context, id string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	return s.scanUser(ctx, row)
}

func (s *Postgres) scanUser(ctx context.Context, row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Active,
		&user.LastLoginAt,
		&user.PasswordChangedAt,
		&user.RefreshTokenVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}

	roles, err := s.userRoles(ctx, user.ID)
	if err != nil {
		return model.User{}, err
	}
	user.Roles = roles
	return user, nil
}

func (s *Postgres) userRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (s *Postgres) CreateUser(ctx context.Context, user NewUser) (model.User, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	created := model.User{
		ID:           uuid.NewString(),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Roles:        append([]string{}, user.Roles...),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, is_active, refresh_token_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, 0, $6, $6)
	`, created.ID, created.Email, created.PasswordHash, created.FirstName, created.LastName, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, err
	}

	for _, role := range created.Roles {
		// Upsert-if-absent: role rows are created lazily on first use.
		_, err = tx.Exec(ctx, `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, role)
		if err != nil {
			return model.User{}, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, id FROM roles WHERE name = $2
		`, created.ID, role)
		if err != nil {
			return model.User{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.User{}, err
	}
	return created, nil
}

func (s *Postgres) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2
	`, at, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1,
		    password_changed_at = $2,
		    refresh_token_version = refresh_token_version + 1,
		    updated_at = $2
		WHERE id = $3
	`, passwordHash, at, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTwoFactorSecret is not supported on the relational schema; callers
// surface this as 501 rather than silently succeeding.
func (s *Postgres) SetTwoFactorSecret(ctx context.Context, userID, secret string) error {
	return ErrNotImplemented
}

func (s *Postgres) CreateRefreshToken(ctx context.Context, token model.RefreshToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, user_agent, ip_address, created_at, expires_at, revoked_at, replaced_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, token.ID, token.UserID, token.TokenHash, token.UserAgent, token.IPAddress, token.CreatedAt, token.ExpiresAt, token.RevokedAt, token.ReplacedBy)
	return err
}

func (s *Postgres) FindActiveRefreshToken(ctx context.Context, userID, tokenHash string) (model.RefreshToken, error) {
	var token model.RefreshToken
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, user_agent, ip_address, created_at, expires_at, revoked_at, replaced_by
		FROM refresh_tokens
		WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL AND expires_at > now()
	`, userID, tokenHash)
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.UserAgent, &token.IPAddress, &token.CreatedAt, &token.ExpiresAt, &token.RevokedAt, &token.ReplacedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	return token, err
}

func (s *Postgres) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL
	`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) LinkReplacement(ctx context.Context, id, replacementID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET replaced_by = $1 WHERE id = $2
	`, replacementID, id)
	return err
}

func (s *Postgres) RevokeRefreshTokenByHash(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $1 WHERE token_hash = $2 AND revoked_at IS NULL
	`, at, tokenHash)
	return err
}

func (s *Postgres) CreatePasswordResetToken(ctx context.Context, token model.PasswordResetToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, created_at, expires_at, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt, token.UsedAt)
	return err
}

func (s *Postgres) ConsumePasswordResetToken(ctx context.Context, tokenHash string, at time.Time) (string, error) {
	var userID string
	row := s.pool.QueryRow(ctx, `
		UPDATE password_reset_tokens
		SET used_at = $1
		WHERE token_hash = $2 AND used_at IS NULL AND expires_at > $1
		RETURNING user_id
	`, at, tokenHash)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return userID, nil
}
