package model

import "time"

const (
	RoleGuest      = "guest"
	RoleStudent    = "student"
	RoleParent     = "parent"
	RoleTeacher    = "teacher"
	RoleManagement = "management"
	RoleAdmin      = "admin"
)

// DefaultRole is assigned on self-registration.
const DefaultRole = RoleStudent

var roles = []string{RoleGuest, RoleStudent, RoleParent, RoleTeacher, RoleManagement, RoleAdmin}

func ValidRole(role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	FirstName           string
	LastName            string
	Roles               []string
	Active              bool
	LastLoginAt         *time.Time
	PasswordChangedAt   *time.Time
	RefreshTokenVersion int
	TwoFactorSecret     *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PublicUser is the client-facing view of a user. It never carries the
// password hash, the two-factor secret or the refresh token version.
type PublicUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Roles       []string   `json:"roles"`
	Active      bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (u User) Public() PublicUser {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Roles:       roles,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// RefreshToken is the persisted record of one issued refresh credential.
// Only the SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	UserAgent  *string
	IPAddress  *string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
}

type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}
