package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims authorize regular API calls. The role set travels in the
// token so route guards do not need a user lookup.
type AccessClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the principal's refresh token version. Bumping
// that counter on the user record invalidates every outstanding refresh
// token at once.
type RefreshClaims struct {
	Version int `json:"v"`
	jwt.RegisteredClaims
}

func NewAccessToken(secret, issuer, userID string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func NewRefreshToken(secret, issuer, userID string, version int, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := RefreshClaims{
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseAccessToken(secret, issuer, tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(secret, issuer, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func ParseRefreshToken(secret, issuer, tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(secret, issuer, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func parse(secret, issuer, tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}
