package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", "user-1", []string{"student"}, time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseAccessToken("secret", "issuer", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "student" {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	token, err := NewRefreshToken("refresh-secret", "issuer", "user-1", 3, time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseRefreshToken("refresh-secret", "issuer", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Version != 3 {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", "user-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseAccessToken("other-secret", "issuer", token); err == nil {
		t.Fatalf("expected signature validation failure")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", "user-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseAccessToken("secret", "someone-else", token); err == nil {
		t.Fatalf("expected issuer validation failure")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := NewRefreshToken("secret", "issuer", "user-1", 0, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	_, err = ParseRefreshToken("secret", "issuer", token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestRefreshSecretNotValidForAccess(t *testing.T) {
	token, err := NewRefreshToken("refresh-secret", "issuer", "user-1", 0, time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseAccessToken("access-secret", "issuer", token); err == nil {
		t.Fatalf("expected cross-secret validation failure")
	}
}
