// Package http is the auth API surface: request contracts, validation and
// the mapping from internal failures to the response taxonomy.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/numeshj/saranya-class/internal/auth"
	"github.com/numeshj/saranya-class/internal/config"
	"github.com/numeshj/saranya-class/internal/guard"
	"github.com/numeshj/saranya-class/internal/repository"
	"github.com/numeshj/saranya-class/internal/token"
)

type Server struct {
	cfg    config.Config
	store  repository.Store
	tokens *token.Service
	guard  guard.Guard
}

func NewServer(cfg config.Config, store repository.Store, attemptGuard guard.Guard) *Server {
	tokens := token.NewService(store, token.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	return &Server{
		cfg:    cfg,
		store:  store,
		tokens: tokens,
		guard:  attemptGuard,
	}
}

// Tokens exposes the token service for seeding and tests.
func (s *Server) Tokens() *token.Service {
	return s.tokens
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.With(s.authMiddleware).Get("/me", s.handleGetMe)

		r.Post("/2fa/setup", s.handleTwoFactorSetup)
		r.Post("/2fa/verify", s.handleTwoFactorVerify)

		r.Post("/password/reset/request", s.handleResetRequest)
		r.Post("/password/reset/confirm", s.handleResetConfirm)
	})

	return r
}

// authMiddleware is the bearer-access-token path used by regular protected
// routes. The 2FA and logout handlers deliberately authenticate via the
// refresh token in the request body instead; see token.Service.VerifyRefresh.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r.Header.Get("Authorization"))
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseAccessToken(s.cfg.JWTAccessSecret, s.cfg.JWTIssuer, tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.AccessClaims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.AccessClaims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ""
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "validation_failed",
		"fields": fields,
	})
}
