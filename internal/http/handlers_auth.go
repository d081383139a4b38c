package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/numeshj/saranya-class/internal/crypto"
	"github.com/numeshj/saranya-class/internal/model"
	"github.com/numeshj/saranya-class/internal/repository"
	"github.com/numeshj/saranya-class/internal/token"
)

const minPasswordLength = 8

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type authResponse struct {
	User    model.PublicUser `json:"user"`
	Access  string           `json:"access"`
	Refresh string           `json:"refresh"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Email = normalizeEmail(req.Email)
	fields := map[string]string{}
	if !validEmail(req.Email) {
		fields["email"] = "must be a valid email address"
	}
	if len(req.Password) < minPasswordLength {
		fields["password"] = "must be at least 8 characters"
	}
	if req.FirstName == "" {
		fields["firstName"] = "required"
	}
	if req.LastName == "" {
		fields["lastName"] = "required"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), repository.NewUser{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Roles:        []string{model.DefaultRole},
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email_in_use")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	pair, err := s.tokens.IssueAndPersist(r.Context(), user, token.Meta{UserAgent: r.UserAgent(), IP: clientIP(r)})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	registrations.Inc()
	writeJSON(w, http.StatusCreated, authResponse{
		User:    user.Public(),
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginFailureResponse struct {
	Error       string     `json:"error"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	// The guard runs before any hashing work so locked identifiers get a
	// uniform response without burning scrypt time.
	locked, err := s.guard.IsLocked(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if locked {
		loginAttempts.WithLabelValues("locked").Inc()
		writeError(w, http.StatusLocked, "account_locked")
		return
	}

	user, err := s.store.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.failLogin(w, r, req.Email)
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if !user.Active || !crypto.VerifyPassword(user.PasswordHash, req.Password) {
		s.failLogin(w, r, req.Email)
		return
	}

	if _, err := s.guard.RecordAttempt(r.Context(), req.Email, true); err != nil {
		log.Printf("login guard error for %s: %v", req.Email, err)
	}

	now := time.Now().UTC()
	if err := s.store.RecordLogin(r.Context(), user.ID, now); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	user.LastLoginAt = &now

	pair, err := s.tokens.IssueAndPersist(r.Context(), user, token.Meta{UserAgent: r.UserAgent(), IP: clientIP(r)})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	loginAttempts.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, authResponse{
		User:    user.Public(),
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

// failLogin answers unknown emails and wrong passwords with the same shape
// so the endpoint cannot be used to enumerate accounts. The failure that
// crosses the lockout threshold already answers 423.
func (s *Server) failLogin(w http.ResponseWriter, r *http.Request, email string) {
	state, err := s.guard.RecordAttempt(r.Context(), email, false)
	if err != nil {
		log.Printf("login guard error for %s: %v", email, err)
	}

	loginAttempts.WithLabelValues("failure").Inc()
	if state.Locked(time.Now()) {
		lockouts.Inc()
		lockedUntil := state.LockedUntil.UTC()
		writeJSON(w, http.StatusLocked, loginFailureResponse{
			Error:       "account_locked",
			LockedUntil: &lockedUntil,
		})
		return
	}
	writeError(w, http.StatusUnauthorized, "invalid_credentials")
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	pair, _, err := s.tokens.Rotate(r.Context(), req.Refresh, token.Meta{UserAgent: r.UserAgent(), IP: clientIP(r)})
	if err != nil {
		tokenRotations.WithLabelValues("rejected").Inc()
		switch {
		case errors.Is(err, token.ErrReused):
			tokenReuseDetected.Inc()
			writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		case errors.Is(err, token.ErrExpired):
			writeError(w, http.StatusUnauthorized, "refresh_token_expired")
		case errors.Is(err, token.ErrInvalid):
			writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		default:
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	tokenRotations.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, refreshResponse{Access: pair.Access, Refresh: pair.Refresh})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// The body is optional; logout succeeds regardless.
	_ = decodeJSON(r, &req)

	if req.Refresh != "" {
		if err := s.tokens.Revoke(r.Context(), req.Refresh); err != nil {
			log.Printf("logout revoke error: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	user, err := s.store.FindUserByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !user.Active {
		writeError(w, http.StatusUnauthorized, "invalid_user")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}
