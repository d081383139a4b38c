package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/numeshj/saranya-class/internal/crypto"
	"github.com/numeshj/saranya-class/internal/model"
	"github.com/numeshj/saranya-class/internal/repository"
)

const resetRequestedMessage = "If that email is registered, a reset link has been sent"

type resetRequestRequest struct {
	Email string `json:"email"`
}

type resetRequestResponse struct {
	Message string `json:"message"`
	// Token is populated in development only; production delivery goes
	// through email and never the API response.
	Token string `json:"token,omitempty"`
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		writeValidationError(w, map[string]string{"email": "must be a valid email address"})
		return
	}

	resp := resetRequestResponse{Message: resetRequestedMessage}

	user, err := s.store.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Unknown emails get the same response as known ones. Internal
		// failures are logged but not surfaced for the same reason.
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("password reset lookup error for %s: %v", req.Email, err)
		}
		passwordResets.WithLabelValues("requested").Inc()
		writeJSON(w, http.StatusOK, resp)
		return
	}

	raw, err := crypto.NewResetToken()
	if err != nil {
		log.Printf("password reset token generation error: %v", err)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	now := time.Now().UTC()
	record := model.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: crypto.HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
	}
	if err := s.store.CreatePasswordResetToken(r.Context(), record); err != nil {
		log.Printf("password reset token store error for %s: %v", user.ID, err)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	passwordResets.WithLabelValues("requested").Inc()
	if s.cfg.Development() {
		resp.Token = raw
	}
	writeJSON(w, http.StatusOK, resp)
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing_token")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeValidationError(w, map[string]string{"password": "must be at least 8 characters"})
		return
	}

	now := time.Now().UTC()
	userID, err := s.store.ConsumePasswordResetToken(r.Context(), crypto.HashToken(req.Token), now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "invalid_or_expired_token")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	// Bumping the refresh token version here invalidates every session the
	// account had before the reset.
	if err := s.store.UpdatePassword(r.Context(), userID, hash, now); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	passwordResets.WithLabelValues("completed").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
