package http

import (
	"errors"
	"net/http"

	"github.com/numeshj/saranya-class/internal/model"
	"github.com/numeshj/saranya-class/internal/repository"
	"github.com/numeshj/saranya-class/internal/twofactor"
)

type twoFactorSetupRequest struct {
	Refresh string `json:"refresh"`
}

type twoFactorSetupResponse struct {
	QR     string `json:"qr"`
	Secret string `json:"secret"`
}

// Two-factor endpoints authenticate with the refresh token rather than the
// short-lived access token so that a stolen access token alone is not enough
// to rebind the authenticator.
func (s *Server) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	var req twoFactorSetupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	user, err := s.tokens.VerifyRefresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	if !user.HasRole(model.RoleAdmin) && !user.HasRole(model.RoleManagement) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	enrollment, err := twofactor.NewEnrollment(s.cfg.TOTPIssuer, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if err := s.store.SetTwoFactorSecret(r.Context(), user.ID, enrollment.Secret); err != nil {
		if errors.Is(err, repository.ErrNotImplemented) {
			writeError(w, http.StatusNotImplemented, "two_factor_unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, twoFactorSetupResponse{
		QR:     enrollment.QR,
		Secret: enrollment.Secret,
	})
}

type twoFactorVerifyRequest struct {
	Refresh string `json:"refresh"`
	// Token is the six-digit authenticator code.
	Token string `json:"token"`
}

func (s *Server) handleTwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	var req twoFactorVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Refresh == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	user, err := s.tokens.VerifyRefresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	if user.TwoFactorSecret == nil || *user.TwoFactorSecret == "" {
		writeError(w, http.StatusBadRequest, "two_factor_not_enabled")
		return
	}

	if !twofactor.Verify(*user.TwoFactorSecret, req.Token) {
		writeError(w, http.StatusUnauthorized, "invalid_code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Code verified"})
}
