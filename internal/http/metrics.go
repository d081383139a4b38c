package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"result"})

	lockouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockouts_total",
		Help: "Accounts locked by the login-attempt guard.",
	})

	registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Successful registrations.",
	})

	tokenRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_rotations_total",
		Help: "Refresh token rotations by outcome.",
	}, []string{"result"})

	tokenReuseDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_reuse_detected_total",
		Help: "Structurally valid but already-spent refresh tokens presented.",
	})

	passwordResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_password_resets_total",
		Help: "Password reset flow progress by stage.",
	}, []string{"stage"})
)
