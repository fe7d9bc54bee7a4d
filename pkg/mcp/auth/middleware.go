// Package mcpauth authenticates requests to the MCP endpoint.
// Failures carry RFC 6750 Bearer challenges so MCP clients can re-authenticate.
package mcpauth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
)

const realm = "ekaya-notebook"

// Middleware guards the MCP endpoint.
type Middleware struct {
	authService auth.AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new MCP auth middleware.
func NewMiddleware(authService auth.AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth validates the bearer token and stores its claims in the
// request context. The subject must be an account UUID.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if errors.Is(err, auth.ErrMissingAuthorization) {
			m.challenge(w, http.StatusUnauthorized, "", "")
			return
		}
		if err != nil {
			m.logger.Debug("MCP auth failed: invalid token",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			m.challenge(w, http.StatusUnauthorized, "invalid_token", "The access token is invalid or expired")
			return
		}

		if claims.TokenType == auth.TokenTypeRefresh {
			m.challenge(w, http.StatusUnauthorized, "invalid_token", "Refresh tokens cannot be used for MCP requests")
			return
		}
		if _, err := uuid.Parse(claims.Subject); err != nil {
			m.logger.Warn("MCP auth failed: subject is not an account id",
				zap.String("subject", claims.Subject))
			m.challenge(w, http.StatusUnauthorized, "invalid_token", "The access token has no account subject")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims, token)))
	})
}

// challenge writes a Bearer challenge (RFC 6750 section 3). A request that
// carried no credentials gets a challenge without an error code.
func (m *Middleware) challenge(w http.ResponseWriter, status int, errorCode, description string) {
	value := `Bearer realm="` + realm + `"`
	if errorCode != "" {
		value += `, error="` + errorCode + `", error_description="` + description + `"`
	}
	w.Header().Set("WWW-Authenticate", value)
	w.WriteHeader(status)
}
