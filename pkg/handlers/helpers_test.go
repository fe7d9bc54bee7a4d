package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
)

// fakeAuthService accepts "Authorization: Bearer <account uuid>".
type fakeAuthService struct{}

func (fakeAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, "", auth.ErrMissingAuthorization
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, "", auth.ErrInvalidAuthFormat
	}
	if _, err := uuid.Parse(token); err != nil {
		return nil, "", errors.New("token is malformed")
	}
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: token},
		TokenType:        auth.TokenTypeAccess,
	}, token, nil
}

// passThrough stands in for the database scope middleware.
func passThrough(next http.HandlerFunc) http.HandlerFunc {
	return next
}

func bearer(r *http.Request, userID uuid.UUID) *http.Request {
	r.Header.Set("Authorization", "Bearer "+userID.String())
	return r
}
