package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// mockTokenValidator is a mock implementation of TokenValidator for testing.
type mockTokenValidator struct {
	claims *Claims
	err    error
	seen   string
}

func (m *mockTokenValidator) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	m.seen = tokenString
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func (m *mockTokenValidator) Close() {}

func TestAuthService_ValidateRequest_BearerHeader(t *testing.T) {
	validator := &mockTokenValidator{claims: &Claims{Email: "a@b.org"}}
	service := NewAuthService(validator, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer header-token")

	claims, token, err := service.ValidateRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "header-token" || validator.seen != "header-token" {
		t.Errorf("expected header token to be validated, got %q", token)
	}
	if claims.Email != "a@b.org" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_ValidateRequest_SessionCookie(t *testing.T) {
	sessions := NewSessionManager("secret", CookieSettings{}, 900)
	rec := httptest.NewRecorder()
	if err := sessions.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), "cookie-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	validator := &mockTokenValidator{claims: &Claims{}}
	service := NewAuthService(validator, sessions, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	_, token, err := service.ValidateRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "cookie-token" {
		t.Errorf("expected cookie token, got %q", token)
	}
}

func TestAuthService_ValidateRequest_Errors(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		validator *mockTokenValidator
		wantErr   error
	}{
		{"missing", "", &mockTokenValidator{}, ErrMissingAuthorization},
		{"basic scheme", "Basic dXNlcjpwYXNz", &mockTokenValidator{}, ErrInvalidAuthFormat},
		{"empty bearer", "Bearer ", &mockTokenValidator{}, ErrInvalidAuthFormat},
		{"revoked", "Bearer t", &mockTokenValidator{err: ErrTokenRevoked}, ErrTokenRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewAuthService(tt.validator, nil, zap.NewNop())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			_, _, err := service.ValidateRequest(req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
