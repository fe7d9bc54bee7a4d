package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// mockAuthService is a mock implementation of AuthService for testing.
type mockAuthService struct {
	claims      *Claims
	token       string
	validateErr error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	if m.validateErr != nil {
		return nil, "", m.validateErr
	}
	return m.claims, m.token, nil
}

func TestMiddleware_RequireAuth_Success(t *testing.T) {
	userID := uuid.New()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()}}
	middleware := NewMiddleware(&mockAuthService{claims: claims, token: "test-token"}, zap.NewNop())

	var ctxClaims *Claims
	var ctxToken string
	var prov models.ProvenanceContext
	var provOK bool

	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		ctxClaims, _ = GetClaims(r.Context())
		ctxToken, _ = GetToken(r.Context())
		prov, provOK = models.GetProvenance(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ctxClaims != claims {
		t.Error("expected claims to be set in context")
	}
	if ctxToken != "test-token" {
		t.Errorf("expected token 'test-token' in context, got %q", ctxToken)
	}
	if !provOK || prov.Source != models.SourceManual || prov.UserID != userID {
		t.Errorf("expected manual provenance for %s, got %+v", userID, prov)
	}
}

func TestMiddleware_RequireAuth_Unauthorized(t *testing.T) {
	tests := []struct {
		name        string
		service     *mockAuthService
		wantMessage string
	}{
		{"missing", &mockAuthService{validateErr: ErrMissingAuthorization}, "Authorization required"},
		{"invalid", &mockAuthService{validateErr: errors.New("token validation failed")}, "Invalid or expired token"},
		{"non-uuid subject", &mockAuthService{claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "bob"}}}, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := NewMiddleware(tt.service, zap.NewNop())

			called := false
			handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

			if called {
				t.Error("handler should not be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["error"] != "unauthorized" || body["message"] != tt.wantMessage {
				t.Errorf("unexpected body: %v", body)
			}
		})
	}
}
