package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
)

func TestParseID(t *testing.T) {
	validID := uuid.New()

	tests := []struct {
		name       string
		id         string
		wantOK     bool
		wantStatus int
	}{
		{"valid", validID.String(), true, http.StatusOK},
		{"malformed", "not-a-uuid", false, http.StatusBadRequest},
		{"empty", "", false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/sections/x", nil)
			r.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			id, ok := ParseID(w, r, zap.NewNop())

			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id != validID {
				t.Errorf("id = %s, want %s", id, validID)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !ok && decodeError(t, w)["message"] != "Invalid ID format" {
				t.Error("expected Invalid ID format message")
			}
		})
	}
}

func TestRequireQueryUUID(t *testing.T) {
	projectID := uuid.New()

	tests := []struct {
		name        string
		query       string
		wantOK      bool
		wantMessage string
	}{
		{"present", "?project_id=" + projectID.String(), true, ""},
		{"missing", "", false, "project_id query parameter is required"},
		{"blank", "?project_id=%20", false, "project_id query parameter is required"},
		{"malformed", "?project_id=abc", false, "Invalid project_id format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/analyses"+tt.query, nil)
			w := httptest.NewRecorder()

			id, ok := RequireQueryUUID(w, r, "project_id", zap.NewNop())

			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok {
				if id != projectID {
					t.Errorf("id = %s, want %s", id, projectID)
				}
				return
			}
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if got := decodeError(t, w)["message"]; got != tt.wantMessage {
				t.Errorf("message = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestOptionalQueryUUID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/shared/tok", nil)
	id, ok := OptionalQueryUUID(httptest.NewRecorder(), r, "analysis_id", zap.NewNop())
	if !ok || id != nil {
		t.Errorf("absent parameter: got (%v, %v), want (nil, true)", id, ok)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/shared/tok?analysis_id=zzz", nil)
	w := httptest.NewRecorder()
	if _, ok := OptionalQueryUUID(w, r, "analysis_id", zap.NewNop()); ok {
		t.Error("expected malformed parameter to fail")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRequireUserID(t *testing.T) {
	w := httptest.NewRecorder()
	if _, ok := RequireUserID(w, httptest.NewRequest(http.MethodGet, "/", nil), zap.NewNop()); ok {
		t.Fatal("expected failure without claims")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	userID := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	claims, _, _ := fakeAuthService{}.ValidateRequest(bearer(r, userID))
	r = r.WithContext(auth.WithClaims(r.Context(), claims, userID.String()))

	got, ok := RequireUserID(httptest.NewRecorder(), r, zap.NewNop())
	if !ok || got != userID {
		t.Errorf("got (%s, %v), want (%s, true)", got, ok, userID)
	}
}
