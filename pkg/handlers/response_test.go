package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Project not found"); err != nil {
		t.Fatalf("ErrorResponse returned error: %v", err)
	}

	if w.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusNotFound)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	body := decodeError(t, w)
	if body["error"] != "not_found" || body["message"] != "Project not found" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestWriteJSON(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		w := httptest.NewRecorder()

		if err := WriteJSON(w, status, MessageResponse{Message: "ok"}); err != nil {
			t.Fatalf("WriteJSON returned error: %v", err)
		}
		if w.Code != status {
			t.Errorf("status code = %d, want %d", w.Code, status)
		}
		if got := strings.TrimSpace(w.Body.String()); got != `{"message":"ok"}` {
			t.Errorf("body = %s", got)
		}
	}
}

func TestDecodeJSON_RejectsOversizeBody(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", maxJSONBody) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(body))

	var req CreateProjectRequest
	if err := decodeJSON(httptest.NewRecorder(), r, &req); err == nil {
		t.Error("expected error for body over the limit")
	}
}

func TestServiceFailure(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"validation", apperrors.NewInputError("name must be at most 200 characters"), http.StatusBadRequest, "validation_error", "name must be at most 200 characters"},
		{"wrapped not found", fmt.Errorf("get: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found", "Project not found"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "Access denied"},
		{"store failure", errors.New("connection reset by peer"), http.StatusBadRequest, "request_failed", "Failed to update project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			serviceFailure(w, zap.NewNop(), tt.err, "Project", "update project")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := decodeError(t, w)
			if body["error"] != tt.wantCode {
				t.Errorf("error = %q, want %q", body["error"], tt.wantCode)
			}
			if body["message"] != tt.wantMessage {
				t.Errorf("message = %q, want %q", body["message"], tt.wantMessage)
			}
		})
	}
}
