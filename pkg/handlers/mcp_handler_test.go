package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/mcp"
	mcpauth "github.com/ekaya-inc/ekaya-notebook/pkg/mcp/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/mcp/tools"
)

func newTestMCPMux(version string) *http.ServeMux {
	logger := zap.NewNop()
	mcpServer := mcp.NewServer(version, nil, logger)
	tools.RegisterHealthTool(mcpServer.MCP(), version)

	mux := http.NewServeMux()
	NewMCPHandler(mcpServer, logger).RegisterRoutes(mux, mcpauth.NewMiddleware(fakeAuthService{}, logger))
	return mux
}

func TestMCPHandler_RequiresPOST(t *testing.T) {
	mux := newTestMCPMux("1.0.0")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("expected Allow: POST, got %q", allow)
	}
}

func TestMCPHandler_RequiresBearerToken(t *testing.T) {
	mux := newTestMCPMux("1.0.0")

	body := `{"jsonrpc":"2.0","method":"tools/list","id":1}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected a WWW-Authenticate challenge")
	}
}

func TestMCPHandler_ToolsCall(t *testing.T) {
	mux := newTestMCPMux("test-version")

	body := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"health"},"id":1}`
	req := bearer(httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)), uuid.New())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response struct {
		JSONRPC string `json:"jsonrpc"`
		Result  struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.JSONRPC != "2.0" {
		t.Errorf("expected jsonrpc 2.0, got %q", response.JSONRPC)
	}
	if len(response.Result.Content) == 0 {
		t.Fatal("expected content in response")
	}

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal([]byte(response.Result.Content[0].Text), &health); err != nil {
		t.Fatalf("failed to unmarshal health result: %v", err)
	}
	if health.Status != "ok" || health.Version != "test-version" {
		t.Errorf("unexpected health result: %+v", health)
	}
}
