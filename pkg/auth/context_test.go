package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestGetUserUUIDFromContext(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		ctx    context.Context
		wantOK bool
	}{
		{"no claims", context.Background(), false},
		{"non-uuid subject", WithClaims(context.Background(), &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}, "t"), false},
		{"uuid subject", WithClaims(context.Background(), &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()}}, "t"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetUserUUIDFromContext(tt.ctx)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != id {
				t.Errorf("got %s, want %s", got, id)
			}
			if _, err := RequireUserUUIDFromContext(tt.ctx); (err == nil) != tt.wantOK {
				t.Errorf("RequireUserUUIDFromContext err = %v", err)
			}
		})
	}
}

func TestWithClaims_RoundTrip(t *testing.T) {
	claims := &Claims{Email: "a@b.org"}
	ctx := WithClaims(context.Background(), claims, "raw")

	got, ok := GetClaims(ctx)
	if !ok || got != claims {
		t.Error("expected claims from context")
	}
	token, ok := GetToken(ctx)
	if !ok || token != "raw" {
		t.Errorf("expected token raw, got %q", token)
	}
}
