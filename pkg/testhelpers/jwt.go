// Package testhelpers provides utilities for testing ekaya-notebook components.
package testhelpers

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// TestJWTSecret signs tokens minted by GenerateTestJWT.
const TestJWTSecret = "test-secret-0123456789abcdef0123456789"

// TestIssuer is the issuer claim of test tokens.
const TestIssuer = "ekaya-notebook"

// GenerateTestJWT mints a signed access token for userID that a Verifier
// built with TestVerifierConfig accepts.
func GenerateTestJWT(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()
	issuer := auth.NewIssuer(TestIssuer, []byte(TestJWTSecret), 15*time.Minute, time.Hour)
	pair, err := issuer.IssuePair(&models.Account{ID: userID, Email: email}, nil)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	return pair.AccessToken
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()
	return "Bearer " + GenerateTestJWT(t, userID, email)
}

// TestVerifierConfig returns verifier settings matching GenerateTestJWT.
func TestVerifierConfig() *auth.VerifierConfig {
	return &auth.VerifierConfig{
		Issuer: TestIssuer,
		Secret: []byte(TestJWTSecret),
	}
}
