package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

const strongPassword = "Sup3r$ecret"

type accountFixture struct {
	accounts    *mockAccountRepo
	profiles    *mockProfileRepo
	roles       *mockUserRoleRepo
	issuer      *mockIssuer
	refresh     *mockRefreshValidator
	revocations auth.RevocationStore
	svc         AccountService
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{
		accounts:    newMockAccountRepo(),
		profiles:    newMockProfileRepo(),
		roles:       newMockUserRoleRepo(),
		issuer:      &mockIssuer{},
		refresh:     &mockRefreshValidator{claims: map[string]*auth.Claims{}},
		revocations: auth.NewMemoryRevocationStore(),
	}
	f.svc = NewAccountService(f.accounts, f.profiles, f.roles, f.issuer, f.refresh, f.revocations, zap.NewNop())
	return f
}

func claimsFor(userID uuid.UUID, jti string) *auth.Claims {
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        jti,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
}

func TestAccountService_SignupDefaultsDisplayName(t *testing.T) {
	f := newAccountFixture()

	account, err := f.svc.Signup(context.Background(), "  Dr.Rivera@Example.org ", strongPassword, "")
	require.NoError(t, err)

	assert.Equal(t, "dr.rivera@example.org", account.Email)
	assert.NotEqual(t, strongPassword, f.accounts.accounts[account.ID].PasswordHash)

	profile := f.profiles.profiles[account.ID]
	require.NotNil(t, profile)
	assert.Equal(t, "dr.rivera", *profile.DisplayName)
}

func TestAccountService_SignupValidation(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"missing email", "", strongPassword},
		{"missing password", "a@example.org", ""},
		{"bad email", "not-an-email", strongPassword},
		{"weak password", "a@example.org", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Signup(ctx, tt.email, tt.password, "")
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}
	assert.Empty(t, f.accounts.accounts)
}

func TestAccountService_SignupDuplicateEmail(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, "a@example.org", strongPassword, "A")
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, "A@EXAMPLE.ORG", strongPassword, "A")
	assert.True(t, errors.Is(err, ErrEmailTaken))
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestAccountService_SignupRemovesAccountWhenProfileFails(t *testing.T) {
	f := newAccountFixture()
	f.profiles.createErr = errors.New("insert failed")

	_, err := f.svc.Signup(context.Background(), "a@example.org", strongPassword, "")
	assert.Error(t, err)
	assert.Empty(t, f.accounts.accounts)
}

func TestAccountService_Login(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	account, err := f.svc.Signup(ctx, "a@example.org", strongPassword, "")
	require.NoError(t, err)

	session, err := f.svc.Login(ctx, "A@example.org", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.Account.ID)
	assert.Equal(t, "access-"+account.ID.String(), session.Tokens.AccessToken)
	assert.Equal(t, []uuid.UUID{account.ID}, f.profiles.touched)

	_, err = f.svc.Login(ctx, "a@example.org", "Wrong$Passw0rd")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = f.svc.Login(ctx, "nobody@example.org", strongPassword)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestAccountService_RefreshIsSingleUse(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	account, err := f.svc.Signup(ctx, "a@example.org", strongPassword, "")
	require.NoError(t, err)

	f.refresh.claims["r1"] = claimsFor(account.ID, "jti-r1")

	session, err := f.svc.Refresh(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.Account.ID)

	revoked, err := f.revocations.IsRevoked(ctx, "jti-r1")
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.svc.Refresh(ctx, "unknown")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestAccountService_RefreshDeletedAccount(t *testing.T) {
	f := newAccountFixture()
	f.refresh.claims["r1"] = claimsFor(uuid.New(), "jti")

	_, err := f.svc.Refresh(context.Background(), "r1")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestAccountService_LogoutRevokesBothTokens(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	userID := uuid.New()
	f.refresh.claims["r1"] = claimsFor(userID, "jti-refresh")
	f.refresh.claims["r-other"] = claimsFor(uuid.New(), "jti-other")

	require.NoError(t, f.svc.Logout(ctx, claimsFor(userID, "jti-access"), "r1"))
	require.NoError(t, f.svc.Logout(ctx, claimsFor(userID, "jti-access-2"), "r-other"))

	for jti, want := range map[string]bool{
		"jti-access":   true,
		"jti-refresh":  true,
		"jti-access-2": true,
		"jti-other":    false,
	} {
		got, err := f.revocations.IsRevoked(ctx, jti)
		require.NoError(t, err)
		assert.Equal(t, want, got, jti)
	}

	assert.True(t, errors.Is(f.svc.Logout(ctx, nil, ""), apperrors.ErrUnauthorized))
}

func TestAccountService_LoginIncludesRoles(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()
	account, err := f.svc.Signup(ctx, "a@example.org", strongPassword, "")
	require.NoError(t, err)
	require.NoError(t, f.roles.Add(ctx, account.ID, models.RoleClinician))

	_, err = f.svc.Login(ctx, "a@example.org", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, 1, f.issuer.issued)
}
