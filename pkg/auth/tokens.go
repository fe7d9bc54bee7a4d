package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// Issuer mints HS256 access and refresh tokens.
type Issuer struct {
	issuer     string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates a token issuer.
func NewIssuer(issuer string, secret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		issuer:     issuer,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair mints an access token and a refresh token for the account.
func (i *Issuer) IssuePair(account *models.Account, roles []models.AppRole) (*models.TokenPair, error) {
	roleNames := make([]string, len(roles))
	for n, r := range roles {
		roleNames[n] = string(r)
	}

	now := i.now()
	accessExp := now.Add(i.accessTTL)

	access, err := i.sign(&Claims{
		RegisteredClaims: i.registered(account.ID, now, accessExp),
		Email:            account.Email,
		Roles:            roleNames,
		TokenType:        TokenTypeAccess,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := i.sign(&Claims{
		RegisteredClaims: i.registered(account.ID, now, now.Add(i.refreshTTL)),
		Email:            account.Email,
		TokenType:        TokenTypeRefresh,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
	}, nil
}

func (i *Issuer) registered(subject uuid.UUID, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   subject.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (i *Issuer) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
