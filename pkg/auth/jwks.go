package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenValidator validates a JWT and returns its claims.
type TokenValidator interface {
	// ValidateToken validates an access token string and returns the claims.
	// Returns an error if the token is invalid, expired, revoked, or from an
	// unauthorized issuer.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
	// Close releases any resources held by the validator.
	Close()
}

// VerifierConfig contains configuration for the token verifier.
type VerifierConfig struct {
	// Issuer is the iss claim of tokens minted by this server.
	Issuer string
	// Secret verifies HS256 tokens minted by this server.
	Secret []byte
	// JWKSEndpoints maps external issuer URLs to their JWKS endpoint URLs.
	// Only external tokens from issuers in this map are accepted.
	JWKSEndpoints map[string]string
}

// Verifier validates tokens minted by this server and, optionally, tokens
// from external issuers through their JWKS endpoints.
type Verifier struct {
	config      *VerifierConfig
	endpoints   map[string]keyfunc.Keyfunc
	revocations RevocationStore
}

// NewVerifier creates a verifier. It fetches JWKS from all configured
// endpoints and returns an error if any endpoint fails to load.
func NewVerifier(ctx context.Context, config *VerifierConfig, revocations RevocationStore) (*Verifier, error) {
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}

	v := &Verifier{
		config:      config,
		endpoints:   make(map[string]keyfunc.Keyfunc),
		revocations: revocations,
	}

	for issuer, jwksURL := range config.JWKSEndpoints {
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("failed to create JWKS client for %s: %w", issuer, err)
		}
		v.endpoints[issuer] = jwks
	}

	return v, nil
}

// ValidateToken validates an access token.
func (v *Verifier) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := v.parse(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	// External tokens carry no typ claim; our refresh tokens must not pass as access tokens.
	if claims.TokenType == TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}

	if err := v.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefreshToken validates a refresh token minted by this server.
func (v *Verifier) ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := v.parse(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh || claims.Issuer != v.config.Issuer {
		return nil, ErrWrongTokenType
	}
	if err := v.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) parse(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, errors.New("invalid claims type")
		}

		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if claims.Issuer != v.config.Issuer {
				return nil, fmt.Errorf("unauthorized issuer: %s", claims.Issuer)
			}
			return v.config.Secret, nil
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			jwks, exists := v.endpoints[claims.Issuer]
			if !exists {
				return nil, fmt.Errorf("unauthorized issuer: %s", claims.Issuer)
			}
			return jwks.KeyfuncCtx(ctx)(token)
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

func (v *Verifier) checkRevoked(ctx context.Context, claims *Claims) error {
	if v.revocations == nil || claims.ID == "" {
		return nil
	}
	revoked, err := v.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

// Close releases any resources held by the verifier.
// keyfunc v3 stops its refresh goroutine when the creation context ends.
func (v *Verifier) Close() {}

var _ TokenValidator = (*Verifier)(nil)
