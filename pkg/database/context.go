package database

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// UserScopeKey is the context key for storing the user-scoped database connection.
	UserScopeKey contextKey = "userScope"
)

// GetUserScope retrieves the user-scoped database connection from context.
// Returns nil and false if not present.
func GetUserScope(ctx context.Context) (*UserScope, bool) {
	scope, ok := ctx.Value(UserScopeKey).(*UserScope)
	return scope, ok
}

// SetUserScope stores the user-scoped database connection in context.
func SetUserScope(ctx context.Context, scope *UserScope) context.Context {
	return context.WithValue(ctx, UserScopeKey, scope)
}

// ScopeProvider creates scoped contexts for callers outside the HTTP
// middleware chain (MCP tools, public share lookups).
type ScopeProvider struct {
	db *DB
}

// NewScopeProvider creates a ScopeProvider for the given database.
func NewScopeProvider(db *DB) *ScopeProvider {
	return &ScopeProvider{db: db}
}

// WithUserScope returns a context with user scope set for the given user.
// The cleanup function must be called when the scope is no longer needed.
func (p *ScopeProvider) WithUserScope(ctx context.Context, userID uuid.UUID) (context.Context, func(), error) {
	scope, err := p.db.WithUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return SetUserScope(ctx, scope), func() { scope.Close() }, nil
}

// WithoutUserScope returns a context with an unrestricted scope.
func (p *ScopeProvider) WithoutUserScope(ctx context.Context) (context.Context, func(), error) {
	scope, err := p.db.WithoutUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	return SetUserScope(ctx, scope), func() { scope.Close() }, nil
}
