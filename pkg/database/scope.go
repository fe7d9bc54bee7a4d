package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserScope wraps a connection with user context and ensures cleanup.
// The connection has app.current_user_id set for RLS policy evaluation.
type UserScope struct {
	Conn   *pgxpool.Conn
	UserID uuid.UUID
}

// Close resets user context and releases the connection to the pool.
// This MUST be called to prevent user context from leaking to the next request.
func (s *UserScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_user_id")
	s.Conn.Release()
}

// HasUser reports whether the scope is restricted to a user.
func (s *UserScope) HasUser() bool {
	return s.UserID != uuid.Nil
}

// WithUser acquires a connection and sets the user context for RLS.
// The returned UserScope MUST be closed with defer scope.Close().
func (db *DB) WithUser(ctx context.Context, userID uuid.UUID) (*UserScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_user_id', $1, false)", userID.String())
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &UserScope{Conn: conn, UserID: userID}, nil
}

// WithoutUser acquires a connection without user context.
// Use this for signup, login and share-token lookups, which run before a
// user is known. The returned UserScope MUST be closed with defer scope.Close().
func (db *DB) WithoutUser(ctx context.Context) (*UserScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &UserScope{Conn: conn}, nil
}

// InTx runs fn inside a transaction on the scoped connection.
// The transaction commits if fn returns nil and rolls back otherwise.
func (s *UserScope) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.Conn, fn)
}
