package models

import (
	"context"

	"github.com/google/uuid"
)

// ProvenanceSource represents how a notebook record was created or modified.
type ProvenanceSource string

const (
	SourceManual ProvenanceSource = "manual" // REST API / CLI
	SourceMCP    ProvenanceSource = "mcp"    // MCP tools
)

// String returns the string representation of a ProvenanceSource.
func (s ProvenanceSource) String() string {
	return string(s)
}

// IsValid returns true if the source is a valid provenance source.
func (s ProvenanceSource) IsValid() bool {
	switch s {
	case SourceManual, SourceMCP:
		return true
	default:
		return false
	}
}

// ProvenanceContext carries source and actor information through operations.
type ProvenanceContext struct {
	Source ProvenanceSource
	// UserID is the account that triggered the operation, from JWT claims.
	UserID uuid.UUID
}

type provenanceKey struct{}

// WithProvenance returns a new context with provenance information attached.
func WithProvenance(ctx context.Context, p ProvenanceContext) context.Context {
	return context.WithValue(ctx, provenanceKey{}, p)
}

// GetProvenance retrieves provenance information from the context.
func GetProvenance(ctx context.Context) (ProvenanceContext, bool) {
	p, ok := ctx.Value(provenanceKey{}).(ProvenanceContext)
	return p, ok
}

// WithManualProvenance returns a context with manual provenance set.
// Use this for HTTP handlers.
func WithManualProvenance(ctx context.Context, userID uuid.UUID) context.Context {
	return WithProvenance(ctx, ProvenanceContext{
		Source: SourceManual,
		UserID: userID,
	})
}

// WithMCPProvenance returns a context with MCP provenance set.
// Use this for MCP tool handlers.
func WithMCPProvenance(ctx context.Context, userID uuid.UUID) context.Context {
	return WithProvenance(ctx, ProvenanceContext{
		Source: SourceMCP,
		UserID: userID,
	})
}
