package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited.
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// Audited table names.
const (
	AuditTableProjects = "projects"
	AuditTableAnalyses = "analyses"
	AuditTableSections = "sections"
	AuditTableDatasets = "datasets"
	AuditTableProfiles = "profiles"
)

// AuditLogEntry represents a single row in audit_logs.
type AuditLogEntry struct {
	ID        uuid.UUID      `json:"id"`
	TableName string         `json:"table_name"`
	RecordID  *uuid.UUID     `json:"record_id,omitempty"`
	Action    string         `json:"action"`
	OldData   map[string]any `json:"old_data,omitempty"`
	NewData   map[string]any `json:"new_data,omitempty"`

	// Who/how
	Source string     `json:"source"`
	UserID *uuid.UUID `json:"user_id,omitempty"`

	// What changed (for updates), derived from OldData/NewData.
	ChangedFields map[string]FieldChange `json:"changed_fields,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FieldChange represents the old and new values for a changed field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}
