package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-notebook/pkg/database"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// AuditRepository provides data access for audit_logs.
type AuditRepository interface {
	// Create inserts a new audit log entry.
	Create(ctx context.Context, entry *models.AuditLogEntry) error

	// List returns entries newest first. An empty tableName matches every
	// table; a non-nil recordID narrows to one record.
	List(ctx context.Context, tableName string, recordID *uuid.UUID, limit int) ([]*models.AuditLogEntry, error)
}

type auditRepository struct{}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository() AuditRepository {
	return &auditRepository{}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	oldJSON, err := marshalJSONB(entry.OldData)
	if err != nil {
		return fmt.Errorf("failed to marshal old_data: %w", err)
	}
	newJSON, err := marshalJSONB(entry.NewData)
	if err != nil {
		return fmt.Errorf("failed to marshal new_data: %w", err)
	}

	query := `
		INSERT INTO audit_logs (table_name, record_id, action, old_data, new_data, source, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = scope.Conn.QueryRow(ctx, query,
		entry.TableName,
		entry.RecordID,
		entry.Action,
		oldJSON,
		newJSON,
		entry.Source,
		entry.UserID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	return nil
}

func (r *auditRepository) List(ctx context.Context, tableName string, recordID *uuid.UUID, limit int) ([]*models.AuditLogEntry, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT id, table_name, record_id, action, old_data, new_data, source, user_id, created_at
		FROM audit_logs
		WHERE ($1 = '' OR table_name = $1) AND ($2::uuid IS NULL OR record_id = $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := scope.Conn.Query(ctx, query, tableName, recordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditLogEntry, 0)
	for rows.Next() {
		entry, err := scanAuditLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log entries: %w", err)
	}

	return entries, nil
}

func scanAuditLogEntry(row pgx.Row) (*models.AuditLogEntry, error) {
	var entry models.AuditLogEntry
	var oldJSON, newJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.TableName,
		&entry.RecordID,
		&entry.Action,
		&oldJSON,
		&newJSON,
		&entry.Source,
		&entry.UserID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
	}

	if err := unmarshalJSONB(oldJSON, &entry.OldData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal old_data: %w", err)
	}
	if err := unmarshalJSONB(newJSON, &entry.NewData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal new_data: %w", err)
	}

	return &entry, nil
}

// marshalJSONB returns nil for an empty map so the column stays NULL.
func marshalJSONB(data map[string]any) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return json.Marshal(data)
}

func unmarshalJSONB(raw []byte, dst *map[string]any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
