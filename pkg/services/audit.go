package services

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
)

// DefaultAuditLimit bounds audit listings when the caller gives no limit.
const DefaultAuditLimit = 50

// auditedTables are the tables whose changes are recorded.
var auditedTables = map[string]bool{
	models.AuditTableProjects: true,
	models.AuditTableAnalyses: true,
	models.AuditTableSections: true,
	models.AuditTableDatasets: true,
	models.AuditTableProfiles: true,
}

// AuditTableFor returns the audit table name for an entity name such as
// "section" or "Analysis".
func AuditTableFor(entity string) (string, bool) {
	table := inflection.Plural(entity)
	return table, auditedTables[table]
}

// AuditService records who changed what. Logging never fails the
// operation being audited; failures are logged and dropped.
type AuditService interface {
	LogCreate(ctx context.Context, table string, recordID uuid.UUID, record any)
	LogUpdate(ctx context.Context, table string, recordID uuid.UUID, before, after any)
	LogDelete(ctx context.Context, table string, recordID uuid.UUID, record any)

	// List returns entries newest first with ChangedFields populated for updates.
	List(ctx context.Context, table string, recordID *uuid.UUID, limit int) ([]*models.AuditLogEntry, error)
}

type auditService struct {
	repo   repositories.AuditRepository
	logger *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo repositories.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.Named("audit-service"),
	}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) LogCreate(ctx context.Context, table string, recordID uuid.UUID, record any) {
	s.write(ctx, models.AuditActionCreate, table, recordID, nil, record)
}

func (s *auditService) LogUpdate(ctx context.Context, table string, recordID uuid.UUID, before, after any) {
	s.write(ctx, models.AuditActionUpdate, table, recordID, before, after)
}

func (s *auditService) LogDelete(ctx context.Context, table string, recordID uuid.UUID, record any) {
	s.write(ctx, models.AuditActionDelete, table, recordID, record, nil)
}

func (s *auditService) write(ctx context.Context, action, table string, recordID uuid.UUID, before, after any) {
	prov, ok := models.GetProvenance(ctx)
	if !ok {
		s.logger.Warn("No provenance context for audit log",
			zap.String("table", table),
			zap.String("record_id", recordID.String()),
			zap.String("action", action))
		return
	}

	oldData, err := toAuditMap(before)
	if err != nil {
		s.logger.Error("Failed to encode audit old_data", zap.String("table", table), zap.Error(err))
		return
	}
	newData, err := toAuditMap(after)
	if err != nil {
		s.logger.Error("Failed to encode audit new_data", zap.String("table", table), zap.Error(err))
		return
	}

	userID := prov.UserID
	entry := &models.AuditLogEntry{
		TableName: table,
		RecordID:  &recordID,
		Action:    action,
		OldData:   oldData,
		NewData:   newData,
		Source:    prov.Source.String(),
		UserID:    &userID,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to create audit log entry",
			zap.String("table", table),
			zap.String("record_id", recordID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *auditService) List(ctx context.Context, table string, recordID *uuid.UUID, limit int) ([]*models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	entries, err := s.repo.List(ctx, table, recordID, limit)
	if err != nil {
		s.logger.Error("Failed to list audit log entries",
			zap.String("table", table),
			zap.Error(err))
		return nil, fmt.Errorf("list audit log entries: %w", err)
	}

	for _, e := range entries {
		if e.Action == models.AuditActionUpdate {
			e.ChangedFields = ChangedFields(e.OldData, e.NewData)
		}
	}
	return entries, nil
}

// ChangedFields compares two record snapshots and returns the fields whose
// values differ. updated_at is ignored.
func ChangedFields(before, after map[string]any) map[string]models.FieldChange {
	changes := make(map[string]models.FieldChange)
	for k, newVal := range after {
		if k == "updated_at" {
			continue
		}
		oldVal, ok := before[k]
		if !ok || !reflect.DeepEqual(oldVal, newVal) {
			changes[k] = models.FieldChange{Old: oldVal, New: newVal}
		}
	}
	for k, oldVal := range before {
		if _, ok := after[k]; !ok && k != "updated_at" {
			changes[k] = models.FieldChange{Old: oldVal, New: nil}
		}
	}
	return changes
}

// toAuditMap snapshots a record through its JSON form so stored rows match
// what the API returns.
func toAuditMap(record any) (map[string]any, error) {
	if record == nil {
		return nil, nil
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	delete(out, "share_token")
	return out, nil
}
