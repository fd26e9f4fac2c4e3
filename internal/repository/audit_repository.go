package repository

import (
	"context"

	"github.com/rentflow/leasesign/internal/domain"
)

// AuditLogRepository defines append-only access to the audit trail. There is
// deliberately no update or delete.
type AuditLogRepository interface {
	// InsertBatch appends a batch of audit entries
	InsertBatch(ctx context.Context, entries []*domain.AuditLogEntry) error
	// ListByEntity returns the full trail for an entity, ascending by time
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditLogEntry, error)
}
