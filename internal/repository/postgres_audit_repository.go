package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentflow/leasesign/internal/domain"
)

// PostgresAuditLogRepository implements AuditLogRepository using PostgreSQL
type PostgresAuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditLogRepository creates a new PostgresAuditLogRepository
func NewPostgresAuditLogRepository(pool *pgxpool.Pool) *PostgresAuditLogRepository {
	return &PostgresAuditLogRepository{pool: pool}
}

// InsertBatch appends a batch of audit entries
func (r *PostgresAuditLogRepository) InsertBatch(ctx context.Context, entries []*domain.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO audit_logs (id, org_id, actor_id, action, entity_type, entity_id, changes, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, entry := range entries {
		var changes []byte
		if entry.Changes != nil {
			changes, _ = json.Marshal(entry.Changes)
		}
		batch.Queue(query,
			entry.ID,
			nullStringOrValue(entry.OrgID),
			entry.ActorID,
			entry.Action,
			entry.EntityType,
			entry.EntityID,
			changes,
			nullStringOrValue(entry.IPAddress),
			entry.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByEntity returns the full trail for an entity, ascending by time
func (r *PostgresAuditLogRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditLogEntry, error) {
	query := `
		SELECT id, COALESCE(org_id::text, ''), actor_id, action, entity_type, entity_id,
		       COALESCE(changes, '{}'::jsonb), COALESCE(ip_address, ''), created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.AuditLogEntry, 0)
	for rows.Next() {
		entry := &domain.AuditLogEntry{}
		var changes []byte
		err := rows.Scan(
			&entry.ID,
			&entry.OrgID,
			&entry.ActorID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&changes,
			&entry.IPAddress,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			_ = json.Unmarshal(changes, &entry.Changes)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// nullStringOrValue returns nil for empty strings, otherwise returns the value
func nullStringOrValue(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
