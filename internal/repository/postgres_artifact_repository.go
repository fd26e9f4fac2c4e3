package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentflow/leasesign/internal/domain"
)

// PostgresArtifactRepository implements ArtifactRepository using PostgreSQL
type PostgresArtifactRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresArtifactRepository creates a new PostgresArtifactRepository
func NewPostgresArtifactRepository(pool *pgxpool.Pool) *PostgresArtifactRepository {
	return &PostgresArtifactRepository{pool: pool}
}

// Insert appends a new artifact record
func (r *PostgresArtifactRepository) Insert(ctx context.Context, artifact *domain.DocumentArtifact) error {
	query := `
		INSERT INTO document_artifacts (id, entity_type, entity_id, url, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		artifact.ID,
		artifact.EntityType,
		artifact.EntityID,
		artifact.URL,
		artifact.Hash,
		artifact.CreatedAt,
	)
	return err
}

// ListByEntity returns all artifacts for an entity, newest first
func (r *PostgresArtifactRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.DocumentArtifact, error) {
	query := `
		SELECT id, entity_type, entity_id, url, hash, created_at
		FROM document_artifacts
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts := make([]*domain.DocumentArtifact, 0)
	for rows.Next() {
		a := &domain.DocumentArtifact{}
		if err := rows.Scan(&a.ID, &a.EntityType, &a.EntityID, &a.URL, &a.Hash, &a.CreatedAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}
