package repository

import (
	"context"

	"github.com/rentflow/leasesign/internal/domain"
)

// ArtifactRepository defines append-only access to the rendered document log.
// Artifacts are immutable; there is no update or delete.
type ArtifactRepository interface {
	// Insert appends a new artifact record
	Insert(ctx context.Context, artifact *domain.DocumentArtifact) error
	// ListByEntity returns all artifacts for an entity, newest first
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.DocumentArtifact, error)
}
