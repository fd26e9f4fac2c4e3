package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentflow/leasesign/internal/audit"
	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/render"
	"github.com/rentflow/leasesign/internal/repository"
	"github.com/rentflow/leasesign/internal/storage"
	"github.com/rentflow/leasesign/pkg/logger"
)

// DocumentService renders document artifacts and maintains the append-only
// artifact log. Every render writes a brand new artifact; the parent's
// document pointer is then moved, never the artifact itself.
type DocumentService struct {
	renderer  *render.Renderer
	blobs     storage.BlobStore
	artifacts repository.ArtifactRepository
	leases    repository.LeaseRepository
	addendums repository.AddendumRepository
	recorder  *audit.Recorder
}

// NewDocumentService creates a DocumentService
func NewDocumentService(
	renderer *render.Renderer,
	blobs storage.BlobStore,
	artifacts repository.ArtifactRepository,
	leases repository.LeaseRepository,
	addendums repository.AddendumRepository,
	recorder *audit.Recorder,
) *DocumentService {
	return &DocumentService{
		renderer:  renderer,
		blobs:     blobs,
		artifacts: artifacts,
		leases:    leases,
		addendums: addendums,
		recorder:  recorder,
	}
}

// RegenerateLease renders the lease's current state into a new artifact and
// repoints the lease at it. Returns the new artifact URL and content hash.
func (s *DocumentService) RegenerateLease(ctx context.Context, lease *domain.Lease) (string, string, error) {
	content, err := s.renderer.RenderLease(lease, time.Now())
	if err != nil {
		return "", "", err
	}
	return s.persist(ctx, domain.AuditEntityLease, lease.ID, lease.OrgID, content, func(url, hash string) error {
		return s.leases.UpdateDocumentPointer(ctx, lease.ID, url, hash)
	})
}

// RegenerateAddendum renders the addendum's current state into a new artifact
// and repoints the addendum at it.
func (s *DocumentService) RegenerateAddendum(ctx context.Context, addendum *domain.LeaseAddendum) (string, string, error) {
	content, err := s.renderer.RenderAddendum(addendum, time.Now())
	if err != nil {
		return "", "", err
	}
	return s.persist(ctx, domain.AuditEntityAddendum, addendum.ID, addendum.OrgID, content, func(url, hash string) error {
		return s.addendums.UpdateDocumentPointer(ctx, addendum.ID, url, hash)
	})
}

// ReadArtifact returns the stored bytes for an entity's artifact by hash
func (s *DocumentService) ReadArtifact(ctx context.Context, entityType, entityID, hash string) ([]byte, error) {
	return s.blobs.Read(ctx, artifactKey(entityType, entityID, hash))
}

// History returns the full artifact log for an entity, newest first
func (s *DocumentService) History(ctx context.Context, entityType, entityID string) ([]*domain.DocumentArtifact, error) {
	return s.artifacts.ListByEntity(ctx, entityType, entityID)
}

func (s *DocumentService) persist(ctx context.Context, entityType, entityID, orgID string, content []byte, repoint func(url, hash string) error) (string, string, error) {
	hash := render.HashBytes(content)

	url, err := s.blobs.Save(ctx, artifactKey(entityType, entityID, hash), content)
	if err != nil {
		return "", "", fmt.Errorf("failed to store artifact: %w", err)
	}

	artifact := &domain.DocumentArtifact{
		ID:         uuid.New().String(),
		EntityType: entityType,
		EntityID:   entityID,
		URL:        url,
		Hash:       hash,
		CreatedAt:  time.Now(),
	}
	if err := s.artifacts.Insert(ctx, artifact); err != nil {
		return "", "", fmt.Errorf("failed to record artifact: %w", err)
	}

	if err := repoint(url, hash); err != nil {
		return "", "", err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      orgID,
		ActorID:    domain.SystemActor,
		Action:     domain.AuditActionDocumentRegenerated,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    map[string]interface{}{"document_hash": hash},
	})

	logger.InfoCtx(ctx, "document regenerated",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("hash", hash),
	)

	return url, hash, nil
}

// artifactKey addresses artifacts by content hash so a regeneration can
// never clobber an earlier version
func artifactKey(entityType, entityID, hash string) string {
	return fmt.Sprintf("%s/%s/%s.html", entityType, entityID, hash)
}
