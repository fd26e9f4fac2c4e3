package di

import (
	"github.com/rentflow/leasesign/internal/audit"
	"github.com/rentflow/leasesign/internal/geo"
	"github.com/rentflow/leasesign/internal/handler"
	"github.com/rentflow/leasesign/internal/notify"
	"github.com/rentflow/leasesign/internal/render"
	"github.com/rentflow/leasesign/internal/repository"
	"github.com/rentflow/leasesign/internal/service"
	"github.com/rentflow/leasesign/internal/storage"
	"github.com/rentflow/leasesign/pkg/config"
	"github.com/rentflow/leasesign/pkg/database"
	"github.com/rentflow/leasesign/pkg/redis"
)

// Container holds all dependencies for the signing service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Cache *redis.Client
	Blobs storage.BlobStore

	// Repositories
	LeaseRepo    repository.LeaseRepository
	AddendumRepo repository.AddendumRepository
	AuditRepo    repository.AuditLogRepository
	ArtifactRepo repository.ArtifactRepository

	// Cross-cutting
	Recorder *audit.Recorder
	Notifier notify.Notifier
	Geo      geo.Resolver

	// Services
	DocumentService     *service.DocumentService
	SigningService      *service.SigningService
	VerificationService *service.VerificationService

	// Handlers
	HealthHandler       *handler.HealthHandler
	SigningHandler      *handler.SigningHandler
	LeaseHandler        *handler.LeaseHandler
	AddendumHandler     *handler.AddendumHandler
	VerificationHandler *handler.VerificationHandler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, db *database.PostgresDB, cache *redis.Client) (*Container, error) {
	blobs, err := storage.NewFileBlobStore(cfg.Signing.DocumentDir)
	if err != nil {
		return nil, err
	}

	c := &Container{
		DB:    db,
		Cache: cache,
		Blobs: blobs,
	}

	pool := db.Pool()

	// Repositories
	c.LeaseRepo = repository.NewPostgresLeaseRepository(pool)
	c.AddendumRepo = repository.NewPostgresAddendumRepository(pool)
	c.AuditRepo = repository.NewPostgresAuditLogRepository(pool)
	c.ArtifactRepo = repository.NewPostgresArtifactRepository(pool)

	// Cross-cutting
	c.Recorder = audit.NewRecorder(c.AuditRepo, audit.DefaultRecorderConfig())
	c.Notifier = notify.NewLogNotifier()
	c.Geo = geo.NewResolver(&cfg.Geo)

	// Services
	c.DocumentService = service.NewDocumentService(
		render.NewRenderer(),
		c.Blobs,
		c.ArtifactRepo,
		c.LeaseRepo,
		c.AddendumRepo,
		c.Recorder,
	)
	c.SigningService = service.NewSigningService(
		pool,
		c.LeaseRepo,
		c.AddendumRepo,
		c.DocumentService,
		service.NewTokenIssuer(cfg.Signing.TokenTTL),
		c.Recorder,
		c.Notifier,
		c.Geo,
		cfg.Signing.PublicBaseURL,
	)
	c.VerificationService = service.NewVerificationService(
		c.LeaseRepo,
		c.AddendumRepo,
		c.AuditRepo,
		c.DocumentService,
	)

	// Handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Cache)
	c.SigningHandler = handler.NewSigningHandler(c.SigningService)
	c.LeaseHandler = handler.NewLeaseHandler(c.SigningService, c.DocumentService)
	c.AddendumHandler = handler.NewAddendumHandler(c.SigningService, c.DocumentService)
	c.VerificationHandler = handler.NewVerificationHandler(c.VerificationService)

	return c, nil
}

// Close shuts down container-owned resources
func (c *Container) Close() error {
	return c.Recorder.Close()
}
