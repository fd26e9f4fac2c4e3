package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rentflow/leasesign/internal/domain"
)

// LeaseRepository defines data access for leases and their signing slots.
// Methods with a Tx suffix run inside a caller-owned transaction; the signing
// service uses them so precondition checks, the signature write and the
// completion cascade share one transaction scope.
type LeaseRepository interface {
	// Create creates a new draft lease with its tenant slots
	Create(ctx context.Context, lease *domain.Lease) error
	// GetByID retrieves a lease with tenant slots joined
	GetByID(ctx context.Context, id string) (*domain.Lease, error)
	// FindSlotByToken resolves a signing token to its slot, or nil
	FindSlotByToken(ctx context.Context, token string) (*domain.LeaseTenant, error)
	// UpdateStatus sets the lease status
	UpdateStatus(ctx context.Context, id, status string) error
	// SetSlotToken overwrites the slot's signing token and expiry
	SetSlotToken(ctx context.Context, slotID, token string, expiresAt time.Time) error
	// SetLandlordSignature writes the landlord countersignature
	SetLandlordSignature(ctx context.Context, leaseID string, signedAt time.Time, data *domain.SignatureData) error
	// UpdateDocumentPointer repoints the lease at its latest rendered artifact
	UpdateDocumentPointer(ctx context.Context, leaseID, url, hash string) error
	// Delete hard-deletes a draft lease and its slots
	Delete(ctx context.Context, id string) error

	// LockLeaseTx locks the lease row and returns its status
	LockLeaseTx(ctx context.Context, tx pgx.Tx, leaseID string) (*domain.Lease, error)
	// UpdateStatusTx sets the lease status inside a caller-owned transaction
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id, status string) error
	// LockSlotByTokenTx locks the slot referencing the token, or returns nil
	LockSlotByTokenTx(ctx context.Context, tx pgx.Tx, token string) (*domain.LeaseTenant, error)
	// LockSlotByTenantTx locks the slot for a tenant on a lease, or returns nil
	LockSlotByTenantTx(ctx context.Context, tx pgx.Tx, leaseID, tenantID string) (*domain.LeaseTenant, error)
	// WriteSlotSignatureTx writes the evidence record and sets signed_at in
	// one guarded statement; a second write on the same slot fails
	WriteSlotSignatureTx(ctx context.Context, tx pgx.Tx, slotID string, signedAt time.Time, data *domain.SignatureData) error
	// CountUnsignedTx counts slots on the lease still waiting for a signature
	CountUnsignedTx(ctx context.Context, tx pgx.Tx, leaseID string) (int, error)
	// ActivateLeaseTx transitions the lease to active
	ActivateLeaseTx(ctx context.Context, tx pgx.Tx, leaseID string) error
	// OccupyUnitTx marks the unit occupied
	OccupyUnitTx(ctx context.Context, tx pgx.Tx, unitID string) error
	// ActivateLeaseTenantsTx activates every tenant on the lease, setting
	// their current unit and move-in date
	ActivateLeaseTenantsTx(ctx context.Context, tx pgx.Tx, leaseID, unitID string, moveInDate time.Time) error
}
