package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rentflow/leasesign/internal/domain"
)

// AddendumRepository defines data access for lease addendums and their
// signature slots. Tx-suffixed methods run inside a caller-owned transaction.
type AddendumRepository interface {
	// Create creates a new draft addendum
	Create(ctx context.Context, addendum *domain.LeaseAddendum) error
	// GetByID retrieves an addendum with signature slots joined
	GetByID(ctx context.Context, id string) (*domain.LeaseAddendum, error)
	// CreateSlots creates one signature slot per lease tenant
	CreateSlots(ctx context.Context, slots []*domain.AddendumSignature) error
	// FindSlotByToken resolves a signing token to its slot, or nil
	FindSlotByToken(ctx context.Context, token string) (*domain.AddendumSignature, error)
	// UpdateStatus sets the addendum status
	UpdateStatus(ctx context.Context, id, status string) error
	// SetSlotToken overwrites the slot's signing token and expiry
	SetSlotToken(ctx context.Context, slotID, token string, expiresAt time.Time) error
	// SetLandlordSignature writes the landlord countersignature
	SetLandlordSignature(ctx context.Context, addendumID string, signedAt time.Time, data *domain.SignatureData) error
	// UpdateDocumentPointer repoints the addendum at its latest artifact
	UpdateDocumentPointer(ctx context.Context, addendumID, url, hash string) error

	// LockAddendumTx locks the addendum row
	LockAddendumTx(ctx context.Context, tx pgx.Tx, addendumID string) (*domain.LeaseAddendum, error)
	// LockSlotByTokenTx locks the slot referencing the token, or returns nil
	LockSlotByTokenTx(ctx context.Context, tx pgx.Tx, token string) (*domain.AddendumSignature, error)
	// LockSlotByTenantTx locks the slot for a tenant on an addendum, or nil
	LockSlotByTenantTx(ctx context.Context, tx pgx.Tx, addendumID, tenantID string) (*domain.AddendumSignature, error)
	// WriteSlotSignatureTx writes the evidence record and sets signed_at in
	// one guarded statement; a second write on the same slot fails
	WriteSlotSignatureTx(ctx context.Context, tx pgx.Tx, slotID string, signedAt time.Time, data *domain.SignatureData) error
	// CountUnsignedTx counts slots still waiting for a signature
	CountUnsignedTx(ctx context.Context, tx pgx.Tx, addendumID string) (int, error)
	// MarkSignedTx transitions the addendum to signed
	MarkSignedTx(ctx context.Context, tx pgx.Tx, addendumID string) error
	// VoidTx transitions the addendum to void, invalidating every
	// outstanding token through the status change
	VoidTx(ctx context.Context, tx pgx.Tx, addendumID string) error
}
