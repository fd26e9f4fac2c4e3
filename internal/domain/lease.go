package domain

import (
	"time"
)

// Lease status constants
const (
	LeaseStatusDraft            = "draft"
	LeaseStatusPendingSignature = "pending_signature"
	LeaseStatusActive           = "active"
	LeaseStatusTerminated       = "terminated"
	LeaseStatusExpired          = "expired"
)

// Lease represents a rental lease agreement
type Lease struct {
	ID          string  `json:"id"`
	OrgID       string  `json:"org_id"`
	UnitID      string  `json:"unit_id"`
	Status      string  `json:"status"`
	Terms       string  `json:"terms"`
	MonthlyRent float64 `json:"monthly_rent"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// Latest rendered document pointer. Historical artifacts are kept in the
	// append-only document_artifacts log; these fields only track the current one.
	DocumentURL  *string `json:"document_url,omitempty"`
	DocumentHash *string `json:"document_hash,omitempty"`

	LandlordSignedAt      *time.Time     `json:"landlord_signed_at,omitempty"`
	LandlordSignatureData *SignatureData `json:"landlord_signature_data,omitempty"`

	Tenants []*LeaseTenant `json:"tenants,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeaseTenant is a signing slot joining a lease and a tenant identity
type LeaseTenant struct {
	ID        string `json:"id"`
	LeaseID   string `json:"lease_id"`
	TenantID  string `json:"tenant_id"`
	IsPrimary bool   `json:"is_primary"`

	// Denormalized tenant identity, populated by joins
	TenantName  string `json:"tenant_name,omitempty"`
	TenantEmail string `json:"tenant_email,omitempty"`

	SignedAt       *time.Time     `json:"signed_at,omitempty"`
	SignatureData  *SignatureData `json:"signature_data,omitempty"`
	SigningToken   *string        `json:"-"`
	TokenExpiresAt *time.Time     `json:"token_expires_at,omitempty"`
}

// HasSigned reports whether this slot holds a signature
func (lt *LeaseTenant) HasSigned() bool {
	return lt.SignedAt != nil
}

// IsSignable reports whether the lease is accepting tenant signatures
func (l *Lease) IsSignable() bool {
	return l.Status == LeaseStatusPendingSignature
}

// CanSend reports whether the lease can be sent for signature
func (l *Lease) CanSend() bool {
	return l.Status == LeaseStatusDraft
}

// CanTerminate reports whether the lease can transition to terminated
func (l *Lease) CanTerminate() bool {
	return l.Status == LeaseStatusPendingSignature || l.Status == LeaseStatusActive
}

// CanDelete reports whether the lease can be removed. Only drafts with no
// signing activity are ever hard-deleted.
func (l *Lease) CanDelete() bool {
	if l.Status != LeaseStatusDraft {
		return false
	}
	for _, t := range l.Tenants {
		if t.HasSigned() {
			return false
		}
	}
	return true
}

// CanCountersign reports whether the landlord countersignature is legal.
// Tenants must all have signed (status active) and the landlord must not
// have signed yet.
func (l *Lease) CanCountersign() bool {
	return l.Status == LeaseStatusActive && l.LandlordSignedAt == nil
}

// RemainingSignatures counts tenant slots still waiting for a signature
func (l *Lease) RemainingSignatures() int {
	remaining := 0
	for _, t := range l.Tenants {
		if !t.HasSigned() {
			remaining++
		}
	}
	return remaining
}

// FullySigned reports whether every tenant and the landlord have signed
func (l *Lease) FullySigned() bool {
	return l.RemainingSignatures() == 0 && l.LandlordSignedAt != nil
}

// IsTerminal reports whether the lease lifecycle is over for signing purposes
func (l *Lease) IsTerminal() bool {
	return l.Status == LeaseStatusTerminated || l.Status == LeaseStatusExpired
}
