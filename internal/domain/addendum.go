package domain

import (
	"time"
)

// Addendum status constants
const (
	AddendumStatusDraft            = "draft"
	AddendumStatusPendingSignature = "pending_signature"
	AddendumStatusSigned           = "signed"
	AddendumStatusVoid             = "void"
)

// LeaseAddendum represents an amendment to an existing lease
type LeaseAddendum struct {
	ID      string `json:"id"`
	OrgID   string `json:"org_id"`
	LeaseID string `json:"lease_id"`
	Status  string `json:"status"`
	Title   string `json:"title"`
	Content string `json:"content"`

	// UploadedFileURL is set instead of Content when the addendum was uploaded
	// as a file rather than authored inline
	UploadedFileURL *string `json:"uploaded_file_url,omitempty"`

	DocumentURL  *string `json:"document_url,omitempty"`
	DocumentHash *string `json:"document_hash,omitempty"`

	LandlordSignedAt      *time.Time     `json:"landlord_signed_at,omitempty"`
	LandlordSignatureData *SignatureData `json:"landlord_signature_data,omitempty"`

	Signatures []*AddendumSignature `json:"signatures,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddendumSignature is a signing slot keyed by (addendum, tenant)
type AddendumSignature struct {
	ID         string `json:"id"`
	AddendumID string `json:"addendum_id"`
	TenantID   string `json:"tenant_id"`

	TenantName  string `json:"tenant_name,omitempty"`
	TenantEmail string `json:"tenant_email,omitempty"`

	SignedAt       *time.Time     `json:"signed_at,omitempty"`
	SignatureData  *SignatureData `json:"signature_data,omitempty"`
	SigningToken   *string        `json:"-"`
	TokenExpiresAt *time.Time     `json:"token_expires_at,omitempty"`
}

// HasSigned reports whether this slot holds a signature
func (s *AddendumSignature) HasSigned() bool {
	return s.SignedAt != nil
}

// IsSignable reports whether the addendum is accepting tenant signatures
func (a *LeaseAddendum) IsSignable() bool {
	return a.Status == AddendumStatusPendingSignature
}

// CanSend reports whether the addendum can be sent for signature
func (a *LeaseAddendum) CanSend() bool {
	return a.Status == AddendumStatusDraft
}

// CanVoid reports whether the addendum can transition to void
func (a *LeaseAddendum) CanVoid() bool {
	return a.Status == AddendumStatusPendingSignature
}

// CanCountersign reports whether the landlord countersignature is legal
func (a *LeaseAddendum) CanCountersign() bool {
	return a.Status == AddendumStatusSigned && a.LandlordSignedAt == nil
}

// RemainingSignatures counts signature slots still waiting
func (a *LeaseAddendum) RemainingSignatures() int {
	remaining := 0
	for _, s := range a.Signatures {
		if !s.HasSigned() {
			remaining++
		}
	}
	return remaining
}

// FullySigned reports whether every tenant and the landlord have signed
func (a *LeaseAddendum) FullySigned() bool {
	return a.RemainingSignatures() == 0 && a.LandlordSignedAt != nil
}

// IsTerminal reports whether the addendum lifecycle is over
func (a *LeaseAddendum) IsTerminal() bool {
	return a.Status == AddendumStatusVoid
}
